package storage

import (
	"context"
	"fmt"

	"finbook/internal/core"
)

// SetBudget inserts or updates the budget for a user/category/subcategory.
func (r *SQLiteRepository) SetBudget(ctx context.Context, b core.Budget) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO budget (user, category, subcategory, amount_cents, currency)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user, category, subcategory) DO UPDATE SET
			amount_cents = excluded.amount_cents,
			currency = excluded.currency`,
		b.User, b.Category, b.Subcategory, b.Amount.Cents, b.Currency)
	if err != nil {
		return 0, fmt.Errorf("set budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("set budget id: %w", err)
	}
	return id, nil
}

// ListBudgets returns all budgets owned by a user.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, user string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user, category, subcategory, amount_cents, currency
		FROM budget WHERE user = ? ORDER BY category, subcategory`, user)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.User, &b.Category, &b.Subcategory, &b.Amount.Cents, &b.Currency); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// AddSavingsGoal stores a new savings goal.
func (r *SQLiteRepository) AddSavingsGoal(ctx context.Context, g core.SavingsGoal) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO savings_goals (user, goal_amount_cents, target_date, achieved_cents)
		VALUES (?, ?, ?, ?)`,
		g.User, g.GoalAmount.Cents, g.TargetDate.String(), g.Achieved.Cents)
	if err != nil {
		return 0, fmt.Errorf("add savings goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add savings goal id: %w", err)
	}
	return id, nil
}

// ListSavingsGoals returns all savings goals owned by a user.
func (r *SQLiteRepository) ListSavingsGoals(ctx context.Context, user string) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user, goal_amount_cents, target_date, achieved_cents
		FROM savings_goals WHERE user = ? ORDER BY id`, user)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	var out []core.SavingsGoal
	for rows.Next() {
		var (
			g    core.SavingsGoal
			date string
		)
		if err := rows.Scan(&g.ID, &g.User, &g.GoalAmount.Cents, &date, &g.Achieved.Cents); err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		parsed, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("scan savings goal date: %w", err)
		}
		g.TargetDate = parsed
		out = append(out, g)
	}
	return out, rows.Err()
}

// AddTag stores a tag for a user. Duplicate tags are rejected by the schema.
func (r *SQLiteRepository) AddTag(ctx context.Context, user, tag string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO tags (user, tag) VALUES (?, ?)`, user, tag)
	if err != nil {
		return 0, fmt.Errorf("add tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add tag id: %w", err)
	}
	return id, nil
}

// ListTags returns all tags owned by a user.
func (r *SQLiteRepository) ListTags(ctx context.Context, user string) ([]core.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user, tag FROM tags WHERE user = ? ORDER BY tag`, user)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var out []core.Tag
	for rows.Next() {
		var t core.Tag
		if err := rows.Scan(&t.ID, &t.User, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AssociateTag links a tag to a transaction row.
func (r *SQLiteRepository) AssociateTag(ctx context.Context, transactionID, tagID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transaction_tags (transaction_id, tag_id) VALUES (?, ?)`,
		transactionID, tagID)
	if err != nil {
		return fmt.Errorf("associate tag %d with transaction %d: %w", tagID, transactionID, err)
	}
	return nil
}
