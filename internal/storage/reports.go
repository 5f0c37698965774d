package storage

import (
	"context"
	"database/sql"
	"fmt"

	"finbook/internal/core"
)

// Summary aggregates a user's overall position.
type Summary struct {
	TotalIncome   core.Money
	TotalExpenses core.Money
	Balance       core.Money
}

// MonthTotals is one row of the monthly income/expense trend.
type MonthTotals struct {
	Month    string // YYYY-MM
	Income   core.Money
	Expenses core.Money
	Balance  core.Money
}

// CategoryTotal is the spend aggregated over one category/subcategory pair.
type CategoryTotal struct {
	Category    string
	Subcategory string
	Spent       core.Money
}

// GetSummary returns total income, total expenses and their balance for a user.
func (r *SQLiteRepository) GetSummary(ctx context.Context, user string) (Summary, error) {
	var s Summary

	income, err := r.totalFor(ctx, core.Income, user)
	if err != nil {
		return s, err
	}
	expenses, err := r.totalFor(ctx, core.Expense, user)
	if err != nil {
		return s, err
	}

	s.TotalIncome = core.Money{Cents: income}
	s.TotalExpenses = core.Money{Cents: expenses}
	s.Balance = core.Money{Cents: income - expenses}
	return s, nil
}

func (r *SQLiteRepository) totalFor(ctx context.Context, kind core.Kind, user string) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var total sql.NullInt64
	err = r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT SUM(amount_cents) FROM %s WHERE user = ?`, table), user).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total %s: %w", table, err)
	}
	return total.Int64, nil
}

// MonthlySummary returns per-month income, expense and balance totals,
// optionally bounded by an inclusive date range.
func (r *SQLiteRepository) MonthlySummary(ctx context.Context, user string, from, to core.Date) ([]MonthTotals, error) {
	query := `
		SELECT month, SUM(income_cents), SUM(expense_cents) FROM (
			SELECT strftime('%Y-%m', date) AS month, amount_cents AS income_cents, 0 AS expense_cents
			FROM income WHERE user = ?1 AND (?2 = '' OR date BETWEEN ?2 AND ?3)
			UNION ALL
			SELECT strftime('%Y-%m', date) AS month, 0, amount_cents
			FROM expense WHERE user = ?1 AND (?2 = '' OR date BETWEEN ?2 AND ?3)
		) GROUP BY month ORDER BY month`

	fromStr, toStr := "", ""
	if !from.IsZero() && !to.IsZero() {
		fromStr, toStr = from.String(), to.String()
	}

	rows, err := r.db.QueryContext(ctx, query, user, fromStr, toStr)
	if err != nil {
		return nil, fmt.Errorf("monthly summary: %w", err)
	}
	defer rows.Close()

	var out []MonthTotals
	for rows.Next() {
		var (
			m        MonthTotals
			income   int64
			expenses int64
		)
		if err := rows.Scan(&m.Month, &income, &expenses); err != nil {
			return nil, fmt.Errorf("scan monthly summary: %w", err)
		}
		m.Income = core.Money{Cents: income}
		m.Expenses = core.Money{Cents: expenses}
		m.Balance = core.Money{Cents: income - expenses}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SpentByCategory returns expense totals grouped by category and subcategory.
func (r *SQLiteRepository) SpentByCategory(ctx context.Context, user string) ([]CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, COALESCE(subcategory, ''), SUM(amount_cents)
		FROM expense WHERE user = ?
		GROUP BY category, subcategory
		ORDER BY category, subcategory`, user)
	if err != nil {
		return nil, fmt.Errorf("spent by category: %w", err)
	}
	defer rows.Close()

	var out []CategoryTotal
	for rows.Next() {
		var (
			c     CategoryTotal
			spent int64
		)
		if err := rows.Scan(&c.Category, &c.Subcategory, &spent); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		c.Spent = core.Money{Cents: spent}
		out = append(out, c)
	}
	return out, rows.Err()
}
