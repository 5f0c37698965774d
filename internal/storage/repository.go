package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"finbook/internal/core"

	_ "modernc.org/sqlite"
)

// ErrRecurrenceChanged is returned by MaterializeRecurrence when the
// definition's next date no longer matches the one the caller read; a
// concurrent edit or a parallel job run got there first.
var ErrRecurrenceChanged = errors.New("recurrence changed concurrently")

// SyncState tracks mirror synchronization of a transaction row.
const (
	SyncPending int64 = 0
	SyncDone    int64 = 1
	SyncError   int64 = 2
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL keeps the daily job and the interactive path from blocking each
	// other; busy_timeout serializes the residual write contention.
	dsn := "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// tableFor maps a transaction kind to its table name. The kind is validated
// first, so no user-controlled string ever reaches the SQL text.
func tableFor(kind core.Kind) (string, error) {
	if err := kind.Validate(); err != nil {
		return "", err
	}
	return string(kind), nil
}

// InsertTransaction writes a transaction into the table selected by its kind
// and returns the new row id.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	table, err := tableFor(t.Kind)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (user, date, category, subcategory, amount_cents, currency, source_recurrence_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, table),
		t.User, t.Date.String(), t.Category, nullable(t.Subcategory),
		t.Amount.Cents, t.Currency, nullableID(t.SourceRecurrenceID))
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert %s id: %w", table, err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"kind", t.Kind,
		"id", id,
		"user", t.User,
		"date", t.Date.String(),
		"amount_cents", t.Amount.Cents)

	return id, nil
}

// GetTransaction loads a single transaction by kind and id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, kind core.Kind, id int64) (*core.Transaction, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, user, date, category, subcategory, amount_cents, currency, source_recurrence_id
		FROM %s WHERE id = ?`, table), id)

	t, err := scanTransaction(row, kind)
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", table, id, err)
	}
	return t, nil
}

// RecentTransactions returns the latest transactions of a kind for a user,
// newest first.
func (r *SQLiteRepository) RecentTransactions(ctx context.Context, user string, kind core.Kind, limit int) ([]core.Transaction, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, user, date, category, subcategory, amount_cents, currency, source_recurrence_id
		FROM %s WHERE user = ? ORDER BY id DESC LIMIT ?`, table), user, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// CreateRecurrence stores a new recurrence definition.
func (r *SQLiteRepository) CreateRecurrence(ctx context.Context, rd core.RecurrenceDefinition) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring (user, type, date, category, subcategory, amount_cents, frequency, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rd.User, string(rd.Kind), rd.NextDate.String(), rd.Category,
		nullable(rd.Subcategory), rd.Amount.Cents, string(rd.Frequency), rd.Currency)
	if err != nil {
		return 0, fmt.Errorf("create recurrence: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create recurrence id: %w", err)
	}

	slog.InfoContext(ctx, "Recurrence created",
		"id", id,
		"user", rd.User,
		"kind", rd.Kind,
		"frequency", rd.Frequency,
		"next_date", rd.NextDate.String())

	return id, nil
}

// ListRecurrences returns all recurrence definitions owned by a user.
func (r *SQLiteRepository) ListRecurrences(ctx context.Context, user string) ([]core.RecurrenceDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user, type, date, category, subcategory, amount_cents, frequency, currency
		FROM recurring WHERE user = ? ORDER BY id`, user)
	if err != nil {
		return nil, fmt.Errorf("list recurrences: %w", err)
	}
	defer rows.Close()
	return collectRecurrences(rows)
}

// ListDueRecurrences returns every definition whose next date is on or before
// asOf, across all users.
func (r *SQLiteRepository) ListDueRecurrences(ctx context.Context, asOf core.Date) ([]core.RecurrenceDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user, type, date, category, subcategory, amount_cents, frequency, currency
		FROM recurring WHERE date <= ?`, asOf.String())
	if err != nil {
		return nil, fmt.Errorf("list due recurrences: %w", err)
	}
	defer rows.Close()
	return collectRecurrences(rows)
}

// UpdateRecurrenceNextDate sets a definition's next occurrence date.
func (r *SQLiteRepository) UpdateRecurrenceNextDate(ctx context.Context, id int64, next core.Date) error {
	_, err := r.db.ExecContext(ctx, `UPDATE recurring SET date = ? WHERE id = ?`, next.String(), id)
	if err != nil {
		return fmt.Errorf("update recurrence %d: %w", id, err)
	}
	return nil
}

// MaterializeRecurrence inserts the transaction a due definition describes
// and advances its next date, as a single SQL transaction. The transaction is
// dated with the definition's current next date, not today. The date-advance
// carries an optimistic guard on the date the caller read: if a concurrent
// writer moved it, the whole unit rolls back with ErrRecurrenceChanged.
func (r *SQLiteRepository) MaterializeRecurrence(ctx context.Context, def core.RecurrenceDefinition, next core.Date) (int64, error) {
	table, err := tableFor(def.Kind)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin materialize: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE recurring SET date = ? WHERE id = ? AND date = ?`,
		next.String(), def.ID, def.NextDate.String())
	if err != nil {
		return 0, fmt.Errorf("advance recurrence %d: %w", def.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("advance recurrence %d: %w", def.ID, err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("recurrence %d: %w", def.ID, ErrRecurrenceChanged)
	}

	res, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (user, date, category, subcategory, amount_cents, currency, source_recurrence_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, table),
		def.User, def.NextDate.String(), def.Category, nullable(def.Subcategory),
		def.Amount.Cents, def.Currency, def.ID)
	if err != nil {
		return 0, fmt.Errorf("insert materialized %s: %w", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("materialized %s id: %w", table, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit materialize: %w", err)
	}

	slog.InfoContext(ctx, "Recurrence materialized",
		"recurrence_id", def.ID,
		"kind", def.Kind,
		"transaction_id", id,
		"date", def.NextDate.String(),
		"next_date", next.String())

	return id, nil
}

// PendingTransaction identifies a row awaiting mirror sync.
type PendingTransaction struct {
	Kind core.Kind
	ID   int64
}

// ListPendingSync returns transactions not yet mirrored, oldest first.
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, limit int) ([]PendingTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, id FROM (
			SELECT 'income' AS kind, id, created_at FROM income WHERE synced = 0
			UNION ALL
			SELECT 'expense' AS kind, id, created_at FROM expense WHERE synced = 0
		) ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync: %w", err)
	}
	defer rows.Close()

	var out []PendingTransaction
	for rows.Next() {
		var p PendingTransaction
		var kind string
		if err := rows.Scan(&kind, &p.ID); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		p.Kind = core.Kind(kind)
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced marks a transaction as successfully mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, kind core.Kind, id int64) error {
	return r.setSyncState(ctx, kind, id, SyncDone)
}

// MarkSyncError marks a transaction as having failed to mirror.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, kind core.Kind, id int64) error {
	return r.setSyncState(ctx, kind, id, SyncError)
}

func (r *SQLiteRepository) setSyncState(ctx context.Context, kind core.Kind, id, state int64) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET synced = ? WHERE id = ?`, table), state, id)
	if err != nil {
		return fmt.Errorf("mark %s %d sync state: %w", table, id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner, kind core.Kind) (*core.Transaction, error) {
	var (
		t        core.Transaction
		date     string
		subcat   sql.NullString
		sourceID sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.User, &date, &t.Category, &subcat, &t.Amount.Cents, &t.Currency, &sourceID); err != nil {
		return nil, err
	}
	parsed, err := core.ParseDate(date)
	if err != nil {
		return nil, err
	}
	t.Kind = kind
	t.Date = parsed
	t.Subcategory = subcat.String
	t.SourceRecurrenceID = sourceID.Int64
	return &t, nil
}

func collectRecurrences(rows *sql.Rows) ([]core.RecurrenceDefinition, error) {
	var out []core.RecurrenceDefinition
	for rows.Next() {
		var (
			rd     core.RecurrenceDefinition
			kind   string
			date   string
			subcat sql.NullString
			freq   string
		)
		if err := rows.Scan(&rd.ID, &rd.User, &kind, &date, &rd.Category, &subcat, &rd.Amount.Cents, &freq, &rd.Currency); err != nil {
			return nil, fmt.Errorf("scan recurrence: %w", err)
		}
		parsed, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("scan recurrence date: %w", err)
		}
		rd.Kind = core.Kind(kind)
		rd.NextDate = parsed
		rd.Subcategory = subcat.String
		rd.Frequency = core.Frequency(freq)
		out = append(out, rd)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
