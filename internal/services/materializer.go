// Package services provides business logic and orchestration over the store.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"finbook/internal/core"
	"finbook/internal/recurrence"
)

// RecurrenceStore is the slice of the repository the materialization job
// needs. MaterializeRecurrence must be atomic: the transaction insert and the
// date advance succeed or fail together.
type RecurrenceStore interface {
	ListDueRecurrences(ctx context.Context, asOf core.Date) ([]core.RecurrenceDefinition, error)
	MaterializeRecurrence(ctx context.Context, def core.RecurrenceDefinition, next core.Date) (int64, error)
}

// SyncPublisher announces newly created transactions to the mirror pipeline.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, kind core.Kind, id int64) error
}

// Materializer converts due recurrence definitions into concrete transactions
// and reschedules them.
type Materializer struct {
	store     RecurrenceStore
	publisher SyncPublisher // optional
}

func NewMaterializer(store RecurrenceStore, publisher SyncPublisher) *Materializer {
	return &Materializer{store: store, publisher: publisher}
}

// RunResult summarizes one materialization pass.
type RunResult struct {
	Due          int
	Materialized int
	Failed       int
}

// Run performs a single materialization pass as of today: every definition
// with NextDate <= today is materialized exactly once and advanced by one
// period. A long-overdue definition is not burst-replayed; it catches up one
// occurrence per run. A failure on one definition is logged and does not stop
// the rest; the definition stays due and is retried on the next run.
func (m *Materializer) Run(ctx context.Context, today core.Date) (RunResult, error) {
	var res RunResult

	if m.store == nil {
		return res, fmt.Errorf("materializer not properly initialized")
	}

	due, err := m.store.ListDueRecurrences(ctx, today)
	if err != nil {
		return res, fmt.Errorf("list due recurrences: %w", err)
	}
	res.Due = len(due)

	slog.InfoContext(ctx, "Processing due recurrences",
		"due", len(due),
		"as_of", today.String())

	for _, def := range due {
		next := recurrence.Advance(def.NextDate, def.Frequency)

		id, err := m.store.MaterializeRecurrence(ctx, def, next)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize recurrence",
				"recurrence_id", def.ID,
				"user", def.User,
				"kind", def.Kind,
				"error", err)
			res.Failed++
			continue
		}
		res.Materialized++

		slog.InfoContext(ctx, "Materialized recurrence",
			"recurrence_id", def.ID,
			"transaction_id", id,
			"kind", def.Kind,
			"date", def.NextDate.String(),
			"next_date", next.String(),
			"amount_cents", def.Amount.Cents)

		if m.publisher != nil {
			if err := m.publisher.PublishTransactionSync(ctx, def.Kind, id); err != nil {
				// The row is committed; the sweep in the sync worker will
				// pick it up if this message is lost.
				slog.WarnContext(ctx, "Failed to publish sync message for materialized transaction",
					"transaction_id", id,
					"kind", def.Kind,
					"error", err)
			}
		}
	}

	slog.InfoContext(ctx, "Recurrence processing complete",
		"due", res.Due,
		"materialized", res.Materialized,
		"failed", res.Failed)

	return res, nil
}
