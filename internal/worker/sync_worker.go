package worker

import (
	"context"
	"fmt"
	"log/slog"

	"finbook/internal/amqp"
	"finbook/internal/core"
	"finbook/internal/mirror"
	"finbook/internal/storage"
)

// SyncWorker mirrors locally stored transactions into an external ledger.
// AMQP messages drive the fast path; a periodic sweep over rows still marked
// pending covers lost messages and downtime.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	mirror    mirror.Writer
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, mirror mirror.Writer, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single transaction sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"kind", msg.Kind,
		"id", msg.ID)

	t, err := w.storage.GetTransaction(ctx, msg.Kind, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.syncToMirror(ctx, *t); err != nil {
		return fmt.Errorf("sync transaction to mirror: %w", err)
	}

	return nil
}

// ProcessPendingTransactions mirrors transactions that never made it out,
// a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingTransactions(ctx context.Context) error {
	pending, err := w.storage.ListPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		t, err := w.storage.GetTransaction(ctx, p.Kind, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction",
				"kind", p.Kind, "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.Kind, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error",
					"kind", p.Kind, "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.syncToMirror(ctx, *t); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction",
				"kind", p.Kind, "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck drains the pending backlog at worker startup so downtime
// never leaves rows unmirrored.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.ListPendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	synced := 0
	failed := 0

	for _, p := range pending {
		t, err := w.storage.GetTransaction(ctx, p.Kind, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction for startup sync",
				"kind", p.Kind, "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.Kind, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error",
					"kind", p.Kind, "id", p.ID, "error", err)
			}
			failed++
			continue
		}

		if err := w.syncToMirror(ctx, *t); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction during startup",
				"kind", p.Kind, "id", p.ID, "error", err)
			failed++
			continue
		}

		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"failed", failed)

	return nil
}

func (w *SyncWorker) syncToMirror(ctx context.Context, t core.Transaction) error {
	ref, err := w.mirror.Append(ctx, t)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, t.Kind, t.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error",
				"kind", t.Kind, "id", t.ID, "error", markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, t.Kind, t.ID); err != nil {
		// The mirror write itself succeeded; the sweep may re-append this row.
		slog.ErrorContext(ctx, "Failed to mark as synced",
			"kind", t.Kind, "id", t.ID, "error", err)
	}

	slog.InfoContext(ctx, "Transaction mirrored",
		"kind", t.Kind,
		"id", t.ID,
		"row_ref", ref,
		"amount_cents", t.Amount.Cents)

	return nil
}
