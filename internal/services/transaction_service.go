package services

import (
	"context"
	"fmt"
	"log/slog"

	"finbook/internal/core"
)

// TransactionStore is the slice of the repository the interactive path needs.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, t core.Transaction) (int64, error)
}

// TransactionService records user-entered transactions and announces them to
// the mirror pipeline.
type TransactionService struct {
	store     TransactionStore
	publisher SyncPublisher // optional
}

func NewTransactionService(store TransactionStore, publisher SyncPublisher) *TransactionService {
	return &TransactionService{store: store, publisher: publisher}
}

// Record validates and stores a transaction, then publishes a sync message.
// A publish failure does not fail the request; the row is saved locally and
// the sync worker's sweep will find it.
func (s *TransactionService) Record(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	id, err := s.store.InsertTransaction(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("save transaction: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionSync(ctx, t.Kind, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message",
				"kind", t.Kind,
				"id", id,
				"error", err)
		}
	}

	return id, nil
}
