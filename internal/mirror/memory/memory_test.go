package memory

import (
	"context"
	"testing"

	"finbook/internal/core"
	"finbook/internal/mirror"
)

var _ mirror.Writer = (*Store)(nil)

func TestAppendStoresAndReferences(t *testing.T) {
	s := New()

	tx := core.Transaction{
		User:     "alice",
		Kind:     core.Expense,
		Date:     core.NewDate(2025, 4, 10),
		Category: "groceries",
		Amount:   core.Money{Cents: 2599},
		Currency: "USD",
	}

	ref, err := s.Append(context.Background(), tx)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "mem:1" {
		t.Fatalf("ref = %q, want mem:1", ref)
	}

	items := s.Items()
	if len(items) != 1 || items[0].Amount.Cents != 2599 {
		t.Fatalf("Items() = %+v", items)
	}
}

func TestAppendRejectsInvalidTransaction(t *testing.T) {
	s := New()
	if _, err := s.Append(context.Background(), core.Transaction{}); err == nil {
		t.Fatal("Append should validate")
	}
	if len(s.Items()) != 0 {
		t.Fatal("invalid transaction must not be stored")
	}
}
