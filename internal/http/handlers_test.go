package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"finbook/internal/services"
	"finbook/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "finbook.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	transactions := services.NewTransactionService(repo, nil)
	materializer := services.NewMaterializer(repo, nil)
	s := NewServer(":0", repo, transactions, materializer)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]string{
		"user":     "alice",
		"kind":     "expense",
		"date":     "2025-06-15",
		"category": "groceries",
		"amount":   "25.99",
		"currency": "USD",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	created := decodeBody[transactionResponse](t, rec)
	if created.ID == 0 || created.AmountCents != 2599 || created.Date != "2025-06-15" {
		t.Fatalf("created = %+v", created)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions?user=alice&kind=expense", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	items := decodeBody[[]transactionResponse](t, rec)
	if len(items) != 1 || items[0].Category != "groceries" {
		t.Fatalf("list = %+v", items)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"bad amount", map[string]string{
			"user": "a", "kind": "expense", "date": "2025-06-15",
			"category": "x", "amount": "abc", "currency": "USD",
		}, http.StatusUnprocessableEntity},
		{"negative amount", map[string]string{
			"user": "a", "kind": "expense", "date": "2025-06-15",
			"category": "x", "amount": "-5", "currency": "USD",
		}, http.StatusUnprocessableEntity},
		{"bad date", map[string]string{
			"user": "a", "kind": "expense", "date": "15/06/2025",
			"category": "x", "amount": "5", "currency": "USD",
		}, http.StatusUnprocessableEntity},
		{"bad kind", map[string]string{
			"user": "a", "kind": "transfer", "date": "2025-06-15",
			"category": "x", "amount": "5", "currency": "USD",
		}, http.StatusUnprocessableEntity},
		{"missing user", map[string]string{
			"kind": "expense", "date": "2025-06-15",
			"category": "x", "amount": "5", "currency": "USD",
		}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/transactions", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestListTransactionsRequiresUser(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/transactions", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRecurringCreateRunAndList(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/recurring", map[string]string{
		"user":       "alice",
		"kind":       "expense",
		"start_date": "2020-01-31",
		"category":   "rent",
		"amount":     "1200.00",
		"frequency":  "monthly",
		"currency":   "USD",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create recurrence status = %d, body %s", rec.Code, rec.Body)
	}

	// The definition is long overdue, so a run materializes exactly one
	// occurrence dated with the stored next date.
	rec = doJSON(t, s, http.MethodPost, "/api/recurring/run", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("run status = %d, body %s", rec.Code, rec.Body)
	}
	res := decodeBody[map[string]int](t, rec)
	if res["due"] != 1 || res["materialized"] != 1 || res["failed"] != 0 {
		t.Fatalf("run result = %+v", res)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions?user=alice&kind=expense", nil)
	items := decodeBody[[]transactionResponse](t, rec)
	if len(items) != 1 {
		t.Fatalf("materialized %d transactions, want 1", len(items))
	}
	if items[0].Date != "2020-01-31" {
		t.Errorf("materialized date = %s, want the due date 2020-01-31", items[0].Date)
	}
	if items[0].SourceRecurrenceID == 0 {
		t.Error("materialized transaction should reference its recurrence")
	}

	rec = doJSON(t, s, http.MethodGet, "/api/recurring?user=alice", nil)
	defs := decodeBody[[]recurrenceResponse](t, rec)
	if len(defs) != 1 {
		t.Fatalf("definitions = %d, want 1", len(defs))
	}
	if defs[0].NextDate != "2020-02-29" {
		t.Errorf("next date = %s, want 2020-02-29 (clamped leap February)", defs[0].NextDate)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/budgets", map[string]string{
		"user":     "alice",
		"category": "groceries",
		"amount":   "400",
		"currency": "USD",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("set budget status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/budgets?user=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list budgets status = %d", rec.Code)
	}
}

func TestSummaryReportReflectsWrites(t *testing.T) {
	s := newTestServer(t)

	post := func(kind, amount string) {
		rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]string{
			"user": "alice", "kind": kind, "date": "2025-06-15",
			"category": "misc", "amount": amount, "currency": "USD",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("post %s: status = %d", kind, rec.Code)
		}
	}

	post("income", "5000.00")

	rec := doJSON(t, s, http.MethodGet, "/api/reports/summary?user=alice", nil)
	sum := decodeBody[storage.Summary](t, rec)
	if sum.Balance.Cents != 500000 {
		t.Fatalf("balance = %d, want 500000", sum.Balance.Cents)
	}

	// A new write must invalidate the cached summary.
	post("expense", "1234.00")

	rec = doJSON(t, s, http.MethodGet, "/api/reports/summary?user=alice", nil)
	sum = decodeBody[storage.Summary](t, rec)
	if sum.Balance.Cents != 376600 {
		t.Fatalf("balance after expense = %d, want 376600", sum.Balance.Cents)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodDelete, "/api/transactions", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
