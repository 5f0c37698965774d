package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-01-31")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Year() != 2025 || d.Month() != 1 || d.Day() != 31 {
		t.Fatalf("ParseDate = %s, want 2025-01-31", d)
	}

	if _, err := ParseDate("31/01/2025"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("ParseDate with wrong layout: error = %v, want ErrInvalidDate", err)
	}
	if _, err := ParseDate(""); err == nil {
		t.Fatal("ParseDate(\"\") should fail")
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2025, 2, 28)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2025-02-28"` {
		t.Fatalf("marshal = %s, want \"2025-02-28\"", b)
	}

	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip = %s, want %s", back, d)
	}
}

func TestDateComparisons(t *testing.T) {
	a := NewDate(2025, 3, 1)
	b := NewDate(2025, 3, 2)
	if !a.Before(b) || b.Before(a) {
		t.Error("Before comparison wrong")
	}
	if !b.After(a) || a.After(b) {
		t.Error("After comparison wrong")
	}
	if a.AddDays(1) != b {
		t.Errorf("AddDays(1) = %s, want %s", a.AddDays(1), b)
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		User:     "alice",
		Kind:     Expense,
		Date:     NewDate(2025, 6, 15),
		Category: "groceries",
		Amount:   Money{Cents: 1250},
		Currency: "USD",
	}

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{"valid", func(t *Transaction) {}, nil},
		{"bad kind", func(t *Transaction) { t.Kind = "transfer" }, ErrInvalidKind},
		{"empty user", func(t *Transaction) { t.User = "  " }, ErrEmptyUser},
		{"zero date", func(t *Transaction) { t.Date = Date{} }, ErrInvalidDate},
		{"empty category", func(t *Transaction) { t.Category = "" }, ErrEmptyCategory},
		{"negative amount", func(t *Transaction) { t.Amount.Cents = -1 }, ErrInvalidAmount},
		{"empty currency", func(t *Transaction) { t.Currency = "" }, ErrEmptyCurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := valid
			tt.mutate(&tr)
			err := tr.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecurrenceDefinitionValidate(t *testing.T) {
	valid := RecurrenceDefinition{
		User:      "bob",
		Kind:      Income,
		NextDate:  NewDate(2025, 1, 1),
		Category:  "salary",
		Amount:    Money{Cents: 500000},
		Frequency: Monthly,
		Currency:  "EUR",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid definition rejected: %v", err)
	}

	noFreq := valid
	noFreq.Frequency = ""
	if err := noFreq.Validate(); !errors.Is(err, ErrEmptyFrequency) {
		t.Fatalf("empty frequency: error = %v, want ErrEmptyFrequency", err)
	}

	badKind := valid
	badKind.Kind = "savings"
	if err := badKind.Validate(); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("bad kind: error = %v, want ErrInvalidKind", err)
	}
}

func TestSavingsGoalValidate(t *testing.T) {
	g := SavingsGoal{User: "carol", GoalAmount: Money{Cents: 100000}, TargetDate: NewDate(2026, 1, 1)}
	if err := g.Validate(); err != nil {
		t.Fatalf("valid goal rejected: %v", err)
	}

	g.GoalAmount.Cents = 0
	if err := g.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero goal: error = %v, want ErrInvalidAmount", err)
	}
}
