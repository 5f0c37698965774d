package core

import (
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"integer", "12", 1200, false},
		{"dot separator", "12.34", 1234, false},
		{"comma separator", "12,34", 1234, false},
		{"single decimal", "12.3", 1230, false},
		{"third decimal rounds down", "12.344", 1234, false},
		{"third decimal rounds up", "12.345", 1235, false},
		{"leading dot", ".50", 50, false},
		{"zero", "0", 0, false},
		{"whitespace trimmed", "  7.25  ", 725, false},
		{"empty", "", 0, true},
		{"negative rejected", "-5.00", 0, true},
		{"plus sign rejected", "+5.00", 0, true},
		{"letters rejected", "abc", 0, true},
		{"two separators rejected", "1.2.3", 0, true},
		{"mixed garbage rejected", "12.3a", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDecimalToCents(%q) = %d, want error", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ParseDecimalToCents(%q) error = %v, want ErrInvalidAmount", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecimalToCents(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParseDecimalToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyDecimal(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{50, "0.50"},
		{5, "0.05"},
		{0, "0.00"},
		{-1234, "-12.34"},
		{100000, "1000.00"},
	}
	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).Decimal(); got != tt.want {
			t.Errorf("Money{%d}.Decimal() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestConvertCents(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		from  string
		to    string
		want  int64
	}{
		{"same currency", 1000, "USD", "USD", 1000},
		{"usd to eur", 1000, "USD", "EUR", 850},
		{"eur to usd", 850, "EUR", "USD", 1000},
		{"usd to jpy", 100, "USD", "JPY", 11000},
		{"unknown source unchanged", 1000, "XXX", "USD", 1000},
		{"unknown target unchanged", 1000, "USD", "XXX", 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConvertCents(tt.cents, tt.from, tt.to); got != tt.want {
				t.Fatalf("ConvertCents(%d, %q, %q) = %d, want %d", tt.cents, tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCurrenciesKnown(t *testing.T) {
	codes := Currencies()
	if len(codes) != 5 {
		t.Fatalf("Currencies() returned %d codes, want 5", len(codes))
	}
	seen := map[string]bool{}
	for _, c := range codes {
		seen[c] = true
	}
	for _, want := range []string{"USD", "EUR", "GBP", "JPY", "CAD"} {
		if !seen[want] {
			t.Errorf("Currencies() missing %q", want)
		}
	}
}
