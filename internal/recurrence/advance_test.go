package recurrence

import (
	"testing"
	"time"

	"finbook/internal/core"
)

func TestAdvance_Daily(t *testing.T) {
	tests := []struct {
		name string
		date core.Date
		want core.Date
	}{
		{"mid-month", core.NewDate(2024, 3, 15), core.NewDate(2024, 3, 16)},
		{"month boundary", core.NewDate(2024, 1, 31), core.NewDate(2024, 2, 1)},
		{"year boundary", core.NewDate(2023, 12, 31), core.NewDate(2024, 1, 1)},
		{"leap day", core.NewDate(2024, 2, 28), core.NewDate(2024, 2, 29)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Advance(tt.date, core.Daily); !got.Equal(tt.want.Time) {
				t.Errorf("Advance(%s, daily) = %s, want %s", tt.date, got, tt.want)
			}
		})
	}
}

func TestAdvance_Weekly(t *testing.T) {
	tests := []struct {
		name string
		date core.Date
		want core.Date
	}{
		{"mid-month", core.NewDate(2024, 3, 15), core.NewDate(2024, 3, 22)},
		{"month boundary", core.NewDate(2024, 1, 29), core.NewDate(2024, 2, 5)},
		{"year boundary", core.NewDate(2024, 12, 28), core.NewDate(2025, 1, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Advance(tt.date, core.Weekly); !got.Equal(tt.want.Time) {
				t.Errorf("Advance(%s, weekly) = %s, want %s", tt.date, got, tt.want)
			}
		})
	}
}

func TestAdvance_Monthly(t *testing.T) {
	tests := []struct {
		name string
		date core.Date
		want core.Date
	}{
		{"mid-month", core.NewDate(2024, 3, 15), core.NewDate(2024, 4, 15)},
		{"year rollover", core.NewDate(2024, 12, 10), core.NewDate(2025, 1, 10)},
		{"clamp to leap february", core.NewDate(2024, 1, 31), core.NewDate(2024, 2, 29)},
		{"clamp to non-leap february", core.NewDate(2023, 1, 31), core.NewDate(2023, 2, 28)},
		{"clamp 31 to 30-day month", core.NewDate(2024, 3, 31), core.NewDate(2024, 4, 30)},
		{"day 30 into february", core.NewDate(2024, 1, 30), core.NewDate(2024, 2, 29)},
		{"first of month", core.NewDate(2024, 6, 1), core.NewDate(2024, 7, 1)},
		{"december 31", core.NewDate(2024, 12, 31), core.NewDate(2025, 1, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Advance(tt.date, core.Monthly); !got.Equal(tt.want.Time) {
				t.Errorf("Advance(%s, monthly) = %s, want %s", tt.date, got, tt.want)
			}
		})
	}
}

func TestAdvance_UnknownFrequencyBehavesLikeMonthly(t *testing.T) {
	dates := []core.Date{
		core.NewDate(2024, 3, 15),
		core.NewDate(2024, 1, 31),
		core.NewDate(2024, 12, 10),
	}
	for _, d := range dates {
		got := Advance(d, core.Frequency("biweekly"))
		want := Advance(d, core.Monthly)
		if !got.Equal(want.Time) {
			t.Errorf("Advance(%s, biweekly) = %s, want monthly result %s", d, got, want)
		}
	}
}

func TestAdvance_StrictlyAdvances(t *testing.T) {
	freqs := []core.Frequency{core.Daily, core.Weekly, core.Monthly, core.Frequency("unknown")}
	// Sweep every day of a leap year and the year after it.
	for _, f := range freqs {
		d := core.NewDate(2024, 1, 1)
		end := core.NewDate(2026, 1, 1)
		for d.Before(end) {
			next := Advance(d, f)
			if !next.After(d) {
				t.Fatalf("Advance(%s, %s) = %s does not strictly advance", d, f, next)
			}
			d = d.AddDays(1)
		}
	}
}

func TestAdvance_OutputIsCalendarDay(t *testing.T) {
	got := Advance(core.NewDate(2024, 5, 9), core.Monthly)
	if h, m, s := got.Clock(); h != 0 || m != 0 || s != 0 {
		t.Errorf("advanced date carries a time component: %v", got.Time)
	}
	if got.Location() != time.UTC {
		t.Errorf("advanced date not normalized to UTC: %v", got.Location())
	}
}
