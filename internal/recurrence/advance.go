// Package recurrence computes the next occurrence date for a recurrence
// definition. It is pure calendar arithmetic: no I/O, deterministic, and the
// result is always strictly after the input date.
package recurrence

import (
	"time"

	"finbook/internal/core"
)

// Advancer is the strategy interface for advancing a date by one period.
type Advancer interface {
	// Next returns the next occurrence strictly after d.
	Next(d core.Date) core.Date
}

// DailyAdvancer moves the date forward one day.
type DailyAdvancer struct{}

func (DailyAdvancer) Next(d core.Date) core.Date {
	return d.AddDays(1)
}

// WeeklyAdvancer moves the date forward seven days.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Next(d core.Date) core.Date {
	return d.AddDays(7)
}

// MonthlyAdvancer moves the date to the same day of the following month,
// rolling December into January. When that day does not exist in the target
// month (e.g. Jan 31 -> Feb 31) the date is clamped to the last day of the
// target month instead of overflowing into the month after.
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Next(d core.Date) core.Date {
	year, month := d.Year(), d.Month()
	if month == 12 {
		month = 1
		year++
	} else {
		month++
	}
	if day := d.Day(); day <= daysIn(year, month) {
		return core.NewDate(year, month, day)
	}
	return lastDayOf(year, month)
}

// daysIn returns the number of days in the given month. Day 0 of the next
// month is the last day of this one.
func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func lastDayOf(year, month int) core.Date {
	return core.NewDate(year, month, daysIn(year, month))
}

// advancers maps frequencies to their advancing strategy.
var advancers = map[core.Frequency]Advancer{
	core.Daily:   DailyAdvancer{},
	core.Weekly:  WeeklyAdvancer{},
	core.Monthly: MonthlyAdvancer{},
}

// Advance returns the next occurrence date for a recurrence of the given
// frequency. Unrecognized frequencies are treated as monthly; that is the
// tracker's fallback policy, not an error.
func Advance(d core.Date, f core.Frequency) core.Date {
	adv, ok := advancers[f]
	if !ok {
		adv = MonthlyAdvancer{}
	}
	return adv.Next(d)
}
