package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

type (
	// Kind selects between the income and expense transaction tables.
	Kind string

	// Frequency is how often a recurrence definition fires.
	Frequency string

	// Date is a calendar date without a time component. The zero value is
	// the empty date.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a concrete income or expense row, entered directly by
	// the user or materialized from a recurrence definition.
	Transaction struct {
		ID          int64
		User        string
		Kind        Kind
		Date        Date
		Category    string
		Subcategory string
		Amount      Money
		Currency    string
		// SourceRecurrenceID links a materialized transaction back to the
		// recurrence that spawned it. Zero for direct entries.
		SourceRecurrenceID int64
	}

	// RecurrenceDefinition is a template describing a transaction that
	// repeats on a schedule. NextDate is the next date it is due to fire;
	// only the materialization job advances it.
	RecurrenceDefinition struct {
		ID          int64
		User        string
		Kind        Kind
		NextDate    Date
		Category    string
		Subcategory string
		Amount      Money
		Frequency   Frequency
		Currency    string
	}

	Budget struct {
		ID          int64
		User        string
		Category    string
		Subcategory string
		Amount      Money
		Currency    string
	}

	SavingsGoal struct {
		ID         int64
		User       string
		GoalAmount Money
		TargetDate Date
		Achieved   Money
	}

	Tag struct {
		ID   int64
		User string
		Name string
	}
)

var (
	ErrInvalidKind    = errors.New("invalid transaction kind")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyUser      = errors.New("empty user")
	ErrEmptyCategory  = errors.New("empty category")
	ErrEmptyCurrency  = errors.New("empty currency")
	ErrEmptyTag       = errors.New("empty tag")
	ErrEmptyFrequency = errors.New("empty frequency")
)

// DateLayout is the wire and storage format for dates.
const DateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day. The date is normalized to
// midnight UTC so comparisons only see the calendar day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as an int.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return DateOf(d.AddDate(0, 0, n))
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.User) == "" {
		return ErrEmptyUser
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Currency) == "" {
		return ErrEmptyCurrency
	}
	return nil
}

func (rd RecurrenceDefinition) Validate() error {
	if err := rd.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(rd.User) == "" {
		return ErrEmptyUser
	}
	if err := rd.NextDate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(rd.Category) == "" {
		return ErrEmptyCategory
	}
	if err := rd.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(string(rd.Frequency)) == "" {
		return ErrEmptyFrequency
	}
	if strings.TrimSpace(rd.Currency) == "" {
		return ErrEmptyCurrency
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.User) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(b.Currency) == "" {
		return ErrEmptyCurrency
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.User) == "" {
		return ErrEmptyUser
	}
	if g.GoalAmount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if err := g.TargetDate.Validate(); err != nil {
		return err
	}
	return nil
}
