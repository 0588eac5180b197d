package core

import (
	"errors"
	"fmt"
)

// CategoryShare is one category's slice of a period's spending.
type CategoryShare struct {
	Name    string
	Amount  Money
	Percent float64 // 0-100, share of total expense
}

// PeriodSnapshot is the aggregated, read-only input for one insight
// generation request. It is produced fresh per request by the aggregator
// and never mutated afterwards.
type PeriodSnapshot struct {
	Year     int
	Month    int // 1-12
	Language string

	TotalIncome  Money
	TotalExpense Money
	Balance      Money
	TxCount      int

	// Categories is ordered by amount, largest first.
	Categories []CategoryShare

	// Previous holds the immediately preceding period, or nil when no
	// prior data exists. Its own Previous field is always nil.
	Previous *PeriodSnapshot
}

var (
	ErrMissingPeriod = errors.New("snapshot period is missing")
	ErrNegativeTotal = errors.New("snapshot total is negative")
	ErrInvalidShare  = errors.New("snapshot category share is invalid")
)

// Validate checks the snapshot input contract. A failure here is a
// programming error in the aggregator, not a runtime condition.
func (s *PeriodSnapshot) Validate() error {
	if s == nil {
		return ErrMissingPeriod
	}
	if s.Year <= 0 || s.Month < 1 || s.Month > 12 {
		return ErrMissingPeriod
	}
	if s.TotalIncome.Cents < 0 || s.TotalExpense.Cents < 0 {
		return ErrNegativeTotal
	}
	if s.TxCount < 0 {
		return fmt.Errorf("%w: negative transaction count", ErrInvalidShare)
	}
	for _, c := range s.Categories {
		if c.Name == "" {
			return fmt.Errorf("%w: empty category name", ErrInvalidShare)
		}
		if c.Amount.Cents < 0 {
			return fmt.Errorf("%w: negative amount for %q", ErrInvalidShare, c.Name)
		}
		if c.Percent < 0 || c.Percent > 100 {
			return fmt.Errorf("%w: percent %.1f for %q", ErrInvalidShare, c.Percent, c.Name)
		}
	}
	if s.Previous != nil {
		if s.Previous.Year <= 0 || s.Previous.Month < 1 || s.Previous.Month > 12 {
			return fmt.Errorf("%w: previous period", ErrMissingPeriod)
		}
		if s.Previous.TotalIncome.Cents < 0 || s.Previous.TotalExpense.Cents < 0 {
			return fmt.Errorf("%w: previous period", ErrNegativeTotal)
		}
	}
	return nil
}

// PeriodLabel returns the period in "YYYY-MM" form.
func (s *PeriodSnapshot) PeriodLabel() string {
	return fmt.Sprintf("%04d-%02d", s.Year, s.Month)
}

// TopCategories returns up to n categories, largest first.
func (s *PeriodSnapshot) TopCategories(n int) []CategoryShare {
	if n > len(s.Categories) {
		n = len(s.Categories)
	}
	return s.Categories[:n]
}

// PreviousPeriod returns the year and month immediately before the given
// period.
func PreviousPeriod(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}
