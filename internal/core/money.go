// Money parsing and formatting.
//
// Amounts are stored as integer cents; parsing goes through
// shopspring/decimal so user input like "12,345" never hits float math.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a decimal string to positive cents.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted, and
// anything beyond two fractional digits is rounded half-up. Zero, negative,
// and malformed values return ErrInvalidAmount.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.Sign() <= 0 {
		return Money{}, ErrInvalidAmount
	}

	cents := d.Mul(hundred).Round(0)
	if !cents.IsInteger() || !cents.BigInt().IsInt64() {
		return Money{}, ErrInvalidAmount
	}

	v := cents.IntPart()
	if v <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: v}, nil
}

// String formats the amount with two decimal places, e.g. "12.34".
func (m Money) String() string {
	return decimal.NewFromInt(m.Cents).Div(hundred).StringFixed(2)
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Sub returns the difference of two amounts. The result may be negative.
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}
