// Package core provides money parsing and handling utilities.
//
// This file contains the Money type used for every currency amount in the
// grant application, plus parsing and display helpers.
package core

import (
	"errors"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// CurrencyDecimals is the precision every stored amount is rounded to.
const CurrencyDecimals = 2

// Bounds on accepted amounts. Rounding cost grows with the exponent, so
// anything outside these is rejected before it is rounded.
const (
	maxAmountLen    = 40
	maxExponent     = 15
	minExponent     = -30
	maxAmountDigits = 30
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must be zero or greater")
)

// ParseMoney converts a decimal string to Money rounded to two places.
//
// Surrounding whitespace is ignored. Negative values are parsed (callers
// decide whether a sign is acceptable) so that "not a number" and "below
// zero" can be reported differently.
//
// Examples:
//
//	ParseMoney("12.34")  -> 12.34, nil
//	ParseMoney(" 100 ")  -> 100.00, nil
//	ParseMoney("12.345") -> 12.35, nil (half away from zero)
//	ParseMoney("abc")    -> 0, ErrInvalidAmount
//	ParseMoney("1e100")  -> 0, ErrInvalidAmount (out of range)
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxAmountLen {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return boundedMoney(d)
}

func boundedMoney(d decimal.Decimal) (Money, error) {
	if exp := d.Exponent(); exp > maxExponent || exp < minExponent {
		return Money{}, ErrInvalidAmount
	}
	if d.NumDigits() > maxAmountDigits {
		return Money{}, ErrInvalidAmount
	}
	return NewMoney(d), nil
}

// NewMoney rounds d to currency precision.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(CurrencyDecimals)}
}

// MoneyFromFloat is a convenience for tests and seed data.
func MoneyFromFloat(f float64) Money {
	return NewMoney(decimal.NewFromFloat(f))
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return NewMoney(m.Decimal.Add(o.Decimal))
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return NewMoney(m.Decimal.Sub(o.Decimal))
}

// Within reports whether |m - o| <= tolerance.
func (m Money) Within(o Money, tolerance Money) bool {
	return m.Decimal.Sub(o.Decimal).Abs().LessThanOrEqual(tolerance.Decimal)
}

// USD formats the amount as "$1,234.56" for user-facing messages. The
// digits come from the exact decimal, never from a float64.
func (m Money) USD() string {
	r := m.Decimal.Round(CurrencyDecimals)
	sign := ""
	if r.IsNegative() {
		sign = "-"
	}
	r = r.Abs()
	_, cents, _ := strings.Cut(r.StringFixed(CurrencyDecimals), ".")
	return sign + "$" + humanize.BigComma(r.BigInt()) + "." + cents
}

// String returns the canonical two-decimal representation used in storage.
func (m Money) String() string {
	return m.Decimal.StringFixed(CurrencyDecimals)
}

// MarshalJSON encodes the amount as a bare JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both quoted and bare numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if len(data) > maxAmountLen+2 {
		return ErrInvalidAmount
	}
	if err := d.UnmarshalJSON(data); err != nil {
		return ErrInvalidAmount
	}
	bm, err := boundedMoney(d)
	if err != nil {
		return err
	}
	*m = bm
	return nil
}
