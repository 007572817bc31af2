// Package core holds the budget domain: money and quantity arithmetic,
// the work-budget hierarchy, progress rules and earned-value formulas.
//
// This file contains parsing and arithmetic for monetary amounts and
// measured quantities. Both are kept as integers (cents, thousandths)
// so that derived totals are exact and recomputation is idempotent.
package core

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// Money is a monetary amount in cents of Real (BRL).
type Money struct {
	Cents int64 `json:"cents"`
}

// Quantity is a measured amount (m², kg, units, ...) in thousandths,
// so 12.5 m² is stored as 12500.
type Quantity struct {
	Milli int64 `json:"milli"`
}

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. It accepts both dot (12.34) and
// comma (12,34) separators. Zero is a valid amount (unpriced placeholder
// lines are allowed); negative values are rejected.
func ParseDecimalToCents(s string) (int64, error) {
	v, err := parseScaled(s, 2)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// ParseQuantity converts a decimal string to thousandths with half-up
// rounding on the fourth decimal place. Zero is valid, negatives are not.
func ParseQuantity(s string) (int64, error) {
	v, err := parseScaled(s, 3)
	if err != nil {
		return 0, ErrInvalidQuantity
	}
	return v, nil
}

// parseScaled parses a non-negative decimal into an integer scaled by
// 10^decimals, rounding half-up on the first dropped digit.
func parseScaled(s string, decimals int) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, errors.New("signed")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, errors.New("malformed")
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, errors.New("non-digit")
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, err
	}
	scale := int64(1)
	for i := 0; i < decimals; i++ {
		scale *= 10
	}
	if iv > (1<<63-1)/scale {
		return 0, errors.New("overflow")
	}
	var frac int64
	mult := scale / 10
	for i := 0; i < len(fracPart) && mult > 0; i++ {
		frac += int64(fracPart[i]-'0') * mult
		mult /= 10
	}
	if len(fracPart) > decimals && fracPart[decimals] >= '5' {
		frac++
	}
	return iv*scale + frac, nil
}

// Times returns the price of q units at unit price m, rounded half-up
// to the cent. This is the line-total formula of the cost model.
func (m Money) Times(q Quantity) Money {
	return Money{Cents: (q.Milli*m.Cents + 500) / 1000}
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Sub returns m - other. The result may be negative (cost variance).
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

// Percent returns p percent of m, rounded half-up to the cent.
func (m Money) Percent(p int) Money {
	if p <= 0 {
		return Money{}
	}
	return Money{Cents: (m.Cents*int64(p) + 50) / 100}
}

// Reais returns the amount as a float64 for display. Calculations stay
// in cents to avoid floating-point drift.
func (m Money) Reais() float64 {
	return float64(m.Cents) / 100.0
}

// Validate rejects negative amounts. Zero is allowed: placeholder items
// and unpriced categories are part of normal planning.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate rejects negative quantities.
func (q Quantity) Validate() error {
	if q.Milli < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// Units returns the quantity as a float64 for display.
func (q Quantity) Units() float64 {
	return float64(q.Milli) / 1000.0
}
