// Package types provides fixed-precision money and quantity arithmetic.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Quantity represents a stock quantity with full precision.
// Batches track fractional quantities (cut fabric, raw material weight),
// so quantities share the decimal representation with money.
type Quantity = decimal.Decimal

// AssignmentTolerance absorbs rounding noise when comparing a manual
// assignment total against the required quantity. Recipe conversion factors
// arrive from clients as decimal strings, so exact equality is expected in
// practice; the tolerance only covers legacy clients that still send floats.
var AssignmentTolerance = decimal.NewFromFloat(0.001)

// Zero returns zero value.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// FromString parses a decimal string.
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// MustFromString parses a decimal string, panics on error.
// Use only for constants and tests.
func MustFromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromFloat converts a float. Prefer FromString for values from the wire.
func FromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// FromInt converts an integer.
func FromInt(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// Sum adds a list of decimals without intermediate rounding.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// LineSubtotal computes quantity × unit price exactly.
func LineSubtotal(quantity Quantity, unitPrice Money) Money {
	return quantity.Mul(unitPrice)
}

// Percent computes amount × rate / 100 exactly (commission, flat tax).
func Percent(amount Money, rate decimal.Decimal) Money {
	return amount.Mul(rate).Div(decimal.NewFromInt(100))
}

// WithinTolerance reports whether |a − b| ≤ AssignmentTolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().Cmp(AssignmentTolerance) <= 0
}
