// Package money converts between decimal amounts at the API boundary and
// the integer minor units (kobo) used everywhere inside the ledger. All
// ledger arithmetic is int64; decimals exist only to parse input and to
// format balances for display.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorPerMajor is the scale of the minor unit (100 kobo per naira).
const MinorPerMajor = 100

var ErrNegative = errors.New("amount must not be negative")

// ToMinor converts a decimal major-unit amount to minor units, truncating
// (never rounding) anything below the minor unit. 10.005 -> 1000.
func ToMinor(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, ErrNegative
	}
	return d.Mul(decimal.NewFromInt(MinorPerMajor)).Truncate(0).IntPart(), nil
}

// Parse converts a decimal string ("40.00") to minor units, truncating.
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return ToMinor(d)
}

// ToDecimal converts minor units back to a two-decimal-place major amount.
// Exact by construction, so repeated round trips never drift.
func ToDecimal(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(MinorPerMajor))
}

// Format renders minor units as a plain two-decimal string for display.
func Format(minor int64) string {
	return ToDecimal(minor).StringFixed(2)
}

// Percent applies a basis-point rate to a minor-unit amount, truncating.
// 150 bps on 10000 -> 150.
func Percent(minor int64, bps int64) int64 {
	return minor * bps / 10000
}
