// Package money converts between request amounts and the integer cents stored in the ledger.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ErrOutOfRange is returned when an amount does not fit in int64 cents.
var ErrOutOfRange = errors.New("money: amount out of range")

// ToCents rounds d to two decimal places and returns it in cents.
func ToCents(d decimal.Decimal) (int64, error) {
	scaled := d.Round(2).Mul(hundred)
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, d.String())
	}
	return scaled.IntPart(), nil
}

// FromCents returns cents as a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Float returns cents as a float for JSON responses.
func Float(cents int64) float64 {
	return FromCents(cents).InexactFloat64()
}

// Format renders cents as a dollar string, e.g. $12.50.
func Format(cents int64) string {
	return fmt.Sprintf("$%s", FromCents(cents).StringFixed(2))
}

// ParseCents parses a decimal string into cents.
func ParseCents(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return ToCents(d)
}
