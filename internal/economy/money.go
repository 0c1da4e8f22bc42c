package economy

import (
	"github.com/shopspring/decimal"
)

// Amount is a non-negative quantity of MSR.
type Amount = decimal.Decimal

// Cents is the number of decimal places shares are floored to.
const Cents = 2

var (
	Zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

// FloorCents truncates d toward negative infinity at two decimals.
func FloorCents(d decimal.Decimal) decimal.Decimal {
	return d.RoundFloor(Cents)
}

// Percent returns d * pct / 100.
func Percent(d, pct decimal.Decimal) decimal.Decimal {
	return d.Mul(pct).Div(hundred)
}

// ParseAmount parses a decimal string and rejects negatives.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, Errorf(KindInvalidAmount, "cannot parse %q", s)
	}
	if d.IsNegative() {
		return Zero, Errorf(KindInvalidAmount, "amount %s is negative", d)
	}
	return d, nil
}

// MaxZero clamps negative values to zero.
func MaxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return Zero
	}
	return d
}
