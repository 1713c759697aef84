// Package pricing converts between exchange decimal prices and display percentages.
//
// The CLOB quotes outcome tokens as decimals in the open interval (0,1);
// strategy configuration and everything user-facing works on a 0-100 scale.
package pricing

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// ToPercent converts an exchange decimal price to a 0-100 percentage.
func ToPercent(price decimal.Decimal) float64 {
	return price.Mul(hundred).InexactFloat64()
}

// FromPercent converts a 0-100 percentage to an exchange decimal price.
func FromPercent(pct float64) decimal.Decimal {
	return decimal.NewFromFloat(pct).Div(hundred)
}

// ValidQuote reports whether a quoted price is a tradeable decimal in (0,1).
// The exchange returns 0 for unpriced books and 1 for settled outcomes;
// neither is usable as an execution price.
func ValidQuote(price decimal.Decimal) bool {
	return price.IsPositive() && price.LessThan(one)
}
