package shared

import "github.com/shopspring/decimal"

// Quantize rounds a monetary value to 4 fractional digits using banker's
// rounding. Every amount stored or compared goes through this.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(4)
}
