package helpers

import "github.com/shopspring/decimal"

var centsPerUnit = decimal.NewFromInt(100)

// ToCents converts a decimal currency amount to integer cents, rounding
// half away from zero.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(centsPerUnit).Round(0).IntPart()
}

// LoyaltyPoints returns the points earned for a subtotal, one point per
// whole currency unit spent before tax and service charge.
func LoyaltyPoints(subtotalCents int64) int64 {
	if subtotalCents <= 0 {
		return 0
	}
	return subtotalCents / 100
}
