package util

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DiscountPercent derives the displayed discount from the two prices,
// rounded half-up to a whole percent. ok is false when there is no discount.
func DiscountPercent(originalPrice, price float64) (percent int, ok bool) {
	original := decimal.NewFromFloat(originalPrice)
	current := decimal.NewFromFloat(price)
	if !original.IsPositive() || !original.GreaterThan(current) {
		return 0, false
	}

	pct := original.Sub(current).Div(original).Mul(hundred).Round(0)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return int(pct.IntPart()), true
}
