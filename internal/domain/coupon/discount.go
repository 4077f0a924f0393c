package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Apply computes the discount c grants on total. The result is never negative,
// never exceeds total and is rounded to two decimal places.
func Apply(c *Coupon, total decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		amount = total.Mul(c.DiscountValue).Div(hundred)
		if c.MaxDiscount.Valid && c.MaxDiscount.Decimal.IsPositive() {
			amount = decimal.Min(amount, c.MaxDiscount.Decimal)
		}
	case DiscountFlat:
		amount = c.DiscountValue
	default:
		return decimal.Zero
	}

	amount = decimal.Min(floorAtZero(amount), floorAtZero(total))
	return amount.Round(2)
}

// FinalTotal subtracts discount from total, floored at zero.
func FinalTotal(total, discount decimal.Decimal) decimal.Decimal {
	return floorAtZero(total.Sub(discount)).Round(2)
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
