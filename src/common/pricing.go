package common

import "math"

// Quote is the pricing breakdown of a booking. TotalAmount always equals
// BaseAmount - DiscountAmount + TaxAmount at cent precision.
type Quote struct {
	BaseAmount     float64 `json:"base_amount"`
	DiscountAmount float64 `json:"discount_amount"`
	TaxAmount      float64 `json:"tax_amount"`
	TotalAmount    float64 `json:"total_amount"`
}

func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeQuote derives the booking total from the base fare, an already
// decided coupon discount and the catalog tax rate. Tax applies to the
// discounted amount.
func ComputeQuote(base, discount, taxRate float64) Quote {
	base = RoundCents(math.Max(base, 0))
	discount = RoundCents(math.Max(discount, 0))
	if discount > base {
		discount = base
	}
	tax := RoundCents((base - discount) * taxRate)
	return Quote{
		BaseAmount:     base,
		DiscountAmount: discount,
		TaxAmount:      tax,
		TotalAmount:    RoundCents(base - discount + tax),
	}
}
