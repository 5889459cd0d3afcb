package domain

import "math"

// Pricing constants. Amounts are in major currency units; the shipping
// threshold and flat fee are part of the storefront's published contract.
const (
	DefaultTaxRate        = 0.18
	FreeShippingThreshold = 50000.0
	FlatShippingFee       = 500.0
)

// Totals holds the five derived monetary fields of a cart.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

// CalculateTotals converts a line-item list and an optional coupon into the
// cart's derived totals. Order of operations:
//
//	subtotal = Σ price × quantity
//	discount = percentage: subtotal × value/100, clamped to MaxDiscount when set
//	           fixed:      value (NOT clamped to subtotal; a fixed coupon
//	           larger than the subtotal drives the total negative)
//	shipping = 0 when subtotal ≥ FreeShippingThreshold, else FlatShippingFee
//	tax      = (subtotal − discount) × taxRate
//	total    = subtotal − discount + tax + shipping
//
// Monetary outputs are rounded to 2 decimal places, half away from zero.
// Pure function: no side effects, safe on an empty item list (which still
// pays the flat shipping fee, since its subtotal is below the threshold).
func CalculateTotals(items []CartItem, coupon *Coupon, taxRate float64) Totals {
	var subtotal float64
	for _, it := range items {
		subtotal += it.Price * float64(it.Quantity)
	}

	var discount float64
	if coupon != nil {
		switch coupon.Type {
		case CouponTypePercentage:
			discount = subtotal * coupon.Value / 100
			if coupon.MaxDiscount > 0 && discount > coupon.MaxDiscount {
				discount = coupon.MaxDiscount
			}
		default:
			discount = coupon.Value
		}
	}

	shipping := FlatShippingFee
	if subtotal >= FreeShippingThreshold {
		shipping = 0
	}

	taxable := subtotal - discount
	tax := taxable * taxRate

	return Totals{
		Subtotal: round2(subtotal),
		Discount: round2(discount),
		Tax:      round2(tax),
		Shipping: shipping,
		Total:    round2(subtotal - discount + tax + shipping),
	}
}

// round2 rounds to two decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
