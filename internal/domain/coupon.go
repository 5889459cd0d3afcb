package domain

import (
	"fmt"
	"strings"
	"time"
)

// Coupon type constants. Type discriminates how Value is interpreted:
// a percentage of the subtotal, or a fixed amount off.
const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"
)

// IsValidCouponType checks whether t is a known coupon type.
func IsValidCouponType(t string) bool {
	return t == CouponTypePercentage || t == CouponTypeFixed
}

// Coupon is a named discount rule with eligibility constraints. Validation
// is independent of application: Validate never mutates counters; redeeming
// (incrementing UsageCount and the per-user map) is the store's atomic job.
type Coupon struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Value       float64 `json:"value"`

	// MinPurchase and MaxDiscount are optional; zero means unset.
	MinPurchase float64 `json:"min_purchase,omitempty"`
	MaxDiscount float64 `json:"max_discount,omitempty"`

	// UsageLimit caps redemptions globally, UserLimit per user; zero means
	// unlimited. UserUsage maps user id to that user's redemption count.
	UsageLimit int            `json:"usage_limit,omitempty"`
	UsageCount int            `json:"usage_count"`
	UserLimit  int            `json:"user_limit,omitempty"`
	UserUsage  map[string]int `json:"user_usage,omitempty"`

	// Empty allow-lists mean the coupon applies to everything.
	ApplicableCategories []string `json:"applicable_categories,omitempty"`
	ApplicableProducts   []string `json:"applicable_products,omitempty"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeCouponCode canonicalizes a coupon code for storage and lookup.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validation is the outcome of a coupon eligibility check. Ineligibility is
// a value, not an error; callers branch on Valid.
type Validation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func invalid(reason string) Validation {
	return Validation{Valid: false, Error: reason}
}

// Validate runs the ordered eligibility checks against the given context.
// The first failing check short-circuits, so error messages are
// deterministic. userID, cartTotal and the id lists are all optional;
// checks that need an absent input are skipped.
func (c *Coupon) Validate(userID string, cartTotal float64, categoryIDs, productIDs []string) Validation {
	if !c.IsActive {
		return invalid("coupon is inactive")
	}

	now := time.Now().UTC()
	if now.Before(c.StartDate) {
		return invalid("coupon is not yet active")
	}
	if now.After(c.EndDate) {
		return invalid("coupon has expired")
	}

	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return invalid("coupon usage limit reached")
	}

	if userID != "" && c.UserLimit > 0 && c.UserUsage[userID] >= c.UserLimit {
		return invalid("you have already used this coupon the maximum number of times")
	}

	if c.MinPurchase > 0 && cartTotal > 0 && cartTotal < c.MinPurchase {
		return invalid(fmt.Sprintf("minimum purchase of %.2f required", c.MinPurchase))
	}

	if len(c.ApplicableCategories) > 0 && len(categoryIDs) > 0 && !intersects(c.ApplicableCategories, categoryIDs) {
		return invalid("coupon not applicable to items in cart")
	}
	if len(c.ApplicableProducts) > 0 && len(productIDs) > 0 && !intersects(c.ApplicableProducts, productIDs) {
		return invalid("coupon not applicable to items in cart")
	}

	return Validation{Valid: true}
}

// DiscountFor returns the discount this coupon yields on the given subtotal,
// using the same clamping rules as CalculateTotals.
func (c *Coupon) DiscountFor(subtotal float64) float64 {
	if c.Type == CouponTypePercentage {
		d := subtotal * c.Value / 100
		if c.MaxDiscount > 0 && d > c.MaxDiscount {
			d = c.MaxDiscount
		}
		return round2(d)
	}
	return round2(c.Value)
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
