package repository

import (
	"context"

	"github.com/furnhaven/cart-service/internal/domain"
)

// CartRepository persists carts keyed by their owner. Guest carts carry an
// expiry; enforcing it (TTL, reaper, etc.) is the implementation's job.
type CartRepository interface {
	// Get retrieves the owner's cart.
	Get(ctx context.Context, owner domain.Owner) (*domain.Cart, error)

	// Save upserts the cart under its owner's key.
	Save(ctx context.Context, cart *domain.Cart) error

	// Delete removes the owner's cart.
	Delete(ctx context.Context, owner domain.Owner) error
}

// CouponFilter narrows List results.
type CouponFilter struct {
	// ActiveOnly restricts the listing to coupons with the active flag set.
	ActiveOnly bool
	// Page is the 1-based page number; values below 1 mean the first page.
	Page int
	// PerPage is the page size; values below 1 fall back to a default.
	PerPage int
}

// CouponRepository persists coupons and owns the atomic redeem step: the
// usage counters must only advance while their caps still hold, in a single
// statement, so concurrent redemptions cannot overshoot.
type CouponRepository interface {
	// Create inserts a new coupon; the code must be unique.
	Create(ctx context.Context, coupon *domain.Coupon) error

	// GetByCode retrieves a coupon by its normalized code.
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// List returns coupons matching the filter, newest first, along with
	// the total count before pagination.
	List(ctx context.Context, filter CouponFilter) ([]domain.Coupon, int, error)

	// Update overwrites the coupon's mutable fields.
	Update(ctx context.Context, coupon *domain.Coupon) error

	// Redeem atomically increments the global and the user's usage count,
	// guarded by UsageLimit and UserLimit. Returns ErrConflict (wrapped)
	// when either cap is already exhausted.
	Redeem(ctx context.Context, code, userID string) error

	// Delete removes a coupon by code.
	Delete(ctx context.Context, code string) error
}
