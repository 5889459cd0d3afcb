package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// NewCart
// ============================================================================

func TestNewCart_UserCart(t *testing.T) {
	c := NewCart("cart-1", "user-1", "")

	assert.Equal(t, "user-1", c.UserID)
	assert.Empty(t, c.SessionID)
	assert.Empty(t, c.Items)
	assert.Zero(t, c.Subtotal)
	assert.Zero(t, c.Total)
	assert.Empty(t, c.CouponCode)
	assert.NotZero(t, c.CreatedAt)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
	assert.Nil(t, c.ExpiresAt, "user carts must not expire")
}

func TestNewCart_GuestCartExpiry(t *testing.T) {
	c := NewCart("cart-2", "", "sess-1")

	require.NotNil(t, c.ExpiresAt)
	assert.Equal(t, c.CreatedAt.Add(GuestCartTTL), *c.ExpiresAt)
	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), *c.ExpiresAt, time.Minute)
}

// ============================================================================
// AddItem
// ============================================================================

func TestAddItem_AppendsNewLine(t *testing.T) {
	c := NewCart("c", "u", "")
	c.AddItem(CartItem{ProductID: "p1", Name: "Oak Table", Price: 30000, Quantity: 1})
	c.AddItem(CartItem{ProductID: "p2", Name: "Walnut Chair", Price: 8000, Quantity: 2})

	require.Len(t, c.Items, 2)
	assert.Equal(t, "p1", c.Items[0].ProductID, "insertion order preserved")
	assert.Equal(t, "p2", c.Items[1].ProductID)
}

func TestAddItem_MergesSameProductAndVariant(t *testing.T) {
	c := NewCart("c", "u", "")
	c.AddItem(CartItem{ProductID: "p1", Price: 100, Quantity: 2})
	c.AddItem(CartItem{ProductID: "p1", Price: 100, Quantity: 2})

	require.Len(t, c.Items, 1)
	assert.Equal(t, 4, c.Items[0].Quantity)
}

func TestAddItem_DifferentVariantsAreSeparateLines(t *testing.T) {
	c := NewCart("c", "u", "")
	oak := &Variant{Material: "oak"}
	teak := &Variant{Material: "teak"}
	c.AddItem(CartItem{ProductID: "p1", Quantity: 1, Variant: oak})
	c.AddItem(CartItem{ProductID: "p1", Quantity: 1, Variant: teak})
	c.AddItem(CartItem{ProductID: "p1", Quantity: 1})

	assert.Len(t, c.Items, 3)
}

func TestAddItem_NilAndEqualVariantsMerge(t *testing.T) {
	c := NewCart("c", "u", "")
	c.AddItem(CartItem{ProductID: "p1", Quantity: 1, Variant: &Variant{Color: "grey", Size: "L"}})
	c.AddItem(CartItem{ProductID: "p1", Quantity: 3, Variant: &Variant{Color: "grey", Size: "L"}})

	require.Len(t, c.Items, 1)
	assert.Equal(t, 4, c.Items[0].Quantity)
}

func TestAddItem_MergeClampedToMaxQuantity(t *testing.T) {
	c := NewCart("c", "u", "")
	c.AddItem(CartItem{ProductID: "p1", Quantity: 3, MaxQuantity: 5})
	c.AddItem(CartItem{ProductID: "p1", Quantity: 4, MaxQuantity: 5})

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
}

func TestAddItem_NoClampWhenInventoryUntracked(t *testing.T) {
	c := NewCart("c", "u", "")
	c.AddItem(CartItem{ProductID: "p1", Quantity: 50})
	c.AddItem(CartItem{ProductID: "p1", Quantity: 50})

	assert.Equal(t, 100, c.Items[0].Quantity)
}

func TestAddItem_BumpsUpdatedAt(t *testing.T) {
	c := NewCart("c", "u", "")
	before := c.UpdatedAt
	time.Sleep(time.Millisecond)
	c.AddItem(CartItem{ProductID: "p1", Quantity: 1})

	assert.True(t, c.UpdatedAt.After(before))
}

// ============================================================================
// RemoveItem
// ============================================================================

func TestRemoveItem_ExactVariantMatch(t *testing.T) {
	c := NewCart("c", "u", "")
	c.AddItem(CartItem{ProductID: "p1", Quantity: 1, Variant: &Variant{Color: "blue"}})
	c.AddItem(CartItem{ProductID: "p1", Quantity: 1, Variant: &Variant{Color: "red"}})

	c.RemoveItem("p1", &Variant{Color: "blue"})

	require.Len(t, c.Items, 1)
	assert.Equal(t, "red", c.Items[0].Variant.Color)
}

func TestRemoveItem_MissingLineIsNoop(t *testing.T) {
	c := NewCart("c", "u", "")
	c.AddItem(CartItem{ProductID: "p1", Quantity: 1})

	c.RemoveItem("p-missing", nil)

	assert.Len(t, c.Items, 1)
}

// ============================================================================
// UpdateQuantity
// ============================================================================

func TestUpdateQuantity_SetsAndClamps(t *testing.T) {
	c := NewCart("c", "u", "")
	c.AddItem(CartItem{ProductID: "p1", Quantity: 1, MaxQuantity: 4})

	found := c.UpdateQuantity("p1", 10, nil)

	assert.True(t, found)
	assert.Equal(t, 4, c.Items[0].Quantity)
}

func TestUpdateQuantity_MissingLineLeavesCartUntouched(t *testing.T) {
	c := NewCart("c", "u", "")
	c.AddItem(CartItem{ProductID: "p1", Quantity: 2})
	before := c.UpdatedAt

	found := c.UpdateQuantity("p-missing", 7, nil)

	assert.False(t, found)
	assert.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, before, c.UpdatedAt, "no-op must not bump UpdatedAt")
}

func TestUpdateQuantity_ZeroIsStoredNotRemoved(t *testing.T) {
	// Remove-on-zero is the service layer's policy, not the cart's.
	c := NewCart("c", "u", "")
	c.AddItem(CartItem{ProductID: "p1", Quantity: 2})

	found := c.UpdateQuantity("p1", 0, nil)

	assert.True(t, found)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 0, c.Items[0].Quantity)
}

// ============================================================================
// Clear
// ============================================================================

func TestClear_ZeroesEverything(t *testing.T) {
	c := NewCart("c", "u", "")
	c.AddItem(CartItem{ProductID: "p1", Price: 1000, Quantity: 2})
	c.SetTotals(CalculateTotals(c.Items, nil, DefaultTaxRate))
	c.CouponCode = "WELCOME10"

	c.Clear()

	assert.Empty(t, c.Items)
	assert.Zero(t, c.Subtotal)
	assert.Zero(t, c.Discount)
	assert.Zero(t, c.Tax)
	assert.Zero(t, c.Shipping)
	assert.Zero(t, c.Total)
	assert.Empty(t, c.CouponCode)
}

func TestClear_Idempotent(t *testing.T) {
	c := NewCart("c", "u", "")
	c.AddItem(CartItem{ProductID: "p1", Price: 1000, Quantity: 2})

	c.Clear()
	first := *c
	c.Clear()

	assert.Equal(t, first.Items, c.Items)
	assert.Equal(t, first.Subtotal, c.Subtotal)
	assert.Equal(t, first.Total, c.Total)
	assert.Equal(t, first.CouponCode, c.CouponCode)
}

// ============================================================================
// Accessors
// ============================================================================

func TestItemCount(t *testing.T) {
	c := NewCart("c", "u", "")
	c.AddItem(CartItem{ProductID: "p1", Quantity: 2})
	c.AddItem(CartItem{ProductID: "p2", Quantity: 3})

	assert.Equal(t, 5, c.ItemCount())
}

func TestCategoryIDs_Deduplicates(t *testing.T) {
	c := NewCart("c", "u", "")
	c.AddItem(CartItem{ProductID: "p1", Quantity: 1, CategoryID: "tables"})
	c.AddItem(CartItem{ProductID: "p2", Quantity: 1, CategoryID: "tables"})
	c.AddItem(CartItem{ProductID: "p3", Quantity: 1, CategoryID: "chairs"})
	c.AddItem(CartItem{ProductID: "p4", Quantity: 1})

	assert.Equal(t, []string{"tables", "chairs"}, c.CategoryIDs())
}
