package domain

import "time"

// GuestCartTTL is how long an anonymous (session-keyed) cart lives before
// the store is allowed to expire it.
const GuestCartTTL = 7 * 24 * time.Hour

// Variant identifies a product configuration. Together with the product ID
// it determines whether two cart entries are the same line.
type Variant struct {
	Color    string `json:"color,omitempty"`
	Size     string `json:"size,omitempty"`
	Material string `json:"material,omitempty"`
}

// CartItem is a single line in the cart. Name, slug, price and image are
// snapshots taken when the item was added; they are not live-repriced.
type CartItem struct {
	ProductID  string   `json:"product_id"`
	Name       string   `json:"name"`
	Slug       string   `json:"slug"`
	Price      float64  `json:"price"`
	Quantity   int      `json:"quantity"`
	Variant    *Variant `json:"variant,omitempty"`
	Image      string   `json:"image,omitempty"`
	CategoryID string   `json:"category_id,omitempty"`
	// MaxQuantity is the stock ceiling captured at add-time.
	// Zero means inventory is not tracked for this product.
	MaxQuantity int `json:"max_quantity,omitempty"`
}

// SameLine reports whether another (product, variant) pair identifies this
// line. Variants match when both are absent or deep-equal.
func (it *CartItem) SameLine(productID string, variant *Variant) bool {
	if it.ProductID != productID {
		return false
	}
	if it.Variant == nil && variant == nil {
		return true
	}
	return it.Variant != nil && variant != nil && *it.Variant == *variant
}

// Cart is the mutable collection of selected items plus computed pricing
// fields, owned by exactly one user or one guest session.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	Items     []CartItem `json:"items"`

	// Derived fields, recomputed on every mutation. Never hand-edited.
	Subtotal   float64 `json:"subtotal"`
	Discount   float64 `json:"discount"`
	Tax        float64 `json:"tax"`
	Shipping   float64 `json:"shipping"`
	Total      float64 `json:"total"`
	CouponCode string  `json:"coupon_code,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// ExpiresAt is set only for guest carts; user carts persist until cleared.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// NewCart creates an empty cart for the given owner. Exactly one of userID
// and sessionID must be non-empty; the caller is responsible for that.
// Guest carts expire GuestCartTTL after creation.
func NewCart(id, userID, sessionID string) *Cart {
	now := time.Now().UTC()
	c := &Cart{
		ID:        id,
		UserID:    userID,
		SessionID: sessionID,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if sessionID != "" {
		exp := now.Add(GuestCartTTL)
		c.ExpiresAt = &exp
	}
	return c
}

// findLine returns the index of the line matching (productID, variant), or -1.
func (c *Cart) findLine(productID string, variant *Variant) int {
	for i := range c.Items {
		if c.Items[i].SameLine(productID, variant) {
			return i
		}
	}
	return -1
}

// AddItem merges the incoming item into an existing line with the same
// product and variant, or appends it as a new line at the end. A merged
// quantity is clamped to the incoming item's MaxQuantity when set.
// Totals are NOT recomputed here; the caller owns that.
func (c *Cart) AddItem(item CartItem) {
	if i := c.findLine(item.ProductID, item.Variant); i >= 0 {
		c.Items[i].Quantity += item.Quantity
		if item.MaxQuantity > 0 && c.Items[i].Quantity > item.MaxQuantity {
			c.Items[i].Quantity = item.MaxQuantity
		}
	} else {
		c.Items = append(c.Items, item)
	}
	c.UpdatedAt = time.Now().UTC()
}

// RemoveItem drops the line matching (productID, variant). Removing a line
// that does not exist leaves the items untouched.
func (c *Cart) RemoveItem(productID string, variant *Variant) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if !it.SameLine(productID, variant) {
			kept = append(kept, it)
		}
	}
	c.Items = kept
	c.UpdatedAt = time.Now().UTC()
}

// UpdateQuantity sets the quantity of the matching line, clamped to its
// MaxQuantity when set, and reports whether a line was found. When no line
// matches this is a no-op: nothing is added and UpdatedAt is untouched.
// A quantity of zero is stored as-is; remove-on-zero is the caller's policy.
func (c *Cart) UpdateQuantity(productID string, quantity int, variant *Variant) bool {
	i := c.findLine(productID, variant)
	if i < 0 {
		return false
	}
	c.Items[i].Quantity = quantity
	if c.Items[i].MaxQuantity > 0 && c.Items[i].Quantity > c.Items[i].MaxQuantity {
		c.Items[i].Quantity = c.Items[i].MaxQuantity
	}
	c.UpdatedAt = time.Now().UTC()
	return true
}

// Clear empties the cart and zeroes every derived field, including the
// coupon code. Clearing an already-empty cart yields the same state.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.Subtotal = 0
	c.Discount = 0
	c.Tax = 0
	c.Shipping = 0
	c.Total = 0
	c.CouponCode = ""
	c.UpdatedAt = time.Now().UTC()
}

// SetTotals copies computed totals onto the cart's derived fields.
func (c *Cart) SetTotals(t Totals) {
	c.Subtotal = t.Subtotal
	c.Discount = t.Discount
	c.Tax = t.Tax
	c.Shipping = t.Shipping
	c.Total = t.Total
}

// ItemCount returns the total quantity across all lines.
func (c *Cart) ItemCount() int {
	var n int
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// ProductIDs returns the product id of every line, in insertion order.
func (c *Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

// CategoryIDs returns the distinct category ids present in the cart.
func (c *Cart) CategoryIDs() []string {
	seen := make(map[string]struct{}, len(c.Items))
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		if it.CategoryID == "" {
			continue
		}
		if _, ok := seen[it.CategoryID]; ok {
			continue
		}
		seen[it.CategoryID] = struct{}{}
		ids = append(ids, it.CategoryID)
	}
	return ids
}
