package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/furnhaven/cart-service/internal/catalog"
	"github.com/furnhaven/cart-service/internal/domain"
	"github.com/furnhaven/cart-service/internal/event"
	"github.com/furnhaven/cart-service/internal/repository"
	apperrors "github.com/furnhaven/cart-service/pkg/errors"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerItem is the maximum quantity allowed for a single cart line.
	MaxQuantityPerItem = 100
	// MaxItemsPerCart is the maximum number of distinct lines allowed in a cart.
	MaxItemsPerCart = 50
)

// ProductGetter fetches product details from the catalog service.
// *catalog.Client satisfies this.
type ProductGetter interface {
	GetProduct(ctx context.Context, productID string) (*catalog.Product, error)
}

// EventPublisher publishes cart domain events.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, cart *domain.Cart) error
	PublishCartCleared(ctx context.Context, owner domain.Owner) error
}

var (
	_ ProductGetter  = (*catalog.Client)(nil)
	_ EventPublisher = (*event.Producer)(nil)
)

// AddItemInput holds the parameters for adding an item to the cart.
type AddItemInput struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gte=1"`
	Variant   *domain.Variant `json:"variant,omitempty"`
}

// UpdateQuantityInput holds the parameters for updating a line quantity.
type UpdateQuantityInput struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gte=0"`
	Variant   *domain.Variant `json:"variant,omitempty"`
}

// RemoveItemInput identifies the line to remove.
type RemoveItemInput struct {
	ProductID string          `json:"product_id" validate:"required"`
	Variant   *domain.Variant `json:"variant,omitempty"`
}

// CartService implements the business logic for cart operations.
type CartService struct {
	repo       repository.CartRepository
	couponRepo repository.CouponRepository
	catalog    ProductGetter
	producer   EventPublisher
	logger     *slog.Logger
	taxRate    float64
}

// NewCartService creates a new cart service. taxRate is the fraction applied
// to the discounted subtotal (e.g. 0.18).
func NewCartService(
	repo repository.CartRepository,
	couponRepo repository.CouponRepository,
	catalogClient ProductGetter,
	producer EventPublisher,
	logger *slog.Logger,
	taxRate float64,
) *CartService {
	if taxRate <= 0 {
		taxRate = domain.DefaultTaxRate
	}
	return &CartService{
		repo:       repo,
		couponRepo: couponRepo,
		catalog:    catalogClient,
		producer:   producer,
		logger:     logger,
		taxRate:    taxRate,
	}
}

// GetCart retrieves the owner's cart. If no cart exists, an empty cart is
// returned without being persisted; it is only stored on first mutation.
func (s *CartService) GetCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	cart, err := s.repo.Get(ctx, owner)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(owner), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return cart, nil
}

// AddItem adds a product to the owner's cart, snapshotting its details from
// the catalog. An existing line with the same product and variant is merged
// by increasing its quantity, clamped to the product's available stock.
func (s *CartService) AddItem(ctx context.Context, owner domain.Owner, input AddItemInput) (*domain.Cart, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.Quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if input.Quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	product, err := s.catalog.GetProduct(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("fetch product: %w", err)
	}
	if !product.IsActive {
		return nil, apperrors.InvalidInput("product is not available")
	}
	if product.TrackInventory && input.Quantity > product.Stock {
		return nil, apperrors.InvalidInput("insufficient stock")
	}

	cart, err := s.getOrCreateCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	if len(cart.Items) >= MaxItemsPerCart {
		// Only reject when this would create a new line.
		merging := false
		for i := range cart.Items {
			if cart.Items[i].SameLine(input.ProductID, input.Variant) {
				merging = true
				break
			}
		}
		if !merging {
			return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
		}
	}

	item := domain.CartItem{
		ProductID:  product.ID,
		Name:       product.Name,
		Slug:       product.Slug,
		Price:      product.Price,
		Quantity:   input.Quantity,
		Variant:    input.Variant,
		Image:      product.Image,
		CategoryID: product.CategoryID,
	}
	if product.TrackInventory {
		item.MaxQuantity = product.Stock
	}
	cart.AddItem(item)

	if err := s.recalculateAndSave(ctx, cart); err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("owner", owner.Key()),
		slog.String("product_id", input.ProductID),
		slog.Int("quantity", input.Quantity),
	)

	return cart, nil
}

// UpdateItemQuantity sets the quantity of a cart line. A quantity of zero
// removes the line. Targeting a line that is not in the cart leaves the cart
// untouched and is not an error.
func (s *CartService) UpdateItemQuantity(ctx context.Context, owner domain.Owner, input UpdateQuantityInput) (*domain.Cart, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.Quantity < 0 {
		return nil, apperrors.InvalidInput("quantity must not be negative")
	}
	if input.Quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	cart, err := s.repo.Get(ctx, owner)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(owner), nil
		}
		return nil, fmt.Errorf("get cart for update: %w", err)
	}

	if input.Quantity == 0 {
		cart.RemoveItem(input.ProductID, input.Variant)
	} else if !cart.UpdateQuantity(input.ProductID, input.Quantity, input.Variant) {
		// Missing line: return the cart as-is without touching the store.
		return cart, nil
	}

	if err := s.recalculateAndSave(ctx, cart); err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "cart line quantity updated",
		slog.String("owner", owner.Key()),
		slog.String("product_id", input.ProductID),
		slog.Int("quantity", input.Quantity),
	)

	return cart, nil
}

// RemoveItem removes a line from the cart. Removing a line that is not
// present is a no-op.
func (s *CartService) RemoveItem(ctx context.Context, owner domain.Owner, input RemoveItemInput) (*domain.Cart, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	cart, err := s.repo.Get(ctx, owner)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(owner), nil
		}
		return nil, fmt.Errorf("get cart for remove: %w", err)
	}

	cart.RemoveItem(input.ProductID, input.Variant)

	if err := s.recalculateAndSave(ctx, cart); err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("owner", owner.Key()),
		slog.String("product_id", input.ProductID),
	)

	return cart, nil
}

// ClearCart empties the owner's cart, dropping items, totals and any
// applied coupon. Clearing a cart that does not exist is a no-op.
func (s *CartService) ClearCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	cart, err := s.repo.Get(ctx, owner)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(owner), nil
		}
		return nil, fmt.Errorf("get cart for clear: %w", err)
	}

	cart.Clear()
	cart.SetTotals(domain.CalculateTotals(cart.Items, nil, s.taxRate))

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	if err := s.producer.PublishCartCleared(ctx, owner); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("owner", owner.Key()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("owner", owner.Key()),
	)

	return cart, nil
}

// ApplyCoupon validates the coupon against the owner's cart and, when
// eligible, stores its code on the cart and reprices it. An ineligible
// coupon is rejected with the validator's reason.
func (s *CartService) ApplyCoupon(ctx context.Context, owner domain.Owner, code string) (*domain.Cart, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	code = domain.NormalizeCouponCode(code)
	if code == "" {
		return nil, apperrors.InvalidInput("coupon code is required")
	}

	cart, err := s.repo.Get(ctx, owner)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput("cart is empty")
		}
		return nil, fmt.Errorf("get cart for coupon: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput("invalid coupon code")
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}

	subtotal := domain.CalculateTotals(cart.Items, nil, s.taxRate).Subtotal
	if v := coupon.Validate(owner.UserID, subtotal, cart.CategoryIDs(), cart.ProductIDs()); !v.Valid {
		return nil, apperrors.InvalidInput(v.Error)
	}

	cart.CouponCode = coupon.Code
	cart.SetTotals(domain.CalculateTotals(cart.Items, coupon, s.taxRate))

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	s.publishUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "coupon applied to cart",
		slog.String("owner", owner.Key()),
		slog.String("code", coupon.Code),
	)

	return cart, nil
}

// RemoveCoupon drops the applied coupon and reprices the cart. Removing a
// coupon from a cart without one is a no-op.
func (s *CartService) RemoveCoupon(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	cart, err := s.repo.Get(ctx, owner)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(owner), nil
		}
		return nil, fmt.Errorf("get cart for coupon removal: %w", err)
	}

	if cart.CouponCode == "" {
		return cart, nil
	}

	cart.CouponCode = ""
	cart.SetTotals(domain.CalculateTotals(cart.Items, nil, s.taxRate))

	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	s.publishUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "coupon removed from cart",
		slog.String("owner", owner.Key()),
	)

	return cart, nil
}

// recalculateAndSave reprices the cart and persists it. A stored coupon is
// re-validated against the new contents; if it is no longer eligible it is
// dropped rather than left applied with a stale discount.
func (s *CartService) recalculateAndSave(ctx context.Context, cart *domain.Cart) error {
	var coupon *domain.Coupon

	if cart.CouponCode != "" {
		c, err := s.couponRepo.GetByCode(ctx, cart.CouponCode)
		switch {
		case err == nil:
			subtotal := domain.CalculateTotals(cart.Items, nil, s.taxRate).Subtotal
			owner := cart.Owner()
			if v := c.Validate(owner.UserID, subtotal, cart.CategoryIDs(), cart.ProductIDs()); v.Valid {
				coupon = c
			} else {
				s.logger.InfoContext(ctx, "coupon dropped from cart",
					slog.String("code", cart.CouponCode),
					slog.String("reason", v.Error),
				)
				cart.CouponCode = ""
			}
		case errors.Is(err, apperrors.ErrNotFound):
			cart.CouponCode = ""
		default:
			return fmt.Errorf("revalidate coupon: %w", err)
		}
	}

	cart.SetTotals(domain.CalculateTotals(cart.Items, coupon, s.taxRate))

	if err := s.repo.Save(ctx, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *CartService) publishUpdated(ctx context.Context, cart *domain.Cart) {
	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("owner", cart.Owner().Key()),
			slog.String("error", err.Error()),
		)
	}
}

// getOrCreateCart retrieves the owner's cart, creating an empty one if it
// does not exist.
func (s *CartService) getOrCreateCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, owner)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(owner), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// newEmptyCart creates a new empty cart for the given owner, priced through
// the normal pipeline so it renders the same as a cleared cart.
func (s *CartService) newEmptyCart(owner domain.Owner) *domain.Cart {
	cart := domain.NewCart(uuid.New().String(), owner.UserID, owner.SessionID)
	cart.SetTotals(domain.CalculateTotals(cart.Items, nil, s.taxRate))
	return cart
}

// validateOwner rejects owners that identify neither a user nor a session,
// or both at once.
func validateOwner(owner domain.Owner) error {
	if owner.UserID == "" && owner.SessionID == "" {
		return apperrors.InvalidInput("user id or session id is required")
	}
	if owner.UserID != "" && owner.SessionID != "" {
		return apperrors.InvalidInput("user id and session id are mutually exclusive")
	}
	return nil
}
