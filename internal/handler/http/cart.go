package http

import (
	"log/slog"
	"net/http"

	"github.com/furnhaven/cart-service/internal/domain"
	"github.com/furnhaven/cart-service/internal/service"
	"github.com/furnhaven/cart-service/pkg/httputil"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding an item to the cart.
// Product details are looked up server-side; clients only name the product.
type AddItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gte=1"`
	Variant   *domain.Variant `json:"variant,omitempty"`
}

// UpdateQuantityRequest is the JSON request body for updating a line's quantity.
type UpdateQuantityRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gte=0"`
	Variant   *domain.Variant `json:"variant,omitempty"`
}

// RemoveItemRequest identifies the line to remove.
type RemoveItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Variant   *domain.Variant `json:"variant,omitempty"`
}

// ApplyCouponRequest is the JSON request body for applying a coupon.
type ApplyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errMissingOwner(), h.logger)
		return
	}

	cart, err := h.service.GetCart(r.Context(), owner)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errMissingOwner(), h.logger)
		return
	}

	var req AddItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}

	cart, err := h.service.AddItem(r.Context(), owner, service.AddItemInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Variant:   req.Variant,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// UpdateItemQuantity handles PUT /api/v1/cart/items
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errMissingOwner(), h.logger)
		return
	}

	var req UpdateQuantityRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}

	cart, err := h.service.UpdateItemQuantity(r.Context(), owner, service.UpdateQuantityInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Variant:   req.Variant,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// RemoveItem handles DELETE /api/v1/cart/items
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errMissingOwner(), h.logger)
		return
	}

	var req RemoveItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), owner, service.RemoveItemInput{
		ProductID: req.ProductID,
		Variant:   req.Variant,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errMissingOwner(), h.logger)
		return
	}

	cart, err := h.service.ClearCart(r.Context(), owner)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// ApplyCoupon handles POST /api/v1/cart/coupon
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errMissingOwner(), h.logger)
		return
	}

	var req ApplyCouponRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}

	cart, err := h.service.ApplyCoupon(r.Context(), owner, req.Code)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// RemoveCoupon handles DELETE /api/v1/cart/coupon
func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, errMissingOwner(), h.logger)
		return
	}

	cart, err := h.service.RemoveCoupon(r.Context(), owner)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}
