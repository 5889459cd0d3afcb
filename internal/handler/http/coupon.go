package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/furnhaven/cart-service/internal/repository"
	"github.com/furnhaven/cart-service/internal/service"
	"github.com/furnhaven/cart-service/pkg/httputil"
	"github.com/furnhaven/cart-service/pkg/pagination"
)

// CouponHandler handles HTTP requests for coupon endpoints.
type CouponHandler struct {
	service *service.CouponService
	logger  *slog.Logger
}

// NewCouponHandler creates a new coupon HTTP handler.
func NewCouponHandler(svc *service.CouponService, logger *slog.Logger) *CouponHandler {
	return &CouponHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateCouponRequest is the JSON request body for creating a coupon.
type CreateCouponRequest struct {
	Code                 string    `json:"code" validate:"required"`
	Description          string    `json:"description"`
	Type                 string    `json:"type" validate:"required,oneof=percentage fixed"`
	Value                float64   `json:"value" validate:"required,gt=0"`
	MinPurchase          float64   `json:"min_purchase" validate:"gte=0"`
	MaxDiscount          float64   `json:"max_discount" validate:"gte=0"`
	UsageLimit           int       `json:"usage_limit" validate:"gte=0"`
	UserLimit            int       `json:"user_limit" validate:"gte=0"`
	ApplicableCategories []string  `json:"applicable_categories"`
	ApplicableProducts   []string  `json:"applicable_products"`
	StartDate            time.Time `json:"start_date" validate:"required"`
	EndDate              time.Time `json:"end_date" validate:"required"`
	IsActive             *bool     `json:"is_active"`
}

// ValidateCouponRequest is the JSON request body for a stateless coupon check.
type ValidateCouponRequest struct {
	Code        string   `json:"code" validate:"required"`
	CartTotal   float64  `json:"cart_total" validate:"gte=0"`
	CategoryIDs []string `json:"category_ids"`
	ProductIDs  []string `json:"product_ids"`
}

// --- Handlers ---

// Create handles POST /api/v1/coupons
func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCouponRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}

	coupon, err := h.service.Create(r.Context(), service.CreateCouponInput{
		Code:                 req.Code,
		Description:          req.Description,
		Type:                 req.Type,
		Value:                req.Value,
		MinPurchase:          req.MinPurchase,
		MaxDiscount:          req.MaxDiscount,
		UsageLimit:           req.UsageLimit,
		UserLimit:            req.UserLimit,
		ApplicableCategories: req.ApplicableCategories,
		ApplicableProducts:   req.ApplicableProducts,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		IsActive:             req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: coupon})
}

// List handles GET /api/v1/coupons[?active=true][&code=...][&page=N&per_page=N].
// Non-admin callers only ever see active coupons; the active query parameter
// lets admins narrow their view.
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	if code := r.URL.Query().Get("code"); code != "" {
		coupon, err := h.service.GetByCode(r.Context(), code)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: coupon})
		return
	}

	activeOnly := true
	if isAdmin(r) {
		activeOnly = r.URL.Query().Get("active") == "true"
	}

	params := pagination.FromRequest(r)
	coupons, total, err := h.service.List(r.Context(), repository.CouponFilter{
		ActiveOnly: activeOnly,
		Page:       params.Page,
		PerPage:    params.PerPage,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(coupons, total, params))
}

// Get handles GET /api/v1/coupons/{code}
func (h *CouponHandler) Get(w http.ResponseWriter, r *http.Request) {
	coupon, err := h.service.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: coupon})
}

// Validate handles POST /api/v1/coupons/validate. The outcome is always a
// 200 with {valid, error?, discount?}; only infrastructure failures produce
// an error status.
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateCouponRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}

	result, err := h.service.Validate(r.Context(), service.ValidateCouponInput{
		Code:        req.Code,
		UserID:      r.Header.Get("X-User-ID"),
		CartTotal:   req.CartTotal,
		CategoryIDs: req.CategoryIDs,
		ProductIDs:  req.ProductIDs,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Redeem handles POST /api/v1/coupons/{code}/redeem
func (h *CouponHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	userID := r.Header.Get("X-User-ID")

	if err := h.service.Redeem(r.Context(), code, userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "redeemed"}})
}

// Delete handles DELETE /api/v1/coupons/{code}
func (h *CouponHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "deleted"}})
}
