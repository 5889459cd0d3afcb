package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/furnhaven/cart-service/internal/domain"
	"github.com/furnhaven/cart-service/internal/event"
	"github.com/furnhaven/cart-service/internal/repository"
	apperrors "github.com/furnhaven/cart-service/pkg/errors"
)

// CouponPublisher publishes coupon domain events.
type CouponPublisher interface {
	PublishCouponRedeemed(ctx context.Context, code, userID string) error
}

var _ CouponPublisher = (*event.Producer)(nil)

// CreateCouponInput holds the parameters for creating a coupon.
type CreateCouponInput struct {
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

// ValidateCouponInput holds the context a coupon is checked against.
type ValidateCouponInput struct {
	Code        string   `json:"code" validate:"required"`
	UserID      string   `json:"user_id"`
	CartTotal   float64  `json:"cart_total" validate:"gte=0"`
	CategoryIDs []string `json:"category_ids"`
	ProductIDs  []string `json:"product_ids"`
}

// ValidateCouponResult is the outcome of a validation request. When the
// coupon is eligible, Discount is what it would take off CartTotal.
type ValidateCouponResult struct {
	Valid    bool    `json:"valid"`
	Error    string  `json:"error,omitempty"`
	Discount float64 `json:"discount,omitempty"`
}

// CouponService implements the business logic for coupon management,
// validation and redemption.
type CouponService struct {
	repo     repository.CouponRepository
	producer CouponPublisher
	logger   *slog.Logger
}

// NewCouponService creates a new coupon service.
func NewCouponService(repo repository.CouponRepository, producer CouponPublisher, logger *slog.Logger) *CouponService {
	return &CouponService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// Create registers a new coupon. Codes are normalized to upper case and
// must be unique.
func (s *CouponService) Create(ctx context.Context, input CreateCouponInput) (*domain.Coupon, error) {
	code := domain.NormalizeCouponCode(input.Code)
	if code == "" {
		return nil, apperrors.InvalidInput("coupon code is required")
	}
	if !domain.IsValidCouponType(input.Type) {
		return nil, apperrors.InvalidInput("coupon type must be percentage or fixed")
	}
	if input.Value <= 0 {
		return nil, apperrors.InvalidInput("coupon value must be greater than 0")
	}
	if input.Type == domain.CouponTypePercentage && input.Value > 100 {
		return nil, apperrors.InvalidInput("percentage value must not exceed 100")
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, apperrors.InvalidInput("end date must be after start date")
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	now := time.Now().UTC()
	coupon := &domain.Coupon{
		ID:                   uuid.New().String(),
		Code:                 code,
		Description:          input.Description,
		Type:                 input.Type,
		Value:                input.Value,
		MinPurchase:          input.MinPurchase,
		MaxDiscount:          input.MaxDiscount,
		UsageLimit:           input.UsageLimit,
		UserLimit:            input.UserLimit,
		UserUsage:            map[string]int{},
		ApplicableCategories: input.ApplicableCategories,
		ApplicableProducts:   input.ApplicableProducts,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		IsActive:             active,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	s.logger.InfoContext(ctx, "coupon created",
		slog.String("code", coupon.Code),
		slog.String("type", coupon.Type),
	)

	return coupon, nil
}

// GetByCode retrieves a coupon by code.
func (s *CouponService) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	code = domain.NormalizeCouponCode(code)
	if code == "" {
		return nil, apperrors.InvalidInput("coupon code is required")
	}

	coupon, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return coupon, nil
}

// List returns a page of coupons with the total count, optionally restricted
// to active ones.
func (s *CouponService) List(ctx context.Context, filter repository.CouponFilter) ([]domain.Coupon, int, error) {
	coupons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, total, nil
}

// Validate checks a coupon's eligibility for the given context without
// touching any counters. An unknown code is reported as an invalid result,
// not an error; only infrastructure failures surface as errors.
func (s *CouponService) Validate(ctx context.Context, input ValidateCouponInput) (ValidateCouponResult, error) {
	code := domain.NormalizeCouponCode(input.Code)
	if code == "" {
		return ValidateCouponResult{}, apperrors.InvalidInput("coupon code is required")
	}

	coupon, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ValidateCouponResult{Valid: false, Error: "invalid coupon code"}, nil
		}
		return ValidateCouponResult{}, fmt.Errorf("get coupon: %w", err)
	}

	v := coupon.Validate(input.UserID, input.CartTotal, input.CategoryIDs, input.ProductIDs)
	if !v.Valid {
		return ValidateCouponResult{Valid: false, Error: v.Error}, nil
	}

	return ValidateCouponResult{
		Valid:    true,
		Discount: coupon.DiscountFor(input.CartTotal),
	}, nil
}

// Redeem consumes one use of the coupon for the given user. Eligibility is
// re-checked first, then the counters advance atomically in the store so
// concurrent redemptions cannot exceed either cap.
func (s *CouponService) Redeem(ctx context.Context, code, userID string) error {
	code = domain.NormalizeCouponCode(code)
	if code == "" {
		return apperrors.InvalidInput("coupon code is required")
	}
	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}

	coupon, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("get coupon: %w", err)
	}

	if v := coupon.Validate(userID, 0, nil, nil); !v.Valid {
		return apperrors.InvalidInput(v.Error)
	}

	if err := s.repo.Redeem(ctx, code, userID); err != nil {
		return fmt.Errorf("redeem coupon: %w", err)
	}

	if err := s.producer.PublishCouponRedeemed(ctx, code, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish coupon.redeemed event",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "coupon redeemed",
		slog.String("code", code),
		slog.String("user_id", userID),
	)

	return nil
}

// Delete removes a coupon by code.
func (s *CouponService) Delete(ctx context.Context, code string) error {
	code = domain.NormalizeCouponCode(code)
	if code == "" {
		return apperrors.InvalidInput("coupon code is required")
	}

	if err := s.repo.Delete(ctx, code); err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}

	s.logger.InfoContext(ctx, "coupon deleted",
		slog.String("code", code),
	)

	return nil
}
