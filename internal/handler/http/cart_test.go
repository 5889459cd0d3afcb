package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/furnhaven/cart-service/internal/catalog"
	"github.com/furnhaven/cart-service/internal/domain"
	"github.com/furnhaven/cart-service/internal/repository"
	"github.com/furnhaven/cart-service/internal/service"
	apperrors "github.com/furnhaven/cart-service/pkg/errors"
	"github.com/furnhaven/cart-service/pkg/health"
)

// ============================================================================
// Mocks
// ============================================================================

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, owner domain.Owner) error {
	args := m.Called(ctx, owner)
	return args.Error(0)
}

type mockCouponRepository struct {
	mock.Mock
}

func (m *mockCouponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	args := m.Called(ctx, coupon)
	return args.Error(0)
}

func (m *mockCouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Coupon), args.Error(1)
}

func (m *mockCouponRepository) List(ctx context.Context, filter repository.CouponFilter) ([]domain.Coupon, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Coupon), args.Int(1), args.Error(2)
}

func (m *mockCouponRepository) Update(ctx context.Context, coupon *domain.Coupon) error {
	args := m.Called(ctx, coupon)
	return args.Error(0)
}

func (m *mockCouponRepository) Redeem(ctx context.Context, code, userID string) error {
	args := m.Called(ctx, code, userID)
	return args.Error(0)
}

func (m *mockCouponRepository) Delete(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetProduct(ctx context.Context, productID string) (*catalog.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockPublisher) PublishCartCleared(ctx context.Context, owner domain.Owner) error {
	args := m.Called(ctx, owner)
	return args.Error(0)
}

func (m *mockPublisher) PublishCouponRedeemed(ctx context.Context, code, userID string) error {
	args := m.Called(ctx, code, userID)
	return args.Error(0)
}

// ============================================================================
// Test helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type apiFixture struct {
	cartRepo   *mockCartRepository
	couponRepo *mockCouponRepository
	catalog    *mockCatalog
	publisher  *mockPublisher
	router     http.Handler
}

func newAPIFixture() *apiFixture {
	f := &apiFixture{
		cartRepo:   new(mockCartRepository),
		couponRepo: new(mockCouponRepository),
		catalog:    new(mockCatalog),
		publisher:  new(mockPublisher),
	}

	logger := testLogger()
	cartSvc := service.NewCartService(f.cartRepo, f.couponRepo, f.catalog, f.publisher, logger, domain.DefaultTaxRate)
	couponSvc := service.NewCouponService(f.couponRepo, f.publisher, logger)
	f.router = NewRouter(cartSvc, couponSvc, health.NewHandler(), logger)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) *domain.Cart {
	t.Helper()
	var envelope struct {
		Data *domain.Cart `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data)
	return envelope.Data
}

func sofaProduct() *catalog.Product {
	return &catalog.Product{
		ID:             "prod-1",
		Name:           "Oslo Sofa",
		Slug:           "oslo-sofa",
		Price:          10000,
		CategoryID:     "cat-sofas",
		Stock:          5,
		TrackInventory: true,
		IsActive:       true,
	}
}

func userCartWithSofa(userID string, qty int) *domain.Cart {
	cart := domain.NewCart("cart-123", userID, "")
	cart.Items = []domain.CartItem{
		{
			ProductID:   "prod-1",
			Name:        "Oslo Sofa",
			Price:       10000,
			Quantity:    qty,
			CategoryID:  "cat-sofas",
			MaxQuantity: 5,
		},
	}
	return cart
}

// ============================================================================
// Owner resolution
// ============================================================================

func TestGetCart_MintsGuestSession(t *testing.T) {
	f := newAPIFixture()

	f.cartRepo.On("Get", mock.Anything, mock.MatchedBy(func(o domain.Owner) bool {
		return o.IsGuest() && o.SessionID != ""
	})).Return(nil, apperrors.NotFound("cart", "guest"))

	rec := f.do(t, http.MethodGet, "/api/v1/cart", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(SessionHeader), "minted session id must be echoed")

	cart := decodeCart(t, rec)
	assert.NotEmpty(t, cart.SessionID)
	assert.NotNil(t, cart.ExpiresAt)
	f.cartRepo.AssertExpectations(t)
}

func TestGetCart_ReusesProvidedSession(t *testing.T) {
	f := newAPIFixture()
	owner := domain.GuestOwner("sess-42")

	f.cartRepo.On("Get", mock.Anything, owner).Return(nil, apperrors.NotFound("cart", owner.Key()))

	rec := f.do(t, http.MethodGet, "/api/v1/cart", nil, map[string]string{SessionHeader: "sess-42"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sess-42", rec.Header().Get(SessionHeader))
	f.cartRepo.AssertExpectations(t)
}

func TestGetCart_UserHeaderWinsOverSession(t *testing.T) {
	f := newAPIFixture()
	owner := domain.UserOwner("user-1")

	f.cartRepo.On("Get", mock.Anything, owner).Return(userCartWithSofa("user-1", 1), nil)

	rec := f.do(t, http.MethodGet, "/api/v1/cart", nil, map[string]string{
		"X-User-ID":   "user-1",
		SessionHeader: "sess-42",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(SessionHeader), "authenticated requests carry no session echo")
	cart := decodeCart(t, rec)
	assert.Equal(t, "user-1", cart.UserID)
	f.cartRepo.AssertExpectations(t)
}

// ============================================================================
// Cart endpoints
// ============================================================================

func TestAddItem_Success(t *testing.T) {
	f := newAPIFixture()
	owner := domain.UserOwner("user-1")

	f.catalog.On("GetProduct", mock.Anything, "prod-1").Return(sofaProduct(), nil)
	f.cartRepo.On("Get", mock.Anything, owner).Return(nil, apperrors.NotFound("cart", owner.Key()))
	f.cartRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)
	f.publisher.On("PublishCartUpdated", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	rec := f.do(t, http.MethodPost, "/api/v1/cart/items",
		AddItemRequest{ProductID: "prod-1", Quantity: 2},
		map[string]string{"X-User-ID": "user-1"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cart := decodeCart(t, rec)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Oslo Sofa", cart.Items[0].Name)
	assert.Equal(t, 20000.0, cart.Subtotal)
	f.cartRepo.AssertExpectations(t)
}

func TestAddItem_ValidationFailure(t *testing.T) {
	f := newAPIFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/cart/items",
		map[string]any{"quantity": 0},
		map[string]string{"X-User-ID": "user-1"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestAddItem_InsufficientStock(t *testing.T) {
	f := newAPIFixture()

	f.catalog.On("GetProduct", mock.Anything, "prod-1").Return(sofaProduct(), nil)

	rec := f.do(t, http.MethodPost, "/api/v1/cart/items",
		AddItemRequest{ProductID: "prod-1", Quantity: 9},
		map[string]string{"X-User-ID": "user-1"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient stock")
}

func TestAddItem_WrongContentType(t *testing.T) {
	f := newAPIFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString("product_id=prod-1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-User-ID", "user-1")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestUpdateItemQuantity_ZeroRemoves(t *testing.T) {
	f := newAPIFixture()
	owner := domain.UserOwner("user-1")

	f.cartRepo.On("Get", mock.Anything, owner).Return(userCartWithSofa("user-1", 2), nil)
	f.cartRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)
	f.publisher.On("PublishCartUpdated", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	rec := f.do(t, http.MethodPut, "/api/v1/cart/items",
		UpdateQuantityRequest{ProductID: "prod-1", Quantity: 0},
		map[string]string{"X-User-ID": "user-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, rec)
	assert.Empty(t, cart.Items)
	f.cartRepo.AssertExpectations(t)
}

func TestRemoveItem_Success(t *testing.T) {
	f := newAPIFixture()
	owner := domain.UserOwner("user-1")

	f.cartRepo.On("Get", mock.Anything, owner).Return(userCartWithSofa("user-1", 2), nil)
	f.cartRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)
	f.publisher.On("PublishCartUpdated", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	rec := f.do(t, http.MethodDelete, "/api/v1/cart/items",
		RemoveItemRequest{ProductID: "prod-1"},
		map[string]string{"X-User-ID": "user-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, rec)
	assert.Empty(t, cart.Items)
	f.cartRepo.AssertExpectations(t)
}

func TestClearCart_Success(t *testing.T) {
	f := newAPIFixture()
	owner := domain.UserOwner("user-1")

	existing := userCartWithSofa("user-1", 2)
	existing.CouponCode = "SPRING10"

	f.cartRepo.On("Get", mock.Anything, owner).Return(existing, nil)
	f.cartRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)
	f.publisher.On("PublishCartCleared", mock.Anything, owner).Return(nil)

	rec := f.do(t, http.MethodDelete, "/api/v1/cart", nil, map[string]string{"X-User-ID": "user-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, rec)
	assert.Empty(t, cart.Items)
	assert.Empty(t, cart.CouponCode)
	f.cartRepo.AssertExpectations(t)
}

// ============================================================================
// Cart coupon endpoints
// ============================================================================

func TestApplyCoupon_Success(t *testing.T) {
	f := newAPIFixture()
	owner := domain.UserOwner("user-1")

	now := time.Now().UTC()
	coupon := &domain.Coupon{
		ID:        "cpn-1",
		Code:      "SPRING10",
		Type:      domain.CouponTypePercentage,
		Value:     10,
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
		IsActive:  true,
	}

	f.cartRepo.On("Get", mock.Anything, owner).Return(userCartWithSofa("user-1", 3), nil)
	f.couponRepo.On("GetByCode", mock.Anything, "SPRING10").Return(coupon, nil)
	f.cartRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)
	f.publisher.On("PublishCartUpdated", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	rec := f.do(t, http.MethodPost, "/api/v1/cart/coupon",
		ApplyCouponRequest{Code: "spring10"},
		map[string]string{"X-User-ID": "user-1"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cart := decodeCart(t, rec)
	assert.Equal(t, "SPRING10", cart.CouponCode)
	assert.Equal(t, 3000.0, cart.Discount)
	f.cartRepo.AssertExpectations(t)
}

func TestApplyCoupon_UnknownCode(t *testing.T) {
	f := newAPIFixture()
	owner := domain.UserOwner("user-1")

	f.cartRepo.On("Get", mock.Anything, owner).Return(userCartWithSofa("user-1", 1), nil)
	f.couponRepo.On("GetByCode", mock.Anything, "GHOST").Return(nil, apperrors.NotFound("coupon", "GHOST"))

	rec := f.do(t, http.MethodPost, "/api/v1/cart/coupon",
		ApplyCouponRequest{Code: "ghost"},
		map[string]string{"X-User-ID": "user-1"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid coupon code")
}

func TestRemoveCoupon_Success(t *testing.T) {
	f := newAPIFixture()
	owner := domain.UserOwner("user-1")

	existing := userCartWithSofa("user-1", 3)
	existing.CouponCode = "SPRING10"

	f.cartRepo.On("Get", mock.Anything, owner).Return(existing, nil)
	f.cartRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)
	f.publisher.On("PublishCartUpdated", mock.Anything, mock.AnythingOfType("*domain.Cart")).Return(nil)

	rec := f.do(t, http.MethodDelete, "/api/v1/cart/coupon", nil, map[string]string{"X-User-ID": "user-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, rec)
	assert.Empty(t, cart.CouponCode)
	f.cartRepo.AssertExpectations(t)
}
