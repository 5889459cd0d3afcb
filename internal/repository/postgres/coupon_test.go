package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/furnhaven/cart-service/internal/domain"
	"github.com/furnhaven/cart-service/internal/repository"
	"github.com/furnhaven/cart-service/pkg/database"
	apperrors "github.com/furnhaven/cart-service/pkg/errors"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupRepo(t *testing.T) (*CouponRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewCouponRepository(mock)
	return repo, mock
}

func sampleCoupon() *domain.Coupon {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Coupon{
		ID:                   "cpn-001",
		Code:                 "SPRING10",
		Description:          "10% off spring collection",
		Type:                 domain.CouponTypePercentage,
		Value:                10,
		MinPurchase:          5000,
		MaxDiscount:          2000,
		UsageLimit:           100,
		UsageCount:           42,
		UserLimit:            2,
		UserUsage:            map[string]int{"user-001": 1},
		ApplicableCategories: []string{"sofas", "armchairs"},
		ApplicableProducts:   nil,
		StartDate:            now,
		EndDate:              now.Add(30 * 24 * time.Hour),
		IsActive:             true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func couponTestColumns() []string {
	return []string{
		"id", "code", "description", "type", "value", "min_purchase", "max_discount",
		"usage_limit", "usage_count", "user_limit", "user_usage",
		"applicable_categories", "applicable_products",
		"start_date", "end_date", "is_active", "created_at", "updated_at",
	}
}

func couponRow(c *domain.Coupon) *pgxmock.Rows {
	categoriesJSON, _ := json.Marshal(emptyIfNil(c.ApplicableCategories))
	productsJSON, _ := json.Marshal(emptyIfNil(c.ApplicableProducts))
	usageJSON, _ := json.Marshal(c.UserUsage)

	return pgxmock.NewRows(couponTestColumns()).
		AddRow(
			c.ID, c.Code, c.Description, c.Type, c.Value, c.MinPurchase, c.MaxDiscount,
			c.UsageLimit, c.UsageCount, c.UserLimit, usageJSON,
			categoriesJSON, productsJSON,
			c.StartDate, c.EndDate, c.IsActive, c.CreatedAt, c.UpdatedAt,
		)
}

// couponRows builds paginated result rows carrying the window total.
func couponRows(total int, coupons ...*domain.Coupon) *pgxmock.Rows {
	rows := pgxmock.NewRows(append(couponTestColumns(), "total_count"))
	for _, c := range coupons {
		categoriesJSON, _ := json.Marshal(emptyIfNil(c.ApplicableCategories))
		productsJSON, _ := json.Marshal(emptyIfNil(c.ApplicableProducts))
		usageJSON, _ := json.Marshal(c.UserUsage)
		rows.AddRow(
			c.ID, c.Code, c.Description, c.Type, c.Value, c.MinPurchase, c.MaxDiscount,
			c.UsageLimit, c.UsageCount, c.UserLimit, usageJSON,
			categoriesJSON, productsJSON,
			c.StartDate, c.EndDate, c.IsActive, c.CreatedAt, c.UpdatedAt,
			total,
		)
	}
	return rows
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCouponRepository_Create_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	c := sampleCoupon()
	categoriesJSON, _ := json.Marshal(c.ApplicableCategories)
	productsJSON, _ := json.Marshal([]string{})
	usageJSON, _ := json.Marshal(c.UserUsage)

	mock.ExpectExec("INSERT INTO coupons").
		WithArgs(
			c.ID, c.Code, c.Description, c.Type, c.Value, c.MinPurchase, c.MaxDiscount,
			c.UsageLimit, c.UsageCount, c.UserLimit, usageJSON,
			categoriesJSON, productsJSON,
			c.StartDate, c.EndDate, c.IsActive, c.CreatedAt, c.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), c)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_Create_DuplicateCode(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	c := sampleCoupon()
	categoriesJSON, _ := json.Marshal(c.ApplicableCategories)
	productsJSON, _ := json.Marshal([]string{})
	usageJSON, _ := json.Marshal(c.UserUsage)

	mock.ExpectExec("INSERT INTO coupons").
		WithArgs(
			c.ID, c.Code, c.Description, c.Type, c.Value, c.MinPurchase, c.MaxDiscount,
			c.UsageLimit, c.UsageCount, c.UserLimit, usageJSON,
			categoriesJSON, productsJSON,
			c.StartDate, c.EndDate, c.IsActive, c.CreatedAt, c.UpdatedAt,
		).
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), c)
	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_Create_ExecError(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	c := sampleCoupon()
	categoriesJSON, _ := json.Marshal(c.ApplicableCategories)
	productsJSON, _ := json.Marshal([]string{})
	usageJSON, _ := json.Marshal(c.UserUsage)

	mock.ExpectExec("INSERT INTO coupons").
		WithArgs(
			c.ID, c.Code, c.Description, c.Type, c.Value, c.MinPurchase, c.MaxDiscount,
			c.UsageLimit, c.UsageCount, c.UserLimit, usageJSON,
			categoriesJSON, productsJSON,
			c.StartDate, c.EndDate, c.IsActive, c.CreatedAt, c.UpdatedAt,
		).
		WillReturnError(errors.New("connection refused"))

	err := repo.Create(context.Background(), c)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insert coupon")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// GetByCode
// ---------------------------------------------------------------------------

func TestCouponRepository_GetByCode_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	c := sampleCoupon()

	mock.ExpectQuery("SELECT .+ FROM coupons WHERE code").
		WithArgs(c.Code).
		WillReturnRows(couponRow(c))

	result, err := repo.GetByCode(context.Background(), c.Code)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, c.ID, result.ID)
	assert.Equal(t, c.Code, result.Code)
	assert.Equal(t, c.Type, result.Type)
	assert.Equal(t, c.Value, result.Value)
	assert.Equal(t, c.MinPurchase, result.MinPurchase)
	assert.Equal(t, c.MaxDiscount, result.MaxDiscount)
	assert.Equal(t, c.UsageLimit, result.UsageLimit)
	assert.Equal(t, c.UsageCount, result.UsageCount)
	assert.Equal(t, c.UserLimit, result.UserLimit)
	assert.Equal(t, map[string]int{"user-001": 1}, result.UserUsage)
	assert.Equal(t, []string{"sofas", "armchairs"}, result.ApplicableCategories)
	// Empty allow-lists come back nil so validation treats them as "no restriction".
	assert.Nil(t, result.ApplicableProducts)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_GetByCode_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM coupons WHERE code").
		WithArgs("MISSING").
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByCode(context.Background(), "MISSING")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_GetByCode_QueryError(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM coupons WHERE code").
		WithArgs("SPRING10").
		WillReturnError(errors.New("connection reset"))

	result, err := repo.GetByCode(context.Background(), "SPRING10")
	assert.Nil(t, result)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "select coupon by code")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestCouponRepository_List_All(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	c1 := sampleCoupon()
	c2 := sampleCoupon()
	c2.ID = "cpn-002"
	c2.Code = "FLAT500"
	c2.Type = domain.CouponTypeFixed
	c2.Value = 500
	c2.IsActive = false
	c2.ApplicableCategories = nil
	c2.UserUsage = map[string]int{}

	mock.ExpectQuery("SELECT .+ FROM coupons").
		WithArgs(20, 0).
		WillReturnRows(couponRows(2, c1, c2))

	coupons, total, err := repo.List(context.Background(), repository.CouponFilter{})
	require.NoError(t, err)
	require.Len(t, coupons, 2)
	assert.Equal(t, 2, total)

	assert.Equal(t, "SPRING10", coupons[0].Code)
	assert.Equal(t, "FLAT500", coupons[1].Code)
	assert.Equal(t, domain.CouponTypeFixed, coupons[1].Type)
	assert.Nil(t, coupons[1].ApplicableCategories)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_List_Paginates(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	c := sampleCoupon()

	mock.ExpectQuery("SELECT .+ FROM coupons").
		WithArgs(10, 20).
		WillReturnRows(couponRows(21, c))

	coupons, total, err := repo.List(context.Background(), repository.CouponFilter{Page: 3, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, coupons, 1)
	assert.Equal(t, 21, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_List_ActiveOnly(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	c := sampleCoupon()

	mock.ExpectQuery("SELECT .+ FROM coupons WHERE is_active").
		WithArgs(true, 20, 0).
		WillReturnRows(couponRows(1, c))

	coupons, total, err := repo.List(context.Background(), repository.CouponFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, coupons, 1)
	assert.Equal(t, 1, total)
	assert.True(t, coupons[0].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_List_QueryError(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM coupons").
		WithArgs(20, 0).
		WillReturnError(errors.New("database timeout"))

	coupons, total, err := repo.List(context.Background(), repository.CouponFilter{})
	assert.Nil(t, coupons)
	assert.Zero(t, total)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "select coupons")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestCouponRepository_Update_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	c := sampleCoupon()
	categoriesJSON, _ := json.Marshal(c.ApplicableCategories)
	productsJSON, _ := json.Marshal([]string{})
	usageJSON, _ := json.Marshal(c.UserUsage)

	mock.ExpectExec("UPDATE coupons").
		WithArgs(
			c.Code, c.Description, c.Type, c.Value, c.MinPurchase,
			c.MaxDiscount, c.UsageLimit, c.UserLimit,
			usageJSON, categoriesJSON, productsJSON, c.StartDate, c.EndDate,
			c.IsActive,
			pgxmock.AnyArg(), // updated_at is set to time.Now() inside Update
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Update(context.Background(), c)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_Update_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	c := sampleCoupon()
	c.Code = "GHOST"
	categoriesJSON, _ := json.Marshal(c.ApplicableCategories)
	productsJSON, _ := json.Marshal([]string{})
	usageJSON, _ := json.Marshal(c.UserUsage)

	mock.ExpectExec("UPDATE coupons").
		WithArgs(
			c.Code, c.Description, c.Type, c.Value, c.MinPurchase,
			c.MaxDiscount, c.UsageLimit, c.UserLimit,
			usageJSON, categoriesJSON, productsJSON, c.StartDate, c.EndDate,
			c.IsActive,
			pgxmock.AnyArg(), // updated_at is set to time.Now() inside Update
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), c)
	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Redeem
// ---------------------------------------------------------------------------

func TestCouponRepository_Redeem_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE coupons").
		WithArgs("SPRING10", "user-001", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Redeem(context.Background(), "SPRING10", "user-001")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_Redeem_LimitExhausted(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	// The guarded UPDATE matches no rows when either cap is spent.
	mock.ExpectExec("UPDATE coupons").
		WithArgs("SPRING10", "user-001", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Redeem(context.Background(), "SPRING10", "user-001")
	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_Redeem_ExecError(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE coupons").
		WithArgs("SPRING10", "user-001", pgxmock.AnyArg()).
		WillReturnError(errors.New("deadlock detected"))

	err := repo.Redeem(context.Background(), "SPRING10", "user-001")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redeem coupon")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestCouponRepository_Delete_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM coupons WHERE").
		WithArgs("SPRING10").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), "SPRING10")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCouponRepository_Delete_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM coupons WHERE").
		WithArgs("GHOST").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "GHOST")
	assert.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
