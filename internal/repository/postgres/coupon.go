package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/furnhaven/cart-service/internal/domain"
	"github.com/furnhaven/cart-service/internal/repository"
	"github.com/furnhaven/cart-service/pkg/database"
	apperrors "github.com/furnhaven/cart-service/pkg/errors"
)

const couponColumns = `id, code, description, type, value, min_purchase, max_discount,
	usage_limit, usage_count, user_limit, user_usage,
	applicable_categories, applicable_products,
	start_date, end_date, is_active, created_at, updated_at`

// CouponRepository implements repository.CouponRepository on PostgreSQL.
// Allow-lists and the per-user usage map are stored as JSONB.
type CouponRepository struct {
	db database.DBTX
}

// NewCouponRepository creates a PostgreSQL-backed coupon repository.
func NewCouponRepository(db database.DBTX) *CouponRepository {
	return &CouponRepository{db: db}
}

// Create inserts a new coupon. A duplicate code maps to AlreadyExists.
func (r *CouponRepository) Create(ctx context.Context, c *domain.Coupon) error {
	categories, products, usage, err := marshalJSONFields(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err = r.db.Exec(ctx, query,
		c.ID, c.Code, c.Description, c.Type, c.Value, c.MinPurchase, c.MaxDiscount,
		c.UsageLimit, c.UsageCount, c.UserLimit, usage,
		categories, products,
		c.StartDate, c.EndDate, c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("coupon", "code", c.Code)
		}
		return fmt.Errorf("insert coupon: %w", err)
	}

	return nil
}

// GetByCode retrieves a coupon by its normalized code.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	row := r.db.QueryRow(ctx, query, code)
	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("coupon", code)
		}
		return nil, fmt.Errorf("select coupon by code: %w", err)
	}

	return c, nil
}

// List returns coupons newest first, optionally only active ones, with the
// total count before pagination.
func (r *CouponRepository) List(ctx context.Context, filter repository.CouponFilter) ([]domain.Coupon, int, error) {
	query := `SELECT ` + couponColumns + `, count(*) OVER() AS total_count FROM coupons`
	var args []any
	argIndex := 1
	if filter.ActiveOnly {
		query += fmt.Sprintf(` WHERE is_active = $%d`, argIndex)
		args = append(args, true)
		argIndex++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argIndex, argIndex+1)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select coupons: %w", err)
	}
	defer rows.Close()

	var (
		coupons    []domain.Coupon
		totalCount int
	)
	for rows.Next() {
		c, total, err := scanCouponWithCount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
		totalCount = total
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate coupons: %w", err)
	}

	return coupons, totalCount, nil
}

// Update overwrites the coupon's mutable fields, keyed by code.
func (r *CouponRepository) Update(ctx context.Context, c *domain.Coupon) error {
	categories, products, usage, err := marshalJSONFields(c)
	if err != nil {
		return err
	}

	query := `
		UPDATE coupons
		SET description = $2, type = $3, value = $4, min_purchase = $5,
		    max_discount = $6, usage_limit = $7, user_limit = $8,
		    user_usage = $9, applicable_categories = $10,
		    applicable_products = $11, start_date = $12, end_date = $13,
		    is_active = $14, updated_at = $15
		WHERE code = $1`

	tag, err := r.db.Exec(ctx, query,
		c.Code, c.Description, c.Type, c.Value, c.MinPurchase,
		c.MaxDiscount, c.UsageLimit, c.UserLimit,
		usage, categories, products, c.StartDate, c.EndDate,
		c.IsActive, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("coupon", c.Code)
	}

	return nil
}

// Redeem advances the global and per-user usage counters in one statement,
// guarded by both caps, so concurrent redemptions of the last remaining use
// cannot both succeed. Validation is a separate, stateless read; this is
// the write side that makes it safe.
func (r *CouponRepository) Redeem(ctx context.Context, code, userID string) error {
	query := `
		UPDATE coupons
		SET usage_count = usage_count + 1,
		    user_usage = jsonb_set(
		        COALESCE(user_usage, '{}'::jsonb),
		        ARRAY[$2],
		        (COALESCE(user_usage->>$2, '0')::int + 1)::text::jsonb
		    ),
		    updated_at = $3
		WHERE code = $1
		  AND (usage_limit = 0 OR usage_count < usage_limit)
		  AND (user_limit = 0 OR COALESCE(user_usage->>$2, '0')::int < user_limit)`

	tag, err := r.db.Exec(ctx, query, code, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("redeem coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Conflict("coupon usage limit reached")
	}

	return nil
}

// Delete removes a coupon by code.
func (r *CouponRepository) Delete(ctx context.Context, code string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM coupons WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("coupon", code)
	}
	return nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func marshalJSONFields(c *domain.Coupon) (categories, products, usage []byte, err error) {
	categories, err = json.Marshal(emptyIfNil(c.ApplicableCategories))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal applicable_categories: %w", err)
	}
	products, err = json.Marshal(emptyIfNil(c.ApplicableProducts))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal applicable_products: %w", err)
	}
	userUsage := c.UserUsage
	if userUsage == nil {
		userUsage = map[string]int{}
	}
	usage, err = json.Marshal(userUsage)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal user_usage: %w", err)
	}
	return categories, products, usage, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanCoupon(row pgx.Row) (*domain.Coupon, error) {
	var (
		c          domain.Coupon
		categories []byte
		products   []byte
		usage      []byte
	)

	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &c.Type, &c.Value, &c.MinPurchase, &c.MaxDiscount,
		&c.UsageLimit, &c.UsageCount, &c.UserLimit, &usage,
		&categories, &products,
		&c.StartDate, &c.EndDate, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSONFields(&c, categories, products, usage); err != nil {
		return nil, err
	}

	return &c, nil
}

func scanCouponWithCount(row pgx.Row) (*domain.Coupon, int, error) {
	var (
		c          domain.Coupon
		categories []byte
		products   []byte
		usage      []byte
		total      int
	)

	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &c.Type, &c.Value, &c.MinPurchase, &c.MaxDiscount,
		&c.UsageLimit, &c.UsageCount, &c.UserLimit, &usage,
		&categories, &products,
		&c.StartDate, &c.EndDate, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
		&total,
	)
	if err != nil {
		return nil, 0, err
	}

	if err := unmarshalJSONFields(&c, categories, products, usage); err != nil {
		return nil, 0, err
	}

	return &c, total, nil
}

// unmarshalJSONFields decodes the JSONB columns. Empty allow-lists come back
// nil so "no restriction" keeps its meaning in the domain.
func unmarshalJSONFields(c *domain.Coupon, categories, products, usage []byte) error {
	if err := json.Unmarshal(categories, &c.ApplicableCategories); err != nil {
		return fmt.Errorf("unmarshal applicable_categories: %w", err)
	}
	if err := json.Unmarshal(products, &c.ApplicableProducts); err != nil {
		return fmt.Errorf("unmarshal applicable_products: %w", err)
	}
	if err := json.Unmarshal(usage, &c.UserUsage); err != nil {
		return fmt.Errorf("unmarshal user_usage: %w", err)
	}
	if len(c.ApplicableCategories) == 0 {
		c.ApplicableCategories = nil
	}
	if len(c.ApplicableProducts) == 0 {
		c.ApplicableProducts = nil
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}
