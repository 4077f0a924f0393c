package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/furniture-store/internal/domain/coupon"
)

const (
	couponColumns = `id, code, discount_type, discount_value, min_purchase, max_discount,
		expiry_date, active, max_usage, uses, created_at, updated_at`

	getActiveCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 AND active = TRUE`
	getCouponByCodeSQL       = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`
	getCouponByIDSQL         = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	listCouponsSQL           = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC, code`
	listActiveCouponsSQL     = `SELECT ` + couponColumns + ` FROM coupons
		WHERE active = TRUE AND expiry_date >= $1 ORDER BY created_at DESC, code`

	insertCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	// uses is owned by order placement and never written here.
	updateCouponSQL = `UPDATE coupons SET code = $2, discount_type = $3, discount_value = $4,
		min_purchase = $5, max_discount = $6, expiry_date = $7, active = $8, max_usage = $9, updated_at = $10
		WHERE id = $1`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

func (r *CouponRepository) getOne(ctx context.Context, query, arg string, notFound error) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "get coupon %q", arg)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, errors.Wrapf(err, "get coupon %q", arg)
	}
	return &c, nil
}

// FindActiveByCode looks up an active coupon by its normalized code.
// Returns coupon.ErrInvalidCoupon when no matching active coupon exists.
func (r *CouponRepository) FindActiveByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.getOne(ctx, getActiveCouponByCodeSQL, coupon.NormalizeCode(code), coupon.ErrInvalidCoupon)
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.getOne(ctx, getCouponByCodeSQL, coupon.NormalizeCode(code), coupon.ErrNotFound)
}

func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	return r.getOne(ctx, getCouponByIDSQL, id, coupon.ErrNotFound)
}

func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, insertCouponSQL,
		c.ID, c.Code, string(c.DiscountType), c.DiscountValue, c.MinPurchase, c.MaxDiscount,
		c.ExpiryDate, c.Active, c.MaxUsage, c.Uses, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrCodeTaken
		}
		return errors.Wrapf(err, "insert coupon %q", c.Code)
	}
	return nil
}

func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	tag, err := r.pool.Exec(ctx, updateCouponSQL,
		c.ID, c.Code, string(c.DiscountType), c.DiscountValue, c.MinPurchase, c.MaxDiscount,
		c.ExpiryDate, c.Active, c.MaxUsage, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrCodeTaken
		}
		return errors.Wrapf(err, "update coupon %q", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete coupon %q", id)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	return pgx.CollectRows(rows, scanCoupon)
}

func (r *CouponRepository) ListActive(ctx context.Context, now time.Time) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listActiveCouponsSQL, now)
	if err != nil {
		return nil, errors.Wrap(err, "list active coupons")
	}
	return pgx.CollectRows(rows, scanCoupon)
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
	)
	err := row.Scan(
		&c.ID, &c.Code, &discountType, &c.DiscountValue, &c.MinPurchase, &c.MaxDiscount,
		&c.ExpiryDate, &c.Active, &c.MaxUsage, &c.Uses, &c.CreatedAt, &c.UpdatedAt,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	return c, err
}
