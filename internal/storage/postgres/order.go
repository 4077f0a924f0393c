package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/furniture-store/internal/domain/coupon"
	"github.com/xenking/furniture-store/internal/domain/order"
)

const (
	orderColumns = `id, user_id, items, shipping_address, subtotal, discount, total_amount, coupon_code,
		payment_method, payment_status, delivery_status, cancel_reason, delivery_date, created_at, updated_at`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	reserveStockSQL = `UPDATE products SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2`

	redeemCouponSQL = `UPDATE coupons SET uses = uses + 1, updated_at = $2
		WHERE code = $1 AND active = TRUE AND (max_usage = 0 OR uses < max_usage)`

	activeCouponExistsSQL = `SELECT EXISTS (SELECT 1 FROM coupons WHERE code = $1 AND active = TRUE)`

	getOrderSQL         = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`
	listOrdersSQL       = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id`
	orderExistsSQL      = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	updateOrderStatusSQL = `UPDATE orders SET delivery_status = $2, payment_status = $3, cancel_reason = $4,
		delivery_date = COALESCE($5, delivery_date), updated_at = $6
		WHERE id = $1 AND delivery_status = $7`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Place commits the order in a single transaction. Stock is taken with
// conditional decrements so concurrent orders can never oversell. Items and
// the shipping address are stored as JSONB.
func (r *OrderRepository) Place(ctx context.Context, o *order.Order, reservations []order.Reservation, couponCode string) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}
	addrJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return errors.Wrap(err, "marshal shipping address")
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, res := range reservations {
			tag, err := tx.Exec(ctx, reserveStockSQL, res.ProductID, res.Quantity, o.CreatedAt)
			if err != nil {
				return errors.Wrapf(err, "reserve stock for %q", res.ProductID)
			}
			if tag.RowsAffected() == 0 {
				return &order.StockConflictError{ProductID: res.ProductID}
			}
		}

		if couponCode != "" {
			if err := redeemCoupon(ctx, tx, coupon.NormalizeCode(couponCode), o.CreatedAt); err != nil {
				return err
			}
		}

		_, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.UserID, itemsJSON, addrJSON, o.Subtotal, o.Discount, o.TotalAmount, o.CouponCode,
			o.PaymentMethod, string(o.PaymentStatus), string(o.DeliveryStatus), o.CancelReason, o.DeliveryDate,
			o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			return errors.Wrapf(err, "insert order %q", o.ID)
		}
		return nil
	})
}

func redeemCoupon(ctx context.Context, tx pgx.Tx, code string, now time.Time) error {
	tag, err := tx.Exec(ctx, redeemCouponSQL, code, now)
	if err != nil {
		return errors.Wrapf(err, "redeem coupon %q", code)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, activeCouponExistsSQL, code).Scan(&exists); err != nil {
		return errors.Wrapf(err, "check coupon %q", code)
	}
	if !exists {
		return coupon.ErrInvalidCoupon
	}
	return coupon.ErrUsageLimitReached
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return &o, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list user orders")
	}
	return pgx.CollectRows(rows, scanOrder)
}

func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus writes the status fields of o when the stored delivery status
// still equals expected.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *order.Order, expected order.DeliveryStatus) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL,
		o.ID, string(o.DeliveryStatus), string(o.PaymentStatus), o.CancelReason, o.DeliveryDate, o.UpdatedAt,
		string(expected),
	)
	if err != nil {
		return errors.Wrapf(err, "update order %q", o.ID)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, o.ID).Scan(&exists); err != nil {
		return errors.Wrapf(err, "check order %q", o.ID)
	}
	if !exists {
		return order.ErrOrderNotFound
	}
	return order.ErrStatusChanged
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                       order.Order
		itemsJSON, addrJSON     []byte
		paymentStatus, delivery string
	)
	if err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &addrJSON, &o.Subtotal, &o.Discount, &o.TotalAmount, &o.CouponCode,
		&o.PaymentMethod, &paymentStatus, &delivery, &o.CancelReason, &o.DeliveryDate, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return o, err
	}
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.DeliveryStatus = order.DeliveryStatus(delivery)

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, errors.Wrap(err, "unmarshal order items")
	}
	if err := json.Unmarshal(addrJSON, &o.ShippingAddress); err != nil {
		return o, errors.Wrap(err, "unmarshal shipping address")
	}
	return o, nil
}
