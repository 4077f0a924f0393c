package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/furniture-store/internal/domain/customer"
)

const (
	getAddressSQL = `SELECT first_name, last_name, address, city, state, postal_code, country, email, phone
		FROM shipping_addresses WHERE user_id = $1`

	upsertAddressSQL = `INSERT INTO shipping_addresses
		(user_id, first_name, last_name, address, city, state, postal_code, country, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, address = EXCLUDED.address,
			city = EXCLUDED.city, state = EXCLUDED.state, postal_code = EXCLUDED.postal_code,
			country = EXCLUDED.country, email = EXCLUDED.email, phone = EXCLUDED.phone`

	listCartSQL = `SELECT product_id, quantity, added_at FROM cart_items
		WHERE user_id = $1 ORDER BY added_at, product_id`

	upsertCartItemSQL = `INSERT INTO cart_items (user_id, product_id, quantity, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	listWishlistSQL = `SELECT product_id, added_at FROM wishlist_items
		WHERE user_id = $1 ORDER BY added_at, product_id`

	insertWishlistItemSQL = `INSERT INTO wishlist_items (user_id, product_id, added_at)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`

	deleteWishlistItemSQL = `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

func (r *CustomerRepository) ShippingAddress(ctx context.Context, userID string) (*customer.Address, error) {
	var a customer.Address
	err := r.pool.QueryRow(ctx, getAddressSQL, userID).Scan(
		&a.FirstName, &a.LastName, &a.Address, &a.City, &a.State, &a.PostalCode, &a.Country, &a.Email, &a.Phone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrAddressNotFound
		}
		return nil, errors.Wrap(err, "get shipping address")
	}
	return &a, nil
}

func (r *CustomerRepository) SaveShippingAddress(ctx context.Context, userID string, a customer.Address) error {
	_, err := r.pool.Exec(ctx, upsertAddressSQL,
		userID, a.FirstName, a.LastName, a.Address, a.City, a.State, a.PostalCode, a.Country, a.Email, a.Phone,
	)
	if err != nil {
		return errors.Wrap(err, "save shipping address")
	}
	return nil
}

func (r *CustomerRepository) CartItems(ctx context.Context, userID string) ([]customer.CartItem, error) {
	rows, err := r.pool.Query(ctx, listCartSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (customer.CartItem, error) {
		var item customer.CartItem
		err := row.Scan(&item.ProductID, &item.Quantity, &item.AddedAt)
		return item, err
	})
}

func (r *CustomerRepository) PutCartItem(ctx context.Context, userID string, item customer.CartItem) error {
	if _, err := r.pool.Exec(ctx, upsertCartItemSQL, userID, item.ProductID, item.Quantity, item.AddedAt); err != nil {
		return errors.Wrap(err, "put cart item")
	}
	return nil
}

func (r *CustomerRepository) RemoveCartItem(ctx context.Context, userID, productID string) error {
	tag, err := r.pool.Exec(ctx, deleteCartItemSQL, userID, productID)
	if err != nil {
		return errors.Wrap(err, "remove cart item")
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrNotInCart
	}
	return nil
}

func (r *CustomerRepository) WishlistItems(ctx context.Context, userID string) ([]customer.WishlistItem, error) {
	rows, err := r.pool.Query(ctx, listWishlistSQL, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list wishlist")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (customer.WishlistItem, error) {
		var item customer.WishlistItem
		err := row.Scan(&item.ProductID, &item.AddedAt)
		return item, err
	})
}

func (r *CustomerRepository) AddWishlistItem(ctx context.Context, userID string, item customer.WishlistItem) error {
	if _, err := r.pool.Exec(ctx, insertWishlistItemSQL, userID, item.ProductID, item.AddedAt); err != nil {
		return errors.Wrap(err, "add wishlist item")
	}
	return nil
}

func (r *CustomerRepository) RemoveWishlistItem(ctx context.Context, userID, productID string) error {
	if _, err := r.pool.Exec(ctx, deleteWishlistItemSQL, userID, productID); err != nil {
		return errors.Wrap(err, "remove wishlist item")
	}
	return nil
}
