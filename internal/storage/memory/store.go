// Package memory is an in-process storage driver. All repositories share one
// lock, so multi-entity writes such as order placement are atomic.
package memory

import (
	"context"
	"sync"

	"github.com/xenking/furniture-store/internal/domain/auth"
	"github.com/xenking/furniture-store/internal/domain/coupon"
	"github.com/xenking/furniture-store/internal/domain/customer"
	"github.com/xenking/furniture-store/internal/domain/order"
	"github.com/xenking/furniture-store/internal/domain/product"
)

// Store holds all entities in maps guarded by a single mutex.
type Store struct {
	mu        sync.RWMutex
	products  map[string]product.Product
	coupons   map[string]coupon.Coupon
	orders    map[string]order.Order
	addresses map[string]customer.Address
	carts     map[string][]customer.CartItem
	wishlists map[string][]customer.WishlistItem
	apiKeys   map[string]auth.APIKeyInfo
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		products:  make(map[string]product.Product),
		coupons:   make(map[string]coupon.Coupon),
		orders:    make(map[string]order.Order),
		addresses: make(map[string]customer.Address),
		carts:     make(map[string][]customer.CartItem),
		wishlists: make(map[string][]customer.WishlistItem),
		apiKeys:   make(map[string]auth.APIKeyInfo),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Products returns the product repository.
func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }

// Coupons returns the coupon repository.
func (s *Store) Coupons() *CouponRepository { return &CouponRepository{s: s} }

// Orders returns the order repository.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// Customers returns the customer repository.
func (s *Store) Customers() *CustomerRepository { return &CustomerRepository{s: s} }

// APIKeys returns the API key repository.
func (s *Store) APIKeys() *APIKeyRepository { return &APIKeyRepository{s: s} }
