package memory

import (
	"context"
	"slices"

	"github.com/xenking/furniture-store/internal/domain/customer"
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository in memory.
type CustomerRepository struct {
	s *Store
}

func (r *CustomerRepository) ShippingAddress(_ context.Context, userID string) (*customer.Address, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.addresses[userID]
	if !ok {
		return nil, customer.ErrAddressNotFound
	}
	return &a, nil
}

func (r *CustomerRepository) SaveShippingAddress(_ context.Context, userID string, addr customer.Address) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.addresses[userID] = addr
	return nil
}

func (r *CustomerRepository) CartItems(_ context.Context, userID string) ([]customer.CartItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := slices.Clone(r.s.carts[userID])
	if items == nil {
		items = []customer.CartItem{}
	}
	return items, nil
}

func (r *CustomerRepository) PutCartItem(_ context.Context, userID string, item customer.CartItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cart := r.s.carts[userID]
	i := slices.IndexFunc(cart, func(c customer.CartItem) bool { return c.ProductID == item.ProductID })
	if i >= 0 {
		cart[i] = item
		return nil
	}
	r.s.carts[userID] = append(cart, item)
	return nil
}

func (r *CustomerRepository) RemoveCartItem(_ context.Context, userID, productID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cart := r.s.carts[userID]
	i := slices.IndexFunc(cart, func(c customer.CartItem) bool { return c.ProductID == productID })
	if i < 0 {
		return customer.ErrNotInCart
	}
	r.s.carts[userID] = slices.Delete(cart, i, i+1)
	return nil
}

func (r *CustomerRepository) WishlistItems(_ context.Context, userID string) ([]customer.WishlistItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := slices.Clone(r.s.wishlists[userID])
	if items == nil {
		items = []customer.WishlistItem{}
	}
	return items, nil
}

func (r *CustomerRepository) AddWishlistItem(_ context.Context, userID string, item customer.WishlistItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	list := r.s.wishlists[userID]
	if slices.ContainsFunc(list, func(w customer.WishlistItem) bool { return w.ProductID == item.ProductID }) {
		return nil
	}
	r.s.wishlists[userID] = append(list, item)
	return nil
}

func (r *CustomerRepository) RemoveWishlistItem(_ context.Context, userID, productID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.wishlists[userID] = slices.DeleteFunc(r.s.wishlists[userID], func(w customer.WishlistItem) bool {
		return w.ProductID == productID
	})
	return nil
}
