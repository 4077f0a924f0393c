package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/xenking/furniture-store/internal/domain/coupon"
	"github.com/xenking/furniture-store/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository in memory.
type OrderRepository struct {
	s *Store
}

func cloneOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	if o.DeliveryDate != nil {
		d := *o.DeliveryDate
		o.DeliveryDate = &d
	}
	return o
}

func (r *OrderRepository) Place(_ context.Context, o *order.Order, reservations []order.Reservation, couponCode string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// Validate everything before mutating anything.
	for _, res := range reservations {
		p, ok := r.s.products[res.ProductID]
		if !ok || p.Stock < res.Quantity {
			return &order.StockConflictError{ProductID: res.ProductID}
		}
	}

	var (
		redeem   coupon.Coupon
		redeemID string
	)
	if couponCode != "" {
		c, ok := (&CouponRepository{s: r.s}).byCode(coupon.NormalizeCode(couponCode))
		if !ok || !c.Active {
			return coupon.ErrInvalidCoupon
		}
		if c.Exhausted() {
			return coupon.ErrUsageLimitReached
		}
		redeem, redeemID = c, c.ID
	}

	for _, res := range reservations {
		p := r.s.products[res.ProductID]
		p.Stock -= res.Quantity
		r.s.products[res.ProductID] = p
	}
	if redeemID != "" {
		redeem.Uses++
		r.s.coupons[redeemID] = redeem
	}
	r.s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, id string) (*order.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r *OrderRepository) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []order.Order{}
	for _, o := range r.s.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	sortOrders(out)
	return out, nil
}

func (r *OrderRepository) List(_ context.Context) ([]order.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]order.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		out = append(out, cloneOrder(o))
	}
	sortOrders(out)
	return out, nil
}

func (r *OrderRepository) UpdateStatus(_ context.Context, o *order.Order, expected order.DeliveryStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.orders[o.ID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if stored.DeliveryStatus != expected {
		return order.ErrStatusChanged
	}
	stored.DeliveryStatus = o.DeliveryStatus
	stored.PaymentStatus = o.PaymentStatus
	stored.CancelReason = o.CancelReason
	stored.UpdatedAt = o.UpdatedAt
	if o.DeliveryDate != nil {
		d := *o.DeliveryDate
		stored.DeliveryDate = &d
	}
	r.s.orders[o.ID] = stored
	return nil
}

func sortOrders(os []order.Order) {
	sort.Slice(os, func(i, j int) bool {
		if !os[i].CreatedAt.Equal(os[j].CreatedAt) {
			return os[i].CreatedAt.After(os[j].CreatedAt)
		}
		return os[i].ID < os[j].ID
	})
}
