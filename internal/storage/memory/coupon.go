package memory

import (
	"context"
	"sort"
	"time"

	"github.com/xenking/furniture-store/internal/domain/coupon"
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository in memory.
type CouponRepository struct {
	s *Store
}

// byCode returns the coupon with code. Caller holds the lock.
func (r *CouponRepository) byCode(code string) (coupon.Coupon, bool) {
	for _, c := range r.s.coupons {
		if c.Code == code {
			return c, true
		}
	}
	return coupon.Coupon{}, false
}

func (r *CouponRepository) FindActiveByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.byCode(coupon.NormalizeCode(code))
	if !ok || !c.Active {
		return nil, coupon.ErrInvalidCoupon
	}
	return &c, nil
}

func (r *CouponRepository) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.byCode(coupon.NormalizeCode(code))
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return &c, nil
}

func (r *CouponRepository) GetByID(_ context.Context, id string) (*coupon.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.coupons[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return &c, nil
}

func (r *CouponRepository) Create(_ context.Context, c *coupon.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.byCode(c.Code); taken {
		return coupon.ErrCodeTaken
	}
	r.s.coupons[c.ID] = *c
	return nil
}

func (r *CouponRepository) Update(_ context.Context, c *coupon.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.coupons[c.ID]
	if !ok {
		return coupon.ErrNotFound
	}
	if other, taken := r.byCode(c.Code); taken && other.ID != c.ID {
		return coupon.ErrCodeTaken
	}
	// Redemptions are only counted by order placement.
	updated := *c
	updated.Uses = stored.Uses
	r.s.coupons[c.ID] = updated
	return nil
}

func (r *CouponRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.coupons[id]; !ok {
		return coupon.ErrNotFound
	}
	delete(r.s.coupons, id)
	return nil
}

func (r *CouponRepository) List(_ context.Context) ([]coupon.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]coupon.Coupon, 0, len(r.s.coupons))
	for _, c := range r.s.coupons {
		out = append(out, c)
	}
	sortCoupons(out)
	return out, nil
}

func (r *CouponRepository) ListActive(_ context.Context, now time.Time) ([]coupon.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []coupon.Coupon{}
	for _, c := range r.s.coupons {
		if c.Active && !c.Expired(now) {
			out = append(out, c)
		}
	}
	sortCoupons(out)
	return out, nil
}

func sortCoupons(cs []coupon.Coupon) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.After(cs[j].CreatedAt)
		}
		return cs[i].Code < cs[j].Code
	})
}
