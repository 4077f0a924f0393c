package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ValidationError describes an invalid coupon draft field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Draft holds the admin-editable fields of a coupon.
type Draft struct {
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MinPurchase   decimal.Decimal
	MaxDiscount   decimal.NullDecimal
	ExpiryDate    time.Time
	Active        *bool
	MaxUsage      int
}

func (d *Draft) validate() error {
	switch {
	case NormalizeCode(d.Code) == "":
		return &ValidationError{Field: "code", Reason: "required"}
	case !d.DiscountType.Valid():
		return &ValidationError{Field: "discountType", Reason: "must be percentage or flat"}
	case !d.DiscountValue.IsPositive():
		return &ValidationError{Field: "discountValue", Reason: "must be positive"}
	case d.DiscountType == DiscountPercentage && d.DiscountValue.GreaterThan(hundred):
		return &ValidationError{Field: "discountValue", Reason: "percentage must not exceed 100"}
	case d.MinPurchase.IsNegative():
		return &ValidationError{Field: "minPurchase", Reason: "must not be negative"}
	case d.MaxDiscount.Valid && d.MaxDiscount.Decimal.IsNegative():
		return &ValidationError{Field: "maxDiscount", Reason: "must not be negative"}
	case d.ExpiryDate.IsZero():
		return &ValidationError{Field: "expiryDate", Reason: "required"}
	case d.MaxUsage < 0:
		return &ValidationError{Field: "maxUsage", Reason: "must not be negative"}
	}
	return nil
}

func (d *Draft) applyTo(c *Coupon) {
	c.Code = NormalizeCode(d.Code)
	c.DiscountType = d.DiscountType
	c.DiscountValue = d.DiscountValue
	c.MinPurchase = d.MinPurchase
	c.MaxDiscount = d.MaxDiscount
	c.ExpiryDate = d.ExpiryDate.UTC()
	c.MaxUsage = d.MaxUsage
	if d.Active != nil {
		c.Active = *d.Active
	}
}

// Service implements coupon administration.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a coupon Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create stores a new coupon. Codes are unique after normalization.
func (s *Service) Create(ctx context.Context, d Draft) (*Coupon, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c := &Coupon{
		ID:        uuid.NewString(),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	d.applyTo(c)

	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrCodeTaken) {
			return nil, ErrCodeTaken
		}
		return nil, errors.Wrap(err, "create coupon")
	}

	zctx.From(ctx).Info("Coupon created", zap.String("code", c.Code))
	return c, nil
}

// Update replaces the editable fields of the coupon with the given id.
// The redemption counter is preserved.
func (s *Service) Update(ctx context.Context, id string, d Draft) (*Coupon, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get coupon")
	}
	d.applyTo(c)
	c.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, ErrCodeTaken):
			return nil, ErrCodeTaken
		}
		return nil, errors.Wrap(err, "update coupon")
	}
	return c, nil
}

// Delete removes a coupon by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(err, "delete coupon")
	}
	return nil
}

// List returns all coupons, newest first.
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	return coupons, nil
}

// ListPublic returns the active coupons that have not expired.
func (s *Service) ListPublic(ctx context.Context) ([]Coupon, error) {
	coupons, err := s.repo.ListActive(ctx, s.now())
	if err != nil {
		return nil, errors.Wrap(err, "list active coupons")
	}
	return coupons, nil
}
