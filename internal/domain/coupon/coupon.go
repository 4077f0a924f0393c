package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the order total, optionally capped.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFlat takes a fixed amount off the order total.
	DiscountFlat DiscountType = "flat"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFlat
}

var (
	// ErrCodeRequired is returned when no coupon code was supplied.
	ErrCodeRequired = errors.New("coupon code is required")
	// ErrInvalidTotal is returned when the proposed total is negative.
	ErrInvalidTotal = errors.New("total amount must not be negative")
	// ErrInvalidCoupon is returned when no active coupon matches the code.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned when the coupon expiry date has passed.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrUsageLimitReached is returned when the coupon has no redemptions left.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrNotFound is returned by admin operations for an unknown coupon id.
	ErrNotFound = errors.New("coupon not found")
	// ErrCodeTaken is returned when another coupon already uses the code.
	ErrCodeTaken = errors.New("coupon code already exists")
)

// UnknownCodeError indicates no active coupon matches Code. It matches
// ErrInvalidCoupon.
type UnknownCodeError struct {
	Code string
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidCoupon, e.Code)
}

func (e *UnknownCodeError) Is(target error) bool {
	return target == ErrInvalidCoupon
}

// BelowMinimumError indicates the order total does not reach the coupon minimum.
type BelowMinimumError struct {
	Minimum decimal.Decimal
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("minimum purchase should be %s", e.Minimum.StringFixed(2))
}

// Coupon is a promotional code.
type Coupon struct {
	ID            string
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MinPurchase   decimal.Decimal
	// MaxDiscount caps percentage discounts when valid and positive.
	MaxDiscount decimal.NullDecimal
	ExpiryDate  time.Time
	Active      bool
	// MaxUsage of zero means unlimited redemptions.
	MaxUsage  int
	Uses      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Exhausted reports whether the coupon has no redemptions left.
func (c *Coupon) Exhausted() bool {
	return c.MaxUsage > 0 && c.Uses >= c.MaxUsage
}

// Expired reports whether the coupon is past its expiry date at now.
func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiryDate.Before(now)
}

// NormalizeCode trims and upper-cases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Finder looks up active coupons by code.
type Finder interface {
	// FindActiveByCode returns ErrInvalidCoupon when no active coupon has code.
	FindActiveByCode(ctx context.Context, code string) (*Coupon, error)
}

// Repository provides persistence for coupons.
type Repository interface {
	Finder

	// FindByCode returns the coupon with code regardless of its status, or ErrNotFound.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	GetByID(ctx context.Context, id string) (*Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Coupon, error)
	ListActive(ctx context.Context, now time.Time) ([]Coupon, error)
}
