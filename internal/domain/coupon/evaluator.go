package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Evaluation is the outcome of applying a coupon to a proposed total.
type Evaluation struct {
	Code       string
	Discount   decimal.Decimal
	FinalTotal decimal.Decimal
}

// Evaluator checks coupon eligibility and computes discounts. It never
// mutates coupon state; redemption happens when an order is committed.
type Evaluator struct {
	finder Finder
	now    func() time.Time
}

// NewEvaluator creates an Evaluator reading coupons from finder.
func NewEvaluator(finder Finder) *Evaluator {
	return &Evaluator{finder: finder, now: time.Now}
}

// Evaluate applies the coupon identified by code to proposedTotal.
//
// Checks run in order: code present, total non-negative, active coupon
// exists, not expired, minimum purchase met, redemptions left.
func (e *Evaluator) Evaluate(ctx context.Context, code string, proposedTotal decimal.Decimal) (*Evaluation, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrCodeRequired
	}
	if proposedTotal.IsNegative() {
		return nil, ErrInvalidTotal
	}

	c, err := e.finder.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, &UnknownCodeError{Code: code}
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if c.Expired(e.now()) {
		return nil, ErrCouponExpired
	}
	if proposedTotal.LessThan(c.MinPurchase) {
		return nil, &BelowMinimumError{Minimum: c.MinPurchase}
	}
	if c.Exhausted() {
		return nil, ErrUsageLimitReached
	}

	discount := Apply(c, proposedTotal)
	return &Evaluation{
		Code:       c.Code,
		Discount:   discount,
		FinalTotal: FinalTotal(proposedTotal, discount),
	}, nil
}
