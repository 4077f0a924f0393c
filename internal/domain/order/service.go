package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/furniture-store/internal/domain/coupon"
	"github.com/xenking/furniture-store/internal/domain/customer"
	"github.com/xenking/furniture-store/internal/domain/product"
)

const instrumentationName = "github.com/xenking/furniture-store/internal/domain/order"

// ProductResolver resolves cart-line identifiers to products.
type ProductResolver interface {
	Resolve(ctx context.Context, identifier string) (*product.Product, error)
}

// CouponEvaluator computes coupon discounts.
type CouponEvaluator interface {
	Evaluate(ctx context.Context, code string, total decimal.Decimal) (*coupon.Evaluation, error)
}

// Line is one cart line submitted at checkout.
type Line struct {
	// Product is a durable product id or a slug.
	Product  string
	Quantity int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID string
	Lines  []Line
	// ShippingAddress overrides the saved address when its street is set.
	ShippingAddress *Address
	PaymentMethod   string
	CouponCode      string
	// ClientTotal is the total the client displayed. It is advisory only.
	ClientTotal decimal.NullDecimal
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the order event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMeterProvider sets the meter provider for order metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider for order spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service encapsulates order placement and lifecycle logic.
type Service struct {
	products  ProductResolver
	addresses customer.AddressBook
	coupons   CouponEvaluator
	orders    Repository
	publisher Publisher
	now       func() time.Time

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	placed         metric.Int64Counter
	rejected       metric.Int64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products ProductResolver,
	addresses customer.AddressBook,
	coupons CouponEvaluator,
	orders Repository,
	opts ...Option,
) *Service {
	s := &Service{
		products:       products,
		addresses:      addresses,
		coupons:        coupons,
		orders:         orders,
		publisher:      NopPublisher{},
		now:            time.Now,
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	meter := s.meterProvider.Meter(instrumentationName)

	var err error
	if s.placed, err = meter.Int64Counter("storefront.orders.placed",
		metric.WithDescription("Orders committed"),
	); err != nil {
		s.placed = metricnoop.Int64Counter{}
	}
	if s.rejected, err = meter.Int64Counter("storefront.orders.rejected",
		metric.WithDescription("Order placements rejected, by reason"),
	); err != nil {
		s.rejected = metricnoop.Int64Counter{}
	}
	return s
}

// PlaceOrder validates the cart, prices it, applies an optional coupon and
// commits the order together with its stock decrements.
//
// Every line is resolved and stock-checked before anything is written. The
// persisted total is always computed from current product prices.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Place",
		trace.WithAttributes(attribute.Int("order.lines", len(req.Lines))),
	)
	defer span.End()

	o, err := s.placeOrder(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectReason(err))))
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", o.ID))
	s.placed.Add(ctx, 1)
	s.publish(ctx, EventPlaced, o)

	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.String("total", o.TotalAmount.StringFixed(2)),
		zap.String("coupon", o.CouponCode),
	)
	return o, nil
}

func (s *Service) placeOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	lines := make([]Line, len(req.Lines))
	for i, line := range req.Lines {
		line.Product = strings.TrimSpace(line.Product)
		if line.Product == "" {
			return nil, ErrMissingProduct
		}
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{Identifier: line.Product, Quantity: line.Quantity}
		}
		lines[i] = line
	}

	addr, err := s.resolveAddress(ctx, req)
	if err != nil {
		return nil, err
	}

	items, reservations, err := s.resolveLines(ctx, lines)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	subtotal = subtotal.Round(2)

	discount := decimal.Zero
	couponCode := ""
	if strings.TrimSpace(req.CouponCode) != "" {
		eval, err := s.coupons.Evaluate(ctx, req.CouponCode, subtotal)
		if err != nil {
			return nil, err
		}
		discount = eval.Discount
		couponCode = eval.Code
	}
	total := coupon.FinalTotal(subtotal, discount)

	if req.ClientTotal.Valid && !req.ClientTotal.Decimal.Round(2).Equal(total) {
		zctx.From(ctx).Warn("Client total differs from computed total",
			zap.String("client_total", req.ClientTotal.Decimal.String()),
			zap.String("computed_total", total.StringFixed(2)),
		)
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = PaymentMethodCOD
	}
	payment := PaymentPaid
	if method == PaymentMethodCOD {
		payment = PaymentPending
	}

	now := s.now().UTC()
	o := &Order{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		Items:           items,
		ShippingAddress: addr,
		Subtotal:        subtotal,
		Discount:        discount,
		TotalAmount:     total,
		CouponCode:      couponCode,
		PaymentMethod:   method,
		PaymentStatus:   payment,
		DeliveryStatus:  DeliveryProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.Place(ctx, o, reservations, couponCode); err != nil {
		var conflict *StockConflictError
		if errors.As(err, &conflict) {
			return nil, s.stockError(ctx, conflict.ProductID, items, reservations)
		}
		if errors.Is(err, coupon.ErrUsageLimitReached) {
			return nil, coupon.ErrUsageLimitReached
		}
		return nil, errors.Wrap(err, "place order")
	}
	return o, nil
}

// resolveAddress picks the explicit address when it carries a street and
// falls back to the address saved on the user profile.
func (s *Service) resolveAddress(ctx context.Context, req PlaceOrderRequest) (Address, error) {
	if req.ShippingAddress != nil && strings.TrimSpace(req.ShippingAddress.Address) != "" {
		return *req.ShippingAddress, nil
	}

	saved, err := s.addresses.ShippingAddress(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, customer.ErrAddressNotFound) {
			return Address{}, ErrMissingAddress
		}
		return Address{}, errors.Wrap(err, "get saved address")
	}
	if !saved.HasStreet() {
		return Address{}, ErrMissingAddress
	}

	return Address{
		FullName:   saved.FullName(),
		Address:    saved.Address,
		City:       saved.City,
		State:      saved.State,
		PostalCode: saved.PostalCode,
		Country:    saved.Country,
		Email:      saved.Email,
		Phone:      saved.Phone,
	}, nil
}

// resolveLines resolves each line in order and checks the running quantity
// per product against stock before moving to the next line.
func (s *Service) resolveLines(ctx context.Context, lines []Line) ([]Item, []Reservation, error) {
	items := make([]Item, 0, len(lines))
	requested := make(map[string]int, len(lines))
	var seq []string

	for _, line := range lines {
		p, err := s.products.Resolve(ctx, line.Product)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return nil, nil, &ProductNotFoundError{Identifier: line.Product}
			}
			return nil, nil, errors.Wrap(err, "resolve product")
		}

		if _, seen := requested[p.ID]; !seen {
			seq = append(seq, p.ID)
		}
		requested[p.ID] += line.Quantity
		if qty := requested[p.ID]; !p.InStock(qty) {
			return nil, nil, &InsufficientStockError{
				ProductID: p.ID,
				Title:     p.Title,
				Available: p.Stock,
				Requested: qty,
			}
		}

		items = append(items, Item{
			ProductID: p.ID,
			Title:     p.Title,
			Quantity:  line.Quantity,
			Price:     p.Price.Amount,
		})
	}

	reservations := make([]Reservation, 0, len(seq))
	for _, id := range seq {
		reservations = append(reservations, Reservation{ProductID: id, Quantity: requested[id]})
	}
	return items, reservations, nil
}

// stockError reports a commit-time stock conflict as insufficient stock,
// refreshing the available count when possible.
func (s *Service) stockError(ctx context.Context, productID string, items []Item, reservations []Reservation) error {
	e := &InsufficientStockError{ProductID: productID, Title: productID}
	for _, item := range items {
		if item.ProductID == productID {
			e.Title = item.Title
			break
		}
	}
	for _, r := range reservations {
		if r.ProductID == productID {
			e.Requested = r.Quantity
			break
		}
	}
	if p, err := s.products.Resolve(ctx, productID); err == nil {
		e.Available = p.Stock
	}
	return e
}

func (s *Service) publish(ctx context.Context, typ EventType, o *Order) {
	e := Event{Type: typ, Order: *o, OccurredAt: s.now().UTC()}
	// Events of committed orders outlive the request.
	if err := s.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		zctx.From(ctx).Error("Publish order event",
			zap.String("type", string(typ)),
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}

func rejectReason(err error) string {
	var (
		stockErr    *InsufficientStockError
		notFoundErr *ProductNotFoundError
		qtyErr      *InvalidQuantityError
		minErr      *coupon.BelowMinimumError
	)
	switch {
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrMissingProduct), errors.As(err, &qtyErr):
		return "invalid_cart"
	case errors.Is(err, ErrMissingAddress):
		return "missing_address"
	case errors.As(err, &notFoundErr):
		return "product_not_found"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.Is(err, coupon.ErrInvalidCoupon), errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrUsageLimitReached), errors.As(err, &minErr):
		return "coupon"
	default:
		return "internal"
	}
}
