package order_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/furniture-store/internal/domain/coupon"
	"github.com/xenking/furniture-store/internal/domain/customer"
	"github.com/xenking/furniture-store/internal/domain/order"
	"github.com/xenking/furniture-store/internal/domain/product"
	"github.com/xenking/furniture-store/internal/storage/memory"
)

const userID = "user-1"

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []order.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e order.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []order.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]order.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store     *memory.Store
	svc       *order.Service
	publisher *recordingPublisher
}

func newFixture(t *testing.T, opts ...order.Option) *fixture {
	t.Helper()

	store := memory.New()
	pub := &recordingPublisher{}
	opts = append([]order.Option{
		order.WithPublisher(pub),
		order.WithClock(func() time.Time { return fixedNow }),
	}, opts...)

	svc := order.NewService(
		product.NewResolver(store.Products()),
		store.Customers(),
		coupon.NewEvaluator(store.Coupons()),
		store.Orders(),
		opts...,
	)
	return &fixture{store: store, svc: svc, publisher: pub}
}

func (f *fixture) addProduct(t *testing.T, slug string, price string, stock int) product.Product {
	t.Helper()
	p := product.Product{
		ID:         product.NewID(),
		Slug:       slug,
		Title:      slug,
		Price:      product.Price{Amount: decimal.RequireFromString(price), Currency: product.DefaultCurrency},
		CategoryID: "living-room",
		Stock:      stock,
		Active:     true,
		CreatedAt:  fixedNow,
	}
	require.NoError(t, f.store.Products().Create(context.Background(), &p))
	return p
}

func (f *fixture) addCoupon(t *testing.T, c coupon.Coupon) {
	t.Helper()
	if c.ID == "" {
		c.ID = c.Code
	}
	if c.ExpiryDate.IsZero() {
		c.ExpiryDate = time.Now().Add(24 * time.Hour)
	}
	c.Active = true
	require.NoError(t, f.store.Coupons().Create(context.Background(), &c))
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func explicitAddress() *order.Address {
	return &order.Address{
		FullName:   "Ada Lovelace",
		Address:    "1 Analytical Way",
		City:       "London",
		PostalCode: "N1",
		Country:    "UK",
		Email:      "ada@example.com",
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sofa := f.addProduct(t, "linen-sofa", "499.99", 5)
	lamp := f.addProduct(t, "arc-lamp", "80.00", 3)

	o, err := f.svc.PlaceOrder(ctx, order.PlaceOrderRequest{
		UserID: userID,
		Lines: []order.Line{
			{Product: sofa.ID, Quantity: 2},
			{Product: "arc-lamp", Quantity: 1},
		},
		ShippingAddress: explicitAddress(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, userID, o.UserID)
	require.Len(t, o.Items, 2)
	assert.Equal(t, lamp.ID, o.Items[1].ProductID, "slug resolves to durable id")
	assert.True(t, decimal.RequireFromString("1079.98").Equal(o.Subtotal))
	assert.True(t, o.Subtotal.Equal(o.TotalAmount))
	assert.True(t, o.Discount.IsZero())
	assert.Equal(t, order.PaymentMethodCOD, o.PaymentMethod)
	assert.Equal(t, order.PaymentPending, o.PaymentStatus)
	assert.Equal(t, order.DeliveryProcessing, o.DeliveryStatus)
	assert.Equal(t, fixedNow, o.CreatedAt)

	assert.Equal(t, 3, f.stock(t, sofa.ID))
	assert.Equal(t, 2, f.stock(t, lamp.ID))
	assert.Equal(t, []order.EventType{order.EventPlaced}, f.publisher.types())

	stored, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, o.TotalAmount.Equal(stored.TotalAmount))
}

func TestPlaceOrder_PaidMethod(t *testing.T) {
	f := newFixture(t)
	chair := f.addProduct(t, "desk-chair", "120", 1)

	o, err := f.svc.PlaceOrder(context.Background(), order.PlaceOrderRequest{
		UserID:          userID,
		Lines:           []order.Line{{Product: chair.ID, Quantity: 1}},
		ShippingAddress: explicitAddress(),
		PaymentMethod:   "Card",
	})
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, o.PaymentStatus)
}

func TestPlaceOrder_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	table := f.addProduct(t, "oak-table", "300", 2)

	for _, tt := range []struct {
		name  string
		req   order.PlaceOrderRequest
		check func(t *testing.T, err error)
	}{
		{
			name: "EmptyCart",
			req:  order.PlaceOrderRequest{UserID: userID, ShippingAddress: explicitAddress()},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, order.ErrEmptyCart)
			},
		},
		{
			name: "BlankIdentifier",
			req: order.PlaceOrderRequest{
				UserID:          userID,
				Lines:           []order.Line{{Product: "  ", Quantity: 1}},
				ShippingAddress: explicitAddress(),
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, order.ErrMissingProduct)
			},
		},
		{
			name: "ZeroQuantity",
			req: order.PlaceOrderRequest{
				UserID:          userID,
				Lines:           []order.Line{{Product: table.ID, Quantity: 0}},
				ShippingAddress: explicitAddress(),
			},
			check: func(t *testing.T, err error) {
				var qtyErr *order.InvalidQuantityError
				assert.ErrorAs(t, err, &qtyErr)
			},
		},
		{
			name: "MissingAddress",
			req: order.PlaceOrderRequest{
				UserID: userID,
				Lines:  []order.Line{{Product: table.ID, Quantity: 1}},
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, order.ErrMissingAddress)
			},
		},
		{
			name: "UnknownProduct",
			req: order.PlaceOrderRequest{
				UserID:          userID,
				Lines:           []order.Line{{Product: "no-such-thing", Quantity: 1}},
				ShippingAddress: explicitAddress(),
			},
			check: func(t *testing.T, err error) {
				var nf *order.ProductNotFoundError
				require.ErrorAs(t, err, &nf)
				assert.Equal(t, "no-such-thing", nf.Identifier)
			},
		},
		{
			name: "ShortStockBeforeUnknownProduct",
			req: order.PlaceOrderRequest{
				UserID: userID,
				Lines: []order.Line{
					{Product: table.Slug, Quantity: 5},
					{Product: "no-such-chair", Quantity: 1},
				},
				ShippingAddress: explicitAddress(),
			},
			check: func(t *testing.T, err error) {
				var stockErr *order.InsufficientStockError
				require.ErrorAs(t, err, &stockErr)
				assert.Equal(t, table.ID, stockErr.ProductID)
				assert.EqualError(t, err, "insufficient stock for: oak-table (requested 5, available 2)")
			},
		},
		{
			name: "InvalidCoupon",
			req: order.PlaceOrderRequest{
				UserID:          userID,
				Lines:           []order.Line{{Product: table.ID, Quantity: 1}},
				ShippingAddress: explicitAddress(),
				CouponCode:      "NOPE",
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, coupon.ErrInvalidCoupon)
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.PlaceOrder(ctx, tt.req)
			require.Error(t, err)
			tt.check(t, err)
		})
	}

	assert.Equal(t, 2, f.stock(t, table.ID), "rejected orders leave stock untouched")
	orders, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrder_InsufficientStockIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.addProduct(t, "bookshelf", "150", 10)
	b := f.addProduct(t, "side-table", "60", 1)

	_, err := f.svc.PlaceOrder(ctx, order.PlaceOrderRequest{
		UserID: userID,
		Lines: []order.Line{
			{Product: a.ID, Quantity: 3},
			{Product: b.ID, Quantity: 2},
		},
		ShippingAddress: explicitAddress(),
	})

	var stockErr *order.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, b.ID, stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)

	assert.Equal(t, 10, f.stock(t, a.ID))
	assert.Equal(t, 1, f.stock(t, b.ID))
	assert.Empty(t, f.publisher.types())
}

func TestPlaceOrder_AggregatesDuplicateLines(t *testing.T) {
	f := newFixture(t)
	stool := f.addProduct(t, "bar-stool", "45", 3)

	// 2 by id + 2 by slug exceeds stock even though each line fits.
	_, err := f.svc.PlaceOrder(context.Background(), order.PlaceOrderRequest{
		UserID: userID,
		Lines: []order.Line{
			{Product: stool.ID, Quantity: 2},
			{Product: "bar-stool", Quantity: 2},
		},
		ShippingAddress: explicitAddress(),
	})

	var stockErr *order.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 4, stockErr.Requested)
	assert.Equal(t, 3, f.stock(t, stool.ID))
}

func TestPlaceOrder_SavedAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rug := f.addProduct(t, "wool-rug", "210", 4)

	require.NoError(t, f.store.Customers().SaveShippingAddress(ctx, userID, customer.Address{
		FirstName: "Grace",
		LastName:  "Hopper",
		Address:   "7 Compiler Rd",
		City:      "Arlington",
		Country:   "US",
	}))

	o, err := f.svc.PlaceOrder(ctx, order.PlaceOrderRequest{
		UserID: userID,
		Lines:  []order.Line{{Product: rug.ID, Quantity: 1}},
		// No street, so the saved address is used.
		ShippingAddress: &order.Address{City: "Elsewhere"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", o.ShippingAddress.FullName)
	assert.Equal(t, "7 Compiler Rd", o.ShippingAddress.Address)

	o, err = f.svc.PlaceOrder(ctx, order.PlaceOrderRequest{
		UserID:          userID,
		Lines:           []order.Line{{Product: rug.ID, Quantity: 1}},
		ShippingAddress: explicitAddress(),
	})
	require.NoError(t, err)
	assert.Equal(t, "1 Analytical Way", o.ShippingAddress.Address, "explicit address wins")
}

func TestPlaceOrder_Coupon(t *testing.T) {
	ctx := context.Background()

	for _, tt := range []struct {
		name     string
		price    string
		discount string
		total    string
	}{
		{name: "Capped", price: "1000", discount: "100", total: "900"},
		{name: "UnderCap", price: "300", discount: "60", total: "240"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.addProduct(t, "armchair", tt.price, 2)
			f.addCoupon(t, coupon.Coupon{
				Code:          "SAVE20",
				DiscountType:  coupon.DiscountPercentage,
				DiscountValue: decimal.NewFromInt(20),
				MaxDiscount:   decimal.NewNullDecimal(decimal.NewFromInt(100)),
			})

			o, err := f.svc.PlaceOrder(ctx, order.PlaceOrderRequest{
				UserID:          userID,
				Lines:           []order.Line{{Product: p.ID, Quantity: 1}},
				ShippingAddress: explicitAddress(),
				CouponCode:      " save20 ",
				ClientTotal:     decimal.NewNullDecimal(decimal.NewFromInt(1)),
			})
			require.NoError(t, err)
			assert.Equal(t, "SAVE20", o.CouponCode)
			assert.Equal(t, tt.discount, o.Discount.String())
			assert.Equal(t, tt.total, o.TotalAmount.String(), "client total is advisory")

			c, err := f.store.Coupons().FindByCode(ctx, "SAVE20")
			require.NoError(t, err)
			assert.Equal(t, 1, c.Uses)
		})
	}
}

func TestPlaceOrder_CouponUsageLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.addProduct(t, "floor-mirror", "90", 5)
	f.addCoupon(t, coupon.Coupon{
		Code:          "ONCE",
		DiscountType:  coupon.DiscountFlat,
		DiscountValue: decimal.NewFromInt(10),
		MaxUsage:      1,
	})

	req := order.PlaceOrderRequest{
		UserID:          userID,
		Lines:           []order.Line{{Product: p.ID, Quantity: 1}},
		ShippingAddress: explicitAddress(),
		CouponCode:      "ONCE",
	}
	o, err := f.svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "80", o.TotalAmount.String())

	_, err = f.svc.PlaceOrder(ctx, req)
	require.ErrorIs(t, err, coupon.ErrUsageLimitReached)
	assert.Equal(t, 4, f.stock(t, p.ID))
}

type conflictRepo struct {
	*memory.OrderRepository
	onPlace func()
}

func (r *conflictRepo) Place(ctx context.Context, o *order.Order, res []order.Reservation, code string) error {
	r.onPlace()
	return r.OrderRepository.Place(ctx, o, res, code)
}

func TestPlaceOrder_StockConflictAtCommit(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := &conflictRepo{OrderRepository: store.Orders()}
	svc := order.NewService(
		product.NewResolver(store.Products()),
		store.Customers(),
		coupon.NewEvaluator(store.Coupons()),
		repo,
	)

	p := product.Product{
		ID:    product.NewID(),
		Slug:  "dresser",
		Title: "Dresser",
		Price: product.Price{Amount: decimal.NewFromInt(400), Currency: product.DefaultCurrency},
		Stock: 2,
	}
	require.NoError(t, store.Products().Create(ctx, &p))

	// A concurrent buyer takes stock between validation and commit.
	repo.onPlace = func() {
		p.Stock = 0
		require.NoError(t, store.Products().Update(ctx, &p))
	}

	_, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{
		UserID:          userID,
		Lines:           []order.Line{{Product: p.ID, Quantity: 2}},
		ShippingAddress: explicitAddress(),
	})

	var stockErr *order.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Dresser", stockErr.Title)
	assert.Equal(t, 0, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)
}

func TestPlaceOrder_ConcurrentBuyers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.addProduct(t, "last-lamp", "35", 5)

	const buyers = 20
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		stockErrs atomic.Int32
	)
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PlaceOrder(ctx, order.PlaceOrderRequest{
				UserID:          userID,
				Lines:           []order.Line{{Product: p.ID, Quantity: 1}},
				ShippingAddress: explicitAddress(),
			})
			var stockErr *order.InsufficientStockError
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.As(err, &stockErr):
				stockErrs.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 5, succeeded.Load())
	assert.EqualValues(t, buyers-5, stockErrs.Load())
	assert.Equal(t, 0, f.stock(t, p.ID))
}
