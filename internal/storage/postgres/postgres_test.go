//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/furniture-store/internal/domain/coupon"
	"github.com/xenking/furniture-store/internal/domain/order"
	"github.com/xenking/furniture-store/internal/domain/product"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "store",
				"POSTGRES_PASSWORD": "store",
				"POSTGRES_DB":       "store",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	testcontainers.CleanupContainer(t, ctr)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://store:store@%s:%s/store?sslmode=disable", host, port.Port())
	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func testProduct(slug string, stock int) *product.Product {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &product.Product{
		ID:         product.NewID(),
		Slug:       slug,
		Title:      slug,
		Brand:      "Nordic",
		Price:      product.Price{Amount: decimal.RequireFromString("249.50"), Currency: product.DefaultCurrency},
		CategoryID: "bedroom",
		Images:     []string{"a.jpg"},
		Tags:       []string{"wood"},
		Stock:      stock,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestPostgres(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	products := NewProductRepository(pool)
	coupons := NewCouponRepository(pool)
	orders := NewOrderRepository(pool)

	t.Run("ProductSlugUnique", func(t *testing.T) {
		p := testProduct("night-stand", 3)
		require.NoError(t, products.Create(ctx, p))

		dup := testProduct("night-stand", 1)
		require.ErrorIs(t, products.Create(ctx, dup), product.ErrSlugTaken)

		got, err := products.GetBySlug(ctx, "night-stand")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.True(t, p.Price.Amount.Equal(got.Price.Amount))
		assert.Equal(t, []string{"wood"}, got.Tags)

		_, err = products.GetByID(ctx, product.NewID())
		require.ErrorIs(t, err, product.ErrNotFound)
	})

	t.Run("ListFilters", func(t *testing.T) {
		cheap := testProduct("pine-stool", 0)
		cheap.Price.Amount = decimal.NewFromInt(20)
		require.NoError(t, products.Create(ctx, cheap))

		page, total, err := products.List(ctx, product.Filter{
			CategoryID: "bedroom",
			InStock:    true,
			Sort:       product.SortPriceAsc,
			Limit:      10,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, page, 1)
		assert.Equal(t, "night-stand", page[0].Slug)

		found, err := products.Search(ctx, "PINE", 10)
		require.NoError(t, err)
		require.Len(t, found, 1)

		brands, err := products.Brands(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Nordic"}, brands)
	})

	t.Run("PlaceIsAtomic", func(t *testing.T) {
		a := testProduct("wardrobe", 5)
		b := testProduct("mirror", 1)
		require.NoError(t, products.Create(ctx, a))
		require.NoError(t, products.Create(ctx, b))

		o := &order.Order{
			ID:             product.NewID(),
			UserID:         "u1",
			Subtotal:       decimal.NewFromInt(10),
			TotalAmount:    decimal.NewFromInt(10),
			PaymentMethod:  order.PaymentMethodCOD,
			PaymentStatus:  order.PaymentPending,
			DeliveryStatus: order.DeliveryProcessing,
			CreatedAt:      time.Now().UTC(),
			UpdatedAt:      time.Now().UTC(),
		}
		err := orders.Place(ctx, o, []order.Reservation{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 2},
		}, "")
		var conflict *order.StockConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, b.ID, conflict.ProductID)

		got, err := products.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.Stock, "first decrement rolled back")

		_, err = orders.GetByID(ctx, o.ID)
		require.ErrorIs(t, err, order.ErrOrderNotFound)
	})

	t.Run("ConcurrentPlace", func(t *testing.T) {
		p := testProduct("last-chair", 3)
		require.NoError(t, products.Create(ctx, p))

		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			placed int
		)
		for i := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				o := &order.Order{
					ID:             fmt.Sprintf("concurrent-%d", i),
					UserID:         "u2",
					PaymentMethod:  order.PaymentMethodCOD,
					PaymentStatus:  order.PaymentPending,
					DeliveryStatus: order.DeliveryProcessing,
					CreatedAt:      time.Now().UTC(),
					UpdatedAt:      time.Now().UTC(),
				}
				err := orders.Place(ctx, o, []order.Reservation{{ProductID: p.ID, Quantity: 1}}, "")
				var conflict *order.StockConflictError
				if err == nil {
					mu.Lock()
					placed++
					mu.Unlock()
				} else if !errors.As(err, &conflict) {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 3, placed)
		got, err := products.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Stock)
	})

	t.Run("CouponRedemption", func(t *testing.T) {
		c := &coupon.Coupon{
			ID:            "c-once",
			Code:          "ONCE",
			DiscountType:  coupon.DiscountFlat,
			DiscountValue: decimal.NewFromInt(5),
			ExpiryDate:    time.Now().Add(time.Hour),
			Active:        true,
			MaxUsage:      1,
		}
		require.NoError(t, coupons.Create(ctx, c))
		require.ErrorIs(t, coupons.Create(ctx, c), coupon.ErrCodeTaken)

		p := testProduct("coupon-lamp", 10)
		require.NoError(t, products.Create(ctx, p))

		place := func(id string) error {
			o := &order.Order{
				ID:             id,
				UserID:         "u3",
				CouponCode:     "ONCE",
				PaymentMethod:  order.PaymentMethodCOD,
				PaymentStatus:  order.PaymentPending,
				DeliveryStatus: order.DeliveryProcessing,
				CreatedAt:      time.Now().UTC(),
				UpdatedAt:      time.Now().UTC(),
			}
			return orders.Place(ctx, o, []order.Reservation{{ProductID: p.ID, Quantity: 1}}, "once")
		}
		require.NoError(t, place("coupon-1"))
		require.ErrorIs(t, place("coupon-2"), coupon.ErrUsageLimitReached)

		got, err := coupons.FindByCode(ctx, "once")
		require.NoError(t, err)
		assert.Equal(t, 1, got.Uses)
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		o, err := orders.GetByID(ctx, "coupon-1")
		require.NoError(t, err)

		now := time.Now().UTC()
		o.DeliveryStatus = order.DeliveryDelivered
		o.DeliveryDate = &now
		require.NoError(t, orders.UpdateStatus(ctx, o, order.DeliveryProcessing))
		require.ErrorIs(t, orders.UpdateStatus(ctx, o, order.DeliveryProcessing), order.ErrStatusChanged)

		o.ID = "missing"
		require.ErrorIs(t, orders.UpdateStatus(ctx, o, order.DeliveryProcessing), order.ErrOrderNotFound)
	})
}
