package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/furniture-store/internal/domain/auth"
	"github.com/xenking/furniture-store/internal/domain/coupon"
	"github.com/xenking/furniture-store/internal/domain/customer"
	"github.com/xenking/furniture-store/internal/domain/order"
	"github.com/xenking/furniture-store/internal/domain/product"
	"github.com/xenking/furniture-store/internal/storage/memory"
	"github.com/xenking/furniture-store/internal/storage/mongodb"
	"github.com/xenking/furniture-store/internal/storage/postgres"
	"github.com/xenking/furniture-store/pkg/health"
)

// Storage bundles the repositories of one storage driver.
type Storage struct {
	Products  product.Repository
	Coupons   coupon.Repository
	Orders    order.Repository
	Customers customer.Repository
	APIKeys   auth.Store

	pinger health.Pinger
	close  func(ctx context.Context) error
}

// Ping reports whether the backing store is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pinger.Ping(ctx)
}

// Close releases the driver's connections.
func (s *Storage) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// OpenStorage connects the configured driver and prepares its schema.
func OpenStorage(ctx context.Context, cfg StorageConfig) (*Storage, error) {
	lg := zctx.From(ctx).With(zap.String("driver", cfg.Driver))

	switch cfg.Driver {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		lg.Info("Storage ready")
		return &Storage{
			Products:  postgres.NewProductRepository(pool),
			Coupons:   postgres.NewCouponRepository(pool),
			Orders:    postgres.NewOrderRepository(pool),
			Customers: postgres.NewCustomerRepository(pool),
			APIKeys:   postgres.NewAPIKeyRepository(pool),
			pinger:    pingFunc(pool.Ping),
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case DriverMongo:
		store, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, errors.Wrap(err, "connect mongo")
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, errors.Wrap(err, "ensure indexes")
		}
		lg.Info("Storage ready", zap.String("database", cfg.MongoDatabase))
		return &Storage{
			Products:  store.Products(),
			Coupons:   store.Coupons(),
			Orders:    store.Orders(),
			Customers: store.Customers(),
			APIKeys:   store.APIKeys(),
			pinger:    store,
			close:     store.Close,
		}, nil

	case DriverMemory:
		store := memory.New()
		lg.Warn("Using in-memory storage, data is lost on restart")
		return &Storage{
			Products:  store.Products(),
			Coupons:   store.Coupons(),
			Orders:    store.Orders(),
			Customers: store.Customers(),
			APIKeys:   store.APIKeys(),
			pinger:    store,
		}, nil
	}
	return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
}
