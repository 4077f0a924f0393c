// Package mongodb implements the storage repositories on MongoDB.
//
// Order placement does not require a replica set: stock and coupon updates
// are conditional single-document writes, and a failed placement undoes the
// writes it already made.
package mongodb

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection  = "products"
	couponsCollection   = "coupons"
	ordersCollection    = "orders"
	addressesCollection = "shipping_addresses"
	cartCollection      = "cart_items"
	wishlistCollection  = "wishlist_items"
	apiKeysCollection   = "api_keys"
)

// Store is a MongoDB database handle.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and pings the server.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetTimeout(10*time.Second))
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping")
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// EnsureIndexes creates the unique and lookup indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	for coll, models := range map[string][]mongo.IndexModel{
		productsCollection: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "category_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		couponsCollection: {{Keys: bson.D{{Key: "code", Value: 1}}, Options: unique}},
		ordersCollection:  {{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}}},
		cartCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "product_id", Value: 1}}, Options: unique},
		},
		wishlistCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "product_id", Value: 1}}, Options: unique},
		},
		apiKeysCollection: {{Keys: bson.D{{Key: "key_hash", Value: 1}}, Options: unique}},
	} {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "create %s indexes", coll)
		}
	}
	return nil
}

// Products returns the product repository.
func (s *Store) Products() *ProductRepository {
	return &ProductRepository{coll: s.db.Collection(productsCollection)}
}

// Coupons returns the coupon repository.
func (s *Store) Coupons() *CouponRepository {
	return &CouponRepository{coll: s.db.Collection(couponsCollection)}
}

// Orders returns the order repository.
func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{
		orders:   s.db.Collection(ordersCollection),
		products: s.db.Collection(productsCollection),
		coupons:  s.db.Collection(couponsCollection),
	}
}

// Customers returns the customer repository.
func (s *Store) Customers() *CustomerRepository {
	return &CustomerRepository{
		addresses: s.db.Collection(addressesCollection),
		cart:      s.db.Collection(cartCollection),
		wishlist:  s.db.Collection(wishlistCollection),
	}
}

// APIKeys returns the API key repository.
func (s *Store) APIKeys() *APIKeyRepository {
	return &APIKeyRepository{coll: s.db.Collection(apiKeysCollection)}
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
