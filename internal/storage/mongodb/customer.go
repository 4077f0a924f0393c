package mongodb

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/furniture-store/internal/domain/customer"
)

type shippingDoc struct {
	UserID     string `bson:"_id"`
	FirstName  string `bson:"first_name"`
	LastName   string `bson:"last_name"`
	Address    string `bson:"address"`
	City       string `bson:"city"`
	State      string `bson:"state"`
	PostalCode string `bson:"postal_code"`
	Country    string `bson:"country"`
	Email      string `bson:"email"`
	Phone      string `bson:"phone"`
}

type cartDoc struct {
	UserID    string    `bson:"user_id"`
	ProductID string    `bson:"product_id"`
	Quantity  int       `bson:"quantity"`
	AddedAt   time.Time `bson:"added_at"`
}

type wishlistDoc struct {
	UserID    string    `bson:"user_id"`
	ProductID string    `bson:"product_id"`
	AddedAt   time.Time `bson:"added_at"`
}

var addedSort = bson.D{{Key: "added_at", Value: 1}, {Key: "product_id", Value: 1}}

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository on MongoDB collections.
type CustomerRepository struct {
	addresses *mongo.Collection
	cart      *mongo.Collection
	wishlist  *mongo.Collection
}

func (r *CustomerRepository) ShippingAddress(ctx context.Context, userID string) (*customer.Address, error) {
	var d shippingDoc
	if err := r.addresses.FindOne(ctx, bson.M{"_id": userID}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, customer.ErrAddressNotFound
		}
		return nil, errors.Wrap(err, "get shipping address")
	}
	return &customer.Address{
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		Address:    d.Address,
		City:       d.City,
		State:      d.State,
		PostalCode: d.PostalCode,
		Country:    d.Country,
		Email:      d.Email,
		Phone:      d.Phone,
	}, nil
}

func (r *CustomerRepository) SaveShippingAddress(ctx context.Context, userID string, a customer.Address) error {
	doc := shippingDoc{
		UserID:     userID,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Address:    a.Address,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Email:      a.Email,
		Phone:      a.Phone,
	}
	_, err := r.addresses.ReplaceOne(ctx, bson.M{"_id": userID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(err, "save shipping address")
	}
	return nil
}

func (r *CustomerRepository) CartItems(ctx context.Context, userID string) ([]customer.CartItem, error) {
	cur, err := r.cart.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(addedSort))
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	var docs []cartDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	items := make([]customer.CartItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, customer.CartItem{ProductID: d.ProductID, Quantity: d.Quantity, AddedAt: d.AddedAt})
	}
	return items, nil
}

func (r *CustomerRepository) PutCartItem(ctx context.Context, userID string, item customer.CartItem) error {
	_, err := r.cart.UpdateOne(ctx,
		bson.M{"user_id": userID, "product_id": item.ProductID},
		bson.M{
			"$set":         bson.M{"quantity": item.Quantity},
			"$setOnInsert": bson.M{"added_at": item.AddedAt},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errors.Wrap(err, "put cart item")
	}
	return nil
}

func (r *CustomerRepository) RemoveCartItem(ctx context.Context, userID, productID string) error {
	res, err := r.cart.DeleteOne(ctx, bson.M{"user_id": userID, "product_id": productID})
	if err != nil {
		return errors.Wrap(err, "remove cart item")
	}
	if res.DeletedCount == 0 {
		return customer.ErrNotInCart
	}
	return nil
}

func (r *CustomerRepository) WishlistItems(ctx context.Context, userID string) ([]customer.WishlistItem, error) {
	cur, err := r.wishlist.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(addedSort))
	if err != nil {
		return nil, errors.Wrap(err, "list wishlist")
	}
	var docs []wishlistDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode wishlist")
	}
	items := make([]customer.WishlistItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, customer.WishlistItem{ProductID: d.ProductID, AddedAt: d.AddedAt})
	}
	return items, nil
}

func (r *CustomerRepository) AddWishlistItem(ctx context.Context, userID string, item customer.WishlistItem) error {
	_, err := r.wishlist.UpdateOne(ctx,
		bson.M{"user_id": userID, "product_id": item.ProductID},
		bson.M{"$setOnInsert": bson.M{"added_at": item.AddedAt}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errors.Wrap(err, "add wishlist item")
	}
	return nil
}

func (r *CustomerRepository) RemoveWishlistItem(ctx context.Context, userID, productID string) error {
	if _, err := r.wishlist.DeleteOne(ctx, bson.M{"user_id": userID, "product_id": productID}); err != nil {
		return errors.Wrap(err, "remove wishlist item")
	}
	return nil
}
