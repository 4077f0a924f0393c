package mongodb

import (
	"context"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/furniture-store/internal/domain/auth"
)

type apiKeyDoc struct {
	ID      string   `bson:"_id"`
	KeyHash string   `bson:"key_hash"`
	Name    string   `bson:"name"`
	Scopes  []string `bson:"scopes"`
	Active  bool     `bson:"active"`
}

var _ auth.Store = (*APIKeyRepository)(nil)

// APIKeyRepository implements auth.Store on a MongoDB collection.
type APIKeyRepository struct {
	coll *mongo.Collection
}

func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	var d apiKeyDoc
	if err := r.coll.FindOne(ctx, bson.M{"key_hash": hash, "active": true}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "find api key by hash")
	}
	return &auth.APIKeyInfo{ID: d.ID, KeyHash: d.KeyHash, Name: d.Name, Scopes: d.Scopes}, nil
}

func (r *APIKeyRepository) SaveAPIKey(ctx context.Context, info *auth.APIKeyInfo) error {
	doc := apiKeyDoc{ID: info.ID, KeyHash: info.KeyHash, Name: info.Name, Scopes: info.Scopes, Active: true}
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"_id": info.ID}, doc, options.Replace().SetUpsert(true)); err != nil {
		return errors.Wrapf(err, "save api key %q", info.ID)
	}
	return nil
}
