package memory

import (
	"context"
	"slices"

	"github.com/xenking/furniture-store/internal/domain/auth"
)

var _ auth.Store = (*APIKeyRepository)(nil)

// APIKeyRepository implements auth.Store in memory.
type APIKeyRepository struct {
	s *Store
}

func (r *APIKeyRepository) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	info, ok := r.s.apiKeys[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	info.Scopes = slices.Clone(info.Scopes)
	return &info, nil
}

func (r *APIKeyRepository) SaveAPIKey(_ context.Context, info *auth.APIKeyInfo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for hash, k := range r.s.apiKeys {
		if k.ID == info.ID {
			delete(r.s.apiKeys, hash)
		}
	}
	stored := *info
	stored.Scopes = slices.Clone(info.Scopes)
	r.s.apiKeys[info.KeyHash] = stored
	return nil
}
