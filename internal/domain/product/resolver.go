package product

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// Resolver turns a client-supplied identifier into a product. The identifier
// may be a durable id or a slug; ids are tried first.
type Resolver struct {
	lookup Lookup
}

// NewResolver creates a Resolver reading from lookup.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the product matching identifier or a *NotFoundError.
// Storage failures other than "not found" are returned wrapped.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*Product, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, &NotFoundError{Identifier: identifier}
	}

	if IsID(identifier) {
		p, err := r.lookup.GetByID(ctx, identifier)
		switch {
		case err == nil:
			return p, nil
		case !errors.Is(err, ErrNotFound):
			return nil, errors.Wrapf(err, "get product %q", identifier)
		}
	}

	p, err := r.lookup.GetBySlug(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Identifier: identifier}
		}
		return nil, errors.Wrapf(err, "get product by slug %q", identifier)
	}
	return p, nil
}
