package product

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is applied to prices created without an explicit currency.
const DefaultCurrency = "USD"

var (
	// ErrNotFound is returned by repositories when a product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrSlugTaken is returned when a slug is already used by another product.
	ErrSlugTaken = errors.New("slug already exists")
)

// NotFoundError reports the identifier that could not be resolved to a product.
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.Identifier)
}

// Is makes NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Price is a monetary amount in a given currency.
type Price struct {
	Amount   decimal.Decimal
	Currency string
}

// Product is a catalog item.
type Product struct {
	ID               string
	Slug             string
	Title            string
	Description      string
	Brand            string
	Price            Price
	CategoryID       string
	Images           []string
	Material         string
	Style            string
	Colors           []string
	AssemblyRequired bool
	Stock            int
	Tags             []string
	Rating           float64
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// InStock reports whether at least qty units are available.
func (p *Product) InStock(qty int) bool {
	return p.Stock >= qty
}

// SortOrder selects the ordering of product listings.
type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortRating    SortOrder = "rating"
)

// Filter narrows a product listing. Zero values mean "no constraint".
type Filter struct {
	CategoryID string
	Brand      string
	MinPrice   decimal.NullDecimal
	MaxPrice   decimal.NullDecimal
	InStock    bool
	Sort       SortOrder
	Offset     int
	Limit      int
}

// Lookup is the read side used to resolve product identifiers.
type Lookup interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	Lookup

	SlugExists(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error

	// List returns one page of products matching f and the total match count.
	List(ctx context.Context, f Filter) ([]Product, int, error)
	Search(ctx context.Context, query string, limit int) ([]Product, error)
	Related(ctx context.Context, categoryID, excludeID string, limit int) ([]Product, error)
	Brands(ctx context.Context) ([]string, error)
}

// IsID reports whether s has the shape of a durable product identifier.
func IsID(s string) bool {
	return uuid.Validate(s) == nil
}

// NewID returns a fresh durable product identifier.
func NewID() string {
	return uuid.NewString()
}
