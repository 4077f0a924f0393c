package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultPageSize is the listing page size when none is requested.
	DefaultPageSize = 20
	// MaxPageSize bounds a single listing page.
	MaxPageSize = 100
	// DefaultRelatedLimit is the number of related products returned by default.
	DefaultRelatedLimit = 8

	searchLimit   = 50
	slugRetries   = 3
	maxRating     = 5
	defaultSortBy = SortNewest
)

// ErrEmptyQuery is returned by Search for a blank query.
var ErrEmptyQuery = errors.New("no search query provided")

// ValidationError describes an invalid product draft field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Draft holds the admin-editable fields of a product.
type Draft struct {
	Title            string
	Slug             string
	Description      string
	Brand            string
	Price            decimal.Decimal
	Currency         string
	CategoryID       string
	Images           []string
	Material         string
	Style            string
	Colors           []string
	AssemblyRequired bool
	Stock            int
	Tags             []string
	Rating           float64
	Active           *bool
}

func (d *Draft) validate() error {
	switch {
	case strings.TrimSpace(d.Title) == "":
		return &ValidationError{Field: "title", Reason: "required"}
	case strings.TrimSpace(d.CategoryID) == "":
		return &ValidationError{Field: "category", Reason: "required"}
	case d.Price.IsNegative():
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	case d.Stock < 0:
		return &ValidationError{Field: "stock", Reason: "must not be negative"}
	case d.Rating < 0 || d.Rating > maxRating:
		return &ValidationError{Field: "rating", Reason: "must be between 0 and 5"}
	}
	return nil
}

// Page is one page of a product listing.
type Page struct {
	Products   []Product
	Page       int
	Limit      int
	TotalCount int
	TotalPages int
}

// ListQuery is a Filter expressed in pages.
type ListQuery struct {
	Filter
	Page int
}

// Catalog implements product administration and browsing.
type Catalog struct {
	repo     Repository
	resolver *Resolver
	now      func() time.Time
}

// NewCatalog creates a Catalog backed by repo.
func NewCatalog(repo Repository) *Catalog {
	return &Catalog{
		repo:     repo,
		resolver: NewResolver(repo),
		now:      time.Now,
	}
}

// Resolver returns the resolver bound to the catalog repository.
func (c *Catalog) Resolver() *Resolver {
	return c.resolver
}

// Get resolves a product by id or slug.
func (c *Catalog) Get(ctx context.Context, identifier string) (*Product, error) {
	return c.resolver.Resolve(ctx, identifier)
}

// Create validates d and stores a new product. An explicit slug must be
// unused; otherwise one is derived from the title.
func (c *Catalog) Create(ctx context.Context, d Draft) (*Product, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	now := c.now().UTC()
	p := &Product{
		ID:        NewID(),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	d.applyTo(p)

	explicit := strings.TrimSpace(d.Slug) != ""
	for attempt := 0; ; attempt++ {
		if err := c.assignSlug(ctx, p, d.Slug); err != nil {
			return nil, err
		}
		err := c.repo.Create(ctx, p)
		if err == nil {
			break
		}
		// A concurrent writer may take the derived slug between check and insert.
		if errors.Is(err, ErrSlugTaken) && !explicit && attempt < slugRetries {
			continue
		}
		return nil, errors.Wrap(err, "create product")
	}

	zctx.From(ctx).Info("Product created",
		zap.String("product_id", p.ID),
		zap.String("slug", p.Slug),
	)
	return p, nil
}

func (c *Catalog) assignSlug(ctx context.Context, p *Product, requested string) error {
	if strings.TrimSpace(requested) != "" {
		s := Slugify(requested)
		exists, err := c.repo.SlugExists(ctx, s)
		if err != nil {
			return errors.Wrap(err, "check slug")
		}
		if exists {
			return ErrSlugTaken
		}
		p.Slug = s
		return nil
	}

	s, err := UniqueSlug(ctx, c.repo, p.Title)
	if err != nil {
		return err
	}
	p.Slug = s
	return nil
}

// Update replaces the editable fields of the product with the given id.
func (c *Catalog) Update(ctx context.Context, id string, d Draft) (*Product, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	p, err := c.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Identifier: id}
		}
		return nil, errors.Wrap(err, "get product")
	}

	if requested := strings.TrimSpace(d.Slug); requested != "" && Slugify(requested) != p.Slug {
		if err := c.assignSlug(ctx, p, requested); err != nil {
			return nil, err
		}
	}
	d.applyTo(p)
	p.UpdatedAt = c.now().UTC()

	if err := c.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Identifier: id}
		}
		if errors.Is(err, ErrSlugTaken) {
			return nil, ErrSlugTaken
		}
		return nil, errors.Wrap(err, "update product")
	}
	return p, nil
}

// Delete removes the product identified by id or slug.
func (c *Catalog) Delete(ctx context.Context, identifier string) error {
	p, err := c.resolver.Resolve(ctx, identifier)
	if err != nil {
		return err
	}
	if err := c.repo.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &NotFoundError{Identifier: identifier}
		}
		return errors.Wrap(err, "delete product")
	}
	return nil
}

// List returns one page of products matching q.
func (c *Catalog) List(ctx context.Context, q ListQuery) (*Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Sort == "" {
		q.Sort = defaultSortBy
	}
	q.Brand = strings.TrimSpace(q.Brand)
	q.Offset = (q.Page - 1) * q.Limit

	products, total, err := c.repo.List(ctx, q.Filter)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	return &Page{
		Products:   products,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalCount: total,
		TotalPages: (total + q.Limit - 1) / q.Limit,
	}, nil
}

// Search matches query against product titles and descriptions.
func (c *Catalog) Search(ctx context.Context, query string) ([]Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	products, err := c.repo.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, errors.Wrap(err, "search products")
	}
	return products, nil
}

// Related returns products sharing the category of the identified product.
func (c *Catalog) Related(ctx context.Context, identifier string, limit int) ([]Product, error) {
	p, err := c.resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	products, err := c.repo.Related(ctx, p.CategoryID, p.ID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "related products")
	}
	return products, nil
}

// Brands returns the distinct brands present in the catalog.
func (c *Catalog) Brands(ctx context.Context) ([]string, error) {
	brands, err := c.repo.Brands(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list brands")
	}
	return brands, nil
}

func (d *Draft) applyTo(p *Product) {
	currency := strings.ToUpper(strings.TrimSpace(d.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	p.Title = strings.TrimSpace(d.Title)
	p.Description = d.Description
	p.Brand = strings.TrimSpace(d.Brand)
	p.Price = Price{Amount: d.Price.Round(2), Currency: currency}
	p.CategoryID = strings.TrimSpace(d.CategoryID)
	p.Images = d.Images
	p.Material = d.Material
	p.Style = d.Style
	p.Colors = d.Colors
	p.AssemblyRequired = d.AssemblyRequired
	p.Stock = d.Stock
	p.Tags = normalizeTags(d.Tags)
	p.Rating = d.Rating
	if d.Active != nil {
		p.Active = *d.Active
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
