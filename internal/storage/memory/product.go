package memory

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/xenking/furniture-store/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository in memory.
type ProductRepository struct {
	s *Store
}

func cloneProduct(p product.Product) product.Product {
	p.Images = slices.Clone(p.Images)
	p.Colors = slices.Clone(p.Colors)
	p.Tags = slices.Clone(p.Tags)
	return p
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	p = cloneProduct(p)
	return &p, nil
}

func (r *ProductRepository) GetBySlug(_ context.Context, slug string) (*product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.products {
		if p.Slug == slug {
			p = cloneProduct(p)
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (r *ProductRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.slugOwner(slug) != "", nil
}

// slugOwner returns the id of the product using slug. Caller holds the lock.
func (r *ProductRepository) slugOwner(slug string) string {
	for id, p := range r.s.products {
		if p.Slug == slug {
			return id
		}
	}
	return ""
}

func (r *ProductRepository) Create(_ context.Context, p *product.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.slugOwner(p.Slug) != "" {
		return product.ErrSlugTaken
	}
	r.s.products[p.ID] = cloneProduct(*p)
	return nil
}

func (r *ProductRepository) Update(_ context.Context, p *product.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[p.ID]; !ok {
		return product.ErrNotFound
	}
	if owner := r.slugOwner(p.Slug); owner != "" && owner != p.ID {
		return product.ErrSlugTaken
	}
	r.s.products[p.ID] = cloneProduct(*p)
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *ProductRepository) List(_ context.Context, f product.Filter) ([]product.Product, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	brand := strings.ToLower(f.Brand)
	var matched []product.Product
	for _, p := range r.s.products {
		switch {
		case f.CategoryID != "" && p.CategoryID != f.CategoryID:
			continue
		case brand != "" && !strings.Contains(strings.ToLower(p.Brand), brand):
			continue
		case f.MinPrice.Valid && p.Price.Amount.LessThan(f.MinPrice.Decimal):
			continue
		case f.MaxPrice.Valid && p.Price.Amount.GreaterThan(f.MaxPrice.Decimal):
			continue
		case f.InStock && p.Stock <= 0:
			continue
		}
		matched = append(matched, cloneProduct(p))
	}
	sortProducts(matched, f.Sort)

	total := len(matched)
	if f.Offset >= total {
		return []product.Product{}, total, nil
	}
	end := total
	if f.Limit > 0 {
		end = min(f.Offset+f.Limit, total)
	}
	return matched[f.Offset:end], total, nil
}

func sortProducts(ps []product.Product, order product.SortOrder) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		switch order {
		case product.SortPriceAsc:
			if !a.Price.Amount.Equal(b.Price.Amount) {
				return a.Price.Amount.LessThan(b.Price.Amount)
			}
		case product.SortPriceDesc:
			if !a.Price.Amount.Equal(b.Price.Amount) {
				return a.Price.Amount.GreaterThan(b.Price.Amount)
			}
		case product.SortRating:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func (r *ProductRepository) Search(_ context.Context, query string, limit int) ([]product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q := strings.ToLower(query)
	var out []product.Product
	for _, p := range r.s.products {
		if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, cloneProduct(p))
		}
	}
	sortProducts(out, product.SortNewest)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ProductRepository) Related(_ context.Context, categoryID, excludeID string, limit int) ([]product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []product.Product
	for _, p := range r.s.products {
		if p.CategoryID == categoryID && p.ID != excludeID {
			out = append(out, cloneProduct(p))
		}
	}
	sortProducts(out, product.SortNewest)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ProductRepository) Brands(_ context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := make(map[string]struct{})
	brands := []string{}
	for _, p := range r.s.products {
		if p.Brand == "" {
			continue
		}
		if _, ok := seen[p.Brand]; ok {
			continue
		}
		seen[p.Brand] = struct{}{}
		brands = append(brands, p.Brand)
	}
	sort.Strings(brands)
	return brands, nil
}
