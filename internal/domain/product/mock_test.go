package product

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type mockRepo struct {
	mu       sync.Mutex
	products map[string]*Product
	getErr   error
	calls    []string
}

func newMockRepo(products ...Product) *mockRepo {
	m := &mockRepo{products: make(map[string]*Product)}
	for i := range products {
		p := products[i]
		m.products[p.ID] = &p
	}
	return m
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "id:"+id)
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetBySlug(_ context.Context, slug string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "slug:"+slug)
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, p := range m.products {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) Create(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.products {
		if existing.Slug == p.Slug {
			return ErrSlugTaken
		}
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockRepo) Update(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockRepo) sorted() []Product {
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func (m *mockRepo) List(_ context.Context, f Filter) ([]Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Product
	for _, p := range m.sorted() {
		if f.CategoryID != "" && p.CategoryID != f.CategoryID {
			continue
		}
		if f.InStock && p.Stock <= 0 {
			continue
		}
		matched = append(matched, p)
	}
	total := len(matched)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := min(f.Offset+f.Limit, total)
	return matched[f.Offset:end], total, nil
}

func (m *mockRepo) Search(_ context.Context, query string, limit int) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(query)
	var out []Product
	for _, p := range m.sorted() {
		if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRepo) Related(_ context.Context, categoryID, excludeID string, limit int) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Product
	for _, p := range m.sorted() {
		if p.CategoryID == categoryID && p.ID != excludeID {
			out = append(out, p)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRepo) Brands(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, p := range m.sorted() {
		if _, ok := seen[p.Brand]; ok || p.Brand == "" {
			continue
		}
		seen[p.Brand] = struct{}{}
		out = append(out, p.Brand)
	}
	return out, nil
}
