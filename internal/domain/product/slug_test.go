package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Oak Dining Table", want: "oak-dining-table"},
		{in: "  Mid-Century   Lounge Chair ", want: "mid-century-lounge-chair"},
		{in: "Bookshelf 5 Tier", want: "bookshelf-5-tier"},
		{in: "!!!", want: "product"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestUniqueSlug(t *testing.T) {
	a := newTestProduct("Oak Table", "oak-table", 100, 1)
	b := newTestProduct("Oak Table", "oak-table-1", 100, 1)
	repo := newMockRepo(a, b)

	got, err := UniqueSlug(context.Background(), repo, "Oak Table")
	require.NoError(t, err)
	assert.Equal(t, "oak-table-2", got)

	got, err = UniqueSlug(context.Background(), repo, "Walnut Desk")
	require.NoError(t, err)
	assert.Equal(t, "walnut-desk", got)
}

func TestUniqueSlug_DistinctAcrossInserts(t *testing.T) {
	repo := newMockRepo()
	catalog := NewCatalog(repo)

	seen := make(map[string]struct{})
	for range 5 {
		p, err := catalog.Create(context.Background(), Draft{
			Title:      "Accent Chair",
			Price:      dec(199),
			CategoryID: "chairs",
		})
		require.NoError(t, err)
		_, dup := seen[p.Slug]
		require.False(t, dup, "slug %q reused", p.Slug)
		seen[p.Slug] = struct{}{}
	}

	assert.Contains(t, seen, "accent-chair")
	assert.Contains(t, seen, "accent-chair-4")
}
