package product

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestCatalog_Create(t *testing.T) {
	catalog := NewCatalog(newMockRepo())

	p, err := catalog.Create(context.Background(), Draft{
		Title:      "  Linen Armchair ",
		Brand:      "Nordhus",
		Price:      decimal.RequireFromString("349.999"),
		CategoryID: "chairs",
		Stock:      4,
		Tags:       []string{" Linen", "", "ARMCHAIR"},
	})
	require.NoError(t, err)

	assert.True(t, IsID(p.ID))
	assert.Equal(t, "linen-armchair", p.Slug)
	assert.Equal(t, "Linen Armchair", p.Title)
	assert.Equal(t, DefaultCurrency, p.Price.Currency)
	assert.True(t, decimal.RequireFromString("350").Equal(p.Price.Amount))
	assert.Equal(t, []string{"linen", "armchair"}, p.Tags)
	assert.True(t, p.Active)
}

func TestCatalog_CreateExplicitSlug(t *testing.T) {
	repo := newMockRepo(newTestProduct("Oak Table", "oak-table", 300, 1))
	catalog := NewCatalog(repo)

	_, err := catalog.Create(context.Background(), Draft{
		Title:      "Another Table",
		Slug:       "oak-table",
		Price:      dec(10),
		CategoryID: "tables",
	})
	require.ErrorIs(t, err, ErrSlugTaken)

	p, err := catalog.Create(context.Background(), Draft{
		Title:      "Another Table",
		Slug:       "Rustic Oak Table",
		Price:      dec(10),
		CategoryID: "tables",
	})
	require.NoError(t, err)
	assert.Equal(t, "rustic-oak-table", p.Slug)
}

func TestCatalog_CreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		field string
	}{
		{name: "missing title", draft: Draft{Price: dec(1), CategoryID: "c"}, field: "title"},
		{name: "missing category", draft: Draft{Title: "T", Price: dec(1)}, field: "category"},
		{name: "negative price", draft: Draft{Title: "T", Price: dec(-1), CategoryID: "c"}, field: "price"},
		{name: "negative stock", draft: Draft{Title: "T", Price: dec(1), CategoryID: "c", Stock: -1}, field: "stock"},
		{name: "rating too high", draft: Draft{Title: "T", Price: dec(1), CategoryID: "c", Rating: 6}, field: "rating"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(newMockRepo()).Create(context.Background(), tt.draft)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestCatalog_Update(t *testing.T) {
	a := newTestProduct("Oak Table", "oak-table", 300, 1)
	b := newTestProduct("Pine Table", "pine-table", 200, 1)
	catalog := NewCatalog(newMockRepo(a, b))
	ctx := context.Background()

	updated, err := catalog.Update(ctx, a.ID, Draft{
		Title:      "Oak Table XL",
		Price:      dec(450),
		CategoryID: "tables",
		Stock:      2,
	})
	require.NoError(t, err)
	assert.Equal(t, "oak-table", updated.Slug, "slug kept when not requested")
	assert.True(t, dec(450).Equal(updated.Price.Amount))

	_, err = catalog.Update(ctx, a.ID, Draft{Title: "Oak", Slug: "pine-table", Price: dec(1), CategoryID: "tables"})
	require.ErrorIs(t, err, ErrSlugTaken)

	_, err = catalog.Update(ctx, newTestProduct("x", "x", 1, 1).ID, Draft{Title: "Oak", Price: dec(1), CategoryID: "tables"})
	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
}

func TestCatalog_DeleteBySlug(t *testing.T) {
	p := newTestProduct("Oak Table", "oak-table", 300, 1)
	repo := newMockRepo(p)
	catalog := NewCatalog(repo)

	require.NoError(t, catalog.Delete(context.Background(), "oak-table"))
	assert.Empty(t, repo.products)

	err := catalog.Delete(context.Background(), "oak-table")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_ListPaging(t *testing.T) {
	var products []Product
	for _, title := range []string{"A", "B", "C", "D", "E"} {
		products = append(products, newTestProduct(title, title, 10, 1))
	}
	catalog := NewCatalog(newMockRepo(products...))

	page, err := catalog.List(context.Background(), ListQuery{Page: 2, Filter: Filter{Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "C", page.Products[0].Title)

	page, err = catalog.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, page.Limit)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Products, 5)
}

func TestCatalog_SearchRelatedBrands(t *testing.T) {
	sofa := newTestProduct("Velvet Sofa", "velvet-sofa", 900, 1)
	sofa.Brand = "Nordhus"
	chair := newTestProduct("Velvet Chair", "velvet-chair", 300, 1)
	chair.Brand = "Casa"
	lamp := newTestProduct("Floor Lamp", "floor-lamp", 80, 1)
	lamp.CategoryID = "lighting"
	catalog := NewCatalog(newMockRepo(sofa, chair, lamp))
	ctx := context.Background()

	found, err := catalog.Search(ctx, "velvet")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	_, err = catalog.Search(ctx, "  ")
	require.ErrorIs(t, err, ErrEmptyQuery)

	related, err := catalog.Related(ctx, "velvet-sofa", 0)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, chair.ID, related[0].ID)

	brands, err := catalog.Brands(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Nordhus", "Casa"}, brands)
}
