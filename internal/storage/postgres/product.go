package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/furniture-store/internal/domain/product"
)

const (
	productColumns = `id, slug, title, description, brand, price, currency, category_id, images,
		material, style, colors, assembly_required, stock, tags, rating, active, created_at, updated_at`

	getProductByIDSQL   = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	getProductBySlugSQL = `SELECT ` + productColumns + ` FROM products WHERE slug = $1`
	slugExistsSQL       = `SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1)`

	insertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	updateProductSQL = `UPDATE products SET slug = $2, title = $3, description = $4, brand = $5,
		price = $6, currency = $7, category_id = $8, images = $9, material = $10, style = $11,
		colors = $12, assembly_required = $13, stock = $14, tags = $15, rating = $16, active = $17,
		updated_at = $18
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	searchProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE title ILIKE $1 OR description ILIKE $1
		ORDER BY created_at DESC, id LIMIT $2`

	relatedProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE category_id = $1 AND id <> $2
		ORDER BY created_at DESC, id LIMIT $3`

	listBrandsSQL = `SELECT DISTINCT brand FROM products WHERE brand <> '' ORDER BY brand`
)

var productOrder = map[product.SortOrder]string{
	product.SortNewest:    "created_at DESC, id",
	product.SortPriceAsc:  "price ASC, created_at DESC, id",
	product.SortPriceDesc: "price DESC, created_at DESC, id",
	product.SortRating:    "rating DESC, created_at DESC, id",
}

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) getOne(ctx context.Context, query, arg string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", arg)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", arg)
	}
	return &p, nil
}

// GetByID returns a single product by its durable identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return r.getOne(ctx, getProductByIDSQL, id)
}

// GetBySlug returns a single product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	return r.getOne(ctx, getProductBySlugSQL, slug)
}

func (r *ProductRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, slugExistsSQL, slug).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "check slug")
	}
	return exists, nil
}

// Create inserts p. A slug collision yields product.ErrSlugTaken.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, insertProductSQL,
		p.ID, p.Slug, p.Title, p.Description, p.Brand, p.Price.Amount, p.Price.Currency, p.CategoryID, p.Images,
		p.Material, p.Style, p.Colors, p.AssemblyRequired, p.Stock, p.Tags, p.Rating, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return product.ErrSlugTaken
		}
		return errors.Wrapf(err, "insert product %q", p.ID)
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Slug, p.Title, p.Description, p.Brand, p.Price.Amount, p.Price.Currency, p.CategoryID, p.Images,
		p.Material, p.Style, p.Colors, p.AssemblyRequired, p.Stock, p.Tags, p.Rating, p.Active, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return product.ErrSlugTaken
		}
		return errors.Wrapf(err, "update product %q", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// List returns one page of products matching f and the total match count.
func (r *ProductRepository) List(ctx context.Context, f product.Filter) ([]product.Product, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.CategoryID != "" {
		add("category_id = $%d", f.CategoryID)
	}
	if f.Brand != "" {
		add("brand ILIKE $%d", likePattern(f.Brand))
	}
	if f.MinPrice.Valid {
		add("price >= $%d", f.MinPrice.Decimal)
	}
	if f.MaxPrice.Valid {
		add("price <= $%d", f.MaxPrice.Decimal)
	}
	if f.InStock {
		where = append(where, "stock > 0")
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products"+clause, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}

	orderBy, ok := productOrder[f.Sort]
	if !ok {
		orderBy = productOrder[product.SortNewest]
	}
	query := "SELECT " + productColumns + " FROM products" + clause + " ORDER BY " + orderBy
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	args = append(args, f.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}
	return products, total, nil
}

func (r *ProductRepository) Search(ctx context.Context, query string, limit int) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, searchProductsSQL, likePattern(query), limit)
	if err != nil {
		return nil, errors.Wrap(err, "search products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

func (r *ProductRepository) Related(ctx context.Context, categoryID, excludeID string, limit int) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, relatedProductsSQL, categoryID, excludeID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "related products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

func (r *ProductRepository) Brands(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listBrandsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list brands")
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Slug, &p.Title, &p.Description, &p.Brand, &p.Price.Amount, &p.Price.Currency, &p.CategoryID, &p.Images,
		&p.Material, &p.Style, &p.Colors, &p.AssemblyRequired, &p.Stock, &p.Tags, &p.Rating, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
