package mongodb

import (
	"context"
	"regexp"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/furniture-store/internal/domain/product"
)

type productDoc struct {
	ID               string               `bson:"_id"`
	Slug             string               `bson:"slug"`
	Title            string               `bson:"title"`
	Description      string               `bson:"description"`
	Brand            string               `bson:"brand"`
	Price            primitive.Decimal128 `bson:"price"`
	Currency         string               `bson:"currency"`
	CategoryID       string               `bson:"category_id"`
	Images           []string             `bson:"images"`
	Material         string               `bson:"material"`
	Style            string               `bson:"style"`
	Colors           []string             `bson:"colors"`
	AssemblyRequired bool                 `bson:"assembly_required"`
	Stock            int                  `bson:"stock"`
	Tags             []string             `bson:"tags"`
	Rating           float64              `bson:"rating"`
	Active           bool                 `bson:"active"`
	CreatedAt        time.Time            `bson:"created_at"`
	UpdatedAt        time.Time            `bson:"updated_at"`
}

func newProductDoc(p *product.Product) productDoc {
	return productDoc{
		ID:               p.ID,
		Slug:             p.Slug,
		Title:            p.Title,
		Description:      p.Description,
		Brand:            p.Brand,
		Price:            toDecimal128(p.Price.Amount),
		Currency:         p.Price.Currency,
		CategoryID:       p.CategoryID,
		Images:           p.Images,
		Material:         p.Material,
		Style:            p.Style,
		Colors:           p.Colors,
		AssemblyRequired: p.AssemblyRequired,
		Stock:            p.Stock,
		Tags:             p.Tags,
		Rating:           p.Rating,
		Active:           p.Active,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func (d productDoc) product() product.Product {
	return product.Product{
		ID:               d.ID,
		Slug:             d.Slug,
		Title:            d.Title,
		Description:      d.Description,
		Brand:            d.Brand,
		Price:            product.Price{Amount: fromDecimal128(d.Price), Currency: d.Currency},
		CategoryID:       d.CategoryID,
		Images:           d.Images,
		Material:         d.Material,
		Style:            d.Style,
		Colors:           d.Colors,
		AssemblyRequired: d.AssemblyRequired,
		Stock:            d.Stock,
		Tags:             d.Tags,
		Rating:           d.Rating,
		Active:           d.Active,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

var productSort = map[product.SortOrder]bson.D{
	product.SortNewest:    {{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}},
	product.SortPriceAsc:  {{Key: "price", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: 1}},
	product.SortPriceDesc: {{Key: "price", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: 1}},
	product.SortRating:    {{Key: "rating", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: 1}},
}

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository on a MongoDB collection.
type ProductRepository struct {
	coll *mongo.Collection
}

func (r *ProductRepository) findOne(ctx context.Context, filter bson.M) (*product.Product, error) {
	var doc productDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrap(err, "find product")
	}
	p := doc.product()
	return &p, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *ProductRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"slug": slug}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "check slug")
	}
	return n > 0, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	if _, err := r.coll.InsertOne(ctx, newProductDoc(p)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return product.ErrSlugTaken
		}
		return errors.Wrapf(err, "insert product %q", p.ID)
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, newProductDoc(p))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return product.ErrSlugTaken
		}
		return errors.Wrapf(err, "update product %q", p.ID)
	}
	if res.MatchedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrapf(err, "delete product %q", id)
	}
	if res.DeletedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]product.Product, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find products")
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	out := make([]product.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.product())
	}
	return out, nil
}

func (r *ProductRepository) List(ctx context.Context, f product.Filter) ([]product.Product, int, error) {
	filter := bson.M{}
	if f.CategoryID != "" {
		filter["category_id"] = f.CategoryID
	}
	if f.Brand != "" {
		filter["brand"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Brand), Options: "i"}
	}
	price := bson.M{}
	if f.MinPrice.Valid {
		price["$gte"] = toDecimal128(f.MinPrice.Decimal)
	}
	if f.MaxPrice.Valid {
		price["$lte"] = toDecimal128(f.MaxPrice.Decimal)
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	if f.InStock {
		filter["stock"] = bson.M{"$gt": 0}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}

	sort, ok := productSort[f.Sort]
	if !ok {
		sort = productSort[product.SortNewest]
	}
	opts := options.Find().SetSort(sort).SetSkip(int64(f.Offset))
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	products, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return products, int(total), nil
}

func (r *ProductRepository) Search(ctx context.Context, query string, limit int) ([]product.Product, error) {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{"$or": bson.A{bson.M{"title": re}, bson.M{"description": re}}}
	return r.find(ctx, filter, options.Find().SetSort(productSort[product.SortNewest]).SetLimit(int64(limit)))
}

func (r *ProductRepository) Related(ctx context.Context, categoryID, excludeID string, limit int) ([]product.Product, error) {
	filter := bson.M{"category_id": categoryID, "_id": bson.M{"$ne": excludeID}}
	return r.find(ctx, filter, options.Find().SetSort(productSort[product.SortNewest]).SetLimit(int64(limit)))
}

func (r *ProductRepository) Brands(ctx context.Context) ([]string, error) {
	values, err := r.coll.Distinct(ctx, "brand", bson.M{"brand": bson.M{"$ne": ""}})
	if err != nil {
		return nil, errors.Wrap(err, "list brands")
	}
	brands := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			brands = append(brands, s)
		}
	}
	slices.Sort(brands)
	return brands, nil
}
