package mongodb

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/furniture-store/internal/domain/coupon"
)

type couponDoc struct {
	ID            string                `bson:"_id"`
	Code          string                `bson:"code"`
	DiscountType  string                `bson:"discount_type"`
	DiscountValue primitive.Decimal128  `bson:"discount_value"`
	MinPurchase   primitive.Decimal128  `bson:"min_purchase"`
	MaxDiscount   *primitive.Decimal128 `bson:"max_discount,omitempty"`
	ExpiryDate    time.Time             `bson:"expiry_date"`
	Active        bool                  `bson:"active"`
	MaxUsage      int                   `bson:"max_usage"`
	Uses          int                   `bson:"uses"`
	CreatedAt     time.Time             `bson:"created_at"`
	UpdatedAt     time.Time             `bson:"updated_at"`
}

func newCouponDoc(c *coupon.Coupon) couponDoc {
	d := couponDoc{
		ID:            c.ID,
		Code:          c.Code,
		DiscountType:  string(c.DiscountType),
		DiscountValue: toDecimal128(c.DiscountValue),
		MinPurchase:   toDecimal128(c.MinPurchase),
		ExpiryDate:    c.ExpiryDate,
		Active:        c.Active,
		MaxUsage:      c.MaxUsage,
		Uses:          c.Uses,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.MaxDiscount.Valid {
		v := toDecimal128(c.MaxDiscount.Decimal)
		d.MaxDiscount = &v
	}
	return d
}

func (d couponDoc) coupon() coupon.Coupon {
	c := coupon.Coupon{
		ID:            d.ID,
		Code:          d.Code,
		DiscountType:  coupon.DiscountType(d.DiscountType),
		DiscountValue: fromDecimal128(d.DiscountValue),
		MinPurchase:   fromDecimal128(d.MinPurchase),
		ExpiryDate:    d.ExpiryDate,
		Active:        d.Active,
		MaxUsage:      d.MaxUsage,
		Uses:          d.Uses,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.MaxDiscount != nil {
		c.MaxDiscount = decimal.NewNullDecimal(fromDecimal128(*d.MaxDiscount))
	}
	return c
}

var couponSort = bson.D{{Key: "created_at", Value: -1}, {Key: "code", Value: 1}}

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository on a MongoDB collection.
type CouponRepository struct {
	coll *mongo.Collection
}

func (r *CouponRepository) findOne(ctx context.Context, filter bson.M, notFound error) (*coupon.Coupon, error) {
	var doc couponDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound
		}
		return nil, errors.Wrap(err, "find coupon")
	}
	c := doc.coupon()
	return &c, nil
}

func (r *CouponRepository) FindActiveByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.findOne(ctx, bson.M{"code": coupon.NormalizeCode(code), "active": true}, coupon.ErrInvalidCoupon)
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.findOne(ctx, bson.M{"code": coupon.NormalizeCode(code)}, coupon.ErrNotFound)
}

func (r *CouponRepository) GetByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	return r.findOne(ctx, bson.M{"_id": id}, coupon.ErrNotFound)
}

func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	if _, err := r.coll.InsertOne(ctx, newCouponDoc(c)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return coupon.ErrCodeTaken
		}
		return errors.Wrapf(err, "insert coupon %q", c.Code)
	}
	return nil
}

func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	doc := newCouponDoc(c)
	set := bson.M{
		"code":           doc.Code,
		"discount_type":  doc.DiscountType,
		"discount_value": doc.DiscountValue,
		"min_purchase":   doc.MinPurchase,
		"expiry_date":    doc.ExpiryDate,
		"active":         doc.Active,
		"max_usage":      doc.MaxUsage,
		"updated_at":     doc.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if doc.MaxDiscount != nil {
		set["max_discount"] = *doc.MaxDiscount
	} else {
		update["$unset"] = bson.M{"max_discount": ""}
	}

	res, err := r.coll.UpdateByID(ctx, c.ID, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return coupon.ErrCodeTaken
		}
		return errors.Wrapf(err, "update coupon %q", c.ID)
	}
	if res.MatchedCount == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrapf(err, "delete coupon %q", id)
	}
	if res.DeletedCount == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func (r *CouponRepository) find(ctx context.Context, filter bson.M) ([]coupon.Coupon, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(couponSort))
	if err != nil {
		return nil, errors.Wrap(err, "find coupons")
	}
	var docs []couponDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode coupons")
	}
	out := make([]coupon.Coupon, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.coupon())
	}
	return out, nil
}

func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	return r.find(ctx, bson.M{})
}

func (r *CouponRepository) ListActive(ctx context.Context, now time.Time) ([]coupon.Coupon, error) {
	return r.find(ctx, bson.M{"active": true, "expiry_date": bson.M{"$gte": now}})
}
