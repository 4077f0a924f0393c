package mongodb

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/xenking/furniture-store/internal/domain/coupon"
	"github.com/xenking/furniture-store/internal/domain/order"
)

type itemDoc struct {
	ProductID string               `bson:"product_id"`
	Title     string               `bson:"title"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
}

type addressDoc struct {
	FullName   string `bson:"full_name"`
	Address    string `bson:"address"`
	City       string `bson:"city"`
	State      string `bson:"state"`
	PostalCode string `bson:"postal_code"`
	Country    string `bson:"country"`
	Email      string `bson:"email"`
	Phone      string `bson:"phone"`
}

type orderDoc struct {
	ID              string               `bson:"_id"`
	UserID          string               `bson:"user_id"`
	Items           []itemDoc            `bson:"items"`
	ShippingAddress addressDoc           `bson:"shipping_address"`
	Subtotal        primitive.Decimal128 `bson:"subtotal"`
	Discount        primitive.Decimal128 `bson:"discount"`
	TotalAmount     primitive.Decimal128 `bson:"total_amount"`
	CouponCode      string               `bson:"coupon_code"`
	PaymentMethod   string               `bson:"payment_method"`
	PaymentStatus   string               `bson:"payment_status"`
	DeliveryStatus  string               `bson:"delivery_status"`
	CancelReason    string               `bson:"cancel_reason"`
	DeliveryDate    *time.Time           `bson:"delivery_date,omitempty"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

func newOrderDoc(o *order.Order) orderDoc {
	items := make([]itemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemDoc{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			Price:     toDecimal128(it.Price),
		})
	}
	a := o.ShippingAddress
	return orderDoc{
		ID:     o.ID,
		UserID: o.UserID,
		Items:  items,
		ShippingAddress: addressDoc{
			FullName:   a.FullName,
			Address:    a.Address,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
			Email:      a.Email,
			Phone:      a.Phone,
		},
		Subtotal:       toDecimal128(o.Subtotal),
		Discount:       toDecimal128(o.Discount),
		TotalAmount:    toDecimal128(o.TotalAmount),
		CouponCode:     o.CouponCode,
		PaymentMethod:  o.PaymentMethod,
		PaymentStatus:  string(o.PaymentStatus),
		DeliveryStatus: string(o.DeliveryStatus),
		CancelReason:   o.CancelReason,
		DeliveryDate:   o.DeliveryDate,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func (d orderDoc) order() order.Order {
	items := make([]order.Item, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, order.Item{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			Price:     fromDecimal128(it.Price),
		})
	}
	a := d.ShippingAddress
	return order.Order{
		ID:     d.ID,
		UserID: d.UserID,
		Items:  items,
		ShippingAddress: order.Address{
			FullName:   a.FullName,
			Address:    a.Address,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
			Email:      a.Email,
			Phone:      a.Phone,
		},
		Subtotal:       fromDecimal128(d.Subtotal),
		Discount:       fromDecimal128(d.Discount),
		TotalAmount:    fromDecimal128(d.TotalAmount),
		CouponCode:     d.CouponCode,
		PaymentMethod:  d.PaymentMethod,
		PaymentStatus:  order.PaymentStatus(d.PaymentStatus),
		DeliveryStatus: order.DeliveryStatus(d.DeliveryStatus),
		CancelReason:   d.CancelReason,
		DeliveryDate:   d.DeliveryDate,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

var orderSort = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository on MongoDB collections.
type OrderRepository struct {
	orders   *mongo.Collection
	products *mongo.Collection
	coupons  *mongo.Collection
}

// Place reserves stock with conditional decrements, redeems the coupon and
// inserts the order. On any failure the completed writes are reverted.
func (r *OrderRepository) Place(ctx context.Context, o *order.Order, reservations []order.Reservation, couponCode string) (err error) {
	var undo []func(context.Context) error
	defer func() {
		if err == nil {
			return
		}
		// Revert in reverse order on a context that survives cancellation.
		rctx := context.WithoutCancel(ctx)
		for i := len(undo) - 1; i >= 0; i-- {
			if uerr := undo[i](rctx); uerr != nil {
				zctx.From(ctx).Error("Revert order placement", zap.String("order_id", o.ID), zap.Error(uerr))
			}
		}
	}()

	for _, res := range reservations {
		upd, err := r.products.UpdateOne(ctx,
			bson.M{"_id": res.ProductID, "stock": bson.M{"$gte": res.Quantity}},
			bson.M{"$inc": bson.M{"stock": -res.Quantity}},
		)
		if err != nil {
			return errors.Wrapf(err, "reserve stock for %q", res.ProductID)
		}
		if upd.ModifiedCount == 0 {
			return &order.StockConflictError{ProductID: res.ProductID}
		}
		undo = append(undo, func(ctx context.Context) error {
			_, err := r.products.UpdateOne(ctx, bson.M{"_id": res.ProductID}, bson.M{"$inc": bson.M{"stock": res.Quantity}})
			return err
		})
	}

	if couponCode != "" {
		code := coupon.NormalizeCode(couponCode)
		if err := r.redeemCoupon(ctx, code); err != nil {
			return err
		}
		undo = append(undo, func(ctx context.Context) error {
			_, err := r.coupons.UpdateOne(ctx, bson.M{"code": code}, bson.M{"$inc": bson.M{"uses": -1}})
			return err
		})
	}

	if _, err := r.orders.InsertOne(ctx, newOrderDoc(o)); err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}
	return nil
}

func (r *OrderRepository) redeemCoupon(ctx context.Context, code string) error {
	upd, err := r.coupons.UpdateOne(ctx,
		bson.M{
			"code":   code,
			"active": true,
			"$or": bson.A{
				bson.M{"max_usage": 0},
				bson.M{"$expr": bson.M{"$lt": bson.A{"$uses", "$max_usage"}}},
			},
		},
		bson.M{"$inc": bson.M{"uses": 1}},
	)
	if err != nil {
		return errors.Wrapf(err, "redeem coupon %q", code)
	}
	if upd.ModifiedCount > 0 {
		return nil
	}

	n, err := r.coupons.CountDocuments(ctx, bson.M{"code": code, "active": true})
	if err != nil {
		return errors.Wrapf(err, "check coupon %q", code)
	}
	if n == 0 {
		return coupon.ErrInvalidCoupon
	}
	return coupon.ErrUsageLimitReached
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	var doc orderDoc
	if err := r.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, order.ErrOrderNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o := doc.order()
	return &o, nil
}

func (r *OrderRepository) find(ctx context.Context, filter bson.M) ([]order.Order, error) {
	cur, err := r.orders.Find(ctx, filter, options.Find().SetSort(orderSort))
	if err != nil {
		return nil, errors.Wrap(err, "find orders")
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	out := make([]order.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.order())
	}
	return out, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	return r.find(ctx, bson.M{})
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, o *order.Order, expected order.DeliveryStatus) error {
	set := bson.M{
		"delivery_status": string(o.DeliveryStatus),
		"payment_status":  string(o.PaymentStatus),
		"cancel_reason":   o.CancelReason,
		"updated_at":      o.UpdatedAt,
	}
	if o.DeliveryDate != nil {
		set["delivery_date"] = *o.DeliveryDate
	}

	res, err := r.orders.UpdateOne(ctx,
		bson.M{"_id": o.ID, "delivery_status": string(expected)},
		bson.M{"$set": set},
	)
	if err != nil {
		return errors.Wrapf(err, "update order %q", o.ID)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.orders.CountDocuments(ctx, bson.M{"_id": o.ID})
	if err != nil {
		return errors.Wrapf(err, "check order %q", o.ID)
	}
	if n == 0 {
		return order.ErrOrderNotFound
	}
	return order.ErrStatusChanged
}
