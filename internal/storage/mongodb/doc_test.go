package mongodb

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/furniture-store/internal/domain/coupon"
	"github.com/xenking/furniture-store/internal/domain/order"
)

func TestDecimal128Conversion(t *testing.T) {
	for _, s := range []string{"0", "19.99", "1234567.89", "0.01"} {
		d := decimal.RequireFromString(s)
		assert.True(t, d.Equal(fromDecimal128(toDecimal128(d))), s)
	}
}

func TestCouponDoc_MaxDiscount(t *testing.T) {
	c := coupon.Coupon{
		ID:            "c1",
		Code:          "SPRING",
		DiscountType:  coupon.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(15),
		MaxDiscount:   decimal.NewNullDecimal(decimal.NewFromInt(50)),
	}
	doc := newCouponDoc(&c)
	require.NotNil(t, doc.MaxDiscount)

	got := doc.coupon()
	require.True(t, got.MaxDiscount.Valid)
	assert.Equal(t, "50", got.MaxDiscount.Decimal.String())

	c.MaxDiscount = decimal.NullDecimal{}
	assert.False(t, newCouponDoc(&c).coupon().MaxDiscount.Valid)
}

func TestOrderDoc_Items(t *testing.T) {
	delivered := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o := order.Order{
		ID:     "o1",
		UserID: "u1",
		Items: []order.Item{
			{ProductID: "p1", Title: "Sofa", Quantity: 2, Price: decimal.RequireFromString("399.95")},
		},
		ShippingAddress: order.Address{FullName: "Jo", Address: "1 Main"},
		TotalAmount:     decimal.RequireFromString("799.90"),
		DeliveryStatus:  order.DeliveryDelivered,
		DeliveryDate:    &delivered,
	}

	got := newOrderDoc(&o).order()
	require.Len(t, got.Items, 1)
	assert.True(t, o.Items[0].Price.Equal(got.Items[0].Price))
	assert.True(t, o.TotalAmount.Equal(got.TotalAmount))
	assert.Equal(t, o.ShippingAddress, got.ShippingAddress)
	assert.Equal(t, order.DeliveryDelivered, got.DeliveryStatus)
	assert.Equal(t, delivered, *got.DeliveryDate)
}
