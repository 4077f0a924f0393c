package events

import (
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/furniture-store/internal/domain/order"
)

// Encode renders e as a JSON document. Money is encoded as fixed two-place
// decimal strings and timestamps as RFC 3339.
func Encode(e order.Event) []byte {
	var w jx.Encoder
	w.Obj(func(w *jx.Encoder) {
		w.Field("type", func(w *jx.Encoder) { w.Str(string(e.Type)) })
		w.Field("occurred_at", func(w *jx.Encoder) { w.Str(e.OccurredAt.UTC().Format(time.RFC3339Nano)) })
		w.Field("order", func(w *jx.Encoder) { encodeOrder(w, &e.Order) })
	})
	return w.Bytes()
}

func encodeOrder(w *jx.Encoder, o *order.Order) {
	w.Obj(func(w *jx.Encoder) {
		w.Field("id", func(w *jx.Encoder) { w.Str(o.ID) })
		w.Field("user_id", func(w *jx.Encoder) { w.Str(o.UserID) })
		w.Field("items", func(w *jx.Encoder) {
			w.Arr(func(w *jx.Encoder) {
				for _, it := range o.Items {
					w.Obj(func(w *jx.Encoder) {
						w.Field("product_id", func(w *jx.Encoder) { w.Str(it.ProductID) })
						w.Field("title", func(w *jx.Encoder) { w.Str(it.Title) })
						w.Field("quantity", func(w *jx.Encoder) { w.Int(it.Quantity) })
						w.Field("price", func(w *jx.Encoder) { w.Str(it.Price.StringFixed(2)) })
					})
				}
			})
		})
		w.Field("subtotal", func(w *jx.Encoder) { w.Str(o.Subtotal.StringFixed(2)) })
		w.Field("discount", func(w *jx.Encoder) { w.Str(o.Discount.StringFixed(2)) })
		w.Field("total_amount", func(w *jx.Encoder) { w.Str(o.TotalAmount.StringFixed(2)) })
		if o.CouponCode != "" {
			w.Field("coupon_code", func(w *jx.Encoder) { w.Str(o.CouponCode) })
		}
		w.Field("payment_method", func(w *jx.Encoder) { w.Str(o.PaymentMethod) })
		w.Field("payment_status", func(w *jx.Encoder) { w.Str(string(o.PaymentStatus)) })
		w.Field("delivery_status", func(w *jx.Encoder) { w.Str(string(o.DeliveryStatus)) })
		if o.CancelReason != "" {
			w.Field("cancel_reason", func(w *jx.Encoder) { w.Str(o.CancelReason) })
		}
		if o.DeliveryDate != nil {
			w.Field("delivery_date", func(w *jx.Encoder) { w.Str(o.DeliveryDate.UTC().Format(time.RFC3339Nano)) })
		}
		w.Field("created_at", func(w *jx.Encoder) { w.Str(o.CreatedAt.UTC().Format(time.RFC3339Nano)) })
	})
}
