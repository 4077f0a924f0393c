package order_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/furniture-store/internal/domain/order"
)

func placeTestOrder(t *testing.T, f *fixture) *order.Order {
	t.Helper()
	p := f.addProduct(t, "test-"+t.Name(), "100", 10)
	o, err := f.svc.PlaceOrder(context.Background(), order.PlaceOrderRequest{
		UserID:          userID,
		Lines:           []order.Line{{Product: p.ID, Quantity: 1}},
		ShippingAddress: explicitAddress(),
	})
	require.NoError(t, err)
	return o
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := placeTestOrder(t, f)

	cancelled, err := f.svc.Cancel(ctx, userID, o.ID, "  ")
	require.NoError(t, err)
	assert.Equal(t, order.DeliveryCancelled, cancelled.DeliveryStatus)
	assert.Equal(t, order.PaymentRefundPending, cancelled.PaymentStatus)
	assert.Equal(t, order.DefaultCancelReason, cancelled.CancelReason)

	stored, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.DeliveryCancelled, stored.DeliveryStatus)

	_, err = f.svc.Cancel(ctx, userID, o.ID, "again")
	assert.ErrorIs(t, err, order.ErrAlreadyCanceled)

	assert.Equal(t, []order.EventType{order.EventPlaced, order.EventCancelled}, f.publisher.types())
}

func TestCancel_Guards(t *testing.T) {
	ctx := context.Background()

	for _, tt := range []struct {
		name   string
		status order.DeliveryStatus
		user   string
		want   error
	}{
		{name: "Shipped", status: order.DeliveryShipped, user: userID, want: order.ErrNotCancellable},
		{name: "Delivered", status: order.DeliveryDelivered, user: userID, want: order.ErrNotCancellable},
		{name: "OtherUser", status: order.DeliveryProcessing, user: "intruder", want: order.ErrForbidden},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			o := placeTestOrder(t, f)
			if tt.status != order.DeliveryProcessing {
				_, err := f.svc.UpdateDeliveryStatus(ctx, o.ID, string(tt.status))
				require.NoError(t, err)
			}

			_, err := f.svc.Cancel(ctx, tt.user, o.ID, "changed my mind")
			require.ErrorIs(t, err, tt.want)

			stored, err := f.svc.Get(ctx, o.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, stored.DeliveryStatus)
		})
	}
}

func TestCancel_UnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Cancel(context.Background(), userID, "missing", "")
	require.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestUpdateDeliveryStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := placeTestOrder(t, f)

	_, err := f.svc.UpdateDeliveryStatus(ctx, o.ID, "Teleported")
	var statusErr *order.InvalidStatusError
	require.ErrorAs(t, err, &statusErr)

	delivered, err := f.svc.UpdateDeliveryStatus(ctx, o.ID, "Delivered")
	require.NoError(t, err)
	assert.Equal(t, order.DeliveryDelivered, delivered.DeliveryStatus)
	require.NotNil(t, delivered.DeliveryDate)
	assert.Equal(t, fixedNow, *delivered.DeliveryDate)

	// Administrators may move orders backwards.
	back, err := f.svc.UpdateDeliveryStatus(ctx, o.ID, "Processing")
	require.NoError(t, err)
	assert.Equal(t, order.DeliveryProcessing, back.DeliveryStatus)

	cancelled, err := f.svc.Cancel(ctx, userID, o.ID, "too slow")
	require.NoError(t, err)
	assert.Equal(t, "too slow", cancelled.CancelReason)
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := placeTestOrder(t, f)

	mine, err := f.svc.ListForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	theirs, err := f.svc.ListForUser(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, theirs)

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
