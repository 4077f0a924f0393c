package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// DefaultCancelReason is recorded when a customer cancels without a reason.
const DefaultCancelReason = "No reason provided"

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// ListForUser returns the orders of userID, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list user orders")
	}
	return orders, nil
}

// ListAll returns every order, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Cancel cancels an order on behalf of its owner. Only orders still in
// Processing can be cancelled; the payment moves to Refund Pending.
func (s *Service) Cancel(ctx context.Context, userID, orderID, reason string) (*Order, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrForbidden
	}

	switch {
	case o.DeliveryStatus == DeliveryCancelled:
		return nil, ErrAlreadyCanceled
	case !o.DeliveryStatus.Cancellable():
		return nil, ErrNotCancellable
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCancelReason
	}

	expected := o.DeliveryStatus
	o.DeliveryStatus = DeliveryCancelled
	o.PaymentStatus = PaymentRefundPending
	o.CancelReason = reason
	o.UpdatedAt = s.now().UTC()

	if err := s.orders.UpdateStatus(ctx, o, expected); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return nil, ErrStatusChanged
		}
		return nil, errors.Wrap(err, "cancel order")
	}

	s.publish(ctx, EventCancelled, o)
	zctx.From(ctx).Info("Order cancelled",
		zap.String("order_id", o.ID),
		zap.String("reason", reason),
	)
	return o, nil
}

// UpdateDeliveryStatus sets the delivery status of an order. Administrators
// may move an order to any status, including backwards. Moving to Delivered
// stamps the delivery date.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, orderID, status string) (*Order, error) {
	next := DeliveryStatus(strings.TrimSpace(status))
	if !next.Valid() {
		return nil, &InvalidStatusError{Status: status}
	}

	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	expected := o.DeliveryStatus
	now := s.now().UTC()
	o.DeliveryStatus = next
	o.UpdatedAt = now
	if next == DeliveryDelivered {
		o.DeliveryDate = &now
	}

	if err := s.orders.UpdateStatus(ctx, o, expected); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return nil, ErrStatusChanged
		}
		return nil, errors.Wrap(err, "update order status")
	}

	s.publish(ctx, EventStatusChanged, o)
	zctx.From(ctx).Info("Order status updated",
		zap.String("order_id", o.ID),
		zap.String("from", string(expected)),
		zap.String("to", string(next)),
	)
	return o, nil
}
