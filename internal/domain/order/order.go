package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethodCOD is the default payment method.
const PaymentMethodCOD = "Cash on Delivery"

// PaymentStatus tracks the money side of an order.
type PaymentStatus string

const (
	PaymentPending        PaymentStatus = "Pending"
	PaymentPaid           PaymentStatus = "Paid"
	PaymentRefundPending  PaymentStatus = "Refund Pending"
	PaymentRefunded       PaymentStatus = "Refunded"
	PaymentCashOnDelivery PaymentStatus = "Cash on Delivery"
)

// DeliveryStatus tracks fulfilment of an order.
type DeliveryStatus string

const (
	DeliveryProcessing DeliveryStatus = "Processing"
	DeliveryShipped    DeliveryStatus = "Shipped"
	DeliveryDelivered  DeliveryStatus = "Delivered"
	DeliveryCancelled  DeliveryStatus = "Cancelled"
)

// Valid reports whether s is a known delivery status.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryProcessing, DeliveryShipped, DeliveryDelivered, DeliveryCancelled:
		return true
	}
	return false
}

// Cancellable reports whether a customer may cancel an order in status s.
func (s DeliveryStatus) Cancellable() bool {
	return s == DeliveryProcessing
}

// Address is the shipping address snapshot stored on an order.
type Address struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// Item is an order line with the unit price captured at placement.
type Item struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// LineTotal returns Price × Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a placed customer order.
type Order struct {
	ID              string
	UserID          string
	Items           []Item
	ShippingAddress Address
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	TotalAmount     decimal.Decimal
	CouponCode      string
	PaymentMethod   string
	PaymentStatus   PaymentStatus
	DeliveryStatus  DeliveryStatus
	CancelReason    string
	DeliveryDate    *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Reservation is a stock decrement applied when an order is committed.
type Reservation struct {
	ProductID string
	Quantity  int
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Place atomically applies every reservation as a conditional stock
	// decrement, redeems couponCode when non-empty, and inserts o. Nothing is
	// persisted when any step fails. A decrement that finds too little stock
	// yields *StockConflictError; an exhausted coupon yields
	// coupon.ErrUsageLimitReached.
	Place(ctx context.Context, o *Order, reservations []Reservation, couponCode string) error
	// GetByID returns ErrOrderNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context) ([]Order, error)
	// UpdateStatus persists the status fields of o provided the stored
	// delivery status still equals expected; otherwise ErrStatusChanged.
	UpdateStatus(ctx context.Context, o *Order, expected DeliveryStatus) error
}

// EventType names an order lifecycle event.
type EventType string

const (
	EventPlaced        EventType = "order.placed"
	EventCancelled     EventType = "order.cancelled"
	EventStatusChanged EventType = "order.status_changed"
)

// Event is published after an order state change is committed.
type Event struct {
	Type       EventType
	Order      Order
	OccurredAt time.Time
}

// Publisher delivers order events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }
