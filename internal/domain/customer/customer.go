// Package customer holds per-user state: the saved shipping address, the
// shopping cart and the wishlist.
package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/furniture-store/internal/domain/product"
)

var (
	// ErrAddressNotFound is returned when the user has no saved address.
	ErrAddressNotFound = errors.New("shipping address not found")
	// ErrNotInCart is returned when a cart operation targets a missing item.
	ErrNotInCart = errors.New("product not found in cart")
	// ErrInvalidQuantity is returned for cart quantities below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrAddressRequired is returned when saving an address without a street.
	ErrAddressRequired = errors.New("address is required")
)

// StockLimitError reports a cart change that would exceed available stock.
type StockLimitError struct {
	Requested int
	Remaining int
}

func (e *StockLimitError) Error() string {
	return fmt.Sprintf("cannot add %d item(s), only %d left in stock", e.Requested, e.Remaining)
}

// Address is the shipping address saved on a user profile.
type Address struct {
	FirstName  string
	LastName   string
	Address    string
	City       string
	State      string
	PostalCode string
	Country    string
	Email      string
	Phone      string
}

// FullName joins the first and last name.
func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// HasStreet reports whether the street line is filled in.
func (a Address) HasStreet() bool {
	return strings.TrimSpace(a.Address) != ""
}

// CartItem is a product reference with a quantity in a user's cart.
type CartItem struct {
	ProductID string
	Quantity  int
	AddedAt   time.Time
}

// CartLine is a cart item joined with its current product data.
type CartLine struct {
	Product  product.Product
	Quantity int
	AddedAt  time.Time
}

// WishlistItem is a product saved for later.
type WishlistItem struct {
	ProductID string
	AddedAt   time.Time
}

// WishlistEntry is a wishlist item joined with its current product data.
type WishlistEntry struct {
	Product product.Product
	AddedAt time.Time
}

// AddressBook reads saved shipping addresses.
type AddressBook interface {
	// ShippingAddress returns ErrAddressNotFound when nothing is saved.
	ShippingAddress(ctx context.Context, userID string) (*Address, error)
}

// Repository persists per-user customer state.
type Repository interface {
	AddressBook

	SaveShippingAddress(ctx context.Context, userID string, addr Address) error

	CartItems(ctx context.Context, userID string) ([]CartItem, error)
	// PutCartItem inserts or replaces the cart item for item.ProductID.
	PutCartItem(ctx context.Context, userID string, item CartItem) error
	// RemoveCartItem returns ErrNotInCart when the item is absent.
	RemoveCartItem(ctx context.Context, userID, productID string) error

	WishlistItems(ctx context.Context, userID string) ([]WishlistItem, error)
	// AddWishlistItem is a no-op when the product is already present.
	AddWishlistItem(ctx context.Context, userID string, item WishlistItem) error
	RemoveWishlistItem(ctx context.Context, userID, productID string) error
}
