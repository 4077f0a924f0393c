package customer_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/furniture-store/internal/domain/customer"
	"github.com/xenking/furniture-store/internal/domain/product"
	"github.com/xenking/furniture-store/internal/storage/memory"
)

const userID = "user-1"

func setup(t *testing.T, stock int) (*customer.Service, *memory.Store, product.Product) {
	t.Helper()
	store := memory.New()
	p := product.Product{
		ID:    product.NewID(),
		Slug:  "velvet-ottoman",
		Title: "Velvet Ottoman",
		Price: product.Price{Amount: decimal.NewFromInt(129), Currency: product.DefaultCurrency},
		Stock: stock,
	}
	require.NoError(t, store.Products().Create(context.Background(), &p))
	return customer.NewService(store.Customers(), product.NewResolver(store.Products())), store, p
}

func TestShippingAddress(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t, 1)

	_, err := svc.ShippingAddress(ctx, userID)
	require.ErrorIs(t, err, customer.ErrAddressNotFound)

	require.ErrorIs(t, svc.SaveShippingAddress(ctx, userID, customer.Address{City: "Oslo"}), customer.ErrAddressRequired)

	addr := customer.Address{FirstName: "Ole", LastName: "Nordmann", Address: "Karl Johans gate 1", City: "Oslo"}
	require.NoError(t, svc.SaveShippingAddress(ctx, userID, addr))

	got, err := svc.ShippingAddress(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, addr, *got)
	assert.Equal(t, "Ole Nordmann", got.FullName())
}

func TestCart(t *testing.T) {
	ctx := context.Background()
	svc, store, p := setup(t, 3)

	require.NoError(t, svc.AddToCart(ctx, userID, "velvet-ottoman", 0))
	require.NoError(t, svc.AddToCart(ctx, userID, p.ID, 1))

	lines, err := svc.Cart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, p.ID, lines[0].Product.ID)

	err = svc.AddToCart(ctx, userID, p.ID, 2)
	var limit *customer.StockLimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 1, limit.Remaining)

	require.ErrorIs(t, svc.AddToCart(ctx, userID, p.ID, -1), customer.ErrInvalidQuantity)
	require.ErrorIs(t, svc.AddToCart(ctx, userID, "missing", 1), product.ErrNotFound)

	require.NoError(t, svc.UpdateCartItem(ctx, userID, p.ID, 3))
	require.ErrorAs(t, svc.UpdateCartItem(ctx, userID, p.ID, 4), &limit)
	require.ErrorIs(t, svc.UpdateCartItem(ctx, userID, p.ID, 0), customer.ErrInvalidQuantity)

	require.NoError(t, svc.RemoveFromCart(ctx, userID, p.ID))
	require.ErrorIs(t, svc.RemoveFromCart(ctx, userID, p.ID), customer.ErrNotInCart)
	require.ErrorIs(t, svc.UpdateCartItem(ctx, userID, p.ID, 1), customer.ErrNotInCart)

	// Lines for deleted products are dropped.
	require.NoError(t, svc.AddToCart(ctx, userID, p.ID, 1))
	require.NoError(t, store.Products().Delete(ctx, p.ID))
	lines, err = svc.Cart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestWishlist(t *testing.T) {
	ctx := context.Background()
	svc, _, p := setup(t, 0)

	require.NoError(t, svc.AddToWishlist(ctx, userID, "velvet-ottoman"))
	require.NoError(t, svc.AddToWishlist(ctx, userID, p.ID))

	entries, err := svc.Wishlist(ctx, userID)
	require.NoError(t, err)
	require.Len(t, entries, 1, "adding twice is a no-op")
	assert.Equal(t, "Velvet Ottoman", entries[0].Product.Title)

	require.NoError(t, svc.RemoveFromWishlist(ctx, userID, p.ID))
	entries, err = svc.Wishlist(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
