package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/furniture-store/internal/domain/product"
)

// Service implements address, cart and wishlist operations.
type Service struct {
	repo     Repository
	products *product.Resolver
	now      func() time.Time
}

// NewService creates a customer Service.
func NewService(repo Repository, products *product.Resolver) *Service {
	return &Service{repo: repo, products: products, now: time.Now}
}

// ShippingAddress returns the saved address of userID.
func (s *Service) ShippingAddress(ctx context.Context, userID string) (*Address, error) {
	addr, err := s.repo.ShippingAddress(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrAddressNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, errors.Wrap(err, "get shipping address")
	}
	return addr, nil
}

// SaveShippingAddress replaces the saved address of userID.
func (s *Service) SaveShippingAddress(ctx context.Context, userID string, addr Address) error {
	if !addr.HasStreet() {
		return ErrAddressRequired
	}
	if err := s.repo.SaveShippingAddress(ctx, userID, addr); err != nil {
		return errors.Wrap(err, "save shipping address")
	}
	return nil
}

// AddToCart adds qty units of the identified product to the cart. A zero
// quantity adds one unit. The resulting cart quantity may not exceed stock.
func (s *Service) AddToCart(ctx context.Context, userID, identifier string, qty int) error {
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return ErrInvalidQuantity
	}

	p, err := s.products.Resolve(ctx, identifier)
	if err != nil {
		return err
	}

	items, err := s.repo.CartItems(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "get cart")
	}

	item := CartItem{ProductID: p.ID, AddedAt: s.now().UTC()}
	for _, existing := range items {
		if existing.ProductID == p.ID {
			item = existing
			break
		}
	}

	if item.Quantity+qty > p.Stock {
		return &StockLimitError{Requested: qty, Remaining: max(p.Stock-item.Quantity, 0)}
	}
	item.Quantity += qty

	if err := s.repo.PutCartItem(ctx, userID, item); err != nil {
		return errors.Wrap(err, "put cart item")
	}

	zctx.From(ctx).Debug("Cart updated",
		zap.String("user_id", userID),
		zap.String("product_id", p.ID),
		zap.Int("quantity", item.Quantity),
	)
	return nil
}

// UpdateCartItem sets the quantity of a product already in the cart.
func (s *Service) UpdateCartItem(ctx context.Context, userID, identifier string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}

	p, err := s.products.Resolve(ctx, identifier)
	if err != nil {
		return err
	}

	items, err := s.repo.CartItems(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "get cart")
	}

	for _, item := range items {
		if item.ProductID != p.ID {
			continue
		}
		if qty > p.Stock {
			return &StockLimitError{Requested: qty, Remaining: p.Stock}
		}
		item.Quantity = qty
		if err := s.repo.PutCartItem(ctx, userID, item); err != nil {
			return errors.Wrap(err, "put cart item")
		}
		return nil
	}
	return ErrNotInCart
}

// RemoveFromCart deletes a product from the cart.
func (s *Service) RemoveFromCart(ctx context.Context, userID, productID string) error {
	if err := s.repo.RemoveCartItem(ctx, userID, productID); err != nil {
		if errors.Is(err, ErrNotInCart) {
			return ErrNotInCart
		}
		return errors.Wrap(err, "remove cart item")
	}
	return nil
}

// Cart returns the cart of userID joined with current product data.
// Items whose product no longer exists are omitted.
func (s *Service) Cart(ctx context.Context, userID string) ([]CartLine, error) {
	items, err := s.repo.CartItems(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		p, err := s.products.Resolve(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				continue
			}
			return nil, err
		}
		lines = append(lines, CartLine{Product: *p, Quantity: item.Quantity, AddedAt: item.AddedAt})
	}
	return lines, nil
}

// AddToWishlist saves the identified product. Adding twice is a no-op.
func (s *Service) AddToWishlist(ctx context.Context, userID, identifier string) error {
	p, err := s.products.Resolve(ctx, identifier)
	if err != nil {
		return err
	}
	item := WishlistItem{ProductID: p.ID, AddedAt: s.now().UTC()}
	if err := s.repo.AddWishlistItem(ctx, userID, item); err != nil {
		return errors.Wrap(err, "add wishlist item")
	}
	return nil
}

// RemoveFromWishlist deletes a product from the wishlist.
func (s *Service) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	if err := s.repo.RemoveWishlistItem(ctx, userID, productID); err != nil {
		return errors.Wrap(err, "remove wishlist item")
	}
	return nil
}

// Wishlist returns the wishlist of userID joined with current product data.
func (s *Service) Wishlist(ctx context.Context, userID string) ([]WishlistEntry, error) {
	items, err := s.repo.WishlistItems(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get wishlist")
	}

	entries := make([]WishlistEntry, 0, len(items))
	for _, item := range items {
		p, err := s.products.Resolve(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				continue
			}
			return nil, err
		}
		entries = append(entries, WishlistEntry{Product: *p, AddedAt: item.AddedAt})
	}
	return entries, nil
}
