package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"

	"github.com/xenking/furniture-store/internal/domain/customer"
)

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartLineResponse struct {
	Product  productResponse `json:"product"`
	Quantity int             `json:"quantity"`
}

type wishlistEntryResponse struct {
	Product productResponse `json:"product"`
}

func mapCustomerError(err error) error {
	var limitErr *customer.StockLimitError
	switch {
	case errors.Is(err, customer.ErrAddressNotFound):
		return fail(http.StatusNotFound, customer.ErrAddressNotFound.Error())
	case errors.Is(err, customer.ErrNotInCart):
		return fail(http.StatusNotFound, customer.ErrNotInCart.Error())
	case errors.Is(err, customer.ErrInvalidQuantity), errors.Is(err, customer.ErrAddressRequired):
		return fail(http.StatusBadRequest, err.Error())
	case errors.As(err, &limitErr):
		return fail(http.StatusBadRequest, limitErr.Error())
	}
	return mapProductError(err)
}

// GetShippingAddress handles GET /api/users/shipping-address.
func (h *Handler) GetShippingAddress(c echo.Context) error {
	addr, err := h.customers.ShippingAddress(c.Request().Context(), identity(c).UserID)
	if err != nil {
		return mapCustomerError(err)
	}
	return c.JSON(http.StatusOK, toCustomerAddress(addr))
}

// SaveShippingAddress handles PUT /api/users/shipping-address.
func (h *Handler) SaveShippingAddress(c echo.Context) error {
	var req customerAddressJSON
	if err := decodeJSON(c, &req, false); err != nil {
		return err
	}
	addr := req.address()
	if err := h.customers.SaveShippingAddress(c.Request().Context(), identity(c).UserID, addr); err != nil {
		return mapCustomerError(err)
	}
	return c.JSON(http.StatusOK, toCustomerAddress(&addr))
}

func (h *Handler) renderCart(c echo.Context) error {
	lines, err := h.customers.Cart(c.Request().Context(), identity(c).UserID)
	if err != nil {
		return mapCustomerError(err)
	}
	out := make([]cartLineResponse, len(lines))
	for i := range lines {
		out[i] = cartLineResponse{Product: h.toProduct(&lines[i].Product), Quantity: lines[i].Quantity}
	}
	return c.JSON(http.StatusOK, map[string]any{"items": out})
}

// Cart handles GET /api/cart.
func (h *Handler) Cart(c echo.Context) error {
	return h.renderCart(c)
}

// AddToCart handles POST /api/cart/add/:productId. The quantity defaults to one.
func (h *Handler) AddToCart(c echo.Context) error {
	var req quantityRequest
	if err := decodeJSON(c, &req, true); err != nil {
		return err
	}
	if err := h.customers.AddToCart(c.Request().Context(), identity(c).UserID, c.Param("productId"), req.Quantity); err != nil {
		return mapCustomerError(err)
	}
	return h.renderCart(c)
}

// UpdateCartItem handles PUT /api/cart/update/:productId.
func (h *Handler) UpdateCartItem(c echo.Context) error {
	var req quantityRequest
	if err := decodeJSON(c, &req, false); err != nil {
		return err
	}
	if err := h.customers.UpdateCartItem(c.Request().Context(), identity(c).UserID, c.Param("productId"), req.Quantity); err != nil {
		return mapCustomerError(err)
	}
	return h.renderCart(c)
}

// RemoveFromCart handles DELETE /api/cart/remove/:productId.
func (h *Handler) RemoveFromCart(c echo.Context) error {
	if err := h.customers.RemoveFromCart(c.Request().Context(), identity(c).UserID, c.Param("productId")); err != nil {
		return mapCustomerError(err)
	}
	return h.renderCart(c)
}

func (h *Handler) renderWishlist(c echo.Context) error {
	entries, err := h.customers.Wishlist(c.Request().Context(), identity(c).UserID)
	if err != nil {
		return mapCustomerError(err)
	}
	out := make([]wishlistEntryResponse, len(entries))
	for i := range entries {
		out[i] = wishlistEntryResponse{Product: h.toProduct(&entries[i].Product)}
	}
	return c.JSON(http.StatusOK, map[string]any{"items": out})
}

// Wishlist handles GET /api/wishlist.
func (h *Handler) Wishlist(c echo.Context) error {
	return h.renderWishlist(c)
}

// AddToWishlist handles POST /api/wishlist/add/:productId.
func (h *Handler) AddToWishlist(c echo.Context) error {
	if err := h.customers.AddToWishlist(c.Request().Context(), identity(c).UserID, c.Param("productId")); err != nil {
		return mapCustomerError(err)
	}
	return h.renderWishlist(c)
}

// RemoveFromWishlist handles DELETE /api/wishlist/remove/:productId.
func (h *Handler) RemoveFromWishlist(c echo.Context) error {
	if err := h.customers.RemoveFromWishlist(c.Request().Context(), identity(c).UserID, c.Param("productId")); err != nil {
		return mapCustomerError(err)
	}
	return h.renderWishlist(c)
}
