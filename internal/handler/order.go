package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/xenking/furniture-store/internal/domain/order"
)

type orderLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type placeOrderRequest struct {
	Products        []orderLineRequest  `json:"products"`
	ShippingAddress *addressJSON        `json:"shippingAddress"`
	PaymentMethod   string              `json:"paymentMethod"`
	CouponCode      string              `json:"couponCode"`
	TotalAmount     decimal.NullDecimal `json:"totalAmount"`
}

type applyCouponRequest struct {
	Code        string              `json:"code"`
	TotalAmount decimal.NullDecimal `json:"totalAmount"`
}

type statusRequest struct {
	DeliveryStatus string `json:"deliveryStatus"`
}

type cancelRequest struct {
	CancelReason string `json:"cancelReason"`
}

func mapOrderError(err error) error {
	var (
		qtyErr      *order.InvalidQuantityError
		stockErr    *order.InsufficientStockError
		conflictErr *order.StockConflictError
		notFoundErr *order.ProductNotFoundError
		statusErr   *order.InvalidStatusError
	)
	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrMissingProduct),
		errors.Is(err, order.ErrMissingAddress),
		errors.Is(err, order.ErrNotCancellable),
		errors.Is(err, order.ErrAlreadyCanceled):
		return fail(http.StatusBadRequest, err.Error())
	case errors.As(err, &qtyErr):
		return fail(http.StatusBadRequest, qtyErr.Error())
	case errors.As(err, &stockErr):
		return fail(http.StatusBadRequest, stockErr.Error())
	case errors.As(err, &conflictErr):
		return fail(http.StatusBadRequest, "insufficient stock")
	case errors.As(err, &statusErr):
		return fail(http.StatusBadRequest, statusErr.Error())
	case errors.As(err, &notFoundErr):
		return fail(http.StatusNotFound, notFoundErr.Error())
	case errors.Is(err, order.ErrOrderNotFound):
		return fail(http.StatusNotFound, order.ErrOrderNotFound.Error())
	case errors.Is(err, order.ErrForbidden):
		return fail(http.StatusForbidden, "unauthorized")
	case errors.Is(err, order.ErrStatusChanged):
		return fail(http.StatusConflict, order.ErrStatusChanged.Error())
	}
	return mapCouponError(err)
}

// PlaceOrder handles POST /api/orders/place-order.
func (h *Handler) PlaceOrder(c echo.Context) error {
	var req placeOrderRequest
	if err := decodeJSON(c, &req, false); err != nil {
		return err
	}

	lines := make([]order.Line, len(req.Products))
	for i, p := range req.Products {
		lines[i] = order.Line{Product: strings.TrimSpace(p.ProductID), Quantity: p.Quantity}
	}

	var addr *order.Address
	if a := req.ShippingAddress; a != nil {
		addr = &order.Address{
			FullName:   strings.TrimSpace(a.FullName),
			Address:    strings.TrimSpace(a.Address),
			City:       strings.TrimSpace(a.City),
			State:      strings.TrimSpace(a.State),
			PostalCode: strings.TrimSpace(a.PostalCode),
			Country:    strings.TrimSpace(a.Country),
			Email:      strings.TrimSpace(a.Email),
			Phone:      strings.TrimSpace(a.Phone),
		}
	}

	o, err := h.orders.PlaceOrder(c.Request().Context(), order.PlaceOrderRequest{
		UserID:          identity(c).UserID,
		Lines:           lines,
		ShippingAddress: addr,
		PaymentMethod:   req.PaymentMethod,
		CouponCode:      req.CouponCode,
		ClientTotal:     req.TotalAmount,
	})
	if err != nil {
		return mapOrderError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "order": toOrder(o)})
}

// ApplyCoupon handles POST /api/orders/apply-coupon. It previews a discount
// without redeeming the coupon.
func (h *Handler) ApplyCoupon(c echo.Context) error {
	var req applyCouponRequest
	if err := decodeJSON(c, &req, false); err != nil {
		return err
	}
	if strings.TrimSpace(req.Code) == "" || !req.TotalAmount.Valid {
		return fail(http.StatusBadRequest, "code and total amount are required")
	}

	ev, err := h.evaluator.Evaluate(c.Request().Context(), req.Code, req.TotalAmount.Decimal)
	if err != nil {
		return mapCouponError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"discount":   ev.Discount.InexactFloat64(),
		"finalTotal": ev.FinalTotal.InexactFloat64(),
		"coupon":     map[string]string{"code": ev.Code},
	})
}

// MyOrders handles GET /api/orders/my-orders.
func (h *Handler) MyOrders(c echo.Context) error {
	orders, err := h.orders.ListForUser(c.Request().Context(), identity(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "orders": toOrders(orders)})
}

// CancelOrder handles PUT /api/orders/cancel/:orderId.
func (h *Handler) CancelOrder(c echo.Context) error {
	var req cancelRequest
	if err := decodeJSON(c, &req, true); err != nil {
		return err
	}
	o, err := h.orders.Cancel(c.Request().Context(), identity(c).UserID, c.Param("orderId"), req.CancelReason)
	if err != nil {
		return mapOrderError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Order cancelled.",
		"order":   toOrder(o),
	})
}

// AllOrders handles GET /api/orders/all.
func (h *Handler) AllOrders(c echo.Context) error {
	orders, err := h.orders.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "orders": toOrders(orders)})
}

// UpdateOrderStatus handles PUT /api/orders/update/:orderId.
func (h *Handler) UpdateOrderStatus(c echo.Context) error {
	var req statusRequest
	if err := decodeJSON(c, &req, false); err != nil {
		return err
	}
	o, err := h.orders.UpdateDeliveryStatus(c.Request().Context(), c.Param("orderId"), req.DeliveryStatus)
	if err != nil {
		return mapOrderError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Order status updated",
		"order":   toOrder(o),
	})
}

