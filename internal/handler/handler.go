// Package handler exposes the storefront over HTTP using echo.
package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/furniture-store/internal/domain/auth"
	"github.com/xenking/furniture-store/internal/domain/coupon"
	"github.com/xenking/furniture-store/internal/domain/customer"
	"github.com/xenking/furniture-store/internal/domain/order"
	"github.com/xenking/furniture-store/internal/domain/product"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
	// APIKeyPepper keys the HMAC used to hash X-API-Key values.
	APIKeyPepper []byte
}

// Deps are the domain services served by the Handler.
type Deps struct {
	Catalog   *product.Catalog
	Orders    *order.Service
	Coupons   *coupon.Service
	Evaluator *coupon.Evaluator
	Customers *customer.Service
	Tokens    *auth.Tokens
	APIKeys   auth.Repository
}

// Handler serves the /api routes.
type Handler struct {
	catalog   *product.Catalog
	orders    *order.Service
	coupons   *coupon.Service
	evaluator *coupon.Evaluator
	customers *customer.Service

	security     *Security
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, d Deps) *Handler {
	return &Handler{
		catalog:      d.Catalog,
		orders:       d.Orders,
		coupons:      d.Coupons,
		evaluator:    d.Evaluator,
		customers:    d.Customers,
		security:     NewSecurity(d.Tokens, d.APIKeys, cfg.APIKeyPepper),
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// NewEcho returns an echo instance with h registered under /api.
func NewEcho(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Use(nameSpan)
	h.Register(e)
	return e
}

// Register mounts every route on e.
func (h *Handler) Register(e *echo.Echo) {
	api := e.Group("/api")
	user := h.security.RequireUser
	admin := h.security.RequireAdmin

	products := api.Group("/products")
	products.GET("", h.ListProducts)
	products.GET("/search", h.SearchProducts)
	products.GET("/brands", h.Brands)
	products.GET("/:ident", h.GetProduct)
	products.GET("/:ident/related", h.RelatedProducts)

	api.GET("/coupons", h.PublicCoupons)

	orders := api.Group("/orders")
	orders.POST("/place-order", h.PlaceOrder, user)
	orders.POST("/apply-coupon", h.ApplyCoupon, user)
	orders.GET("/my-orders", h.MyOrders, user)
	orders.PUT("/cancel/:orderId", h.CancelOrder, user)
	orders.GET("/all", h.AllOrders, admin)
	orders.PUT("/update/:orderId", h.UpdateOrderStatus, admin)

	api.GET("/users/shipping-address", h.GetShippingAddress, user)
	api.PUT("/users/shipping-address", h.SaveShippingAddress, user)

	cart := api.Group("/cart", user)
	cart.GET("", h.Cart)
	cart.POST("/add/:productId", h.AddToCart)
	cart.PUT("/update/:productId", h.UpdateCartItem)
	cart.DELETE("/remove/:productId", h.RemoveFromCart)

	wishlist := api.Group("/wishlist", user)
	wishlist.GET("", h.Wishlist)
	wishlist.POST("/add/:productId", h.AddToWishlist)
	wishlist.DELETE("/remove/:productId", h.RemoveFromWishlist)

	adm := api.Group("/admin", admin)
	adm.POST("/products", h.CreateProduct)
	adm.GET("/products", h.ListProducts)
	adm.GET("/products/:id", h.GetProduct)
	adm.PUT("/products/:id", h.UpdateProduct)
	adm.DELETE("/products/:id", h.DeleteProduct)
	adm.POST("/coupon", h.CreateCoupon)
	adm.GET("/coupons", h.ListCoupons)
	adm.PUT("/coupon/:id", h.UpdateCoupon)
	adm.DELETE("/coupon/:id", h.DeleteCoupon)
}

// nameSpan renames the otelhttp server span to the matched route.
func nameSpan(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if path := c.Path(); path != "" {
			trace.SpanFromContext(c.Request().Context()).SetName(c.Request().Method + " " + path)
		}
		return err
	}
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type internalErrorBody struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// fail returns an error rendered as {"code": status, "message": msg}.
func fail(status int, msg string) error {
	return echo.NewHTTPError(status, msg)
}

// errorHandler renders client errors as {code, message} and everything else
// as a logged 500 {code, error}.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		status = http.StatusInternalServerError
		body   any
	)
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) && httpErr.Code < http.StatusInternalServerError {
		status = httpErr.Code
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(status)
		}
		body = errorBody{Code: status, Message: msg}
	} else {
		zctx.From(c.Request().Context()).Error("Request failed",
			zap.String("method", c.Request().Method),
			zap.String("route", c.Path()),
			zap.Error(err),
		)
		body = internalErrorBody{Code: status, Error: err.Error()}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		zctx.From(c.Request().Context()).Warn("Write error response", zap.Error(err))
	}
}
