package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"

	"github.com/xenking/furniture-store/internal/domain/coupon"
)

func mapCouponError(err error) error {
	var (
		unknownErr *coupon.UnknownCodeError
		minErr     *coupon.BelowMinimumError
		validation *coupon.ValidationError
	)
	switch {
	case errors.As(err, &unknownErr):
		return fail(http.StatusNotFound, unknownErr.Error())
	case errors.Is(err, coupon.ErrInvalidCoupon):
		return fail(http.StatusNotFound, coupon.ErrInvalidCoupon.Error())
	case errors.Is(err, coupon.ErrNotFound):
		return fail(http.StatusNotFound, coupon.ErrNotFound.Error())
	case errors.Is(err, coupon.ErrCodeTaken):
		return fail(http.StatusConflict, coupon.ErrCodeTaken.Error())
	case errors.Is(err, coupon.ErrCodeRequired),
		errors.Is(err, coupon.ErrInvalidTotal),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrUsageLimitReached):
		return fail(http.StatusBadRequest, err.Error())
	case errors.As(err, &minErr):
		return fail(http.StatusBadRequest, minErr.Error())
	case errors.As(err, &validation):
		return fail(http.StatusBadRequest, validation.Error())
	}
	return err
}

// PublicCoupons handles GET /api/coupons.
func (h *Handler) PublicCoupons(c echo.Context) error {
	coupons, err := h.coupons.ListPublic(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCoupons(coupons))
}

// ListCoupons handles GET /api/admin/coupons.
func (h *Handler) ListCoupons(c echo.Context) error {
	coupons, err := h.coupons.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCoupons(coupons))
}

// CreateCoupon handles POST /api/admin/coupon.
func (h *Handler) CreateCoupon(c echo.Context) error {
	var req couponRequest
	if err := decodeJSON(c, &req, false); err != nil {
		return err
	}
	cp, err := h.coupons.Create(c.Request().Context(), req.draft())
	if err != nil {
		return mapCouponError(err)
	}
	return c.JSON(http.StatusCreated, toCoupon(cp))
}

// UpdateCoupon handles PUT /api/admin/coupon/:id.
func (h *Handler) UpdateCoupon(c echo.Context) error {
	var req couponRequest
	if err := decodeJSON(c, &req, false); err != nil {
		return err
	}
	cp, err := h.coupons.Update(c.Request().Context(), c.Param("id"), req.draft())
	if err != nil {
		return mapCouponError(err)
	}
	return c.JSON(http.StatusOK, toCoupon(cp))
}

// DeleteCoupon handles DELETE /api/admin/coupon/:id.
func (h *Handler) DeleteCoupon(c echo.Context) error {
	if err := h.coupons.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return mapCouponError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "coupon deleted"})
}
