package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/xenking/furniture-store/internal/domain/product"
)

var sortOrders = map[string]product.SortOrder{
	"":           product.SortNewest,
	"newest":     product.SortNewest,
	"featured":   product.SortRating,
	"rating":     product.SortRating,
	"price_asc":  product.SortPriceAsc,
	"price_desc": product.SortPriceDesc,
}

func mapProductError(err error) error {
	var (
		notFound   *product.NotFoundError
		validation *product.ValidationError
	)
	switch {
	case errors.As(err, &notFound), errors.Is(err, product.ErrNotFound):
		return fail(http.StatusNotFound, "product not found")
	case errors.As(err, &validation):
		return fail(http.StatusBadRequest, validation.Error())
	case errors.Is(err, product.ErrSlugTaken):
		return fail(http.StatusBadRequest, product.ErrSlugTaken.Error())
	case errors.Is(err, product.ErrEmptyQuery):
		return fail(http.StatusBadRequest, product.ErrEmptyQuery.Error())
	}
	return err
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fail(http.StatusBadRequest, "invalid "+name)
	}
	return v, nil
}

func queryDecimal(c echo.Context, name string) (decimal.NullDecimal, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fail(http.StatusBadRequest, "invalid "+name)
	}
	return decimal.NewNullDecimal(v), nil
}

func parseListQuery(c echo.Context) (product.ListQuery, error) {
	var (
		q   product.ListQuery
		err error
	)
	if q.Page, err = queryInt(c, "page"); err != nil {
		return q, err
	}
	if q.Limit, err = queryInt(c, "limit"); err != nil {
		return q, err
	}
	if q.MinPrice, err = queryDecimal(c, "minPrice"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = queryDecimal(c, "maxPrice"); err != nil {
		return q, err
	}
	sort, ok := sortOrders[c.QueryParam("sort")]
	if !ok {
		return q, fail(http.StatusBadRequest, "invalid sort")
	}
	q.Sort = sort
	q.CategoryID = c.QueryParam("category")
	q.Brand = c.QueryParam("brand")
	q.InStock = c.QueryParam("inStock") == "true"
	return q, nil
}

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(c echo.Context) error {
	q, err := parseListQuery(c)
	if err != nil {
		return err
	}
	page, err := h.catalog.List(c.Request().Context(), q)
	if err != nil {
		return mapProductError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"products":   h.toProducts(page.Products),
		"page":       page.Page,
		"limit":      page.Limit,
		"totalCount": page.TotalCount,
		"totalPages": page.TotalPages,
	})
}

// SearchProducts handles GET /api/products/search?q=.
func (h *Handler) SearchProducts(c echo.Context) error {
	products, err := h.catalog.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return mapProductError(err)
	}
	return c.JSON(http.StatusOK, h.toProducts(products))
}

// Brands handles GET /api/products/brands.
func (h *Handler) Brands(c echo.Context) error {
	brands, err := h.catalog.Brands(c.Request().Context())
	if err != nil {
		return err
	}
	if brands == nil {
		brands = []string{}
	}
	return c.JSON(http.StatusOK, map[string]any{"brands": brands})
}

func identParam(c echo.Context) string {
	if v := c.Param("ident"); v != "" {
		return v
	}
	return c.Param("id")
}

// GetProduct handles GET /api/products/:ident where ident is an id or slug.
func (h *Handler) GetProduct(c echo.Context) error {
	p, err := h.catalog.Get(c.Request().Context(), identParam(c))
	if err != nil {
		return mapProductError(err)
	}
	return c.JSON(http.StatusOK, h.toProduct(p))
}

// RelatedProducts handles GET /api/products/:ident/related.
func (h *Handler) RelatedProducts(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	products, err := h.catalog.Related(c.Request().Context(), identParam(c), limit)
	if err != nil {
		return mapProductError(err)
	}
	return c.JSON(http.StatusOK, h.toProducts(products))
}

// CreateProduct handles POST /api/admin/products.
func (h *Handler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := decodeJSON(c, &req, false); err != nil {
		return err
	}
	p, err := h.catalog.Create(c.Request().Context(), req.draft())
	if err != nil {
		return mapProductError(err)
	}
	return c.JSON(http.StatusCreated, h.toProduct(p))
}

// UpdateProduct handles PUT /api/admin/products/:id.
func (h *Handler) UpdateProduct(c echo.Context) error {
	var req productRequest
	if err := decodeJSON(c, &req, false); err != nil {
		return err
	}
	p, err := h.catalog.Update(c.Request().Context(), c.Param("id"), req.draft())
	if err != nil {
		return mapProductError(err)
	}
	return c.JSON(http.StatusOK, h.toProduct(p))
}

// DeleteProduct handles DELETE /api/admin/products/:id.
func (h *Handler) DeleteProduct(c echo.Context) error {
	if err := h.catalog.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return mapProductError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "product deleted"})
}
