package handler

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/furniture-store/internal/domain/coupon"
	"github.com/xenking/furniture-store/internal/domain/customer"
	"github.com/xenking/furniture-store/internal/domain/order"
	"github.com/xenking/furniture-store/internal/domain/product"
)

type productResponse struct {
	ID               string    `json:"_id"`
	Slug             string    `json:"slug"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Brand            string    `json:"brand,omitempty"`
	Price            float64   `json:"price"`
	Currency         string    `json:"currency"`
	Category         string    `json:"category"`
	Images           []string  `json:"images"`
	Material         string    `json:"material,omitempty"`
	Style            string    `json:"style,omitempty"`
	Colors           []string  `json:"colors"`
	AssemblyRequired bool      `json:"assemblyRequired"`
	Stock            int       `json:"stock"`
	Tags             []string  `json:"tags"`
	Rating           float64   `json:"rating"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (h *Handler) toProduct(p *product.Product) productResponse {
	return productResponse{
		ID:               p.ID,
		Slug:             p.Slug,
		Title:            p.Title,
		Description:      p.Description,
		Brand:            p.Brand,
		Price:            p.Price.Amount.InexactFloat64(),
		Currency:         p.Price.Currency,
		Category:         p.CategoryID,
		Images:           h.resolveImages(p.Images),
		Material:         p.Material,
		Style:            p.Style,
		Colors:           nonNil(p.Colors),
		AssemblyRequired: p.AssemblyRequired,
		Stock:            p.Stock,
		Tags:             nonNil(p.Tags),
		Rating:           p.Rating,
		Active:           p.Active,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func (h *Handler) toProducts(products []product.Product) []productResponse {
	out := make([]productResponse, len(products))
	for i := range products {
		out[i] = h.toProduct(&products[i])
	}
	return out
}

// resolveImages prefixes relative image paths with the configured base URL.
func (h *Handler) resolveImages(images []string) []string {
	out := make([]string, len(images))
	for i, img := range images {
		if h.imageBaseURL != "" && !strings.Contains(img, "://") {
			img = strings.TrimRight(h.imageBaseURL, "/") + "/" + strings.TrimLeft(img, "/")
		}
		out[i] = img
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type productRequest struct {
	Title            string          `json:"title"`
	Slug             string          `json:"slug"`
	Description      string          `json:"description"`
	Brand            string          `json:"brand"`
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency"`
	Category         string          `json:"category"`
	Images           []string        `json:"images"`
	Material         string          `json:"material"`
	Style            string          `json:"style"`
	Colors           []string        `json:"colors"`
	AssemblyRequired bool            `json:"assemblyRequired"`
	Stock            int             `json:"stock"`
	Tags             []string        `json:"tags"`
	Rating           float64         `json:"rating"`
	Active           *bool           `json:"active"`
}

func (r productRequest) draft() product.Draft {
	return product.Draft{
		Title:            r.Title,
		Slug:             r.Slug,
		Description:      r.Description,
		Brand:            r.Brand,
		Price:            r.Price,
		Currency:         r.Currency,
		CategoryID:       r.Category,
		Images:           r.Images,
		Material:         r.Material,
		Style:            r.Style,
		Colors:           r.Colors,
		AssemblyRequired: r.AssemblyRequired,
		Stock:            r.Stock,
		Tags:             r.Tags,
		Rating:           r.Rating,
		Active:           r.Active,
	}
}

type addressJSON struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

type itemResponse struct {
	ProductID string  `json:"productId"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type orderResponse struct {
	ID              string         `json:"_id"`
	UserID          string         `json:"userId"`
	Items           []itemResponse `json:"items"`
	ShippingAddress addressJSON    `json:"shippingAddress"`
	Subtotal        float64        `json:"subtotal"`
	Discount        float64        `json:"discount"`
	TotalAmount     float64        `json:"totalAmount"`
	CouponCode      string         `json:"couponCode,omitempty"`
	PaymentMethod   string         `json:"paymentMethod"`
	PaymentStatus   string         `json:"paymentStatus"`
	DeliveryStatus  string         `json:"deliveryStatus"`
	CancelReason    string         `json:"cancelReason,omitempty"`
	DeliveryDate    *time.Time     `json:"deliveryDate,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func toOrder(o *order.Order) orderResponse {
	items := make([]itemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = itemResponse{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			Price:     it.Price.InexactFloat64(),
		}
	}
	a := o.ShippingAddress
	return orderResponse{
		ID:     o.ID,
		UserID: o.UserID,
		Items:  items,
		ShippingAddress: addressJSON{
			FullName:   a.FullName,
			Address:    a.Address,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
			Email:      a.Email,
			Phone:      a.Phone,
		},
		Subtotal:       o.Subtotal.InexactFloat64(),
		Discount:       o.Discount.InexactFloat64(),
		TotalAmount:    o.TotalAmount.InexactFloat64(),
		CouponCode:     o.CouponCode,
		PaymentMethod:  o.PaymentMethod,
		PaymentStatus:  string(o.PaymentStatus),
		DeliveryStatus: string(o.DeliveryStatus),
		CancelReason:   o.CancelReason,
		DeliveryDate:   o.DeliveryDate,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func toOrders(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrder(&orders[i])
	}
	return out
}

type couponResponse struct {
	ID            string    `json:"_id"`
	Code          string    `json:"code"`
	DiscountType  string    `json:"discountType"`
	DiscountValue float64   `json:"discountValue"`
	MinPurchase   float64   `json:"minPurchase"`
	MaxDiscount   *float64  `json:"maxDiscount,omitempty"`
	ExpiryDate    time.Time `json:"expiryDate"`
	Active        bool      `json:"active"`
	MaxUsage      int       `json:"maxUsage"`
	Uses          int       `json:"uses"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toCoupon(c *coupon.Coupon) couponResponse {
	resp := couponResponse{
		ID:            c.ID,
		Code:          c.Code,
		DiscountType:  string(c.DiscountType),
		DiscountValue: c.DiscountValue.InexactFloat64(),
		MinPurchase:   c.MinPurchase.InexactFloat64(),
		ExpiryDate:    c.ExpiryDate,
		Active:        c.Active,
		MaxUsage:      c.MaxUsage,
		Uses:          c.Uses,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.MaxDiscount.Valid {
		v := c.MaxDiscount.Decimal.InexactFloat64()
		resp.MaxDiscount = &v
	}
	return resp
}

func toCoupons(coupons []coupon.Coupon) []couponResponse {
	out := make([]couponResponse, len(coupons))
	for i := range coupons {
		out[i] = toCoupon(&coupons[i])
	}
	return out
}

type couponRequest struct {
	Code          string              `json:"code"`
	DiscountType  string              `json:"discountType"`
	DiscountValue decimal.Decimal     `json:"discountValue"`
	MinPurchase   decimal.Decimal     `json:"minPurchase"`
	MaxDiscount   decimal.NullDecimal `json:"maxDiscount"`
	ExpiryDate    time.Time           `json:"expiryDate"`
	Active        *bool               `json:"active"`
	MaxUsage      int                 `json:"maxUsage"`
}

func (r couponRequest) draft() coupon.Draft {
	return coupon.Draft{
		Code:          r.Code,
		DiscountType:  coupon.DiscountType(strings.ToLower(strings.TrimSpace(r.DiscountType))),
		DiscountValue: r.DiscountValue,
		MinPurchase:   r.MinPurchase,
		MaxDiscount:   r.MaxDiscount,
		ExpiryDate:    r.ExpiryDate,
		Active:        r.Active,
		MaxUsage:      r.MaxUsage,
	}
}

type customerAddressJSON struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

func toCustomerAddress(a *customer.Address) customerAddressJSON {
	return customerAddressJSON{
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Address:    a.Address,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Email:      a.Email,
		Phone:      a.Phone,
	}
}

func (a customerAddressJSON) address() customer.Address {
	return customer.Address{
		FirstName:  strings.TrimSpace(a.FirstName),
		LastName:   strings.TrimSpace(a.LastName),
		Address:    strings.TrimSpace(a.Address),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
		Email:      strings.TrimSpace(a.Email),
		Phone:      strings.TrimSpace(a.Phone),
	}
}
