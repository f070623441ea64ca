// Package catalog owns the product side of the storefront: remote catalog
// queries, their cache keys, filter/page parameters and the prefetch
// coordinator.
package catalog

import "strconv"

// ProductID is the nominal identifier of a catalog product. It is a distinct
// type so product, user and cart identifiers cannot be mixed up even though
// all of them are integers on the wire.
type ProductID int64

func (id ProductID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Review is a customer review attached to a product.
type Review struct {
	Date          string  `json:"date"          validate:"required"`
	Rating        float64 `json:"rating"        validate:"gte=0,lte=5"`
	Comment       string  `json:"comment"       validate:"required"`
	ReviewerEmail string  `json:"reviewerEmail" validate:"required,email"`
	ReviewerName  string  `json:"reviewerName"  validate:"required"`
}

// Product is a catalog entry as served by the remote API. Products are
// immutable from the client's perspective and only ever live in the query
// cache. Brand and Reviews are genuinely optional on the wire.
type Product struct {
	ID          ProductID `json:"id"          validate:"required,gt=0"`
	Title       string    `json:"title"       validate:"required"`
	Description string    `json:"description" validate:"required"`
	Category    string    `json:"category"    validate:"required"`
	Price       float64   `json:"price"       validate:"gte=0"`
	Brand       string    `json:"brand,omitempty"`
	Rating      float64   `json:"rating"      validate:"gte=0"`
	Stock       int       `json:"stock"       validate:"gte=0"`
	Images      []string  `json:"images"      validate:"required"`
	Thumbnail   string    `json:"thumbnail"   validate:"required,url"`
	Reviews     []Review  `json:"reviews,omitempty" validate:"omitempty,dive"`
}

// Page is one slice of the (possibly filtered) catalog. Total is the server
// side count over the whole filtered set, not len(Products).
type Page struct {
	Products []Product `json:"products" validate:"dive"`
	Total    int       `json:"total"    validate:"gte=0"`
	Skip     int       `json:"skip"     validate:"gte=0"`
	Limit    int       `json:"limit"    validate:"gt=0"`
}
