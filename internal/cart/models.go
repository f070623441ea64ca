// Package cart owns the client-authoritative shopping cart: the reducer
// state store, durable persistence, the projection engine joining cart lines
// with cached catalog data, and the optimistic synchronization with the
// remote cart API.
package cart

import (
	"strconv"

	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/users"
)

// CartID is the nominal identifier of a remote cart object.
type CartID int64

func (id CartID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Line is one cart entry. The cart is a set keyed by product: at most one
// line per product, quantity at least 1.
type Line struct {
	ProductID catalog.ProductID `json:"productId" validate:"required,gt=0"`
	Quantity  int               `json:"quantity"  validate:"gte=1"`
}

// RemoteProduct is a product as it appears inside a remote cart object. The
// remote API precomputes totals and discount; DiscountedTotal is optional on
// the wire.
type RemoteProduct struct {
	ID                 catalog.ProductID `json:"id"       validate:"required,gt=0"`
	Title              string            `json:"title"    validate:"required"`
	Price              float64           `json:"price"    validate:"gte=0"`
	Quantity           int               `json:"quantity" validate:"gte=0"`
	Total              float64           `json:"total"    validate:"gte=0"`
	DiscountPercentage float64           `json:"discountPercentage" validate:"gte=0,lte=100"`
	DiscountedTotal    float64           `json:"discountedTotal,omitempty"`
	Thumbnail          string            `json:"thumbnail" validate:"required,url"`
}

// RemoteCart is a server-side cart object. The client's own cart remains
// authoritative; remote carts exist for the cart endpoints' merge semantics
// and for order creation.
type RemoteCart struct {
	ID              CartID          `json:"id"     validate:"required,gt=0"`
	Products        []RemoteProduct `json:"products" validate:"dive"`
	Total           float64         `json:"total"           validate:"gte=0"`
	DiscountedTotal float64         `json:"discountedTotal" validate:"gte=0"`
	UserID          users.UserID    `json:"userId"          validate:"required,gt=0"`
	TotalProducts   int             `json:"totalProducts"   validate:"gte=0"`
	TotalQuantity   int             `json:"totalQuantity"   validate:"gte=0"`
}

// DeletedCart is the response of a cart deletion.
type DeletedCart struct {
	RemoteCart
	IsDeleted bool   `json:"isDeleted"`
	DeletedOn string `json:"deletedOn"`
}

// PaginatedCarts is the shape of the carts-by-user listing.
type PaginatedCarts struct {
	Carts []RemoteCart `json:"carts" validate:"dive"`
	Total int          `json:"total" validate:"gte=0"`
	Skip  int          `json:"skip"  validate:"gte=0"`
	Limit int          `json:"limit" validate:"gte=0"`
}
