package cart

import (
	"context"
	"fmt"

	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/users"
	"github.com/abgdnv/storefront/pkg/api"
	"github.com/go-playground/validator/v10"
)

// API wraps the remote cart endpoints. The remote cart API has merge
// semantics: a PUT with merge=true updates quantities in place, quantity 0
// removes the product, PATCH appends.
type API struct {
	client   *api.Client
	validate *validator.Validate
}

func NewAPI(client *api.Client) *API {
	return &API{
		client:   client,
		validate: validator.New(),
	}
}

type cartWriteProduct struct {
	ID       catalog.ProductID `json:"id"`
	Quantity int               `json:"quantity"`
}

type cartWriteBody struct {
	Merge    bool               `json:"merge,omitempty"`
	UserID   users.UserID       `json:"userId"`
	Products []cartWriteProduct `json:"products"`
}

// FetchByUser retrieves the user's first remote cart. Users without a cart
// get ErrNoCart.
func (a *API) FetchByUser(ctx context.Context, userID users.UserID) (RemoteCart, error) {
	var page PaginatedCarts
	if err := a.client.Get(ctx, "/carts/user/"+userID.String(), &page); err != nil {
		return RemoteCart{}, fmt.Errorf("fetch cart for user %s: %w", userID, err)
	}
	if err := a.validate.Struct(page); err != nil {
		return RemoteCart{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(page.Carts) == 0 {
		return RemoteCart{}, ErrNoCart
	}
	return page.Carts[0], nil
}

// UpdateQuantity sets the quantity of one product in the remote cart.
func (a *API) UpdateQuantity(ctx context.Context, userID users.UserID, cartID CartID, productID catalog.ProductID, quantity int) (RemoteCart, error) {
	body := cartWriteBody{
		Merge:    true,
		UserID:   userID,
		Products: []cartWriteProduct{{ID: productID, Quantity: quantity}},
	}
	return a.write(ctx, "PUT", "/carts/"+cartID.String(), body)
}

// AddProduct appends one product to the remote cart.
func (a *API) AddProduct(ctx context.Context, userID users.UserID, cartID CartID, productID catalog.ProductID, quantity int) (RemoteCart, error) {
	body := cartWriteBody{
		UserID:   userID,
		Products: []cartWriteProduct{{ID: productID, Quantity: quantity}},
	}
	return a.write(ctx, "PATCH", "/carts/"+cartID.String(), body)
}

// RemoveProduct removes one product from the remote cart by merging a zero
// quantity.
func (a *API) RemoveProduct(ctx context.Context, userID users.UserID, cartID CartID, productID catalog.ProductID) (RemoteCart, error) {
	return a.UpdateQuantity(ctx, userID, cartID, productID, 0)
}

// Delete removes the whole remote cart.
func (a *API) Delete(ctx context.Context, cartID CartID) (DeletedCart, error) {
	var deleted DeletedCart
	if err := a.client.Delete(ctx, "/carts/"+cartID.String(), &deleted); err != nil {
		return DeletedCart{}, fmt.Errorf("delete cart %s: %w", cartID, err)
	}
	if err := a.validate.Struct(deleted); err != nil {
		return DeletedCart{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return deleted, nil
}

// CreateOrder submits the given lines as a new remote cart, which is how
// the demo API models order creation.
func (a *API) CreateOrder(ctx context.Context, userID users.UserID, lines []Line) (RemoteCart, error) {
	products := make([]cartWriteProduct, 0, len(lines))
	for _, l := range lines {
		products = append(products, cartWriteProduct{ID: l.ProductID, Quantity: l.Quantity})
	}
	body := cartWriteBody{UserID: userID, Products: products}

	var cart RemoteCart
	if err := a.client.Post(ctx, "/carts/add", body, &cart); err != nil {
		return RemoteCart{}, fmt.Errorf("create order: %w", err)
	}
	if err := a.validate.Struct(cart); err != nil {
		return RemoteCart{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return cart, nil
}

func (a *API) write(ctx context.Context, method, path string, body cartWriteBody) (RemoteCart, error) {
	var cart RemoteCart
	if err := a.client.Do(ctx, method, path, body, &cart); err != nil {
		return RemoteCart{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if err := a.validate.Struct(cart); err != nil {
		return RemoteCart{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return cart, nil
}
