// Package rest provides the HTTP surface of the storefront: catalog
// browsing, cart manipulation, order creation and session management.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/users"
	"github.com/abgdnv/storefront/pkg/api"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// CatalogService is the slice of the catalog the handlers need.
type CatalogService interface {
	Page(ctx context.Context, p catalog.Params) (catalog.Page, error)
	Product(ctx context.Context, id catalog.ProductID) (catalog.Product, error)
	Categories(ctx context.Context) ([]string, error)
	MaybePrefetchNext(ctx context.Context, p catalog.Params, requestedPage int)
}

// CartService is the slice of the cart the handlers need.
type CartService interface {
	Projection() cart.Projection
	AddItem(ctx context.Context, id catalog.ProductID) error
	RemoveItem(ctx context.Context, id catalog.ProductID) error
	SetItemQuantity(ctx context.Context, id catalog.ProductID, quantity int) error
	Clear()
	SubmitOrder(ctx context.Context) (cart.RemoteCart, error)
}

// UserService is the slice of the user service the handlers need.
type UserService interface {
	Login(ctx context.Context, username, password string) (users.User, error)
	Logout() error
	CurrentUser(ctx context.Context) (users.User, error)
}

type Handler struct {
	catalog  CatalogService
	cart     CartService
	users    UserService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(catalogSvc CatalogService, cartSvc CartService, userSvc UserService, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:  catalogSvc,
		cart:     cartSvc,
		users:    userSvc,
		validate: validator.New(),

		logger: logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes of the storefront.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/{id}", h.GetProduct)
		})
		r.Get("/categories", h.ListCategories)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Put("/items/{id}", h.SetCartItemQuantity)
			r.Delete("/items/{id}", h.RemoveCartItem)
		})
		r.Post("/orders", h.CreateOrder)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
		})
		r.Get("/me", h.Me)
	})
	r.Get("/healthz", h.HealthCheck)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type addItemRequest struct {
	ProductID catalog.ProductID `json:"productId" validate:"required,gt=0"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"required"`
}

// ListProducts serves one catalog page. The query parameters mirror the
// listing state: page, category, q, sortBy, order. An optional prefetch
// parameter names a page the client is about to navigate to; when present
// the next page beyond it may be warmed in the background.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := web.ParseOptionalInt(r, w, mLogger, "page", 1)
	if !ok {
		return
	}

	q := r.URL.Query()
	params := catalog.DefaultParams().WithPage(page)
	if category := q.Get("category"); category != "" {
		params = params.WithCategory(category).WithPage(page)
	} else if query := q.Get("q"); query != "" {
		params = params.WithQuery(query).WithPage(page)
	}
	if sortBy := q.Get("sortBy"); sortBy != "" {
		order := catalog.Order(q.Get("order"))
		if order == "" {
			order = catalog.OrderAsc
		}
		params = catalog.Params{
			Page:     params.Page,
			Limit:    params.Limit,
			Category: params.Category,
			Query:    params.Query,
			SortBy:   catalog.SortBy(sortBy),
			Order:    order,
		}
	}

	mLogger.DebugContext(r.Context(), "Received request to list products", "page", params.Page, "category", params.Category, "q", params.Query)
	listing, err := h.catalog.Page(r.Context(), params)
	if err != nil {
		h.respondUpstreamError(w, r, mLogger, err, "Failed to fetch products")
		return
	}

	if raw := q.Get("prefetch"); raw != "" {
		if target, err := strconv.Atoi(raw); err == nil && target > 0 {
			// The request may finish before the warmup does.
			h.catalog.MaybePrefetchNext(context.WithoutCancel(r.Context()), params, target)
		}
	}

	mLogger.DebugContext(r.Context(), "Successfully retrieved product page", "count", len(listing.Products), "total", listing.Total)
	web.RespondJSON(w, mLogger, http.StatusOK, listing)
}

// GetProduct retrieves one product by its ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)
	found, err := h.catalog.Product(r.Context(), catalog.ProductID(id))
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
			return
		}
		h.respondUpstreamError(w, r, mLogger, err, fmt.Sprintf("Failed to retrieve product with ID %d", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// ListCategories serves the category list.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.respondUpstreamError(w, r, mLogger, err, "Failed to fetch categories")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, categories)
}

// GetCart serves the current cart projection.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.cart.Projection())
}

// AddCartItem puts a product into the cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req addItemRequest
	if !h.decodeAndValidate(w, r, mLogger, &req) {
		return
	}

	if err := h.cart.AddItem(r.Context(), req.ProductID); err != nil {
		mLogger.WarnContext(r.Context(), "Remote cart sync failed on add", "product_id", req.ProductID, "error", err)
	}
	web.RespondJSON(w, mLogger, http.StatusOK, h.cart.Projection())
}

// SetCartItemQuantity replaces a cart line's quantity.
func (h *Handler) SetCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var req quantityRequest
	if !h.decodeAndValidate(w, r, mLogger, &req) {
		return
	}

	if err := h.cart.SetItemQuantity(r.Context(), catalog.ProductID(id), req.Quantity); err != nil {
		mLogger.WarnContext(r.Context(), "Remote cart sync failed on quantity update", "product_id", id, "error", err)
	}
	web.RespondJSON(w, mLogger, http.StatusOK, h.cart.Projection())
}

// RemoveCartItem drops a product from the cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	if err := h.cart.RemoveItem(r.Context(), catalog.ProductID(id)); err != nil {
		mLogger.WarnContext(r.Context(), "Remote cart sync failed on remove", "product_id", id, "error", err)
	}
	web.RespondJSON(w, mLogger, http.StatusOK, h.cart.Projection())
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	h.cart.Clear()
	web.RespondJSON(w, mLogger, http.StatusOK, h.cart.Projection())
}

// CreateOrder submits the current cart as an order. The cart is cleared on
// success and preserved on failure.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	order, err := h.cart.SubmitOrder(r.Context())
	if err != nil {
		if errors.Is(err, users.ErrNoSession) {
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Login required to place an order")
			return
		}
		if errors.Is(err, cart.ErrEmptyCart) {
			web.RespondError(w, mLogger, http.StatusBadRequest, "Cart is empty")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error creating order", "error", err)
		web.RespondError(w, mLogger, http.StatusBadGateway, "Failed to create order")
		return
	}
	mLogger.InfoContext(r.Context(), "Order created successfully", slog.String("ID", order.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusCreated, order)
}

// Login authenticates against the remote API and establishes a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req loginRequest
	if !h.decodeAndValidate(w, r, mLogger, &req) {
		return
	}

	user, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrLoginFailed) {
			mLogger.WarnContext(r.Context(), "Login rejected", "username", req.Username)
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.respondUpstreamError(w, r, mLogger, err, "Login failed")
		return
	}
	mLogger.InfoContext(r.Context(), "User logged in", "user_id", user.ID)
	web.RespondJSON(w, mLogger, http.StatusOK, user)
}

// Logout drops the persisted session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	if err := h.users.Logout(); err != nil {
		mLogger.ErrorContext(r.Context(), "Error clearing session", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to log out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me serves the user record of the current session.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	user, err := h.users.CurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, users.ErrNoSession) {
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Not logged in")
			return
		}
		h.respondUpstreamError(w, r, mLogger, err, "Failed to fetch user")
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, user)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeAndValidate decodes the JSON body into dst and validates it,
// reporting field-level errors the same way for every endpoint.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondUpstreamError maps remote API failures to 502 and everything else
// to 500.
func (h *Handler) respondUpstreamError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error, message string) {
	mLogger.ErrorContext(r.Context(), message, "error", err)
	if errors.Is(err, catalog.ErrInvalidPayload) || errors.Is(err, users.ErrInvalidPayload) || errors.Is(err, cart.ErrInvalidPayload) {
		web.RespondError(w, mLogger, http.StatusBadGateway, "Upstream returned an invalid response")
		return
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		web.RespondError(w, mLogger, http.StatusBadGateway, message)
		return
	}
	web.RespondError(w, mLogger, http.StatusInternalServerError, message)
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID, _ := web.GetRequestID(r.Context())
	return h.logger.With("request_id", reqID)
}
