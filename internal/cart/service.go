package cart

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/users"
	"github.com/abgdnv/storefront/pkg/querycache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const remoteCartStaleTime = 24 * time.Hour

// Namespace is the cache key namespace for remote cart entries.
const Namespace = "cart"

// CartKey is the cache key of a user's remote cart.
func CartKey(userID users.UserID) querycache.Key {
	return querycache.NewKey(Namespace, "byId", userID.String())
}

// Remote is the slice of the cart API the service needs.
type Remote interface {
	FetchByUser(ctx context.Context, userID users.UserID) (RemoteCart, error)
	UpdateQuantity(ctx context.Context, userID users.UserID, cartID CartID, productID catalog.ProductID, quantity int) (RemoteCart, error)
	AddProduct(ctx context.Context, userID users.UserID, cartID CartID, productID catalog.ProductID, quantity int) (RemoteCart, error)
	RemoveProduct(ctx context.Context, userID users.UserID, cartID CartID, productID catalog.ProductID) (RemoteCart, error)
	CreateOrder(ctx context.Context, userID users.UserID, lines []Line) (RemoteCart, error)
}

// Resolver answers product lookups from the catalog cache.
type Resolver interface {
	ResolveProduct(id catalog.ProductID) (catalog.Product, bool)
}

// Session exposes the current authentication identity.
type Session interface {
	CurrentUserID() (users.UserID, bool)
}

// Service ties the pieces together: the local store remains the source of
// truth for what the user intends to buy, while mutations are mirrored to
// the remote cart optimistically when a session and a cached remote cart
// exist.
type Service struct {
	store         *Store
	remote        Remote
	cache         *querycache.Cache
	resolver      Resolver
	session       Session
	ordersCounter metric.Int64Counter
	logger        *slog.Logger
}

func NewService(store *Store, remote Remote, cache *querycache.Cache, resolver Resolver, session Session, logger *slog.Logger) *Service {
	meter := otel.Meter("storefront")
	ordersCounter, err := meter.Int64Counter("orders_created", metric.WithDescription("Total number of created orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_created counter: %v", err))
	}
	return &Service{
		store:         store,
		remote:        remote,
		cache:         cache,
		resolver:      resolver,
		session:       session,
		ordersCounter: ordersCounter,
		logger:        logger.With("component", "cart"),
	}
}

// Projection recomputes the derived cart view from the authoritative lines
// and whatever catalog data is currently cached.
func (s *Service) Projection() Projection {
	return Project(s.store.Lines(), s.resolver.ResolveProduct)
}

// Lines returns the authoritative cart lines.
func (s *Service) Lines() []Line {
	return s.store.Lines()
}

// RemoteCart returns the user's remote cart, cached for a day.
func (s *Service) RemoteCart(ctx context.Context, userID users.UserID) (RemoteCart, error) {
	return querycache.Fetch(ctx, s.cache, CartKey(userID), func(ctx context.Context) (RemoteCart, error) {
		return s.remote.FetchByUser(ctx, userID)
	}, querycache.Options{StaleTime: remoteCartStaleTime})
}

// PrefetchRemote warms the remote cart for a restored session.
func (s *Service) PrefetchRemote(ctx context.Context, userID users.UserID) {
	querycache.Prefetch(ctx, s.cache, CartKey(userID), func(ctx context.Context) (RemoteCart, error) {
		return s.remote.FetchByUser(ctx, userID)
	}, querycache.Options{StaleTime: remoteCartStaleTime})
}

// AddItem puts a product into the cart. The local mutation always applies;
// the remote mirror is optimistic and rolled back on failure.
func (s *Service) AddItem(ctx context.Context, productID catalog.ProductID) error {
	s.store.Dispatch(Add(productID))
	return s.sync(ctx, s.applyAdd(productID), func(ctx context.Context, userID users.UserID, cartID CartID) error {
		_, err := s.remote.AddProduct(ctx, userID, cartID, productID, 1)
		return err
	})
}

// RemoveItem drops a product from the cart.
func (s *Service) RemoveItem(ctx context.Context, productID catalog.ProductID) error {
	s.store.Dispatch(Remove(productID))
	return s.sync(ctx, applyRemove(productID), func(ctx context.Context, userID users.UserID, cartID CartID) error {
		_, err := s.remote.RemoveProduct(ctx, userID, cartID, productID)
		return err
	})
}

// SetItemQuantity replaces a line's quantity. Values below 1 are clamped by
// the reducer.
func (s *Service) SetItemQuantity(ctx context.Context, productID catalog.ProductID, quantity int) error {
	s.store.Dispatch(SetQuantity(productID, quantity))
	if quantity < 1 {
		quantity = 1
	}
	return s.sync(ctx, applySetQuantity(productID, quantity), func(ctx context.Context, userID users.UserID, cartID CartID) error {
		_, err := s.remote.UpdateQuantity(ctx, userID, cartID, productID, quantity)
		return err
	})
}

// Clear empties the cart locally.
func (s *Service) Clear() {
	s.store.Dispatch(Clear())
}

// SubmitOrder sends the current cart as a new order. Success clears the
// local cart; failure preserves it so the user can retry.
func (s *Service) SubmitOrder(ctx context.Context) (RemoteCart, error) {
	userID, ok := s.session.CurrentUserID()
	if !ok {
		return RemoteCart{}, users.ErrNoSession
	}
	lines := s.store.Lines()
	if len(lines) == 0 {
		return RemoteCart{}, ErrEmptyCart
	}

	order, err := s.remote.CreateOrder(ctx, userID, lines)
	if err != nil {
		return RemoteCart{}, fmt.Errorf("%w: %v", ErrOrderFailed, err)
	}

	s.store.Dispatch(Clear())
	s.cache.Invalidate(CartKey(userID))
	s.ordersCounter.Add(ctx, 1)
	s.logger.InfoContext(ctx, "order created", "order_id", order.ID, "user_id", userID, "total", order.Total)
	return order, nil
}

// sync mirrors a local mutation to the remote cart using the optimistic
// three-phase protocol. Without a session or a cached remote cart there is
// nothing to mirror and the local mutation stands alone.
func (s *Service) sync(ctx context.Context, apply func(RemoteCart, bool) RemoteCart, mutate func(ctx context.Context, userID users.UserID, cartID CartID) error) error {
	userID, ok := s.session.CurrentUserID()
	if !ok {
		return nil
	}
	cached, ok := querycache.GetData[RemoteCart](s.cache, CartKey(userID))
	if !ok {
		return nil
	}

	return querycache.RunOptimistic(ctx, s.cache, querycache.Mutation[RemoteCart]{
		Key:   CartKey(userID),
		Apply: apply,
		Mutate: func(ctx context.Context) error {
			return mutate(ctx, userID, cached.ID)
		},
	})
}

// applyAdd speculatively appends the product to the cached remote cart,
// filling in price data from the catalog cache when the product resolves.
func (s *Service) applyAdd(productID catalog.ProductID) func(RemoteCart, bool) RemoteCart {
	return func(old RemoteCart, ok bool) RemoteCart {
		if !ok {
			return old
		}
		for _, p := range old.Products {
			if p.ID == productID {
				return recompute(old)
			}
		}
		next := old
		next.Products = append(append([]RemoteProduct(nil), old.Products...), s.speculativeProduct(productID))
		return recompute(next)
	}
}

func applyRemove(productID catalog.ProductID) func(RemoteCart, bool) RemoteCart {
	return func(old RemoteCart, ok bool) RemoteCart {
		if !ok {
			return old
		}
		next := old
		next.Products = make([]RemoteProduct, 0, len(old.Products))
		for _, p := range old.Products {
			if p.ID != productID {
				next.Products = append(next.Products, p)
			}
		}
		return recompute(next)
	}
}

func applySetQuantity(productID catalog.ProductID, quantity int) func(RemoteCart, bool) RemoteCart {
	return func(old RemoteCart, ok bool) RemoteCart {
		if !ok {
			return old
		}
		next := old
		next.Products = append([]RemoteProduct(nil), old.Products...)
		for i, p := range next.Products {
			if p.ID == productID {
				p.Quantity = quantity
				p.Total = p.Price * float64(quantity)
				p.DiscountedTotal = p.Total * (1 - p.DiscountPercentage/100)
				next.Products[i] = p
			}
		}
		return recompute(next)
	}
}

func (s *Service) speculativeProduct(productID catalog.ProductID) RemoteProduct {
	rp := RemoteProduct{ID: productID, Quantity: 1}
	if product, ok := s.resolver.ResolveProduct(productID); ok {
		rp.Title = product.Title
		rp.Price = product.Price
		rp.Thumbnail = product.Thumbnail
		rp.DiscountPercentage = DiscountPercent(product.Price, 1)
		rp.Total = product.Price
		rp.DiscountedTotal = rp.Total * (1 - rp.DiscountPercentage/100)
	}
	return rp
}

// recompute rebuilds the cart aggregates from its product list.
func recompute(c RemoteCart) RemoteCart {
	c.Total = 0
	c.DiscountedTotal = 0
	c.TotalQuantity = 0
	for _, p := range c.Products {
		c.Total += p.Total
		c.DiscountedTotal += p.DiscountedTotal
		c.TotalQuantity += p.Quantity
	}
	c.TotalProducts = len(c.Products)
	return c
}
