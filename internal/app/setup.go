// Package app contains the application setup for the storefront service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/transport/rest"
	"github.com/abgdnv/storefront/internal/users"
	"github.com/abgdnv/storefront/pkg/api"
	"github.com/abgdnv/storefront/pkg/querycache"
	"github.com/abgdnv/storefront/pkg/server"
	"github.com/abgdnv/storefront/pkg/storage"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

type Dependencies struct {
	Catalog *catalog.Service
	Cart    *cart.Service
	Users   *users.Service
	Cache   *querycache.Cache
	Logger  *slog.Logger
}

func SetupDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	client := api.NewClient(cfg.API, logger,
		api.WithRateLimit(cfg.API.Resilience.RateLimit),
		api.WithCircuitBreaker(cfg.API.Resilience.CircuitBreaker),
	)
	cache := querycache.New(logger, cfg.Cache.GCInterval)

	store, err := storage.NewFileStore(cfg.Storage.Path)
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("failed to open local storage: %w", err)
	}

	session := users.NewSessionStore(store, logger)
	userService := users.NewService(users.NewAPI(client), cache, session, logger)
	catalogService := catalog.NewService(catalog.NewAPI(client), cache, logger)
	cartStore := cart.NewStore(store, logger)
	cartService := cart.NewService(cartStore, cart.NewAPI(client), cache, catalogService, userService, logger)

	return &Dependencies{
		Catalog: catalogService,
		Cart:    cartService,
		Users:   userService,
		Cache:   cache,
		Logger:  logger,
	}, nil
}

// Close releases the background resources owned by the dependency graph.
func (d *Dependencies) Close() {
	d.Cache.Close()
}

// SetupHttpHandler initializes the HTTP routes for the storefront application.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
// A nil metrics handler skips the scrape endpoint.
func SetupHttpHandler(deps *Dependencies, metrics http.Handler) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps, metrics)
	return mux
}

// wireRoutes sets up the HTTP routes for the storefront application.
func wireRoutes(mux *chi.Mux, deps *Dependencies, metrics http.Handler) {
	handler := rest.NewHandler(deps.Catalog, deps.Cart, deps.Users, deps.Logger)
	handler.RegisterRoutes(mux)
	if metrics != nil {
		mux.Method(http.MethodGet, "/metrics", metrics)
	}
}

// SetupHttpServer creates and configures an HTTP server for the storefront application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config, metrics http.Handler) *http.Server {
	mux := SetupHttpHandler(deps, metrics)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}

// Warmup seeds the cache with the data the first page load needs: the first
// catalog page and the category list, plus the user record and remote cart
// when a persisted session was restored.
func Warmup(ctx context.Context, deps *Dependencies) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := deps.Catalog.Page(gCtx, catalog.DefaultParams())
		return err
	})
	g.Go(func() error {
		_, err := deps.Catalog.Categories(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if id, ok := deps.Users.CurrentUserID(); ok {
		deps.Users.Prefetch(ctx, id)
		deps.Cart.PrefetchRemote(ctx, id)
	}
	return nil
}
