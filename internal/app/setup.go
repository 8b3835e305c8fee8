// Package app contains the application setup for the storefront service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ecommercehub/storefront/internal/cart"
	"github.com/ecommercehub/storefront/internal/catalog"
	"github.com/ecommercehub/storefront/internal/config"
	"github.com/ecommercehub/storefront/internal/identity"
	"github.com/ecommercehub/storefront/internal/kvstore"
	"github.com/ecommercehub/storefront/internal/transport/rest"
	"github.com/ecommercehub/storefront/pkg/messaging"
	"github.com/ecommercehub/storefront/pkg/pubsub"
	"github.com/ecommercehub/storefront/pkg/server"
	"github.com/shopspring/decimal"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Dependencies struct {
	Catalog  *catalog.Service
	Cart     *cart.Store
	Identity identity.Provider
	Logger   *slog.Logger
}

// SetupDependencies builds the object graph from configuration: the catalog
// source, the persisted cart store and the identity provider. dbPool and
// publisher are optional; they are only wired when the configuration asks
// for them.
func SetupDependencies(cfg *config.Config, dbPool *pgxpool.Pool, publisher messaging.Publisher, logger *slog.Logger) (*Dependencies, error) {
	source, err := newCatalogSource(cfg, dbPool)
	if err != nil {
		return nil, fmt.Errorf("catalog source: %w", err)
	}
	catalogSvc := catalog.NewService(source, cfg.Catalog.PageSize)

	kv, err := newCartStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("cart storage: %w", err)
	}
	cartStore := cart.NewStore(kv, pubsub.NewBus(), publisher, pricingFrom(cfg), cfg.Cart.ProfileID, logger)

	provider := identity.NewJWTProvider(cfg.Identity.Secret, cfg.Identity.TTL, cfg.Identity.Users)
	wireSessionEvents(provider, cartStore, logger)

	return &Dependencies{
		Catalog:  catalogSvc,
		Cart:     cartStore,
		Identity: provider,
		Logger:   logger,
	}, nil
}

func newCatalogSource(cfg *config.Config, dbPool *pgxpool.Pool) (catalog.Source, error) {
	switch cfg.Catalog.Source {
	case "", "static":
		return catalog.NewStaticSource()
	case "file":
		return catalog.NewStaticSourceFromFile(cfg.Catalog.File)
	case "postgres":
		if dbPool == nil {
			return nil, fmt.Errorf("postgres catalog source requires a database pool")
		}
		return catalog.NewPgSource(dbPool), nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}
}

func newCartStorage(cfg *config.Config) (kvstore.Store, error) {
	if cfg.Cart.StorageDir == "" {
		return kvstore.NewMemoryStore(), nil
	}
	return kvstore.NewFileStore(cfg.Cart.StorageDir)
}

func pricingFrom(cfg *config.Config) cart.Pricing {
	pricing := cart.DefaultPricing()
	if cfg.Cart.TaxRate > 0 {
		pricing.TaxRate = decimal.NewFromFloat(cfg.Cart.TaxRate)
	}
	if cfg.Cart.FreeShippingThreshold > 0 {
		pricing.FreeShippingThreshold = decimal.NewFromFloat(cfg.Cart.FreeShippingThreshold)
	}
	if cfg.Cart.FlatShippingFee > 0 {
		pricing.FlatShippingFee = decimal.NewFromFloat(cfg.Cart.FlatShippingFee)
	}
	return pricing
}

// wireSessionEvents clears the cart when a session ends, so the next visitor
// on the same device never sees someone else's cart.
func wireSessionEvents(provider identity.Provider, cartStore *cart.Store, logger *slog.Logger) {
	provider.Subscribe(func(ev identity.Event) {
		if ev.Kind != identity.SessionEnded {
			return
		}
		go func() {
			if _, err := cartStore.Clear(context.Background()); err != nil {
				logger.Error("Failed to clear cart on sign-out", "email", ev.Email, "error", err)
			}
		}()
	})
}

// SetupHttpHandler initializes the HTTP routes for the storefront application.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the storefront application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	catalogHandler := rest.NewCatalogHandler(deps.Catalog, deps.Logger)
	catalogHandler.RegisterRoutes(mux)

	cartHandler := rest.NewCartHandler(deps.Cart, deps.Catalog, deps.Logger)
	cartHandler.RegisterRoutes(mux)

	authHandler := rest.NewAuthHandler(deps.Identity, deps.Logger)
	authHandler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the storefront application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {

	mux := SetupHttpHandler(deps)

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
