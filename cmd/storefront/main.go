package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ecommercehub/storefront/internal/app"
	"github.com/ecommercehub/storefront/internal/config"
	"github.com/ecommercehub/storefront/pkg/bootstrap"
	"github.com/ecommercehub/storefront/pkg/config/configloader"
	"github.com/ecommercehub/storefront/pkg/messaging"
	"github.com/ecommercehub/storefront/pkg/nats"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const serviceName = "storefront"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run initializes the application and starts the HTTP and pprof servers.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	deps, cleanup, err := setupDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	httpServer := app.SetupHttpServer(deps, cfg)
	pprofServer := &http.Server{
		Addr: cfg.PProf.Addr,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// setupDependencies builds the optional infrastructure (database pool, NATS
// publisher) the configuration asks for and wires the application object
// graph on top of it. The returned cleanup closes whatever was opened.
func setupDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app.Dependencies, func(), error) {
	cleanups := make([]func(), 0, 2)
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var dbPool *pgxpool.Pool
	if cfg.Catalog.Source == "postgres" {
		pool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to create database connection pool: %w", err)
		}
		cleanups = append(cleanups, pool.Close)
		logger.Info("Successfully connected to the database!")
		dbPool = pool
	}

	var publisher messaging.Publisher
	if cfg.Nats.Url != "" {
		natsConn, err := nats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to create NATS connection: %w", err)
		}
		cleanups = append(cleanups, natsConn.Close)
		js, err := nats.NewJetStreamContext(natsConn)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to get JetStream context: %w", err)
		}
		if err := nats.EnsureStream(ctx, js, cfg.Nats.Stream, []string{messaging.CartUpdatedSubject}); err != nil {
			return nil, cleanup, err
		}
		publisher = nats.NewNatsPublisher(js)
		logger.Info("NATS JetStream publisher ready", slog.String("stream", cfg.Nats.Stream))
	}

	deps, err := app.SetupDependencies(cfg, dbPool, publisher, logger)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to set up dependencies: %w", err)
	}
	return deps, cleanup, nil
}
