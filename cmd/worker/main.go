package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plumeapp/plume/internal/app"
	"github.com/plumeapp/plume/internal/entitlements/domain"
	"github.com/plumeapp/plume/internal/entitlements/infrastructure/storefake"
	"github.com/plumeapp/plume/pkg/config"
	"github.com/plumeapp/plume/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv()

	logger.Info("starting plume worker")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// The worker consumes the sandbox store queue. Swapping in the real
	// store bridge only changes this construction.
	store := storefake.New(sandboxProducts(cfg))
	platform := app.Platform{
		Fetcher:  store,
		Queue:    store,
		Receipts: store,
		History:  store,
	}

	container, err := app.NewContainer(ctx, cfg, logger, platform)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	if cfg.WorkerHealthAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
		})

		mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
			checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pingDatabase(checkCtx, container); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"status": "not_ready",
					"error":  err.Error(),
				})
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ready"})
		})

		healthSrv := &http.Server{
			Addr:              cfg.WorkerHealthAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			logger.Info("health server starting", "addr", cfg.WorkerHealthAddr)
			if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", "error", err)
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("health server shutdown error", "error", err)
			}
		}()
	}

	logger.Info("draining store transaction queue")
	app.DrainStoreUpdates(ctx, container.Engine, store.Updates(), logger)

	logger.Info("worker stopped")
}

func pingDatabase(ctx context.Context, container *app.Container) error {
	if pool := container.DBConn.Pool(); pool != nil {
		return pool.Ping(ctx)
	}
	return container.DBConn.DB().PingContext(ctx)
}

// sandboxProducts stocks the fake store with the configured product ids,
// classified by the default catalog.
func sandboxProducts(cfg *config.Config) []domain.ProductDescriptor {
	catalog := domain.NewCatalog(domain.DefaultProductTable(), cfg.ConsumableIDs)
	products := make([]domain.ProductDescriptor, 0, len(cfg.ProductIDs))
	for _, id := range cfg.ProductIDs {
		products = append(products, domain.ProductDescriptor{
			ID:     id,
			Period: catalog.Classify(id),
			Price:  "0.00",
			Locale: "en_US",
		})
	}
	return products
}
