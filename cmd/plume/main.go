package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/plumeapp/plume/adapter/cli"
	cliBilling "github.com/plumeapp/plume/adapter/cli/billing"
	"github.com/plumeapp/plume/internal/app"
	"github.com/plumeapp/plume/internal/entitlements/domain"
	"github.com/plumeapp/plume/internal/entitlements/infrastructure/storefake"
	"github.com/plumeapp/plume/pkg/config"
	"github.com/plumeapp/plume/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("failed to load config, using development mode", "error", err)
		cfg = &config.Config{AppEnv: "development"}
	}
	cli.SetLogger(logger)

	// The CLI drives the sandbox store. Production traffic reaches the
	// engine through the worker instead.
	store := storefake.New(sandboxProducts(cfg))
	platform := app.Platform{
		Fetcher:  store,
		Queue:    store,
		Receipts: store,
		History:  store,
	}

	var cliApp *cli.App
	container, err := app.NewContainer(ctx, cfg, logger, platform)
	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("failed to initialize container, running in limited mode", "error", err)
			cliApp = nil
		} else {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
	} else {
		defer container.Close()

		// Pump store callbacks into the engine so commands can resolve.
		go app.DrainStoreUpdates(ctx, container.Engine, store.Updates(), logger)

		cliApp = cli.NewApp(container.Engine, container.SubscriptionRepo)
		cliApp.ProductIDs = cfg.ProductIDs
		cliApp.SetCurrentUserID(cfg.UserID)
	}

	// Set the CLI app
	cli.SetApp(cliApp)

	// Register commands
	cli.AddCommand(cliBilling.Cmd)

	cli.Execute()
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
