package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/plumeapp/plume/internal/entitlements/domain"
	"github.com/plumeapp/plume/internal/shared/infrastructure/eventbus"
)

// EngineConfig carries the engine's collaborators and tuning.
type EngineConfig struct {
	Catalog       *domain.Catalog
	Fetcher       domain.ProductFetcher
	Queue         domain.PaymentQueue
	Receipts      domain.ReceiptProvider
	History       domain.TransactionHistory
	Users         domain.UserProvider
	Subscriptions domain.SubscriptionRepository
	Publisher     eventbus.Publisher
	Finalized     domain.FinalizedStore
	Consumables   ConsumableHandler

	CatalogTimeout time.Duration
	RestoreTimeout time.Duration
	DedupWindow    int

	Logger *slog.Logger
}

// Engine reconciles store purchase events into persisted subscription
// entitlements. It is the single entry point for purchases, restores, and
// platform transaction callbacks.
type Engine struct {
	catalog     *domain.Catalog
	catalogSvc  *CatalogService
	queue       domain.PaymentQueue
	observer    *Observer
	restorer    *RestoreOrchestrator
	completions *CompletionRegistry
	logger      *slog.Logger
}

// NewEngine wires the engine from its collaborators.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	completions := NewCompletionRegistry()
	dedup := domain.NewDeduplicator(cfg.DedupWindow, cfg.Finalized)
	writer := NewWriter(cfg.Users, cfg.Subscriptions, cfg.Publisher, completions, logger)
	observer := NewObserver(cfg.Catalog, dedup, cfg.Queue, cfg.Receipts, writer, completions, cfg.Consumables, logger)
	restorer := NewRestoreOrchestrator(cfg.History, cfg.Queue, cfg.Catalog, writer, completions, cfg.RestoreTimeout, logger)

	return &Engine{
		catalog:     cfg.Catalog,
		catalogSvc:  NewCatalogService(cfg.Fetcher, cfg.CatalogTimeout, logger),
		queue:       cfg.Queue,
		observer:    observer,
		restorer:    restorer,
		completions: completions,
		logger:      logger,
	}
}

// Purchase resolves the product and initiates payment. The result arrives
// through the returned handle once the platform delivers the transaction.
func (e *Engine) Purchase(ctx context.Context, productID string) (*Pending, error) {
	if e.catalog.IsConsumable(productID) {
		return nil, domain.ErrConsumableProduct
	}

	product, err := e.catalogSvc.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	pending := e.completions.Begin()
	if err := e.queue.Purchase(ctx, *product); err != nil {
		e.completions.Resolve(Result{Err: err})
	}
	return pending, nil
}

// Restore re-derives entitlement from previously completed purchases.
func (e *Engine) Restore(ctx context.Context) (*Pending, error) {
	return e.restorer.Restore(ctx)
}

// Apply feeds one platform transaction callback through the state machine.
// Drivers (the worker queue loop, tests) call this for every delivered event.
func (e *Engine) Apply(ctx context.Context, tx domain.Transaction) error {
	return e.observer.Apply(ctx, tx)
}

// RestoreFinished forwards the legacy queue's restore-completion signal.
func (e *Engine) RestoreFinished(ctx context.Context, restored int) {
	e.restorer.HandleRestoreFinished(ctx, restored)
}

// RestoreFailed forwards a legacy queue restore failure.
func (e *Engine) RestoreFailed(ctx context.Context, err error) {
	e.restorer.HandleRestoreFailed(ctx, err)
}

// Products exposes the catalog service for display layers.
func (e *Engine) Products(ctx context.Context, ids []string) ([]domain.ProductDescriptor, error) {
	return e.catalogSvc.Products(ctx, ids)
}
