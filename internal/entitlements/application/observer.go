package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/plumeapp/plume/internal/entitlements/domain"
)

// ConsumableHandler receives consumable (import credit) transactions that the
// subscription engine filters out.
type ConsumableHandler func(ctx context.Context, tx domain.Transaction)

// Observer consumes transaction lifecycle events from the platform queue.
// Transitions are driven entirely by the platform; the observer never
// self-transitions. Every purchased, restored, or failed transaction is
// finished with the queue exactly once, on every error path, because
// unacknowledged transactions are redelivered forever.
type Observer struct {
	// mu serializes the dedup check with the write that follows it, so two
	// concurrent callbacks for the same transaction cannot both pass.
	mu sync.Mutex

	catalog     *domain.Catalog
	dedup       *domain.Deduplicator
	queue       domain.PaymentQueue
	receipts    domain.ReceiptProvider
	writer      *Writer
	completions *CompletionRegistry
	consumables ConsumableHandler
	logger      *slog.Logger
}

// NewObserver creates the transaction observer.
func NewObserver(
	catalog *domain.Catalog,
	dedup *domain.Deduplicator,
	queue domain.PaymentQueue,
	receipts domain.ReceiptProvider,
	writer *Writer,
	completions *CompletionRegistry,
	consumables ConsumableHandler,
	logger *slog.Logger,
) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		catalog:     catalog,
		dedup:       dedup,
		queue:       queue,
		receipts:    receipts,
		writer:      writer,
		completions: completions,
		consumables: consumables,
		logger:      logger,
	}
}

// Apply dispatches one transaction event through the state machine.
func (o *Observer) Apply(ctx context.Context, tx domain.Transaction) error {
	switch tx.State {
	case domain.StatePurchasing, domain.StateDeferred:
		// Payment pending user or system action; nothing to do yet and the
		// transaction must not be finished.
		o.logger.Debug("transaction pending",
			"state", string(tx.State),
			"product_id", tx.ProductID,
		)
		return nil
	case domain.StatePurchased:
		return o.handlePurchased(ctx, tx)
	case domain.StateRestored:
		return o.handleRestored(ctx, tx)
	case domain.StateFailed:
		return o.handleFailed(ctx, tx)
	default:
		o.logger.Warn("unknown transaction state",
			"state", string(tx.State),
			"product_id", tx.ProductID,
		)
		return nil
	}
}

func (o *Observer) handlePurchased(ctx context.Context, tx domain.Transaction) error {
	defer o.finish(ctx, tx)

	if o.catalog.IsConsumable(tx.ProductID) {
		o.routeConsumable(ctx, tx)
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	admitted := o.admit(ctx, tx)
	if !admitted {
		return nil
	}

	if !o.receiptPresent(ctx) {
		o.completions.Resolve(Result{Err: domain.ErrReceiptUnavailable})
		return domain.ErrReceiptUnavailable
	}

	period := o.catalog.Classify(tx.ProductID)
	if period == domain.PeriodNone {
		o.completions.Resolve(Result{Err: domain.ErrProductNotFound})
		return domain.ErrProductNotFound
	}

	startsAt := tx.Date
	if startsAt.IsZero() {
		startsAt = time.Now().UTC()
	}

	_, err := o.writer.Record(ctx, tx.ProductID, period, startsAt, tx.RevokedAt)
	return err
}

func (o *Observer) handleRestored(ctx context.Context, tx domain.Transaction) error {
	defer o.finish(ctx, tx)

	if o.catalog.IsConsumable(tx.ProductID) {
		o.routeConsumable(ctx, tx)
		return nil
	}

	if tx.Original == nil {
		o.completions.Resolve(Result{Err: domain.ErrRestoreOriginalMissing})
		return domain.ErrRestoreOriginalMissing
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	admitted := o.admit(ctx, tx)
	if !admitted {
		return nil
	}

	if !o.receiptPresent(ctx) {
		o.completions.Resolve(Result{Err: domain.ErrReceiptUnavailable})
		return domain.ErrReceiptUnavailable
	}

	period := o.catalog.Classify(tx.Original.ProductID)
	if period == domain.PeriodNone {
		o.completions.Resolve(Result{Err: domain.ErrProductNotFound})
		return domain.ErrProductNotFound
	}

	_, err := o.writer.Record(ctx, tx.Original.ProductID, period, tx.Original.Date, tx.RevokedAt)
	return err
}

func (o *Observer) handleFailed(ctx context.Context, tx domain.Transaction) error {
	defer o.finish(ctx, tx)

	if tx.ErrorCode == domain.ErrorCodeCancelled {
		o.completions.Resolve(Result{Err: domain.ErrPurchaseCancelled})
		return nil
	}

	o.completions.Resolve(Result{Err: domain.NewPurchaseFailedError(tx.ErrorCode, tx.ErrorMessage)})
	return nil
}

// admit runs the dedup gate. Callers hold o.mu so the check and the write
// that follows form one critical section.
func (o *Observer) admit(ctx context.Context, tx domain.Transaction) bool {
	admitted, err := o.dedup.Admit(ctx, tx.EffectiveID(), tx.Key())
	if err != nil {
		o.logger.Warn("finalized-id store lookup failed, admitting transaction",
			"transaction_id", tx.EffectiveID(),
			"error", err,
		)
	}
	if !admitted {
		o.logger.Info("duplicate transaction skipped",
			"transaction_id", tx.EffectiveID(),
			"product_id", tx.ProductID,
		)
	}
	return admitted
}

func (o *Observer) receiptPresent(ctx context.Context) bool {
	receipt, err := o.receipts.Receipt(ctx)
	if err != nil {
		o.logger.Warn("receipt fetch failed", "error", err)
		return false
	}
	return len(receipt) > 0
}

func (o *Observer) routeConsumable(ctx context.Context, tx domain.Transaction) {
	o.logger.Debug("consumable transaction routed elsewhere", "product_id", tx.ProductID)
	if o.consumables != nil {
		o.consumables(ctx, tx)
	}
}

// finish acknowledges the transaction with the platform queue and records its
// id as finalized. Called exactly once per purchased, restored, or failed
// transaction.
func (o *Observer) finish(ctx context.Context, tx domain.Transaction) {
	if err := o.queue.Finish(ctx, tx); err != nil {
		o.logger.Error("failed to finish transaction",
			"transaction_id", tx.EffectiveID(),
			"error", err,
		)
		return
	}
	if err := o.dedup.MarkFinalized(ctx, tx.EffectiveID()); err != nil {
		o.logger.Warn("failed to record finalized transaction id",
			"transaction_id", tx.EffectiveID(),
			"error", err,
		)
	}
}
