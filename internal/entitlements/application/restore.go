package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/plumeapp/plume/internal/entitlements/domain"
)

// errHistoryEmpty is the named fallback transition: history replay found
// nothing at all (or could not run), so the legacy queue path takes over.
var errHistoryEmpty = errors.New("transaction history empty")

// DefaultRestoreTimeout bounds the history enumeration.
const DefaultRestoreTimeout = 10 * time.Second

// RestoreStrategy re-derives entitlement from completed purchases.
type RestoreStrategy interface {
	Restore(ctx context.Context) error
}

// RestoreOrchestrator selects between the history-replay and queue-triggered
// restore strategies by platform capability, with automatic fallback from an
// empty or timed-out history replay to the legacy queue path.
type RestoreOrchestrator struct {
	history        *HistoryRestoreStrategy
	legacy         *QueueRestoreStrategy
	completions    *CompletionRegistry
	historySupport func() bool
	logger         *slog.Logger
}

// NewRestoreOrchestrator wires the two strategies.
func NewRestoreOrchestrator(
	history domain.TransactionHistory,
	queue domain.PaymentQueue,
	catalog *domain.Catalog,
	writer *Writer,
	completions *CompletionRegistry,
	timeout time.Duration,
	logger *slog.Logger,
) *RestoreOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultRestoreTimeout
	}

	supported := func() bool { return false }
	var historyStrategy *HistoryRestoreStrategy
	if history != nil {
		supported = history.Supported
		historyStrategy = &HistoryRestoreStrategy{
			history:     history,
			catalog:     catalog,
			writer:      writer,
			completions: completions,
			timeout:     timeout,
			logger:      logger,
		}
	}

	return &RestoreOrchestrator{
		history:        historyStrategy,
		legacy:         &QueueRestoreStrategy{queue: queue, logger: logger},
		completions:    completions,
		historySupport: supported,
		logger:         logger,
	}
}

// Restore starts a restore operation and returns the caller's completion
// handle. The history strategy runs when the platform supports it and always
// falls back to the legacy queue on empty history rather than failing;
// legacy results arrive asynchronously through the transaction observer.
func (o *RestoreOrchestrator) Restore(ctx context.Context) (*Pending, error) {
	pending := o.completions.Begin()

	if o.history != nil && o.historySupport() {
		err := o.history.Restore(ctx)
		switch {
		case err == nil:
			// History replay resolved the completion (entitlement found, or
			// success(none) when entries existed but none were active).
			return pending, nil
		case errors.Is(err, errHistoryEmpty):
			o.logger.Info("restore history empty, falling back to queue restore")
		default:
			o.completions.Resolve(Result{Err: err})
			return pending, nil
		}
	}

	if err := o.legacy.Restore(ctx); err != nil {
		o.completions.Resolve(Result{Err: err})
	}
	return pending, nil
}

// HandleRestoreFinished is called when the legacy queue reports restore
// completion. Zero restored transactions with a completion still pending is
// the authoritative "nothing to restore" signal.
func (o *RestoreOrchestrator) HandleRestoreFinished(_ context.Context, restored int) {
	if restored == 0 && o.completions.HasPending() {
		o.completions.Resolve(Result{Period: domain.PeriodNone})
	}
}

// HandleRestoreFailed is called when the legacy queue restore fails outright.
func (o *RestoreOrchestrator) HandleRestoreFailed(_ context.Context, err error) {
	o.completions.Resolve(Result{Err: err})
}

// HistoryRestoreStrategy replays the platform transaction history, crediting
// the first active subscription entitlement found.
type HistoryRestoreStrategy struct {
	history     domain.TransactionHistory
	catalog     *domain.Catalog
	writer      *Writer
	completions *CompletionRegistry
	timeout     time.Duration
	logger      *slog.Logger
}

// Restore enumerates history. Outcomes:
//   - first active subscription entry found: entitlement written,
//     enumeration short-circuits, completion resolved by the writer;
//   - entries found but none active: completion resolved success(none);
//   - nothing enumerated, enumeration error, or timeout: errHistoryEmpty,
//     which the orchestrator routes to the legacy strategy.
func (s *HistoryRestoreStrategy) Restore(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	iter, err := s.history.Transactions(ctx)
	if err != nil {
		s.logger.Warn("transaction history unavailable", "error", err)
		return errHistoryEmpty
	}

	now := time.Now().UTC()
	seen := 0
	for {
		entry, ok, err := iter.Next(ctx)
		if err != nil {
			// A timeout mid-walk is treated like an empty history; partial
			// results are not trusted over the legacy path.
			s.logger.Warn("history enumeration aborted", "seen", seen, "error", err)
			return errHistoryEmpty
		}
		if !ok {
			break
		}
		seen++

		if entry.ProductType != domain.ProductTypeSubscription {
			continue
		}
		if !entry.IsActive(now) {
			continue
		}

		period := s.catalog.Classify(entry.ProductID)
		if period == domain.PeriodNone {
			s.logger.Warn("active history entry with unknown product", "product_id", entry.ProductID)
			continue
		}

		// First active entitlement wins; ties are not re-ranked.
		if _, err := s.writer.Record(ctx, entry.ProductID, period, entry.PurchaseDate, entry.RevokedAt); err != nil {
			return err
		}
		return nil
	}

	if seen == 0 {
		// Likely a sandbox or first-run anomaly rather than "no entitlement";
		// the legacy path gets a chance to disagree.
		return errHistoryEmpty
	}

	s.completions.Resolve(Result{Period: domain.PeriodNone})
	return nil
}

// QueueRestoreStrategy issues a restore request to the platform payment
// queue. Restored transactions arrive asynchronously through the observer.
type QueueRestoreStrategy struct {
	queue  domain.PaymentQueue
	logger *slog.Logger
}

// Restore triggers the queue replay.
func (s *QueueRestoreStrategy) Restore(ctx context.Context) error {
	s.logger.Debug("requesting queue-triggered restore")
	return s.queue.RestoreCompletedTransactions(ctx)
}
