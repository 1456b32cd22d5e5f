package app

import (
	"context"
	"log/slog"

	"github.com/plumeapp/plume/internal/entitlements/application"
	"github.com/plumeapp/plume/internal/entitlements/infrastructure/storefake"
)

// DrainStoreUpdates feeds store transaction callbacks into the engine until
// the context ends. Both the worker and the CLI run this loop; without it no
// purchase or restore ever resolves.
func DrainStoreUpdates(ctx context.Context, engine *application.Engine, updates <-chan storefake.Update, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			switch {
			case update.Transaction != nil:
				if err := engine.Apply(ctx, *update.Transaction); err != nil {
					logger.Error("transaction processing failed",
						"transaction_id", update.Transaction.ID,
						"product_id", update.Transaction.ProductID,
						"state", string(update.Transaction.State),
						"error", err,
					)
				}
			case update.RestoreDone != nil:
				if update.RestoreDone.Err != nil {
					engine.RestoreFailed(ctx, update.RestoreDone.Err)
				} else {
					engine.RestoreFinished(ctx, update.RestoreDone.Restored)
				}
			}
		}
	}
}
