package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/plumeapp/plume/internal/entitlements/domain"
	"github.com/plumeapp/plume/internal/shared/infrastructure/eventbus"
)

// Writer constructs and persists subscription records and resolves the
// pending completion on success.
type Writer struct {
	users         domain.UserProvider
	subscriptions domain.SubscriptionRepository
	publisher     eventbus.Publisher
	completions   *CompletionRegistry
	logger        *slog.Logger
}

// NewWriter creates a subscription writer.
func NewWriter(
	users domain.UserProvider,
	subscriptions domain.SubscriptionRepository,
	publisher eventbus.Publisher,
	completions *CompletionRegistry,
	logger *slog.Logger,
) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = eventbus.NewNoopPublisher(logger)
	}
	return &Writer{
		users:         users,
		subscriptions: subscriptions,
		publisher:     publisher,
		completions:   completions,
		logger:        logger,
	}
}

// Record builds a subscription for the current user, persists it, signals the
// subscription-updated event, and resolves the pending completion with
// success(period). Without an authenticated owner nothing is persisted and
// the completion fails with ErrOwnerMissing.
func (w *Writer) Record(ctx context.Context, productID string, period domain.Period, startsAt time.Time, revokedAt *time.Time) (*domain.Subscription, error) {
	user, err := w.users.CurrentUser(ctx)
	if err != nil {
		w.logger.Warn("current user lookup failed", "error", err)
	}
	if user == nil || user.ID <= 0 {
		w.completions.Resolve(Result{Err: domain.ErrOwnerMissing})
		return nil, domain.ErrOwnerMissing
	}

	subscription := domain.NewSubscription(user.ID, productID, period, startsAt, revokedAt)

	// Persistence and sync belong to the repository; a failure here is logged
	// but does not reverse the entitlement decision.
	if err := w.subscriptions.AddSubscription(ctx, subscription); err != nil {
		w.logger.Error("failed to persist subscription",
			"subscription_id", subscription.SubscriptionID,
			"user_id", user.ID,
			"error", err,
		)
	}

	w.publishUpdated(ctx, subscription)
	w.completions.Resolve(Result{Period: period})

	w.logger.Info("subscription recorded",
		"subscription_id", subscription.SubscriptionID,
		"user_id", user.ID,
		"period", string(period),
	)
	return subscription, nil
}

func (w *Writer) publishUpdated(ctx context.Context, subscription *domain.Subscription) {
	event := domain.NewSubscriptionUpdated(subscription)
	payload, err := json.Marshal(event)
	if err != nil {
		w.logger.Error("failed to marshal subscription event", "error", err)
		return
	}
	if err := w.publisher.Publish(ctx, event.RoutingKey(), payload); err != nil {
		w.logger.Warn("failed to publish subscription event", "error", err)
	}
}
