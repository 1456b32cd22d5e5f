package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Subscription is the persisted entitlement record. The engine constructs
// instances and hands them to the subscription repository; it does not own
// their storage lifecycle.
type Subscription struct {
	ID             uuid.UUID
	UserID         int64
	SubscriptionID string
	ProductID      string
	Period         Period
	StartsAt       time.Time
	EndsAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewSubscription builds a subscription record for a user. The end date is
// always derived from the start date and period, shortened by revocation
// when one applies.
func NewSubscription(userID int64, productID string, period Period, startsAt time.Time, revokedAt *time.Time) *Subscription {
	now := time.Now().UTC()
	return &Subscription{
		ID:             uuid.New(),
		UserID:         userID,
		SubscriptionID: deriveSubscriptionID(productID),
		ProductID:      productID,
		Period:         period,
		StartsAt:       startsAt,
		EndsAt:         EffectiveEnd(period, startsAt, revokedAt),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsActive reports whether the entitlement covers the given instant.
func (s *Subscription) IsActive(at time.Time) bool {
	if s == nil || s.Period == PeriodNone {
		return false
	}
	if at.Before(s.StartsAt) {
		return false
	}
	return s.EndsAt == nil || s.EndsAt.After(at)
}

// deriveSubscriptionID appends a uniqueness suffix so repeated purchases of
// the same product stay distinguishable in the repository.
func deriveSubscriptionID(productID string) string {
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("%s-%s", productID, suffix)
}
