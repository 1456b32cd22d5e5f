package domain

import (
	"time"

	sharedDomain "github.com/plumeapp/plume/internal/shared/domain"
)

const aggregateType = "Subscription"

// SubscriptionUpdated is emitted after a subscription record is written.
type SubscriptionUpdated struct {
	sharedDomain.BaseEvent
	UserID         int64      `json:"user_id"`
	SubscriptionID string     `json:"subscription_id"`
	ProductID      string     `json:"product_id"`
	Period         string     `json:"period"`
	StartsAt       time.Time  `json:"starts_at"`
	EndsAt         *time.Time `json:"ends_at,omitempty"`
}

// NewSubscriptionUpdated creates a SubscriptionUpdated event.
func NewSubscriptionUpdated(s *Subscription) *SubscriptionUpdated {
	return &SubscriptionUpdated{
		BaseEvent:      sharedDomain.NewBaseEvent(s.ID, aggregateType, "entitlements.subscription.updated"),
		UserID:         s.UserID,
		SubscriptionID: s.SubscriptionID,
		ProductID:      s.ProductID,
		Period:         string(s.Period),
		StartsAt:       s.StartsAt,
		EndsAt:         s.EndsAt,
	}
}
