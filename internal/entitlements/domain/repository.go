package domain

import "context"

// SubscriptionRepository persists subscription records and handles any remote
// synchronization. The engine treats AddSubscription as fire-and-forget for
// entitlement correctness.
type SubscriptionRepository interface {
	AddSubscription(ctx context.Context, subscription *Subscription) error
	FindByUserID(ctx context.Context, userID int64) (*Subscription, error)
}

// User is the authenticated account a subscription is written for.
type User struct {
	ID int64
}

// UserProvider exposes the current authenticated user. A nil user or a
// non-positive id means no owner is available.
type UserProvider interface {
	CurrentUser(ctx context.Context) (*User, error)
}
