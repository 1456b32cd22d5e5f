package persistence

import (
	"context"

	"github.com/plumeapp/plume/internal/entitlements/domain"
	"github.com/redis/go-redis/v9"
)

// finalizedSetKey holds the ids of transactions whose finish acknowledgement
// has been sent. Membership survives restarts, so a replay after a crash is
// still recognised as already handled.
const finalizedSetKey = "entitlements:finalized_transactions"

// RedisFinalizedStore implements domain.FinalizedStore on a Redis set.
type RedisFinalizedStore struct {
	client *redis.Client
}

// NewRedisFinalizedStore creates a finalized-transaction store backed by Redis.
func NewRedisFinalizedStore(client *redis.Client) *RedisFinalizedStore {
	return &RedisFinalizedStore{client: client}
}

// Contains reports whether the transaction id has already been finalized.
func (s *RedisFinalizedStore) Contains(ctx context.Context, transactionID string) (bool, error) {
	return s.client.SIsMember(ctx, finalizedSetKey, transactionID).Result()
}

// Add records a transaction id as finalized.
func (s *RedisFinalizedStore) Add(ctx context.Context, transactionID string) error {
	return s.client.SAdd(ctx, finalizedSetKey, transactionID).Err()
}

var _ domain.FinalizedStore = (*RedisFinalizedStore)(nil)
