package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plumeapp/plume/internal/entitlements/domain"
)

// PostgresSubscriptionRepository implements SubscriptionRepository with PostgreSQL.
type PostgresSubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSubscriptionRepository creates a new repository.
func NewPostgresSubscriptionRepository(pool *pgxpool.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// AddSubscription inserts a subscription record. Re-inserting the same
// subscription id updates the entitlement window instead of failing.
func (r *PostgresSubscriptionRepository) AddSubscription(ctx context.Context, subscription *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, user_id, subscription_id, product_id, period,
			starts_at, ends_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (subscription_id) DO UPDATE SET
			period = EXCLUDED.period,
			starts_at = EXCLUDED.starts_at,
			ends_at = EXCLUDED.ends_at,
			updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query,
		subscription.ID,
		subscription.UserID,
		subscription.SubscriptionID,
		subscription.ProductID,
		string(subscription.Period),
		subscription.StartsAt,
		subscription.EndsAt,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	)
	return err
}

// FindByUserID returns the most recently started subscription for a user.
func (r *PostgresSubscriptionRepository) FindByUserID(ctx context.Context, userID int64) (*domain.Subscription, error) {
	query := `
		SELECT id, user_id, subscription_id, product_id, period,
		       starts_at, ends_at, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY starts_at DESC
		LIMIT 1
	`
	var row struct {
		id             uuid.UUID
		userID         int64
		subscriptionID string
		productID      string
		period         string
		startsAt       time.Time
		endsAt         *time.Time
		createdAt      time.Time
		updatedAt      time.Time
	}

	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&row.id,
		&row.userID,
		&row.subscriptionID,
		&row.productID,
		&row.period,
		&row.startsAt,
		&row.endsAt,
		&row.createdAt,
		&row.updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &domain.Subscription{
		ID:             row.id,
		UserID:         row.userID,
		SubscriptionID: row.subscriptionID,
		ProductID:      row.productID,
		Period:         domain.Period(row.period),
		StartsAt:       row.startsAt,
		EndsAt:         row.endsAt,
		CreatedAt:      row.createdAt,
		UpdatedAt:      row.updatedAt,
	}, nil
}

var _ domain.SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
