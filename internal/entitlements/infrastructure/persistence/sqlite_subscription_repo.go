package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/plumeapp/plume/internal/entitlements/domain"
)

// SQLiteSubscriptionRepository implements SubscriptionRepository with SQLite.
type SQLiteSubscriptionRepository struct {
	dbConn *sql.DB
}

// NewSQLiteSubscriptionRepository creates a new repository.
func NewSQLiteSubscriptionRepository(dbConn *sql.DB) *SQLiteSubscriptionRepository {
	return &SQLiteSubscriptionRepository{dbConn: dbConn}
}

// AddSubscription inserts a subscription record. Re-inserting the same
// subscription id updates the entitlement window instead of failing.
func (r *SQLiteSubscriptionRepository) AddSubscription(ctx context.Context, subscription *domain.Subscription) error {
	now := time.Now().UTC().Format(time.RFC3339)

	var endsAt sql.NullString
	if subscription.EndsAt != nil {
		endsAt = sql.NullString{
			String: subscription.EndsAt.UTC().Format(time.RFC3339),
			Valid:  true,
		}
	}

	query := `
		INSERT INTO subscriptions (
			id, user_id, subscription_id, product_id, period,
			starts_at, ends_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subscription_id) DO UPDATE SET
			period = excluded.period,
			starts_at = excluded.starts_at,
			ends_at = excluded.ends_at,
			updated_at = excluded.updated_at
	`

	createdAt := subscription.CreatedAt.UTC().Format(time.RFC3339)
	if subscription.CreatedAt.IsZero() {
		createdAt = now
	}

	_, err := r.dbConn.ExecContext(ctx, query,
		subscription.ID.String(),
		subscription.UserID,
		subscription.SubscriptionID,
		subscription.ProductID,
		string(subscription.Period),
		subscription.StartsAt.UTC().Format(time.RFC3339),
		endsAt,
		createdAt,
		now,
	)
	return err
}

// FindByUserID returns the most recently started subscription for a user.
func (r *SQLiteSubscriptionRepository) FindByUserID(ctx context.Context, userID int64) (*domain.Subscription, error) {
	query := `
		SELECT id, user_id, subscription_id, product_id, period,
		       starts_at, ends_at, created_at, updated_at
		FROM subscriptions
		WHERE user_id = ?
		ORDER BY starts_at DESC
		LIMIT 1
	`

	var (
		idStr          string
		scannedUserID  int64
		subscriptionID string
		productID      string
		period         string
		startsAtStr    string
		endsAtStr      sql.NullString
		createdAtStr   string
		updatedAtStr   string
	)

	err := r.dbConn.QueryRowContext(ctx, query, userID).Scan(
		&idStr,
		&scannedUserID,
		&subscriptionID,
		&productID,
		&period,
		&startsAtStr,
		&endsAtStr,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	id, _ := uuid.Parse(idStr)
	startsAt, _ := time.Parse(time.RFC3339, startsAtStr)
	createdAt, _ := time.Parse(time.RFC3339, createdAtStr)
	updatedAt, _ := time.Parse(time.RFC3339, updatedAtStr)

	var endsAt *time.Time
	if endsAtStr.Valid {
		t, _ := time.Parse(time.RFC3339, endsAtStr.String)
		endsAt = &t
	}

	return &domain.Subscription{
		ID:             id,
		UserID:         scannedUserID,
		SubscriptionID: subscriptionID,
		ProductID:      productID,
		Period:         domain.Period(period),
		StartsAt:       startsAt,
		EndsAt:         endsAt,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

var _ domain.SubscriptionRepository = (*SQLiteSubscriptionRepository)(nil)
