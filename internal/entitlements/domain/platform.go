package domain

import (
	"context"
	"time"
)

// ProductFetcher fetches product descriptors from the platform catalog.
type ProductFetcher interface {
	FetchProducts(ctx context.Context, ids []string) ([]ProductDescriptor, error)
}

// PaymentQueue is the platform transaction queue. Every delivered transaction
// must be explicitly finished or the platform redelivers it indefinitely.
type PaymentQueue interface {
	// Purchase initiates payment for a resolved product.
	Purchase(ctx context.Context, product ProductDescriptor) error

	// RestoreCompletedTransactions asks the platform to replay completed
	// purchases through the queue.
	RestoreCompletedTransactions(ctx context.Context) error

	// Finish acknowledges a transaction as fully processed.
	Finish(ctx context.Context, tx Transaction) error
}

// ReceiptProvider exposes the platform receipt data. Verification is
// delegated; the engine only checks presence.
type ReceiptProvider interface {
	Receipt(ctx context.Context) ([]byte, error)
}

// ProductType distinguishes history entries by product family.
type ProductType string

const (
	ProductTypeSubscription ProductType = "subscription"
	ProductTypeConsumable   ProductType = "consumable"
	ProductTypeOther        ProductType = "other"
)

// HistoryEntry is a verified transaction from platform history.
type HistoryEntry struct {
	TransactionID string
	ProductID     string
	ProductType   ProductType
	PurchaseDate  time.Time
	ExpiresAt     *time.Time
	RevokedAt     *time.Time
}

// IsActive reports whether the entry represents a live entitlement at the
// given instant: not revoked, and either non-expiring or not yet expired.
func (e HistoryEntry) IsActive(now time.Time) bool {
	if e.RevokedAt != nil {
		return false
	}
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}

// HistoryIterator walks the transaction history lazily. Next returns ok=false
// when the sequence is exhausted.
type HistoryIterator interface {
	Next(ctx context.Context) (entry *HistoryEntry, ok bool, err error)
}

// TransactionHistory is the platform transaction-history primitive. Supported
// reports whether the current platform version offers it; unsupported
// platforms fall back to queue-triggered restore.
type TransactionHistory interface {
	Supported() bool
	Transactions(ctx context.Context) (HistoryIterator, error)
}
