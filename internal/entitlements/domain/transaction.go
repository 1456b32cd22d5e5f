package domain

import (
	"fmt"
	"time"
)

// TransactionState is the lifecycle state reported by the store platform.
type TransactionState string

const (
	StatePurchasing TransactionState = "purchasing"
	StateDeferred   TransactionState = "deferred"
	StatePurchased  TransactionState = "purchased"
	StateRestored   TransactionState = "restored"
	StateFailed     TransactionState = "failed"
)

// Platform error codes carried on failed transactions.
const (
	ErrorCodeCancelled = "payment_cancelled"
)

// OriginalTransaction references the original purchase behind a restored
// transaction. Only restored transactions carry one.
type OriginalTransaction struct {
	ID        string
	ProductID string
	Date      time.Time
}

// Transaction is a purchase lifecycle event delivered by the store platform
// payment queue. ID may be empty: some platform callbacks lack one.
type Transaction struct {
	ID        string
	ProductID string
	State     TransactionState
	Date      time.Time
	Original  *OriginalTransaction
	RevokedAt *time.Time

	// Set when State is StateFailed.
	ErrorCode    string
	ErrorMessage string
}

// Key derives the coarse-grained dedup key for this transaction: product id
// plus minute-granularity timestamp. Restored transactions key on the
// original purchase so the legacy and history restore paths collide.
func (t Transaction) Key() TransactionKey {
	productID := t.ProductID
	date := t.Date
	if t.State == StateRestored && t.Original != nil {
		productID = t.Original.ProductID
		date = t.Original.Date
	}
	return NewTransactionKey(productID, date)
}

// EffectiveID returns the transaction id, falling back to the original
// transaction's id for restores that lack their own.
func (t Transaction) EffectiveID() string {
	if t.ID != "" {
		return t.ID
	}
	if t.Original != nil {
		return t.Original.ID
	}
	return ""
}

// TransactionKey identifies a purchase at coarse granularity for burst
// deduplication.
type TransactionKey string

// NewTransactionKey builds a key from a product id and a timestamp truncated
// to the minute.
func NewTransactionKey(productID string, at time.Time) TransactionKey {
	return TransactionKey(fmt.Sprintf("%s@%d", productID, at.UTC().Truncate(time.Minute).Unix()))
}
