// Package storefake provides an in-memory stand-in for the platform billing
// store. It backs local development and the CLI demo: purchases succeed
// immediately, restores replay everything previously purchased, and all
// transaction callbacks are delivered through an updates channel the worker
// drains.
package storefake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/plumeapp/plume/internal/entitlements/domain"
)

// Update is one event delivered by the fake store: either a transaction
// callback or the completion signal of a queue-triggered restore.
type Update struct {
	Transaction *domain.Transaction
	RestoreDone *RestoreOutcome
}

// RestoreOutcome reports how a queue-triggered restore ended.
type RestoreOutcome struct {
	Restored int
	Err      error
}

// Store simulates the platform billing store in memory.
type Store struct {
	mu        sync.Mutex
	products  map[string]domain.ProductDescriptor
	completed []domain.Transaction
	finished  map[string]bool
	seq       int

	// CancelNext makes the next purchase fail as user-cancelled.
	CancelNext bool
	// DeferNext makes the next purchase arrive in the deferred state
	// before the purchased callback.
	DeferNext bool
	// HistoryEnabled controls whether the transaction-history primitive
	// reports itself as supported.
	HistoryEnabled bool

	receipt []byte
	updates chan Update
}

// New creates a fake store stocked with the given products.
func New(products []domain.ProductDescriptor) *Store {
	catalog := make(map[string]domain.ProductDescriptor, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}
	return &Store{
		products:       catalog,
		finished:       make(map[string]bool),
		HistoryEnabled: true,
		receipt:        []byte("storefake-receipt"),
		updates:        make(chan Update, 64),
	}
}

// Updates exposes the transaction callback stream. The worker drains it and
// feeds each event into the engine.
func (s *Store) Updates() <-chan Update {
	return s.updates
}

// FetchProducts implements domain.ProductFetcher.
func (s *Store) FetchProducts(_ context.Context, ids []string) ([]domain.ProductDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.ProductDescriptor
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Purchase implements domain.PaymentQueue. The transaction callback is
// delivered asynchronously through the updates channel, mirroring how the
// real platform reports payment outcomes.
func (s *Store) Purchase(_ context.Context, product domain.ProductDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	tx := domain.Transaction{
		ID:        fmt.Sprintf("fake-tx-%d", s.seq),
		ProductID: product.ID,
		Date:      time.Now().UTC(),
	}

	if s.CancelNext {
		s.CancelNext = false
		tx.State = domain.StateFailed
		tx.ErrorCode = domain.ErrorCodeCancelled
		tx.ErrorMessage = "payment sheet dismissed"
		s.updates <- Update{Transaction: &tx}
		return nil
	}

	if s.DeferNext {
		s.DeferNext = false
		deferred := tx
		deferred.State = domain.StateDeferred
		s.updates <- Update{Transaction: &deferred}
	}

	tx.State = domain.StatePurchased
	s.completed = append(s.completed, tx)
	s.updates <- Update{Transaction: &tx}
	return nil
}

// RestoreCompletedTransactions implements domain.PaymentQueue: every
// completed purchase is replayed as a restored transaction, followed by the
// restore-finished signal.
func (s *Store) RestoreCompletedTransactions(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, original := range s.completed {
		s.seq++
		restored := domain.Transaction{
			ID:        fmt.Sprintf("fake-tx-%d", s.seq),
			ProductID: original.ProductID,
			State:     domain.StateRestored,
			Date:      time.Now().UTC(),
			Original: &domain.OriginalTransaction{
				ID:        original.ID,
				ProductID: original.ProductID,
				Date:      original.Date,
			},
		}
		s.updates <- Update{Transaction: &restored}
	}
	s.updates <- Update{RestoreDone: &RestoreOutcome{Restored: len(s.completed)}}
	return nil
}

// Finish implements domain.PaymentQueue.
func (s *Store) Finish(_ context.Context, tx domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished[tx.ID] = true
	return nil
}

// Finished reports whether a transaction id has been acknowledged.
func (s *Store) Finished(transactionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished[transactionID]
}

// Receipt implements domain.ReceiptProvider.
func (s *Store) Receipt(context.Context) ([]byte, error) {
	return s.receipt, nil
}

// Supported implements domain.TransactionHistory.
func (s *Store) Supported() bool {
	return s.HistoryEnabled
}

// Transactions implements domain.TransactionHistory over the completed
// purchases recorded so far.
func (s *Store) Transactions(context.Context) (domain.HistoryIterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]domain.HistoryEntry, 0, len(s.completed))
	for _, tx := range s.completed {
		entry := domain.HistoryEntry{
			TransactionID: tx.ID,
			ProductID:     tx.ProductID,
			ProductType:   domain.ProductTypeSubscription,
			PurchaseDate:  tx.Date,
		}
		if p, ok := s.products[tx.ProductID]; ok {
			entry.ExpiresAt = p.Period.EndDate(tx.Date)
		}
		entries = append(entries, entry)
	}
	return &historyIterator{entries: entries}, nil
}

type historyIterator struct {
	entries []domain.HistoryEntry
	pos     int
}

func (it *historyIterator) Next(context.Context) (*domain.HistoryEntry, bool, error) {
	if it.pos >= len(it.entries) {
		return nil, false, nil
	}
	entry := it.entries[it.pos]
	it.pos++
	return &entry, true, nil
}

var (
	_ domain.ProductFetcher     = (*Store)(nil)
	_ domain.PaymentQueue       = (*Store)(nil)
	_ domain.ReceiptProvider    = (*Store)(nil)
	_ domain.TransactionHistory = (*Store)(nil)
)
