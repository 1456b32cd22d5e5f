package domain

import (
	"context"
	"sync"
)

// FinalizedStore persists the set of transaction ids already finalized with
// the platform queue. Implementations must never report a finalized id as
// unknown; reporting an unknown id as finalized would block novel purchases
// and is forbidden.
type FinalizedStore interface {
	Contains(ctx context.Context, transactionID string) (bool, error)
	Add(ctx context.Context, transactionID string) error
}

// MemoryFinalizedStore is the in-process FinalizedStore.
type MemoryFinalizedStore struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewMemoryFinalizedStore creates an empty in-memory store.
func NewMemoryFinalizedStore() *MemoryFinalizedStore {
	return &MemoryFinalizedStore{ids: make(map[string]struct{})}
}

func (s *MemoryFinalizedStore) Contains(_ context.Context, transactionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[transactionID]
	return ok, nil
}

func (s *MemoryFinalizedStore) Add(_ context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[transactionID] = struct{}{}
	return nil
}

// Deduplicator is the idempotency guard over transaction ids and coarse
// transaction keys. It is owned by the engine instance, not process-wide.
//
// Two layers:
//   - finalized transaction ids (unbounded, optionally durable) catch
//     redelivery of an already-credited transaction;
//   - a bounded FIFO recency window of transaction keys catches rapid
//     duplicate delivery within a burst, such as the legacy and history
//     restore paths firing for the same purchase. Transactions without an id
//     rely on this weaker key-based guard alone.
type Deduplicator struct {
	mu        sync.Mutex
	capacity  int
	order     []TransactionKey
	recent    map[TransactionKey]struct{}
	finalized FinalizedStore
}

// DefaultDedupWindow is the recency window capacity.
const DefaultDedupWindow = 10

// NewDeduplicator creates a deduplicator with the given recency-window
// capacity and finalized-id store. A zero or negative capacity falls back to
// DefaultDedupWindow; a nil store falls back to the in-memory one.
func NewDeduplicator(capacity int, finalized FinalizedStore) *Deduplicator {
	if capacity <= 0 {
		capacity = DefaultDedupWindow
	}
	if finalized == nil {
		finalized = NewMemoryFinalizedStore()
	}
	return &Deduplicator{
		capacity:  capacity,
		order:     make([]TransactionKey, 0, capacity),
		recent:    make(map[TransactionKey]struct{}, capacity),
		finalized: finalized,
	}
}

// Admit decides whether a transaction should be processed. A false return
// means the transaction is a duplicate and must be skipped. Admitting records
// the key in the recency window, so the check and the reservation are a
// single atomic step.
//
// A finalized-store read failure fails open: the transaction is admitted and
// the error returned for logging, because a store outage must not block novel
// purchases.
func (d *Deduplicator) Admit(ctx context.Context, transactionID string, key TransactionKey) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var storeErr error
	if transactionID != "" {
		seen, err := d.finalized.Contains(ctx, transactionID)
		if err != nil {
			storeErr = err
		} else if seen {
			return false, nil
		}
	}

	if _, ok := d.recent[key]; ok {
		return false, storeErr
	}

	d.recent[key] = struct{}{}
	d.order = append(d.order, key)
	if len(d.order) > d.capacity {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.recent, oldest)
	}

	return true, storeErr
}

// MarkFinalized records a transaction id as finished with the platform queue.
// Ids marked here are never reprocessed.
func (d *Deduplicator) MarkFinalized(ctx context.Context, transactionID string) error {
	if transactionID == "" {
		return nil
	}
	return d.finalized.Add(ctx, transactionID)
}
