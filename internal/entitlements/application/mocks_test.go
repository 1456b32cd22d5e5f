package application

import (
	"context"
	"sync"

	"github.com/plumeapp/plume/internal/entitlements/domain"
)

// fakeQueue implements domain.PaymentQueue for testing.
type fakeQueue struct {
	mu         sync.Mutex
	purchased  []domain.ProductDescriptor
	finished   []domain.Transaction
	restoreErr error
	restores   int
	finishErr  error
}

func (q *fakeQueue) Purchase(_ context.Context, product domain.ProductDescriptor) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.purchased = append(q.purchased, product)
	return nil
}

func (q *fakeQueue) RestoreCompletedTransactions(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.restores++
	return q.restoreErr
}

func (q *fakeQueue) Finish(_ context.Context, tx domain.Transaction) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.finishErr != nil {
		return q.finishErr
	}
	q.finished = append(q.finished, tx)
	return nil
}

func (q *fakeQueue) finishedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.finished)
}

// fakeReceipts implements domain.ReceiptProvider.
type fakeReceipts struct {
	data []byte
	err  error
}

func (r *fakeReceipts) Receipt(context.Context) ([]byte, error) {
	return r.data, r.err
}

// fakeUsers implements domain.UserProvider.
type fakeUsers struct {
	user *domain.User
	err  error
}

func (u *fakeUsers) CurrentUser(context.Context) (*domain.User, error) {
	return u.user, u.err
}

// fakeSubscriptionRepo implements domain.SubscriptionRepository.
type fakeSubscriptionRepo struct {
	mu    sync.Mutex
	saved []*domain.Subscription
	err   error
}

func (r *fakeSubscriptionRepo) AddSubscription(_ context.Context, s *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, s)
	return nil
}

func (r *fakeSubscriptionRepo) FindByUserID(_ context.Context, userID int64) (*domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.saved) - 1; i >= 0; i-- {
		if r.saved[i].UserID == userID {
			return r.saved[i], nil
		}
	}
	return nil, nil
}

func (r *fakeSubscriptionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

// fakeHistory implements domain.TransactionHistory over a fixed slice.
type fakeHistory struct {
	supported bool
	entries   []domain.HistoryEntry
	iterErr   error
	nextErr   error
	// visited counts iterator advances, to assert short-circuiting.
	visited int
}

func (h *fakeHistory) Supported() bool { return h.supported }

func (h *fakeHistory) Transactions(context.Context) (domain.HistoryIterator, error) {
	if h.iterErr != nil {
		return nil, h.iterErr
	}
	return &sliceIterator{history: h}, nil
}

type sliceIterator struct {
	history *fakeHistory
	pos     int
}

func (it *sliceIterator) Next(context.Context) (*domain.HistoryEntry, bool, error) {
	if it.history.nextErr != nil {
		return nil, false, it.history.nextErr
	}
	if it.pos >= len(it.history.entries) {
		return nil, false, nil
	}
	entry := it.history.entries[it.pos]
	it.pos++
	it.history.visited++
	return &entry, true, nil
}

// fakeFetcher implements domain.ProductFetcher.
type fakeFetcher struct {
	mu       sync.Mutex
	products []domain.ProductDescriptor
	err      error
	calls    int
}

func (f *fakeFetcher) FetchProducts(_ context.Context, ids []string) ([]domain.ProductDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.ProductDescriptor
	for _, p := range f.products {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}
