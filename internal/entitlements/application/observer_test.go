package application

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/plumeapp/plume/internal/entitlements/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observerFixture struct {
	queue       *fakeQueue
	receipts    *fakeReceipts
	users       *fakeUsers
	repo        *fakeSubscriptionRepo
	completions *CompletionRegistry
	observer    *Observer
	consumed    []domain.Transaction
}

func newObserverFixture(t *testing.T) *observerFixture {
	t.Helper()

	f := &observerFixture{
		queue:       &fakeQueue{},
		receipts:    &fakeReceipts{data: []byte("receipt")},
		users:       &fakeUsers{user: &domain.User{ID: 42}},
		repo:        &fakeSubscriptionRepo{},
		completions: NewCompletionRegistry(),
	}

	logger := slog.Default()
	catalog := domain.NewCatalog(domain.DefaultProductTable(), []string{"credits.import.10"})
	dedup := domain.NewDeduplicator(10, nil)
	writer := NewWriter(f.users, f.repo, nil, f.completions, logger)
	f.observer = NewObserver(catalog, dedup, f.queue, f.receipts, writer, f.completions,
		func(_ context.Context, tx domain.Transaction) {
			f.consumed = append(f.consumed, tx)
		}, logger)
	return f
}

func (f *observerFixture) awaitResult(t *testing.T, pending *Pending) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := pending.Wait(ctx)
	require.NoError(t, err)
	return res
}

func TestObserver_FreshPurchase(t *testing.T) {
	f := newObserverFixture(t)
	ctx := context.Background()
	eventTime := time.Date(2024, time.April, 10, 9, 30, 0, 0, time.UTC)

	pending := f.completions.Begin()
	err := f.observer.Apply(ctx, domain.Transaction{
		ID:        "tx-100",
		ProductID: "sub.monthly",
		State:     domain.StatePurchased,
		Date:      eventTime,
	})
	require.NoError(t, err)

	res := f.awaitResult(t, pending)
	require.NoError(t, res.Err)
	assert.Equal(t, domain.PeriodMonthly, res.Period)

	require.Equal(t, 1, f.repo.count())
	sub := f.repo.saved[0]
	assert.Equal(t, int64(42), sub.UserID)
	assert.Equal(t, domain.PeriodMonthly, sub.Period)
	assert.Equal(t, eventTime, sub.StartsAt)
	require.NotNil(t, sub.EndsAt)
	assert.Equal(t, eventTime.AddDate(0, 1, 0), *sub.EndsAt)

	assert.Equal(t, 1, f.queue.finishedCount())
}

func TestObserver_PendingStatesAreNoOps(t *testing.T) {
	f := newObserverFixture(t)
	ctx := context.Background()

	for _, state := range []domain.TransactionState{domain.StatePurchasing, domain.StateDeferred} {
		err := f.observer.Apply(ctx, domain.Transaction{ProductID: "sub.monthly", State: state})
		require.NoError(t, err)
	}

	assert.Equal(t, 0, f.repo.count())
	assert.Equal(t, 0, f.queue.finishedCount(), "pending transactions must not be finished")
}

func TestObserver_SameTransactionIDTwice_OneRecord(t *testing.T) {
	f := newObserverFixture(t)
	ctx := context.Background()

	tx := domain.Transaction{
		ID:        "tx-dup",
		ProductID: "sub.yearly",
		State:     domain.StatePurchased,
		Date:      time.Now().UTC(),
	}

	pending := f.completions.Begin()
	require.NoError(t, f.observer.Apply(ctx, tx))
	f.awaitResult(t, pending)

	// Redelivery of the identical transaction.
	require.NoError(t, f.observer.Apply(ctx, tx))

	assert.Equal(t, 1, f.repo.count(), "duplicate delivery must not double-credit")
	assert.Equal(t, 2, f.queue.finishedCount(), "every delivery is still finished")
}

func TestObserver_BurstDedup_RestoredWithoutIDs(t *testing.T) {
	f := newObserverFixture(t)
	ctx := context.Background()
	originalDate := time.Date(2024, time.February, 2, 8, 0, 10, 0, time.UTC)

	build := func() domain.Transaction {
		return domain.Transaction{
			ProductID: "sub.monthly",
			State:     domain.StateRestored,
			Date:      time.Now().UTC(),
			Original: &domain.OriginalTransaction{
				ProductID: "sub.monthly",
				Date:      originalDate,
			},
		}
	}

	pending := f.completions.Begin()
	require.NoError(t, f.observer.Apply(ctx, build()))
	f.awaitResult(t, pending)

	// Near-simultaneous redelivery via the other restore path; no ids at all.
	require.NoError(t, f.observer.Apply(ctx, build()))

	assert.Equal(t, 1, f.repo.count(), "recency window must absorb the burst duplicate")
	assert.Equal(t, 2, f.queue.finishedCount())
}

func TestObserver_PurchasedWithoutReceipt(t *testing.T) {
	f := newObserverFixture(t)
	f.receipts.data = nil
	ctx := context.Background()

	pending := f.completions.Begin()
	err := f.observer.Apply(ctx, domain.Transaction{
		ID:        "tx-1",
		ProductID: "sub.monthly",
		State:     domain.StatePurchased,
		Date:      time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrReceiptUnavailable)

	res := f.awaitResult(t, pending)
	assert.ErrorIs(t, res.Err, domain.ErrReceiptUnavailable)

	assert.Equal(t, 0, f.repo.count())
	assert.Equal(t, 1, f.queue.finishedCount(), "transaction is finished even on error")
}

func TestObserver_PurchasedUnknownProduct(t *testing.T) {
	f := newObserverFixture(t)
	ctx := context.Background()

	pending := f.completions.Begin()
	err := f.observer.Apply(ctx, domain.Transaction{
		ID:        "tx-1",
		ProductID: "mystery.product",
		State:     domain.StatePurchased,
		Date:      time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	res := f.awaitResult(t, pending)
	assert.ErrorIs(t, res.Err, domain.ErrProductNotFound)
	assert.Equal(t, 1, f.queue.finishedCount())
}

func TestObserver_ConsumableRoutedElsewhere(t *testing.T) {
	f := newObserverFixture(t)
	ctx := context.Background()

	err := f.observer.Apply(ctx, domain.Transaction{
		ID:        "tx-credit",
		ProductID: "credits.import.10",
		State:     domain.StatePurchased,
		Date:      time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.Len(t, f.consumed, 1)
	assert.Equal(t, 0, f.repo.count())
	assert.Equal(t, 1, f.queue.finishedCount())
}

func TestObserver_RestoredWritesFromOriginal(t *testing.T) {
	f := newObserverFixture(t)
	ctx := context.Background()
	originalDate := time.Date(2023, time.June, 1, 10, 0, 0, 0, time.UTC)

	pending := f.completions.Begin()
	err := f.observer.Apply(ctx, domain.Transaction{
		ID:        "tx-restore",
		ProductID: "sub.yearly",
		State:     domain.StateRestored,
		Date:      time.Now().UTC(),
		Original: &domain.OriginalTransaction{
			ID:        "tx-original",
			ProductID: "sub.yearly",
			Date:      originalDate,
		},
	})
	require.NoError(t, err)

	res := f.awaitResult(t, pending)
	require.NoError(t, res.Err)
	assert.Equal(t, domain.PeriodYearly, res.Period)

	require.Equal(t, 1, f.repo.count())
	assert.Equal(t, originalDate, f.repo.saved[0].StartsAt, "restore starts at the original purchase date")
}

func TestObserver_RestoredWithoutOriginal(t *testing.T) {
	f := newObserverFixture(t)
	ctx := context.Background()

	pending := f.completions.Begin()
	err := f.observer.Apply(ctx, domain.Transaction{
		ID:        "tx-restore",
		ProductID: "sub.yearly",
		State:     domain.StateRestored,
		Date:      time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrRestoreOriginalMissing)

	res := f.awaitResult(t, pending)
	assert.ErrorIs(t, res.Err, domain.ErrRestoreOriginalMissing)

	assert.Equal(t, 0, f.repo.count())
	assert.Equal(t, 1, f.queue.finishedCount(), "transaction still finished")
}

func TestObserver_FailedCancelled(t *testing.T) {
	f := newObserverFixture(t)
	ctx := context.Background()

	pending := f.completions.Begin()
	err := f.observer.Apply(ctx, domain.Transaction{
		ID:        "tx-fail",
		ProductID: "sub.monthly",
		State:     domain.StateFailed,
		ErrorCode: domain.ErrorCodeCancelled,
	})
	require.NoError(t, err)

	res := f.awaitResult(t, pending)
	assert.ErrorIs(t, res.Err, domain.ErrPurchaseCancelled)
	assert.Equal(t, 1, f.queue.finishedCount())
}

func TestObserver_FailedOtherError(t *testing.T) {
	f := newObserverFixture(t)
	ctx := context.Background()

	pending := f.completions.Begin()
	err := f.observer.Apply(ctx, domain.Transaction{
		ID:           "tx-fail",
		ProductID:    "sub.monthly",
		State:        domain.StateFailed,
		ErrorCode:    "network_error",
		ErrorMessage: "connection reset",
	})
	require.NoError(t, err)

	res := f.awaitResult(t, pending)
	var failure *domain.PurchaseFailedError
	require.ErrorAs(t, res.Err, &failure)
	assert.Equal(t, "network_error", failure.Code)
	assert.Equal(t, 1, f.queue.finishedCount())
}

func TestObserver_UnauthenticatedWrite(t *testing.T) {
	f := newObserverFixture(t)
	f.users.user = nil
	ctx := context.Background()

	pending := f.completions.Begin()
	err := f.observer.Apply(ctx, domain.Transaction{
		ID:        "tx-1",
		ProductID: "sub.monthly",
		State:     domain.StatePurchased,
		Date:      time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrOwnerMissing)

	res := f.awaitResult(t, pending)
	assert.ErrorIs(t, res.Err, domain.ErrOwnerMissing)

	assert.Equal(t, 0, f.repo.count(), "nothing persisted without an owner")
	assert.Equal(t, 1, f.queue.finishedCount())
}

func TestObserver_NonPositiveUserIDIsNoOwner(t *testing.T) {
	f := newObserverFixture(t)
	f.users.user = &domain.User{ID: 0}
	ctx := context.Background()

	pending := f.completions.Begin()
	require.Error(t, f.observer.Apply(ctx, domain.Transaction{
		ID:        "tx-1",
		ProductID: "sub.monthly",
		State:     domain.StatePurchased,
		Date:      time.Now().UTC(),
	}))

	res := f.awaitResult(t, pending)
	assert.ErrorIs(t, res.Err, domain.ErrOwnerMissing)
}
