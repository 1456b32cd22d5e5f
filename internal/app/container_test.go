package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plumeapp/plume/internal/entitlements/domain"
	"github.com/plumeapp/plume/internal/entitlements/infrastructure/storefake"
	"github.com/plumeapp/plume/internal/shared/infrastructure/database"
	"github.com/plumeapp/plume/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestContainer(t *testing.T) (*Container, *storefake.Store, context.Context) {
	t.Helper()

	tempDir := t.TempDir()
	cfg := &config.Config{
		AppEnv:            "test",
		DatabaseURL:       filepath.Join(tempDir, "test.db"),
		ProductIDs:        []string{"sub.monthly", "sub.yearly"},
		ConsumableIDs:     []string{"credits.import.10"},
		CatalogTimeout:    time.Second,
		RestoreTimeout:    time.Second,
		DedupWindowSize:   10,
		HistoryAPIEnabled: true,
		UserID:            1,
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	store := storefake.New([]domain.ProductDescriptor{
		{ID: "sub.monthly", Period: domain.PeriodMonthly, Price: "4.99", Locale: "en_US"},
		{ID: "sub.yearly", Period: domain.PeriodYearly, Price: "39.99", Locale: "en_US"},
	})

	ctx := context.Background()
	container, err := NewContainer(ctx, cfg, logger, Platform{
		Fetcher:  store,
		Queue:    store,
		Receipts: store,
		History:  store,
	})
	require.NoError(t, err)
	require.NotNil(t, container)

	return container, store, ctx
}

func TestContainer_LocalSQLiteMode(t *testing.T) {
	container, _, _ := setupTestContainer(t)
	defer container.Close()

	assert.Equal(t, database.DriverSQLite, container.DBDriver)
	assert.Nil(t, container.DBConn.Pool())
	assert.NotNil(t, container.DBConn.DB())

	assert.NotNil(t, container.SubscriptionRepo)
	assert.NotNil(t, container.FinalizedStore)
	assert.NotNil(t, container.EventPublisher)
	assert.NotNil(t, container.Engine)
	assert.Nil(t, container.RedisClient)
}

func TestContainer_PurchaseWorkflow(t *testing.T) {
	container, store, ctx := setupTestContainer(t)
	defer container.Close()

	pumpCtx, stopPump := context.WithCancel(ctx)
	defer stopPump()
	go DrainStoreUpdates(pumpCtx, container.Engine, store.Updates(), container.Logger)

	pending, err := container.Engine.Purchase(ctx, "sub.monthly")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	result, err := pending.Wait(waitCtx)
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Equal(t, domain.PeriodMonthly, result.Period)

	// The subscription landed in SQLite.
	sub, err := container.SubscriptionRepo.FindByUserID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "sub.monthly", sub.ProductID)
	assert.True(t, sub.IsActive(time.Now()))
}

func TestContainer_RestoreWorkflow(t *testing.T) {
	container, store, ctx := setupTestContainer(t)
	defer container.Close()

	pumpCtx, stopPump := context.WithCancel(ctx)
	defer stopPump()
	go DrainStoreUpdates(pumpCtx, container.Engine, store.Updates(), container.Logger)

	// Purchase first so there is something to restore.
	pending, err := container.Engine.Purchase(ctx, "sub.yearly")
	require.NoError(t, err)
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = pending.Wait(waitCtx)
	require.NoError(t, err)

	pending, err = container.Engine.Restore(ctx)
	require.NoError(t, err)
	result, err := pending.Wait(waitCtx)
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Equal(t, domain.PeriodYearly, result.Period)
}
