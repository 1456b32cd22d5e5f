package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransaction_Key_MinuteGranularity(t *testing.T) {
	at := time.Date(2024, time.May, 1, 10, 30, 12, 0, time.UTC)

	first := Transaction{ProductID: "sub.monthly", State: StatePurchased, Date: at}
	second := Transaction{ProductID: "sub.monthly", State: StatePurchased, Date: at.Add(40 * time.Second)}
	later := Transaction{ProductID: "sub.monthly", State: StatePurchased, Date: at.Add(2 * time.Minute)}

	assert.Equal(t, first.Key(), second.Key())
	assert.NotEqual(t, first.Key(), later.Key())
}

func TestTransaction_Key_RestoredUsesOriginal(t *testing.T) {
	originalDate := time.Date(2023, time.March, 1, 8, 0, 0, 0, time.UTC)
	restored := Transaction{
		ID:        "tx-2",
		ProductID: "sub.monthly",
		State:     StateRestored,
		Date:      time.Now(),
		Original: &OriginalTransaction{
			ID:        "tx-1",
			ProductID: "sub.yearly",
			Date:      originalDate,
		},
	}

	assert.Equal(t, NewTransactionKey("sub.yearly", originalDate), restored.Key())
}

func TestTransaction_EffectiveID(t *testing.T) {
	assert.Equal(t, "tx-9", Transaction{ID: "tx-9"}.EffectiveID())

	withOriginal := Transaction{Original: &OriginalTransaction{ID: "tx-orig"}}
	assert.Equal(t, "tx-orig", withOriginal.EffectiveID())

	assert.Equal(t, "", Transaction{}.EffectiveID())
}

func TestHistoryEntry_IsActive(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, HistoryEntry{}.IsActive(now), "no expiry, no revocation")
	assert.True(t, HistoryEntry{ExpiresAt: &future}.IsActive(now))
	assert.False(t, HistoryEntry{ExpiresAt: &past}.IsActive(now))
	assert.False(t, HistoryEntry{RevokedAt: &past}.IsActive(now))
	assert.False(t, HistoryEntry{RevokedAt: &past, ExpiresAt: &future}.IsActive(now))
}

func TestNewSubscription_DerivedEndAndID(t *testing.T) {
	start := time.Date(2024, time.January, 31, 9, 0, 0, 0, time.UTC)

	sub := NewSubscription(42, "sub.monthly", PeriodMonthly, start, nil)

	assert.Equal(t, int64(42), sub.UserID)
	assert.Equal(t, PeriodMonthly, sub.Period)
	assert.Equal(t, start, sub.StartsAt)
	if assert.NotNil(t, sub.EndsAt) {
		assert.Equal(t, time.Date(2024, time.February, 29, 9, 0, 0, 0, time.UTC), *sub.EndsAt)
	}
	assert.Contains(t, sub.SubscriptionID, "sub.monthly-")
	assert.NotEqual(t, "sub.monthly-", sub.SubscriptionID)
}

func TestNewSubscription_UniqueSubscriptionIDs(t *testing.T) {
	start := time.Now().UTC()
	a := NewSubscription(1, "sub.yearly", PeriodYearly, start, nil)
	b := NewSubscription(1, "sub.yearly", PeriodYearly, start, nil)
	assert.NotEqual(t, a.SubscriptionID, b.SubscriptionID)
}

func TestSubscription_IsActive(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	sub := NewSubscription(1, "sub.monthly", PeriodMonthly, start, nil)

	assert.True(t, sub.IsActive(start.Add(24*time.Hour)))
	assert.False(t, sub.IsActive(start.Add(-time.Hour)))
	assert.False(t, sub.IsActive(start.AddDate(0, 2, 0)))
}
