package entitlement_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts3486/unswipe-sub000/internal/clock"
	"github.com/ts3486/unswipe-sub000/internal/domain"
	"github.com/ts3486/unswipe-sub000/internal/platform/sqlite"
	"github.com/ts3486/unswipe-sub000/internal/service/entitlement"
	"github.com/ts3486/unswipe-sub000/internal/store"
)

// fakeLedger is a scripted Ledger for tests.
type fakeLedger struct {
	snapshot    *entitlement.LedgerSnapshot
	snapshotErr error
}

func (f *fakeLedger) Snapshot(_ context.Context) (*entitlement.LedgerSnapshot, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return f.snapshot, nil
}

func (f *fakeLedger) Purchase(ctx context.Context, productID string) (*entitlement.LedgerSnapshot, error) {
	f.snapshot = &entitlement.LedgerSnapshot{
		ActiveEntitlements: map[string]entitlement.LedgerEntitlement{
			"premium": {ProductID: productID},
		},
	}
	return f.Snapshot(ctx)
}

func (f *fakeLedger) Restore(ctx context.Context) (*entitlement.LedgerSnapshot, error) {
	return f.Snapshot(ctx)
}

func newTestService(t *testing.T, ledger entitlement.Ledger, clk clock.Clock) (*entitlement.Service, store.SubscriptionStore) {
	t.Helper()

	db, err := sqlite.Open(":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	subs := sqlite.NewSubscriptionStore(db, nil)
	svc := entitlement.NewService(subs, ledger, clk, entitlement.NewDefaultParams(), nil)
	return svc, subs
}

func monthlySnapshot(expiresAt time.Time) *entitlement.LedgerSnapshot {
	return &entitlement.LedgerSnapshot{
		ActiveEntitlements: map[string]entitlement.LedgerEntitlement{
			"premium": {ProductID: "unswipe_monthly", ExpiresAt: &expiresAt},
		},
	}
}

func TestIsPremiumFromLedger(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, nil, clk)

	assert.False(t, svc.IsPremiumFromLedger(nil))
	assert.False(t, svc.IsPremiumFromLedger(&entitlement.LedgerSnapshot{
		ActiveEntitlements: map[string]entitlement.LedgerEntitlement{},
	}))
	assert.True(t, svc.IsPremiumFromLedger(monthlySnapshot(clk.Now().AddDate(0, 1, 0))))
}

func TestSyncFromLedgerMonthlyEntitlement(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC))
	svc, subs := newTestService(t, nil, clk)

	expires := clk.Now().AddDate(0, 1, 0)
	state, err := svc.SyncFromLedger(context.Background(), monthlySnapshot(expires))
	require.NoError(t, err)

	assert.Equal(t, domain.SubscriptionStatusActive, state.Status)
	assert.Equal(t, domain.PeriodMonthly, state.Period)
	assert.Equal(t, "unswipe_monthly", state.ProductID)
	assert.True(t, state.IsPremium)
	require.NotNil(t, state.ExpiresAt)
	assert.True(t, state.ExpiresAt.Equal(expires))

	persisted, err := subs.GetSingleton(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, persisted.Status)
}

func TestSyncFromLedgerLifetimeEntitlement(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC))
	svc, _ := newTestService(t, nil, clk)

	snapshot := &entitlement.LedgerSnapshot{
		ActiveEntitlements: map[string]entitlement.LedgerEntitlement{
			"premium": {ProductID: "unswipe_lifetime"},
		},
	}
	state, err := svc.SyncFromLedger(context.Background(), snapshot)
	require.NoError(t, err)

	assert.Equal(t, domain.SubscriptionStatusLifetime, state.Status)
	assert.Equal(t, domain.PeriodLifetime, state.Period)
	assert.True(t, state.IsPremium)
	assert.Nil(t, state.ExpiresAt)
}

func TestSyncFromLedgerAbsentEntitlement(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)
	empty := &entitlement.LedgerSnapshot{
		ActiveEntitlements: map[string]entitlement.LedgerEntitlement{},
	}

	t.Run("no prior record stays none", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t, nil, clock.NewFake(now))
		state, err := svc.SyncFromLedger(context.Background(), empty)
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusNone, state.Status)
		assert.False(t, state.IsPremium)
	})

	t.Run("past recorded expiry becomes expired", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewFake(now)
		svc, subs := newTestService(t, nil, clk)

		expired := now.AddDate(0, -1, 0)
		prior := domain.NewSubscriptionState()
		prior.Status = domain.SubscriptionStatusActive
		prior.IsPremium = true
		prior.ExpiresAt = &expired
		require.NoError(t, subs.UpsertSingleton(context.Background(), prior))

		state, err := svc.SyncFromLedger(context.Background(), empty)
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusExpired, state.Status)
		assert.False(t, state.IsPremium)
	})

	t.Run("future recorded expiry is kept", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewFake(now)
		svc, subs := newTestService(t, nil, clk)

		future := now.AddDate(0, 0, 10)
		prior := domain.NewSubscriptionState()
		prior.Status = domain.SubscriptionStatusActive
		prior.IsPremium = true
		prior.ExpiresAt = &future
		require.NoError(t, subs.UpsertSingleton(context.Background(), prior))

		state, err := svc.SyncFromLedger(context.Background(), empty)
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusActive, state.Status)
		assert.True(t, state.IsPremium)
	})

	t.Run("local trial survives an empty snapshot", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewFake(now)
		svc, _ := newTestService(t, nil, clk)

		_, err := svc.StartTrial(context.Background())
		require.NoError(t, err)

		state, err := svc.SyncFromLedger(context.Background(), empty)
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusTrial, state.Status)
		assert.True(t, state.IsPremium)
		assert.NotNil(t, state.TrialEndsAt)
	})
}

func TestStartTrial(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	svc, _ := newTestService(t, nil, clk)
	ctx := context.Background()

	state, err := svc.StartTrial(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.SubscriptionStatusTrial, state.Status)
	assert.True(t, state.IsPremium)
	require.NotNil(t, state.TrialStartedAt)
	require.NotNil(t, state.TrialEndsAt)
	assert.True(t, state.TrialEndsAt.Equal(now.AddDate(0, 0, 7)))

	info, err := svc.GetTrialInfo(ctx)
	require.NoError(t, err)
	assert.True(t, info.HasStartedTrial)
	assert.True(t, info.IsTrialActive)
	assert.Equal(t, 7, info.TrialDaysRemaining)
}

func TestGetTrialInfo(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

	t.Run("never started", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t, nil, clock.NewFake(now))
		info, err := svc.GetTrialInfo(context.Background())
		require.NoError(t, err)
		assert.False(t, info.HasStartedTrial)
		assert.False(t, info.IsTrialActive)
		assert.Equal(t, 0, info.TrialDaysRemaining)
		assert.Nil(t, info.TrialEndsAt)
	})

	t.Run("ending exactly now counts as expired", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewFake(now)
		svc, _ := newTestService(t, nil, clk)

		_, err := svc.StartTrial(context.Background())
		require.NoError(t, err)

		clk.AdvanceDays(7)
		info, err := svc.GetTrialInfo(context.Background())
		require.NoError(t, err)
		assert.True(t, info.HasStartedTrial)
		assert.False(t, info.IsTrialActive)
		assert.Equal(t, 0, info.TrialDaysRemaining)
	})

	t.Run("five days remaining", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewFake(now)
		svc, _ := newTestService(t, nil, clk)

		_, err := svc.StartTrial(context.Background())
		require.NoError(t, err)

		clk.AdvanceDays(2)
		info, err := svc.GetTrialInfo(context.Background())
		require.NoError(t, err)
		assert.True(t, info.IsTrialActive)
		assert.GreaterOrEqual(t, info.TrialDaysRemaining, 5)
		assert.LessOrEqual(t, info.TrialDaysRemaining, 6)
	})

	t.Run("expired long ago never reports negative days", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewFake(now)
		svc, _ := newTestService(t, nil, clk)

		_, err := svc.StartTrial(context.Background())
		require.NoError(t, err)

		clk.AdvanceDays(30)
		info, err := svc.GetTrialInfo(context.Background())
		require.NoError(t, err)
		assert.False(t, info.IsTrialActive)
		assert.Equal(t, 0, info.TrialDaysRemaining)
	})
}

func TestEnforceExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

	seedActive := func(t *testing.T, subs store.SubscriptionStore, expiresAt time.Time) {
		t.Helper()
		trialStart := now.AddDate(0, -2, 0)
		trialEnd := trialStart.AddDate(0, 0, 7)
		state := domain.NewSubscriptionState()
		state.Status = domain.SubscriptionStatusActive
		state.Period = domain.PeriodMonthly
		state.IsPremium = true
		state.ExpiresAt = &expiresAt
		state.TrialStartedAt = &trialStart
		state.TrialEndsAt = &trialEnd
		require.NoError(t, subs.UpsertSingleton(context.Background(), state))
	}

	t.Run("one day past expiry stays within grace", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewFake(now)
		svc, subs := newTestService(t, nil, clk)
		seedActive(t, subs, now.AddDate(0, 0, -1))

		state, err := svc.EnforceExpiry(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusActive, state.Status)
		assert.True(t, state.IsPremium)
	})

	t.Run("four days past expiry revokes premium", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewFake(now)
		svc, subs := newTestService(t, nil, clk)
		seedActive(t, subs, now.AddDate(0, 0, -4))

		state, err := svc.EnforceExpiry(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusExpired, state.Status)
		assert.False(t, state.IsPremium)

		// Trial metadata is untouched by enforcement.
		require.NotNil(t, state.TrialStartedAt)
		require.NotNil(t, state.TrialEndsAt)

		persisted, err := subs.GetSingleton(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusExpired, persisted.Status)
		assert.NotNil(t, persisted.TrialStartedAt)
	})

	t.Run("lifetime is never expired", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewFake(now)
		svc, subs := newTestService(t, nil, clk)

		state := domain.NewSubscriptionState()
		state.Status = domain.SubscriptionStatusLifetime
		state.Period = domain.PeriodLifetime
		state.IsPremium = true
		require.NoError(t, subs.UpsertSingleton(context.Background(), state))

		result, err := svc.EnforceExpiry(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusLifetime, result.Status)
		assert.True(t, result.IsPremium)
	})

	t.Run("no record is a no-op", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t, nil, clock.NewFake(now))
		state, err := svc.EnforceExpiry(context.Background())
		require.NoError(t, err)
		assert.Nil(t, state)
	})
}

func TestForeground(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

	t.Run("syncs snapshot then enforces", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewFake(now)
		ledger := &fakeLedger{snapshot: monthlySnapshot(now.AddDate(0, 1, 0))}
		svc, _ := newTestService(t, ledger, clk)

		state, err := svc.Foreground(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusActive, state.Status)
		assert.True(t, state.IsPremium)
	})

	t.Run("ledger failure still enforces expiry", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewFake(now)
		ledger := &fakeLedger{snapshotErr: entitlement.ErrLedgerUnavailable}
		svc, subs := newTestService(t, ledger, clk)

		expired := now.AddDate(0, 0, -10)
		prior := domain.NewSubscriptionState()
		prior.Status = domain.SubscriptionStatusActive
		prior.Period = domain.PeriodMonthly
		prior.IsPremium = true
		prior.ExpiresAt = &expired
		require.NoError(t, subs.UpsertSingleton(context.Background(), prior))

		state, err := svc.Foreground(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusExpired, state.Status)
		assert.False(t, state.IsPremium)
	})

	t.Run("nil ledger only enforces", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t, nil, clock.NewFake(now))
		state, err := svc.Foreground(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusNone, state.Status)
	})
}

func TestPurchaseAndRestore(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

	t.Run("purchase syncs the returned snapshot", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewFake(now)
		ledger := &fakeLedger{snapshot: &entitlement.LedgerSnapshot{
			ActiveEntitlements: map[string]entitlement.LedgerEntitlement{},
		}}
		svc, _ := newTestService(t, ledger, clk)

		state, err := svc.Purchase(context.Background(), "unswipe_lifetime")
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusLifetime, state.Status)
		assert.True(t, state.IsPremium)
	})

	t.Run("restore syncs the current snapshot", func(t *testing.T) {
		t.Parallel()

		clk := clock.NewFake(now)
		ledger := &fakeLedger{snapshot: monthlySnapshot(now.AddDate(0, 1, 0))}
		svc, _ := newTestService(t, ledger, clk)

		state, err := svc.Restore(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusActive, state.Status)
	})

	t.Run("nil ledger returns unavailable", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t, nil, clock.NewFake(now))

		_, err := svc.Purchase(context.Background(), "unswipe_monthly")
		assert.True(t, errors.Is(err, entitlement.ErrLedgerUnavailable))

		_, err = svc.Restore(context.Background())
		assert.True(t, errors.Is(err, entitlement.ErrLedgerUnavailable))
	})
}
