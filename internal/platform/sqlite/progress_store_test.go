package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts3486/unswipe-sub000/internal/domain"
	"github.com/ts3486/unswipe-sub000/internal/store"
)

func snapshotForDay(t *testing.T, date string) *domain.ProgressSnapshot {
	t.Helper()
	snapshot, err := domain.NewProgressSnapshot(date)
	require.NoError(t, err)
	snapshot.UpdatedAt = time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)
	return snapshot
}

func TestProgressStoreUpsertAndGetByDate(t *testing.T) {
	db := newTestDB(t)
	progressStore := NewProgressStore(db, nil)
	ctx := context.Background()

	snapshot := snapshotForDay(t, "2026-02-18")
	snapshot.MeditationCountTotal = 5
	snapshot.Rank = 2
	snapshot.StreakDays = 3
	snapshot.LastSuccessDate = "2026-02-18"
	snapshot.DaySuccess = true

	require.NoError(t, progressStore.Upsert(ctx, snapshot))

	got, err := progressStore.GetByDate(ctx, "2026-02-18")
	require.NoError(t, err)
	assert.Equal(t, 5, got.MeditationCountTotal)
	assert.Equal(t, 2, got.Rank)
	assert.Equal(t, 3, got.StreakDays)
	assert.Equal(t, "2026-02-18", got.LastSuccessDate)
	assert.True(t, got.DaySuccess)
	assert.True(t, got.UpdatedAt.Equal(snapshot.UpdatedAt))
}

func TestProgressStoreGetByDateNotFound(t *testing.T) {
	db := newTestDB(t)
	progressStore := NewProgressStore(db, nil)

	_, err := progressStore.GetByDate(context.Background(), "2026-02-18")
	assert.ErrorIs(t, err, store.ErrSnapshotNotFound)
	assert.True(t, store.IsNotFoundError(err))
}

func TestProgressStoreUpsertReplacesWholeRow(t *testing.T) {
	db := newTestDB(t)
	progressStore := NewProgressStore(db, nil)
	ctx := context.Background()

	first := snapshotForDay(t, "2026-02-18")
	first.MeditationCountTotal = 4
	first.LastSuccessDate = "2026-02-17"
	require.NoError(t, progressStore.Upsert(ctx, first))

	// The replacement clears fields the new row does not carry.
	second := snapshotForDay(t, "2026-02-18")
	second.MeditationCountTotal = 5
	second.Rank = 2
	require.NoError(t, progressStore.Upsert(ctx, second))

	got, err := progressStore.GetByDate(ctx, "2026-02-18")
	require.NoError(t, err)
	assert.Equal(t, 5, got.MeditationCountTotal)
	assert.Equal(t, 2, got.Rank)
	assert.Empty(t, got.LastSuccessDate)
}

func TestProgressStoreGetLatest(t *testing.T) {
	db := newTestDB(t)
	progressStore := NewProgressStore(db, nil)
	ctx := context.Background()

	_, err := progressStore.GetLatest(ctx)
	assert.ErrorIs(t, err, store.ErrSnapshotNotFound)

	for _, date := range []string{"2026-02-16", "2026-02-18", "2026-02-17"} {
		require.NoError(t, progressStore.Upsert(ctx, snapshotForDay(t, date)))
	}

	latest, err := progressStore.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-18", latest.Date)
}

func TestProgressStoreDateListings(t *testing.T) {
	db := newTestDB(t)
	progressStore := NewProgressStore(db, nil)
	ctx := context.Background()

	success := snapshotForDay(t, "2026-02-16")
	success.DaySuccess = true
	require.NoError(t, progressStore.Upsert(ctx, success))

	failure := snapshotForDay(t, "2026-02-17")
	require.NoError(t, progressStore.Upsert(ctx, failure))

	success2 := snapshotForDay(t, "2026-02-18")
	success2.DaySuccess = true
	require.NoError(t, progressStore.Upsert(ctx, success2))

	all, err := progressStore.ListAllDatesAscending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-16", "2026-02-17", "2026-02-18"}, all)

	successes, err := progressStore.ListSuccessDatesAscending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-16", "2026-02-18"}, successes)
}

func TestProgressStoreUpsertRejectsInvalid(t *testing.T) {
	db := newTestDB(t)
	progressStore := NewProgressStore(db, nil)

	snapshot := snapshotForDay(t, "2026-02-18")
	snapshot.Rank = 0

	err := progressStore.Upsert(context.Background(), snapshot)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}
