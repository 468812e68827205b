package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts3486/unswipe-sub000/internal/domain"
	"github.com/ts3486/unswipe-sub000/internal/store"
)

func TestRunInTransactionCommitsEventAndSnapshot(t *testing.T) {
	db := newTestDB(t)
	eventStore := NewUrgeEventStore(db, nil)
	progressStore := NewProgressStore(db, nil)
	ctx := context.Background()

	at := time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)
	event := mustEvent(t, domain.UrgeKindSwipe, domain.OutcomeSuccess, at)
	snapshot := snapshotForDay(t, "2026-02-18")
	snapshot.DaySuccess = true

	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := eventStore.WithTx(tx).Create(ctx, event); err != nil {
			return err
		}
		return progressStore.WithTx(tx).Upsert(ctx, snapshot)
	})
	require.NoError(t, err)

	events, err := eventStore.ListByDay(ctx, "2026-02-18")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	got, err := progressStore.GetByDate(ctx, "2026-02-18")
	require.NoError(t, err)
	assert.True(t, got.DaySuccess)
}

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	eventStore := NewUrgeEventStore(db, nil)
	ctx := context.Background()

	at := time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)
	boom := errors.New("snapshot derivation failed")

	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		event := mustEvent(t, domain.UrgeKindSwipe, domain.OutcomeSuccess, at)
		if _, err := eventStore.WithTx(tx).Create(ctx, event); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The event write inside the failed transaction must not be visible.
	events, err := eventStore.ListByDay(ctx, "2026-02-18")
	require.NoError(t, err)
	assert.Empty(t, events)
}
