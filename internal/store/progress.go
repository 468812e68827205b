package store

import (
	"context"
	"database/sql"

	"github.com/ts3486/unswipe-sub000/internal/domain"
)

// ProgressStore defines the interface for per-day progress snapshot
// persistence. Rows are keyed by local calendar date and replaced whole on
// every upsert (last writer wins; this engine is the sole writer).
type ProgressStore interface {
	// GetByDate retrieves the snapshot for the given local calendar date.
	// Returns ErrSnapshotNotFound if no row exists for that date.
	GetByDate(ctx context.Context, date string) (*domain.ProgressSnapshot, error)

	// GetLatest retrieves the snapshot with the most recent date.
	// Returns ErrSnapshotNotFound if the store is empty.
	GetLatest(ctx context.Context) (*domain.ProgressSnapshot, error)

	// Upsert inserts or replaces the snapshot row for snapshot.Date.
	// The replacement is whole-row: every column takes the new value.
	// It handles domain validation internally; validation failures are
	// wrapped with ErrInvalidEntity.
	Upsert(ctx context.Context, snapshot *domain.ProgressSnapshot) error

	// ListAllDatesAscending returns every snapshot date in ascending order.
	ListAllDatesAscending(ctx context.Context) ([]string, error)

	// ListSuccessDatesAscending returns the dates whose stored snapshot
	// recorded a successful day, in ascending order. This is the success-date
	// set the streak computation walks.
	ListSuccessDatesAscending(ctx context.Context) ([]string, error)

	// WithTx returns a new ProgressStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) ProgressStore
}
