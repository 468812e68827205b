package store

import (
	"context"
	"database/sql"

	"github.com/ts3486/unswipe-sub000/internal/domain"
)

// SubscriptionStore defines the interface for the subscription singleton.
// Exactly one row exists once anything has been written; reads before the
// first write return ErrSubscriptionNotFound.
type SubscriptionStore interface {
	// GetSingleton retrieves the subscription state.
	// Returns ErrSubscriptionNotFound if nothing has been written yet.
	GetSingleton(ctx context.Context) (*domain.SubscriptionState, error)

	// UpsertSingleton inserts or replaces the single subscription row.
	// It handles domain validation internally; validation failures are
	// wrapped with ErrInvalidEntity.
	UpsertSingleton(ctx context.Context, state *domain.SubscriptionState) error

	// WithTx returns a new SubscriptionStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) SubscriptionStore
}
