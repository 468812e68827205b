package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ts3486/unswipe-sub000/internal/domain"
	"github.com/ts3486/unswipe-sub000/internal/platform/logger"
	"github.com/ts3486/unswipe-sub000/internal/store"
)

// singletonID is the fixed primary key of the one subscription row.
const singletonID = 1

// SubscriptionStore implements the store.SubscriptionStore interface using
// an embedded SQLite database as the storage backend. A CHECK constraint on
// the table guarantees at most one row.
type SubscriptionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSubscriptionStore creates a new SQLite implementation of the
// SubscriptionStore interface. It accepts a database connection or
// transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewSubscriptionStore(db store.DBTX, logger *slog.Logger) *SubscriptionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &SubscriptionStore{
		db:     db,
		logger: logger.With(slog.String("component", "subscription_store")),
	}
}

// Ensure SubscriptionStore implements store.SubscriptionStore interface
var _ store.SubscriptionStore = (*SubscriptionStore)(nil)

// WithTx implements store.SubscriptionStore.WithTx
func (s *SubscriptionStore) WithTx(tx *sql.Tx) store.SubscriptionStore {
	return &SubscriptionStore{
		db:     tx,
		logger: s.logger,
	}
}

// GetSingleton implements store.SubscriptionStore.GetSingleton
func (s *SubscriptionStore) GetSingleton(ctx context.Context) (*domain.SubscriptionState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT status, product_id, period, started_at, expires_at,
			is_premium, trial_started_at, trial_ends_at, updated_at
		FROM subscription_state
		WHERE id = ?`, singletonID)

	var (
		state                                          domain.SubscriptionState
		status                                         string
		startedAt, expiresAt, trialStarted, trialEnds  sql.NullString
		isPremium                                      int
		updatedAt                                      string
	)
	err := row.Scan(
		&status,
		&state.ProductID,
		&state.Period,
		&startedAt,
		&expiresAt,
		&isPremium,
		&trialStarted,
		&trialEnds,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSubscriptionNotFound
		}
		return nil, store.NewStoreError("subscription_state", "get", "scan failed", err)
	}

	state.Status = domain.SubscriptionStatus(status)
	state.IsPremium = isPremium != 0

	if state.StartedAt, err = parseNullTime(startedAt); err != nil {
		return nil, store.NewStoreError("subscription_state", "get", "malformed started_at", err)
	}
	if state.ExpiresAt, err = parseNullTime(expiresAt); err != nil {
		return nil, store.NewStoreError("subscription_state", "get", "malformed expires_at", err)
	}
	if state.TrialStartedAt, err = parseNullTime(trialStarted); err != nil {
		return nil, store.NewStoreError("subscription_state", "get", "malformed trial_started_at", err)
	}
	if state.TrialEndsAt, err = parseNullTime(trialEnds); err != nil {
		return nil, store.NewStoreError("subscription_state", "get", "malformed trial_ends_at", err)
	}

	ts, err := time.Parse(timeLayout, updatedAt)
	if err != nil {
		return nil, store.NewStoreError("subscription_state", "get", "malformed updated_at", err)
	}
	state.UpdatedAt = ts

	return &state, nil
}

// UpsertSingleton implements store.SubscriptionStore.UpsertSingleton
func (s *SubscriptionStore) UpsertSingleton(ctx context.Context, state *domain.SubscriptionState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		log.Warn("rejected invalid subscription state",
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscription_state (
			id, status, product_id, period, started_at, expires_at,
			is_premium, trial_started_at, trial_ends_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			product_id = excluded.product_id,
			period = excluded.period,
			started_at = excluded.started_at,
			expires_at = excluded.expires_at,
			is_premium = excluded.is_premium,
			trial_started_at = excluded.trial_started_at,
			trial_ends_at = excluded.trial_ends_at,
			updated_at = excluded.updated_at`,
		singletonID,
		string(state.Status),
		state.ProductID,
		state.Period,
		formatNullTime(state.StartedAt),
		formatNullTime(state.ExpiresAt),
		boolToInt(state.IsPremium),
		formatNullTime(state.TrialStartedAt),
		formatNullTime(state.TrialEndsAt),
		state.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		log.Error("failed to upsert subscription state",
			slog.String("error", err.Error()),
			slog.String("status", string(state.Status)))
		return store.NewStoreError("subscription_state", "upsert", "upsert failed", err)
	}

	log.Debug("upserted subscription state",
		slog.String("status", string(state.Status)),
		slog.Bool("is_premium", state.IsPremium))

	return nil
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(timeLayout)
}
