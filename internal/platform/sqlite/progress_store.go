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

// ProgressStore implements the store.ProgressStore interface using an
// embedded SQLite database as the storage backend.
type ProgressStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewProgressStore creates a new SQLite implementation of the ProgressStore
// interface. It accepts a database connection or transaction that should be
// initialized and managed by the caller. If logger is nil, a default logger
// will be used.
func NewProgressStore(db store.DBTX, logger *slog.Logger) *ProgressStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &ProgressStore{
		db:     db,
		logger: logger.With(slog.String("component", "progress_store")),
	}
}

// Ensure ProgressStore implements store.ProgressStore interface
var _ store.ProgressStore = (*ProgressStore)(nil)

// WithTx implements store.ProgressStore.WithTx
func (s *ProgressStore) WithTx(tx *sql.Tx) store.ProgressStore {
	return &ProgressStore{
		db:     tx,
		logger: s.logger,
	}
}

const snapshotColumns = `date, meditation_count_total, rank, streak_days,
	last_success_date, spend_avoided_count_total, day_success, updated_at`

// GetByDate implements store.ProgressStore.GetByDate
func (s *ProgressStore) GetByDate(ctx context.Context, date string) (*domain.ProgressSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM progress_snapshots
		WHERE date = ?`, date)

	snapshot, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSnapshotNotFound
		}
		return nil, err
	}
	return snapshot, nil
}

// GetLatest implements store.ProgressStore.GetLatest
func (s *ProgressStore) GetLatest(ctx context.Context) (*domain.ProgressSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM progress_snapshots
		ORDER BY date DESC
		LIMIT 1`)

	snapshot, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSnapshotNotFound
		}
		return nil, err
	}
	return snapshot, nil
}

// Upsert implements store.ProgressStore.Upsert
// The replacement is whole-row: every column takes the value from the given
// snapshot. Last writer wins; this engine is the sole writer.
func (s *ProgressStore) Upsert(ctx context.Context, snapshot *domain.ProgressSnapshot) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := snapshot.Validate(); err != nil {
		log.Warn("rejected invalid progress snapshot",
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	var lastSuccess any
	if snapshot.LastSuccessDate != "" {
		lastSuccess = snapshot.LastSuccessDate
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress_snapshots (
			date, meditation_count_total, rank, streak_days,
			last_success_date, spend_avoided_count_total, day_success, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			meditation_count_total = excluded.meditation_count_total,
			rank = excluded.rank,
			streak_days = excluded.streak_days,
			last_success_date = excluded.last_success_date,
			spend_avoided_count_total = excluded.spend_avoided_count_total,
			day_success = excluded.day_success,
			updated_at = excluded.updated_at`,
		snapshot.Date,
		snapshot.MeditationCountTotal,
		snapshot.Rank,
		snapshot.StreakDays,
		lastSuccess,
		snapshot.SpendAvoidedCountTotal,
		boolToInt(snapshot.DaySuccess),
		snapshot.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		log.Error("failed to upsert progress snapshot",
			slog.String("error", err.Error()),
			slog.String("date", snapshot.Date))
		return store.NewStoreError("progress_snapshot", "upsert", "upsert failed", err)
	}

	log.Debug("upserted progress snapshot",
		slog.String("date", snapshot.Date),
		slog.Int("rank", snapshot.Rank),
		slog.Int("streak_days", snapshot.StreakDays),
		slog.Bool("day_success", snapshot.DaySuccess))

	return nil
}

// ListAllDatesAscending implements store.ProgressStore.ListAllDatesAscending
func (s *ProgressStore) ListAllDatesAscending(ctx context.Context) ([]string, error) {
	return s.listDates(ctx, `
		SELECT date
		FROM progress_snapshots
		ORDER BY date ASC`)
}

// ListSuccessDatesAscending implements store.ProgressStore.ListSuccessDatesAscending
func (s *ProgressStore) ListSuccessDatesAscending(ctx context.Context) ([]string, error) {
	return s.listDates(ctx, `
		SELECT date
		FROM progress_snapshots
		WHERE day_success = 1
		ORDER BY date ASC`)
}

func (s *ProgressStore) listDates(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, store.NewStoreError("progress_snapshot", "list_dates", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	var dates []string
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, store.NewStoreError("progress_snapshot", "list_dates", "scan failed", err)
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("progress_snapshot", "list_dates", "iteration failed", err)
	}

	return dates, nil
}

// scanSnapshot reads one snapshot row in snapshotColumns order.
func scanSnapshot(row *sql.Row) (*domain.ProgressSnapshot, error) {
	var (
		snapshot    domain.ProgressSnapshot
		lastSuccess sql.NullString
		daySuccess  int
		updatedAt   string
	)
	err := row.Scan(
		&snapshot.Date,
		&snapshot.MeditationCountTotal,
		&snapshot.Rank,
		&snapshot.StreakDays,
		&lastSuccess,
		&snapshot.SpendAvoidedCountTotal,
		&daySuccess,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, store.NewStoreError("progress_snapshot", "scan", "scan failed", err)
	}

	if lastSuccess.Valid {
		snapshot.LastSuccessDate = lastSuccess.String
	}
	snapshot.DaySuccess = daySuccess != 0

	ts, err := time.Parse(timeLayout, updatedAt)
	if err != nil {
		return nil, store.NewStoreError("progress_snapshot", "scan", "malformed updated_at", err)
	}
	snapshot.UpdatedAt = ts

	return &snapshot, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
