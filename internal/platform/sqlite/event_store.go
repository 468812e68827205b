package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ts3486/unswipe-sub000/internal/domain"
	"github.com/ts3486/unswipe-sub000/internal/platform/logger"
	"github.com/ts3486/unswipe-sub000/internal/store"
)

// UrgeEventStore implements the store.UrgeEventStore interface using an
// embedded SQLite database as the storage backend.
//
// The local-day, weekday and time-bucket partitions are derived once at
// write time from the event's occurrence instant, so every later query is a
// plain indexed lookup with no timezone arithmetic in SQL.
type UrgeEventStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewUrgeEventStore creates a new SQLite implementation of the UrgeEventStore
// interface. It accepts a database connection or transaction that should be
// initialized and managed by the caller. If logger is nil, a default logger
// will be used.
func NewUrgeEventStore(db store.DBTX, logger *slog.Logger) *UrgeEventStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &UrgeEventStore{
		db:     db,
		logger: logger.With(slog.String("component", "urge_event_store")),
	}
}

// Ensure UrgeEventStore implements store.UrgeEventStore interface
var _ store.UrgeEventStore = (*UrgeEventStore)(nil)

// WithTx implements store.UrgeEventStore.WithTx
func (s *UrgeEventStore) WithTx(tx *sql.Tx) store.UrgeEventStore {
	return &UrgeEventStore{
		db:     tx,
		logger: s.logger,
	}
}

// timeBucketFor assigns an occurrence instant to its local time-of-day
// bucket. The evening bucket wraps past midnight (18:00 through 04:59).
func timeBucketFor(t time.Time) store.TimeBucket {
	switch hour := t.Hour(); {
	case hour >= 5 && hour < 12:
		return store.TimeBucketMorning
	case hour >= 12 && hour < 18:
		return store.TimeBucketAfternoon
	default:
		return store.TimeBucketEvening
	}
}

// Create implements store.UrgeEventStore.Create
// It validates the event, derives its local-day partitions and inserts the
// row. The row is visible to every subsequent query on this store as soon
// as Create returns.
func (s *UrgeEventStore) Create(ctx context.Context, event *domain.UrgeEvent) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := event.Validate(); err != nil {
		log.Warn("rejected invalid urge event",
			slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	localDay := event.OccurredAt.Format(domain.DayFormat)
	weekday := int(event.OccurredAt.Weekday())
	bucket := string(timeBucketFor(event.OccurredAt))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO urge_events (
			id, occurred_at, local_day, local_weekday, local_bucket,
			kind, action_id, outcome, trigger_tag, spend_category,
			spend_item_type, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID.String(),
		event.OccurredAt.Format(timeLayout),
		localDay,
		weekday,
		bucket,
		string(event.Kind),
		event.ActionID,
		string(event.Outcome),
		event.TriggerTag,
		event.SpendCategory,
		event.SpendItemType,
		event.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		log.Error("failed to insert urge event",
			slog.String("error", err.Error()),
			slog.String("event_id", event.ID.String()))
		return "", store.NewStoreError("urge_event", "create", "insert failed", err)
	}

	log.Debug("created urge event",
		slog.String("event_id", event.ID.String()),
		slog.String("kind", string(event.Kind)),
		slog.String("outcome", string(event.Outcome)),
		slog.String("local_day", localDay))

	return event.ID.String(), nil
}

const eventColumns = `id, occurred_at, kind, action_id, outcome,
	trigger_tag, spend_category, spend_item_type, created_at`

// ListByDay implements store.UrgeEventStore.ListByDay
func (s *UrgeEventStore) ListByDay(ctx context.Context, day string) ([]*domain.UrgeEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM urge_events
		WHERE local_day = ?
		ORDER BY occurred_at ASC`, day)
	if err != nil {
		return nil, store.NewStoreError("urge_event", "list_by_day", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

// ListByDayRange implements store.UrgeEventStore.ListByDayRange
func (s *UrgeEventStore) ListByDayRange(ctx context.Context, from, to string) ([]*domain.UrgeEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM urge_events
		WHERE local_day >= ? AND local_day <= ?
		ORDER BY occurred_at ASC`, from, to)
	if err != nil {
		return nil, store.NewStoreError("urge_event", "list_by_day_range", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

// CountByOutcomeForDay implements store.UrgeEventStore.CountByOutcomeForDay
func (s *UrgeEventStore) CountByOutcomeForDay(
	ctx context.Context,
	day string,
	outcome domain.Outcome,
) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM urge_events
		WHERE local_day = ? AND outcome = ?`, day, string(outcome)).Scan(&count)
	if err != nil {
		return 0, store.NewStoreError("urge_event", "count_by_outcome_for_day", "query failed", err)
	}
	return count, nil
}

// CountByKindAndOutcome implements store.UrgeEventStore.CountByKindAndOutcome
func (s *UrgeEventStore) CountByKindAndOutcome(
	ctx context.Context,
	kind domain.UrgeKind,
	outcome domain.Outcome,
) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM urge_events
		WHERE kind = ? AND outcome = ?`, string(kind), string(outcome)).Scan(&count)
	if err != nil {
		return 0, store.NewStoreError("urge_event", "count_by_kind_and_outcome", "query failed", err)
	}
	return count, nil
}

// CountsByWeekday implements store.UrgeEventStore.CountsByWeekday
func (s *UrgeEventStore) CountsByWeekday(ctx context.Context) (map[time.Weekday]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT local_weekday, COUNT(*)
		FROM urge_events
		GROUP BY local_weekday`)
	if err != nil {
		return nil, store.NewStoreError("urge_event", "counts_by_weekday", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[time.Weekday]int)
	for rows.Next() {
		var weekday, count int
		if err := rows.Scan(&weekday, &count); err != nil {
			return nil, store.NewStoreError("urge_event", "counts_by_weekday", "scan failed", err)
		}
		counts[time.Weekday(weekday)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("urge_event", "counts_by_weekday", "iteration failed", err)
	}

	return counts, nil
}

// CountsByTimeBucket implements store.UrgeEventStore.CountsByTimeBucket
func (s *UrgeEventStore) CountsByTimeBucket(ctx context.Context) (map[store.TimeBucket]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT local_bucket, COUNT(*)
		FROM urge_events
		GROUP BY local_bucket`)
	if err != nil {
		return nil, store.NewStoreError("urge_event", "counts_by_time_bucket", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[store.TimeBucket]int)
	for rows.Next() {
		var bucket string
		var count int
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, store.NewStoreError("urge_event", "counts_by_time_bucket", "scan failed", err)
		}
		counts[store.TimeBucket(bucket)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("urge_event", "counts_by_time_bucket", "iteration failed", err)
	}

	return counts, nil
}

// scanEvents reads urge event rows in eventColumns order.
func scanEvents(rows *sql.Rows) ([]*domain.UrgeEvent, error) {
	var events []*domain.UrgeEvent

	for rows.Next() {
		var (
			id, occurredAt, kind, actionID, outcome, createdAt string
			triggerTag, spendCategory, spendItemType           sql.NullString
		)
		if err := rows.Scan(
			&id, &occurredAt, &kind, &actionID, &outcome,
			&triggerTag, &spendCategory, &spendItemType, &createdAt,
		); err != nil {
			return nil, store.NewStoreError("urge_event", "scan", "scan failed", err)
		}

		event, err := eventFromColumns(
			id, occurredAt, kind, actionID, outcome,
			triggerTag, spendCategory, spendItemType, createdAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("urge_event", "scan", "iteration failed", err)
	}

	return events, nil
}

func eventFromColumns(
	id, occurredAt, kind, actionID, outcome string,
	triggerTag, spendCategory, spendItemType sql.NullString,
	createdAt string,
) (*domain.UrgeEvent, error) {
	eventID, err := uuid.Parse(id)
	if err != nil {
		return nil, store.NewStoreError("urge_event", "scan", "malformed id", err)
	}

	occurred, err := time.Parse(timeLayout, occurredAt)
	if err != nil {
		return nil, store.NewStoreError("urge_event", "scan", "malformed occurred_at", err)
	}

	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, store.NewStoreError("urge_event", "scan", "malformed created_at", err)
	}

	event := &domain.UrgeEvent{
		ID:         eventID,
		OccurredAt: occurred,
		Kind:       domain.UrgeKind(kind),
		ActionID:   actionID,
		Outcome:    domain.Outcome(outcome),
		CreatedAt:  created,
	}
	if triggerTag.Valid {
		event.TriggerTag = &triggerTag.String
	}
	if spendCategory.Valid {
		event.SpendCategory = &spendCategory.String
	}
	if spendItemType.Valid {
		event.SpendItemType = &spendItemType.String
	}

	return event, nil
}
