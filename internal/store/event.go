// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing business rules to remain
// independent of specific database technologies or persistence details.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ts3486/unswipe-sub000/internal/domain"
)

// TimeBucket partitions the local day for pattern queries.
type TimeBucket string

// Known time-of-day buckets. Evening wraps past midnight: 18:00 through
// 04:59 the next morning all count as evening.
const (
	TimeBucketMorning   TimeBucket = "morning"   // 05:00–11:59
	TimeBucketAfternoon TimeBucket = "afternoon" // 12:00–17:59
	TimeBucketEvening   TimeBucket = "evening"   // 18:00–04:59
)

// UrgeEventStore defines the interface for urge event persistence.
// Urge events are append-only: there are no update or delete operations.
//
// The implementation must provide read-after-write consistency: an event
// returned successfully from Create is visible to every subsequent query
// on the same store, which the outcome-commit step depends on when it
// re-derives the day's success count.
type UrgeEventStore interface {
	// Create saves a new urge event and returns its id.
	// It handles domain validation internally; validation failures are
	// wrapped with ErrInvalidEntity.
	Create(ctx context.Context, event *domain.UrgeEvent) (string, error)

	// ListByDay retrieves all events whose occurrence time falls on the
	// given local calendar date, ordered by occurrence time ascending.
	ListByDay(ctx context.Context, day string) ([]*domain.UrgeEvent, error)

	// ListByDayRange retrieves all events between the two local calendar
	// dates inclusive, ordered by occurrence time ascending.
	ListByDayRange(ctx context.Context, from, to string) ([]*domain.UrgeEvent, error)

	// CountByOutcomeForDay counts the events with the given outcome on the
	// given local calendar date.
	CountByOutcomeForDay(ctx context.Context, day string, outcome domain.Outcome) (int, error)

	// CountByKindAndOutcome counts all events matching both kind and outcome.
	CountByKindAndOutcome(ctx context.Context, kind domain.UrgeKind, outcome domain.Outcome) (int, error)

	// CountsByWeekday returns event counts grouped by local day of week.
	CountsByWeekday(ctx context.Context) (map[time.Weekday]int, error)

	// CountsByTimeBucket returns event counts grouped by local time-of-day
	// bucket (morning, afternoon, evening).
	CountsByTimeBucket(ctx context.Context) (map[TimeBucket]int, error)

	// WithTx returns a new UrgeEventStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) UrgeEventStore
}
