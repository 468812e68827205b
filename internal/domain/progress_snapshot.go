package domain

import (
	"errors"
	"time"
)

// DayFormat is the canonical layout for local calendar dates ("YYYY-MM-DD").
const DayFormat = "2006-01-02"

// ProgressSnapshot-specific validation errors
var (
	// ErrSnapshotCountNegative is returned when a cumulative counter is negative.
	ErrSnapshotCountNegative = errors.New("progress counters cannot be negative")

	// ErrSnapshotRankInvalid is returned when a rank is below the minimum of 1.
	ErrSnapshotRankInvalid = errors.New("progress rank must be at least 1")
)

// ProgressSnapshot is the per-day aggregate row, keyed by local calendar
// date. Cumulative fields carry forward from the latest row; the row for a
// date is replaced whole on every upsert.
//
// DaySuccess is a stored flag merged with the live recount on every write
// (stored OR computed), so a date that was once successful can never be
// recomputed back to failure.
type ProgressSnapshot struct {
	Date                   string    `json:"date"`
	MeditationCountTotal   int       `json:"meditation_count_total"`
	Rank                   int       `json:"rank"`
	StreakDays             int       `json:"streak_days"`
	LastSuccessDate        string    `json:"last_success_date,omitempty"`
	SpendAvoidedCountTotal int       `json:"spend_avoided_count_total"`
	DaySuccess             bool      `json:"day_success"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// NewProgressSnapshot creates an empty snapshot for the given local date
// with rank 1 and zeroed counters. Returns an error if the date is invalid.
func NewProgressSnapshot(date string) (*ProgressSnapshot, error) {
	snapshot := &ProgressSnapshot{
		Date:      date,
		Rank:      1,
		UpdatedAt: time.Now().UTC(),
	}

	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// Validate checks if the ProgressSnapshot has valid data.
// Returns an error if any field fails validation.
func (s *ProgressSnapshot) Validate() error {
	if !IsValidDay(s.Date) {
		return ErrInvalidDate
	}

	if s.LastSuccessDate != "" && !IsValidDay(s.LastSuccessDate) {
		return ErrInvalidDate
	}

	if s.MeditationCountTotal < 0 || s.SpendAvoidedCountTotal < 0 || s.StreakDays < 0 {
		return ErrSnapshotCountNegative
	}

	if s.Rank < 1 {
		return ErrSnapshotRankInvalid
	}

	return nil
}

// IsValidDay reports whether the string is a real calendar date in
// canonical YYYY-MM-DD form.
func IsValidDay(day string) bool {
	t, err := time.Parse(DayFormat, day)
	if err != nil {
		return false
	}
	// Reject non-canonical spellings that time.Parse normalizes away.
	return t.Format(DayFormat) == day
}
