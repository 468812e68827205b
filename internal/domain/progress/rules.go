// Package progress holds the pure progression rules: rank, streak and
// day-success derivation from event counts and local calendar dates.
// Everything here is a pure function of its inputs so the rules can be
// tested without stores or clocks.
package progress

import (
	"time"

	"github.com/ts3486/unswipe-sub000/internal/domain"
)

// MeditationRank derives the user's rank from the cumulative meditation
// count. The rank advances one level per params.RankStep completed
// meditations, starting at 1 and capped at params.RankCap. Negative counts
// clamp to rank 1.
func MeditationRank(count int, params *Params) int {
	if count < 0 {
		return 1
	}

	rank := count/params.RankStep + 1
	if rank > params.RankCap {
		return params.RankCap
	}
	return rank
}

// DaySuccess reports whether a local day counts as successful: at least one
// successful panic/urge session, or the daily task completed.
func DaySuccess(panicSuccessCount int, dailyTaskCompleted bool) bool {
	return panicSuccessCount >= 1 || dailyTaskCompleted
}

// Streak counts the consecutive successful local calendar days ending at
// today. The input dates are treated as a set: duplicates and ordering are
// irrelevant. The walk moves backward one civil day at a time and stops at
// the first date missing from the set.
//
// Day subtraction uses Y-M-D component arithmetic (AddDate on a date-only
// UTC value), which stays correct across month and year boundaries and is
// immune to DST because no wall-clock instant is involved.
func Streak(successDates []string, today string) int {
	if len(successDates) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(successDates))
	for _, d := range successDates {
		set[d] = struct{}{}
	}

	day, err := ParseDay(today)
	if err != nil {
		return 0
	}

	streak := 0
	for {
		if _, ok := set[FormatDay(day)]; !ok {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}

	return streak
}

// CountsMeditation reports whether an outcome increments the cumulative
// meditation count. Only completed successes count.
func CountsMeditation(outcome domain.Outcome) bool {
	return outcome == domain.OutcomeSuccess
}

// CountsSpendAvoided reports whether an event increments the cumulative
// spend-avoided count: a spend urge resolved successfully.
func CountsSpendAvoided(kind domain.UrgeKind, outcome domain.Outcome) bool {
	return kind == domain.UrgeKindSpend && outcome == domain.OutcomeSuccess
}

// ParseDay parses a canonical YYYY-MM-DD local calendar date into a
// date-only UTC time value suitable for component arithmetic.
func ParseDay(day string) (time.Time, error) {
	t, err := time.Parse(domain.DayFormat, day)
	if err != nil {
		return time.Time{}, domain.ErrInvalidDate
	}
	return t, nil
}

// FormatDay formats a time value as a canonical YYYY-MM-DD calendar date.
func FormatDay(t time.Time) string {
	return t.Format(domain.DayFormat)
}
