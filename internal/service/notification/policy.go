// Package notification decides which daily reminders should exist and what
// they say. Predicates and content builders are pure; the Rebuilder applies
// them through a Scheduler collaborator that owns actual OS delivery.
package notification

import "math/rand"

// ReminderStyle is the user's reminder preference.
type ReminderStyle string

const (
	StyleOff    ReminderStyle = "off"
	StyleGentle ReminderStyle = "gentle"
	StyleDirect ReminderStyle = "direct"
)

// Reminder identifiers, used as stable scheduling keys.
const (
	IDEveningNudge = "evening_nudge"
	IDStreakNudge  = "streak_nudge"
	IDCourseUnlock = "course_unlock"
)

// Content is the rendered title and body of one reminder.
type Content struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ShouldSendEveningNudge reports whether the end-of-day check-in reminder
// applies: reminders are on and the app has not been opened today.
func ShouldSendEveningNudge(style ReminderStyle, hasOpenedToday bool) bool {
	if style == StyleOff {
		return false
	}
	return !hasOpenedToday
}

// ShouldSendStreakNudge reports whether the streak-protection reminder
// applies: a streak of at least 3 days is at stake and today has no
// success yet.
func ShouldSendStreakNudge(streakDays int, todaySuccess bool) bool {
	return streakDays >= 3 && !todaySuccess
}

// ShouldSendCourseUnlock reports whether the new-course-day reminder
// applies: only during days 2 through 7 of the course, and only while
// today's content is untouched.
func ShouldSendCourseUnlock(dayIndex int, todayContentCompleted bool) bool {
	return dayIndex >= 2 && dayIndex <= 7 && !todayContentCompleted
}

// Each builder re-checks its own gate so it stays correct when called in
// isolation; a builder returning nil means "do not schedule".

// EveningNudgeContent renders the evening check-in reminder, or nil when
// the gate does not hold.
func EveningNudgeContent(style ReminderStyle, hasOpenedToday bool) *Content {
	if !ShouldSendEveningNudge(style, hasOpenedToday) {
		return nil
	}
	if style == StyleDirect {
		return &Content{
			Title: "You skipped today",
			Body:  "One minute now keeps the habit work honest. Check in.",
		}
	}
	return &Content{
		Title: "Evening check-in",
		Body:  "How did today go? A quick check-in keeps you on track.",
	}
}

// StreakNudgeContent renders the streak-protection reminder, or nil when
// the gate does not hold.
func StreakNudgeContent(streakDays int, todaySuccess bool) *Content {
	if !ShouldSendStreakNudge(streakDays, todaySuccess) {
		return nil
	}
	return &Content{
		Title: "Your streak is on the line",
		Body:  "One reset today keeps your streak alive.",
	}
}

// CourseUnlockContent renders the new-course-day reminder, or nil when the
// gate does not hold.
func CourseUnlockContent(dayIndex int, todayContentCompleted bool) *Content {
	if !ShouldSendCourseUnlock(dayIndex, todayContentCompleted) {
		return nil
	}
	return &Content{
		Title: "New day unlocked",
		Body:  "Today's lesson is ready. It takes about two minutes.",
	}
}

// EveningTriggerHour picks 21 or 22 local so the evening nudge does not
// fire at a mechanically identical minute every day. The rand source is
// injected for determinism in tests.
func EveningTriggerHour(rng *rand.Rand) int {
	return 21 + rng.Intn(2)
}
