package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/ts3486/unswipe-sub000/internal/platform/logger"
)

// ErrPermissionDenied indicates the OS notification permission is missing
// or revoked. The Rebuilder treats it as "reminders disabled", not as a
// failure.
var ErrPermissionDenied = errors.New("notification permission denied")

// ScheduledReminder is one reminder currently registered with the OS.
type ScheduledReminder struct {
	ID      string  `json:"id"`
	Hour    int     `json:"hour"`
	Minute  int     `json:"minute"`
	Content Content `json:"content"`
}

// Scheduler is the OS-delivery collaborator. This package decides whether
// and what to remind; the scheduler performs registration and delivery.
type Scheduler interface {
	// Schedule registers a daily recurring reminder under a stable id,
	// replacing any prior registration with the same id.
	// Returns ErrPermissionDenied (possibly wrapped) when the OS
	// permission is missing.
	Schedule(ctx context.Context, id string, hour, minute int, content Content) error

	// Cancel removes the reminder with the given id if present.
	Cancel(ctx context.Context, id string) error

	// CancelAll removes every registered reminder.
	CancelAll(ctx context.Context) error

	// ListScheduled returns the currently registered reminders.
	ListScheduled(ctx context.Context) ([]ScheduledReminder, error)
}

// Inputs is everything the policy needs to decide the current reminder set.
type Inputs struct {
	Style                 ReminderStyle
	HasOpenedToday        bool
	StreakDays            int
	TodaySuccess          bool
	CourseDayIndex        int
	TodayContentCompleted bool
}

// Rebuilder applies the policy to a Scheduler as a full idempotent
// rebuild: cancel everything, then schedule exactly the reminders whose
// predicates currently hold. Never an incremental diff, so a missed or
// repeated run cannot leave stale reminders behind.
type Rebuilder struct {
	scheduler Scheduler
	rng       *rand.Rand
	logger    *slog.Logger
}

// NewRebuilder creates a Rebuilder. If rng is nil a default source is
// used; if logger is nil, a default logger will be used.
func NewRebuilder(scheduler Scheduler, rng *rand.Rand, logger *slog.Logger) *Rebuilder {
	if scheduler == nil {
		panic("scheduler cannot be nil")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Rebuilder{
		scheduler: scheduler,
		rng:       rng,
		logger:    logger.With(slog.String("component", "notification_rebuilder")),
	}
}

// Reschedule rebuilds the reminder set from the given inputs. It reports
// how many reminders were scheduled; a permission denial results in zero
// reminders and a nil error, since a user who declined notifications has
// simply disabled the feature.
func (r *Rebuilder) Reschedule(ctx context.Context, inputs Inputs) (int, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if err := r.scheduler.CancelAll(ctx); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			log.Info("notification permission denied, reminders disabled")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to cancel existing reminders: %w", err)
	}

	scheduled := 0
	for _, plan := range r.plan(inputs) {
		err := r.scheduler.Schedule(ctx, plan.ID, plan.Hour, plan.Minute, plan.Content)
		if err != nil {
			if errors.Is(err, ErrPermissionDenied) {
				log.Info("notification permission denied, reminders disabled")
				return 0, nil
			}
			return scheduled, fmt.Errorf("failed to schedule reminder %s: %w", plan.ID, err)
		}
		scheduled++
	}

	log.Debug("rebuilt reminder schedule", slog.Int("scheduled", scheduled))
	return scheduled, nil
}

// plan evaluates every predicate and returns the reminders to register.
func (r *Rebuilder) plan(inputs Inputs) []ScheduledReminder {
	var out []ScheduledReminder

	if c := EveningNudgeContent(inputs.Style, inputs.HasOpenedToday); c != nil {
		out = append(out, ScheduledReminder{
			ID:      IDEveningNudge,
			Hour:    EveningTriggerHour(r.rng),
			Content: *c,
		})
	}
	if c := StreakNudgeContent(inputs.StreakDays, inputs.TodaySuccess); c != nil {
		out = append(out, ScheduledReminder{
			ID:      IDStreakNudge,
			Hour:    20,
			Content: *c,
		})
	}
	if c := CourseUnlockContent(inputs.CourseDayIndex, inputs.TodayContentCompleted); c != nil {
		out = append(out, ScheduledReminder{
			ID:      IDCourseUnlock,
			Hour:    9,
			Content: *c,
		})
	}

	return out
}
