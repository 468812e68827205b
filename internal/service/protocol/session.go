// Package protocol implements the guided urge-reset session: a small state
// machine that walks the user from picking the urge through breathing, a
// coping action and the outcome log, then commits the result to the event
// and progress stores.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ts3486/unswipe-sub000/internal/clock"
	"github.com/ts3486/unswipe-sub000/internal/domain"
	"github.com/ts3486/unswipe-sub000/internal/domain/progress"
	"github.com/ts3486/unswipe-sub000/internal/platform/logger"
	"github.com/ts3486/unswipe-sub000/internal/store"
)

// State is one step of the reset protocol.
type State string

// Protocol states, in flow order. The spend_delay state only occurs for
// spend urges; every other kind goes straight to log_outcome.
const (
	StateSelectUrge   State = "select_urge"
	StateBreathing    State = "breathing"
	StateSelectAction State = "select_action"
	StateSpendDelay   State = "spend_delay"
	StateLogOutcome   State = "log_outcome"
	StateComplete     State = "complete"
)

// SpendResolution is one of the two direct exits from spend_delay.
type SpendResolution string

// Spend-delay direct exits. Both commit immediately and skip
// trigger/category collection; the persisted event carries nil for those
// fields. That asymmetry versus the full log_outcome step, which does
// persist them, is intentional.
const (
	SpendResolutionMeditated   SpendResolution = "meditated"
	SpendResolutionSpentAnyway SpendResolution = "spent_anyway"
)

// Common error types for the protocol session.
var (
	// ErrInvalidTransition indicates an operation that is not legal in the
	// session's current state.
	ErrInvalidTransition = errors.New("operation not valid in current protocol state")

	// ErrUnknownAction indicates a coping action id missing from the catalog.
	ErrUnknownAction = errors.New("unknown coping action")

	// ErrUnknownTrigger indicates a trigger tag id missing from the catalog.
	ErrUnknownTrigger = errors.New("unknown trigger tag")
)

// Params holds the tunable protocol constants.
type Params struct {
	// BreathingSeconds is the length of the guided breathing countdown.
	BreathingSeconds int

	// TickInterval is the wall-clock length of one countdown tick.
	// Production uses one second; tests shrink it for fast expiry.
	TickInterval time.Duration
}

// NewDefaultParams creates a new Params instance with default values.
func NewDefaultParams() Params {
	return Params{
		BreathingSeconds: 60,
		TickInterval:     time.Second,
	}
}

// CompletionResult is what a committed session hands back to the caller:
// the logged outcome plus the rank movement it caused.
type CompletionResult struct {
	Outcome    domain.Outcome `json:"outcome"`
	RankBefore int            `json:"rank_before"`
	RankAfter  int            `json:"rank_after"`
	LeveledUp  bool           `json:"leveled_up"`
	StreakDays int            `json:"streak_days"`
}

// Session drives one reset protocol run. All methods are safe for
// concurrent use; the countdown goroutine and re-entrant commit calls are
// the only concurrency that occurs in practice.
//
// A session is single-use: after completion, call Reset to start over.
type Session struct {
	mu sync.Mutex

	state         State
	kind          domain.UrgeKind
	actionID      string
	spendCategory string
	spendItemType string
	timeLeft      int
	elapsed       int
	committing    bool
	result        *CompletionResult

	// epoch invalidates stale countdown ticks and stale commit completions
	// after a Reset. It only ever increments, under mu.
	epoch int

	// stopTick stops the running countdown goroutine; nil when none runs.
	stopTick chan struct{}

	events    store.UrgeEventStore
	snapshots store.ProgressStore
	catalog   *Catalog
	rules     *progress.Params
	clk       clock.Clock
	params    Params
	logger    *slog.Logger
}

// NewSession creates a reset protocol session over the given collaborators.
// If logger is nil, a default logger will be used.
func NewSession(
	events store.UrgeEventStore,
	snapshots store.ProgressStore,
	catalog *Catalog,
	clk clock.Clock,
	params Params,
	rules *progress.Params,
	logger *slog.Logger,
) *Session {
	if events == nil {
		panic("events cannot be nil")
	}
	if snapshots == nil {
		panic("snapshots cannot be nil")
	}
	if catalog == nil {
		panic("catalog cannot be nil")
	}
	if clk == nil {
		panic("clk cannot be nil")
	}
	if rules == nil {
		rules = progress.NewDefaultParams()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if params.BreathingSeconds <= 0 {
		params.BreathingSeconds = NewDefaultParams().BreathingSeconds
	}
	if params.TickInterval <= 0 {
		params.TickInterval = NewDefaultParams().TickInterval
	}

	return &Session{
		state:     StateSelectUrge,
		events:    events,
		snapshots: snapshots,
		catalog:   catalog,
		rules:     rules,
		clk:       clk,
		params:    params,
		logger:    logger.With(slog.String("component", "reset_protocol")),
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Kind returns the urge kind selected for this session.
func (s *Session) Kind() domain.UrgeKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

// TimeLeft returns the remaining breathing countdown in seconds.
func (s *Session) TimeLeft() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeLeft
}

// BreathingElapsed returns how many seconds of the breathing countdown ran
// before it ended, whether by expiry or skip.
func (s *Session) BreathingElapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Result returns the completion result, or nil before the commit finishes.
func (s *Session) Result() *CompletionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// SelectUrgeKind records which urge the user is resetting. The session
// stays in select_urge so the choice can be changed until breathing starts.
func (s *Session) SelectUrgeKind(kind domain.UrgeKind) error {
	if !kind.IsValid() {
		return domain.ErrInvalidUrgeKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSelectUrge {
		return ErrInvalidTransition
	}

	s.kind = kind
	return nil
}

// SetSpendDetails records what the user was about to buy. The direct
// spend_delay exits commit without them; only the full outcome log
// (LogOutcome) persists them on the event.
func (s *Session) SetSpendDetails(category, itemType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateComplete {
		return ErrInvalidTransition
	}

	s.spendCategory = category
	s.spendItemType = itemType
	return nil
}

// SpendDetails returns the in-flight spend category and item type.
func (s *Session) SpendDetails() (category, itemType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spendCategory, s.spendItemType
}

// StartBreathing enters the breathing state and starts the countdown.
// When the countdown reaches zero the session auto-advances to
// select_action.
func (s *Session) StartBreathing() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSelectUrge || s.kind == "" {
		return ErrInvalidTransition
	}

	s.state = StateBreathing
	s.timeLeft = s.params.BreathingSeconds
	s.elapsed = 0

	stop := make(chan struct{})
	s.stopTick = stop
	go s.runCountdown(s.epoch, stop)

	s.logger.Debug("breathing started",
		slog.String("kind", string(s.kind)),
		slog.Int("seconds", s.params.BreathingSeconds))

	return nil
}

// runCountdown decrements the countdown once per tick until it expires, the
// stop channel closes, or the session moves on. The epoch check makes a
// stale tick a no-op: it can never mutate a session that already left
// breathing.
func (s *Session) runCountdown(epoch int, stop chan struct{}) {
	ticker := time.NewTicker(s.params.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.state != StateBreathing || s.epoch != epoch {
				s.mu.Unlock()
				return
			}

			s.timeLeft--
			s.elapsed++
			if s.timeLeft <= 0 {
				s.stopCountdownLocked()
				s.state = StateSelectAction
				s.logger.Debug("breathing complete, advancing to action selection")
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
		}
	}
}

// SkipBreathing ends the countdown early and advances to select_action.
// The elapsed portion of the countdown is kept for telemetry.
func (s *Session) SkipBreathing() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBreathing {
		return ErrInvalidTransition
	}

	s.elapsed = s.params.BreathingSeconds - s.timeLeft
	s.stopCountdownLocked()
	s.state = StateSelectAction

	s.logger.Debug("breathing skipped",
		slog.Int("elapsed_seconds", s.elapsed))

	return nil
}

// stopCountdownLocked cancels the running countdown goroutine and bumps the
// epoch so any tick already past the channel check is discarded.
// Callers must hold s.mu.
func (s *Session) stopCountdownLocked() {
	s.epoch++
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
}

// SelectAction records the chosen coping action and branches: spend urges
// detour through spend_delay, everything else goes straight to log_outcome.
func (s *Session) SelectAction(actionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSelectAction {
		return ErrInvalidTransition
	}
	if !s.catalog.HasAction(actionID) {
		return fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
	}

	s.actionID = actionID
	if s.kind == domain.UrgeKindSpend {
		s.state = StateSpendDelay
	} else {
		s.state = StateLogOutcome
	}

	return nil
}

// ResolveSpendDelay takes one of the two direct exits from spend_delay and
// commits immediately. Neither exit collects a trigger tag or spend
// category; both are persisted as nil.
func (s *Session) ResolveSpendDelay(
	ctx context.Context,
	resolution SpendResolution,
) (*CompletionResult, error) {
	var outcome domain.Outcome
	switch resolution {
	case SpendResolutionMeditated:
		outcome = domain.OutcomeSuccess
	case SpendResolutionSpentAnyway:
		outcome = domain.OutcomeFail
	default:
		return nil, domain.ErrInvalidOutcome
	}

	return s.commit(ctx, outcome, nil, false, StateSpendDelay)
}

// LogOutcome is the full commit step: it persists the urge event,
// re-derives today's aggregates and upserts the progress snapshot. Non-spend
// sessions reach it from log_outcome; a spend session may also take it from
// spend_delay instead of a direct exit, in which case the collected spend
// category and item type are persisted alongside the trigger tag.
//
// LogOutcome is single-flight: a call that arrives while a commit is
// already in flight is dropped, returning (nil, nil), so a double tap can
// never double-commit.
func (s *Session) LogOutcome(
	ctx context.Context,
	outcome domain.Outcome,
	triggerTag *string,
) (*CompletionResult, error) {
	if !outcome.IsValid() {
		return nil, domain.ErrInvalidOutcome
	}
	if triggerTag != nil && !s.catalog.HasTrigger(*triggerTag) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTrigger, *triggerTag)
	}

	return s.commit(ctx, outcome, triggerTag, true, StateLogOutcome, StateSpendDelay)
}

// commit performs the outcome commit from one of the given states. It holds
// the single-flight guard for the duration of the storage work but releases
// the session mutex, so a concurrent second call observes the guard and is
// dropped rather than queued. withDetails controls whether the session's
// collected spend details go onto the event; the direct spend_delay exits
// commit without them.
func (s *Session) commit(
	ctx context.Context,
	outcome domain.Outcome,
	triggerTag *string,
	withDetails bool,
	from ...State,
) (*CompletionResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	legal := false
	for _, st := range from {
		if s.state == st {
			legal = true
			break
		}
	}
	if !legal {
		s.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	if s.committing {
		// Re-entrant commit attempt: drop it silently.
		log.Debug("dropped re-entrant outcome commit")
		s.mu.Unlock()
		return nil, nil
	}
	s.committing = true
	epoch := s.epoch
	kind := s.kind
	actionID := s.actionID
	var spendCategory, spendItemType *string
	if withDetails {
		if s.spendCategory != "" {
			category := s.spendCategory
			spendCategory = &category
		}
		if s.spendItemType != "" {
			itemType := s.spendItemType
			spendItemType = &itemType
		}
	}
	s.mu.Unlock()

	result, err := s.persistOutcome(ctx, kind, actionID, outcome, triggerTag, spendCategory, spendItemType)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.committing = false

	if err != nil {
		// Storage failure: the session does not advance; the commit step
		// stays retryable.
		log.Error("outcome commit failed",
			slog.String("error", err.Error()),
			slog.String("kind", string(kind)),
			slog.String("outcome", string(outcome)))
		return nil, err
	}

	if s.epoch != epoch {
		// The session was reset while the writes were in flight. The writes
		// are durable; only the in-memory transition is abandoned.
		log.Warn("session reset during commit, discarding completion state")
		return result, nil
	}

	s.state = StateComplete
	s.result = result

	log.Info("reset session committed",
		slog.String("kind", string(kind)),
		slog.String("outcome", string(outcome)),
		slog.Int("rank_before", result.RankBefore),
		slog.Int("rank_after", result.RankAfter),
		slog.Int("streak_days", result.StreakDays))

	return result, nil
}

// persistOutcome writes the urge event, re-derives today's success from a
// live recount (read-after-write against the event store), and replaces
// today's progress snapshot.
func (s *Session) persistOutcome(
	ctx context.Context,
	kind domain.UrgeKind,
	actionID string,
	outcome domain.Outcome,
	triggerTag *string,
	spendCategory *string,
	spendItemType *string,
) (*CompletionResult, error) {
	event, err := domain.NewUrgeEvent(kind, actionID, outcome, s.clk.Now())
	if err != nil {
		return nil, err
	}
	event.TriggerTag = triggerTag
	event.SpendCategory = spendCategory
	event.SpendItemType = spendItemType

	if _, err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to persist urge event: %w", err)
	}

	today := s.clk.Today()

	successCount, err := s.events.CountByOutcomeForDay(ctx, today, domain.OutcomeSuccess)
	if err != nil {
		return nil, fmt.Errorf("failed to recount today's successes: %w", err)
	}

	// Cumulative totals carry forward from the latest snapshot, which may
	// be today's own row from an earlier commit.
	baseline := &domain.ProgressSnapshot{Date: today, Rank: 1}
	if latest, err := s.snapshots.GetLatest(ctx); err == nil {
		baseline = latest
	} else if !errors.Is(err, store.ErrSnapshotNotFound) {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	// A day that already persisted a success can never flip back to
	// failure, so the stored flag is OR-merged with the live recount.
	storedSuccess := false
	if baseline.Date == today {
		storedSuccess = baseline.DaySuccess
	} else if existing, err := s.snapshots.GetByDate(ctx, today); err == nil {
		storedSuccess = existing.DaySuccess
	} else if !errors.Is(err, store.ErrSnapshotNotFound) {
		return nil, fmt.Errorf("failed to load today's snapshot: %w", err)
	}
	daySuccess := storedSuccess || progress.DaySuccess(successCount, false)

	meditations := baseline.MeditationCountTotal
	if progress.CountsMeditation(outcome) {
		meditations++
	}
	spendAvoided := baseline.SpendAvoidedCountTotal
	if progress.CountsSpendAvoided(kind, outcome) {
		spendAvoided++
	}

	rankBefore := progress.MeditationRank(baseline.MeditationCountTotal, s.rules)
	rankAfter := progress.MeditationRank(meditations, s.rules)

	successDates, err := s.snapshots.ListSuccessDatesAscending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list success dates: %w", err)
	}
	if daySuccess {
		// Today may be newly successful and not yet persisted; add it
		// before the streak walk. Streak treats the dates as a set.
		successDates = append(successDates, today)
	}
	streak := progress.Streak(successDates, today)

	lastSuccess := baseline.LastSuccessDate
	if daySuccess {
		lastSuccess = today
	}

	snapshot := &domain.ProgressSnapshot{
		Date:                   today,
		MeditationCountTotal:   meditations,
		Rank:                   rankAfter,
		StreakDays:             streak,
		LastSuccessDate:        lastSuccess,
		SpendAvoidedCountTotal: spendAvoided,
		DaySuccess:             daySuccess,
		UpdatedAt:              s.clk.Now().UTC(),
	}
	if err := s.snapshots.Upsert(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to upsert progress snapshot: %w", err)
	}

	return &CompletionResult{
		Outcome:    outcome,
		RankBefore: rankBefore,
		RankAfter:  rankAfter,
		LeveledUp:  rankAfter > rankBefore,
		StreakDays: streak,
	}, nil
}

// Reset returns the session to select_urge, clears every in-flight field
// and cancels any pending countdown.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopCountdownLocked()
	s.state = StateSelectUrge
	s.kind = ""
	s.actionID = ""
	s.spendCategory = ""
	s.spendItemType = ""
	s.timeLeft = 0
	s.elapsed = 0
	s.result = nil
}
