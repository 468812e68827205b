// Package entitlement derives and reconciles the local subscription/trial
// state: syncing against purchase-ledger snapshots when one is reachable,
// and enforcing expiry offline when one is not.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ts3486/unswipe-sub000/internal/clock"
	"github.com/ts3486/unswipe-sub000/internal/domain"
	"github.com/ts3486/unswipe-sub000/internal/platform/logger"
	"github.com/ts3486/unswipe-sub000/internal/store"
)

// Params holds the tunable entitlement constants. Trial length and grace
// period are product knobs, not invariants, so they arrive via config.
type Params struct {
	// EntitlementKey is the key looked up in a ledger snapshot's
	// active-entitlements map.
	EntitlementKey string

	// LifetimeProductID marks the one-time lifetime unlock product.
	LifetimeProductID string

	// TrialDays is the length of the free trial.
	TrialDays int

	// GraceDays is the offline tolerance after a recorded expiry before
	// local enforcement revokes premium access.
	GraceDays int
}

// NewDefaultParams creates a new Params instance with default values.
func NewDefaultParams() Params {
	return Params{
		EntitlementKey:    "premium",
		LifetimeProductID: "unswipe_lifetime",
		TrialDays:         7,
		GraceDays:         3,
	}
}

// TrialInfo is the derived view of the trial window at one instant.
type TrialInfo struct {
	HasStartedTrial    bool       `json:"has_started_trial"`
	IsTrialActive      bool       `json:"is_trial_active"`
	TrialDaysRemaining int        `json:"trial_days_remaining"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
}

// Service reconciles the subscription singleton with ledger snapshots and
// the clock. All mutations go through the subscription store; the ledger is
// read-only from the engine's point of view.
type Service struct {
	subs   store.SubscriptionStore
	ledger Ledger
	clk    clock.Clock
	params Params
	logger *slog.Logger
}

// NewService creates an entitlement service. The ledger may be nil for a
// fully offline configuration; Foreground then only enforces expiry.
// If logger is nil, a default logger will be used.
func NewService(
	subs store.SubscriptionStore,
	ledger Ledger,
	clk clock.Clock,
	params Params,
	logger *slog.Logger,
) *Service {
	if subs == nil {
		panic("subs cannot be nil")
	}
	if clk == nil {
		panic("clk cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if params.TrialDays <= 0 {
		params.TrialDays = NewDefaultParams().TrialDays
	}
	if params.GraceDays < 0 {
		params.GraceDays = NewDefaultParams().GraceDays
	}
	if params.EntitlementKey == "" {
		params.EntitlementKey = NewDefaultParams().EntitlementKey
	}

	return &Service{
		subs:   subs,
		ledger: ledger,
		clk:    clk,
		params: params,
		logger: logger.With(slog.String("component", "entitlement_service")),
	}
}

// IsPremiumFromLedger reports whether the snapshot grants premium: the
// designated entitlement key is present in the active-entitlements map.
func (s *Service) IsPremiumFromLedger(snapshot *LedgerSnapshot) bool {
	if snapshot == nil {
		return false
	}
	_, ok := snapshot.ActiveEntitlements[s.params.EntitlementKey]
	return ok
}

// SyncFromLedger reconciles the local record with a ledger snapshot:
//
//   - entitlement present with the lifetime product id: lifetime
//   - entitlement present otherwise: active/monthly
//   - absent, no prior paid record: none
//   - absent, prior recorded expiry already past: expired
//
// Trial fields are always carried forward unchanged; the ledger has no
// concept of a trial, and an in-progress local trial survives a sync.
func (s *Service) SyncFromLedger(
	ctx context.Context,
	snapshot *LedgerSnapshot,
) (*domain.SubscriptionState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.clk.Now()

	current, err := s.loadOrDefault(ctx)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	next.UpdatedAt = now.UTC()

	var active map[string]LedgerEntitlement
	if snapshot != nil {
		active = snapshot.ActiveEntitlements
	}

	if ent, ok := active[s.params.EntitlementKey]; ok {
		next.ProductID = ent.ProductID
		next.IsPremium = true
		if next.StartedAt == nil {
			started := now.UTC()
			next.StartedAt = &started
		}

		if ent.ProductID == s.params.LifetimeProductID {
			next.Status = domain.SubscriptionStatusLifetime
			next.Period = domain.PeriodLifetime
			next.ExpiresAt = nil
		} else {
			next.Status = domain.SubscriptionStatusActive
			next.Period = domain.PeriodMonthly
			next.ExpiresAt = ent.ExpiresAt
		}
	} else {
		switch {
		case current.Status == domain.SubscriptionStatusTrial:
			// Local trial in progress; the ledger cannot end it.
		case current.ExpiresAt != nil && current.ExpiresAt.Before(now):
			next.Status = domain.SubscriptionStatusExpired
			next.IsPremium = false
		case current.ExpiresAt != nil:
			// Recorded expiry still in the future: a snapshot can lag a
			// renewal, so the local record stands until expiry passes.
		default:
			next.Status = domain.SubscriptionStatusNone
			next.IsPremium = false
		}
	}

	if err := s.subs.UpsertSingleton(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to persist synced subscription state: %w", err)
	}

	log.Debug("synced subscription state from ledger",
		slog.String("status", string(next.Status)),
		slog.Bool("is_premium", next.IsPremium))

	return next, nil
}

// StartTrial begins the free trial: premium immediately, ending TrialDays
// from now.
//
// StartTrial is not idempotent. Calling it again rewrites the trial
// window; callers must gate on TrialInfo.HasStartedTrial.
func (s *Service) StartTrial(ctx context.Context) (*domain.SubscriptionState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.clk.Now().UTC()

	current, err := s.loadOrDefault(ctx)
	if err != nil {
		return nil, err
	}

	if current.TrialStartedAt != nil {
		log.Warn("starting trial over an existing trial window",
			slog.Time("previous_start", *current.TrialStartedAt))
	}

	next := current.Clone()
	ends := now.AddDate(0, 0, s.params.TrialDays)
	next.Status = domain.SubscriptionStatusTrial
	next.IsPremium = true
	next.TrialStartedAt = &now
	next.TrialEndsAt = &ends
	next.UpdatedAt = now

	if err := s.subs.UpsertSingleton(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to persist trial start: %w", err)
	}

	log.Info("trial started",
		slog.Time("ends_at", ends),
		slog.Int("trial_days", s.params.TrialDays))

	return next, nil
}

// GetTrialInfo derives the trial view from the stored timestamps and the
// current instant. A trial ending exactly now counts as expired; days
// remaining never go negative.
func (s *Service) GetTrialInfo(ctx context.Context) (*TrialInfo, error) {
	state, err := s.loadOrDefault(ctx)
	if err != nil {
		return nil, err
	}

	info := &TrialInfo{
		HasStartedTrial: state.TrialStartedAt != nil,
		TrialEndsAt:     state.TrialEndsAt,
	}

	if state.TrialEndsAt != nil {
		now := s.clk.Now()
		info.IsTrialActive = state.TrialEndsAt.After(now)
		if remaining := state.TrialEndsAt.Sub(now); remaining > 0 {
			info.TrialDaysRemaining = int(math.Ceil(remaining.Hours() / 24))
		}
	}

	return info, nil
}

// EnforceExpiry is the offline fallback, run periodically (on app
// foreground). It is a no-op for lifetime status, for records with no
// recorded expiry, for already-expired records, and while the expiry is
// within the grace window. Beyond grace it flips status to expired and
// revokes premium, leaving every other field — trial metadata included —
// exactly as it was.
func (s *Service) EnforceExpiry(ctx context.Context) (*domain.SubscriptionState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	state, err := s.subs.GetSingleton(ctx)
	if err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load subscription state: %w", err)
	}

	if state.Status == domain.SubscriptionStatusLifetime ||
		state.Status == domain.SubscriptionStatusExpired ||
		state.ExpiresAt == nil {
		return state, nil
	}

	now := s.clk.Now()
	grace := time.Duration(s.params.GraceDays) * 24 * time.Hour
	overdue := now.Sub(*state.ExpiresAt)
	if overdue <= grace {
		// Within grace, expiry is tolerated silently.
		return state, nil
	}

	next := state.Clone()
	next.Status = domain.SubscriptionStatusExpired
	next.IsPremium = false
	next.UpdatedAt = now.UTC()

	if err := s.subs.UpsertSingleton(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to persist expiry enforcement: %w", err)
	}

	log.Info("subscription expired beyond grace period",
		slog.Time("expired_at", *state.ExpiresAt),
		slog.Int("grace_days", s.params.GraceDays))

	return next, nil
}

// Foreground is the app-foreground routine: sync against the ledger when
// reachable, then always enforce expiry. A ledger failure is logged and
// swallowed — local state stays authoritative offline.
func (s *Service) Foreground(ctx context.Context) (*domain.SubscriptionState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if s.ledger != nil {
		snapshot, err := s.ledger.Snapshot(ctx)
		if err != nil {
			log.Warn("ledger unreachable, keeping local subscription state",
				slog.String("error", err.Error()))
		} else if _, err := s.SyncFromLedger(ctx, snapshot); err != nil {
			return nil, err
		}
	}

	if _, err := s.EnforceExpiry(ctx); err != nil {
		return nil, err
	}

	return s.loadOrDefault(ctx)
}

// Purchase buys a product through the ledger and syncs the returned
// snapshot into local state.
func (s *Service) Purchase(ctx context.Context, productID string) (*domain.SubscriptionState, error) {
	if s.ledger == nil {
		return nil, ErrLedgerUnavailable
	}

	snapshot, err := s.ledger.Purchase(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("purchase failed: %w", err)
	}

	return s.SyncFromLedger(ctx, snapshot)
}

// Restore re-attaches prior purchases through the ledger and syncs the
// returned snapshot into local state.
func (s *Service) Restore(ctx context.Context) (*domain.SubscriptionState, error) {
	if s.ledger == nil {
		return nil, ErrLedgerUnavailable
	}

	snapshot, err := s.ledger.Restore(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore failed: %w", err)
	}

	return s.SyncFromLedger(ctx, snapshot)
}

// loadOrDefault reads the singleton, defaulting to the never-subscribed
// state before the first write.
func (s *Service) loadOrDefault(ctx context.Context) (*domain.SubscriptionState, error) {
	state, err := s.subs.GetSingleton(ctx)
	if err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			return domain.NewSubscriptionState(), nil
		}
		return nil, fmt.Errorf("failed to load subscription state: %w", err)
	}
	return state, nil
}
