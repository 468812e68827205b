package domain

import "time"

// SubscriptionStatus is the lifecycle state of the local entitlement record.
type SubscriptionStatus string

// Known subscription statuses. "none" means never subscribed; "expired"
// means a prior subscription or trial has lapsed — the two are distinct so
// the UI can tell a new user from a lapsed one.
const (
	SubscriptionStatusNone     SubscriptionStatus = "none"
	SubscriptionStatusTrial    SubscriptionStatus = "trial"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusLifetime SubscriptionStatus = "lifetime"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
)

// IsValid reports whether the status is one of the known statuses.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusNone,
		SubscriptionStatusTrial,
		SubscriptionStatusActive,
		SubscriptionStatusLifetime,
		SubscriptionStatusExpired:
		return true
	default:
		return false
	}
}

// Known billing periods.
const (
	PeriodMonthly  = "monthly"
	PeriodLifetime = "lifetime"
)

// SubscriptionState is the singleton local entitlement record. It is the
// authoritative offline view of premium access, reconciled against the
// purchase ledger whenever one is reachable.
type SubscriptionState struct {
	Status         SubscriptionStatus `json:"status"`
	ProductID      string             `json:"product_id,omitempty"`
	Period         string             `json:"period,omitempty"`
	StartedAt      *time.Time         `json:"started_at,omitempty"`
	ExpiresAt      *time.Time         `json:"expires_at,omitempty"`
	IsPremium      bool               `json:"is_premium"`
	TrialStartedAt *time.Time         `json:"trial_started_at,omitempty"`
	TrialEndsAt    *time.Time         `json:"trial_ends_at,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// NewSubscriptionState creates the default never-subscribed record.
func NewSubscriptionState() *SubscriptionState {
	return &SubscriptionState{
		Status:    SubscriptionStatusNone,
		UpdatedAt: time.Now().UTC(),
	}
}

// Validate checks if the SubscriptionState has valid data.
func (s *SubscriptionState) Validate() error {
	if !s.Status.IsValid() {
		return ErrInvalidSubscriptionStatus
	}
	return nil
}

// Clone returns a deep copy of the state. Mutating the copy leaves the
// original untouched, which the expiry enforcement relies on to preserve
// trial metadata exactly.
func (s *SubscriptionState) Clone() *SubscriptionState {
	clone := *s
	clone.StartedAt = cloneTime(s.StartedAt)
	clone.ExpiresAt = cloneTime(s.ExpiresAt)
	clone.TrialStartedAt = cloneTime(s.TrialStartedAt)
	clone.TrialEndsAt = cloneTime(s.TrialEndsAt)
	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
