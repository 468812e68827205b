package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// UrgeKind identifies the behavior the user felt pulled toward.
type UrgeKind string

// Known urge kinds.
const (
	UrgeKindSwipe UrgeKind = "swipe"
	UrgeKindCheck UrgeKind = "check"
	UrgeKindSpend UrgeKind = "spend"
)

// IsValid reports whether the kind is one of the known urge kinds.
func (k UrgeKind) IsValid() bool {
	switch k {
	case UrgeKindSwipe, UrgeKindCheck, UrgeKindSpend:
		return true
	default:
		return false
	}
}

// Outcome is the result the user logged for a reset session.
type Outcome string

// Known outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFail    Outcome = "fail"
	OutcomeOngoing Outcome = "ongoing"
)

// IsValid reports whether the outcome is one of the known outcomes.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFail, OutcomeOngoing:
		return true
	default:
		return false
	}
}

// UrgeEvent-specific validation errors
var (
	// ErrUrgeEventIDEmpty is returned when an urge event ID is empty or nil.
	ErrUrgeEventIDEmpty = errors.New("urge event ID cannot be empty")

	// ErrUrgeEventTimeZero is returned when an urge event has no occurrence time.
	ErrUrgeEventTimeZero = errors.New("urge event occurrence time cannot be zero")

	// ErrUrgeEventActionEmpty is returned when an urge event has no coping action.
	ErrUrgeEventActionEmpty = errors.New("urge event action cannot be empty")
)

// UrgeEvent is the immutable record of one urge occurrence. It is created
// exactly once, at outcome-commit time, and never updated or deleted.
type UrgeEvent struct {
	ID            uuid.UUID `json:"id"`
	OccurredAt    time.Time `json:"occurred_at"`
	Kind          UrgeKind  `json:"kind"`
	ActionID      string    `json:"action_id"`
	Outcome       Outcome   `json:"outcome"`
	TriggerTag    *string   `json:"trigger_tag,omitempty"`
	SpendCategory *string   `json:"spend_category,omitempty"`
	SpendItemType *string   `json:"spend_item_type,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewUrgeEvent creates a new UrgeEvent with the required fields. It generates
// a new UUID and sets the creation timestamp. Optional fields (trigger tag,
// spend category, spend item type) are set by the caller before persisting.
// Returns an error if validation fails.
func NewUrgeEvent(
	kind UrgeKind,
	actionID string,
	outcome Outcome,
	occurredAt time.Time,
) (*UrgeEvent, error) {
	event := &UrgeEvent{
		ID:         uuid.New(),
		OccurredAt: occurredAt,
		Kind:       kind,
		ActionID:   actionID,
		Outcome:    outcome,
		CreatedAt:  time.Now().UTC(),
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	return event, nil
}

// Validate checks if the UrgeEvent has valid data.
// Returns an error if any field fails validation.
func (e *UrgeEvent) Validate() error {
	if e.ID == uuid.Nil {
		return ErrUrgeEventIDEmpty
	}

	if e.OccurredAt.IsZero() {
		return ErrUrgeEventTimeZero
	}

	if !e.Kind.IsValid() {
		return ErrInvalidUrgeKind
	}

	if e.ActionID == "" {
		return ErrUrgeEventActionEmpty
	}

	if !e.Outcome.IsValid() {
		return ErrInvalidOutcome
	}

	return nil
}
