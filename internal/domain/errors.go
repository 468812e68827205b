// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidDate is returned when a local calendar date is not in
	// YYYY-MM-DD form or does not denote a real date.
	ErrInvalidDate = errors.New("invalid calendar date")

	// ErrInvalidUrgeKind is returned when an urge kind is outside the
	// known set (swipe, check, spend).
	ErrInvalidUrgeKind = errors.New("invalid urge kind")

	// ErrInvalidOutcome is returned when an urge outcome is outside the
	// known set (success, fail, ongoing).
	ErrInvalidOutcome = errors.New("invalid urge outcome")

	// ErrInvalidSubscriptionStatus is returned when a subscription status
	// is outside the known set (none, trial, active, lifetime, expired).
	ErrInvalidSubscriptionStatus = errors.New("invalid subscription status")
)
