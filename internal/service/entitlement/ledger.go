package entitlement

import (
	"context"
	"errors"
	"time"
)

// ErrLedgerUnavailable indicates the purchase ledger could not be reached.
// Local subscription state stays authoritative when this happens.
var ErrLedgerUnavailable = errors.New("purchase ledger unavailable")

// LedgerEntitlement is one active entitlement in a ledger snapshot.
type LedgerEntitlement struct {
	ProductID string     `json:"product_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // nil for non-expiring products
}

// LedgerSnapshot is the read-only view of the purchase ledger at one
// moment: the map of currently active entitlements keyed by entitlement
// identifier.
type LedgerSnapshot struct {
	ActiveEntitlements map[string]LedgerEntitlement `json:"active_entitlements"`
}

// Ledger is the purchase-SDK collaborator. Purchase and Restore perform
// their side effect and return a fresh snapshot reflecting it; the engine
// never mutates ledger state directly.
type Ledger interface {
	// Snapshot returns the current ledger state.
	// Returns ErrLedgerUnavailable (possibly wrapped) when offline.
	Snapshot(ctx context.Context) (*LedgerSnapshot, error)

	// Purchase buys the given product and returns the resulting snapshot.
	Purchase(ctx context.Context, productID string) (*LedgerSnapshot, error)

	// Restore re-attaches prior purchases and returns the resulting snapshot.
	Restore(ctx context.Context) (*LedgerSnapshot, error)
}
