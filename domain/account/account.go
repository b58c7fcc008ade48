// Package account provides the account value type and the entitlement ledger.
// Every function here is pure: it takes the current state and returns the next one.
package account

import (
	"errors"
	"fmt"
	"time"
)

// Tier is the subscription level of an account.
type Tier string

const (
	TierNone     Tier = "none"     // pay-per-credit only
	TierStandard Tier = "standard" // periodic credit grant
	TierPro      Tier = "pro"      // unlimited usage
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierNone, TierStandard, TierPro:
		return true
	}
	return false
}

// ParseTier converts a string into a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
	return t, nil
}

// Account is one user's entitlement state (value type).
type Account struct {
	ID              string
	Credits         int64
	Tier            Tier
	Unlimited       bool
	CustomerRef     string // payment processor customer, set once
	SubscriptionRef string // payment processor subscription currently backing Tier

	// Last subscription that ended and when the tier last changed.
	// Activations older than either are out of order.
	EndedSubscriptionRef string
	TierChangedAt        time.Time

	// Credits held by in-flight paid operations. They count against the
	// spendable balance until ReservedUntil.
	Reserved      int64
	ReservedUntil time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Mutator computes the next state of an account.
// Stores call it inside their per-account serialization point.
type Mutator func(Account) (Account, error)

// New returns a freshly signed-in account.
func New(id string, now time.Time) Account {
	return Account{
		ID:        id,
		Tier:      TierNone,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the account invariants.
// This is a PURE function.
func (a Account) Validate() error {
	if a.ID == "" {
		return errors.New("account id is required")
	}
	if a.Credits < 0 {
		return fmt.Errorf("%w: credits %d", ErrNegativeBalance, a.Credits)
	}
	if a.Reserved < 0 {
		return fmt.Errorf("%w: reserved %d", ErrNegativeBalance, a.Reserved)
	}
	if !a.Tier.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTier, a.Tier)
	}
	if a.Unlimited != (a.Tier == TierPro) {
		return ErrInconsistentTier
	}
	return nil
}
