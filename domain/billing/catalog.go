package billing

import (
	"fmt"

	"github.com/memomeet/memomeet/domain/account"
)

// PriceKind distinguishes credit packs from subscriptions.
type PriceKind string

const (
	PriceOneTime      PriceKind = "one_time"
	PriceSubscription PriceKind = "subscription"
)

// PriceEntry is one purchasable item of the catalog (value type).
type PriceEntry struct {
	PriceRef        string
	Kind            PriceKind
	Name            string
	Credits         int64        // one-time packs
	Tier            account.Tier // subscriptions
	PeriodicCredits int64        // granted on every paid invoice, standard tier
	Unlimited       bool         // pro tier
}

// Catalog maps processor price ids to what they grant (immutable once built).
type Catalog struct {
	entries map[string]PriceEntry
	order   []string
}

// NewCatalog validates entries and builds a Catalog.
// This is a PURE function.
func NewCatalog(entries []PriceEntry) (Catalog, error) {
	c := Catalog{entries: make(map[string]PriceEntry, len(entries))}
	for _, e := range entries {
		if err := e.validate(); err != nil {
			return Catalog{}, err
		}
		if _, dup := c.entries[e.PriceRef]; dup {
			return Catalog{}, fmt.Errorf("%w: duplicate price %q", ErrInvalidPrice, e.PriceRef)
		}
		c.entries[e.PriceRef] = e
		c.order = append(c.order, e.PriceRef)
	}
	return c, nil
}

func (e PriceEntry) validate() error {
	if e.PriceRef == "" {
		return fmt.Errorf("%w: empty price id", ErrInvalidPrice)
	}
	switch e.Kind {
	case PriceOneTime:
		if e.Credits <= 0 {
			return fmt.Errorf("%w: %s grants no credits", ErrInvalidPrice, e.PriceRef)
		}
	case PriceSubscription:
		if e.Tier != account.TierStandard && e.Tier != account.TierPro {
			return fmt.Errorf("%w: %s has tier %q", ErrInvalidPrice, e.PriceRef, e.Tier)
		}
		if e.Unlimited != (e.Tier == account.TierPro) {
			return fmt.Errorf("%w: %s", account.ErrInconsistentTier, e.PriceRef)
		}
		if !e.Unlimited && e.PeriodicCredits <= 0 {
			return fmt.Errorf("%w: %s grants no periodic credits", ErrInvalidPrice, e.PriceRef)
		}
	default:
		return fmt.Errorf("%w: %s has kind %q", ErrInvalidPrice, e.PriceRef, e.Kind)
	}
	return nil
}

// Lookup returns the entry for priceRef.
func (c Catalog) Lookup(priceRef string) (PriceEntry, bool) {
	e, ok := c.entries[priceRef]
	return e, ok
}

// OneTime returns the one-time entry for priceRef or ErrInvalidPrice.
func (c Catalog) OneTime(priceRef string) (PriceEntry, error) {
	e, ok := c.entries[priceRef]
	if !ok || e.Kind != PriceOneTime {
		return PriceEntry{}, fmt.Errorf("%w: %q is not a credit pack", ErrInvalidPrice, priceRef)
	}
	return e, nil
}

// Subscription returns the subscription entry for priceRef or ErrInvalidPrice.
func (c Catalog) Subscription(priceRef string) (PriceEntry, error) {
	e, ok := c.entries[priceRef]
	if !ok || e.Kind != PriceSubscription {
		return PriceEntry{}, fmt.Errorf("%w: %q is not a subscription plan", ErrInvalidPrice, priceRef)
	}
	return e, nil
}

// Entries returns the entries in configuration order.
func (c Catalog) Entries() []PriceEntry {
	out := make([]PriceEntry, 0, len(c.order))
	for _, ref := range c.order {
		out = append(out, c.entries[ref])
	}
	return out
}

// Len returns the number of entries.
func (c Catalog) Len() int { return len(c.order) }

// DefaultEntries are the prices the hosted product sells.
func DefaultEntries() []PriceEntry {
	return []PriceEntry{
		{PriceRef: "price_1R5enGK9mEToSu4Ymfww3tTb", Kind: PriceOneTime, Name: "10 credits", Credits: 10},
		{PriceRef: "price_1R5enfK9mEToSu4YHHY743l7", Kind: PriceOneTime, Name: "50 credits", Credits: 50},
		{PriceRef: "price_1R5ficK9mEToSu4YF0OdylSe", Kind: PriceSubscription, Name: "Standard", Tier: account.TierStandard, PeriodicCredits: 100},
		{PriceRef: "price_1R5fj5K9mEToSu4YjLTjE1g3", Kind: PriceSubscription, Name: "Pro", Tier: account.TierPro, Unlimited: true},
	}
}
