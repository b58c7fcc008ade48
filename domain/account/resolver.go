package account

import "time"

// Entitlement is the effective subscription state of an account.
type Entitlement struct {
	Tier      Tier
	Unlimited bool
}

// EffectiveTier is the single place tier and unlimited are read from.
// This is a PURE function.
func EffectiveTier(a Account) Entitlement {
	return Entitlement{Tier: a.Tier, Unlimited: a.Unlimited}
}

// CanUse reports whether a paid operation could start at now.
func (a Account) CanUse(now time.Time) bool {
	return a.Unlimited || Available(a, now) > 0
}

// View is the read-only projection served to clients and operators.
type View struct {
	ID                 string `json:"id"`
	Credits            int64  `json:"credits"`
	Available          int64  `json:"available"`
	Tier               Tier   `json:"tier"`
	Unlimited          bool   `json:"unlimited"`
	HasBillingCustomer bool   `json:"has_billing_customer"`
	Subscribed         bool   `json:"subscribed"`
}

// Project builds the View of a at now.
// This is a PURE function.
func Project(a Account, now time.Time) View {
	e := EffectiveTier(a)
	return View{
		ID:                 a.ID,
		Credits:            a.Credits,
		Available:          Available(a, now),
		Tier:               e.Tier,
		Unlimited:          e.Unlimited,
		HasBillingCustomer: a.CustomerRef != "",
		Subscribed:         e.Tier != TierNone,
	}
}
