package account

import "time"

// GrantCredits adds n credits to the balance.
// This is a PURE function.
func GrantCredits(a Account, n int64) (Account, error) {
	if n <= 0 {
		return a, ErrInvalidAmount
	}
	a.Credits += n
	return a, nil
}

// ConsumeCredit spends one credit. Unlimited accounts never deplete.
// This is a PURE function.
func ConsumeCredit(a Account) (Account, error) {
	if a.Unlimited {
		return a, nil
	}
	if a.Credits <= 0 {
		return a, ErrInsufficientCredits
	}
	a.Credits--
	return a, nil
}

// DebitCredits removes n credits, used for operator corrections.
// This is a PURE function.
func DebitCredits(a Account, n int64) (Account, error) {
	if n <= 0 {
		return a, ErrInvalidAmount
	}
	if a.Credits < n {
		return a, ErrInsufficientCredits
	}
	a.Credits -= n
	return a, nil
}

// SetTier replaces the tier and the unlimited flag. Credits are untouched.
// This is a PURE function.
func SetTier(a Account, tier Tier, unlimited bool) (Account, error) {
	if !tier.Valid() {
		return a, ErrUnknownTier
	}
	if unlimited != (tier == TierPro) {
		return a, ErrInconsistentTier
	}
	a.Tier = tier
	a.Unlimited = unlimited
	return a, nil
}

// ActivateSubscription moves a tierless account onto tier.
// One subscription per account: callers must revoke before switching.
// at is when the processor emitted the change; a zero at skips the ordering check.
// This is a PURE function.
func ActivateSubscription(a Account, tier Tier, subscriptionRef string, at time.Time) (Account, error) {
	if subscriptionRef != "" && subscriptionRef == a.EndedSubscriptionRef {
		return a, ErrSubscriptionEnded
	}
	if !at.IsZero() && at.Before(a.TierChangedAt) {
		return a, ErrSubscriptionEnded
	}
	if a.Tier != TierNone {
		return a, ErrConflictingSubscription
	}
	next, err := SetTier(a, tier, tier == TierPro)
	if err != nil {
		return a, err
	}
	next.SubscriptionRef = subscriptionRef
	next.TierChangedAt = latest(a.TierChangedAt, at)
	return next, nil
}

// RevokeSubscription drops the account back to pay-per-credit.
// Previously granted credits stay spendable. The ended subscription, subscriptionRef
// or else the current one, can no longer be activated.
// This is a PURE function.
func RevokeSubscription(a Account, subscriptionRef string, at time.Time) Account {
	switch {
	case subscriptionRef != "":
		a.EndedSubscriptionRef = subscriptionRef
	case a.SubscriptionRef != "":
		a.EndedSubscriptionRef = a.SubscriptionRef
	}
	a.Tier = TierNone
	a.Unlimited = false
	a.SubscriptionRef = ""
	a.TierChangedAt = latest(a.TierChangedAt, at)
	return a
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// AttachCustomer sets the billing customer reference once.
// This is a PURE function.
func AttachCustomer(a Account, ref string) (Account, error) {
	if ref == "" {
		return a, ErrInvalidCustomerRef
	}
	if a.CustomerRef != "" && a.CustomerRef != ref {
		return a, ErrCustomerRefImmutable
	}
	a.CustomerRef = ref
	return a, nil
}

// Reserve holds one credit for an in-flight paid operation until now+lease.
// It reports whether a credit was actually held; unlimited accounts hold nothing.
// This is a PURE function.
func Reserve(a Account, now time.Time, lease time.Duration) (Account, bool, error) {
	if a.Unlimited {
		return a, false, nil
	}
	held := activeReserved(a, now)
	if a.Credits-held <= 0 {
		return a, false, ErrInsufficientCredits
	}
	a.Reserved = held + 1
	if until := now.Add(lease); until.After(a.ReservedUntil) || held == 0 {
		a.ReservedUntil = until
	}
	return a, true, nil
}

// Release gives back one held credit without spending it.
// This is a PURE function.
func Release(a Account, now time.Time) Account {
	held := activeReserved(a, now)
	if held > 0 {
		held--
	}
	a.Reserved = held
	if held == 0 {
		a.ReservedUntil = time.Time{}
	}
	return a
}

// Settle converts one held credit into a consumption.
// This is a PURE function.
func Settle(a Account, now time.Time) (Account, error) {
	return ConsumeCredit(Release(a, now))
}

// Available returns the credits that can still be reserved at now.
// This is a PURE function.
func Available(a Account, now time.Time) int64 {
	if n := a.Credits - activeReserved(a, now); n > 0 {
		return n
	}
	return 0
}

func activeReserved(a Account, now time.Time) int64 {
	if a.Reserved > 0 && now.Before(a.ReservedUntil) {
		return a.Reserved
	}
	return 0
}
