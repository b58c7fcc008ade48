package account_test

import (
	"testing"
	"time"

	"github.com/memomeet/memomeet/domain/account"
)

func TestProject(t *testing.T) {
	now := time.Unix(1700000000, 0)
	a := account.Account{
		ID:            "user-1",
		Tier:          account.TierStandard,
		Credits:       5,
		CustomerRef:   "cus_1",
		Reserved:      2,
		ReservedUntil: now.Add(time.Minute),
	}

	v := account.Project(a, now)
	if v.ID != "user-1" || v.Credits != 5 || v.Available != 3 {
		t.Errorf("unexpected view: %+v", v)
	}
	if v.Tier != account.TierStandard || v.Unlimited || !v.Subscribed {
		t.Errorf("unexpected tier fields: %+v", v)
	}
	if !v.HasBillingCustomer {
		t.Error("HasBillingCustomer should be true")
	}

	v = account.Project(a, now.Add(2*time.Minute))
	if v.Available != 5 {
		t.Errorf("Available after lease = %d, want 5", v.Available)
	}
}

func TestEffectiveTier(t *testing.T) {
	e := account.EffectiveTier(account.Account{Tier: account.TierPro, Unlimited: true})
	if e.Tier != account.TierPro || !e.Unlimited {
		t.Errorf("EffectiveTier = %+v", e)
	}
}

func TestCanUse(t *testing.T) {
	now := time.Now()
	if (account.Account{Tier: account.TierNone}).CanUse(now) {
		t.Error("empty account should not be usable")
	}
	if !(account.Account{Tier: account.TierPro, Unlimited: true}).CanUse(now) {
		t.Error("unlimited account should be usable")
	}
	if !(account.Account{Tier: account.TierNone, Credits: 1}).CanUse(now) {
		t.Error("account with credit should be usable")
	}
}
