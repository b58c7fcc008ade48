package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/memomeet/memomeet/adapters/clock"
	"github.com/memomeet/memomeet/adapters/idgen"
	"github.com/memomeet/memomeet/adapters/memory"
	"github.com/memomeet/memomeet/app"
	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/domain/billing"
	"github.com/rs/zerolog"
)

func newAccountService(store *memory.AccountStore, m *recordingMetrics) *app.AccountService {
	return app.NewAccountService(store, memory.NewEventStore(store), idgen.NewSequential("adj_"),
		clock.Real{}, m, zerolog.Nop())
}

func TestAccountService_EnsureIsIdempotent(t *testing.T) {
	store := memory.NewAccountStore()
	svc := newAccountService(store, newRecordingMetrics())
	ctx := context.Background()

	first, err := svc.Ensure(ctx, "acc_1")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if first.Credits != 0 || first.Tier != account.TierNone {
		t.Errorf("new account = %+v, want 0 credits, tier none", first)
	}

	if _, err := store.Update(ctx, "acc_1", func(a account.Account) (account.Account, error) {
		return account.GrantCredits(a, 4)
	}); err != nil {
		t.Fatal(err)
	}

	again, err := svc.Ensure(ctx, "acc_1")
	if err != nil {
		t.Fatalf("second Ensure failed: %v", err)
	}
	if again.Credits != 4 {
		t.Errorf("credits = %d, want 4 (existing account kept)", again.Credits)
	}
}

func TestAccountService_Snapshot(t *testing.T) {
	store := memory.NewAccountStore()
	seedAccount(t, store, "acc_pro", 7, account.TierPro)
	svc := newAccountService(store, newRecordingMetrics())

	view, err := svc.Snapshot(context.Background(), "acc_pro")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if view.Tier != account.TierPro || !view.Unlimited || view.Credits != 7 {
		t.Errorf("view = %+v", view)
	}
}

func TestAccountService_GrantAndDebitAreAudited(t *testing.T) {
	store := memory.NewAccountStore()
	seedAccount(t, store, "acc_1", 2, account.TierNone)
	m := newRecordingMetrics()
	svc := newAccountService(store, m)
	ctx := context.Background()

	a, err := svc.Grant(ctx, "acc_1", 5, "support ticket 12")
	if err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if a.Credits != 7 {
		t.Errorf("after grant credits = %d, want 7", a.Credits)
	}
	if m.granted["operator"] != 5 {
		t.Errorf("operator granted = %d, want 5", m.granted["operator"])
	}

	a, err = svc.Debit(ctx, "acc_1", 3, "reconciliation")
	if err != nil {
		t.Fatalf("Debit failed: %v", err)
	}
	if a.Credits != 4 {
		t.Errorf("after debit credits = %d, want 4", a.Credits)
	}

	records, err := svc.Events(ctx, "acc_1", 10)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	for _, r := range records {
		if r.Type != billing.EventOperatorAdjustment || r.Outcome != billing.OutcomeApplied {
			t.Errorf("record = %+v", r)
		}
	}
}

func TestAccountService_DebitRejectsOverdraw(t *testing.T) {
	store := memory.NewAccountStore()
	seedAccount(t, store, "acc_1", 1, account.TierNone)
	svc := newAccountService(store, newRecordingMetrics())

	_, err := svc.Debit(context.Background(), "acc_1", 2, "")
	if !errors.Is(err, account.ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
	if got := mustGet(t, store, "acc_1").Credits; got != 1 {
		t.Errorf("credits = %d, want 1", got)
	}
}

func TestAccountService_GrantRejectsNonPositive(t *testing.T) {
	store := memory.NewAccountStore()
	seedAccount(t, store, "acc_1", 1, account.TierNone)
	svc := newAccountService(store, newRecordingMetrics())

	if _, err := svc.Grant(context.Background(), "acc_1", 0, ""); !errors.Is(err, account.ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestAccountService_List(t *testing.T) {
	store := memory.NewAccountStore()
	for _, id := range []string{"a", "b", "c"} {
		seedAccount(t, store, id, 0, account.TierNone)
	}
	svc := newAccountService(store, newRecordingMetrics())

	page, total, err := svc.List(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 2 || total != 3 {
		t.Errorf("page=%d total=%d, want 2/3", len(page), total)
	}
}
