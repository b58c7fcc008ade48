package memory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/memomeet/memomeet/adapters/memory"
	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/domain/billing"
)

func grant(n int64) account.Mutator {
	return func(a account.Account) (account.Account, error) { return account.GrantCredits(a, n) }
}

func TestEventStore_ApplyOnce(t *testing.T) {
	accounts := memory.NewAccountStore()
	events := memory.NewEventStore(accounts)
	ctx := context.Background()
	accounts.Create(ctx, "user-1")

	rec := billing.EventRecord{ID: "evt_1", Provider: "stripe", Type: billing.EventOneTimePurchase, ProcessedAt: time.Now()}

	if _, err := events.Apply(ctx, rec, "user-1", grant(10)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if _, err := events.Apply(ctx, rec, "user-1", grant(10)); !errors.Is(err, billing.ErrDuplicateEvent) {
		t.Errorf("second Apply error = %v, want ErrDuplicateEvent", err)
	}

	a, _ := accounts.Get(ctx, "user-1")
	if a.Credits != 10 {
		t.Errorf("Credits = %d, want 10", a.Credits)
	}

	got, err := events.Get(ctx, "stripe", "evt_1")
	if err != nil || got.Outcome != billing.OutcomeApplied || got.AccountID != "user-1" {
		t.Errorf("Get = %+v, %v", got, err)
	}
}

func TestEventStore_ApplyConcurrentRedelivery(t *testing.T) {
	accounts := memory.NewAccountStore()
	events := memory.NewEventStore(accounts)
	ctx := context.Background()
	accounts.Create(ctx, "user-1")

	rec := billing.EventRecord{ID: "evt_1", Type: billing.EventInvoicePaid}

	var applied int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := events.Apply(ctx, rec, "user-1", grant(100)); err == nil {
				atomic.AddInt32(&applied, 1)
			}
		}()
	}
	wg.Wait()

	if applied != 1 {
		t.Errorf("applied %d times, want 1", applied)
	}
	a, _ := accounts.Get(ctx, "user-1")
	if a.Credits != 100 {
		t.Errorf("Credits = %d, want 100", a.Credits)
	}
}

func TestEventStore_FailedMutationRecordsNothing(t *testing.T) {
	accounts := memory.NewAccountStore()
	events := memory.NewEventStore(accounts)
	ctx := context.Background()
	accounts.Create(ctx, "user-1")

	rec := billing.EventRecord{ID: "evt_1"}
	_, err := events.Apply(ctx, rec, "user-1", func(a account.Account) (account.Account, error) {
		return account.ActivateSubscription(a, "gold", "sub_1", time.Time{})
	})
	if err == nil {
		t.Fatal("expected mutator error")
	}
	if _, err := events.Get(ctx, "", "evt_1"); !errors.Is(err, billing.ErrEventNotFound) {
		t.Errorf("Get error = %v, want ErrEventNotFound", err)
	}
}

func TestEventStore_RejectedCanBeReapplied(t *testing.T) {
	accounts := memory.NewAccountStore()
	events := memory.NewEventStore(accounts)
	ctx := context.Background()
	accounts.Create(ctx, "user-1")

	rec := billing.EventRecord{ID: "evt_1", Reason: "invalid price"}
	if err := events.RecordRejected(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, _ := events.Get(ctx, "", "evt_1")
	if got.Outcome != billing.OutcomeRejected {
		t.Errorf("Outcome = %s, want rejected", got.Outcome)
	}

	if _, err := events.Apply(ctx, rec, "user-1", grant(10)); err != nil {
		t.Fatalf("Apply after reject failed: %v", err)
	}

	events.RecordRejected(ctx, rec)
	got, _ = events.Get(ctx, "", "evt_1")
	if got.Outcome != billing.OutcomeApplied {
		t.Errorf("RecordRejected overwrote an applied record: %+v", got)
	}
}

func TestEventStore_IDsAreScopedByProvider(t *testing.T) {
	accounts := memory.NewAccountStore()
	events := memory.NewEventStore(accounts)
	ctx := context.Background()
	accounts.Create(ctx, "user-1")

	if _, err := events.Apply(ctx, billing.EventRecord{ID: "evt_1", Provider: "stripe"}, "user-1", grant(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := events.Apply(ctx, billing.EventRecord{ID: "evt_1", Provider: "dummy"}, "user-1", grant(1)); err != nil {
		t.Fatalf("same id from another provider: %v", err)
	}
	if _, err := events.Get(ctx, "paddle", "evt_1"); !errors.Is(err, billing.ErrEventNotFound) {
		t.Errorf("Get for unknown provider error = %v", err)
	}

	a, _ := accounts.Get(ctx, "user-1")
	if a.Credits != 2 {
		t.Errorf("Credits = %d, want 2", a.Credits)
	}
}

func TestEventStore_List(t *testing.T) {
	accounts := memory.NewAccountStore()
	events := memory.NewEventStore(accounts)
	ctx := context.Background()
	accounts.Create(ctx, "user-1")
	accounts.Create(ctx, "user-2")

	events.Apply(ctx, billing.EventRecord{ID: "e1"}, "user-1", grant(1))
	events.Apply(ctx, billing.EventRecord{ID: "e2"}, "user-2", grant(1))
	events.Apply(ctx, billing.EventRecord{ID: "e3"}, "user-1", grant(1))

	all, _ := events.List(ctx, "", 0)
	if len(all) != 3 || all[0].ID != "e3" {
		t.Errorf("List all = %+v", all)
	}
	mine, _ := events.List(ctx, "user-1", 1)
	if len(mine) != 1 || mine[0].ID != "e3" {
		t.Errorf("List user-1 = %+v", mine)
	}
}
