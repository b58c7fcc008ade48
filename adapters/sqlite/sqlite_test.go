package sqlite_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/memomeet/memomeet/adapters/sqlite"
	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/domain/summary"
)

func setupTestDB(t *testing.T) (*sqlite.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "memomeet-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := f.Name()
	f.Close()

	db, err := sqlite.Open(path)
	if err != nil {
		os.Remove(path)
		t.Fatalf("open database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		os.Remove(path)
		t.Fatalf("migrate: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(path)
		os.Remove(path + "-wal")
		os.Remove(path + "-shm")
	}

	return db, cleanup
}

func grant(n int64) account.Mutator {
	return func(a account.Account) (account.Account, error) { return account.GrantCredits(a, n) }
}

func TestMigrate_Idempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

// -----------------------------------------------------------------------------
// AccountStore Tests
// -----------------------------------------------------------------------------

func TestAccountStore_CreateAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewAccountStore(db)
	ctx := context.Background()

	a, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if a.ID != "user-1" || a.Tier != account.TierNone || a.Credits != 0 || a.Unlimited {
		t.Errorf("unexpected account: %+v", a)
	}

	store.Update(ctx, "user-1", grant(3))
	again, err := store.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if again.Credits != 3 {
		t.Errorf("second create reset credits to %d", again.Credits)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, account.ErrNotFound) {
		t.Errorf("get missing: %v", err)
	}
}

func TestAccountStore_UpdateRoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewAccountStore(db)
	ctx := context.Background()
	store.Create(ctx, "user-1")

	until := time.Now().UTC().Add(time.Minute).Truncate(time.Millisecond)
	_, err := store.Update(ctx, "user-1", func(a account.Account) (account.Account, error) {
		a, _ = account.GrantCredits(a, 5)
		a, _ = account.AttachCustomer(a, "cus_1")
		a, err := account.ActivateSubscription(a, account.TierPro, "sub_1", time.Time{})
		a.Reserved = 1
		a.ReservedUntil = until
		return a, err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetByCustomerRef(ctx, "cus_1")
	if err != nil {
		t.Fatalf("get by customer: %v", err)
	}
	if got.Credits != 5 || got.Tier != account.TierPro || !got.Unlimited || got.SubscriptionRef != "sub_1" {
		t.Errorf("unexpected account: %+v", got)
	}
	if got.Reserved != 1 || !got.ReservedUntil.Equal(until) {
		t.Errorf("reservation = %d until %v, want 1 until %v", got.Reserved, got.ReservedUntil, until)
	}

	_, err = store.Update(ctx, "user-1", func(a account.Account) (account.Account, error) {
		return account.Release(account.RevokeSubscription(a, "", until), until.Add(-time.Second)), nil
	})
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, _ = store.Get(ctx, "user-1")
	if got.Tier != account.TierNone || got.SubscriptionRef != "" || !got.ReservedUntil.IsZero() {
		t.Errorf("after revoke: %+v", got)
	}
	if got.EndedSubscriptionRef != "sub_1" || !got.TierChangedAt.Equal(until) {
		t.Errorf("ended subscription = %q at %v, want sub_1 at %v", got.EndedSubscriptionRef, got.TierChangedAt, until)
	}
}

func TestAccountStore_MutatorErrorRollsBack(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewAccountStore(db)
	ctx := context.Background()
	store.Create(ctx, "user-1")

	if _, err := store.Update(ctx, "user-1", account.ConsumeCredit); !errors.Is(err, account.ErrInsufficientCredits) {
		t.Fatalf("update error = %v", err)
	}
	got, _ := store.Get(ctx, "user-1")
	if got.Credits != 0 {
		t.Errorf("credits = %d after failed update", got.Credits)
	}
}

func TestAccountStore_CustomerRefUnique(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewAccountStore(db)
	ctx := context.Background()
	store.Create(ctx, "user-1")
	store.Create(ctx, "user-2")

	attach := func(a account.Account) (account.Account, error) { return account.AttachCustomer(a, "cus_1") }
	if _, err := store.Update(ctx, "user-1", attach); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Update(ctx, "user-2", attach); !errors.Is(err, account.ErrCustomerRefInUse) {
		t.Errorf("second owner error = %v", err)
	}
}

func TestAccountStore_ConcurrentUpdates(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewAccountStore(db)
	ctx := context.Background()
	store.Create(ctx, "user-1")
	store.Update(ctx, "user-1", grant(10))

	var ok int32
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Update(ctx, "user-1", account.ConsumeCredit); err == nil {
				atomic.AddInt32(&ok, 1)
			}
		}()
	}
	wg.Wait()

	if ok != 10 {
		t.Errorf("%d consumptions succeeded, want 10", ok)
	}
	got, _ := store.Get(ctx, "user-1")
	if got.Credits != 0 {
		t.Errorf("credits = %d, want 0", got.Credits)
	}
}

func TestAccountStore_ListAndCount(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewAccountStore(db)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		store.Create(ctx, id)
	}

	n, err := store.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("count = %d, %v", n, err)
	}
	all, _ := store.List(ctx, 0, 0)
	if len(all) != 3 {
		t.Errorf("list all = %d", len(all))
	}
	page, _ := store.List(ctx, 2, 2)
	if len(page) != 1 {
		t.Errorf("list page = %d", len(page))
	}
}

// -----------------------------------------------------------------------------
// EventStore Tests
// -----------------------------------------------------------------------------

func TestEventStore_ApplyOnce(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	accounts := sqlite.NewAccountStore(db)
	events := sqlite.NewEventStore(db)
	ctx := context.Background()
	accounts.Create(ctx, "user-1")

	rec := billing.EventRecord{
		ID: "evt_1", Provider: "stripe", Type: billing.EventOneTimePurchase,
		RawType: "checkout.session.completed", ProcessedAt: time.Now().UTC(),
	}
	if _, err := events.Apply(ctx, rec, "user-1", grant(10)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := events.Apply(ctx, rec, "user-1", grant(10)); !errors.Is(err, billing.ErrDuplicateEvent) {
		t.Errorf("second apply = %v, want ErrDuplicateEvent", err)
	}

	a, _ := accounts.Get(ctx, "user-1")
	if a.Credits != 10 {
		t.Errorf("credits = %d, want 10", a.Credits)
	}

	got, err := events.Get(ctx, "stripe", "evt_1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Outcome != billing.OutcomeApplied || got.AccountID != "user-1" || got.RawType != "checkout.session.completed" {
		t.Errorf("record = %+v", got)
	}
}

func TestEventStore_ConcurrentRedelivery(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	accounts := sqlite.NewAccountStore(db)
	events := sqlite.NewEventStore(db)
	ctx := context.Background()
	accounts.Create(ctx, "user-1")

	rec := billing.EventRecord{ID: "evt_1", Type: billing.EventInvoicePaid, ProcessedAt: time.Now().UTC()}

	var applied int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
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
		t.Errorf("credits = %d, want 100", a.Credits)
	}
}

func TestEventStore_RejectedThenApplied(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	accounts := sqlite.NewAccountStore(db)
	events := sqlite.NewEventStore(db)
	ctx := context.Background()
	accounts.Create(ctx, "user-1")

	rec := billing.EventRecord{ID: "evt_1", Reason: "invalid price", ProcessedAt: time.Now().UTC()}
	if err := events.RecordRejected(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := events.RecordRejected(ctx, rec); err != nil {
		t.Fatalf("second reject: %v", err)
	}
	got, _ := events.Get(ctx, "", "evt_1")
	if got.Outcome != billing.OutcomeRejected {
		t.Errorf("outcome = %s", got.Outcome)
	}

	if _, err := events.Apply(ctx, rec, "user-1", grant(10)); err != nil {
		t.Fatalf("apply after reject: %v", err)
	}
	events.RecordRejected(ctx, rec)

	got, _ = events.Get(ctx, "", "evt_1")
	if got.Outcome != billing.OutcomeApplied {
		t.Errorf("applied record overwritten: %+v", got)
	}

	list, _ := events.List(ctx, "user-1", 10)
	if len(list) != 1 {
		t.Errorf("list = %d records", len(list))
	}
	if _, err := events.Get(ctx, "", "nope"); !errors.Is(err, billing.ErrEventNotFound) {
		t.Errorf("get missing = %v", err)
	}
}

func TestEventStore_IDsAreScopedByProvider(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	accounts := sqlite.NewAccountStore(db)
	events := sqlite.NewEventStore(db)
	ctx := context.Background()
	accounts.Create(ctx, "user-1")

	now := time.Now().UTC()
	if _, err := events.Apply(ctx, billing.EventRecord{ID: "evt_1", Provider: "stripe", ProcessedAt: now}, "user-1", grant(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := events.Apply(ctx, billing.EventRecord{ID: "evt_1", Provider: "dummy", ProcessedAt: now}, "user-1", grant(1)); err != nil {
		t.Fatalf("same id from another provider: %v", err)
	}
	if err := events.RecordRejected(ctx, billing.EventRecord{ID: "evt_1", Provider: "paddle", Reason: "unknown account", ProcessedAt: now}); err != nil {
		t.Fatal(err)
	}

	got, err := events.Get(ctx, "paddle", "evt_1")
	if err != nil || got.Outcome != billing.OutcomeRejected {
		t.Errorf("paddle record = %+v, %v", got, err)
	}
	got, err = events.Get(ctx, "stripe", "evt_1")
	if err != nil || got.Outcome != billing.OutcomeApplied {
		t.Errorf("stripe record = %+v, %v", got, err)
	}

	a, _ := accounts.Get(ctx, "user-1")
	if a.Credits != 2 {
		t.Errorf("credits = %d, want 2", a.Credits)
	}
}

// -----------------------------------------------------------------------------
// SummaryStore Tests
// -----------------------------------------------------------------------------

func TestSummaryStore_CRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	accounts := sqlite.NewAccountStore(db)
	store := sqlite.NewSummaryStore(db)
	ctx := context.Background()
	accounts.Create(ctx, "user-1")

	now := time.Now().UTC()
	s := summary.Summary{
		ID: "s1", AccountID: "user-1", Source: "standup.mp3",
		Content: "Budget approved.", Tasks: []string{"Send minutes"},
		CreatedAt: now, UpdatedAt: now,
	}
	if err := store.Create(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}
	store.Create(ctx, summary.Summary{ID: "s2", AccountID: "user-1", Content: "Later.", CreatedAt: now.Add(time.Hour), UpdatedAt: now})

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != "standup.mp3" || len(got.Tasks) != 1 || got.Tasks[0] != "Send minutes" {
		t.Errorf("get = %+v", got)
	}

	list, _ := store.ListByAccount(ctx, "user-1", 10)
	if len(list) != 2 || list[0].ID != "s2" {
		t.Errorf("list = %+v", list)
	}
	if len(list[0].Tasks) != 0 {
		t.Errorf("nil tasks came back as %q", list[0].Tasks)
	}

	got.Content = "Edited."
	got.Tasks = nil
	if err := store.Update(ctx, got); err != nil {
		t.Fatal(err)
	}
	got, _ = store.Get(ctx, "s1")
	if got.Content != "Edited." || len(got.Tasks) != 0 {
		t.Errorf("after update = %+v", got)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, summary.ErrNotFound) {
		t.Errorf("get deleted = %v", err)
	}
	if err := store.Delete(ctx, "s1"); !errors.Is(err, summary.ErrNotFound) {
		t.Errorf("delete twice = %v", err)
	}
}
