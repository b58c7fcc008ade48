package app_test

import (
	"context"
	"sync"
	"testing"

	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/ports"
)

// recordingMetrics is a ports.BillingMetrics that remembers every call.
type recordingMetrics struct {
	mu              sync.Mutex
	webhooks        []billing.Outcome
	gate            map[string]int
	reconciliations int
	granted         map[string]int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{gate: map[string]int{}, granted: map[string]int64{}}
}

func (m *recordingMetrics) WebhookProcessed(provider string, eventType billing.EventType, outcome billing.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webhooks = append(m.webhooks, outcome)
}

func (m *recordingMetrics) GateOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate[outcome]++
}

func (m *recordingMetrics) ReconciliationRequired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconciliations++
}

func (m *recordingMetrics) CreditsGranted(source string, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.granted[source] += n
}

func (m *recordingMetrics) gateCount(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gate[outcome]
}

var _ ports.BillingMetrics = (*recordingMetrics)(nil)

// seedAccount creates id with credits, tier and unlimited flag.
func seedAccount(t *testing.T, store ports.AccountStore, id string, credits int64, tier account.Tier) account.Account {
	t.Helper()
	ctx := context.Background()
	if _, err := store.Create(ctx, id); err != nil {
		t.Fatalf("create account: %v", err)
	}
	a, err := store.Update(ctx, id, func(a account.Account) (account.Account, error) {
		a.Credits = credits
		return account.SetTier(a, tier, tier == account.TierPro)
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

func mustGet(t *testing.T, store ports.AccountStore, id string) account.Account {
	t.Helper()
	a, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get account %s: %v", id, err)
	}
	return a
}
