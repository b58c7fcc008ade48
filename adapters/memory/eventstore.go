package memory

import (
	"context"
	"sync"

	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/ports"
)

// EventStore is an in-memory implementation of ports.EventStore.
// It shares the account locks of the AccountStore it was built on.
type EventStore struct {
	mu       sync.Mutex
	accounts *AccountStore
	records  map[eventKey]billing.EventRecord
	order    []eventKey
}

type eventKey struct {
	provider string
	id       string
}

func keyOf(rec billing.EventRecord) eventKey {
	return eventKey{provider: rec.Provider, id: rec.ID}
}

// NewEventStore creates an event store applying mutations to accounts.
func NewEventStore(accounts *AccountStore) *EventStore {
	return &EventStore{
		accounts: accounts,
		records:  make(map[eventKey]billing.EventRecord),
	}
}

// Get returns the record of a provider's event id.
func (s *EventStore) Get(ctx context.Context, provider, id string) (billing.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[eventKey{provider: provider, id: id}]
	if !ok {
		return billing.EventRecord{}, billing.ErrEventNotFound
	}
	return r, nil
}

// Apply mutates the account and records the event as applied in one step.
func (s *EventStore) Apply(ctx context.Context, rec billing.EventRecord, accountID string, fn account.Mutator) (account.Account, error) {
	l := s.accounts.lockFor(accountID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.records[keyOf(rec)]; ok && prev.Outcome == billing.OutcomeApplied {
		return account.Account{}, billing.ErrDuplicateEvent
	}

	a, err := s.accounts.updateLocked(accountID, fn)
	if err != nil {
		return account.Account{}, err
	}

	rec.Outcome = billing.OutcomeApplied
	rec.AccountID = accountID
	s.put(rec)
	return a, nil
}

// RecordRejected stores a rejected record unless the event was already applied.
func (s *EventStore) RecordRejected(ctx context.Context, rec billing.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.records[keyOf(rec)]; ok && prev.Outcome == billing.OutcomeApplied {
		return nil
	}
	rec.Outcome = billing.OutcomeRejected
	s.put(rec)
	return nil
}

func (s *EventStore) put(rec billing.EventRecord) {
	k := keyOf(rec)
	if _, ok := s.records[k]; !ok {
		s.order = append(s.order, k)
	}
	s.records[k] = rec
}

// List returns the most recent records, newest first.
func (s *EventStore) List(ctx context.Context, accountID string, limit int) ([]billing.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []billing.EventRecord
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.records[s.order[i]]
		if accountID != "" && r.AccountID != accountID {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Ensure interface compliance.
var _ ports.EventStore = (*EventStore)(nil)
