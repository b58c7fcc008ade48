// Package memory provides in-memory store implementations for tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/ports"
)

// AccountStore is an in-memory implementation of ports.AccountStore.
// Updates of one account are serialized by a per-account mutex.
type AccountStore struct {
	mu         sync.RWMutex
	accounts   map[string]account.Account
	byCustomer map[string]string // customer ref -> account ID
	locks      map[string]*sync.Mutex
	now        func() time.Time
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts:   make(map[string]account.Account),
		byCustomer: make(map[string]string),
		locks:      make(map[string]*sync.Mutex),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Get retrieves an account by ID.
func (s *AccountStore) Get(ctx context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return a, nil
}

// GetByCustomerRef retrieves an account by its payment customer.
func (s *AccountStore) GetByCustomerRef(ctx context.Context, customerRef string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCustomer[customerRef]
	if !ok || customerRef == "" {
		return account.Account{}, account.ErrNotFound
	}
	return s.accounts[id], nil
}

// Create inserts a fresh account or returns the existing one.
func (s *AccountStore) Create(ctx context.Context, id string) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.accounts[id]; ok {
		return a, nil
	}
	a := account.New(id, s.now())
	if err := a.Validate(); err != nil {
		return account.Account{}, err
	}
	s.accounts[id] = a
	return a, nil
}

// Update applies fn under the account's lock.
func (s *AccountStore) Update(ctx context.Context, id string, fn account.Mutator) (account.Account, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return account.Account{}, err
	}
	return s.updateLocked(id, fn)
}

// updateLocked requires the caller to hold the account's lock.
func (s *AccountStore) updateLocked(id string, fn account.Mutator) (account.Account, error) {
	s.mu.RLock()
	cur, ok := s.accounts[id]
	s.mu.RUnlock()
	if !ok {
		return account.Account{}, account.ErrNotFound
	}

	next, err := fn(cur)
	if err != nil {
		return account.Account{}, err
	}
	if next.ID != id {
		return account.Account{}, fmt.Errorf("mutator changed account id %q to %q", id, next.ID)
	}
	if err := next.Validate(); err != nil {
		return account.Account{}, err
	}
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if next.CustomerRef != cur.CustomerRef {
		if owner, taken := s.byCustomer[next.CustomerRef]; taken && owner != id {
			return account.Account{}, account.ErrCustomerRefInUse
		}
		delete(s.byCustomer, cur.CustomerRef)
		if next.CustomerRef != "" {
			s.byCustomer[next.CustomerRef] = id
		}
	}
	s.accounts[id] = next
	return next, nil
}

// lockFor returns the account's mutex. Entries are never removed, so the map
// grows with the set of ids ever updated, like the accounts map itself.
func (s *AccountStore) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// List returns accounts ordered by creation time.
func (s *AccountStore) List(ctx context.Context, limit, offset int) ([]account.Account, error) {
	s.mu.RLock()
	all := make([]account.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		all = append(all, a)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Count returns the number of accounts.
func (s *AccountStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts), nil
}

// Ensure interface compliance.
var _ ports.AccountStore = (*AccountStore)(nil)
