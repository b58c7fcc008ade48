package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/memomeet/memomeet/domain/summary"
	"github.com/memomeet/memomeet/ports"
)

// SummaryStore is an in-memory implementation of ports.SummaryStore.
type SummaryStore struct {
	mu        sync.RWMutex
	summaries map[string]summary.Summary
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{summaries: make(map[string]summary.Summary)}
}

// Create stores a new summary.
func (s *SummaryStore) Create(ctx context.Context, sum summary.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[sum.ID] = clone(sum)
	return nil
}

// Get retrieves a summary by ID.
func (s *SummaryStore) Get(ctx context.Context, id string) (summary.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, ok := s.summaries[id]
	if !ok {
		return summary.Summary{}, summary.ErrNotFound
	}
	return clone(sum), nil
}

// ListByAccount returns an account's summaries, newest first.
func (s *SummaryStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]summary.Summary, error) {
	s.mu.RLock()
	var out []summary.Summary
	for _, sum := range s.summaries {
		if sum.AccountID == accountID {
			out = append(out, clone(sum))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Update replaces an existing summary.
func (s *SummaryStore) Update(ctx context.Context, sum summary.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.summaries[sum.ID]; !ok {
		return summary.ErrNotFound
	}
	s.summaries[sum.ID] = clone(sum)
	return nil
}

// Delete removes a summary.
func (s *SummaryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.summaries[id]; !ok {
		return summary.ErrNotFound
	}
	delete(s.summaries, id)
	return nil
}

func clone(s summary.Summary) summary.Summary {
	s.Tasks = append([]string(nil), s.Tasks...)
	return s
}

// Ensure interface compliance.
var _ ports.SummaryStore = (*SummaryStore)(nil)
