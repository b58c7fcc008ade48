// Package app contains the application services. They orchestrate the pure
// domain functions and perform I/O through the ports.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/ports"
	"github.com/rs/zerolog"
)

// AccountService exposes account snapshots and operator corrections.
type AccountService struct {
	accounts ports.AccountStore
	events   ports.EventStore
	idGen    ports.IDGenerator
	clock    ports.Clock
	metrics  ports.BillingMetrics
	logger   zerolog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(
	accounts ports.AccountStore,
	events ports.EventStore,
	idGen ports.IDGenerator,
	clock ports.Clock,
	metrics ports.BillingMetrics,
	logger zerolog.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		events:   events,
		idGen:    idGen,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
	}
}

// Ensure returns the account, creating it on first sight.
func (s *AccountService) Ensure(ctx context.Context, id string) (account.Account, error) {
	a, err := s.accounts.Get(ctx, id)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, account.ErrNotFound) {
		return account.Account{}, err
	}

	a, err = s.accounts.Create(ctx, id)
	if err != nil {
		return account.Account{}, fmt.Errorf("create account: %w", err)
	}
	s.logger.Info().Str("account_id", id).Msg("account created")
	return a, nil
}

// Snapshot returns the current entitlement view of an account.
func (s *AccountService) Snapshot(ctx context.Context, id string) (account.View, error) {
	a, err := s.Ensure(ctx, id)
	if err != nil {
		return account.View{}, err
	}
	return account.Project(a, s.clock.Now()), nil
}

// Get returns an existing account.
func (s *AccountService) Get(ctx context.Context, id string) (account.Account, error) {
	return s.accounts.Get(ctx, id)
}

// List returns a page of accounts and the total count.
func (s *AccountService) List(ctx context.Context, limit, offset int) ([]account.Account, int, error) {
	accounts, err := s.accounts.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.accounts.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// Grant adds n credits on behalf of an operator. The adjustment is recorded
// in the billing event log together with the note.
func (s *AccountService) Grant(ctx context.Context, id string, n int64, note string) (account.Account, error) {
	a, err := s.adjust(ctx, id, "grant", note, func(a account.Account) (account.Account, error) {
		return account.GrantCredits(a, n)
	})
	if err != nil {
		return account.Account{}, err
	}
	s.metrics.CreditsGranted("operator", n)
	s.logger.Info().Str("account_id", id).Int64("amount", n).Str("note", note).Msg("credits granted by operator")
	return a, nil
}

// Debit removes n credits on behalf of an operator, e.g. to settle a reconciliation.
func (s *AccountService) Debit(ctx context.Context, id string, n int64, note string) (account.Account, error) {
	a, err := s.adjust(ctx, id, "debit", note, func(a account.Account) (account.Account, error) {
		return account.DebitCredits(a, n)
	})
	if err != nil {
		return account.Account{}, err
	}
	s.logger.Info().Str("account_id", id).Int64("amount", n).Str("note", note).Msg("credits debited by operator")
	return a, nil
}

func (s *AccountService) adjust(ctx context.Context, id, kind, note string, fn account.Mutator) (account.Account, error) {
	rec := billing.EventRecord{
		ID:          "op_" + s.idGen.New(),
		Provider:    "operator",
		Type:        billing.EventOperatorAdjustment,
		RawType:     kind,
		AccountID:   id,
		Reason:      note,
		ProcessedAt: s.clock.Now(),
	}
	a, err := s.events.Apply(ctx, rec, id, fn)
	if err != nil {
		return account.Account{}, fmt.Errorf("%s credits for %s: %w", kind, id, err)
	}
	return a, nil
}

// Events returns the most recent billing records, optionally for one account.
func (s *AccountService) Events(ctx context.Context, accountID string, limit int) ([]billing.EventRecord, error) {
	return s.events.List(ctx, accountID, limit)
}
