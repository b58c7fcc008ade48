package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/ports"
)

const accountColumns = `id, credits, tier, unlimited, customer_ref, subscription_ref,
	ended_subscription_ref, tier_changed_at, reserved, reserved_until, created_at, updated_at`

// AccountStore implements ports.AccountStore using PostgreSQL.
type AccountStore struct {
	db *DB
}

// NewAccountStore creates a new PostgreSQL account store.
func NewAccountStore(db *DB) *AccountStore {
	return &AccountStore{db: db}
}

// Get retrieves an account by ID.
func (s *AccountStore) Get(ctx context.Context, id string) (account.Account, error) {
	return scanAccount(s.db.Pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// GetByCustomerRef retrieves an account by its payment customer.
func (s *AccountStore) GetByCustomerRef(ctx context.Context, customerRef string) (account.Account, error) {
	if customerRef == "" {
		return account.Account{}, account.ErrNotFound
	}
	return scanAccount(s.db.Pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE customer_ref = $1`, customerRef))
}

// Create inserts a fresh account or returns the existing one.
func (s *AccountStore) Create(ctx context.Context, id string) (account.Account, error) {
	a := account.New(id, time.Now().UTC())
	if err := a.Validate(); err != nil {
		return account.Account{}, err
	}

	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO accounts (id, credits, tier, unlimited, reserved, created_at, updated_at)
		VALUES ($1, 0, $2, FALSE, 0, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, a.ID, string(a.Tier), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return account.Account{}, fmt.Errorf("create account: %w", err)
	}
	return s.Get(ctx, id)
}

// Update applies fn while holding the account row lock.
func (s *AccountStore) Update(ctx context.Context, id string, fn account.Mutator) (account.Account, error) {
	var out account.Account
	err := pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		a, err := updateAccount(ctx, tx, id, fn)
		out = a
		return err
	})
	if err != nil {
		return account.Account{}, err
	}
	return out, nil
}

// List returns accounts ordered by creation time.
func (s *AccountStore) List(ctx context.Context, limit, offset int) ([]account.Account, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, lim, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count returns the number of accounts.
func (s *AccountStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)
	return count, err
}

// updateAccount runs the read-modify-write cycle inside tx.
func updateAccount(ctx context.Context, q querier, id string, fn account.Mutator) (account.Account, error) {
	cur, err := scanAccount(q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return account.Account{}, err
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
	next.UpdatedAt = time.Now().UTC()

	_, err = q.Exec(ctx, `
		UPDATE accounts
		SET credits = $1, tier = $2, unlimited = $3, customer_ref = $4, subscription_ref = $5,
		    ended_subscription_ref = $6, tier_changed_at = $7,
		    reserved = $8, reserved_until = $9, updated_at = $10
		WHERE id = $11
	`, next.Credits, string(next.Tier), next.Unlimited, nullString(next.CustomerRef), nullString(next.SubscriptionRef),
		nullString(next.EndedSubscriptionRef), nullTime(next.TierChangedAt),
		next.Reserved, nullTime(next.ReservedUntil), next.UpdatedAt, id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return account.Account{}, account.ErrCustomerRefInUse
		}
		return account.Account{}, fmt.Errorf("update account: %w", err)
	}
	return next, nil
}

func scanAccount(row pgx.Row) (account.Account, error) {
	var a account.Account
	var tier string
	var customerRef, subscriptionRef, endedRef *string
	var tierChangedAt, reservedUntil *time.Time

	err := row.Scan(
		&a.ID, &a.Credits, &tier, &a.Unlimited, &customerRef, &subscriptionRef,
		&endedRef, &tierChangedAt, &a.Reserved, &reservedUntil, &a.CreatedAt, &a.UpdatedAt,
	)
	if isNoRows(err) {
		return account.Account{}, account.ErrNotFound
	}
	if err != nil {
		return account.Account{}, err
	}

	a.Tier = account.Tier(tier)
	if customerRef != nil {
		a.CustomerRef = *customerRef
	}
	if subscriptionRef != nil {
		a.SubscriptionRef = *subscriptionRef
	}
	if endedRef != nil {
		a.EndedSubscriptionRef = *endedRef
	}
	if tierChangedAt != nil {
		a.TierChangedAt = tierChangedAt.UTC()
	}
	if reservedUntil != nil {
		a.ReservedUntil = *reservedUntil
	}
	return a, nil
}

// Ensure interface compliance.
var _ ports.AccountStore = (*AccountStore)(nil)
