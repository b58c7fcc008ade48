package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/ports"
)

const accountColumns = `id, credits, tier, unlimited, customer_ref, subscription_ref,
	ended_subscription_ref, tier_changed_at, reserved, reserved_until, created_at, updated_at`

// AccountStore implements ports.AccountStore using SQLite.
type AccountStore struct {
	db *DB
}

// NewAccountStore creates a new SQLite account store.
func NewAccountStore(db *DB) *AccountStore {
	return &AccountStore{db: db}
}

// Get retrieves an account by ID.
func (s *AccountStore) Get(ctx context.Context, id string) (account.Account, error) {
	return getAccount(ctx, s.db, id)
}

// GetByCustomerRef retrieves an account by its payment customer.
func (s *AccountStore) GetByCustomerRef(ctx context.Context, customerRef string) (account.Account, error) {
	if customerRef == "" {
		return account.Account{}, account.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE customer_ref = ?`, customerRef)
	return scanAccount(row)
}

// Create inserts a fresh account or returns the existing one.
func (s *AccountStore) Create(ctx context.Context, id string) (account.Account, error) {
	a := account.New(id, time.Now().UTC())
	if err := a.Validate(); err != nil {
		return account.Account{}, err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, credits, tier, unlimited, reserved, created_at, updated_at)
		VALUES (?, 0, ?, 0, 0, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, a.ID, string(a.Tier), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return account.Account{}, fmt.Errorf("create account: %w", err)
	}
	return s.Get(ctx, id)
}

// Update applies fn inside an immediate transaction.
func (s *AccountStore) Update(ctx context.Context, id string, fn account.Mutator) (account.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return account.Account{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	a, err := updateAccount(ctx, tx, id, fn)
	if err != nil {
		return account.Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return account.Account{}, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

// List returns accounts ordered by creation time.
func (s *AccountStore) List(ctx context.Context, limit, offset int) ([]account.Account, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY created_at, id
		LIMIT ? OFFSET ?
	`, limit, offset)
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
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)
	return count, err
}

// updateAccount runs the read-modify-write cycle on q, which must be a transaction.
func updateAccount(ctx context.Context, q querier, id string, fn account.Mutator) (account.Account, error) {
	cur, err := getAccount(ctx, q, id)
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

	_, err = q.ExecContext(ctx, `
		UPDATE accounts
		SET credits = ?, tier = ?, unlimited = ?, customer_ref = ?, subscription_ref = ?,
		    ended_subscription_ref = ?, tier_changed_at = ?,
		    reserved = ?, reserved_until = ?, updated_at = ?
		WHERE id = ?
	`, next.Credits, string(next.Tier), next.Unlimited, nullString(next.CustomerRef), nullString(next.SubscriptionRef),
		nullString(next.EndedSubscriptionRef), nullTime(next.TierChangedAt),
		next.Reserved, nullTime(next.ReservedUntil), next.UpdatedAt, id)
	if err != nil {
		if isUniqueConstraintError(err) {
			return account.Account{}, account.ErrCustomerRefInUse
		}
		return account.Account{}, fmt.Errorf("update account: %w", err)
	}
	return next, nil
}

func getAccount(ctx context.Context, q querier, id string) (account.Account, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (account.Account, error) {
	var a account.Account
	var tier string
	var customerRef, subscriptionRef, endedRef sql.NullString
	var tierChangedAt, reservedUntil sql.NullTime

	err := row.Scan(
		&a.ID, &a.Credits, &tier, &a.Unlimited, &customerRef, &subscriptionRef,
		&endedRef, &tierChangedAt, &a.Reserved, &reservedUntil, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Account{}, account.ErrNotFound
	}
	if err != nil {
		return account.Account{}, err
	}

	a.Tier = account.Tier(tier)
	a.CustomerRef = customerRef.String
	a.SubscriptionRef = subscriptionRef.String
	a.EndedSubscriptionRef = endedRef.String
	if tierChangedAt.Valid {
		a.TierChangedAt = tierChangedAt.Time.UTC()
	}
	if reservedUntil.Valid {
		a.ReservedUntil = reservedUntil.Time
	}
	return a, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// Ensure interface compliance.
var _ ports.AccountStore = (*AccountStore)(nil)
