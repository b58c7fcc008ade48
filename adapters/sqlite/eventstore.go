package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/ports"
)

const eventColumns = `id, provider, type, raw_type, account_id, outcome, reason, processed_at`

// EventStore implements ports.EventStore using SQLite.
type EventStore struct {
	db *DB
}

// NewEventStore creates a new SQLite billing event store.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

// Get returns the record of a provider's event id.
func (s *EventStore) Get(ctx context.Context, provider, id string) (billing.EventRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM billing_events WHERE provider = ? AND id = ?`, provider, id)
	return scanEvent(row)
}

// Apply mutates the account and records the event as applied in one transaction.
func (s *EventStore) Apply(ctx context.Context, rec billing.EventRecord, accountID string, fn account.Mutator) (account.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return account.Account{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var outcome string
	err = tx.QueryRowContext(ctx, `SELECT outcome FROM billing_events WHERE provider = ? AND id = ?`, rec.Provider, rec.ID).Scan(&outcome)
	switch {
	case err == nil && outcome == string(billing.OutcomeApplied):
		return account.Account{}, billing.ErrDuplicateEvent
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return account.Account{}, fmt.Errorf("check event: %w", err)
	}

	a, err := updateAccount(ctx, tx, accountID, fn)
	if err != nil {
		return account.Account{}, err
	}

	rec.Outcome = billing.OutcomeApplied
	rec.AccountID = accountID
	_, err = tx.ExecContext(ctx, `
		INSERT INTO billing_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider, id) DO UPDATE SET
			account_id = excluded.account_id,
			outcome = excluded.outcome,
			reason = excluded.reason,
			processed_at = excluded.processed_at
	`, rec.ID, rec.Provider, string(rec.Type), rec.RawType, nullString(rec.AccountID),
		string(rec.Outcome), rec.Reason, rec.ProcessedAt)
	if err != nil {
		return account.Account{}, fmt.Errorf("record event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return account.Account{}, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

// RecordRejected stores a rejected record unless the event was already applied.
func (s *EventStore) RecordRejected(ctx context.Context, rec billing.EventRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO billing_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, 'rejected', ?, ?)
		ON CONFLICT(provider, id) DO UPDATE SET
			account_id = excluded.account_id,
			reason = excluded.reason,
			processed_at = excluded.processed_at
		WHERE billing_events.outcome <> 'applied'
	`, rec.ID, rec.Provider, string(rec.Type), rec.RawType, nullString(rec.AccountID), rec.Reason, rec.ProcessedAt)
	if err != nil {
		return fmt.Errorf("record rejected event: %w", err)
	}
	return nil
}

// List returns the most recent records, optionally for one account.
func (s *EventStore) List(ctx context.Context, accountID string, limit int) ([]billing.EventRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + eventColumns + ` FROM billing_events`
	args := []any{}
	if accountID != "" {
		query += ` WHERE account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY processed_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []billing.EventRecord
	for rows.Next() {
		r, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanEvent(row scanner) (billing.EventRecord, error) {
	var r billing.EventRecord
	var typ, outcome string
	var accountID sql.NullString

	err := row.Scan(&r.ID, &r.Provider, &typ, &r.RawType, &accountID, &outcome, &r.Reason, &r.ProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.EventRecord{}, billing.ErrEventNotFound
	}
	if err != nil {
		return billing.EventRecord{}, err
	}

	r.Type = billing.EventType(typ)
	r.Outcome = billing.Outcome(outcome)
	r.AccountID = accountID.String
	return r, nil
}

// Ensure interface compliance.
var _ ports.EventStore = (*EventStore)(nil)
