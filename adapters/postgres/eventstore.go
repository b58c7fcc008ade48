package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/ports"
)

const eventColumns = `id, provider, type, raw_type, account_id, outcome, reason, processed_at`

// EventStore implements ports.EventStore using PostgreSQL.
type EventStore struct {
	db *DB
}

// NewEventStore creates a new PostgreSQL billing event store.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

// Get returns the record of a provider's event id.
func (s *EventStore) Get(ctx context.Context, provider, id string) (billing.EventRecord, error) {
	return scanEvent(s.db.Pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM billing_events WHERE provider = $1 AND id = $2`, provider, id))
}

// Apply mutates the account and records the event as applied in one transaction.
// The account row is locked first so a concurrent redelivery sees the committed record.
func (s *EventStore) Apply(ctx context.Context, rec billing.EventRecord, accountID string, fn account.Mutator) (account.Account, error) {
	var out account.Account
	err := pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&locked)
		if isNoRows(err) {
			return account.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}

		var outcome string
		err = tx.QueryRow(ctx, `SELECT outcome FROM billing_events WHERE provider = $1 AND id = $2`, rec.Provider, rec.ID).Scan(&outcome)
		switch {
		case err == nil && outcome == string(billing.OutcomeApplied):
			return billing.ErrDuplicateEvent
		case err != nil && !isNoRows(err):
			return fmt.Errorf("check event: %w", err)
		}

		a, err := updateAccount(ctx, tx, accountID, fn)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO billing_events (`+eventColumns+`)
			VALUES ($1, $2, $3, $4, $5, 'applied', $6, $7)
			ON CONFLICT (provider, id) DO UPDATE SET
				account_id = EXCLUDED.account_id,
				outcome = EXCLUDED.outcome,
				reason = EXCLUDED.reason,
				processed_at = EXCLUDED.processed_at
			WHERE billing_events.outcome <> 'applied'
		`, rec.ID, rec.Provider, string(rec.Type), rec.RawType, accountID, rec.Reason, rec.ProcessedAt)
		if err != nil {
			return fmt.Errorf("record event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return billing.ErrDuplicateEvent
		}

		out = a
		return nil
	})
	if err != nil {
		return account.Account{}, err
	}
	return out, nil
}

// RecordRejected stores a rejected record unless the event was already applied.
func (s *EventStore) RecordRejected(ctx context.Context, rec billing.EventRecord) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO billing_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, 'rejected', $6, $7)
		ON CONFLICT (provider, id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			reason = EXCLUDED.reason,
			processed_at = EXCLUDED.processed_at
		WHERE billing_events.outcome <> 'applied'
	`, rec.ID, rec.Provider, string(rec.Type), rec.RawType, nullString(rec.AccountID), rec.Reason, rec.ProcessedAt)
	if err != nil {
		return fmt.Errorf("record rejected event: %w", err)
	}
	return nil
}

// List returns the most recent records, optionally for one account.
func (s *EventStore) List(ctx context.Context, accountID string, limit int) ([]billing.EventRecord, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM billing_events
		WHERE $1 = '' OR account_id = $1
		ORDER BY processed_at DESC
		LIMIT $2
	`, accountID, lim)
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

func scanEvent(row pgx.Row) (billing.EventRecord, error) {
	var r billing.EventRecord
	var typ, outcome string
	var accountID *string

	err := row.Scan(&r.ID, &r.Provider, &typ, &r.RawType, &accountID, &outcome, &r.Reason, &r.ProcessedAt)
	if isNoRows(err) {
		return billing.EventRecord{}, billing.ErrEventNotFound
	}
	if err != nil {
		return billing.EventRecord{}, err
	}

	r.Type = billing.EventType(typ)
	r.Outcome = billing.Outcome(outcome)
	if accountID != nil {
		r.AccountID = *accountID
	}
	return r, nil
}

// Ensure interface compliance.
var _ ports.EventStore = (*EventStore)(nil)
