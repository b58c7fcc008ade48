package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/memomeet/memomeet/domain/summary"
	"github.com/memomeet/memomeet/ports"
)

const summaryColumns = `id, account_id, source, content, tasks, created_at, updated_at`

// SummaryStore implements ports.SummaryStore using SQLite.
type SummaryStore struct {
	db *DB
}

// NewSummaryStore creates a new SQLite summary store.
func NewSummaryStore(db *DB) *SummaryStore {
	return &SummaryStore{db: db}
}

// Create stores a new summary.
func (s *SummaryStore) Create(ctx context.Context, sum summary.Summary) error {
	tasks, err := encodeTasks(sum.Tasks)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO summaries (`+summaryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sum.ID, sum.AccountID, sum.Source, sum.Content, tasks, sum.CreatedAt, sum.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	return nil
}

// Get retrieves a summary by ID.
func (s *SummaryStore) Get(ctx context.Context, id string) (summary.Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM summaries WHERE id = ?`, id)
	sum, err := scanSummary(row)
	if err != nil {
		return summary.Summary{}, err
	}
	return sum, nil
}

// ListByAccount returns an account's summaries, newest first.
func (s *SummaryStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]summary.Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+summaryColumns+`
		FROM summaries
		WHERE account_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []summary.Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Update replaces the editable fields of a summary.
func (s *SummaryStore) Update(ctx context.Context, sum summary.Summary) error {
	tasks, err := encodeTasks(sum.Tasks)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE summaries SET content = ?, tasks = ?, updated_at = ? WHERE id = ?
	`, sum.Content, tasks, sum.UpdatedAt, sum.ID)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	return requireRow(result)
}

// Delete removes a summary.
func (s *SummaryStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM summaries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	return requireRow(result)
}

func requireRow(result interface{ RowsAffected() (int64, error) }) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return summary.ErrNotFound
	}
	return nil
}

func scanSummary(row scanner) (summary.Summary, error) {
	var sum summary.Summary
	var tasks string

	err := row.Scan(&sum.ID, &sum.AccountID, &sum.Source, &sum.Content, &tasks, &sum.CreatedAt, &sum.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return summary.Summary{}, summary.ErrNotFound
		}
		return summary.Summary{}, err
	}
	if err := json.Unmarshal([]byte(tasks), &sum.Tasks); err != nil {
		return summary.Summary{}, fmt.Errorf("decode tasks of %s: %w", sum.ID, err)
	}
	return sum, nil
}

func encodeTasks(tasks []string) (string, error) {
	if tasks == nil {
		tasks = []string{}
	}
	b, err := json.Marshal(tasks)
	if err != nil {
		return "", fmt.Errorf("encode tasks: %w", err)
	}
	return string(b), nil
}

// Ensure interface compliance.
var _ ports.SummaryStore = (*SummaryStore)(nil)
