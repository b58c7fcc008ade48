package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/memomeet/memomeet/domain/summary"
	"github.com/memomeet/memomeet/ports"
)

const summaryColumns = `id, account_id, source, content, tasks, created_at, updated_at`

// SummaryStore implements ports.SummaryStore using PostgreSQL.
type SummaryStore struct {
	db *DB
}

// NewSummaryStore creates a new PostgreSQL summary store.
func NewSummaryStore(db *DB) *SummaryStore {
	return &SummaryStore{db: db}
}

// Create stores a new summary.
func (s *SummaryStore) Create(ctx context.Context, sum summary.Summary) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO summaries (`+summaryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sum.ID, sum.AccountID, sum.Source, sum.Content, tasksOrEmpty(sum.Tasks), sum.CreatedAt, sum.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	return nil
}

// Get retrieves a summary by ID.
func (s *SummaryStore) Get(ctx context.Context, id string) (summary.Summary, error) {
	return scanSummary(s.db.Pool.QueryRow(ctx, `SELECT `+summaryColumns+` FROM summaries WHERE id = $1`, id))
}

// ListByAccount returns an account's summaries, newest first.
func (s *SummaryStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]summary.Summary, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+summaryColumns+`
		FROM summaries
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, accountID, lim)
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
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE summaries SET content = $1, tasks = $2, updated_at = $3 WHERE id = $4
	`, sum.Content, tasksOrEmpty(sum.Tasks), sum.UpdatedAt, sum.ID)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return summary.ErrNotFound
	}
	return nil
}

// Delete removes a summary.
func (s *SummaryStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM summaries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return summary.ErrNotFound
	}
	return nil
}

func scanSummary(row pgx.Row) (summary.Summary, error) {
	var sum summary.Summary
	err := row.Scan(&sum.ID, &sum.AccountID, &sum.Source, &sum.Content, &sum.Tasks, &sum.CreatedAt, &sum.UpdatedAt)
	if isNoRows(err) {
		return summary.Summary{}, summary.ErrNotFound
	}
	if err != nil {
		return summary.Summary{}, err
	}
	return sum, nil
}

func tasksOrEmpty(tasks []string) []string {
	if tasks == nil {
		return []string{}
	}
	return tasks
}

// Ensure interface compliance.
var _ ports.SummaryStore = (*SummaryStore)(nil)
