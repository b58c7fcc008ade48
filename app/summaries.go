package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/memomeet/memomeet/domain/summary"
	"github.com/memomeet/memomeet/ports"
	"github.com/rs/zerolog"
)

// defaultListLimit bounds the summaries returned by List.
const defaultListLimit = 100

// ErrEmptyUpload is returned when a summary is requested without audio.
var ErrEmptyUpload = errors.New("audio file is required")

// Upload is one meeting recording handed to the summarizer.
type Upload struct {
	Audio    io.Reader
	Filename string
	MimeType string
}

// SummaryService runs paid summarizations and manages the stored summaries.
type SummaryService struct {
	store      ports.SummaryStore
	accounts   *AccountService
	gate       *UsageGate
	summarizer ports.Summarizer
	exporter   ports.DocumentExporter
	idGen      ports.IDGenerator
	clock      ports.Clock
	logger     zerolog.Logger
}

// NewSummaryService creates a new summary service.
func NewSummaryService(
	store ports.SummaryStore,
	accounts *AccountService,
	gate *UsageGate,
	summarizer ports.Summarizer,
	exporter ports.DocumentExporter,
	idGen ports.IDGenerator,
	clock ports.Clock,
	logger zerolog.Logger,
) *SummaryService {
	return &SummaryService{
		store:      store,
		accounts:   accounts,
		gate:       gate,
		summarizer: summarizer,
		exporter:   exporter,
		idGen:      idGen,
		clock:      clock,
		logger:     logger,
	}
}

// Create transcribes and summarizes the upload for one credit.
// A *ReconciliationError is returned together with the stored summary when the
// debit could not be committed.
func (s *SummaryService) Create(ctx context.Context, accountID string, up Upload) (summary.Summary, error) {
	if up.Audio == nil {
		return summary.Summary{}, ErrEmptyUpload
	}
	if _, err := s.accounts.Ensure(ctx, accountID); err != nil {
		return summary.Summary{}, err
	}

	log := s.logger.With().Str("account_id", accountID).Str("file", up.Filename).Logger()

	var stored string
	result, err := WithCredit(ctx, s.gate, accountID, func(ctx context.Context) (summary.Summary, error) {
		transcript, err := s.summarizer.Transcribe(ctx, up.Audio, up.Filename, up.MimeType)
		if err != nil {
			return summary.Summary{}, fmt.Errorf("transcribe: %w", err)
		}
		if strings.TrimSpace(transcript) == "" {
			return summary.Summary{}, fmt.Errorf("transcribe: %w", ErrEmptyUpload)
		}

		draft, err := s.summarizer.Summarize(ctx, transcript)
		if err != nil {
			return summary.Summary{}, fmt.Errorf("summarize: %w", err)
		}

		now := s.clock.Now()
		sum := summary.Summary{
			ID:        s.idGen.New(),
			AccountID: accountID,
			Source:    up.Filename,
			Content:   draft.Content,
			Tasks:     draft.Tasks,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := ctx.Err(); err != nil {
			return summary.Summary{}, err
		}
		if err := s.store.Create(ctx, sum); err != nil {
			return summary.Summary{}, fmt.Errorf("store summary: %w", err)
		}
		stored = sum.ID
		return sum, nil
	})
	if err != nil {
		var recon *ReconciliationError
		if errors.As(err, &recon) {
			return result, err
		}
		if stored != "" {
			// The deadline passed after the summary was written and nothing was debited.
			s.discard(ctx, log, stored)
		}
		log.Warn().Err(err).Msg("summarization failed")
		return summary.Summary{}, err
	}

	log.Info().Str("summary_id", result.ID).Int("tasks", len(result.Tasks)).Msg("summary created")
	return result, nil
}

func (s *SummaryService) discard(ctx context.Context, log zerolog.Logger, id string) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()
	if err := s.store.Delete(bg, id); err != nil && !errors.Is(err, summary.ErrNotFound) {
		log.Error().Err(err).Str("summary_id", id).Msg("failed to discard unpaid summary")
	}
}

// List returns the account's summaries, newest first.
func (s *SummaryService) List(ctx context.Context, accountID string) ([]summary.Summary, error) {
	items, err := s.store.ListByAccount(ctx, accountID, defaultListLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []summary.Summary{}
	}
	return items, nil
}

// Get returns one summary owned by accountID. Summaries of other accounts are not found.
func (s *SummaryService) Get(ctx context.Context, accountID, id string) (summary.Summary, error) {
	sum, err := s.store.Get(ctx, id)
	if err != nil {
		return summary.Summary{}, err
	}
	if sum.AccountID != accountID {
		return summary.Summary{}, summary.ErrNotFound
	}
	return sum, nil
}

// Update applies an edit to an owned summary.
func (s *SummaryService) Update(ctx context.Context, accountID, id string, p summary.Patch) (summary.Summary, error) {
	sum, err := s.Get(ctx, accountID, id)
	if err != nil {
		return summary.Summary{}, err
	}
	next, err := p.Apply(sum, s.clock.Now())
	if err != nil {
		return summary.Summary{}, err
	}
	if err := s.store.Update(ctx, next); err != nil {
		return summary.Summary{}, err
	}
	return next, nil
}

// Delete removes an owned summary.
func (s *SummaryService) Delete(ctx context.Context, accountID, id string) error {
	if _, err := s.Get(ctx, accountID, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("account_id", accountID).Str("summary_id", id).Msg("summary deleted")
	return nil
}

// Export publishes an owned summary with the user's document-service token.
func (s *SummaryService) Export(ctx context.Context, accountID, id, accessToken string) (string, error) {
	sum, err := s.Get(ctx, accountID, id)
	if err != nil {
		return "", err
	}
	url, err := s.exporter.Export(ctx, accessToken, summary.NewDocument(sum, s.clock.Now()))
	if err != nil {
		return "", fmt.Errorf("export summary: %w", err)
	}
	s.logger.Info().Str("account_id", accountID).Str("summary_id", id).Msg("summary exported")
	return url, nil
}
