package bootstrap

import (
	"fmt"
	"net/http"

	"github.com/memomeet/memomeet/adapters/export"
	"github.com/memomeet/memomeet/adapters/metrics"
	"github.com/memomeet/memomeet/adapters/payment"
	"github.com/memomeet/memomeet/adapters/summarizer"
	"github.com/memomeet/memomeet/config"
	"github.com/memomeet/memomeet/ports"
	"github.com/rs/zerolog"
)

// Capabilities holds the external providers selected by configuration.
type Capabilities struct {
	Payment    ports.PaymentProvider
	Summarizer ports.Summarizer
	Exporter   ports.DocumentExporter
}

// WebhookProviders returns the providers that accept webhooks.
// A disabled payment processor receives none.
func (c *Capabilities) WebhookProviders() []ports.PaymentProvider {
	if _, disabled := c.Payment.(*payment.NoopProvider); disabled {
		return nil
	}
	return []ports.PaymentProvider{c.Payment}
}

// NewCapabilities builds the payment, summarization and export providers.
// Summarizer calls are reported to m when it is non-nil.
func NewCapabilities(cfg *config.Config, m *metrics.Collector, logger zerolog.Logger) (*Capabilities, error) {
	pay, err := payment.NewProvider(payment.Config{
		Mode:          cfg.Billing.Mode,
		SecretKey:     cfg.Billing.StripeSecretKey,
		PublicKey:     cfg.Billing.StripePublicKey,
		WebhookSecret: cfg.Billing.WebhookSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("payment provider: %w", err)
	}

	sum, err := summarizer.New(summarizer.Config{
		Mode: cfg.Summarizer.Mode,
		OpenAIConfig: summarizer.OpenAIConfig{
			APIKey:          cfg.Summarizer.APIKey,
			BaseURL:         cfg.Summarizer.BaseURL,
			TranscribeModel: cfg.Summarizer.TranscribeModel,
			ChatModel:       cfg.Summarizer.ChatModel,
			Language:        cfg.Summarizer.Language,
			MaxTokens:       cfg.Summarizer.MaxTokens,
			HTTPClient:      &http.Client{Timeout: cfg.Summarizer.Timeout},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("summarizer: %w", err)
	}
	if m != nil {
		sum = summarizer.Instrument(sum, m)
	}

	exp, err := export.New(cfg.Export.Mode, cfg.Export.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("exporter: %w", err)
	}

	logger.Info().
		Str("payment", pay.Name()).
		Str("summarizer", cfg.Summarizer.Mode).
		Str("export", cfg.Export.Mode).
		Msg("providers configured")

	return &Capabilities{Payment: pay, Summarizer: sum, Exporter: exp}, nil
}
