package payment

import (
	"fmt"

	"github.com/memomeet/memomeet/ports"
)

// Config selects and configures the payment provider.
type Config struct {
	Mode          string // "stripe", "dummy", "none"
	SecretKey     string
	PublicKey     string
	WebhookSecret string
}

// NewProvider creates a payment provider based on config.
func NewProvider(cfg Config) (ports.PaymentProvider, error) {
	switch cfg.Mode {
	case "stripe":
		if cfg.SecretKey == "" {
			return nil, fmt.Errorf("stripe secret key is required")
		}
		if cfg.WebhookSecret == "" {
			return nil, fmt.Errorf("stripe webhook secret is required")
		}
		return NewStripeProvider(StripeConfig{
			SecretKey:     cfg.SecretKey,
			PublicKey:     cfg.PublicKey,
			WebhookSecret: cfg.WebhookSecret,
		}), nil

	case "dummy", "test":
		if cfg.WebhookSecret == "" {
			return nil, fmt.Errorf("dummy webhook secret is required")
		}
		return NewDummyProvider(cfg.WebhookSecret), nil

	case "none", "":
		return NewNoopProvider(), nil

	default:
		return nil, fmt.Errorf("unknown payment provider: %s", cfg.Mode)
	}
}
