package payment

import (
	"context"
	"errors"

	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/ports"
)

var (
	// ErrPaymentsDisabled is returned when payments are not configured.
	ErrPaymentsDisabled = errors.New("payments are not configured")
)

// NoopProvider is a no-op payment provider for when payments are disabled.
type NoopProvider struct{}

// NewNoopProvider creates a new no-op payment provider.
func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

// Name returns the provider name.
func (p *NoopProvider) Name() string {
	return "none"
}

// CreateCustomer returns an error as payments are disabled.
func (p *NoopProvider) CreateCustomer(ctx context.Context, accountID, email string) (string, error) {
	return "", ErrPaymentsDisabled
}

// CreateCheckoutSession returns an error as payments are disabled.
func (p *NoopProvider) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (string, error) {
	return "", ErrPaymentsDisabled
}

// CancelActiveSubscription returns an error as payments are disabled.
func (p *NoopProvider) CancelActiveSubscription(ctx context.Context, customerRef string) (string, error) {
	return "", ErrPaymentsDisabled
}

// SubscriptionPrice returns an error as payments are disabled.
func (p *NoopProvider) SubscriptionPrice(ctx context.Context, subscriptionRef string) (string, error) {
	return "", ErrPaymentsDisabled
}

// ListInvoices returns no invoices.
func (p *NoopProvider) ListInvoices(ctx context.Context, customerRef string, limit int) ([]billing.Invoice, error) {
	return nil, nil
}

// ParseWebhook rejects every payload as payments are disabled.
func (p *NoopProvider) ParseWebhook(payload []byte, signature string) (billing.Event, error) {
	return billing.Event{}, ErrPaymentsDisabled
}

// Ensure interface compliance.
var _ ports.PaymentProvider = (*NoopProvider)(nil)
