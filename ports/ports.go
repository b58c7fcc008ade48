// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"io"
	"time"

	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/domain/summary"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// AccountStore persists accounts. It holds no business policy: every change
// goes through an account.Mutator built from the ledger functions.
type AccountStore interface {
	// Get retrieves an account by id. Returns account.ErrNotFound.
	Get(ctx context.Context, id string) (account.Account, error)

	// GetByCustomerRef retrieves the account bound to a payment customer.
	GetByCustomerRef(ctx context.Context, customerRef string) (account.Account, error)

	// Create inserts a fresh account, or returns the existing one.
	Create(ctx context.Context, id string) (account.Account, error)

	// Update applies fn atomically with respect to other updates of the same account.
	// An error from fn aborts the write and is returned unchanged.
	Update(ctx context.Context, id string, fn account.Mutator) (account.Account, error)

	// List returns accounts ordered by creation time.
	List(ctx context.Context, limit, offset int) ([]account.Account, error)

	// Count returns the number of accounts.
	Count(ctx context.Context) (int, error)
}

// EventStore persists processed billing events.
type EventStore interface {
	// Get returns the record of a provider's event id. Returns billing.ErrEventNotFound.
	// Event ids are unique per provider only.
	Get(ctx context.Context, provider, id string) (billing.EventRecord, error)

	// Apply runs fn on the account and records rec as applied in one atomic step.
	// Returns billing.ErrDuplicateEvent when rec.Provider and rec.ID are already applied.
	Apply(ctx context.Context, rec billing.EventRecord, accountID string, fn account.Mutator) (account.Account, error)

	// RecordRejected stores or refreshes a rejected record. Applied records are left untouched.
	RecordRejected(ctx context.Context, rec billing.EventRecord) error

	// List returns the most recent records, optionally filtered by account.
	List(ctx context.Context, accountID string, limit int) ([]billing.EventRecord, error)
}

// SummaryStore persists meeting summaries.
type SummaryStore interface {
	Create(ctx context.Context, s summary.Summary) error

	// Get returns summary.ErrNotFound when missing.
	Get(ctx context.Context, id string) (summary.Summary, error)

	// ListByAccount returns an account's summaries, newest first.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]summary.Summary, error)

	Update(ctx context.Context, s summary.Summary) error
	Delete(ctx context.Context, id string) error
}

// -----------------------------------------------------------------------------
// Payment Provider Ports
// -----------------------------------------------------------------------------

// PaymentProvider interfaces with the payment processor (Stripe, dummy).
type PaymentProvider interface {
	// Name returns the provider name (e.g., "stripe").
	Name() string

	// CreateCustomer creates a customer in the payment system.
	CreateCustomer(ctx context.Context, accountID, email string) (customerRef string, err error)

	// CreateCheckoutSession opens a hosted checkout page.
	CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (sessionURL string, err error)

	// CancelActiveSubscription cancels the customer's active subscription immediately.
	CancelActiveSubscription(ctx context.Context, customerRef string) (subscriptionRef string, err error)

	// SubscriptionPrice returns the price a subscription is billed at.
	SubscriptionPrice(ctx context.Context, subscriptionRef string) (priceRef string, err error)

	// ListInvoices returns the customer's most recent invoices.
	ListInvoices(ctx context.Context, customerRef string, limit int) ([]billing.Invoice, error)

	// ParseWebhook verifies and normalizes an incoming webhook.
	// Returns billing.ErrSignatureInvalid when verification fails.
	ParseWebhook(payload []byte, signature string) (billing.Event, error)
}

// -----------------------------------------------------------------------------
// Summarization Ports
// -----------------------------------------------------------------------------

// Summarizer turns meeting audio into a summary through an AI provider.
type Summarizer interface {
	// Transcribe converts audio into text.
	Transcribe(ctx context.Context, audio io.Reader, filename, mimeType string) (string, error)

	// Summarize produces the summary block and task list of a transcript.
	Summarize(ctx context.Context, transcript string) (summary.Draft, error)
}

// DocumentExporter publishes a summary to an external document service.
type DocumentExporter interface {
	// Export creates the document with the user's delegated token and returns its URL.
	Export(ctx context.Context, accessToken string, doc summary.Document) (url string, err error)
}

// -----------------------------------------------------------------------------
// Observability Ports
// -----------------------------------------------------------------------------

// BillingMetrics records ledger activity.
type BillingMetrics interface {
	// WebhookProcessed counts a processed billing event.
	WebhookProcessed(provider string, eventType billing.EventType, outcome billing.Outcome)

	// GateOutcome counts a Usage Gate decision ("settled", "released", "insufficient", "timeout").
	GateOutcome(outcome string)

	// ReconciliationRequired counts a paid operation whose debit failed.
	ReconciliationRequired()

	// CreditsGranted counts credits added by source ("purchase", "subscription", "operator").
	CreditsGranted(source string, n int64)
}
