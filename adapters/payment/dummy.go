package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/memomeet/memomeet/adapters/idgen"
	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/ports"
)

// DummyEvent is the JSON body accepted by the dummy webhook endpoint.
type DummyEvent struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	AccountID      string `json:"account_id,omitempty"`
	CustomerID     string `json:"customer_id,omitempty"`
	PriceID        string `json:"price_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Created        int64  `json:"created,omitempty"`
}

// DummyProvider is a development payment provider. Checkout redirects straight to
// the success URL and webhooks are JSON bodies signed with HMAC-SHA256.
type DummyProvider struct {
	webhookSecret string
	ids           ports.IDGenerator

	mu            sync.Mutex
	subscriptions map[string]dummySubscription // customer -> active subscription
	invoices      map[string][]billing.Invoice
}

type dummySubscription struct {
	id    string
	price string
}

// NewDummyProvider creates a new dummy payment provider.
func NewDummyProvider(webhookSecret string) *DummyProvider {
	return &DummyProvider{
		webhookSecret: webhookSecret,
		ids:           idgen.Prefixed{Prefix: "dummy_"},
		subscriptions: make(map[string]dummySubscription),
		invoices:      make(map[string][]billing.Invoice),
	}
}

// Name returns the provider name.
func (p *DummyProvider) Name() string {
	return "dummy"
}

// CreateCustomer returns a fake customer ID.
func (p *DummyProvider) CreateCustomer(ctx context.Context, accountID, email string) (string, error) {
	return "cus_" + p.ids.New(), nil
}

// CreateCheckoutSession skips the payment page and redirects to the success URL.
func (p *DummyProvider) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (string, error) {
	u, err := url.Parse(req.SuccessURL)
	if err != nil {
		return "", fmt.Errorf("success url: %w", err)
	}
	q := u.Query()
	q.Set("session_id", "cs_"+p.ids.New())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CancelActiveSubscription forgets the customer's active subscription.
func (p *DummyProvider) CancelActiveSubscription(ctx context.Context, customerRef string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub, ok := p.subscriptions[customerRef]
	if !ok {
		return "", ErrNoActiveSubscription
	}
	delete(p.subscriptions, customerRef)
	return sub.id, nil
}

// SubscriptionPrice returns the price recorded for a subscription seen in a webhook.
func (p *DummyProvider) SubscriptionPrice(ctx context.Context, subscriptionRef string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sub := range p.subscriptions {
		if sub.id == subscriptionRef {
			return sub.price, nil
		}
	}
	return "", fmt.Errorf("dummy subscription %s not found", subscriptionRef)
}

// ListInvoices returns the invoices recorded from paid-invoice webhooks.
func (p *DummyProvider) ListInvoices(ctx context.Context, customerRef string, limit int) ([]billing.Invoice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	all := p.invoices[customerRef]
	out := make([]billing.Invoice, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ParseWebhook verifies the hex HMAC-SHA256 signature and decodes the event.
func (p *DummyProvider) ParseWebhook(payload []byte, signature string) (billing.Event, error) {
	if !hmac.Equal([]byte(signature), []byte(SignDummyPayload(p.webhookSecret, payload))) {
		return billing.Event{}, billing.ErrSignatureInvalid
	}

	var de DummyEvent
	if err := json.Unmarshal(payload, &de); err != nil {
		return billing.Event{}, fmt.Errorf("%w: %v", billing.ErrSignatureInvalid, err)
	}
	if de.ID == "" {
		return billing.Event{}, fmt.Errorf("%w: missing event id", billing.ErrSignatureInvalid)
	}

	ev := billing.Event{
		ID:              de.ID,
		Provider:        p.Name(),
		Type:            billing.EventType(de.Type),
		RawType:         de.Type,
		AccountID:       de.AccountID,
		CustomerRef:     de.CustomerID,
		PriceRef:        de.PriceID,
		SubscriptionRef: de.SubscriptionID,
	}
	if de.Created > 0 {
		ev.OccurredAt = time.Unix(de.Created, 0).UTC()
	}
	switch ev.Type {
	case billing.EventOneTimePurchase, billing.EventSubscriptionActivated,
		billing.EventInvoicePaid, billing.EventSubscriptionCanceled:
	default:
		ev.Type = billing.EventUnknown
	}

	p.observe(ev)
	return ev, nil
}

// observe mirrors what a real processor would know about subscriptions and invoices.
func (p *DummyProvider) observe(ev billing.Event) {
	if ev.CustomerRef == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Type {
	case billing.EventSubscriptionActivated:
		p.subscriptions[ev.CustomerRef] = dummySubscription{id: ev.SubscriptionRef, price: ev.PriceRef}
	case billing.EventSubscriptionCanceled:
		if sub, ok := p.subscriptions[ev.CustomerRef]; ok && sub.id == ev.SubscriptionRef {
			delete(p.subscriptions, ev.CustomerRef)
		}
	case billing.EventInvoicePaid:
		created := ev.OccurredAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		p.invoices[ev.CustomerRef] = append(p.invoices[ev.CustomerRef], billing.Invoice{
			ID:        "in_" + ev.ID,
			Currency:  "EUR",
			Status:    billing.InvoiceStatusPaid,
			CreatedAt: created,
		})
	}
}

// SignDummyPayload returns the signature the dummy provider expects for payload.
func SignDummyPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Ensure interface compliance.
var _ ports.PaymentProvider = (*DummyProvider)(nil)
