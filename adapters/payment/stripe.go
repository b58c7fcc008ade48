// Package payment provides payment provider adapters.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/ports"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Metadata keys written on checkout sessions and subscriptions.
const (
	MetaAccountID = "account_id"
	MetaPriceID   = "price_id"
)

// legacy keys set by the first version of the web checkout
var legacyMeta = map[string]string{MetaAccountID: "userId", MetaPriceID: "priceId"}

// ErrNoActiveSubscription is returned when the customer has nothing to cancel.
var ErrNoActiveSubscription = billing.ErrNoActiveSubscription

// StripeConfig holds Stripe configuration.
type StripeConfig struct {
	SecretKey     string
	PublicKey     string
	WebhookSecret string
}

// StripeProvider implements ports.PaymentProvider for Stripe.
type StripeProvider struct {
	config StripeConfig
	api    *client.API
}

// NewStripeProvider creates a new Stripe payment provider.
func NewStripeProvider(config StripeConfig) *StripeProvider {
	return NewStripeProviderWithBackends(config, nil)
}

// NewStripeProviderWithBackends creates a provider talking to custom backends (for testing).
func NewStripeProviderWithBackends(config StripeConfig, backends *stripe.Backends) *StripeProvider {
	api := &client.API{}
	api.Init(config.SecretKey, backends)
	return &StripeProvider{config: config, api: api}
}

// Name returns the provider name.
func (p *StripeProvider) Name() string {
	return "stripe"
}

// CreateCustomer creates a customer in Stripe.
func (p *StripeProvider) CreateCustomer(ctx context.Context, accountID, email string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata(MetaAccountID, accountID)

	c, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create customer: %w", err)
	}
	return c.ID, nil
}

// CreateCheckoutSession creates a Stripe Checkout session for a credit pack or a subscription.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (string, error) {
	params := &stripe.CheckoutSessionParams{
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.AccountID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceRef),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetaAccountID, req.AccountID)
	params.AddMetadata(MetaPriceID, req.PriceRef)
	if req.CustomerRef != "" {
		params.Customer = stripe.String(req.CustomerRef)
	}

	switch req.Mode {
	case billing.CheckoutSubscription:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModeSubscription))
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetaAccountID: req.AccountID},
		}
	default:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModePayment))
	}

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create checkout session: %w", err)
	}
	return s.URL, nil
}

// CancelActiveSubscription cancels the customer's active subscription immediately.
func (p *StripeProvider) CancelActiveSubscription(ctx context.Context, customerRef string) (string, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerRef),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := p.api.Subscriptions.List(params)
	if !iter.Next() {
		if err := iter.Err(); err != nil {
			return "", fmt.Errorf("stripe list subscriptions: %w", err)
		}
		return "", ErrNoActiveSubscription
	}
	sub := iter.Subscription()

	cancelParams := &stripe.SubscriptionCancelParams{}
	cancelParams.Context = ctx
	if _, err := p.api.Subscriptions.Cancel(sub.ID, cancelParams); err != nil {
		return "", fmt.Errorf("stripe cancel subscription: %w", err)
	}
	return sub.ID, nil
}

// SubscriptionPrice returns the price of a subscription's first item.
func (p *StripeProvider) SubscriptionPrice(ctx context.Context, subscriptionRef string) (string, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	s, err := p.api.Subscriptions.Get(subscriptionRef, params)
	if err != nil {
		return "", fmt.Errorf("stripe get subscription: %w", err)
	}
	return subscriptionPrice(s), nil
}

// ListInvoices returns the customer's most recent invoices.
func (p *StripeProvider) ListInvoices(ctx context.Context, customerRef string, limit int) ([]billing.Invoice, error) {
	params := &stripe.InvoiceListParams{Customer: stripe.String(customerRef)}
	params.Context = ctx
	if limit > 0 {
		params.Limit = stripe.Int64(int64(limit))
		params.Single = true
	}

	var out []billing.Invoice
	iter := p.api.Invoices.List(params)
	for iter.Next() {
		out = append(out, mapStripeInvoice(iter.Invoice()))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("stripe list invoices: %w", err)
	}
	return out, nil
}

// ParseWebhook verifies a Stripe webhook and normalizes it into a billing.Event.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (billing.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return billing.Event{}, fmt.Errorf("%w: %v", billing.ErrSignatureInvalid, err)
	}
	return mapStripeEvent(event)
}

// mapStripeEvent normalizes the event types the ledger cares about.
func mapStripeEvent(event stripe.Event) (billing.Event, error) {
	ev := billing.Event{
		ID:         event.ID,
		Provider:   "stripe",
		Type:       billing.EventUnknown,
		RawType:    string(event.Type),
		OccurredAt: time.Unix(event.Created, 0).UTC(),
	}
	if event.Data == nil {
		return ev, nil
	}

	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return ev, fmt.Errorf("decode checkout session: %w", err)
		}
		// subscription checkouts are handled through the subscription events
		if cs.Mode != stripe.CheckoutSessionModePayment {
			return ev, nil
		}
		ev.Type = billing.EventOneTimePurchase
		ev.AccountID = meta(cs.Metadata, MetaAccountID)
		if ev.AccountID == "" {
			ev.AccountID = cs.ClientReferenceID
		}
		ev.PriceRef = meta(cs.Metadata, MetaPriceID)
		if cs.Customer != nil {
			ev.CustomerRef = cs.Customer.ID
		}

	case "customer.subscription.created", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return ev, fmt.Errorf("decode subscription: %w", err)
		}
		ev.Type = billing.EventSubscriptionActivated
		if event.Type == "customer.subscription.deleted" {
			ev.Type = billing.EventSubscriptionCanceled
		}
		ev.AccountID = meta(sub.Metadata, MetaAccountID)
		ev.SubscriptionRef = sub.ID
		ev.PriceRef = subscriptionPrice(&sub)
		if sub.Customer != nil {
			ev.CustomerRef = sub.Customer.ID
		}

	case "invoice.paid":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return ev, fmt.Errorf("decode invoice: %w", err)
		}
		// one-time checkouts may also produce invoices; only subscription invoices grant credits
		if inv.Subscription == nil || inv.Subscription.ID == "" {
			return ev, nil
		}
		ev.Type = billing.EventInvoicePaid
		ev.SubscriptionRef = inv.Subscription.ID
		if inv.Customer != nil {
			ev.CustomerRef = inv.Customer.ID
		}
		if inv.Lines != nil {
			for _, line := range inv.Lines.Data {
				if line.Price != nil && line.Price.ID != "" {
					ev.PriceRef = line.Price.ID
					break
				}
			}
		}
	}
	return ev, nil
}

func meta(m map[string]string, key string) string {
	if v := m[key]; v != "" {
		return v
	}
	return m[legacyMeta[key]]
}

func subscriptionPrice(s *stripe.Subscription) string {
	if s == nil || s.Items == nil || len(s.Items.Data) == 0 {
		return ""
	}
	if price := s.Items.Data[0].Price; price != nil {
		return price.ID
	}
	return ""
}

func mapStripeInvoice(inv *stripe.Invoice) billing.Invoice {
	return billing.Invoice{
		ID:         inv.ID,
		AmountPaid: inv.AmountPaid,
		Currency:   strings.ToUpper(string(inv.Currency)),
		Status:     billing.InvoiceStatus(inv.Status),
		PDFURL:     inv.InvoicePDF,
		CreatedAt:  time.Unix(inv.Created, 0).UTC(),
	}
}

// Ensure interface compliance.
var _ ports.PaymentProvider = (*StripeProvider)(nil)
