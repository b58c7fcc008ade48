package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/ports"
	"github.com/rs/zerolog"
)

// ErrNoSubscription is returned when unsubscribing without an active subscription.
var ErrNoSubscription = errors.New("no active subscription")

// invoiceLimit caps the invoice history returned to users.
const invoiceLimit = 100

// CatalogSource provides the live price catalog.
type CatalogSource interface {
	Catalog() billing.Catalog
}

// CheckoutInput selects a credit pack by price id or by credit quantity.
type CheckoutInput struct {
	PriceRef string
	Quantity int64
}

// BillingURLs are the pages the hosted checkout returns to.
type BillingURLs struct {
	SuccessURL string
	CancelURL  string
}

// BillingService starts checkouts and manages subscriptions at the payment provider.
// Ledger changes caused by payments arrive later through BillingEventService.
type BillingService struct {
	accounts *AccountService
	store    ports.AccountStore
	provider ports.PaymentProvider
	catalog  CatalogSource
	urls     BillingURLs
	logger   zerolog.Logger
}

// NewBillingService creates a new billing service.
func NewBillingService(
	accounts *AccountService,
	store ports.AccountStore,
	provider ports.PaymentProvider,
	catalog CatalogSource,
	urls BillingURLs,
	logger zerolog.Logger,
) *BillingService {
	return &BillingService{
		accounts: accounts,
		store:    store,
		provider: provider,
		catalog:  catalog,
		urls:     urls,
		logger:   logger,
	}
}

// Catalog returns the purchasable entries.
func (s *BillingService) Catalog() []billing.PriceEntry {
	return s.catalog.Catalog().Entries()
}

// Checkout opens a one-time payment for a credit pack and returns the checkout URL.
func (s *BillingService) Checkout(ctx context.Context, accountID string, in CheckoutInput) (string, error) {
	entry, err := s.resolvePack(in)
	if err != nil {
		return "", err
	}
	a, err := s.accounts.Ensure(ctx, accountID)
	if err != nil {
		return "", err
	}

	url, err := s.provider.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		Mode:        billing.CheckoutPayment,
		AccountID:   a.ID,
		CustomerRef: a.CustomerRef,
		PriceRef:    entry.PriceRef,
		SuccessURL:  s.urls.SuccessURL,
		CancelURL:   s.urls.CancelURL,
	})
	if err != nil {
		return "", fmt.Errorf("create checkout: %w", err)
	}

	s.logger.Info().Str("account_id", a.ID).Str("price_id", entry.PriceRef).Msg("checkout started")
	return url, nil
}

func (s *BillingService) resolvePack(in CheckoutInput) (billing.PriceEntry, error) {
	catalog := s.catalog.Catalog()
	if in.PriceRef != "" {
		return catalog.OneTime(in.PriceRef)
	}
	for _, e := range catalog.Entries() {
		if e.Kind == billing.PriceOneTime && e.Credits == in.Quantity {
			return e, nil
		}
	}
	return billing.PriceEntry{}, fmt.Errorf("%w: no pack of %d credits", billing.ErrInvalidPrice, in.Quantity)
}

// Subscribe opens a subscription checkout. Accounts that already have a tier
// must cancel first.
func (s *BillingService) Subscribe(ctx context.Context, accountID, email, priceRef string) (string, error) {
	entry, err := s.catalog.Catalog().Subscription(priceRef)
	if err != nil {
		return "", err
	}
	a, err := s.accounts.Ensure(ctx, accountID)
	if err != nil {
		return "", err
	}
	if a.Tier != account.TierNone {
		return "", account.ErrConflictingSubscription
	}

	customerRef, err := s.ensureCustomer(ctx, a, email)
	if err != nil {
		return "", err
	}

	url, err := s.provider.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		Mode:        billing.CheckoutSubscription,
		AccountID:   a.ID,
		CustomerRef: customerRef,
		PriceRef:    entry.PriceRef,
		SuccessURL:  s.urls.SuccessURL,
		CancelURL:   s.urls.CancelURL,
	})
	if err != nil {
		return "", fmt.Errorf("create subscription checkout: %w", err)
	}

	s.logger.Info().Str("account_id", a.ID).Str("price_id", entry.PriceRef).Msg("subscription checkout started")
	return url, nil
}

// ensureCustomer returns the account's payment customer, creating it on first use.
func (s *BillingService) ensureCustomer(ctx context.Context, a account.Account, email string) (string, error) {
	if a.CustomerRef != "" {
		return a.CustomerRef, nil
	}

	ref, err := s.provider.CreateCustomer(ctx, a.ID, email)
	if err != nil {
		return "", fmt.Errorf("create payment customer: %w", err)
	}

	updated, err := s.store.Update(ctx, a.ID, func(cur account.Account) (account.Account, error) {
		if cur.CustomerRef != "" {
			return cur, nil
		}
		return account.AttachCustomer(cur, ref)
	})
	if err != nil {
		return "", fmt.Errorf("attach payment customer: %w", err)
	}
	if updated.CustomerRef != ref {
		// a concurrent request attached its customer first
		s.logger.Warn().Str("account_id", a.ID).Str("customer_id", ref).Msg("discarding duplicate payment customer")
	}
	return updated.CustomerRef, nil
}

// Unsubscribe cancels the active subscription at the provider, then revokes the tier locally.
// The provider's cancellation webhook later confirms the same state.
func (s *BillingService) Unsubscribe(ctx context.Context, accountID string) error {
	a, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrNoSubscription
		}
		return err
	}
	if a.CustomerRef == "" {
		return ErrNoSubscription
	}

	subRef, err := s.provider.CancelActiveSubscription(ctx, a.CustomerRef)
	if err != nil {
		if errors.Is(err, billing.ErrNoActiveSubscription) {
			return ErrNoSubscription
		}
		return fmt.Errorf("cancel subscription: %w", err)
	}

	if _, err := s.store.Update(ctx, a.ID, func(cur account.Account) (account.Account, error) {
		if cur.SubscriptionRef != "" && cur.SubscriptionRef != subRef {
			return cur, nil
		}
		return account.RevokeSubscription(cur, subRef, time.Time{}), nil
	}); err != nil {
		return fmt.Errorf("revoke subscription: %w", err)
	}

	s.logger.Info().Str("account_id", a.ID).Str("subscription_id", subRef).Msg("subscription canceled")
	return nil
}

// Invoices returns the account's most recent invoices.
func (s *BillingService) Invoices(ctx context.Context, accountID string) ([]billing.Invoice, error) {
	a, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return []billing.Invoice{}, nil
		}
		return nil, err
	}
	if a.CustomerRef == "" {
		return []billing.Invoice{}, nil
	}

	invoices, err := s.provider.ListInvoices(ctx, a.CustomerRef, invoiceLimit)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	if invoices == nil {
		invoices = []billing.Invoice{}
	}
	return invoices, nil
}
