package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/domain/billing"
	"github.com/memomeet/memomeet/ports"
	"github.com/rs/zerolog"
)

// BillingEventService verifies, deduplicates and applies payment processor
// notifications to the ledger. Each event id changes an account at most once.
type BillingEventService struct {
	accounts  ports.AccountStore
	events    ports.EventStore
	providers map[string]ports.PaymentProvider
	clock     ports.Clock
	metrics   ports.BillingMetrics
	logger    zerolog.Logger

	mu      sync.RWMutex
	catalog billing.Catalog
}

// NewBillingEventService creates a new billing event service.
func NewBillingEventService(
	accounts ports.AccountStore,
	events ports.EventStore,
	providers []ports.PaymentProvider,
	catalog billing.Catalog,
	clock ports.Clock,
	metrics ports.BillingMetrics,
	logger zerolog.Logger,
) *BillingEventService {
	byName := make(map[string]ports.PaymentProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &BillingEventService{
		accounts:  accounts,
		events:    events,
		providers: byName,
		catalog:   catalog,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
}

// ErrUnknownProvider is returned for webhooks addressed to an unconfigured provider.
var ErrUnknownProvider = errors.New("unknown payment provider")

// UpdateCatalog swaps the price catalog, typically after a config reload.
func (s *BillingEventService) UpdateCatalog(c billing.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = c
}

// Catalog returns the catalog in effect.
func (s *BillingEventService) Catalog() billing.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// HandleWebhook verifies a raw webhook and processes the event it carries.
// Verification failures return billing.ErrSignatureInvalid and touch nothing.
func (s *BillingEventService) HandleWebhook(ctx context.Context, provider string, payload []byte, signature string) (billing.Result, error) {
	p, ok := s.providers[provider]
	if !ok {
		return billing.Result{}, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	ev, err := p.ParseWebhook(payload, signature)
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", provider).Msg("webhook verification failed")
		if errors.Is(err, billing.ErrSignatureInvalid) {
			return billing.Result{}, err
		}
		return billing.Result{}, fmt.Errorf("%w: %v", billing.ErrSignatureInvalid, err)
	}
	if ev.Provider == "" {
		ev.Provider = provider
	}
	return s.Process(ctx, ev)
}

// Process applies a verified event. Rejected and duplicate events are reported in
// the result; an error means the event could not be recorded and should be retried.
func (s *BillingEventService) Process(ctx context.Context, ev billing.Event) (billing.Result, error) {
	log := s.logger.With().
		Str("event_id", ev.ID).
		Str("provider", ev.Provider).
		Str("event_type", string(ev.Type)).
		Logger()

	if prev, err := s.events.Get(ctx, ev.Provider, ev.ID); err == nil && prev.Outcome == billing.OutcomeApplied {
		log.Debug().Msg("billing event already applied")
		return s.finish(ev, billing.Duplicate(prev.AccountID)), nil
	} else if err != nil && !errors.Is(err, billing.ErrEventNotFound) {
		return billing.Result{}, fmt.Errorf("load billing event %s: %w", ev.ID, err)
	}

	acct, err := s.resolveAccount(ctx, ev)
	if err != nil {
		if errors.Is(err, billing.ErrUnknownAccount) {
			return s.reject(ctx, log, ev, "", err)
		}
		return billing.Result{}, err
	}
	log = log.With().Str("account_id", acct.ID).Logger()

	mutate, grantSource, granted, err := s.plan(ctx, ev, acct)
	if err != nil {
		if isRejection(err) {
			return s.reject(ctx, log, ev, acct.ID, err)
		}
		return billing.Result{}, err
	}

	rec := billing.NewRecord(ev, billing.Applied(acct.ID), s.clock.Now())
	if _, err := s.events.Apply(ctx, rec, acct.ID, mutate); err != nil {
		switch {
		case errors.Is(err, billing.ErrDuplicateEvent):
			log.Debug().Msg("billing event applied concurrently")
			return s.finish(ev, billing.Duplicate(acct.ID)), nil
		case isRejection(err):
			return s.reject(ctx, log, ev, acct.ID, err)
		default:
			return billing.Result{}, fmt.Errorf("apply billing event %s: %w", ev.ID, err)
		}
	}

	if granted > 0 {
		s.metrics.CreditsGranted(grantSource, granted)
	}
	log.Info().Int64("credits_granted", granted).Str("price_id", ev.PriceRef).Msg("billing event applied")
	return s.finish(ev, billing.Applied(acct.ID)), nil
}

// plan turns an event into the ledger mutation to apply.
func (s *BillingEventService) plan(ctx context.Context, ev billing.Event, acct account.Account) (account.Mutator, string, int64, error) {
	catalog := s.Catalog()

	switch ev.Type {
	case billing.EventOneTimePurchase:
		entry, err := catalog.OneTime(ev.PriceRef)
		if err != nil {
			return nil, "", 0, err
		}
		return func(a account.Account) (account.Account, error) {
			if ev.CustomerRef != "" && a.CustomerRef == "" {
				var err error
				if a, err = account.AttachCustomer(a, ev.CustomerRef); err != nil {
					return a, err
				}
			}
			return account.GrantCredits(a, entry.Credits)
		}, "purchase", entry.Credits, nil

	case billing.EventSubscriptionActivated:
		entry, err := catalog.Subscription(ev.PriceRef)
		if err != nil {
			return nil, "", 0, err
		}
		return func(a account.Account) (account.Account, error) {
			if ev.CustomerRef != "" && a.CustomerRef == "" {
				var err error
				if a, err = account.AttachCustomer(a, ev.CustomerRef); err != nil {
					return a, err
				}
			}
			next, err := account.ActivateSubscription(a, entry.Tier, ev.SubscriptionRef, ev.OccurredAt)
			if errors.Is(err, account.ErrSubscriptionEnded) {
				return a, fmt.Errorf("%w: %w", billing.ErrStaleSubscription, err)
			}
			return next, err
		}, "", 0, nil

	case billing.EventInvoicePaid:
		priceRef := ev.PriceRef
		if priceRef == "" {
			p, ok := s.providers[ev.Provider]
			if !ok || ev.SubscriptionRef == "" {
				return nil, "", 0, fmt.Errorf("%w: invoice without price", billing.ErrInvalidPrice)
			}
			ref, err := p.SubscriptionPrice(ctx, ev.SubscriptionRef)
			if err != nil {
				return nil, "", 0, fmt.Errorf("resolve price of subscription %s: %w", ev.SubscriptionRef, err)
			}
			priceRef = ref
		}
		entry, err := catalog.Subscription(priceRef)
		if err != nil {
			return nil, "", 0, err
		}
		if entry.Unlimited || entry.PeriodicCredits <= 0 {
			return func(a account.Account) (account.Account, error) { return a, nil }, "", 0, nil
		}
		return func(a account.Account) (account.Account, error) {
			return account.GrantCredits(a, entry.PeriodicCredits)
		}, "subscription", entry.PeriodicCredits, nil

	case billing.EventSubscriptionCanceled:
		return func(a account.Account) (account.Account, error) {
			if ev.SubscriptionRef != "" && a.SubscriptionRef != "" && ev.SubscriptionRef != a.SubscriptionRef {
				return a, billing.ErrStaleSubscription
			}
			return account.RevokeSubscription(a, ev.SubscriptionRef, ev.OccurredAt), nil
		}, "", 0, nil

	default:
		return nil, "", 0, fmt.Errorf("%w: %s", billing.ErrUnknownEvent, ev.RawType)
	}
}

// resolveAccount finds the account by metadata first, then by payment customer.
func (s *BillingEventService) resolveAccount(ctx context.Context, ev billing.Event) (account.Account, error) {
	if ev.AccountID != "" {
		a, err := s.accounts.Get(ctx, ev.AccountID)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, account.ErrNotFound) {
			return account.Account{}, fmt.Errorf("load account %s: %w", ev.AccountID, err)
		}
	}
	if ev.CustomerRef != "" {
		a, err := s.accounts.GetByCustomerRef(ctx, ev.CustomerRef)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, account.ErrNotFound) {
			return account.Account{}, fmt.Errorf("load account by customer %s: %w", ev.CustomerRef, err)
		}
	}
	return account.Account{}, billing.ErrUnknownAccount
}

func (s *BillingEventService) reject(ctx context.Context, log zerolog.Logger, ev billing.Event, accountID string, reason error) (billing.Result, error) {
	res := billing.Rejected(accountID, reason)
	if err := s.events.RecordRejected(ctx, billing.NewRecord(ev, res, s.clock.Now())); err != nil {
		return billing.Result{}, fmt.Errorf("record rejected billing event %s: %w", ev.ID, err)
	}
	log.Warn().Err(reason).Str("price_id", ev.PriceRef).Msg("billing event rejected")
	return s.finish(ev, res), nil
}

func (s *BillingEventService) finish(ev billing.Event, res billing.Result) billing.Result {
	s.metrics.WebhookProcessed(ev.Provider, ev.Type, res.Outcome)
	return res
}

// isRejection reports whether err is a business rejection rather than an infrastructure failure.
func isRejection(err error) bool {
	for _, target := range []error{
		billing.ErrInvalidPrice,
		billing.ErrUnknownEvent,
		billing.ErrUnknownAccount,
		billing.ErrStaleSubscription,
		account.ErrConflictingSubscription,
		account.ErrSubscriptionEnded,
		account.ErrCustomerRefImmutable,
		account.ErrCustomerRefInUse,
		account.ErrInvalidCustomerRef,
		account.ErrInvalidAmount,
		account.ErrUnknownTier,
		account.ErrInconsistentTier,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
