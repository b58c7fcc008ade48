// Package billing provides billing event, catalog and invoice value types and pure functions.
package billing

import "time"

// EventType is the normalized kind of a payment processor notification.
type EventType string

const (
	EventOneTimePurchase       EventType = "one_time_purchase"
	EventSubscriptionActivated EventType = "subscription_activated"
	EventInvoicePaid           EventType = "invoice_paid"
	EventSubscriptionCanceled  EventType = "subscription_canceled"
	EventUnknown               EventType = "unknown"

	// EventOperatorAdjustment records a manual grant or debit made by an operator.
	EventOperatorAdjustment EventType = "operator_adjustment"
)

// Event is a verified notification from a payment processor (value type).
type Event struct {
	ID              string    // processor event id, the idempotency key
	Provider        string    // "stripe", "dummy"
	Type            EventType
	RawType         string    // processor event name, e.g. "invoice.paid"
	AccountID       string    // from checkout/subscription metadata, may be empty
	CustomerRef     string
	PriceRef        string
	SubscriptionRef string
	OccurredAt      time.Time
}

// Outcome is how the processor disposed of an event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeRejected  Outcome = "rejected"
	OutcomeDuplicate Outcome = "duplicate"
)

// Result is returned by the event processor for every verified event.
type Result struct {
	Outcome   Outcome
	AccountID string
	Reason    string // set for rejected events
}

// Applied returns an applied result.
func Applied(accountID string) Result {
	return Result{Outcome: OutcomeApplied, AccountID: accountID}
}

// Rejected returns a rejected result carrying err as the reason.
func Rejected(accountID string, err error) Result {
	r := Result{Outcome: OutcomeRejected, AccountID: accountID}
	if err != nil {
		r.Reason = err.Error()
	}
	return r
}

// Duplicate returns a duplicate result.
func Duplicate(accountID string) Result {
	return Result{Outcome: OutcomeDuplicate, AccountID: accountID}
}

// EventRecord is the persisted audit row of a processed event.
type EventRecord struct {
	ID          string
	Provider    string
	Type        EventType
	RawType     string
	AccountID   string
	Outcome     Outcome
	Reason      string
	ProcessedAt time.Time
}

// NewRecord builds the audit row for ev with result r.
// This is a PURE function.
func NewRecord(ev Event, r Result, now time.Time) EventRecord {
	return EventRecord{
		ID:          ev.ID,
		Provider:    ev.Provider,
		Type:        ev.Type,
		RawType:     ev.RawType,
		AccountID:   r.AccountID,
		Outcome:     r.Outcome,
		Reason:      r.Reason,
		ProcessedAt: now,
	}
}
