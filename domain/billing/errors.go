package billing

import "errors"

var (
	// ErrSignatureInvalid is returned when a webhook payload fails verification.
	ErrSignatureInvalid = errors.New("invalid webhook signature")

	// ErrInvalidPrice is returned for prices missing from the catalog or of the wrong kind.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrUnknownEvent is returned for event types the processor does not handle.
	ErrUnknownEvent = errors.New("unknown billing event")

	// ErrDuplicateEvent is returned by event stores when the event id was already applied.
	ErrDuplicateEvent = errors.New("billing event already applied")

	// ErrUnknownAccount is returned when no account matches the event.
	ErrUnknownAccount = errors.New("no account for billing event")

	// ErrStaleSubscription is returned when a cancellation names a subscription
	// that no longer backs the account.
	ErrStaleSubscription = errors.New("event refers to a replaced subscription")

	// ErrNoActiveSubscription is returned by payment providers when the customer has nothing to cancel.
	ErrNoActiveSubscription = errors.New("no active subscription at payment provider")

	// ErrEventNotFound is returned by event stores for unknown event ids.
	ErrEventNotFound = errors.New("billing event not found")
)
