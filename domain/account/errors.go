package account

import "errors"

var (
	// ErrNotFound is returned by stores when the account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrInsufficientCredits is returned when a consumption would make the balance negative.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount is returned for non-positive credit amounts.
	ErrInvalidAmount = errors.New("credit amount must be positive")

	// ErrNegativeBalance is returned by Validate when a counter dropped below zero.
	ErrNegativeBalance = errors.New("negative balance")

	// ErrUnknownTier is returned for tiers outside none/standard/pro.
	ErrUnknownTier = errors.New("unknown tier")

	// ErrInconsistentTier is returned when the unlimited flag does not match the tier.
	ErrInconsistentTier = errors.New("unlimited must be set exactly for the pro tier")

	// ErrConflictingSubscription is returned when activating a subscription while one is active.
	ErrConflictingSubscription = errors.New("account already has an active subscription")

	// ErrSubscriptionEnded is returned when activating a subscription that was already canceled,
	// or one that started before the account's last tier change.
	ErrSubscriptionEnded = errors.New("subscription already ended")

	// ErrCustomerRefImmutable is returned when replacing an existing billing customer reference.
	ErrCustomerRefImmutable = errors.New("billing customer reference already set")

	// ErrCustomerRefInUse is returned by stores when another account holds the customer reference.
	ErrCustomerRefInUse = errors.New("billing customer reference bound to another account")

	// ErrInvalidCustomerRef is returned when attaching an empty billing customer reference.
	ErrInvalidCustomerRef = errors.New("billing customer reference is required")

	// ErrReconciliationRequired marks a paid operation that succeeded without its debit.
	ErrReconciliationRequired = errors.New("credit reconciliation required")
)
