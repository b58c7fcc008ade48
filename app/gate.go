package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/memomeet/memomeet/domain/account"
	"github.com/memomeet/memomeet/ports"
	"github.com/rs/zerolog"
)

// Gate outcomes reported to metrics.
const (
	GateSettled      = "settled"
	GateReleased     = "released"
	GateInsufficient = "insufficient"
	GateTimeout      = "timeout"
)

// ErrOperationTimeout is returned when a paid operation outlives its deadline.
var ErrOperationTimeout = fmt.Errorf("paid operation timed out: %w", context.DeadlineExceeded)

// ReconciliationError reports a paid operation that succeeded but whose debit
// could not be recorded. The caller keeps the result; operators settle the balance.
type ReconciliationError struct {
	AccountID string
	Amount    int64
	Err       error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("account %s: debit of %d credit(s) not recorded: %v", e.AccountID, e.Amount, e.Err)
}

// Unwrap exposes both account.ErrReconciliationRequired and the store error.
func (e *ReconciliationError) Unwrap() []error {
	return []error{account.ErrReconciliationRequired, e.Err}
}

// GateConfig bounds paid operations.
type GateConfig struct {
	OperationTimeout time.Duration
	ReservationLease time.Duration // must exceed OperationTimeout
}

// Default gate limits.
const (
	DefaultOperationTimeout = 5 * time.Minute
	DefaultReservationLease = 10 * time.Minute

	// settleTimeout bounds the bookkeeping writes after the operation returns.
	settleTimeout = 10 * time.Second
)

// UsageGate debits one credit per successful paid operation.
// A credit is reserved before the operation runs and settled or released after.
type UsageGate struct {
	accounts ports.AccountStore
	clock    ports.Clock
	metrics  ports.BillingMetrics
	logger   zerolog.Logger
	timeout  time.Duration
	lease    time.Duration
}

// NewUsageGate creates a usage gate.
func NewUsageGate(
	accounts ports.AccountStore,
	clock ports.Clock,
	metrics ports.BillingMetrics,
	logger zerolog.Logger,
	cfg GateConfig,
) *UsageGate {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = DefaultOperationTimeout
	}
	if cfg.ReservationLease <= cfg.OperationTimeout {
		cfg.ReservationLease = cfg.OperationTimeout + settleTimeout + time.Minute
	}
	return &UsageGate{
		accounts: accounts,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
		timeout:  cfg.OperationTimeout,
		lease:    cfg.ReservationLease,
	}
}

// WithCredit runs op only if accountID can pay for it, and debits one credit
// only if op succeeds within the operation timeout. Unlimited accounts are never debited.
//
// On ErrInsufficientCredits op is not called. When op fails or times out the
// reservation is released and op's error is returned. When the final debit
// fails the result is returned together with a *ReconciliationError.
func WithCredit[T any](ctx context.Context, g *UsageGate, accountID string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	reserved := false
	_, err := g.accounts.Update(ctx, accountID, func(a account.Account) (account.Account, error) {
		next, held, err := account.Reserve(a, g.clock.Now(), g.lease)
		reserved = held
		return next, err
	})
	if err != nil {
		if errors.Is(err, account.ErrInsufficientCredits) {
			g.metrics.GateOutcome(GateInsufficient)
		}
		return zero, err
	}

	opCtx, cancel := context.WithTimeout(ctx, g.timeout)
	result, opErr := op(opCtx)
	timedOut := errors.Is(opCtx.Err(), context.DeadlineExceeded)
	cancel()

	// bookkeeping must survive a client that went away
	bg, bgCancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer bgCancel()

	if opErr != nil || timedOut {
		if reserved {
			g.release(bg, accountID)
		}
		if timedOut {
			g.metrics.GateOutcome(GateTimeout)
			if opErr == nil {
				return zero, ErrOperationTimeout
			}
			return zero, fmt.Errorf("%w: %w", ErrOperationTimeout, opErr)
		}
		g.metrics.GateOutcome(GateReleased)
		return zero, opErr
	}

	if !reserved {
		g.metrics.GateOutcome(GateSettled)
		return result, nil
	}

	if _, err := g.accounts.Update(bg, accountID, func(a account.Account) (account.Account, error) {
		return account.Settle(a, g.clock.Now())
	}); err != nil {
		g.logger.Error().Err(err).
			Str("account_id", accountID).
			Int64("amount", 1).
			Msg("paid operation succeeded but debit failed, reconciliation required")
		g.metrics.ReconciliationRequired()
		return result, &ReconciliationError{AccountID: accountID, Amount: 1, Err: err}
	}

	g.metrics.GateOutcome(GateSettled)
	return result, nil
}

// release gives the reserved credit back. A failure only delays availability
// until the lease expires.
func (g *UsageGate) release(ctx context.Context, accountID string) {
	if _, err := g.accounts.Update(ctx, accountID, func(a account.Account) (account.Account, error) {
		return account.Release(a, g.clock.Now()), nil
	}); err != nil {
		g.logger.Warn().Err(err).
			Str("account_id", accountID).
			Dur("lease", g.lease).
			Msg("failed to release credit reservation")
	}
}

// Limits returns the operation timeout and reservation lease in effect.
func (g *UsageGate) Limits() (timeout, lease time.Duration) {
	return g.timeout, g.lease
}
