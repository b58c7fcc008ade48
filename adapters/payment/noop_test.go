package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/memomeet/memomeet/domain/billing"
)

func TestNoopProvider(t *testing.T) {
	p := NewNoopProvider()
	ctx := context.Background()

	if p.Name() != "none" {
		t.Errorf("Name() = %q, want none", p.Name())
	}
	if _, err := p.CreateCustomer(ctx, "acc_1", ""); !errors.Is(err, ErrPaymentsDisabled) {
		t.Errorf("CreateCustomer err = %v", err)
	}
	if _, err := p.CreateCheckoutSession(ctx, billing.CheckoutRequest{}); !errors.Is(err, ErrPaymentsDisabled) {
		t.Errorf("CreateCheckoutSession err = %v", err)
	}
	if _, err := p.CancelActiveSubscription(ctx, "cus_1"); !errors.Is(err, ErrPaymentsDisabled) {
		t.Errorf("CancelActiveSubscription err = %v", err)
	}
	if _, err := p.SubscriptionPrice(ctx, "sub_1"); !errors.Is(err, ErrPaymentsDisabled) {
		t.Errorf("SubscriptionPrice err = %v", err)
	}
	if _, err := p.ParseWebhook([]byte("{}"), "sig"); !errors.Is(err, ErrPaymentsDisabled) {
		t.Errorf("ParseWebhook err = %v", err)
	}
	invoices, err := p.ListInvoices(ctx, "cus_1", 10)
	if err != nil || len(invoices) != 0 {
		t.Errorf("ListInvoices = %v, %v", invoices, err)
	}
}
