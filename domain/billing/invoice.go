package billing

import (
	"strconv"
	"strings"
	"time"
)

// InvoiceStatus represents the state of an invoice at the processor.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusOpen          InvoiceStatus = "open"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusVoid          InvoiceStatus = "void"
	InvoiceStatusUncollectible InvoiceStatus = "uncollectible"
)

// Invoice is a processor invoice as shown in the billing history (value type).
type Invoice struct {
	ID         string
	AmountPaid int64  // minor units
	Currency   string // upper-case ISO code
	Status     InvoiceStatus
	PDFURL     string
	CreatedAt  time.Time
}

// Amount returns the paid amount in major units.
func (i Invoice) Amount() float64 {
	return float64(i.AmountPaid) / 100
}

// Display formats the paid amount with its currency.
func (i Invoice) Display() string {
	return FormatAmount(i.AmountPaid, i.Currency)
}

// CheckoutMode selects between a credit pack and a subscription checkout.
type CheckoutMode string

const (
	CheckoutPayment      CheckoutMode = "payment"
	CheckoutSubscription CheckoutMode = "subscription"
)

// CheckoutRequest describes a hosted checkout session to open.
type CheckoutRequest struct {
	Mode        CheckoutMode
	AccountID   string
	CustomerRef string
	PriceRef    string
	SuccessURL  string
	CancelURL   string
}

// FormatAmount formats minor units with a currency prefix, e.g. "$1,234.50".
// This is a PURE function.
func FormatAmount(minor int64, currency string) string {
	prefix := currencyPrefix(currency)
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	major, cents := minor/100, minor%100
	s := sign + prefix + groupThousands(major)
	if cents != 0 {
		s += "." + pad2(cents)
	}
	return s
}

func currencyPrefix(currency string) string {
	switch strings.ToUpper(currency) {
	case "", "USD":
		return "$"
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	default:
		return strings.ToUpper(currency) + " "
	}
}

func groupThousands(n int64) string {
	digits := strconv.FormatInt(n, 10)
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
