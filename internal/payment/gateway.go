// Package payment talks to the card payment processor.
package payment

import (
	"context"
)

// EventKind classifies a webhook event.
type EventKind string

// Webhook event kinds the site reacts to.
const (
	EventPaymentCompleted EventKind = "payment_completed"
	EventSessionExpired   EventKind = "session_expired"
	EventIgnored          EventKind = "ignored"
)

// LineItem is one priced line of a checkout session.
type LineItem struct {
	Name            string // Shown on the payment page.
	UnitAmountCents int64  // Price of one unit.
	Quantity        int64  // Units bought.
}

// SessionRequest describes a hosted checkout page to create.
type SessionRequest struct {
	IntentID      string     // Checkout intent the session pays for.
	CustomerEmail string     // Prefilled payer email.
	Items         []LineItem // Priced lines.
	SuccessURL    string     // Redirect after payment; may contain {CHECKOUT_SESSION_ID}.
	CancelURL     string     // Redirect when the payer backs out.
}

// TotalCents returns the sum of all lines.
func (r SessionRequest) TotalCents() int64 {
	var total int64
	for _, item := range r.Items {
		total += item.UnitAmountCents * item.Quantity
	}
	return total
}

// Session is a created checkout session.
type Session struct {
	ID  string // Gateway session id.
	URL string // Hosted payment page.
}

// Event is a verified webhook event reduced to what the site needs.
type Event struct {
	ID            string    // Gateway event id.
	Kind          EventKind // What happened.
	Type          string    // Raw gateway event type.
	SessionID     string    // Checkout session id.
	IntentID      string    // Checkout intent from session metadata.
	PaymentRef    string    // Payment reference usable for refunds.
	CustomerEmail string    // Payer email.
	AmountCents   int64     // Amount charged.
}

// Gateway creates checkout sessions, verifies webhooks and issues refunds.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
	Refund(ctx context.Context, paymentRef string, amountCents int64) error
}
