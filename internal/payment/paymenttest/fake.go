// Package paymenttest provides an in-memory payment gateway for tests and local runs.
package paymenttest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/payment"
)

// Refund records one refund call.
type Refund struct {
	PaymentRef  string
	AmountCents int64
}

// Gateway is a payment.Gateway that records calls. Webhook payloads are JSON-encoded
// payment.Event values and the signature must equal Secret.
type Gateway struct {
	Secret    string
	FailNext  error
	mu        sync.Mutex
	sessions  map[string]payment.SessionRequest
	refunds   []Refund
	nextIndex int
}

// New returns an empty fake gateway.
func New() *Gateway {
	return &Gateway{Secret: "test-secret", sessions: map[string]payment.SessionRequest{}}
}

// CreateCheckoutSession records req and returns a fake hosted page.
func (g *Gateway) CreateCheckoutSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailNext != nil {
		err := g.FailNext
		g.FailNext = nil
		return nil, apperr.Upstream("Payment provider rejected the checkout", err)
	}
	g.nextIndex++
	id := fmt.Sprintf("cs_test_%d_%s", g.nextIndex, uuid.NewString()[:8])
	g.sessions[id] = req
	return &payment.Session{ID: id, URL: "https://pay.example.test/" + id}, nil
}

// Session returns the request recorded for a session id.
func (g *Gateway) Session(id string) (payment.SessionRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	req, ok := g.sessions[id]
	return req, ok
}

// CompletedEvent builds the payment event the processor would send for a session.
func (g *Gateway) CompletedEvent(sessionID string) payment.Event {
	req, _ := g.Session(sessionID)
	return payment.Event{
		ID:            "evt_" + sessionID,
		Kind:          payment.EventPaymentCompleted,
		Type:          "checkout.session.completed",
		SessionID:     sessionID,
		IntentID:      req.IntentID,
		PaymentRef:    "pi_" + sessionID,
		CustomerEmail: req.CustomerEmail,
		AmountCents:   req.TotalCents(),
	}
}

// ParseWebhook decodes a JSON payment.Event when signature matches Secret.
func (g *Gateway) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if signature != g.Secret {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "Invalid webhook signature", errors.New("signature mismatch"))
	}
	var event payment.Event
	if errDecode := json.Unmarshal(payload, &event); errDecode != nil {
		return nil, apperr.Validation("Webhook payload is invalid")
	}
	return &event, nil
}

// Refund records the refund.
func (g *Gateway) Refund(_ context.Context, paymentRef string, amountCents int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, Refund{PaymentRef: paymentRef, AmountCents: amountCents})
	return nil
}

// Refunds returns the recorded refunds.
func (g *Gateway) Refunds() []Refund {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Refund, len(g.refunds))
	copy(out, g.refunds)
	return out
}
