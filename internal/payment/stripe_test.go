package payment

import (
	"encoding/json"
	"testing"

	"github.com/stripe/stripe-go/v80"
)

func sessionEvent(t *testing.T, eventType string, session map[string]any) stripe.Event {
	t.Helper()
	raw, errMarshal := json.Marshal(session)
	if errMarshal != nil {
		t.Fatalf("marshal session: %v", errMarshal)
	}
	return stripe.Event{ID: "evt_1", Type: stripe.EventType(eventType), Data: &stripe.EventData{Raw: raw}}
}

func TestDecodeEventPaidSession(t *testing.T) {
	event := sessionEvent(t, "checkout.session.completed", map[string]any{
		"id":               "cs_test_1",
		"payment_status":   "paid",
		"amount_total":     12000,
		"metadata":         map[string]string{IntentMetadataKey: "intent-1"},
		"payment_intent":   "pi_123",
		"customer_details": map[string]any{"email": "cy@example.com"},
	})
	got, errDecode := decodeEvent(event)
	if errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if got.Kind != EventPaymentCompleted {
		t.Fatalf("kind = %s", got.Kind)
	}
	if got.SessionID != "cs_test_1" || got.IntentID != "intent-1" || got.PaymentRef != "pi_123" {
		t.Fatalf("unexpected event %+v", got)
	}
	if got.AmountCents != 12000 || got.CustomerEmail != "cy@example.com" {
		t.Fatalf("unexpected amount or email %+v", got)
	}
}

func TestDecodeEventUnpaidSessionIsIgnored(t *testing.T) {
	event := sessionEvent(t, "checkout.session.completed", map[string]any{
		"id":                  "cs_test_2",
		"payment_status":      "unpaid",
		"client_reference_id": "intent-2",
	})
	got, errDecode := decodeEvent(event)
	if errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if got.Kind != EventIgnored || got.IntentID != "intent-2" {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestDecodeEventExpiredAndUnrelated(t *testing.T) {
	expired, errDecode := decodeEvent(sessionEvent(t, "checkout.session.expired", map[string]any{"id": "cs_test_3"}))
	if errDecode != nil || expired.Kind != EventSessionExpired {
		t.Fatalf("expired = %+v, %v", expired, errDecode)
	}
	other, errDecode := decodeEvent(stripe.Event{ID: "evt_2", Type: "invoice.paid"})
	if errDecode != nil || other.Kind != EventIgnored {
		t.Fatalf("other = %+v, %v", other, errDecode)
	}
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	gateway := NewStripeGateway("sk_test_dummy", "whsec_test", "cad")
	if _, errParse := gateway.ParseWebhook([]byte(`{"id":"evt_1"}`), "t=1,v1=bad"); errParse == nil {
		t.Fatalf("expected signature error")
	}
}
