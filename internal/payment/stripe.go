package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/tablehouse/eventdesk/internal/apperr"
)

// IntentMetadataKey is the session metadata key carrying the checkout intent id.
const IntentMetadataKey = "intent_id"

// StripeGateway implements Gateway on Stripe Checkout.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	currency      string
}

// NewStripeGateway builds a gateway using the secret API key and webhook signing secret.
func NewStripeGateway(secretKey, webhookSecret, currency string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = string(stripe.CurrencyCAD)
	}
	return &StripeGateway{api: api, webhookSecret: webhookSecret, currency: currency}
}

// CreateCheckoutSession creates a hosted payment page for req.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validation("Checkout has no items")
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.IntentID),
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata(IntentMetadataKey, req.IntentID)
	for _, item := range req.Items {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.currency),
				UnitAmount: stripe.Int64(item.UnitAmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}

	sess, errNew := g.api.CheckoutSessions.New(params)
	if errNew != nil {
		return nil, apperr.Upstream("Payment provider rejected the checkout", errNew)
	}
	log.WithFields(log.Fields{"session_id": sess.ID, "intent_id": req.IntentID}).Info("checkout session created")
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

// ParseWebhook verifies the signature and decodes the event.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	event, errConstruct := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if errConstruct != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "Invalid webhook signature", errConstruct)
	}
	return decodeEvent(event)
}

func decodeEvent(event stripe.Event) (*Event, error) {
	out := &Event{ID: event.ID, Type: string(event.Type), Kind: EventIgnored}
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded", "checkout.session.expired":
	default:
		return out, nil
	}
	if event.Data == nil {
		return nil, apperr.Validation("Webhook event has no data")
	}
	var sess stripe.CheckoutSession
	if errDecode := json.Unmarshal(event.Data.Raw, &sess); errDecode != nil {
		return nil, apperr.Validation(fmt.Sprintf("Webhook session payload is invalid: %v", errDecode))
	}
	out.SessionID = sess.ID
	out.IntentID = sess.Metadata[IntentMetadataKey]
	if out.IntentID == "" {
		out.IntentID = sess.ClientReferenceID
	}
	out.AmountCents = sess.AmountTotal
	if sess.CustomerDetails != nil {
		out.CustomerEmail = sess.CustomerDetails.Email
	}
	if out.CustomerEmail == "" {
		out.CustomerEmail = sess.CustomerEmail
	}
	if sess.PaymentIntent != nil {
		out.PaymentRef = sess.PaymentIntent.ID
	}

	switch {
	case event.Type == "checkout.session.expired":
		out.Kind = EventSessionExpired
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		out.Kind = EventPaymentCompleted
	default:
		log.WithFields(log.Fields{"session_id": sess.ID, "payment_status": sess.PaymentStatus}).
			Info("checkout completed without payment yet")
	}
	return out, nil
}

// Refund returns amountCents of a payment; zero refunds the full amount.
func (g *StripeGateway) Refund(ctx context.Context, paymentRef string, amountCents int64) error {
	if strings.TrimSpace(paymentRef) == "" {
		return apperr.Upstream("Refund failed", errors.New("missing payment reference"))
	}
	params := &stripe.RefundParams{PaymentIntent: stripe.String(paymentRef)}
	params.Context = ctx
	if amountCents > 0 {
		params.Amount = stripe.Int64(amountCents)
	}
	refund, errRefund := g.api.Refunds.New(params)
	if errRefund != nil {
		return apperr.Upstream("Refund failed", errRefund)
	}
	log.WithFields(log.Fields{"payment_ref": paymentRef, "refund_id": refund.ID}).Info("payment refunded")
	return nil
}
