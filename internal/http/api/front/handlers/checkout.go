package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/checkout"
	"github.com/tablehouse/eventdesk/internal/http/api"
	"github.com/tablehouse/eventdesk/internal/money"
	"github.com/tablehouse/eventdesk/internal/payment"
)

// CheckoutHandler serves the success page status and the payment webhook.
type CheckoutHandler struct {
	checkout *checkout.Service
	gateway  payment.Gateway
}

// NewCheckoutHandler constructs a CheckoutHandler.
func NewCheckoutHandler(checkoutService *checkout.Service, gateway payment.Gateway) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkoutService, gateway: gateway}
}

// Status reports what a checkout session produced. It never changes state.
func (h *CheckoutHandler) Status(c *gin.Context) {
	view, errStatus := h.checkout.Status(c.Request.Context(), c.Query("session_id"))
	if errStatus != nil {
		apperr.Respond(c, errStatus)
		return
	}
	out := gin.H{
		"intent_id": view.IntentID,
		"kind":      view.Kind,
		"status":    view.Status,
		"amount":    money.Float(view.AmountCents),
	}
	if view.FailureReason != "" {
		out["failure_reason"] = view.FailureReason
	}
	if view.Order != nil {
		cards := make([]gin.H, 0, len(view.Order.Purchased)+len(view.Order.Bonus))
		for _, card := range view.Order.Cards() {
			entry := api.BalanceView(card)
			entry["owner_name"] = card.OwnerName
			entry["is_gift"] = card.IsGift
			cards = append(cards, entry)
		}
		out["order"] = gin.H{
			"order_id":    view.Order.Order.OrderID,
			"buyer_name":  view.Order.Order.BuyerName,
			"buyer_email": view.Order.Order.BuyerEmail,
			"total":       money.Float(view.Order.Order.TotalCents),
			"bonus":       money.Float(view.Order.Order.BonusCents),
			"cards":       cards,
		}
	}
	if view.Booking != nil {
		out["booking"] = api.BookingView(*view.Booking)
	}
	c.JSON(http.StatusOK, out)
}

// Webhook verifies and applies a payment processor event.
// Non-2xx answers make the processor retry delivery.
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	payload, errRead := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if errRead != nil {
		apperr.Respond(c, apperr.Validation("unreadable body"))
		return
	}
	event, errParse := h.gateway.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if errParse != nil {
		apperr.Respond(c, errParse)
		return
	}
	intent, errHandle := h.checkout.HandleEvent(c.Request.Context(), *event)
	if errHandle != nil {
		log.WithError(errHandle).WithFields(log.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"session_id": event.SessionID,
		}).Warn("webhook event not applied")
		apperr.Respond(c, errHandle)
		return
	}
	out := gin.H{"received": true}
	if intent != nil {
		out["intent_id"] = intent.IntentID
		out["status"] = intent.Status
	}
	c.JSON(http.StatusOK, out)
}
