package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/checkout"
	"github.com/tablehouse/eventdesk/internal/giftcard"
	"github.com/tablehouse/eventdesk/internal/http/api"
	"github.com/tablehouse/eventdesk/internal/money"
)

// GiftCardHandler serves gift card purchase and balance lookups.
type GiftCardHandler struct {
	engine   *giftcard.Engine
	checkout *checkout.Service
}

// NewGiftCardHandler constructs a GiftCardHandler.
func NewGiftCardHandler(engine *giftcard.Engine, checkoutService *checkout.Service) *GiftCardHandler {
	return &GiftCardHandler{engine: engine, checkout: checkoutService}
}

// checkoutCard is one card line of a purchase request.
type checkoutCard struct {
	Amount          decimal.Decimal `json:"amount"`
	RecipientName   string          `json:"recipient_name"`
	RecipientEmail  string          `json:"recipient_email"`
	PersonalMessage string          `json:"personal_message"`
}

// checkoutRequest defines the request body for a gift card purchase.
type checkoutRequest struct {
	BuyerName  string         `json:"buyer_name"`
	BuyerEmail string         `json:"buyer_email"`
	Cards      []checkoutCard `json:"cards"`
}

// Checkout opens a payment session for a gift card order.
func (h *GiftCardHandler) Checkout(c *gin.Context) {
	var body checkoutRequest
	if !bindJSON(c, &body) {
		return
	}
	req := checkout.GiftCardRequest{
		BuyerName:  body.BuyerName,
		BuyerEmail: body.BuyerEmail,
		Cards:      make([]giftcard.OrderCard, 0, len(body.Cards)),
	}
	for _, card := range body.Cards {
		cents, errAmount := api.AmountCents(card.Amount)
		if errAmount != nil {
			apperr.Respond(c, errAmount)
			return
		}
		req.Cards = append(req.Cards, giftcard.OrderCard{
			AmountCents:     cents,
			RecipientName:   card.RecipientName,
			RecipientEmail:  card.RecipientEmail,
			PersonalMessage: card.PersonalMessage,
		})
	}
	started, errStart := h.checkout.StartGiftCardCheckout(c.Request.Context(), req)
	if errStart != nil {
		apperr.Respond(c, errStart)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"intent_id":  started.IntentID,
		"session_id": started.SessionID,
		"url":        started.URL,
		"amount":     money.Float(started.AmountCents),
	})
}

// Bonus previews the bonus card a purchase amount earns.
func (h *GiftCardHandler) Bonus(c *gin.Context) {
	amount, errParse := money.ParseCents(strings.TrimSpace(c.Query("amount")))
	if errors.Is(errParse, money.ErrOutOfRange) {
		apperr.Respond(c, apperr.Validation("amount out of range"))
		return
	}
	if errParse != nil {
		apperr.Respond(c, apperr.Validation("amount must be a number"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"amount": money.Float(amount),
		"bonus":  money.Float(giftcard.ComputeBonus(amount)),
	})
}

// Balance returns the public balance of a card.
func (h *GiftCardHandler) Balance(c *gin.Context) {
	card, errLookup := h.engine.Lookup(c.Request.Context(), c.Param("code"))
	if errLookup != nil {
		apperr.Respond(c, errLookup)
		return
	}
	c.JSON(http.StatusOK, api.BalanceView(*card))
}
