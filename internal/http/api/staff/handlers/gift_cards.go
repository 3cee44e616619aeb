package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/giftcard"
	apphttp "github.com/tablehouse/eventdesk/internal/http"
	"github.com/tablehouse/eventdesk/internal/http/api"
)

// GiftCardHandler serves in-person redemption.
type GiftCardHandler struct {
	engine *giftcard.Engine
}

// NewGiftCardHandler constructs a GiftCardHandler.
func NewGiftCardHandler(engine *giftcard.Engine) *GiftCardHandler {
	return &GiftCardHandler{engine: engine}
}

// balanceRequest defines the request body for a deduction or refund.
type balanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

// Lookup returns a card with its holder details.
func (h *GiftCardHandler) Lookup(c *gin.Context) {
	card, errLookup := h.engine.Lookup(c.Request.Context(), c.Param("code"))
	if errLookup != nil {
		apperr.Respond(c, errLookup)
		return
	}
	c.JSON(http.StatusOK, api.CardView(*card))
}

// Deduct redeems part of a card balance.
func (h *GiftCardHandler) Deduct(c *gin.Context) {
	var body balanceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	cents, errAmount := api.AmountCents(body.Amount)
	if errAmount != nil {
		apperr.Respond(c, errAmount)
		return
	}
	change, errDeduct := h.engine.Deduct(c.Request.Context(), c.Param("code"), cents, actorOf(c), body.Note)
	if errDeduct != nil {
		apperr.Respond(c, errDeduct)
		return
	}
	c.JSON(http.StatusOK, api.BalanceChangeView(change))
}

// Refund returns part of a previous redemption to a card.
func (h *GiftCardHandler) Refund(c *gin.Context) {
	var body balanceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	cents, errAmount := api.AmountCents(body.Amount)
	if errAmount != nil {
		apperr.Respond(c, errAmount)
		return
	}
	change, errRefund := h.engine.Refund(c.Request.Context(), c.Param("code"), cents, actorOf(c), body.Note)
	if errRefund != nil {
		apperr.Respond(c, errRefund)
		return
	}
	c.JSON(http.StatusOK, api.BalanceChangeView(change))
}

// Transactions lists the audit log of a card.
func (h *GiftCardHandler) Transactions(c *gin.Context) {
	card, errLookup := h.engine.Lookup(c.Request.Context(), c.Param("code"))
	if errLookup != nil {
		apperr.Respond(c, errLookup)
		return
	}
	entries, total, errList := h.engine.Store().Transactions(c.Request.Context(), giftcard.TransactionFilter{
		CardID: card.ID,
		Page:   api.QueryInt(c, "page"),
		Limit:  api.QueryInt(c, "limit"),
	})
	if errList != nil {
		apperr.Respond(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": api.TransactionViews(entries), "total": total})
}

// actorOf reads the signed-in employee from context.
func actorOf(c *gin.Context) giftcard.Actor {
	actor := giftcard.Actor{EmployeeName: c.GetString(apphttp.ContextEmployeeName)}
	if id, ok := apphttp.EmployeeID(c); ok {
		actor.EmployeeID = &id
	}
	return actor
}
