package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/giftcard"
	apphttp "github.com/tablehouse/eventdesk/internal/http"
	"github.com/tablehouse/eventdesk/internal/http/api"
	"github.com/tablehouse/eventdesk/internal/models"
)

// GiftCardHandler manages gift cards from the admin console.
type GiftCardHandler struct {
	engine *giftcard.Engine
}

// NewGiftCardHandler constructs a GiftCardHandler.
func NewGiftCardHandler(engine *giftcard.Engine) *GiftCardHandler {
	return &GiftCardHandler{engine: engine}
}

// List returns a filtered page of cards.
func (h *GiftCardHandler) List(c *gin.Context) {
	filter := giftcard.ListFilter{
		Status:  strings.TrimSpace(c.Query("status")),
		Channel: strings.TrimSpace(c.Query("channel")),
		Search:  c.Query("search"),
		OrderID: strings.TrimSpace(c.Query("order_id")),
		Page:    api.QueryInt(c, "page"),
		Limit:   api.QueryInt(c, "limit"),
	}
	if c.Query("bonus") == "true" {
		isBonus := true
		filter.IsBonus = &isBonus
	}
	cards, total, errList := h.engine.Store().List(c.Request.Context(), filter)
	if errList != nil {
		apperr.Respond(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gift_cards": api.CardViews(cards), "total": total})
}

// Get returns one card by id.
func (h *GiftCardHandler) Get(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	card, errFind := h.engine.Store().FindByID(c.Request.Context(), id)
	if errFind != nil {
		apperr.Respond(c, errFind)
		return
	}
	c.JSON(http.StatusOK, api.CardView(*card))
}

// issueRequest defines the request body for issuing a card by hand.
type issueRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	OwnerName       string          `json:"owner_name"`
	OwnerEmail      string          `json:"owner_email"`
	BuyerName       string          `json:"buyer_name"`
	BuyerEmail      string          `json:"buyer_email"`
	PersonalMessage string          `json:"personal_message"`
}

// Issue creates a card on the admin channel.
func (h *GiftCardHandler) Issue(c *gin.Context) {
	var body issueRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	cents, errAmount := api.AmountCents(body.Amount)
	if errAmount != nil {
		apperr.Respond(c, errAmount)
		return
	}
	buyerName := strings.TrimSpace(body.BuyerName)
	if buyerName == "" {
		buyerName = apphttp.AdminUsername(c)
	}
	card, errIssue := h.engine.Issue(c.Request.Context(), giftcard.IssueRequest{
		Channel:         models.GiftCardChannelAdmin,
		AmountCents:     cents,
		OwnerName:       body.OwnerName,
		OwnerEmail:      body.OwnerEmail,
		BuyerName:       buyerName,
		BuyerEmail:      body.BuyerEmail,
		IsGift:          strings.TrimSpace(body.BuyerEmail) != "" && !strings.EqualFold(strings.TrimSpace(body.BuyerEmail), strings.TrimSpace(body.OwnerEmail)),
		PersonalMessage: body.PersonalMessage,
	})
	if errIssue != nil {
		apperr.Respond(c, errIssue)
		return
	}
	log.WithFields(log.Fields{
		"code":  card.Code,
		"admin": apphttp.AdminUsername(c),
	}).Info("gift card issued")
	c.JSON(http.StatusCreated, api.CardView(*card))
}

// adjustRequest defines the request body for a balance override.
type adjustRequest struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

// Adjust overwrites a card balance.
func (h *GiftCardHandler) Adjust(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body adjustRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	cents, errAmount := api.AmountCents(body.Amount)
	if errAmount != nil {
		apperr.Respond(c, errAmount)
		return
	}
	change, errAdjust := h.engine.AdminAdjust(c.Request.Context(), id, body.Code, cents, apphttp.AdminUsername(c))
	if errAdjust != nil {
		apperr.Respond(c, errAdjust)
		return
	}
	c.JSON(http.StatusOK, api.BalanceChangeView(change))
}

// statusRequest defines the request body for a status change.
type statusRequest struct {
	Code   string `json:"code"`
	Status string `json:"status"`
}

// SetStatus cancels, expires or reactivates a card.
func (h *GiftCardHandler) SetStatus(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body statusRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	card, errStatus := h.engine.SetStatus(c.Request.Context(), id, body.Code, strings.TrimSpace(body.Status))
	if errStatus != nil {
		apperr.Respond(c, errStatus)
		return
	}
	log.WithFields(log.Fields{
		"code":   card.Code,
		"status": card.Status,
		"admin":  apphttp.AdminUsername(c),
	}).Info("gift card status changed")
	c.JSON(http.StatusOK, api.CardView(*card))
}

// Delete removes a card. The code must be confirmed with ?code=.
func (h *GiftCardHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if errDelete := h.engine.Delete(c.Request.Context(), id, c.Query("code")); errDelete != nil {
		apperr.Respond(c, errDelete)
		return
	}
	log.WithFields(log.Fields{
		"card_id": id,
		"admin":   apphttp.AdminUsername(c),
	}).Info("gift card deleted")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Transactions lists the audit log, optionally for a single card or employee.
func (h *GiftCardHandler) Transactions(c *gin.Context) {
	filter := giftcard.TransactionFilter{
		EmployeeID: uint64(max(api.QueryInt(c, "employee_id"), 0)),
		Type:       strings.TrimSpace(c.Query("type")),
		Page:       api.QueryInt(c, "page"),
		Limit:      api.QueryInt(c, "limit"),
	}
	if c.Param("id") != "" {
		id, ok := api.ParseID(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		filter.CardID = id
	}
	entries, total, errList := h.engine.Store().Transactions(c.Request.Context(), filter)
	if errList != nil {
		apperr.Respond(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": api.TransactionViews(entries), "total": total})
}
