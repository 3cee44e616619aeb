package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/checkout"
	"github.com/tablehouse/eventdesk/internal/http/api"
)

// IntentHandler exposes checkout intents for support lookups.
type IntentHandler struct {
	checkout *checkout.Service
}

// NewIntentHandler constructs an IntentHandler.
func NewIntentHandler(checkoutService *checkout.Service) *IntentHandler {
	return &IntentHandler{checkout: checkoutService}
}

// List returns a filtered page of intents.
func (h *IntentHandler) List(c *gin.Context) {
	intents, total, errList := h.checkout.ListIntents(c.Request.Context(), checkout.IntentFilter{
		Status: strings.TrimSpace(c.Query("status")),
		Kind:   strings.TrimSpace(c.Query("kind")),
		Email:  c.Query("email"),
		Page:   api.QueryInt(c, "page"),
		Limit:  api.QueryInt(c, "limit"),
	})
	if errList != nil {
		apperr.Respond(c, errList)
		return
	}
	out := make([]gin.H, 0, len(intents))
	for _, intent := range intents {
		out = append(out, api.IntentView(intent))
	}
	c.JSON(http.StatusOK, gin.H{"intents": out, "total": total})
}
