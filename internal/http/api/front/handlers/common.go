package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tablehouse/eventdesk/internal/apperr"
)

// maxWebhookBody caps the webhook payload read into memory.
const maxWebhookBody = 256 << 10

// bindJSON decodes the request body, answering 400 on malformed input.
func bindJSON(c *gin.Context, out any) bool {
	if errBind := c.ShouldBindJSON(out); errBind != nil {
		apperr.Respond(c, apperr.Validation("invalid json"))
		return false
	}
	return true
}

