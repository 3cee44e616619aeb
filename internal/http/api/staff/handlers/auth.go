package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/config"
	"github.com/tablehouse/eventdesk/internal/employee"
	"github.com/tablehouse/eventdesk/internal/security"
)

// AuthHandler signs staff in with their passcode.
type AuthHandler struct {
	employees *employee.Service
	jwtCfg    config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(employees *employee.Service, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{employees: employees, jwtCfg: jwtCfg}
}

// loginRequest defines the request body for staff login.
type loginRequest struct {
	Passcode string `json:"passcode"`
}

// Login exchanges a passcode for a staff token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	row, errAuth := h.employees.Authenticate(c.Request.Context(), body.Passcode)
	if errAuth != nil {
		log.WithField("ip", c.ClientIP()).Warn("staff login rejected")
		apperr.Respond(c, errAuth)
		return
	}
	token, errToken := security.GenerateEmployeeToken(h.jwtCfg.Secret, row.ID, row.Name, h.jwtCfg.StaffExpiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"employee": gin.H{
			"id":   row.ID,
			"name": row.Name,
		},
	})
}
