package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/employee"
	apphttp "github.com/tablehouse/eventdesk/internal/http"
	"github.com/tablehouse/eventdesk/internal/http/api"
	"github.com/tablehouse/eventdesk/internal/models"
)

// EmployeeHandler manages redemption staff accounts.
type EmployeeHandler struct {
	employees *employee.Service
}

// NewEmployeeHandler constructs an EmployeeHandler.
func NewEmployeeHandler(employees *employee.Service) *EmployeeHandler {
	return &EmployeeHandler{employees: employees}
}

// employeeView renders an employee including the passcode admins hand out.
func employeeView(e models.Employee) gin.H {
	return gin.H{
		"id":         e.ID,
		"name":       e.Name,
		"passcode":   e.Passcode,
		"status":     e.Status,
		"notes":      e.Notes,
		"created_at": e.CreatedAt,
		"updated_at": e.UpdatedAt,
	}
}

// List returns employees, optionally filtered by ?status=.
func (h *EmployeeHandler) List(c *gin.Context) {
	rows, errList := h.employees.List(c.Request.Context(), strings.TrimSpace(c.Query("status")))
	if errList != nil {
		apperr.Respond(c, errList)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, employeeView(row))
	}
	c.JSON(http.StatusOK, gin.H{"employees": out})
}

// Create adds an employee, generating a passcode when none is given.
func (h *EmployeeHandler) Create(c *gin.Context) {
	var body employee.CreateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	created, errCreate := h.employees.Create(c.Request.Context(), body)
	if errCreate != nil {
		apperr.Respond(c, errCreate)
		return
	}
	log.WithFields(log.Fields{
		"employee_id": created.ID,
		"admin":       apphttp.AdminUsername(c),
	}).Info("employee created")
	c.JSON(http.StatusCreated, employeeView(*created))
}

// Update changes the fields present in the body.
func (h *EmployeeHandler) Update(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body employee.UpdateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	updated, errUpdate := h.employees.Update(c.Request.Context(), id, body)
	if errUpdate != nil {
		apperr.Respond(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, employeeView(*updated))
}

// Archive disables sign-in while keeping audit history.
func (h *EmployeeHandler) Archive(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	archived, errArchive := h.employees.Archive(c.Request.Context(), id)
	if errArchive != nil {
		apperr.Respond(c, errArchive)
		return
	}
	c.JSON(http.StatusOK, employeeView(*archived))
}

// Delete removes an employee with no redemption history.
func (h *EmployeeHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if errDelete := h.employees.Delete(c.Request.Context(), id); errDelete != nil {
		apperr.Respond(c, errDelete)
		return
	}
	log.WithFields(log.Fields{
		"employee_id": id,
		"admin":       apphttp.AdminUsername(c),
	}).Info("employee deleted")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
