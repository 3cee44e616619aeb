package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tablehouse/eventdesk/internal/config"
	"github.com/tablehouse/eventdesk/internal/models"
	"github.com/tablehouse/eventdesk/internal/security"
	"gorm.io/gorm"
)

// Context keys set by the auth middlewares.
const (
	ContextAdminID           = "adminID"
	ContextAdminUsername     = "adminUsername"
	ContextAdminIsSuperAdmin = "adminIsSuperAdmin"
	ContextEmployeeID        = "employeeID"
	ContextEmployeeName      = "employeeName"
)

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(c *gin.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "missing authorization header"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return "", "invalid authorization format"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// AdminAuthMiddleware validates admin JWTs and loads the admin into context.
func AdminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, problem := bearerToken(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": problem})
			return
		}
		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errJWT.Error()})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).
			Select("id", "username", "active", "is_super_admin").
			First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
			return
		}

		c.Set(ContextAdminID, admin.ID)
		c.Set(ContextAdminUsername, admin.Username)
		c.Set(ContextAdminIsSuperAdmin, admin.IsSuperAdmin)
		c.Next()
	}
}

// SuperAdminMiddleware lets only super admins through. It must run after AdminAuthMiddleware.
func SuperAdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		value, exists := c.Get(ContextAdminIsSuperAdmin)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if flag, ok := value.(bool); !ok || !flag {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}
		c.Next()
	}
}

// StaffAuthMiddleware validates staff JWTs and rejects employees archived since sign-in.
func StaffAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, problem := bearerToken(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": problem})
			return
		}
		claims, errJWT := security.ParseEmployeeToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errJWT.Error()})
			return
		}

		var employee models.Employee
		if errFind := db.WithContext(c.Request.Context()).
			Select("id", "name", "status").
			First(&employee, claims.EmployeeID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "employee not found"})
			return
		}
		if employee.Status != models.EmployeeStatusActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "employee is archived"})
			return
		}

		c.Set(ContextEmployeeID, employee.ID)
		c.Set(ContextEmployeeName, employee.Name)
		c.Next()
	}
}

// AdminUsername returns the signed-in admin's username.
func AdminUsername(c *gin.Context) string {
	return c.GetString(ContextAdminUsername)
}

// AdminID returns the signed-in admin's id.
func AdminID(c *gin.Context) (uint64, bool) {
	value, ok := c.Get(ContextAdminID)
	if !ok {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}

// EmployeeID returns the signed-in employee's id.
func EmployeeID(c *gin.Context) (uint64, bool) {
	value, ok := c.Get(ContextEmployeeID)
	if !ok {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}
