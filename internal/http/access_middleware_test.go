package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tablehouse/eventdesk/internal/config"
	"github.com/tablehouse/eventdesk/internal/db/dbtest"
	"github.com/tablehouse/eventdesk/internal/models"
	"github.com/tablehouse/eventdesk/internal/ratelimit"
	"github.com/tablehouse/eventdesk/internal/security"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Expiry: time.Hour, StaffExpiry: time.Hour}

type stubLimiter struct {
	allowed bool
	err     error
}

func (s *stubLimiter) Allow(_ context.Context, _ string) (bool, error) {
	return s.allowed, s.err
}

func runRequestWithMiddleware(t *testing.T, token string, middleware ...gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware...)
	router.GET("/*path", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	responseRecorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v0/test", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(responseRecorder, req)

	return responseRecorder
}

func TestAdminAuthMiddleware(t *testing.T) {
	conn := dbtest.Open(t)
	active := models.Admin{Username: "root", Password: "x", Active: true}
	disabled := models.Admin{Username: "gone", Password: "x", Active: true}
	if err := conn.Create(&active).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if err := conn.Create(&disabled).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if err := conn.Model(&disabled).Update("active", false).Error; err != nil {
		t.Fatalf("disable admin: %v", err)
	}

	middleware := AdminAuthMiddleware(conn, testJWT)
	if rec := runRequestWithMiddleware(t, "", middleware); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, _ := security.GenerateAdminToken(testJWT.Secret, active.ID, active.Username, false, time.Hour)
	if rec := runRequestWithMiddleware(t, token, middleware); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := runRequestWithMiddleware(t, token, middleware, SuperAdminMiddleware()); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non super admin, got %d", rec.Code)
	}

	disabledToken, _ := security.GenerateAdminToken(testJWT.Secret, disabled.ID, disabled.Username, false, time.Hour)
	if rec := runRequestWithMiddleware(t, disabledToken, middleware); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for disabled admin, got %d", rec.Code)
	}

	staffToken, _ := security.GenerateEmployeeToken(testJWT.Secret, active.ID, "root", time.Hour)
	if rec := runRequestWithMiddleware(t, staffToken, middleware); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected staff token to be rejected, got %d", rec.Code)
	}
}

func TestStaffAuthMiddlewareRejectsArchivedEmployee(t *testing.T) {
	conn := dbtest.Open(t)
	employee := models.Employee{Name: "Ana", Passcode: "1234", Status: models.EmployeeStatusActive}
	if err := conn.Create(&employee).Error; err != nil {
		t.Fatalf("create employee: %v", err)
	}
	token, _ := security.GenerateEmployeeToken(testJWT.Secret, employee.ID, employee.Name, time.Hour)
	middleware := StaffAuthMiddleware(conn, testJWT)

	if rec := runRequestWithMiddleware(t, token, middleware); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if err := conn.Model(&employee).Update("status", models.EmployeeStatusArchived).Error; err != nil {
		t.Fatalf("archive: %v", err)
	}
	if rec := runRequestWithMiddleware(t, token, middleware); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 after archive, got %d", rec.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	if rec := runRequestWithMiddleware(t, "", RateLimitMiddleware(&stubLimiter{allowed: false}, "balance")); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec := runRequestWithMiddleware(t, "", RateLimitMiddleware(&stubLimiter{err: errors.New("redis down")}, "balance")); rec.Code != http.StatusNoContent {
		t.Fatalf("expected limiter errors to fail open, got %d", rec.Code)
	}

	local := ratelimit.NewLocalLimiter(1, time.Minute)
	middleware := RateLimitMiddleware(local, "login")
	if rec := runRequestWithMiddleware(t, "", middleware); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	if rec := runRequestWithMiddleware(t, "", middleware); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be limited, got %d", rec.Code)
	}
}
