// Package apitest wires the route groups over an in-memory database for handler tests.
package apitest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tablehouse/eventdesk/internal/checkout"
	"github.com/tablehouse/eventdesk/internal/config"
	"github.com/tablehouse/eventdesk/internal/db/dbtest"
	"github.com/tablehouse/eventdesk/internal/employee"
	"github.com/tablehouse/eventdesk/internal/giftcard"
	"github.com/tablehouse/eventdesk/internal/http/api"
	"github.com/tablehouse/eventdesk/internal/payment/paymenttest"
	"github.com/tablehouse/eventdesk/internal/reservation"
)

// JWT is the token configuration used by handler tests.
var JWT = config.JWTConfig{Secret: "handler-test-secret", Expiry: time.Hour, StaffExpiry: time.Hour}

// NewServices returns services over a fresh database and the fake gateway behind them.
func NewServices(t testing.TB) (api.Services, *paymenttest.Gateway) {
	t.Helper()
	conn := dbtest.Open(t)
	gateway := paymenttest.New()
	engine := giftcard.NewEngine(conn)
	orders := giftcard.NewOrderService(engine, nil)
	bookings := reservation.NewService(conn, nil)
	checkoutService := checkout.NewService(conn, gateway, orders, bookings, checkout.URLs{
		Success: "https://tablehouse.example/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		Cancel:  "https://tablehouse.example/checkout/cancel",
	})
	return api.Services{
		DB:         conn,
		GiftCards:  engine,
		Orders:     orders,
		Bookings:   bookings,
		Checkout:   checkoutService,
		Employees:  employee.NewService(conn),
		Gateway:    gateway,
		JWT:        JWT,
		TOTPIssuer: "Table House",
	}, gateway
}

// NewRouter returns a gin engine in test mode with register applied.
func NewRouter(register func(r *gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r)
	return r
}

// Do sends a JSON request and returns the recorder.
func Do(t testing.TB, r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(v)
	default:
		raw, errMarshal := json.Marshal(v)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// Decode unmarshals a JSON response body.
func Decode(t testing.TB, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), errDecode)
	}
	return out
}
