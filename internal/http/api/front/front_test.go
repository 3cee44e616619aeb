package front

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tablehouse/eventdesk/internal/giftcard"
	"github.com/tablehouse/eventdesk/internal/http/api/apitest"
	"github.com/tablehouse/eventdesk/internal/models"
	"github.com/tablehouse/eventdesk/internal/ratelimit"
)

func sendWebhook(t *testing.T, r http.Handler, payload any, signature string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v0/webhooks/payment", bytes.NewReader(raw))
	req.Header.Set("Stripe-Signature", signature)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGiftCardPurchaseFlow(t *testing.T) {
	svc, gateway := apitest.NewServices(t)
	router := apitest.NewRouter(func(r *gin.Engine) { RegisterFrontRoutes(r, svc) })

	rec := apitest.Do(t, router, http.MethodPost, "/v0/front/gift-cards/checkout", map[string]any{
		"buyer_name":  "Cy Buyer",
		"buyer_email": "cy@example.com",
		"cards": []map[string]any{
			{"amount": 100, "recipient_name": "Bo", "recipient_email": "bo@example.com"},
		},
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	started := apitest.Decode(t, rec)
	sessionID, _ := started["session_id"].(string)
	if started["amount"] != float64(100) || sessionID == "" {
		t.Fatalf("unexpected checkout response: %v", started)
	}

	rec = sendWebhook(t, router, gateway.CompletedEvent(sessionID), "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected bad signature to be rejected, got %d", rec.Code)
	}
	for i := 0; i < 2; i++ {
		rec = sendWebhook(t, router, gateway.CompletedEvent(sessionID), gateway.Secret)
		if rec.Code != http.StatusOK {
			t.Fatalf("webhook %d: expected 200, got %d: %s", i, rec.Code, rec.Body.String())
		}
	}

	rec = apitest.Do(t, router, http.MethodGet, "/v0/front/checkout/status?session_id="+sessionID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	status := apitest.Decode(t, rec)
	if status["status"] != models.CheckoutStatusCompleted {
		t.Fatalf("expected completed, got %v", status["status"])
	}
	order, _ := status["order"].(map[string]any)
	cards, _ := order["cards"].([]any)
	if len(cards) != 2 {
		t.Fatalf("expected purchased and bonus card, got %v", order)
	}

	first, _ := cards[0].(map[string]any)
	code, _ := first["code"].(string)
	rec = apitest.Do(t, router, http.MethodGet, "/v0/front/gift-cards/"+code+"/balance", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("balance: expected 200, got %d", rec.Code)
	}
	balance := apitest.Decode(t, rec)
	if balance["remaining_amount"] != float64(100) {
		t.Fatalf("unexpected balance: %v", balance)
	}
	if _, leaked := balance["owner_email"]; leaked {
		t.Fatalf("balance view must not expose owner email")
	}
}

func TestGiftCardCheckoutValidation(t *testing.T) {
	svc, _ := apitest.NewServices(t)
	router := apitest.NewRouter(func(r *gin.Engine) { RegisterFrontRoutes(r, svc) })

	rec := apitest.Do(t, router, http.MethodPost, "/v0/front/gift-cards/checkout", map[string]any{
		"buyer_name":  "Cy",
		"buyer_email": "cy@example.com",
		"cards":       []map[string]any{{"amount": 5}},
	}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := apitest.Decode(t, rec); body["code"] != "validation_error" {
		t.Fatalf("unexpected error payload: %v", body)
	}

	rec = apitest.Do(t, router, http.MethodPost, "/v0/front/gift-cards/checkout", []byte("{"), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", rec.Code)
	}
}

func TestBalanceLookupIsRateLimited(t *testing.T) {
	svc, _ := apitest.NewServices(t)
	svc.BalanceLimiter = ratelimit.NewLocalLimiter(2, time.Minute)
	router := apitest.NewRouter(func(r *gin.Engine) { RegisterFrontRoutes(r, svc) })

	card, err := svc.GiftCards.Issue(context.Background(), giftcard.IssueRequest{
		Channel:     models.GiftCardChannelAdmin,
		AmountCents: 2_500,
		OwnerName:   "Cy",
		OwnerEmail:  "cy@example.com",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	for i := 0; i < 2; i++ {
		if rec := apitest.Do(t, router, http.MethodGet, "/v0/front/gift-cards/"+card.Code+"/balance", nil, ""); rec.Code != http.StatusOK {
			t.Fatalf("lookup %d: expected 200, got %d", i, rec.Code)
		}
	}
	if rec := apitest.Do(t, router, http.MethodGet, "/v0/front/gift-cards/ZZZZZZZZ/balance", nil, ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestUnknownCardIsNotFound(t *testing.T) {
	svc, _ := apitest.NewServices(t)
	router := apitest.NewRouter(func(r *gin.Engine) { RegisterFrontRoutes(r, svc) })

	rec := apitest.Do(t, router, http.MethodGet, "/v0/front/gift-cards/ZZZZZZZZ/balance", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTableBookingAndPaidBookingRouting(t *testing.T) {
	svc, _ := apitest.NewServices(t)
	router := apitest.NewRouter(func(r *gin.Engine) { RegisterFrontRoutes(r, svc) })

	table := map[string]any{
		"kind":       models.BookingKindTable,
		"name":       "Eve",
		"email":      "eve@example.com",
		"date":       "2099-03-01",
		"time_slot":  "18:00",
		"party_size": 2,
	}
	rec := apitest.Do(t, router, http.MethodPost, "/v0/front/bookings", table, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	booking := apitest.Decode(t, rec)
	number, _ := booking["booking_number"].(string)

	rec = apitest.Do(t, router, http.MethodGet, "/v0/front/bookings/"+number+"?email=EVE@example.com", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected guest lookup to succeed, got %d", rec.Code)
	}
	rec = apitest.Do(t, router, http.MethodGet, "/v0/front/bookings/"+number+"?email=other@example.com", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected other email to be refused, got %d", rec.Code)
	}

	valentines := map[string]any{
		"kind":       models.BookingKindValentines,
		"name":       "Dee",
		"email":      "dee@example.com",
		"date":       "2099-02-14",
		"time_slot":  "19:00",
		"party_size": 2,
	}
	rec = apitest.Do(t, router, http.MethodPost, "/v0/front/bookings", valentines, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected paid family to require checkout, got %d", rec.Code)
	}
	rec = apitest.Do(t, router, http.MethodPost, "/v0/front/bookings/checkout", valentines, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected checkout to start, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = apitest.Do(t, router, http.MethodGet, "/v0/front/bookings/availability?kind=table&date=2099-03-01&time_slot=18:00", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("availability: expected 200, got %d", rec.Code)
	}
	if avail := apitest.Decode(t, rec); avail["confirmed"] != float64(2) {
		t.Fatalf("unexpected availability: %v", avail)
	}
}
