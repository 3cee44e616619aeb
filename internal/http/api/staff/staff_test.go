package staff

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tablehouse/eventdesk/internal/employee"
	"github.com/tablehouse/eventdesk/internal/giftcard"
	"github.com/tablehouse/eventdesk/internal/http/api"
	"github.com/tablehouse/eventdesk/internal/http/api/apitest"
	"github.com/tablehouse/eventdesk/internal/models"
)

func setup(t *testing.T) (api.Services, *gin.Engine, *models.GiftCard) {
	t.Helper()
	svc, _ := apitest.NewServices(t)
	router := apitest.NewRouter(func(r *gin.Engine) { RegisterStaffRoutes(r, svc) })
	if _, err := svc.Employees.Create(context.Background(), employee.CreateRequest{Name: "Ana", Passcode: "2468"}); err != nil {
		t.Fatalf("create employee: %v", err)
	}
	card, err := svc.GiftCards.Issue(context.Background(), giftcard.IssueRequest{
		Channel:     models.GiftCardChannelAdmin,
		AmountCents: 10_000,
		OwnerName:   "Cy",
		OwnerEmail:  "cy@example.com",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return svc, router, card
}

func login(t *testing.T, router *gin.Engine, passcode string) string {
	t.Helper()
	rec := apitest.Do(t, router, http.MethodPost, "/v0/staff/login", map[string]any{"passcode": passcode}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	token, _ := apitest.Decode(t, rec)["token"].(string)
	return token
}

func TestStaffLogin(t *testing.T) {
	_, router, _ := setup(t)
	if token := login(t, router, "2468"); token == "" {
		t.Fatalf("expected token")
	}
	rec := apitest.Do(t, router, http.MethodPost, "/v0/staff/login", map[string]any{"passcode": "1111"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong passcode, got %d", rec.Code)
	}
}

func TestDeductRecordsEmployee(t *testing.T) {
	svc, router, card := setup(t)
	token := login(t, router, "2468")

	rec := apitest.Do(t, router, http.MethodPost, "/v0/staff/gift-cards/"+card.Code+"/deduct", map[string]any{"amount": "25.50", "note": "table 4"}, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("deduct: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := apitest.Decode(t, rec)
	if body["previous_balance"] != float64(100) || body["new_balance"] != 74.5 || body["status"] != models.GiftCardStatusActive {
		t.Fatalf("unexpected deduct response: %v", body)
	}

	rec = apitest.Do(t, router, http.MethodPost, "/v0/staff/gift-cards/"+card.Code+"/deduct", map[string]any{"amount": 500}, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected insufficient balance to be 400, got %d", rec.Code)
	}
	if apitest.Decode(t, rec)["code"] != "insufficient_balance" {
		t.Fatalf("expected insufficient_balance code")
	}

	rec = apitest.Do(t, router, http.MethodPost, "/v0/staff/gift-cards/"+card.Code+"/refund", map[string]any{"amount": 5}, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("refund: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	entries, total, err := svc.GiftCards.Store().Transactions(context.Background(), giftcard.TransactionFilter{CardID: card.ID})
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 transactions, got %d", total)
	}
	for _, entry := range entries {
		if entry.EmployeeName != "Ana" || entry.EmployeeID == nil {
			t.Fatalf("expected employee snapshot on %+v", entry)
		}
	}

	rec = apitest.Do(t, router, http.MethodGet, "/v0/staff/gift-cards/"+card.Code+"/transactions", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("transactions: expected 200, got %d", rec.Code)
	}
}

func TestStaffRoutesRequireToken(t *testing.T) {
	_, router, card := setup(t)
	rec := apitest.Do(t, router, http.MethodGet, "/v0/staff/gift-cards/"+card.Code, nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestDeductRejectsOverflowingAmount(t *testing.T) {
	svc, router, card := setup(t)
	token := login(t, router, "2468")

	for _, path := range []string{"/deduct", "/refund"} {
		rec := apitest.Do(t, router, http.MethodPost, "/v0/staff/gift-cards/"+card.Code+path, map[string]any{"amount": "184467440737095546.16"}, token)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", path, rec.Code, rec.Body.String())
		}
		if apitest.Decode(t, rec)["code"] != "validation_error" {
			t.Fatalf("%s: expected validation_error code", path)
		}
	}

	stored, err := svc.GiftCards.Store().FindByID(context.Background(), card.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.RemainingCents != 10_000 {
		t.Fatalf("balance changed to %d", stored.RemainingCents)
	}
	_, total, err := svc.GiftCards.Store().Transactions(context.Background(), giftcard.TransactionFilter{CardID: card.ID})
	if err != nil || total != 0 {
		t.Fatalf("expected no transactions, got %d, %v", total, err)
	}
}
