// Package checkout records what a payment will buy and fulfils it when the processor confirms payment.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tablehouse/eventdesk/internal/apperr"
	dbutil "github.com/tablehouse/eventdesk/internal/db"
	"github.com/tablehouse/eventdesk/internal/giftcard"
	"github.com/tablehouse/eventdesk/internal/models"
	"github.com/tablehouse/eventdesk/internal/money"
	"github.com/tablehouse/eventdesk/internal/payment"
	"github.com/tablehouse/eventdesk/internal/reservation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// URLs configures where the hosted payment page sends the payer back to.
type URLs struct {
	Success string // May contain {CHECKOUT_SESSION_ID}.
	Cancel  string // Shown when the payer backs out.
}

// Service starts checkouts and completes them from payment webhooks.
type Service struct {
	db       *gorm.DB
	gateway  payment.Gateway
	orders   *giftcard.OrderService
	bookings *reservation.Service
	urls     URLs
	now      func() time.Time
}

// NewService wires the checkout service.
func NewService(db *gorm.DB, gateway payment.Gateway, orders *giftcard.OrderService, bookings *reservation.Service, urls URLs) *Service {
	return &Service{
		db:       db,
		gateway:  gateway,
		orders:   orders,
		bookings: bookings,
		urls:     urls,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GiftCardRequest is a gift card purchase before payment.
type GiftCardRequest struct {
	BuyerName  string               `json:"buyer_name"`  // Purchaser name.
	BuyerEmail string               `json:"buyer_email"` // Purchaser email.
	Cards      []giftcard.OrderCard `json:"cards"`       // Card lines.
}

// Started is a created checkout the payer should be redirected to.
type Started struct {
	IntentID    string `json:"intent_id"`    // Checkout intent id.
	SessionID   string `json:"session_id"`   // Gateway session id.
	URL         string `json:"url"`          // Hosted payment page.
	AmountCents int64  `json:"amount_cents"` // Amount to be charged.
}

// StartGiftCardCheckout validates a gift card order and opens a payment session for it.
func (s *Service) StartGiftCardCheckout(ctx context.Context, req GiftCardRequest) (*Started, error) {
	order := giftcard.Order{
		OrderID:    uuid.NewString(),
		BuyerName:  strings.TrimSpace(req.BuyerName),
		BuyerEmail: strings.TrimSpace(req.BuyerEmail),
		Cards:      req.Cards,
	}
	if errValidate := giftcard.ValidateOrder(order); errValidate != nil {
		return nil, errValidate
	}
	items := make([]payment.LineItem, 0, len(order.Cards))
	for _, card := range order.Cards {
		name := fmt.Sprintf("%s gift card", money.Format(card.AmountCents))
		if recipient := strings.TrimSpace(card.RecipientName); recipient != "" {
			name += " for " + recipient
		}
		items = append(items, payment.LineItem{Name: name, UnitAmountCents: card.AmountCents, Quantity: 1})
	}
	return s.start(ctx, models.CheckoutKindGiftCard, order.BuyerEmail, order.TotalCents(), order, items)
}

// StartBookingCheckout checks availability and opens a payment session for a paid booking.
func (s *Service) StartBookingCheckout(ctx context.Context, req reservation.Request) (*Started, error) {
	req.CheckoutSessionID = ""
	family, errAvail := s.bookings.CheckAvailability(ctx, &req)
	if errAvail != nil {
		return nil, errAvail
	}
	if !family.Paid {
		return nil, apperr.Validation(fmt.Sprintf("%s does not require payment", family.Title))
	}
	req.AmountCents = family.PriceCents(req.PartySize)
	item := payment.LineItem{
		Name:            fmt.Sprintf("%s, %s", family.Title, req.Date),
		UnitAmountCents: req.AmountCents,
		Quantity:        1,
	}
	if family.PerUnitPrice {
		item.UnitAmountCents = family.UnitPriceCents()
		item.Quantity = int64(req.PartySize)
	}
	return s.start(ctx, req.Kind, req.Email, req.AmountCents, req, []payment.LineItem{item})
}

func (s *Service) start(ctx context.Context, kind, email string, amountCents int64, payload any, items []payment.LineItem) (*Started, error) {
	raw, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return nil, fmt.Errorf("checkout: marshal payload: %w", errMarshal)
	}
	intent := models.CheckoutIntent{
		IntentID:      uuid.NewString(),
		Kind:          kind,
		Status:        models.CheckoutStatusPending,
		Payload:       datatypes.JSON(raw),
		CustomerEmail: email,
		AmountCents:   amountCents,
	}
	if errCreate := s.db.WithContext(ctx).Create(&intent).Error; errCreate != nil {
		return nil, fmt.Errorf("checkout: create intent: %w", errCreate)
	}

	sess, errSession := s.gateway.CreateCheckoutSession(ctx, payment.SessionRequest{
		IntentID:      intent.IntentID,
		CustomerEmail: email,
		Items:         items,
		SuccessURL:    s.urls.Success,
		CancelURL:     s.urls.Cancel,
	})
	if errSession != nil {
		s.markFailed(ctx, intent.IntentID, "session creation failed: "+errSession.Error())
		return nil, errSession
	}
	errUpdate := s.db.WithContext(ctx).
		Model(&models.CheckoutIntent{}).
		Where("intent_id = ?", intent.IntentID).
		Update("session_id", sess.ID).Error
	if errUpdate != nil {
		return nil, fmt.Errorf("checkout: store session id: %w", errUpdate)
	}
	log.WithFields(log.Fields{"intent_id": intent.IntentID, "kind": kind, "amount": amountCents}).Info("checkout started")
	return &Started{IntentID: intent.IntentID, SessionID: sess.ID, URL: sess.URL, AmountCents: amountCents}, nil
}

// HandleEvent applies a verified payment event. It is safe to call any number of times
// for the same event; only the first completed payment mutates the ledger.
func (s *Service) HandleEvent(ctx context.Context, event payment.Event) (*models.CheckoutIntent, error) {
	switch event.Kind {
	case payment.EventPaymentCompleted:
		return s.HandlePaymentCompleted(ctx, event)
	case payment.EventSessionExpired:
		return s.handleSessionExpired(ctx, event)
	default:
		return nil, nil
	}
}

// HandlePaymentCompleted fulfils the intent paid by event.
func (s *Service) HandlePaymentCompleted(ctx context.Context, event payment.Event) (*models.CheckoutIntent, error) {
	intent, errFind := s.findForEvent(ctx, event)
	if errFind != nil {
		return nil, errFind
	}
	entry := log.WithFields(log.Fields{"intent_id": intent.IntentID, "session_id": event.SessionID, "event_id": event.ID})
	switch intent.Status {
	case models.CheckoutStatusCompleted, models.CheckoutStatusFailed:
		entry.WithField("status", intent.Status).Info("payment event for settled intent ignored")
		return intent, nil
	}
	if intent.Status == models.CheckoutStatusExpired {
		entry.Warn("payment arrived for an expired intent, fulfilling anyway")
	}
	sessionID := event.SessionID
	if sessionID == "" {
		sessionID = intent.SessionID
	}

	var resultRef string
	var errFulfil error
	if intent.Kind == models.CheckoutKindGiftCard {
		resultRef, errFulfil = s.fulfilGiftCards(ctx, intent, sessionID)
	} else {
		resultRef, errFulfil = s.fulfilBooking(ctx, intent, sessionID, event)
	}
	if errFulfil != nil {
		if refunded, errRefund := s.refundIfUnfulfillable(ctx, intent, event, errFulfil); refunded {
			return s.reload(ctx, intent.IntentID)
		} else if errRefund != nil {
			return nil, errRefund
		}
		return nil, errFulfil
	}

	now := s.now()
	errUpdate := s.db.WithContext(ctx).
		Model(&models.CheckoutIntent{}).
		Where("intent_id = ? AND status IN ?", intent.IntentID, []string{models.CheckoutStatusPending, models.CheckoutStatusExpired}).
		Updates(map[string]any{
			"status":       models.CheckoutStatusCompleted,
			"session_id":   sessionID,
			"payment_ref":  event.PaymentRef,
			"result_ref":   resultRef,
			"completed_at": now,
		}).Error
	if errUpdate != nil {
		return nil, fmt.Errorf("checkout: mark completed: %w", errUpdate)
	}
	entry.WithField("result", resultRef).Info("checkout completed")
	return s.reload(ctx, intent.IntentID)
}

func (s *Service) fulfilGiftCards(ctx context.Context, intent *models.CheckoutIntent, sessionID string) (string, error) {
	var order giftcard.Order
	if errDecode := json.Unmarshal(intent.Payload, &order); errDecode != nil {
		return "", fmt.Errorf("checkout: decode gift card payload: %w", errDecode)
	}
	order.CheckoutSessionID = sessionID
	if _, errComplete := s.orders.Complete(ctx, order); errComplete != nil {
		if errors.Is(errComplete, apperr.ErrDuplicateOrder) {
			return order.OrderID, nil
		}
		return "", errComplete
	}
	return order.OrderID, nil
}

func (s *Service) fulfilBooking(ctx context.Context, intent *models.CheckoutIntent, sessionID string, event payment.Event) (string, error) {
	var req reservation.Request
	if errDecode := json.Unmarshal(intent.Payload, &req); errDecode != nil {
		return "", fmt.Errorf("checkout: decode booking payload: %w", errDecode)
	}
	req.CheckoutSessionID = sessionID
	if event.AmountCents > 0 {
		req.AmountCents = event.AmountCents
	}
	booking, errConfirm := s.bookings.Confirm(ctx, req)
	if errConfirm != nil {
		return "", errConfirm
	}
	return booking.BookingNumber, nil
}

// refundIfUnfulfillable returns the payment when fulfilment can never succeed, such as a slot
// that filled up between checkout and payment, and marks the intent failed.
func (s *Service) refundIfUnfulfillable(ctx context.Context, intent *models.CheckoutIntent, event payment.Event, cause error) (bool, error) {
	switch apperr.KindOf(cause) {
	case apperr.KindCapacityExceeded, apperr.KindValidation:
	default:
		return false, nil
	}
	if errRefund := s.gateway.Refund(ctx, event.PaymentRef, 0); errRefund != nil {
		log.WithError(errRefund).WithField("intent_id", intent.IntentID).Error("refund after failed fulfilment failed")
		return false, errRefund
	}
	s.markFailed(ctx, intent.IntentID, cause.Error())
	errUpdate := s.db.WithContext(ctx).
		Model(&models.CheckoutIntent{}).
		Where("intent_id = ?", intent.IntentID).
		Update("payment_ref", event.PaymentRef).Error
	if errUpdate != nil {
		log.WithError(errUpdate).WithField("intent_id", intent.IntentID).Warn("store payment ref failed")
	}
	log.WithFields(log.Fields{"intent_id": intent.IntentID, "reason": cause.Error()}).Warn("checkout refunded")
	return true, nil
}

func (s *Service) handleSessionExpired(ctx context.Context, event payment.Event) (*models.CheckoutIntent, error) {
	intent, errFind := s.findForEvent(ctx, event)
	if errFind != nil {
		return nil, errFind
	}
	errUpdate := s.db.WithContext(ctx).
		Model(&models.CheckoutIntent{}).
		Where("intent_id = ? AND status = ?", intent.IntentID, models.CheckoutStatusPending).
		Updates(map[string]any{"status": models.CheckoutStatusExpired, "failure_reason": "payment session expired"}).Error
	if errUpdate != nil {
		return nil, fmt.Errorf("checkout: expire intent: %w", errUpdate)
	}
	return s.reload(ctx, intent.IntentID)
}

func (s *Service) markFailed(ctx context.Context, intentID, reason string) {
	errUpdate := s.db.WithContext(ctx).
		Model(&models.CheckoutIntent{}).
		Where("intent_id = ? AND status <> ?", intentID, models.CheckoutStatusCompleted).
		Updates(map[string]any{"status": models.CheckoutStatusFailed, "failure_reason": reason}).Error
	if errUpdate != nil {
		log.WithError(errUpdate).WithField("intent_id", intentID).Warn("mark intent failed")
	}
}

func (s *Service) findForEvent(ctx context.Context, event payment.Event) (*models.CheckoutIntent, error) {
	q := s.db.WithContext(ctx)
	switch {
	case event.IntentID != "":
		q = q.Where("intent_id = ?", event.IntentID)
	case event.SessionID != "":
		q = q.Where("session_id = ?", event.SessionID)
	default:
		return nil, apperr.Validation("Payment event has no checkout reference")
	}
	var intent models.CheckoutIntent
	if errFind := q.First(&intent).Error; errFind != nil {
		if dbutil.IsNotFound(errFind) {
			return nil, apperr.NotFound("Checkout not found")
		}
		return nil, fmt.Errorf("checkout: find intent: %w", errFind)
	}
	return &intent, nil
}

func (s *Service) reload(ctx context.Context, intentID string) (*models.CheckoutIntent, error) {
	var intent models.CheckoutIntent
	if errFind := s.db.WithContext(ctx).Where("intent_id = ?", intentID).First(&intent).Error; errFind != nil {
		return nil, fmt.Errorf("checkout: reload intent: %w", errFind)
	}
	return &intent, nil
}

// StatusView is what the success page shows. Building it never changes any state.
type StatusView struct {
	IntentID      string                `json:"intent_id"`
	Kind          string                `json:"kind"`
	Status        string                `json:"status"`
	AmountCents   int64                 `json:"amount_cents"`
	FailureReason string                `json:"failure_reason,omitempty"`
	Order         *giftcard.OrderResult `json:"-"`
	Booking       *models.Booking       `json:"-"`
}

// Status reports the state of the checkout paid through sessionID.
func (s *Service) Status(ctx context.Context, sessionID string) (*StatusView, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperr.Validation("Session id is required")
	}
	intent, errFind := s.findForEvent(ctx, payment.Event{SessionID: sessionID})
	if errFind != nil {
		return nil, errFind
	}
	view := &StatusView{
		IntentID:      intent.IntentID,
		Kind:          intent.Kind,
		Status:        intent.Status,
		AmountCents:   intent.AmountCents,
		FailureReason: intent.FailureReason,
	}
	if intent.Status != models.CheckoutStatusCompleted || intent.ResultRef == "" {
		return view, nil
	}
	if intent.Kind == models.CheckoutKindGiftCard {
		order, errOrder := s.orders.LoadOrder(ctx, intent.ResultRef)
		if errOrder != nil {
			return nil, errOrder
		}
		view.Order = order
		return view, nil
	}
	booking, errBooking := s.bookings.Get(ctx, intent.ResultRef)
	if errBooking != nil {
		return nil, errBooking
	}
	view.Booking = booking
	return view, nil
}

// IntentFilter narrows an intent listing.
type IntentFilter struct {
	Status string // Exact status.
	Kind   string // Exact kind.
	Email  string // Matches the payer or gift card buyer email.
	Page   int    // 1-based page.
	Limit  int    // Page size.
}

// ListIntents returns a page of checkout intents, newest first.
func (s *Service) ListIntents(ctx context.Context, filter IntentFilter) ([]models.CheckoutIntent, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.CheckoutIntent{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if email := strings.TrimSpace(filter.Email); email != "" {
		pattern := dbutil.NormalizeLikePattern(s.db, "%"+email+"%")
		buyerEmail := dbutil.JSONExtractTextExpr(s.db, "payload", "buyer_email")
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(s.db, "customer_email")+" OR "+dbutil.CaseInsensitiveLikeExpr(s.db, buyerEmail),
			pattern, pattern,
		)
	}
	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("checkout: count intents: %w", errCount)
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var intents []models.CheckoutIntent
	errFind := q.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&intents).Error
	if errFind != nil {
		return nil, 0, fmt.Errorf("checkout: list intents: %w", errFind)
	}
	return intents, total, nil
}

// CancelBooking cancels a booking, freeing its capacity, and optionally returns its payment.
func (s *Service) CancelBooking(ctx context.Context, number string, refund bool) (*models.Booking, error) {
	booking, errGet := s.bookings.Get(ctx, number)
	if errGet != nil {
		return nil, errGet
	}
	var paymentRef string
	if refund {
		if booking.PaymentStatus != models.PaymentStatusPaid || booking.CheckoutSessionID == nil {
			return nil, apperr.InvalidState("Booking has no payment to refund")
		}
		intent, errFind := s.findForEvent(ctx, payment.Event{SessionID: *booking.CheckoutSessionID})
		if errFind != nil {
			return nil, errFind
		}
		if intent.PaymentRef == "" {
			return nil, apperr.InvalidState("Booking payment reference is unknown")
		}
		paymentRef = intent.PaymentRef
	}

	cancelled, errCancel := s.bookings.Cancel(ctx, booking.BookingNumber)
	if errCancel != nil {
		return nil, errCancel
	}
	if !refund {
		return cancelled, nil
	}
	if errRefund := s.gateway.Refund(ctx, paymentRef, booking.AmountCents); errRefund != nil {
		return nil, errRefund
	}
	if errMark := s.bookings.MarkRefunded(ctx, booking.BookingNumber); errMark != nil {
		return nil, errMark
	}
	cancelled.PaymentStatus = models.PaymentStatusRefunded
	return cancelled, nil
}

// ExpireStale marks pending intents created before cutoff as expired.
func (s *Service) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.CheckoutIntent{}).
		Where("status = ? AND created_at < ?", models.CheckoutStatusPending, cutoff).
		Updates(map[string]any{"status": models.CheckoutStatusExpired, "failure_reason": "abandoned checkout"})
	if res.Error != nil {
		return 0, fmt.Errorf("checkout: expire stale intents: %w", res.Error)
	}
	return res.RowsAffected, nil
}
