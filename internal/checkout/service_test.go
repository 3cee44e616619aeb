package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/db/dbtest"
	"github.com/tablehouse/eventdesk/internal/giftcard"
	"github.com/tablehouse/eventdesk/internal/models"
	"github.com/tablehouse/eventdesk/internal/payment"
	"github.com/tablehouse/eventdesk/internal/payment/paymenttest"
	"github.com/tablehouse/eventdesk/internal/reservation"
	"github.com/tablehouse/eventdesk/internal/settings"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	gateway  *paymenttest.Gateway
	bookings *reservation.Service
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	gateway := paymenttest.New()
	orders := giftcard.NewOrderService(giftcard.NewEngine(conn), nil)
	bookings := reservation.NewService(conn, nil)
	service := NewService(conn, gateway, orders, bookings, URLs{
		Success: "https://tablehouse.example/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		Cancel:  "https://tablehouse.example/checkout/cancel",
	})
	return &fixture{db: conn, gateway: gateway, bookings: bookings, service: service}
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func giftRequest() GiftCardRequest {
	return GiftCardRequest{
		BuyerName:  "Cy Buyer",
		BuyerEmail: "cy@example.com",
		Cards: []giftcard.OrderCard{
			{AmountCents: 10_000, RecipientName: "Bo", RecipientEmail: "bo@example.com"},
			{AmountCents: 2_500},
		},
	}
}

func valentinesRequest() reservation.Request {
	return reservation.Request{
		Kind:      models.BookingKindValentines,
		Name:      "Dee",
		Email:     "dee@example.com",
		Date:      "2099-02-14",
		TimeSlot:  "21:00",
		PartySize: 2,
	}
}

func TestGiftCardCheckoutCompletesOnceFromWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.service.StartGiftCardCheckout(ctx, giftRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(12_500), started.AmountCents)
	sessionReq, ok := f.gateway.Session(started.SessionID)
	require.True(t, ok)
	assert.Equal(t, started.IntentID, sessionReq.IntentID)
	assert.Len(t, sessionReq.Items, 2)
	assert.Equal(t, "$100.00 gift card for Bo", sessionReq.Items[0].Name)

	status, err := f.service.Status(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusPending, status.Status)
	assert.Equal(t, int64(0), f.count(t, &models.GiftCard{}))

	event := f.gateway.CompletedEvent(started.SessionID)
	intent, err := f.service.HandleEvent(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusCompleted, intent.Status)
	assert.Equal(t, "pi_"+started.SessionID, intent.PaymentRef)
	assert.Equal(t, int64(3), f.count(t, &models.GiftCard{}))

	again, err := f.service.HandleEvent(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, intent.ResultRef, again.ResultRef)
	assert.Equal(t, int64(3), f.count(t, &models.GiftCard{}))

	status, err = f.service.Status(ctx, started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusCompleted, status.Status)
	require.NotNil(t, status.Order)
	assert.Len(t, status.Order.Purchased, 2)
	assert.Len(t, status.Order.Bonus, 1)
	assert.Equal(t, started.SessionID, status.Order.Order.CheckoutSessionID)
}

func TestGiftCardCheckoutRejectsInvalidOrder(t *testing.T) {
	f := newFixture(t)
	req := giftRequest()
	req.Cards[0].AmountCents = 60_000

	_, err := f.service.StartGiftCardCheckout(context.Background(), req)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, int64(0), f.count(t, &models.CheckoutIntent{}))
}

func TestGatewayFailureMarksIntentFailed(t *testing.T) {
	f := newFixture(t)
	f.gateway.FailNext = errors.New("card network down")

	_, err := f.service.StartGiftCardCheckout(context.Background(), giftRequest())
	require.ErrorIs(t, err, apperr.ErrUpstream)

	var intent models.CheckoutIntent
	require.NoError(t, f.db.First(&intent).Error)
	assert.Equal(t, models.CheckoutStatusFailed, intent.Status)
	assert.Contains(t, intent.FailureReason, "session creation failed")
}

func TestBookingCheckoutConfirmsFromWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.service.StartBookingCheckout(ctx, valentinesRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(settings.DefaultValentinesDepositCents), started.AmountCents)

	intent, err := f.service.HandlePaymentCompleted(ctx, f.gateway.CompletedEvent(started.SessionID))
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusCompleted, intent.Status)

	booking, err := f.bookings.Get(ctx, intent.ResultRef)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, booking.PaymentStatus)
	assert.Equal(t, int64(settings.DefaultValentinesDepositCents), booking.AmountCents)

	status, err := f.service.Status(ctx, started.SessionID)
	require.NoError(t, err)
	require.NotNil(t, status.Booking)
	assert.Equal(t, booking.BookingNumber, status.Booking.BookingNumber)
}

func TestBookingCheckoutRefundsWhenSlotFilledBeforePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.service.StartBookingCheckout(ctx, valentinesRequest())
	require.NoError(t, err)
	for i := 0; i < settings.DefaultValentinesSlotCapacity; i++ {
		req := valentinesRequest()
		req.CheckoutSessionID = fmt.Sprintf("cs_other_%d", i)
		_, errConfirm := f.bookings.Confirm(ctx, req)
		require.NoError(t, errConfirm)
	}

	intent, err := f.service.HandlePaymentCompleted(ctx, f.gateway.CompletedEvent(started.SessionID))
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusFailed, intent.Status)
	refunds := f.gateway.Refunds()
	require.Len(t, refunds, 1)
	assert.Equal(t, "pi_"+started.SessionID, refunds[0].PaymentRef)

	_, err = f.service.HandlePaymentCompleted(ctx, f.gateway.CompletedEvent(started.SessionID))
	require.NoError(t, err)
	assert.Len(t, f.gateway.Refunds(), 1)
}

func TestBookingCheckoutRejectsFreeAndFullSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	table := reservation.Request{
		Kind:      models.BookingKindTable,
		Name:      "Eve",
		Email:     "eve@example.com",
		Date:      "2099-03-01",
		TimeSlot:  "18:00",
		PartySize: 2,
	}
	_, err := f.service.StartBookingCheckout(ctx, table)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	for i := 0; i < settings.DefaultValentinesSlotCapacity; i++ {
		req := valentinesRequest()
		req.CheckoutSessionID = fmt.Sprintf("cs_full_%d", i)
		_, errConfirm := f.bookings.Confirm(ctx, req)
		require.NoError(t, errConfirm)
	}
	_, err = f.service.StartBookingCheckout(ctx, valentinesRequest())
	assert.ErrorIs(t, err, apperr.ErrCapacityExceeded)
}

func TestUnknownIntentIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.HandlePaymentCompleted(context.Background(), payment.Event{
		Kind:      payment.EventPaymentCompleted,
		IntentID:  "missing",
		SessionID: "cs_missing",
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.service.Status(context.Background(), "cs_missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSessionExpiredEventExpiresPendingIntent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	started, err := f.service.StartGiftCardCheckout(ctx, giftRequest())
	require.NoError(t, err)

	intent, err := f.service.HandleEvent(ctx, payment.Event{Kind: payment.EventSessionExpired, SessionID: started.SessionID})
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusExpired, intent.Status)

	ignored, err := f.service.HandleEvent(ctx, payment.Event{Kind: payment.EventIgnored})
	require.NoError(t, err)
	assert.Nil(t, ignored)
}

func TestSweeperExpiresAbandonedIntentsButPaymentStillCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale, err := f.service.StartGiftCardCheckout(ctx, giftRequest())
	require.NoError(t, err)
	fresh, err := f.service.StartGiftCardCheckout(ctx, giftRequest())
	require.NoError(t, err)
	old := time.Now().UTC().Add(-72 * time.Hour)
	require.NoError(t, f.db.Model(&models.CheckoutIntent{}).Where("intent_id = ?", stale.IntentID).Update("created_at", old).Error)

	sweeper := NewIntentSweeper(f.service)
	assert.Equal(t, int64(1), sweeper.SweepOnce(ctx))
	assert.Equal(t, int64(0), sweeper.SweepOnce(ctx))

	status, err := f.service.Status(ctx, fresh.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusPending, status.Status)

	intent, err := f.service.HandlePaymentCompleted(ctx, f.gateway.CompletedEvent(stale.SessionID))
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutStatusCompleted, intent.Status)
}

func TestListIntentsFiltersByBuyerEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.service.StartGiftCardCheckout(ctx, giftRequest())
	require.NoError(t, err)
	_, err = f.service.StartBookingCheckout(ctx, valentinesRequest())
	require.NoError(t, err)

	intents, total, err := f.service.ListIntents(ctx, IntentFilter{Email: "CY@EXAMPLE"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, models.CheckoutKindGiftCard, intents[0].Kind)

	_, total, err = f.service.ListIntents(ctx, IntentFilter{Kind: models.BookingKindValentines, Status: models.CheckoutStatusPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestCancelBookingRefundsPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.service.StartBookingCheckout(ctx, valentinesRequest())
	require.NoError(t, err)
	intent, err := f.service.HandlePaymentCompleted(ctx, f.gateway.CompletedEvent(started.SessionID))
	require.NoError(t, err)

	cancelled, err := f.service.CancelBooking(ctx, intent.ResultRef, true)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, models.PaymentStatusRefunded, cancelled.PaymentStatus)
	refunds := f.gateway.Refunds()
	require.Len(t, refunds, 1)
	assert.Equal(t, int64(settings.DefaultValentinesDepositCents), refunds[0].AmountCents)

	_, err = f.service.CancelBooking(ctx, intent.ResultRef, true)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}
