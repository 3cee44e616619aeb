package giftcard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/db/dbtest"
	"github.com/tablehouse/eventdesk/internal/models"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu        sync.Mutex
	gifts     []string
	confirmed []string
	failGifts bool
}

func (n *recordingNotifier) GiftReceived(_ context.Context, card models.GiftCard) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gifts = append(n.gifts, card.OwnerEmail)
	if n.failGifts {
		return errors.New("smtp down")
	}
	return nil
}

func (n *recordingNotifier) OrderConfirmation(_ context.Context, order models.GiftCardOrder, _, _ []models.GiftCard) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, order.BuyerEmail)
	return nil
}

func giftOrder(orderID string) Order {
	return Order{
		OrderID:    orderID,
		BuyerName:  "Cy Buyer",
		BuyerEmail: "cy@example.com",
		Cards: []OrderCard{
			{AmountCents: 10_000, RecipientName: "Bo Recipient", RecipientEmail: "bo@example.com", PersonalMessage: "Enjoy"},
		},
	}
}

func countCards(t *testing.T, engine *Engine) int64 {
	t.Helper()
	var count int64
	require.NoError(t, engine.store.db.Model(&models.GiftCard{}).Count(&count).Error)
	return count
}

func TestCompleteGiftOrderIssuesBonusAndNotifies(t *testing.T) {
	engine := newTestEngine(t)
	notifier := &recordingNotifier{}
	service := NewOrderService(engine, notifier)

	result, err := service.Complete(context.Background(), giftOrder("order-a"))
	require.NoError(t, err)
	require.Len(t, result.Purchased, 1)
	require.Len(t, result.Bonus, 1)

	card := result.Purchased[0]
	assert.Equal(t, models.GiftCardStatusActive, card.Status)
	assert.Equal(t, int64(10_000), card.OriginalCents)
	assert.Equal(t, int64(10_000), card.RemainingCents)
	assert.True(t, card.IsGift)
	assert.Equal(t, "bo@example.com", card.OwnerEmail)
	assert.Equal(t, models.GiftCardChannelPurchase, card.Channel)

	bonus := result.Bonus[0]
	assert.True(t, bonus.IsBonus)
	assert.Equal(t, int64(2_000), bonus.OriginalCents)
	assert.Equal(t, "cy@example.com", bonus.OwnerEmail)
	require.NotNil(t, bonus.ParentCardCode)
	assert.Equal(t, card.Code, *bonus.ParentCardCode)

	assert.Equal(t, int64(10_000), result.Order.TotalCents)
	assert.Equal(t, int64(2_000), result.Order.BonusCents)
	assert.Equal(t, 2, result.Order.CardCount)
	assert.Equal(t, []string{"bo@example.com"}, notifier.gifts)
	assert.Equal(t, []string{"cy@example.com"}, notifier.confirmed)
}

func TestCompleteSelfPurchaseSkipsGiftNotification(t *testing.T) {
	engine := newTestEngine(t)
	notifier := &recordingNotifier{}
	service := NewOrderService(engine, notifier)

	order := giftOrder("order-self")
	order.Cards = []OrderCard{{AmountCents: 2_500}, {AmountCents: 6_000}}
	result, err := service.Complete(context.Background(), order)
	require.NoError(t, err)
	require.Len(t, result.Purchased, 2)
	require.Len(t, result.Bonus, 1)
	for _, card := range result.Purchased {
		assert.False(t, card.IsGift)
		assert.Equal(t, "cy@example.com", card.OwnerEmail)
	}
	assert.Empty(t, notifier.gifts)
	assert.Len(t, notifier.confirmed, 1)
}

func TestCompleteIsIdempotent(t *testing.T) {
	engine := newTestEngine(t)
	service := NewOrderService(engine, nil)
	ctx := context.Background()

	_, err := service.Complete(ctx, giftOrder("order-twice"))
	require.NoError(t, err)
	_, err = service.Complete(ctx, giftOrder("order-twice"))
	require.ErrorIs(t, err, apperr.ErrDuplicateOrder)
	assert.Equal(t, int64(2), countCards(t, engine))

	loaded, err := service.LoadOrder(ctx, "order-twice")
	require.NoError(t, err)
	assert.Len(t, loaded.Purchased, 1)
	assert.Len(t, loaded.Bonus, 1)
}

func TestConcurrentCompleteCreatesOneOrder(t *testing.T) {
	engine := newFileEngine(t)
	service := NewOrderService(engine, nil)

	const callers = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Complete(context.Background(), giftOrder("order-race"))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperr.ErrDuplicateOrder)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(2), countCards(t, engine))
}

func TestCompleteRejectsOrderWithInvalidLine(t *testing.T) {
	engine := newTestEngine(t)
	service := NewOrderService(engine, nil)

	order := giftOrder("order-bad")
	order.Cards = append(order.Cards, OrderCard{AmountCents: 60_000})
	_, err := service.Complete(context.Background(), order)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, int64(0), countCards(t, engine))

	completed, err := engine.store.OrderCompleted(context.Background(), "order-bad")
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestCompleteNotificationFailureDoesNotFailOrder(t *testing.T) {
	engine := newTestEngine(t)
	notifier := &recordingNotifier{failGifts: true}
	service := NewOrderService(engine, notifier)

	result, err := service.Complete(context.Background(), giftOrder("order-mailfail"))
	require.NoError(t, err)
	assert.Len(t, result.Cards(), 2)
	assert.Len(t, notifier.confirmed, 1)
}

func TestValidateOrder(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(o *Order)
	}{
		{"missing order id", func(o *Order) { o.OrderID = " " }},
		{"missing buyer", func(o *Order) { o.BuyerName = "" }},
		{"bad buyer email", func(o *Order) { o.BuyerEmail = "cy.example.com" }},
		{"no cards", func(o *Order) { o.Cards = nil }},
		{"amount too small", func(o *Order) { o.Cards[0].AmountCents = 500 }},
		{"bad recipient email", func(o *Order) { o.Cards[0].RecipientEmail = "bo@" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := giftOrder("order-validate")
			tc.mutate(&order)
			assert.ErrorIs(t, ValidateOrder(order), apperr.ErrValidation)
		})
	}
	assert.NoError(t, ValidateOrder(giftOrder("order-ok")))
}

func TestCompleteReliesOnUniqueOrderID(t *testing.T) {
	conn := dbtest.Open(t)
	engine := NewEngine(conn)
	service := NewOrderService(engine, nil)
	ctx := context.Background()

	// A second delivery of the same order commits between the completed check and this insert.
	beforeFirstWrite(t, conn, "create", "gift_card_orders", func(tx *gorm.DB) {
		assert.NoError(t, tx.Create(&models.GiftCardOrder{OrderID: "order-late", BuyerName: "Cy Buyer", BuyerEmail: "cy@example.com"}).Error)
	})

	_, err := service.Complete(ctx, giftOrder("order-late"))
	require.ErrorIs(t, err, apperr.ErrDuplicateOrder)
	assert.Equal(t, int64(0), countCards(t, engine))
}
