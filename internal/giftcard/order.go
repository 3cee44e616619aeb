package giftcard

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/models"
)

// MaxCardsPerOrder caps how many cards one checkout may buy.
const MaxCardsPerOrder = 10

// OrderCard is one card line of an order.
type OrderCard struct {
	AmountCents     int64  `json:"amount_cents"`     // Card value.
	RecipientName   string `json:"recipient_name"`   // Empty for a self purchase.
	RecipientEmail  string `json:"recipient_email"`  // Empty for a self purchase.
	PersonalMessage string `json:"personal_message"` // Optional note to the recipient.
}

// Order is a paid gift card checkout ready to be fulfilled.
type Order struct {
	OrderID           string      `json:"order_id"`            // Idempotency key.
	BuyerName         string      `json:"buyer_name"`          // Purchaser name.
	BuyerEmail        string      `json:"buyer_email"`         // Purchaser email.
	CheckoutSessionID string      `json:"checkout_session_id"` // Paying session.
	Cards             []OrderCard `json:"cards"`               // Card lines.
}

// TotalCents returns the sum of the card values.
func (o Order) TotalCents() int64 {
	var total int64
	for _, card := range o.Cards {
		total += card.AmountCents
	}
	return total
}

// OrderResult lists the cards created for an order.
type OrderResult struct {
	Order     models.GiftCardOrder // Order row.
	Purchased []models.GiftCard    // Purchased cards, in order line order.
	Bonus     []models.GiftCard    // Bonus cards earned by the purchase.
}

// Cards returns purchased and bonus cards together.
func (r *OrderResult) Cards() []models.GiftCard {
	out := make([]models.GiftCard, 0, len(r.Purchased)+len(r.Bonus))
	out = append(out, r.Purchased...)
	return append(out, r.Bonus...)
}

// Notifier delivers the messages that follow a completed order.
type Notifier interface {
	GiftReceived(ctx context.Context, card models.GiftCard) error
	OrderConfirmation(ctx context.Context, order models.GiftCardOrder, purchased, bonus []models.GiftCard) error
}

// ValidateOrder checks the buyer and every card line.
func ValidateOrder(order Order) error {
	if strings.TrimSpace(order.OrderID) == "" {
		return apperr.Validation("Order id is required")
	}
	if strings.TrimSpace(order.BuyerName) == "" || strings.TrimSpace(order.BuyerEmail) == "" {
		return apperr.Validation("Buyer name and email are required")
	}
	if !looksLikeEmail(order.BuyerEmail) {
		return apperr.Validation("Buyer email is invalid")
	}
	if len(order.Cards) == 0 {
		return apperr.Validation("At least one gift card is required")
	}
	if len(order.Cards) > MaxCardsPerOrder {
		return apperr.Validation("Too many gift cards in one order")
	}
	for _, card := range order.Cards {
		if errAmount := ValidateAmount(models.GiftCardChannelPurchase, card.AmountCents); errAmount != nil {
			return errAmount
		}
		if errMessage := ValidatePersonalMessage(card.PersonalMessage); errMessage != nil {
			return errMessage
		}
		if email := strings.TrimSpace(card.RecipientEmail); email != "" && !looksLikeEmail(email) {
			return apperr.Validation("Recipient email is invalid")
		}
	}
	return nil
}

func looksLikeEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}

// OrderService turns paid orders into cards.
type OrderService struct {
	engine   *Engine
	notifier Notifier
}

// NewOrderService builds an order service. notifier may be nil.
func NewOrderService(engine *Engine, notifier Notifier) *OrderService {
	return &OrderService{engine: engine, notifier: notifier}
}

// Complete issues every card of an order and its bonuses in one transaction.
// A second call for the same order id fails with DuplicateOrder and creates nothing.
// Notifications are sent after commit and never fail the order.
func (s *OrderService) Complete(ctx context.Context, order Order) (*OrderResult, error) {
	if errValidate := ValidateOrder(order); errValidate != nil {
		return nil, errValidate
	}
	order.OrderID = strings.TrimSpace(order.OrderID)
	buyerName := strings.TrimSpace(order.BuyerName)
	buyerEmail := strings.TrimSpace(order.BuyerEmail)

	done, errDone := s.engine.store.OrderCompleted(ctx, order.OrderID)
	if errDone != nil {
		return nil, errDone
	}
	if done {
		return nil, apperr.New(apperr.KindDuplicateOrder, "Order already completed")
	}

	result := &OrderResult{}
	errTx := s.engine.store.Transaction(ctx, func(st *Store) error {
		row := models.GiftCardOrder{
			OrderID:           order.OrderID,
			BuyerName:         buyerName,
			BuyerEmail:        buyerEmail,
			TotalCents:        order.TotalCents(),
			CheckoutSessionID: order.CheckoutSessionID,
		}
		if errOrder := st.insertOrder(ctx, &row); errOrder != nil {
			return errOrder
		}
		for _, line := range order.Cards {
			ownerName := strings.TrimSpace(line.RecipientName)
			ownerEmail := strings.TrimSpace(line.RecipientEmail)
			if ownerEmail == "" {
				ownerEmail = buyerEmail
			}
			if ownerName == "" {
				ownerName = buyerName
			}
			purchased, errIssue := s.engine.issue(ctx, st, IssueRequest{
				Channel:         models.GiftCardChannelPurchase,
				AmountCents:     line.AmountCents,
				OwnerName:       ownerName,
				OwnerEmail:      ownerEmail,
				BuyerName:       buyerName,
				BuyerEmail:      buyerEmail,
				IsGift:          !strings.EqualFold(ownerEmail, buyerEmail),
				PersonalMessage: line.PersonalMessage,
				OrderID:         order.OrderID,
			})
			if errIssue != nil {
				return errIssue
			}
			result.Purchased = append(result.Purchased, *purchased)

			bonus, errBonus := s.engine.issueBonus(ctx, st, purchased, buyerName, buyerEmail, order.OrderID)
			if errBonus != nil {
				return errBonus
			}
			if bonus != nil {
				result.Bonus = append(result.Bonus, *bonus)
				row.BonusCents += bonus.OriginalCents
			}
		}
		row.CardCount = len(result.Purchased) + len(result.Bonus)
		errUpdate := st.db.WithContext(ctx).
			Model(&models.GiftCardOrder{}).
			Where("id = ?", row.ID).
			Updates(map[string]any{"bonus_cents": row.BonusCents, "card_count": row.CardCount}).Error
		if errUpdate != nil {
			return errUpdate
		}
		result.Order = row
		return nil
	})
	if errTx != nil {
		var appErr *apperr.Error
		if !errors.As(errTx, &appErr) {
			log.WithError(errTx).WithField("order_id", order.OrderID).Error("gift card order failed")
		}
		return nil, errTx
	}

	log.WithFields(log.Fields{
		"order_id":  order.OrderID,
		"purchased": len(result.Purchased),
		"bonus":     len(result.Bonus),
		"total":     result.Order.TotalCents,
	}).Info("gift card order completed")
	s.notify(ctx, result)
	return result, nil
}

func (s *OrderService) notify(ctx context.Context, result *OrderResult) {
	if s.notifier == nil {
		return
	}
	for _, card := range result.Purchased {
		if strings.EqualFold(card.OwnerEmail, card.BuyerEmail) {
			continue
		}
		if errSend := s.notifier.GiftReceived(ctx, card); errSend != nil {
			log.WithError(errSend).WithField("code", card.Code).Warn("gift notification failed")
		}
	}
	if errSend := s.notifier.OrderConfirmation(ctx, result.Order, result.Purchased, result.Bonus); errSend != nil {
		log.WithError(errSend).WithField("order_id", result.Order.OrderID).Warn("order confirmation failed")
	}
}

// LoadOrder returns the order row and its cards, split into purchased and bonus.
func (s *OrderService) LoadOrder(ctx context.Context, orderID string) (*OrderResult, error) {
	row, errOrder := s.engine.store.FindOrder(ctx, orderID)
	if errOrder != nil {
		return nil, errOrder
	}
	cards, errCards := s.engine.store.FindByOrderID(ctx, orderID)
	if errCards != nil {
		return nil, errCards
	}
	result := &OrderResult{Order: *row}
	for _, card := range cards {
		if card.IsBonus {
			result.Bonus = append(result.Bonus, card)
		} else {
			result.Purchased = append(result.Purchased, card)
		}
	}
	return result, nil
}
