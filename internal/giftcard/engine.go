// Package giftcard issues, redeems and audits gift cards.
package giftcard

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/codegen"
	dbutil "github.com/tablehouse/eventdesk/internal/db"
	"github.com/tablehouse/eventdesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Issuance bounds in cents.
const (
	MinAdminCents    int64 = 100
	MaxAdminCents    int64 = 100_000
	MinPurchaseCents int64 = 1_000
	MaxPurchaseCents int64 = 50_000

	// MaxPersonalMessage is the longest accepted personal message, in characters.
	MaxPersonalMessage = 500
)

// Bonus tiers in cents.
const (
	bonusLowThreshold  int64 = 5_000
	bonusHighThreshold int64 = 10_000
	bonusLow           int64 = 1_000
	bonusHigh          int64 = 2_000
)

// IssueRequest describes one card to issue.
type IssueRequest struct {
	Channel         string // purchase, admin or bonus.
	AmountCents     int64  // Initial value.
	OwnerName       string // Holder name.
	OwnerEmail      string // Holder email.
	BuyerName       string // Purchaser name.
	BuyerEmail      string // Purchaser email.
	IsGift          bool   // Holder differs from purchaser.
	PersonalMessage string // Optional note.
	OrderID         string // Checkout order grouping, if any.
	ParentCardCode  string // Purchased card that earned a bonus.
}

// Actor identifies who changed a balance.
type Actor struct {
	EmployeeID   *uint64 // Redeeming employee, if any.
	EmployeeName string  // Employee name snapshot.
	Admin        string  // Admin username, if any.
}

// BalanceChange is the outcome of a balance mutation.
type BalanceChange struct {
	Card                 models.GiftCard            // Card after the change.
	PreviousBalanceCents int64                      // Balance before the change.
	NewBalanceCents      int64                      // Balance after the change.
	Status               string                     // Status after the change.
	Transaction          models.GiftCardTransaction // Audit entry written.
}

// Engine applies the gift card rules on top of a Store.
type Engine struct {
	store *Store
	now   func() time.Time
}

// NewEngine builds an engine over db.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{store: NewStore(db), now: func() time.Time { return time.Now().UTC() }}
}

// Store returns the engine's store.
func (e *Engine) Store() *Store {
	return e.store
}

// ComputeBonus returns the reward for a purchased amount: 20 at 100 or more, 10 at 50 or more, else nothing.
func ComputeBonus(amountCents int64) int64 {
	switch {
	case amountCents >= bonusHighThreshold:
		return bonusHigh
	case amountCents >= bonusLowThreshold:
		return bonusLow
	default:
		return 0
	}
}

// ValidateAmount checks an amount against the bounds of the channel.
func ValidateAmount(channel string, amountCents int64) error {
	var lo, hi int64
	switch channel {
	case models.GiftCardChannelAdmin:
		lo, hi = MinAdminCents, MaxAdminCents
	case models.GiftCardChannelPurchase:
		lo, hi = MinPurchaseCents, MaxPurchaseCents
	case models.GiftCardChannelBonus:
		if amountCents <= 0 {
			return apperr.Validation("Bonus amount must be positive")
		}
		return nil
	default:
		return apperr.Validation(fmt.Sprintf("Unknown channel %q", channel))
	}
	if amountCents < lo || amountCents > hi {
		return apperr.Validation(fmt.Sprintf("Amount must be between $%d and $%d", lo/100, hi/100))
	}
	return nil
}

// ValidatePersonalMessage checks the personal message length.
func ValidatePersonalMessage(message string) error {
	if utf8.RuneCountInString(message) > MaxPersonalMessage {
		return apperr.Validation(fmt.Sprintf("Personal message must be at most %d characters", MaxPersonalMessage))
	}
	return nil
}

// Issue creates one active card with its full value remaining.
func (e *Engine) Issue(ctx context.Context, req IssueRequest) (*models.GiftCard, error) {
	return e.issue(ctx, e.store, req)
}

func (e *Engine) issue(ctx context.Context, st *Store, req IssueRequest) (*models.GiftCard, error) {
	if errAmount := ValidateAmount(req.Channel, req.AmountCents); errAmount != nil {
		return nil, errAmount
	}
	if errMessage := ValidatePersonalMessage(req.PersonalMessage); errMessage != nil {
		return nil, errMessage
	}
	ownerName := strings.TrimSpace(req.OwnerName)
	ownerEmail := strings.TrimSpace(req.OwnerEmail)
	if ownerName == "" || ownerEmail == "" {
		return nil, apperr.Validation("Owner name and email are required")
	}
	buyerName := strings.TrimSpace(req.BuyerName)
	buyerEmail := strings.TrimSpace(req.BuyerEmail)
	if buyerName == "" {
		buyerName = ownerName
	}
	if buyerEmail == "" {
		buyerEmail = ownerEmail
	}

	card := models.GiftCard{
		OriginalCents:   req.AmountCents,
		RemainingCents:  req.AmountCents,
		OwnerName:       ownerName,
		OwnerEmail:      ownerEmail,
		BuyerName:       buyerName,
		BuyerEmail:      buyerEmail,
		IsBonus:         req.Channel == models.GiftCardChannelBonus,
		IsGift:          req.IsGift,
		Channel:         req.Channel,
		Status:          models.GiftCardStatusActive,
		PersonalMessage: strings.TrimSpace(req.PersonalMessage),
	}
	if req.OrderID != "" {
		orderID := req.OrderID
		card.OrderID = &orderID
	}
	if req.ParentCardCode != "" {
		parent := req.ParentCardCode
		card.ParentCardCode = &parent
	}

	for attempt := 0; attempt < codegen.MaxAttempts; attempt++ {
		code, errCode := codegen.Generate(ctx, codegen.GiftCard, st.CodeExists)
		if errCode != nil {
			return nil, errCode
		}
		card.ID = 0
		card.Code = code
		errInsert := st.insertCard(ctx, &card)
		if errInsert == nil {
			return &card, nil
		}
		if !dbutil.IsUniqueViolation(errInsert) {
			return nil, fmt.Errorf("giftcard: insert card: %w", errInsert)
		}
		log.WithField("attempt", attempt+1).Debug("gift card code collided on insert, retrying")
	}
	return nil, apperr.New(apperr.KindCodeSpaceExhausted, "Could not allocate a unique gift card code")
}

// IssueBonusIfApplicable issues the reward card earned by purchased, owned by the buyer.
// It returns nil when the amount earns no bonus.
func (e *Engine) IssueBonusIfApplicable(ctx context.Context, purchased *models.GiftCard, buyerName, buyerEmail, orderID string) (*models.GiftCard, error) {
	return e.issueBonus(ctx, e.store, purchased, buyerName, buyerEmail, orderID)
}

func (e *Engine) issueBonus(ctx context.Context, st *Store, purchased *models.GiftCard, buyerName, buyerEmail, orderID string) (*models.GiftCard, error) {
	if purchased == nil {
		return nil, apperr.Validation("Purchased card is required")
	}
	bonus := ComputeBonus(purchased.OriginalCents)
	if bonus == 0 {
		return nil, nil
	}
	return e.issue(ctx, st, IssueRequest{
		Channel:        models.GiftCardChannelBonus,
		AmountCents:    bonus,
		OwnerName:      buyerName,
		OwnerEmail:     buyerEmail,
		BuyerName:      buyerName,
		BuyerEmail:     buyerEmail,
		OrderID:        orderID,
		ParentCardCode: purchased.Code,
	})
}

// Lookup returns the card for a code.
func (e *Engine) Lookup(ctx context.Context, code string) (*models.GiftCard, error) {
	return e.store.FindByCode(ctx, code)
}

// Deduct lowers the balance of an active card and logs a deduction.
// A failed deduction leaves the card and its log untouched.
func (e *Engine) Deduct(ctx context.Context, code string, amountCents int64, actor Actor, note string) (*BalanceChange, error) {
	code = NormalizeCode(code)
	var change *BalanceChange
	errTx := e.store.Transaction(ctx, func(st *Store) error {
		now := e.now()
		applied := false
		if amountCents > 0 {
			ok, errDebit := st.debit(ctx, code, amountCents, now)
			if errDebit != nil {
				return errDebit
			}
			applied = ok
		}
		if !applied {
			return classifyDeductFailure(ctx, st, code, amountCents)
		}
		card, errFind := st.FindByCode(ctx, code)
		if errFind != nil {
			return errFind
		}
		entry := models.GiftCardTransaction{
			CardID:               card.ID,
			CardCode:             card.Code,
			CardOwnerName:        card.OwnerName,
			Type:                 models.TransactionTypeDeduction,
			AmountCents:          amountCents,
			PreviousBalanceCents: card.RemainingCents + amountCents,
			NewBalanceCents:      card.RemainingCents,
			EmployeeID:           actor.EmployeeID,
			EmployeeName:         actor.EmployeeName,
			Actor:                actor.Admin,
			Note:                 strings.TrimSpace(note),
		}
		if errAppend := st.appendTransaction(ctx, &entry); errAppend != nil {
			return errAppend
		}
		change = &BalanceChange{
			Card:                 *card,
			PreviousBalanceCents: entry.PreviousBalanceCents,
			NewBalanceCents:      entry.NewBalanceCents,
			Status:               card.Status,
			Transaction:          entry,
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	log.WithFields(log.Fields{
		"code":     code,
		"amount":   amountCents,
		"balance":  change.NewBalanceCents,
		"employee": actor.EmployeeName,
	}).Info("gift card deducted")
	return change, nil
}

// classifyDeductFailure reports why a conditional debit did not apply.
func classifyDeductFailure(ctx context.Context, st *Store, code string, amountCents int64) error {
	card, errFind := st.FindByCode(ctx, code)
	if errFind != nil {
		return errFind
	}
	if card.Status != models.GiftCardStatusActive {
		return apperr.InvalidState(fmt.Sprintf("Gift card is %s", card.Status))
	}
	if amountCents > card.RemainingCents {
		return apperr.New(apperr.KindInsufficientBalance, "Insufficient balance")
	}
	if amountCents <= 0 {
		return apperr.Validation("Amount must be positive")
	}
	return apperr.InvalidState("Gift card changed during redemption, retry")
}

// Refund restores part of a previous deduction and logs a refund.
func (e *Engine) Refund(ctx context.Context, code string, amountCents int64, actor Actor, note string) (*BalanceChange, error) {
	code = NormalizeCode(code)
	var change *BalanceChange
	errTx := e.store.Transaction(ctx, func(st *Store) error {
		applied := false
		if amountCents > 0 {
			ok, errCredit := st.credit(ctx, code, amountCents, e.now())
			if errCredit != nil {
				return errCredit
			}
			applied = ok
		}
		if !applied {
			return classifyRefundFailure(ctx, st, code, amountCents)
		}
		card, errFind := st.FindByCode(ctx, code)
		if errFind != nil {
			return errFind
		}
		entry := models.GiftCardTransaction{
			CardID:               card.ID,
			CardCode:             card.Code,
			CardOwnerName:        card.OwnerName,
			Type:                 models.TransactionTypeRefund,
			AmountCents:          amountCents,
			PreviousBalanceCents: card.RemainingCents - amountCents,
			NewBalanceCents:      card.RemainingCents,
			EmployeeID:           actor.EmployeeID,
			EmployeeName:         actor.EmployeeName,
			Actor:                actor.Admin,
			Note:                 strings.TrimSpace(note),
		}
		if errAppend := st.appendTransaction(ctx, &entry); errAppend != nil {
			return errAppend
		}
		change = &BalanceChange{
			Card:                 *card,
			PreviousBalanceCents: entry.PreviousBalanceCents,
			NewBalanceCents:      entry.NewBalanceCents,
			Status:               card.Status,
			Transaction:          entry,
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return change, nil
}

func classifyRefundFailure(ctx context.Context, st *Store, code string, amountCents int64) error {
	card, errFind := st.FindByCode(ctx, code)
	if errFind != nil {
		return errFind
	}
	if card.Status != models.GiftCardStatusActive && card.Status != models.GiftCardStatusRedeemed {
		return apperr.InvalidState(fmt.Sprintf("Gift card is %s", card.Status))
	}
	if amountCents <= 0 {
		return apperr.Validation("Amount must be positive")
	}
	if card.RemainingCents+amountCents > card.OriginalCents {
		return apperr.Validation("Refund would exceed the original card value")
	}
	return apperr.InvalidState("Gift card changed during refund, retry")
}

// AdminAdjust overwrites the remaining balance after verifying the card code.
// The status is re-derived from the new balance and the change is logged as an adjustment.
func (e *Engine) AdminAdjust(ctx context.Context, cardID uint64, code string, newAmountCents int64, actor string) (*BalanceChange, error) {
	var change *BalanceChange
	errTx := e.store.Transaction(ctx, func(st *Store) error {
		var card models.GiftCard
		errFind := st.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&card, cardID).Error
		if errFind != nil {
			if dbutil.IsNotFound(errFind) {
				return apperr.NotFound("Gift card not found")
			}
			return fmt.Errorf("giftcard: load card: %w", errFind)
		}
		if card.Code != NormalizeCode(code) {
			return apperr.Validation("Invalid card code")
		}
		if newAmountCents < 0 || newAmountCents > card.OriginalCents {
			return apperr.Validation("New balance must be between 0 and the original card value")
		}
		status := card.Status
		switch {
		case newAmountCents == 0 && status == models.GiftCardStatusActive:
			status = models.GiftCardStatusRedeemed
		case newAmountCents > 0 && status == models.GiftCardStatusRedeemed:
			status = models.GiftCardStatusActive
		}

		previous := card.RemainingCents
		res := st.db.WithContext(ctx).
			Model(&models.GiftCard{}).
			Where("id = ? AND remaining_cents = ?", card.ID, previous).
			Updates(map[string]any{
				"remaining_cents": newAmountCents,
				"status":          status,
				"updated_at":      e.now(),
			})
		if res.Error != nil {
			return fmt.Errorf("giftcard: adjust card: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("Gift card changed during adjustment, retry")
		}
		card.RemainingCents = newAmountCents
		card.Status = status

		amount := newAmountCents - previous
		if amount < 0 {
			amount = -amount
		}
		entry := models.GiftCardTransaction{
			CardID:               card.ID,
			CardCode:             card.Code,
			CardOwnerName:        card.OwnerName,
			Type:                 models.TransactionTypeAdjustment,
			AmountCents:          amount,
			PreviousBalanceCents: previous,
			NewBalanceCents:      newAmountCents,
			Actor:                actor,
			Note:                 "admin balance overwrite",
		}
		if errAppend := st.appendTransaction(ctx, &entry); errAppend != nil {
			return errAppend
		}
		change = &BalanceChange{
			Card:                 card,
			PreviousBalanceCents: previous,
			NewBalanceCents:      newAmountCents,
			Status:               status,
			Transaction:          entry,
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	log.WithFields(log.Fields{"card_id": cardID, "previous": change.PreviousBalanceCents, "balance": newAmountCents, "admin": actor}).
		Info("gift card balance adjusted")
	return change, nil
}

// SetStatus moves a card to cancelled, expired or back to active after verifying its code.
// Redeemed is only ever derived from the balance.
func (e *Engine) SetStatus(ctx context.Context, cardID uint64, code, status string) (*models.GiftCard, error) {
	switch status {
	case models.GiftCardStatusActive, models.GiftCardStatusCancelled, models.GiftCardStatusExpired:
	default:
		return nil, apperr.Validation(fmt.Sprintf("Status %q cannot be set", status))
	}
	var updated *models.GiftCard
	errTx := e.store.Transaction(ctx, func(st *Store) error {
		card, errFind := st.FindByID(ctx, cardID)
		if errFind != nil {
			return errFind
		}
		if card.Code != NormalizeCode(code) {
			return apperr.Validation("Invalid card code")
		}
		if status == models.GiftCardStatusActive && card.RemainingCents == 0 {
			return apperr.InvalidState("A card with no balance cannot be reactivated")
		}
		errUpdate := st.db.WithContext(ctx).
			Model(&models.GiftCard{}).
			Where("id = ?", card.ID).
			Updates(map[string]any{"status": status, "updated_at": e.now()}).Error
		if errUpdate != nil {
			return fmt.Errorf("giftcard: set status: %w", errUpdate)
		}
		card.Status = status
		updated = card
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return updated, nil
}

// Delete removes a card after verifying its code. The code stays reserved.
func (e *Engine) Delete(ctx context.Context, cardID uint64, code string) error {
	return e.store.Transaction(ctx, func(st *Store) error {
		card, errFind := st.FindByID(ctx, cardID)
		if errFind != nil {
			return errFind
		}
		if card.Code != NormalizeCode(code) {
			return apperr.Validation("Invalid card code")
		}
		return st.deleteCard(ctx, card, e.now())
	})
}
