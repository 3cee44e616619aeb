package giftcard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tablehouse/eventdesk/internal/apperr"
	dbutil "github.com/tablehouse/eventdesk/internal/db"
	"github.com/tablehouse/eventdesk/internal/models"
	"gorm.io/gorm"
)

// Store reads and writes gift card rows. A Store bound to a transaction via WithTx
// runs every statement inside that transaction.
type Store struct {
	db *gorm.DB // Database handle or open transaction.
}

// NewStore wraps a database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithTx returns a store bound to tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// Transaction runs fn inside a database transaction; nested calls use savepoints.
func (s *Store) Transaction(ctx context.Context, fn func(st *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.WithTx(tx))
	})
}

// NormalizeCode trims and upper-cases a user supplied card code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CodeExists reports whether code belongs to a live card or a deleted one.
func (s *Store) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.GiftCard{}).Where("code = ?", code).Count(&count).Error; errCount != nil {
		return false, fmt.Errorf("giftcard: count codes: %w", errCount)
	}
	if count > 0 {
		return true, nil
	}
	if errCount := s.db.WithContext(ctx).Model(&models.RetiredGiftCardCode{}).Where("code = ?", code).Count(&count).Error; errCount != nil {
		return false, fmt.Errorf("giftcard: count retired codes: %w", errCount)
	}
	return count > 0, nil
}

// insertCard inserts card inside a savepoint so a unique violation does not poison an outer transaction.
func (s *Store) insertCard(ctx context.Context, card *models.GiftCard) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(card).Error
	})
}

// FindByCode loads a card by code.
func (s *Store) FindByCode(ctx context.Context, code string) (*models.GiftCard, error) {
	var card models.GiftCard
	errFind := s.db.WithContext(ctx).Where("code = ?", NormalizeCode(code)).First(&card).Error
	if errFind != nil {
		if dbutil.IsNotFound(errFind) {
			return nil, apperr.NotFound("Gift card not found")
		}
		return nil, fmt.Errorf("giftcard: find by code: %w", errFind)
	}
	return &card, nil
}

// FindByID loads a card by primary key.
func (s *Store) FindByID(ctx context.Context, id uint64) (*models.GiftCard, error) {
	var card models.GiftCard
	errFind := s.db.WithContext(ctx).First(&card, id).Error
	if errFind != nil {
		if dbutil.IsNotFound(errFind) {
			return nil, apperr.NotFound("Gift card not found")
		}
		return nil, fmt.Errorf("giftcard: find by id: %w", errFind)
	}
	return &card, nil
}

// FindByOrderID returns every card issued for an order, purchased cards first.
func (s *Store) FindByOrderID(ctx context.Context, orderID string) ([]models.GiftCard, error) {
	var cards []models.GiftCard
	errFind := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("is_bonus ASC").
		Order("id ASC").
		Find(&cards).Error
	if errFind != nil {
		return nil, fmt.Errorf("giftcard: find by order: %w", errFind)
	}
	return cards, nil
}

// OrderCompleted reports whether any card or order row exists for orderID.
func (s *Store) OrderCompleted(ctx context.Context, orderID string) (bool, error) {
	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.GiftCardOrder{}).Where("order_id = ?", orderID).Count(&count).Error; errCount != nil {
		return false, fmt.Errorf("giftcard: count orders: %w", errCount)
	}
	if count > 0 {
		return true, nil
	}
	if errCount := s.db.WithContext(ctx).Model(&models.GiftCard{}).Where("order_id = ?", orderID).Count(&count).Error; errCount != nil {
		return false, fmt.Errorf("giftcard: count order cards: %w", errCount)
	}
	return count > 0, nil
}

// insertOrder records a completed order; a duplicate order id maps to DuplicateOrder.
func (s *Store) insertOrder(ctx context.Context, order *models.GiftCardOrder) error {
	if errCreate := s.db.WithContext(ctx).Create(order).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return apperr.New(apperr.KindDuplicateOrder, "Order already completed")
		}
		return fmt.Errorf("giftcard: insert order: %w", errCreate)
	}
	return nil
}

// FindOrder loads the order row for orderID.
func (s *Store) FindOrder(ctx context.Context, orderID string) (*models.GiftCardOrder, error) {
	var order models.GiftCardOrder
	errFind := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error
	if errFind != nil {
		if dbutil.IsNotFound(errFind) {
			return nil, apperr.NotFound("Order not found")
		}
		return nil, fmt.Errorf("giftcard: find order: %w", errFind)
	}
	return &order, nil
}

// debit subtracts amount when the card is active and covers it. It reports whether a row changed.
func (s *Store) debit(ctx context.Context, code string, amountCents int64, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.GiftCard{}).
		Where("code = ? AND status = ? AND remaining_cents >= ?", code, models.GiftCardStatusActive, amountCents).
		Updates(map[string]any{
			"remaining_cents": gorm.Expr("remaining_cents - ?", amountCents),
			"status":          gorm.Expr("CASE WHEN remaining_cents - ? = 0 THEN ? ELSE status END", amountCents, models.GiftCardStatusRedeemed),
			"updated_at":      now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("giftcard: debit: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// credit adds amount back when the result stays within the original value. It reports whether a row changed.
func (s *Store) credit(ctx context.Context, code string, amountCents int64, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.GiftCard{}).
		Where(
			"code = ? AND status IN ? AND remaining_cents + ? <= original_cents",
			code, []string{models.GiftCardStatusActive, models.GiftCardStatusRedeemed}, amountCents,
		).
		Updates(map[string]any{
			"remaining_cents": gorm.Expr("remaining_cents + ?", amountCents),
			"status":          models.GiftCardStatusActive,
			"updated_at":      now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("giftcard: credit: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// appendTransaction writes an audit entry.
func (s *Store) appendTransaction(ctx context.Context, entry *models.GiftCardTransaction) error {
	if errCreate := s.db.WithContext(ctx).Create(entry).Error; errCreate != nil {
		return fmt.Errorf("giftcard: append transaction: %w", errCreate)
	}
	return nil
}

// ListFilter narrows a card listing.
type ListFilter struct {
	Status  string // Exact status.
	Channel string // Exact issuance channel.
	Search  string // Matches code, owner or buyer name and email.
	OrderID string // Exact order id.
	IsBonus *bool  // Bonus cards only when true.
	Page    int    // 1-based page.
	Limit   int    // Page size.
}

// List returns a page of cards and the total match count.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]models.GiftCard, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.GiftCard{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Channel != "" {
		q = q.Where("channel = ?", filter.Channel)
	}
	if filter.OrderID != "" {
		q = q.Where("order_id = ?", filter.OrderID)
	}
	if filter.IsBonus != nil {
		q = q.Where("is_bonus = ?", *filter.IsBonus)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := dbutil.NormalizeLikePattern(s.db, "%"+search+"%")
		clauses := make([]string, 0, 5)
		args := make([]any, 0, 5)
		for _, column := range []string{"code", "owner_name", "owner_email", "buyer_name", "buyer_email"} {
			clauses = append(clauses, dbutil.CaseInsensitiveLikeExpr(s.db, column))
			args = append(args, pattern)
		}
		q = q.Where(strings.Join(clauses, " OR "), args...)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("giftcard: count cards: %w", errCount)
	}
	page, limit := normalizePage(filter.Page, filter.Limit)
	var cards []models.GiftCard
	errFind := q.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&cards).Error
	if errFind != nil {
		return nil, 0, fmt.Errorf("giftcard: list cards: %w", errFind)
	}
	return cards, total, nil
}

// TransactionFilter narrows an audit log listing.
type TransactionFilter struct {
	CardID     uint64 // Restrict to one card.
	EmployeeID uint64 // Restrict to one employee.
	Type       string // Exact transaction type.
	Page       int    // 1-based page.
	Limit      int    // Page size.
}

// Transactions returns a page of audit entries, newest first.
func (s *Store) Transactions(ctx context.Context, filter TransactionFilter) ([]models.GiftCardTransaction, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.GiftCardTransaction{})
	if filter.CardID != 0 {
		q = q.Where("card_id = ?", filter.CardID)
	}
	if filter.EmployeeID != 0 {
		q = q.Where("employee_id = ?", filter.EmployeeID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("giftcard: count transactions: %w", errCount)
	}
	page, limit := normalizePage(filter.Page, filter.Limit)
	var entries []models.GiftCardTransaction
	errFind := q.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	if errFind != nil {
		return nil, 0, fmt.Errorf("giftcard: list transactions: %w", errFind)
	}
	return entries, total, nil
}

// deleteCard removes the card row and retires its code.
func (s *Store) deleteCard(ctx context.Context, card *models.GiftCard, now time.Time) error {
	res := s.db.WithContext(ctx).Delete(&models.GiftCard{}, card.ID)
	if res.Error != nil {
		return fmt.Errorf("giftcard: delete card: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Gift card not found")
	}
	retired := models.RetiredGiftCardCode{Code: card.Code, CardID: card.ID, RetiredAt: now}
	if errCreate := s.db.WithContext(ctx).Create(&retired).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return errors.New("giftcard: code already retired")
		}
		return fmt.Errorf("giftcard: retire code: %w", errCreate)
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	return page, limit
}
