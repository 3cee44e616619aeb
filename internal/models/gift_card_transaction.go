package models

import "time"

// Gift card transaction types.
const (
	// TransactionTypeDeduction lowers a balance.
	TransactionTypeDeduction = "deduction"
	// TransactionTypeRefund restores part of a balance.
	TransactionTypeRefund = "refund"
	// TransactionTypeAdjustment records an admin balance overwrite.
	TransactionTypeAdjustment = "adjustment"
)

// GiftCardTransaction is an append-only audit entry for a balance change.
type GiftCardTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CardID        uint64 `gorm:"not null;index"`                  // Card primary key.
	CardCode      string `gorm:"type:varchar(16);not null;index"` // Card code snapshot.
	CardOwnerName string `gorm:"type:text;not null"`              // Owner name at transaction time.

	Type                 string `gorm:"type:varchar(16);not null;index"` // deduction, refund or adjustment.
	AmountCents          int64  `gorm:"not null"`                        // Absolute amount moved.
	PreviousBalanceCents int64  `gorm:"not null"`                        // Balance before the change.
	NewBalanceCents      int64  `gorm:"not null"`                        // Balance after the change.

	EmployeeID   *uint64 `gorm:"index"`     // Employee who performed the change.
	EmployeeName string  `gorm:"type:text"` // Employee name snapshot.
	Actor        string  `gorm:"type:text"` // Admin username for adjustments.
	Note         string  `gorm:"type:text"` // Optional free text.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}
