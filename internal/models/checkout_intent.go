package models

import (
	"time"

	"gorm.io/datatypes"
)

// Checkout intent kinds besides the booking kinds.
const (
	// CheckoutKindGiftCard is a gift card order.
	CheckoutKindGiftCard = "gift_card"
)

// Checkout intent statuses.
const (
	CheckoutStatusPending   = "pending"
	CheckoutStatusCompleted = "completed"
	CheckoutStatusExpired   = "expired"
	CheckoutStatusFailed    = "failed"
)

// CheckoutIntent stores what a payment session will create once the gateway confirms payment.
type CheckoutIntent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	IntentID  string `gorm:"type:varchar(64);not null;uniqueIndex"`             // Public intent identifier.
	Kind      string `gorm:"type:varchar(16);not null;index"`                   // gift_card or a booking kind.
	Status    string `gorm:"type:varchar(16);not null;default:'pending';index"` // Lifecycle status.
	SessionID string `gorm:"type:varchar(255);index"`                           // Gateway checkout session.

	Payload       datatypes.JSON `gorm:"not null"`           // Kind-specific request snapshot.
	CustomerEmail string         `gorm:"type:text;not null"` // Payer email.
	AmountCents   int64          `gorm:"not null;default:0"` // Amount charged.

	PaymentRef    string     `gorm:"type:text"` // Gateway payment reference once paid.
	ResultRef     string     `gorm:"type:text"` // Order id or booking number produced.
	FailureReason string     `gorm:"type:text"` // Why completion failed.
	CompletedAt   *time.Time // Completion time, if any.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`       // Last update timestamp.
}
