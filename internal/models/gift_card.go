package models

import "time"

// Gift card statuses.
const (
	// GiftCardStatusActive marks a card that can be redeemed.
	GiftCardStatusActive = "active"
	// GiftCardStatusRedeemed marks a card whose balance reached zero.
	GiftCardStatusRedeemed = "redeemed"
	// GiftCardStatusExpired marks a card an admin expired.
	GiftCardStatusExpired = "expired"
	// GiftCardStatusCancelled marks a card an admin cancelled.
	GiftCardStatusCancelled = "cancelled"
)

// Gift card issuance channels.
const (
	// GiftCardChannelPurchase is a card bought through checkout.
	GiftCardChannelPurchase = "purchase"
	// GiftCardChannelAdmin is a card issued from the admin console.
	GiftCardChannelAdmin = "admin"
	// GiftCardChannelBonus is a reward card generated by a qualifying purchase.
	GiftCardChannelBonus = "bonus"
)

// GiftCard is a redeemable balance identified by a unique code.
type GiftCard struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code           string `gorm:"type:varchar(16);not null;uniqueIndex"` // Unique redemption code.
	OriginalCents  int64  `gorm:"not null"`                              // Value at issuance, immutable.
	RemainingCents int64  `gorm:"not null;default:0"`                    // Current balance.

	OwnerName  string `gorm:"type:text;not null"`       // Current holder.
	OwnerEmail string `gorm:"type:text;not null;index"` // Current holder email.
	BuyerName  string `gorm:"type:text;not null"`       // Original purchaser.
	BuyerEmail string `gorm:"type:text;not null;index"` // Original purchaser email.

	IsBonus        bool    `gorm:"not null;default:false"`    // Reward card generated by a purchase.
	ParentCardCode *string `gorm:"type:varchar(16);index"`    // Purchased card that produced this bonus.
	IsGift         bool    `gorm:"not null;default:false"`    // Recipient differs from buyer.
	Channel        string  `gorm:"type:varchar(16);not null"` // Issuance channel.

	Status          string  `gorm:"type:varchar(16);not null;default:'active';index"` // Lifecycle status.
	OrderID         *string `gorm:"type:varchar(64);index"`                           // Checkout order grouping.
	PersonalMessage string  `gorm:"type:text"`                                        // Optional note from the buyer.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// RetiredGiftCardCode keeps the code of a deleted card reserved forever.
type RetiredGiftCardCode struct {
	Code      string    `gorm:"type:varchar(16);primaryKey"` // Code that can never be reissued.
	CardID    uint64    `gorm:"not null"`                    // ID of the deleted card.
	RetiredAt time.Time `gorm:"not null"`                    // Deletion timestamp.
}

// GiftCardOrder records a completed gift card checkout; OrderID uniqueness makes completion idempotent.
type GiftCardOrder struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OrderID           string `gorm:"type:varchar(64);not null;uniqueIndex"` // Checkout order identifier.
	BuyerName         string `gorm:"type:text;not null"`                    // Purchaser name.
	BuyerEmail        string `gorm:"type:text;not null;index"`              // Purchaser email.
	TotalCents        int64  `gorm:"not null;default:0"`                    // Sum of purchased card values.
	BonusCents        int64  `gorm:"not null;default:0"`                    // Sum of bonus card values.
	CardCount         int    `gorm:"not null;default:0"`                    // Cards issued, bonus included.
	CheckoutSessionID string `gorm:"type:text;index"`                       // Payment session that paid the order.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Completion timestamp.
}
