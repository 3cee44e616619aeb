package models

import "time"

// Booking kinds.
const (
	// BookingKindTable is a regular table reservation.
	BookingKindTable = "table"
	// BookingKindValentines is a Valentine's Day dinner reservation.
	BookingKindValentines = "valentines"
	// BookingKindKDV is a Kamloops Dance Vibes ticket purchase.
	BookingKindKDV = "kdv"
	// BookingKindHalloween is a Halloween event ticket purchase.
	BookingKindHalloween = "halloween"
)

// Booking statuses.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking payment statuses.
const (
	PaymentStatusNotRequired = "not_required"
	PaymentStatusPaid        = "paid"
	PaymentStatusRefunded    = "refunded"
)

// Booking is a confirmed reservation or ticket order for a dated slot.
type Booking struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Kind          string `gorm:"type:varchar(16);not null;index:idx_bookings_slot,priority:1"` // Booking family.
	BookingNumber string `gorm:"type:varchar(16);not null;uniqueIndex"`                        // Generated booking or ticket number.

	Name  string `gorm:"type:text;not null"`       // Contact name.
	Email string `gorm:"type:text;not null;index"` // Contact email.
	Phone string `gorm:"type:text"`                // Contact phone.

	Date      string `gorm:"type:varchar(10);not null;index:idx_bookings_slot,priority:2"` // YYYY-MM-DD.
	TimeSlot  string `gorm:"type:varchar(32);not null;index:idx_bookings_slot,priority:3"` // Slot label, e.g. 18:00.
	PartySize int    `gorm:"not null"`                                                     // Seats or tickets held.

	SpecialRequests string `gorm:"type:text"` // Optional guest notes.

	Status            string  `gorm:"type:varchar(16);not null;default:'confirmed';index"` // confirmed or cancelled.
	PaymentStatus     string  `gorm:"type:varchar(16);not null"`                           // not_required, paid or refunded.
	AmountCents       int64   `gorm:"not null;default:0"`                                  // Amount charged.
	CheckoutSessionID *string `gorm:"type:varchar(255);uniqueIndex"`                       // Paying checkout session, if any.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// BookingSlot counts the units held by confirmed bookings for one dated slot.
type BookingSlot struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Kind           string `gorm:"type:varchar(16);not null;uniqueIndex:idx_booking_slots_key,priority:1"` // Booking family.
	Date           string `gorm:"type:varchar(10);not null;uniqueIndex:idx_booking_slots_key,priority:2"` // YYYY-MM-DD.
	TimeSlot       string `gorm:"type:varchar(32);not null;uniqueIndex:idx_booking_slots_key,priority:3"` // Slot label.
	ConfirmedUnits int    `gorm:"not null;default:0"`                                                     // Units held.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
