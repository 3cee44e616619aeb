package models

import "time"

// Employee statuses.
const (
	// EmployeeStatusActive can sign in and redeem cards.
	EmployeeStatusActive = "active"
	// EmployeeStatusArchived is kept for audit history only.
	EmployeeStatusArchived = "archived"
)

// Employee is an operator allowed to redeem gift cards in person.
type Employee struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name     string `gorm:"type:text;not null"`                              // Display name.
	Passcode string `gorm:"type:varchar(4);not null;uniqueIndex"`            // Four digit sign-in code.
	Status   string `gorm:"type:varchar(16);not null;default:'active';index"` // active or archived.
	Notes    string `gorm:"type:text"`                                       // Free text notes.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
