package db

import (
	"fmt"

	"github.com/tablehouse/eventdesk/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the service uses.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.Setting{},
		&models.Admin{},
		&models.Employee{},
		&models.GiftCard{},
		&models.RetiredGiftCardCode{},
		&models.GiftCardOrder{},
		&models.GiftCardTransaction{},
		&models.Booking{},
		&models.BookingSlot{},
		&models.CheckoutIntent{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
