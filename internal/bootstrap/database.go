package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/lunarphp/opayo/internal/models"
)

// Migrate ensures the payment tables exist.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Order{},
		&models.Transaction{},
		&models.ReusablePayment{},
	); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}
