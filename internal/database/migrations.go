package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/dbelyakov/realvista/internal/models"
)

// AutoMigrate creates or updates the schema for every persistent model.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	return db.AutoMigrate(
		&models.Admin{},
		&models.AuditLog{},
	)
}
