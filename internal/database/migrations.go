package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/charlesng35/opsapi/internal/models"
)

// Models lists every persistent model in dependency order.
func Models() []any {
	return []any{
		&models.Namespace{},
		&models.User{},
		&models.Role{},
		&models.NamespaceMember{},
		&models.Invitation{},
		&models.AuditLog{},
	}
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	return db.AutoMigrate(Models()...)
}
