package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/teamsync/teamsync/internal/models"
)

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&models.Team{},
		&models.Member{},
		&models.Invite{},
		&models.ChatMessage{},
		&models.VideoProgress{},
		&models.PlayerGoal{},
		&models.AuditLog{},
		&models.RateCounter{},
	}
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
