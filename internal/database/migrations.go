package database

import (
	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Organization{},
		&models.ModeratorInvitation{},
		&models.Hackathon{},
		&models.Team{},
		&models.Participant{},
		&models.TeamInvitation{},
		&models.TeamJoinRequest{},
		&models.OneTimePassword{},
		&models.PasswordResetToken{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.Notification{},
		&models.AuditLog{},
		&models.CacheEntry{},
	)
}
