package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification represents an in-app notification for a user.
type Notification struct {
	BaseModel

	UserID     string         `gorm:"type:uuid;index" json:"user_id"`
	Category   string         `gorm:"type:varchar(64);not null" json:"category"`
	Priority   string         `gorm:"type:varchar(32);default:'normal'" json:"priority"`
	Title      string         `gorm:"type:varchar(255);not null" json:"title"`
	Message    string         `gorm:"type:text" json:"message"`
	ActionURL  string         `gorm:"type:text" json:"action_url"`
	ActionText string         `gorm:"type:varchar(64)" json:"action_text"`
	Data       datatypes.JSON `json:"data"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`
}
