package models

import "time"

// AuditLog records a state transition performed through the API.
type AuditLog struct {
	BaseModel

	UserID     *string `gorm:"type:uuid;index" json:"user_id"`
	Action     string  `gorm:"size:64;not null;index" json:"action"`
	Resource   string  `gorm:"size:64;index" json:"resource"`
	ResourceID string  `gorm:"size:64;index" json:"resource_id"`
	Result     string  `gorm:"size:16;not null" json:"result"`
	Metadata   string  `gorm:"type:text" json:"metadata"`
	IPAddress  string  `gorm:"size:64" json:"ip_address"`
	UserAgent  string  `gorm:"size:255" json:"user_agent"`
}

// CacheEntry represents a cached value stored in the database fallback.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
