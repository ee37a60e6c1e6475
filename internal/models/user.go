package models

import (
	"strings"
	"time"
)

// Authentication providers recorded on User.AuthProvider.
const (
	AuthProviderEmail  = "email"
	AuthProviderGoogle = "google"
	AuthProviderGitHub = "github"
)

// User describes a platform account together with its role flags.
type User struct {
	BaseModel

	Username string `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName    string `gorm:"size:50" json:"first_name"`
	LastName     string `gorm:"size:50" json:"last_name"`
	AuthProvider string `gorm:"size:20;not null;default:'email'" json:"auth_provider"`

	IsParticipant bool `json:"is_participant"`
	IsOrganizer   bool `json:"is_organizer"`
	IsJudge       bool `json:"is_judge"`
	IsModerator   bool `json:"is_moderator"`
	IsAdmin       bool `json:"is_admin"`
	IsActive      bool `gorm:"default:true" json:"is_active"`
	IsVerified    bool `json:"is_verified"`

	LastLoginAt *time.Time `json:"last_login_at"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// FullName joins first and last names.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Profile holds optional public details for a user.
type Profile struct {
	BaseModel

	UserID         string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Bio            string `gorm:"type:text" json:"bio"`
	GitHub         string `gorm:"size:200" json:"github"`
	LinkedIn       string `gorm:"size:200" json:"linkedin"`
	Twitter        string `gorm:"size:200" json:"twitter"`
	Website        string `gorm:"size:200" json:"website"`
	Location       string `gorm:"size:100" json:"location"`
	ProfilePicture string `gorm:"size:500" json:"profile_picture"`
}
