package models

import "time"

// Organization groups hackathons under an organizer and its moderators.
type Organization struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Website     string `gorm:"size:200" json:"website"`

	OrganizerID string `gorm:"type:uuid;not null;index" json:"organizer_id"`
	Organizer   *User  `gorm:"constraint:OnDelete:CASCADE" json:"organizer,omitempty"`

	Moderators []User `gorm:"many2many:organization_moderators;" json:"moderators,omitempty"`
}

// Moderator invitation states.
const (
	ModeratorInvitationPending  = "pending"
	ModeratorInvitationAccepted = "accepted"
	ModeratorInvitationDeclined = "declined"
)

// ModeratorInvitation offers an organization moderator seat to an existing user.
type ModeratorInvitation struct {
	BaseModel

	OrganizationID string        `gorm:"type:uuid;not null;uniqueIndex:idx_moderator_invitation_org_user" json:"organization_id"`
	Organization   *Organization `gorm:"constraint:OnDelete:CASCADE" json:"organization,omitempty"`
	InviteeID      string        `gorm:"type:uuid;not null;uniqueIndex:idx_moderator_invitation_org_user" json:"invitee_id"`
	Invitee        *User         `gorm:"foreignKey:InviteeID;constraint:OnDelete:CASCADE" json:"invitee,omitempty"`
	InvitedByID    *string       `gorm:"type:uuid" json:"invited_by_id"`

	TokenHash   string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	Status      string     `gorm:"size:16;not null;index" json:"status"`
	ExpiresAt   time.Time  `gorm:"index" json:"expires_at"`
	RespondedAt *time.Time `json:"responded_at"`
}
