package models

import "time"

// Team is a group of participants competing in one hackathon.
type Team struct {
	BaseModel

	Name        string `gorm:"size:100;not null;uniqueIndex:idx_team_hackathon_name" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	HackathonID string     `gorm:"type:uuid;not null;uniqueIndex:idx_team_hackathon_name;uniqueIndex:idx_team_hackathon_organizer" json:"hackathon_id"`
	Hackathon   *Hackathon `gorm:"constraint:OnDelete:CASCADE" json:"hackathon,omitempty"`

	OrganizerID *string `gorm:"type:uuid;uniqueIndex:idx_team_hackathon_organizer" json:"organizer_id"`
	Organizer   *User   `gorm:"constraint:OnDelete:SET NULL" json:"organizer,omitempty"`

	Members []User `gorm:"many2many:team_members;" json:"members,omitempty"`
}

// IsOrganizer reports whether userID created the team.
func (t *Team) IsOrganizer(userID string) bool {
	return t != nil && t.OrganizerID != nil && *t.OrganizerID == userID
}

// HasMember reports whether userID is in the loaded member set.
func (t *Team) HasMember(userID string) bool {
	if t == nil {
		return false
	}
	for _, member := range t.Members {
		if member.ID == userID {
			return true
		}
	}
	return false
}

// TeamInvitation invites an email address to join a team. AcceptedAt marks
// the invitation consumed.
type TeamInvitation struct {
	BaseModel

	TeamID      string  `gorm:"type:uuid;not null;uniqueIndex:idx_team_invitation_email" json:"team_id"`
	Team        *Team   `gorm:"constraint:OnDelete:CASCADE" json:"team,omitempty"`
	Email       string  `gorm:"size:255;not null;uniqueIndex:idx_team_invitation_email" json:"email"`
	InvitedByID *string `gorm:"type:uuid" json:"invited_by_id"`
	InvitedBy   *User   `gorm:"foreignKey:InvitedByID;constraint:OnDelete:SET NULL" json:"invited_by,omitempty"`

	TokenHash  string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at"`
}

// IsAccepted reports whether the invitation has been consumed.
func (i *TeamInvitation) IsAccepted() bool {
	return i != nil && i.AcceptedAt != nil
}

// IsPending reports whether the invitation can still be accepted at now.
func (i *TeamInvitation) IsPending(now time.Time) bool {
	return i != nil && i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}

// Join request states.
const (
	JoinRequestPending  = "pending"
	JoinRequestApproved = "approved"
	JoinRequestRejected = "rejected"
)

// TeamJoinRequest is an unsolicited request by a user to join a team.
type TeamJoinRequest struct {
	BaseModel

	TeamID string `gorm:"type:uuid;not null;uniqueIndex:idx_join_request_team_user" json:"team_id"`
	Team   *Team  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_join_request_team_user" json:"user_id"`
	User   *User  `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`

	Status      string     `gorm:"size:16;not null;index" json:"status"`
	RespondedAt *time.Time `json:"responded_at"`
}
