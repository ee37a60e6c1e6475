package models

import "time"

// Hackathon is an event that participants register for and form teams in.
type Hackathon struct {
	BaseModel

	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Venue       string    `gorm:"size:200" json:"venue"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`

	MinTeamSize int `gorm:"not null;default:1" json:"min_team_size"`
	MaxTeamSize int `gorm:"not null;default:4" json:"max_team_size"`

	OrganizationID string        `gorm:"type:uuid;not null;index" json:"organization_id"`
	Organization   *Organization `gorm:"constraint:OnDelete:CASCADE" json:"organization,omitempty"`

	Judges []User `gorm:"many2many:hackathon_judges;" json:"judges,omitempty"`
}

// Participant is a user's registration for one hackathon.
type Participant struct {
	BaseModel

	HackathonID string     `gorm:"type:uuid;not null;uniqueIndex:idx_participant_hackathon_user" json:"hackathon_id"`
	Hackathon   *Hackathon `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID      string     `gorm:"type:uuid;not null;uniqueIndex:idx_participant_hackathon_user" json:"user_id"`
	User        *User      `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`

	TeamID         *string `gorm:"type:uuid;index" json:"team_id"`
	Team           *Team   `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	LookingForTeam bool    `json:"looking_for_team"`
}
