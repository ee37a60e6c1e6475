package models

import "time"

// Conversation types.
const (
	ConversationDirect = "dm"
	ConversationTeam   = "team"
	ConversationJudges = "judges"
)

// Conversation is a message thread. Team and judges conversations derive their
// participants from the linked team or hackathon.
type Conversation struct {
	BaseModel

	Type  string `gorm:"size:16;not null;uniqueIndex:idx_conversation_team;uniqueIndex:idx_conversation_hackathon" json:"type"`
	Title string `gorm:"size:255" json:"title"`

	TeamID         *string `gorm:"type:uuid;uniqueIndex:idx_conversation_team" json:"team_id,omitempty"`
	HackathonID    *string `gorm:"type:uuid;uniqueIndex:idx_conversation_hackathon" json:"hackathon_id,omitempty"`
	OrganizationID *string `gorm:"type:uuid;index" json:"organization_id,omitempty"`
	// DirectKey is the sorted user pair of a direct conversation.
	DirectKey *string `gorm:"size:80;uniqueIndex" json:"-"`

	CreatedByID *string `gorm:"type:uuid" json:"created_by_id,omitempty"`

	Participants []ConversationParticipant `gorm:"constraint:OnDelete:CASCADE" json:"participants,omitempty"`
}

// ConversationParticipant grants a user access to a conversation.
type ConversationParticipant struct {
	BaseModel

	ConversationID string `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_participant" json:"conversation_id"`
	UserID         string `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_participant" json:"user_id"`
	User           *User  `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	IsAdmin        bool   `json:"is_admin"`
	CanPost        bool   `json:"can_post"`
}

// Message is a post in a conversation. Deleted messages are kept and hidden
// from everyone except their sender.
type Message struct {
	BaseModel

	ConversationID string        `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Conversation   *Conversation `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	SenderID       string        `gorm:"type:uuid;not null;index" json:"sender_id"`
	Sender         *User         `gorm:"constraint:OnDelete:CASCADE" json:"sender,omitempty"`
	Content        string        `gorm:"type:text;not null" json:"content"`

	IsEdited  bool       `json:"is_edited"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	IsDeleted bool       `gorm:"index" json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
