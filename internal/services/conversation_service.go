package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
	"github.com/Goodness5/Vortexis-Backend/pkg/metrics"
)

const (
	defaultMessagePageSize = 50
	maxMessagePageSize     = 100
	maxMessageLength       = 5000
)

// ConversationSync reports the synced conversation and whether it was created.
type ConversationSync struct {
	Conversation *models.Conversation
	Created      bool
	Added        int64
}

// ConversationService keeps team and judges conversations in step with their
// source groups and handles direct messages.
type ConversationService struct {
	deps TeamDeps
}

// NewConversationService constructs a ConversationService.
func NewConversationService(deps TeamDeps) (*ConversationService, error) {
	deps, err := deps.normalise("conversation service")
	if err != nil {
		return nil, err
	}
	return &ConversationService{deps: deps}, nil
}

// SyncTeamConversation gets or creates the team conversation and adds every
// current member. The organizer is always an admin participant. Existing
// participants are never removed.
func (s *ConversationService) SyncTeamConversation(ctx context.Context, teamID string) (*ConversationSync, error) {
	return s.syncTeam(ctx, teamID, "")
}

// SyncTeamConversationAs runs SyncTeamConversation on behalf of callerID, who
// must be a member or the organizer of the team.
func (s *ConversationService) SyncTeamConversationAs(ctx context.Context, callerID, teamID string) (*ConversationSync, error) {
	if strings.TrimSpace(callerID) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	return s.syncTeam(ctx, teamID, callerID)
}

func (s *ConversationService) syncTeam(ctx context.Context, teamID, callerID string) (*ConversationSync, error) {
	ctx = ensureContext(ctx)

	var result ConversationSync
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		team, err := loadTeam(tx, teamID)
		if err != nil {
			return err
		}
		if callerID != "" && !team.HasMember(callerID) && !team.IsOrganizer(callerID) {
			return apperrors.NewForbidden("not authorized for this team")
		}

		createdBy := callerID
		if createdBy == "" {
			createdBy = derefString(team.OrganizerID)
		}
		conversation, created, err := s.getOrCreate(tx,
			func(db *gorm.DB) *gorm.DB {
				return db.Where("type = ? AND team_id = ?", models.ConversationTeam, team.ID)
			},
			&models.Conversation{
				Type:        models.ConversationTeam,
				Title:       "Team: " + team.Name,
				TeamID:      stringPtr(team.ID),
				CreatedByID: optionalString(createdBy),
			})
		if err != nil {
			return err
		}

		organizer := derefString(team.OrganizerID)
		userIDs := make([]string, 0, len(team.Members)+1)
		for _, member := range team.Members {
			userIDs = append(userIDs, member.ID)
		}
		if organizer != "" && !team.HasMember(organizer) {
			userIDs = append(userIDs, organizer)
		}

		added, err := addParticipants(tx, conversation.ID, userIDs, func(userID string) bool {
			return userID == organizer
		})
		if err != nil {
			return err
		}

		result = ConversationSync{Conversation: conversation, Created: created, Added: added}
		return nil
	})
	if err != nil {
		return nil, wrapTx("conversation service", err)
	}
	metrics.ConversationSyncParticipants.WithLabelValues(models.ConversationTeam).Add(float64(result.Added))
	return s.withParticipants(ctx, &result)
}

// SyncJudgesConversation gets or creates the hackathon's judges conversation
// and adds the judges, plus the organization organizer and moderators when
// requested. callerID must be a judge, the organizer or a moderator.
func (s *ConversationService) SyncJudgesConversation(ctx context.Context, callerID, hackathonID string, includeOrganizers, includeOrgMembers bool) (*ConversationSync, error) {
	ctx = ensureContext(ctx)

	var result ConversationSync
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hackathons := s.deps.Hackathons.WithTx(tx)
		hackathon, err := hackathons.GetHackathon(ctx, hackathonID)
		if err != nil {
			return err
		}
		judges, err := hackathons.Judges(ctx, hackathon.ID)
		if err != nil {
			return err
		}
		org, err := hackathons.Organization(ctx, hackathon.ID)
		if err != nil {
			return err
		}

		authorized := containsString(judges, callerID) ||
			org.OrganizerID == callerID ||
			containsString(org.ModeratorIDs, callerID)
		if !authorized {
			return apperrors.NewForbidden("not authorized to create judges conversation")
		}

		conversation, created, err := s.getOrCreate(tx,
			func(db *gorm.DB) *gorm.DB {
				return db.Where("type = ? AND hackathon_id = ?", models.ConversationJudges, hackathon.ID)
			},
			&models.Conversation{
				Type:           models.ConversationJudges,
				Title:          "Judges: " + hackathon.Title,
				HackathonID:    stringPtr(hackathon.ID),
				OrganizationID: stringPtr(org.OrganizationID),
				CreatedByID:    stringPtr(callerID),
			})
		if err != nil {
			return err
		}

		userIDs := append([]string{}, judges...)
		if includeOrganizers && org.OrganizerID != "" {
			userIDs = append(userIDs, org.OrganizerID)
		}
		if includeOrgMembers {
			userIDs = append(userIDs, org.ModeratorIDs...)
		}

		added, err := addParticipants(tx, conversation.ID, normaliseIDs(userIDs), func(userID string) bool {
			return userID == org.OrganizerID
		})
		if err != nil {
			return err
		}

		result = ConversationSync{Conversation: conversation, Created: created, Added: added}
		return nil
	})
	if err != nil {
		return nil, wrapTx("conversation service", err)
	}
	metrics.ConversationSyncParticipants.WithLabelValues(models.ConversationJudges).Add(float64(result.Added))
	return s.withParticipants(ctx, &result)
}

// DirectConversation returns the direct conversation between userID and
// targetID, creating it on first use. The initiator is its admin.
func (s *ConversationService) DirectConversation(ctx context.Context, userID, targetID string) (*ConversationSync, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, apperrors.NewValidation("user_id is required")
	}
	if userID == targetID {
		return nil, apperrors.NewValidation("cannot start a conversation with yourself")
	}

	pair := []string{userID, targetID}
	sort.Strings(pair)
	key := pair[0] + ":" + pair[1]

	var result ConversationSync
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findUser(tx, targetID); err != nil {
			return err
		}

		conversation, created, err := s.getOrCreate(tx,
			func(db *gorm.DB) *gorm.DB {
				return db.Where("direct_key = ?", key)
			},
			&models.Conversation{
				Type:        models.ConversationDirect,
				DirectKey:   stringPtr(key),
				CreatedByID: stringPtr(userID),
			})
		if err != nil {
			return err
		}
		if created {
			if _, err := addParticipants(tx, conversation.ID, []string{userID, targetID}, func(id string) bool {
				return id == userID
			}); err != nil {
				return err
			}
		}
		result = ConversationSync{Conversation: conversation, Created: created}
		return nil
	})
	if err != nil {
		return nil, wrapTx("conversation service", err)
	}
	return s.withParticipants(ctx, &result)
}

// ListForUser returns the conversations userID participates in, most recently
// active first.
func (s *ConversationService) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	ctx = ensureContext(ctx)

	var conversations []models.Conversation
	if err := s.deps.DB.WithContext(ctx).
		Preload("Participants.User").
		Where("id IN (?)", s.deps.DB.Model(&models.ConversationParticipant{}).Select("conversation_id").Where("user_id = ?", userID)).
		Order("updated_at DESC").
		Find(&conversations).Error; err != nil {
		return nil, fmt.Errorf("conversation service: list conversations: %w", err)
	}
	return conversations, nil
}

// PostMessage appends a message. The sender must be a participant allowed to post.
func (s *ConversationService) PostMessage(ctx context.Context, conversationID, senderID, content string) (*models.Message, error) {
	ctx = ensureContext(ctx)
	content, err := messageContent(content)
	if err != nil {
		return nil, err
	}

	var message models.Message
	err = s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conversation models.Conversation
		if err := tx.First(&conversation, "id = ?", conversationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFound("conversation not found")
			}
			return fmt.Errorf("load conversation: %w", err)
		}

		participant, err := conversationParticipant(tx, conversation.ID, senderID)
		if err != nil {
			return err
		}
		if !participant.CanPost {
			return apperrors.NewForbidden("you are not allowed to post in this conversation")
		}

		message = models.Message{
			ConversationID: conversation.ID,
			SenderID:       senderID,
			Content:        content,
		}
		if err := tx.Create(&message).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		if err := tx.Model(&conversation).Update("updated_at", s.deps.Clock()).Error; err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTx("conversation service", err)
	}
	return &message, nil
}

// ListMessages returns messages oldest first. Deleted messages are only
// visible to their sender.
func (s *ConversationService) ListMessages(ctx context.Context, conversationID, userID string, limit int) ([]models.Message, error) {
	ctx = ensureContext(ctx)
	db := s.deps.DB.WithContext(ctx)

	if _, err := conversationParticipant(db, conversationID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultMessagePageSize
	}
	if limit > maxMessagePageSize {
		limit = maxMessagePageSize
	}

	var messages []models.Message
	if err := db.Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Where("is_deleted = ? OR sender_id = ?", false, userID).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("conversation service: list messages: %w", err)
	}
	return messages, nil
}

// EditMessage replaces the content of the sender's own message.
func (s *ConversationService) EditMessage(ctx context.Context, messageID, userID, content string) (*models.Message, error) {
	ctx = ensureContext(ctx)
	content, err := messageContent(content)
	if err != nil {
		return nil, err
	}

	message, err := s.ownMessage(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	if message.IsDeleted {
		return nil, apperrors.NewValidation("cannot edit a deleted message")
	}

	now := s.deps.Clock()
	if err := s.deps.DB.WithContext(ctx).Model(message).Updates(map[string]any{
		"content":   content,
		"is_edited": true,
		"edited_at": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("conversation service: edit message: %w", err)
	}
	message.Content = content
	message.IsEdited = true
	message.EditedAt = &now
	return message, nil
}

// DeleteMessage soft deletes the sender's own message.
func (s *ConversationService) DeleteMessage(ctx context.Context, messageID, userID string) error {
	ctx = ensureContext(ctx)

	message, err := s.ownMessage(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if message.IsDeleted {
		return nil
	}
	if err := s.deps.DB.WithContext(ctx).Model(message).Updates(map[string]any{
		"is_deleted": true,
		"deleted_at": s.deps.Clock(),
	}).Error; err != nil {
		return fmt.Errorf("conversation service: delete message: %w", err)
	}
	return nil
}

func (s *ConversationService) ownMessage(ctx context.Context, messageID, userID string) (*models.Message, error) {
	var message models.Message
	err := s.deps.DB.WithContext(ctx).First(&message, "id = ?", strings.TrimSpace(messageID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("message not found")
	}
	if err != nil {
		return nil, fmt.Errorf("conversation service: load message: %w", err)
	}
	if message.SenderID != userID {
		return nil, apperrors.NewForbidden("you can only change your own messages")
	}
	return &message, nil
}

// getOrCreate finds the conversation matched by scope or creates candidate.
// A concurrent creator losing the unique index race re-reads the winner.
func (s *ConversationService) getOrCreate(tx *gorm.DB, scope func(*gorm.DB) *gorm.DB, candidate *models.Conversation) (*models.Conversation, bool, error) {
	var existing models.Conversation
	err := scope(tx).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("load conversation: %w", err)
	}

	created := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(candidate)
	if created.Error != nil {
		return nil, false, fmt.Errorf("create conversation: %w", created.Error)
	}
	if created.RowsAffected > 0 {
		return candidate, true, nil
	}

	if err := scope(tx).First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("reload conversation: %w", err)
	}
	return &existing, false, nil
}

func (s *ConversationService) withParticipants(ctx context.Context, result *ConversationSync) (*ConversationSync, error) {
	if err := s.deps.DB.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Participants.User").
		First(result.Conversation, "id = ?", result.Conversation.ID).Error; err != nil {
		return nil, fmt.Errorf("conversation service: load participants: %w", err)
	}
	return result, nil
}

// addParticipants inserts the missing participants in one statement and
// returns how many rows were added.
func addParticipants(tx *gorm.DB, conversationID string, userIDs []string, isAdmin func(string) bool) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	rows := make([]models.ConversationParticipant, 0, len(userIDs))
	for _, userID := range userIDs {
		rows = append(rows, models.ConversationParticipant{
			ConversationID: conversationID,
			UserID:         userID,
			IsAdmin:        isAdmin(userID),
			CanPost:        true,
		})
	}

	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if result.Error != nil {
		return 0, fmt.Errorf("add conversation participants: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func conversationParticipant(db *gorm.DB, conversationID, userID string) (*models.ConversationParticipant, error) {
	var participant models.ConversationParticipant
	err := db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewForbidden("you are not a participant in this conversation")
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation participant: %w", err)
	}
	return &participant, nil
}

func messageContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperrors.NewValidation("message content is required")
	}
	if len(content) > maxMessageLength {
		return "", apperrors.NewValidation(fmt.Sprintf("message content exceeds %d characters", maxMessageLength))
	}
	return content, nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
