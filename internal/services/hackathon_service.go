package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
	"github.com/Goodness5/Vortexis-Backend/pkg/validator"
)

// CreateHackathonInput describes a new hackathon.
type CreateHackathonInput struct {
	OrganizationID string    `json:"organization_id" validate:"required"`
	Title          string    `json:"title" validate:"required,notblank,max=200"`
	Description    string    `json:"description"`
	Venue          string    `json:"venue" validate:"max=200"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required"`
	MinTeamSize    int       `json:"min_team_size" validate:"omitempty,gte=1"`
	MaxTeamSize    int       `json:"max_team_size" validate:"omitempty,gte=1"`
}

// HackathonService creates hackathons and manages their participants and judges.
type HackathonService struct {
	db       *gorm.DB
	notifier NotificationSender
	audit    *AuditService
}

// NewHackathonService constructs a HackathonService.
func NewHackathonService(db *gorm.DB, notifier NotificationSender, audit *AuditService) (*HackathonService, error) {
	if db == nil {
		return nil, errors.New("hackathon service: db is required")
	}
	return &HackathonService{db: db, notifier: notifier, audit: audit}, nil
}

// Create adds a hackathon to an organization. The creator must be the
// organization's organizer or one of its moderators.
func (s *HackathonService) Create(ctx context.Context, creatorID string, input CreateHackathonInput) (*models.Hackathon, error) {
	ctx = ensureContext(ctx)
	input.Title = strings.TrimSpace(input.Title)
	if input.MinTeamSize == 0 {
		input.MinTeamSize = 1
	}
	if input.MaxTeamSize == 0 {
		input.MaxTeamSize = 4
	}
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	if input.MaxTeamSize < input.MinTeamSize {
		return nil, apperrors.NewValidation("max_team_size must not be smaller than min_team_size")
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, apperrors.NewValidation("end_date must be after start_date")
	}

	hackathon := &models.Hackathon{
		Title:          input.Title,
		Description:    strings.TrimSpace(input.Description),
		Venue:          strings.TrimSpace(input.Venue),
		StartDate:      input.StartDate.UTC(),
		EndDate:        input.EndDate.UTC(),
		MinTeamSize:    input.MinTeamSize,
		MaxTeamSize:    input.MaxTeamSize,
		OrganizationID: strings.TrimSpace(input.OrganizationID),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireOrganizationRole(ctx, tx, hackathon.OrganizationID, creatorID); err != nil {
			return err
		}
		if err := tx.Create(hackathon).Error; err != nil {
			return fmt.Errorf("create hackathon: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTx("hackathon service", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:     stringPtr(creatorID),
		Action:     "hackathon.create",
		Resource:   "hackathon",
		ResourceID: hackathon.ID,
		Metadata:   map[string]any{"title": hackathon.Title},
	})
	return s.Get(ctx, hackathon.ID)
}

// Get returns the hackathon with its organization and judges.
func (s *HackathonService) Get(ctx context.Context, hackathonID string) (*models.Hackathon, error) {
	var hackathon models.Hackathon
	err := s.db.WithContext(ensureContext(ctx)).
		Preload("Organization").
		Preload("Judges").
		First(&hackathon, "id = ?", strings.TrimSpace(hackathonID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("hackathon not found")
	}
	if err != nil {
		return nil, fmt.Errorf("hackathon service: load hackathon: %w", err)
	}
	return &hackathon, nil
}

// Register records userID as a participant looking for a team.
func (s *HackathonService) Register(ctx context.Context, hackathonID, userID string) (*models.Participant, error) {
	ctx = ensureContext(ctx)

	var participant *models.Participant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		directory := NewHackathonDirectory(tx)
		hackathon, err := directory.GetHackathon(ctx, hackathonID)
		if err != nil {
			return err
		}
		user, err := findUser(tx, userID)
		if err != nil {
			return err
		}
		existing, err := NewParticipantDirectory(tx).GetParticipant(ctx, hackathon.ID, user.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.NewValidation("you are already registered for this hackathon")
		}

		participant = &models.Participant{
			HackathonID:    hackathon.ID,
			UserID:         user.ID,
			LookingForTeam: true,
		}
		if err := tx.Create(participant).Error; err != nil {
			return conflictOr(fmt.Errorf("register participant: %w", err), "you are already registered for this hackathon")
		}
		if !user.IsParticipant {
			if err := tx.Model(user).Update("is_participant", true).Error; err != nil {
				return fmt.Errorf("grant participant role: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapTx("hackathon service", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:     stringPtr(userID),
		Action:     "hackathon.register",
		Resource:   "hackathon",
		ResourceID: participant.HackathonID,
	})
	return participant, nil
}

// AddJudge appoints the user registered under email as a judge. The requester
// must hold an organization role.
func (s *HackathonService) AddJudge(ctx context.Context, hackathonID, requesterID, email string) (*models.Hackathon, error) {
	ctx = ensureContext(ctx)
	email = normaliseEmail(email)
	if email == "" {
		return nil, apperrors.NewValidation("email is required")
	}

	var (
		hackathon *models.Hackathon
		judge     *models.User
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		hackathon, err = NewHackathonDirectory(tx).GetHackathon(ctx, hackathonID)
		if err != nil {
			return err
		}
		if err := s.requireOrganizationRole(ctx, tx, hackathon.OrganizationID, requesterID); err != nil {
			return err
		}
		judge, err = findUserByEmail(tx, email)
		if err != nil {
			return err
		}
		if judge == nil {
			return apperrors.NewNotFound("no account is registered with this email")
		}
		if err := tx.Exec("INSERT INTO hackathon_judges (hackathon_id, user_id) VALUES (?, ?)", hackathon.ID, judge.ID).Error; err != nil {
			return conflictOr(fmt.Errorf("add judge: %w", err), "user is already a judge for this hackathon")
		}
		if err := tx.Model(judge).Update("is_judge", true).Error; err != nil {
			return fmt.Errorf("grant judge role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTx("hackathon service", err)
	}

	notify(ctx, s.notifier, NotificationRequest{
		UserID:   judge.ID,
		Title:    fmt.Sprintf("You are judging %s", hackathon.Title),
		Body:     fmt.Sprintf("You have been appointed as a judge for %q.", hackathon.Title),
		Category: CategoryHackathon,
		Priority: PriorityNormal,
		Data:     map[string]any{"hackathon_id": hackathon.ID},
		Email:    true,
		InApp:    true,
	})
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:     stringPtr(requesterID),
		Action:     "hackathon.judge_add",
		Resource:   "hackathon",
		ResourceID: hackathon.ID,
		Metadata:   map[string]any{"user_id": judge.ID},
	})
	return s.Get(ctx, hackathon.ID)
}

func (s *HackathonService) requireOrganizationRole(ctx context.Context, tx *gorm.DB, organizationID, userID string) error {
	var organization models.Organization
	err := tx.WithContext(ctx).First(&organization, "id = ?", organizationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFound("organization not found")
	}
	if err != nil {
		return fmt.Errorf("load organization: %w", err)
	}
	if organization.OrganizerID == userID {
		return nil
	}

	var count int64
	if err := tx.Table("organization_moderators").
		Where("organization_id = ? AND user_id = ?", organization.ID, userID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check moderator: %w", err)
	}
	if count == 0 {
		return apperrors.NewForbidden("only organization organizers and moderators can manage hackathons")
	}
	return nil
}
