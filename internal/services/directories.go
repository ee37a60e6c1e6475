package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
)

// ParticipantDirectory reads and updates per-hackathon participant records.
type ParticipantDirectory interface {
	// GetParticipant returns nil without error when the user is not registered.
	GetParticipant(ctx context.Context, hackathonID, userID string) (*models.Participant, error)
	SetTeam(ctx context.Context, participant *models.Participant, teamID *string) error
	SetLookingForTeam(ctx context.Context, participant *models.Participant, looking bool) error
	// WithTx returns a directory bound to tx.
	WithTx(tx *gorm.DB) ParticipantDirectory
}

// OrganizationRoles lists the users holding organization-level roles.
type OrganizationRoles struct {
	OrganizationID string
	OrganizerID    string
	ModeratorIDs   []string
}

// HackathonDirectory provides read-only hackathon lookups.
type HackathonDirectory interface {
	GetHackathon(ctx context.Context, hackathonID string) (*models.Hackathon, error)
	TeamBounds(ctx context.Context, hackathonID string) (min, max int, err error)
	Judges(ctx context.Context, hackathonID string) ([]string, error)
	Organization(ctx context.Context, hackathonID string) (*OrganizationRoles, error)
	WithTx(tx *gorm.DB) HackathonDirectory
}

type gormParticipantDirectory struct {
	db *gorm.DB
}

// NewParticipantDirectory returns a ParticipantDirectory backed by db.
func NewParticipantDirectory(db *gorm.DB) ParticipantDirectory {
	return &gormParticipantDirectory{db: db}
}

func (d *gormParticipantDirectory) WithTx(tx *gorm.DB) ParticipantDirectory {
	return &gormParticipantDirectory{db: tx}
}

func (d *gormParticipantDirectory) GetParticipant(ctx context.Context, hackathonID, userID string) (*models.Participant, error) {
	var participant models.Participant
	err := d.db.WithContext(ensureContext(ctx)).
		Where("hackathon_id = ? AND user_id = ?", hackathonID, userID).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("participant directory: load participant: %w", err)
	}
	return &participant, nil
}

func (d *gormParticipantDirectory) SetTeam(ctx context.Context, participant *models.Participant, teamID *string) error {
	if participant == nil {
		return nil
	}
	if err := d.db.WithContext(ensureContext(ctx)).
		Model(&models.Participant{}).
		Where("id = ?", participant.ID).
		Update("team_id", teamID).Error; err != nil {
		return fmt.Errorf("participant directory: set team: %w", err)
	}
	participant.TeamID = teamID
	return nil
}

func (d *gormParticipantDirectory) SetLookingForTeam(ctx context.Context, participant *models.Participant, looking bool) error {
	if participant == nil {
		return nil
	}
	if err := d.db.WithContext(ensureContext(ctx)).
		Model(&models.Participant{}).
		Where("id = ?", participant.ID).
		Update("looking_for_team", looking).Error; err != nil {
		return fmt.Errorf("participant directory: set looking for team: %w", err)
	}
	participant.LookingForTeam = looking
	return nil
}

type gormHackathonDirectory struct {
	db *gorm.DB
}

// NewHackathonDirectory returns a HackathonDirectory backed by db.
func NewHackathonDirectory(db *gorm.DB) HackathonDirectory {
	return &gormHackathonDirectory{db: db}
}

func (d *gormHackathonDirectory) WithTx(tx *gorm.DB) HackathonDirectory {
	return &gormHackathonDirectory{db: tx}
}

func (d *gormHackathonDirectory) GetHackathon(ctx context.Context, hackathonID string) (*models.Hackathon, error) {
	var hackathon models.Hackathon
	err := d.db.WithContext(ensureContext(ctx)).First(&hackathon, "id = ?", hackathonID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("hackathon not found")
	}
	if err != nil {
		return nil, fmt.Errorf("hackathon directory: load hackathon: %w", err)
	}
	return &hackathon, nil
}

func (d *gormHackathonDirectory) TeamBounds(ctx context.Context, hackathonID string) (int, int, error) {
	hackathon, err := d.GetHackathon(ctx, hackathonID)
	if err != nil {
		return 0, 0, err
	}
	return hackathon.MinTeamSize, hackathon.MaxTeamSize, nil
}

func (d *gormHackathonDirectory) Judges(ctx context.Context, hackathonID string) ([]string, error) {
	var ids []string
	if err := d.db.WithContext(ensureContext(ctx)).
		Table("hackathon_judges").
		Where("hackathon_id = ?", hackathonID).
		Order("user_id").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("hackathon directory: load judges: %w", err)
	}
	return ids, nil
}

func (d *gormHackathonDirectory) Organization(ctx context.Context, hackathonID string) (*OrganizationRoles, error) {
	ctx = ensureContext(ctx)
	hackathon, err := d.GetHackathon(ctx, hackathonID)
	if err != nil {
		return nil, err
	}

	var organization models.Organization
	err = d.db.WithContext(ctx).First(&organization, "id = ?", hackathon.OrganizationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("organization not found")
	}
	if err != nil {
		return nil, fmt.Errorf("hackathon directory: load organization: %w", err)
	}

	var moderators []string
	if err := d.db.WithContext(ctx).
		Table("organization_moderators").
		Where("organization_id = ?", organization.ID).
		Order("user_id").
		Pluck("user_id", &moderators).Error; err != nil {
		return nil, fmt.Errorf("hackathon directory: load moderators: %w", err)
	}

	return &OrganizationRoles{
		OrganizationID: organization.ID,
		OrganizerID:    organization.OrganizerID,
		ModeratorIDs:   moderators,
	}, nil
}
