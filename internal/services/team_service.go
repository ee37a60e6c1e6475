package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
	"github.com/Goodness5/Vortexis-Backend/pkg/metrics"
)

// UpdateTeamInput carries the editable team fields. Nil fields are unchanged.
type UpdateTeamInput struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=100"`
	Description *string `json:"description"`
}

// TeamService serves team reads and organizer edits.
type TeamService struct {
	deps TeamDeps
}

// NewTeamService constructs a TeamService.
func NewTeamService(deps TeamDeps) (*TeamService, error) {
	deps, err := deps.normalise("team service")
	if err != nil {
		return nil, err
	}
	return &TeamService{deps: deps}, nil
}

// Get returns the team with its organizer and members.
func (s *TeamService) Get(ctx context.Context, teamID string) (*models.Team, error) {
	return loadTeam(s.deps.DB.WithContext(ensureContext(ctx)), teamID)
}

// ListByHackathon returns the hackathon's teams ordered by name.
func (s *TeamService) ListByHackathon(ctx context.Context, hackathonID string) ([]models.Team, error) {
	ctx = ensureContext(ctx)
	if _, err := s.deps.Hackathons.GetHackathon(ctx, hackathonID); err != nil {
		return nil, err
	}

	db := s.deps.DB.WithContext(ctx)
	var teams []models.Team
	if err := db.Preload("Organizer").
		Where("hackathon_id = ?", hackathonID).
		Order("name ASC").
		Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("team service: list teams: %w", err)
	}
	for i := range teams {
		members, err := teamMembers(db, teams[i].ID)
		if err != nil {
			return nil, fmt.Errorf("team service: %w", err)
		}
		teams[i].Members = members
	}
	return teams, nil
}

// Update renames or re-describes the team. Only the organizer may edit and
// names stay unique within the hackathon.
func (s *TeamService) Update(ctx context.Context, teamID, requesterID string, input UpdateTeamInput) (*models.Team, error) {
	ctx = ensureContext(ctx)

	var team *models.Team
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		team, err = lockTeam(tx, teamID)
		if err != nil {
			return err
		}
		if !team.IsOrganizer(requesterID) {
			return apperrors.NewForbidden("only the team organizer can update the team")
		}

		updates := map[string]any{}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return apperrors.NewValidation("team name is required")
			}
			if name != team.Name {
				var clash int64
				if err := tx.Model(&models.Team{}).
					Where("hackathon_id = ? AND name = ? AND id <> ?", team.HackathonID, name, team.ID).
					Count(&clash).Error; err != nil {
					return fmt.Errorf("check team name: %w", err)
				}
				if clash > 0 {
					return apperrors.NewValidation("a team with this name already exists in this hackathon")
				}
				updates["name"] = name
			}
		}
		if input.Description != nil {
			updates["description"] = strings.TrimSpace(*input.Description)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(team).Updates(updates).Error; err != nil {
			return conflictOr(fmt.Errorf("update team: %w", err), "a team with this name already exists in this hackathon")
		}
		return nil
	})
	metrics.TeamOperations.WithLabelValues("update", metrics.Result(err)).Inc()
	if err != nil {
		return nil, wrapTx("team service", err)
	}

	recordAudit(s.deps.Audit, ctx, AuditEntry{
		UserID:     stringPtr(requesterID),
		Action:     "team.update",
		Resource:   "team",
		ResourceID: team.ID,
	})
	return s.Get(ctx, team.ID)
}
