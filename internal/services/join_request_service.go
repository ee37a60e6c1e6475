package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
	"github.com/Goodness5/Vortexis-Backend/pkg/metrics"
)

// JoinRequestService runs the pending -> approved | rejected workflow for
// users asking to join a team.
type JoinRequestService struct {
	deps TeamDeps
}

// NewJoinRequestService constructs a JoinRequestService.
func NewJoinRequestService(deps TeamDeps) (*JoinRequestService, error) {
	deps, err := deps.normalise("join request service")
	if err != nil {
		return nil, err
	}
	return &JoinRequestService{deps: deps}, nil
}

// Request records a pending join request. A pair that already has a request
// in any state cannot request again.
func (s *JoinRequestService) Request(ctx context.Context, teamID, userID string) (*models.TeamJoinRequest, error) {
	ctx = ensureContext(ctx)

	var (
		request *models.TeamJoinRequest
		team    *models.Team
		user    *models.User
	)
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		team, err = lockTeam(tx, teamID)
		if err != nil {
			return err
		}
		user, err = findUser(tx, userID)
		if err != nil {
			return err
		}
		if team.HasMember(user.ID) {
			return apperrors.NewValidation("you are already a member of this team")
		}
		other, err := teamOfUser(tx, team.HackathonID, user.ID)
		if err != nil {
			return err
		}
		if other != "" {
			return apperrors.NewValidation("you are already in a team for this hackathon")
		}

		var existing int64
		if err := tx.Model(&models.TeamJoinRequest{}).
			Where("team_id = ? AND user_id = ?", team.ID, user.ID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("check join request: %w", err)
		}
		if existing > 0 {
			return apperrors.NewValidation("join request already sent")
		}

		request = &models.TeamJoinRequest{
			TeamID: team.ID,
			UserID: user.ID,
			Status: models.JoinRequestPending,
		}
		if err := tx.Create(request).Error; err != nil {
			return conflictOr(fmt.Errorf("create join request: %w", err), "join request already sent")
		}
		return nil
	})
	metrics.TeamOperations.WithLabelValues("join_request", metrics.Result(err)).Inc()
	if err != nil {
		return nil, wrapTx("join request service", err)
	}

	if team.OrganizerID != nil {
		notify(ctx, s.deps.Notifier, NotificationRequest{
			UserID:     *team.OrganizerID,
			Title:      fmt.Sprintf("%s wants to join %s", displayName(user), team.Name),
			Body:       fmt.Sprintf("%s has asked to join your team %q.", displayName(user), team.Name),
			Category:   CategoryTeam,
			Priority:   PriorityNormal,
			ActionURL:  s.deps.link("/teams/%s", team.ID),
			ActionText: "Review Request",
			Data:       map[string]any{"team_id": team.ID, "user_id": user.ID},
			InApp:      true,
		})
	}
	recordAudit(s.deps.Audit, ctx, AuditEntry{
		UserID:     &user.ID,
		Action:     "team.join_request",
		Resource:   "team",
		ResourceID: team.ID,
	})
	return request, nil
}

// Approve moves the oldest pending request, or the pending request of userID
// when given, to approved and adds the requester to the team roster. The
// requester's participant record is left untouched.
func (s *JoinRequestService) Approve(ctx context.Context, teamID, approverID, userID string) (*models.TeamJoinRequest, error) {
	ctx = ensureContext(ctx)

	var (
		request *models.TeamJoinRequest
		team    *models.Team
	)
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		team, err = lockTeam(tx, teamID)
		if err != nil {
			return err
		}
		if !team.IsOrganizer(approverID) {
			return apperrors.NewForbidden("only the team organizer can approve requests")
		}
		request, err = s.pending(tx, team.ID, userID)
		if err != nil {
			return err
		}

		if team.HasMember(request.UserID) {
			return apperrors.NewValidation("user is already a member of this team")
		}
		other, err := teamOfUser(tx, team.HackathonID, request.UserID)
		if err != nil {
			return err
		}
		if other != "" {
			return apperrors.NewValidation("user is already in a team for this hackathon")
		}
		_, maxSize, err := s.deps.Hackathons.WithTx(tx).TeamBounds(ctx, team.HackathonID)
		if err != nil {
			return err
		}
		if len(team.Members) >= maxSize {
			return apperrors.NewValidation("team has reached maximum size")
		}

		if err := s.respond(tx, request, models.JoinRequestApproved); err != nil {
			return err
		}
		return addTeamMember(tx, team.ID, request.UserID)
	})
	metrics.TeamOperations.WithLabelValues("join_approve", metrics.Result(err)).Inc()
	if err != nil {
		return nil, wrapTx("join request service", err)
	}

	notify(ctx, s.deps.Notifier, NotificationRequest{
		UserID:   request.UserID,
		Title:    fmt.Sprintf("Welcome to %s", team.Name),
		Body:     fmt.Sprintf("Your request to join %q was approved.", team.Name),
		Category: CategoryTeam,
		Priority: PriorityNormal,
		Data:     map[string]any{"team_id": team.ID},
		Email:    true,
		InApp:    true,
	})
	recordAudit(s.deps.Audit, ctx, AuditEntry{
		UserID:     stringPtr(approverID),
		Action:     "team.join_approve",
		Resource:   "team",
		ResourceID: team.ID,
		Metadata:   map[string]any{"user_id": request.UserID},
	})
	return request, nil
}

// Reject moves the oldest pending request, or the pending request of userID
// when given, to rejected. The row is kept.
func (s *JoinRequestService) Reject(ctx context.Context, teamID, approverID, userID string) (*models.TeamJoinRequest, error) {
	ctx = ensureContext(ctx)

	var (
		request *models.TeamJoinRequest
		team    *models.Team
	)
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		team, err = lockTeam(tx, teamID)
		if err != nil {
			return err
		}
		if !team.IsOrganizer(approverID) {
			return apperrors.NewForbidden("only the team organizer can reject requests")
		}
		request, err = s.pending(tx, team.ID, userID)
		if err != nil {
			return err
		}
		return s.respond(tx, request, models.JoinRequestRejected)
	})
	metrics.TeamOperations.WithLabelValues("join_reject", metrics.Result(err)).Inc()
	if err != nil {
		return nil, wrapTx("join request service", err)
	}

	notify(ctx, s.deps.Notifier, NotificationRequest{
		UserID:   request.UserID,
		Title:    fmt.Sprintf("Request to join %s declined", team.Name),
		Body:     fmt.Sprintf("Your request to join %q was declined.", team.Name),
		Category: CategoryTeam,
		Priority: PriorityLow,
		Data:     map[string]any{"team_id": team.ID},
		InApp:    true,
	})
	recordAudit(s.deps.Audit, ctx, AuditEntry{
		UserID:     stringPtr(approverID),
		Action:     "team.join_reject",
		Resource:   "team",
		ResourceID: team.ID,
		Metadata:   map[string]any{"user_id": request.UserID},
	})
	return request, nil
}

// ListPending returns the team's pending requests, oldest first. Only the
// organizer may list them.
func (s *JoinRequestService) ListPending(ctx context.Context, teamID, requesterID string) ([]models.TeamJoinRequest, error) {
	ctx = ensureContext(ctx)
	db := s.deps.DB.WithContext(ctx)

	team, err := loadTeam(db, teamID)
	if err != nil {
		return nil, err
	}
	if !team.IsOrganizer(requesterID) {
		return nil, apperrors.NewForbidden("only the team organizer can view join requests")
	}

	var requests []models.TeamJoinRequest
	if err := db.Preload("User").
		Where("team_id = ? AND status = ?", team.ID, models.JoinRequestPending).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("join request service: list pending: %w", err)
	}
	return requests, nil
}

func (s *JoinRequestService) pending(tx *gorm.DB, teamID, userID string) (*models.TeamJoinRequest, error) {
	query := tx.Where("team_id = ? AND status = ?", teamID, models.JoinRequestPending)
	if userID = strings.TrimSpace(userID); userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var request models.TeamJoinRequest
	err := query.Order("created_at ASC").First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("no pending join request found for this team")
	}
	if err != nil {
		return nil, fmt.Errorf("load join request: %w", err)
	}
	return &request, nil
}

// respond transitions a pending request. The status guard keeps a concurrent
// responder from overwriting a decision.
func (s *JoinRequestService) respond(tx *gorm.DB, request *models.TeamJoinRequest, status string) error {
	now := s.deps.Clock()
	result := tx.Model(&models.TeamJoinRequest{}).
		Where("id = ? AND status = ?", request.ID, models.JoinRequestPending).
		Updates(map[string]any{"status": status, "responded_at": now})
	if result.Error != nil {
		return fmt.Errorf("update join request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewConflict("join request was already answered")
	}
	request.Status = status
	request.RespondedAt = &now
	return nil
}
