package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
	"github.com/Goodness5/Vortexis-Backend/pkg/metrics"
)

// MembershipService removes members, handles voluntary departures and deletes teams.
type MembershipService struct {
	deps TeamDeps
	log  *zap.Logger
}

// NewMembershipService constructs a MembershipService.
func NewMembershipService(deps TeamDeps) (*MembershipService, error) {
	deps, err := deps.normalise("membership service")
	if err != nil {
		return nil, err
	}
	return &MembershipService{deps: deps, log: deps.logger("membership")}, nil
}

// RemoveMember removes the member with the given email. Only the organizer may
// remove members, the organizer cannot be removed, and the team may not drop
// below the hackathon's minimum size.
func (s *MembershipService) RemoveMember(ctx context.Context, teamID, requesterID, email string) (*models.Team, error) {
	ctx = ensureContext(ctx)
	email = normaliseEmail(email)
	if email == "" {
		return nil, apperrors.NewValidation("email is required")
	}

	var (
		team   *models.Team
		target *models.User
	)
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		team, err = lockTeam(tx, teamID)
		if err != nil {
			return err
		}
		if !team.IsOrganizer(requesterID) {
			return apperrors.NewForbidden("only the team organizer can remove members")
		}

		target, err = findUserByEmail(tx, email)
		if err != nil {
			return err
		}
		if target == nil || !team.HasMember(target.ID) {
			return apperrors.NewValidation("user is not a member of this team")
		}
		if team.IsOrganizer(target.ID) {
			return apperrors.NewValidation("cannot remove the team organizer")
		}

		if err := s.detach(ctx, tx, team, target.ID); err != nil {
			return err
		}
		team.Members, err = teamMembers(tx, team.ID)
		return err
	})
	metrics.TeamOperations.WithLabelValues("remove", metrics.Result(err)).Inc()
	if err != nil {
		return nil, wrapTx("membership service", err)
	}

	notify(ctx, s.deps.Notifier, NotificationRequest{
		UserID:   target.ID,
		Title:    fmt.Sprintf("Removed from %s", team.Name),
		Body:     fmt.Sprintf("You have been removed from the team %q.", team.Name),
		Category: CategoryTeam,
		Priority: PriorityNormal,
		Data:     map[string]any{"team_id": team.ID},
		Email:    true,
		InApp:    true,
	})
	recordAudit(s.deps.Audit, ctx, AuditEntry{
		UserID:     stringPtr(requesterID),
		Action:     "team.member_remove",
		Resource:   "team",
		ResourceID: team.ID,
		Metadata:   map[string]any{"user_id": target.ID},
	})
	return team, nil
}

// LeaveTeam removes userID from the team on their own request. The organizer
// cannot leave and the team may not drop below its minimum size.
func (s *MembershipService) LeaveTeam(ctx context.Context, teamID, userID string) error {
	ctx = ensureContext(ctx)

	var (
		team *models.Team
		user *models.User
	)
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		team, err = lockTeam(tx, teamID)
		if err != nil {
			return err
		}
		if !team.HasMember(userID) {
			return apperrors.NewValidation("you are not a member of this team")
		}
		if team.IsOrganizer(userID) {
			return apperrors.NewValidation("the team organizer cannot leave the team")
		}
		user, err = findUser(tx, userID)
		if err != nil {
			return err
		}
		return s.detach(ctx, tx, team, userID)
	})
	metrics.TeamOperations.WithLabelValues("leave", metrics.Result(err)).Inc()
	if err != nil {
		return wrapTx("membership service", err)
	}

	if team.OrganizerID != nil {
		notify(ctx, s.deps.Notifier, NotificationRequest{
			UserID:   *team.OrganizerID,
			Title:    fmt.Sprintf("%s left %s", displayName(user), team.Name),
			Body:     fmt.Sprintf("%s has left the team %q.", displayName(user), team.Name),
			Category: CategoryTeam,
			Priority: PriorityNormal,
			Data:     map[string]any{"team_id": team.ID, "user_id": userID},
			InApp:    true,
		})
	}
	recordAudit(s.deps.Audit, ctx, AuditEntry{
		UserID:     stringPtr(userID),
		Action:     "team.leave",
		Resource:   "team",
		ResourceID: team.ID,
	})
	return nil
}

// DeleteTeam deletes the team after resetting every member's participant
// record. Invitations and join requests go with it, and the team conversation
// is kept but unlinked.
func (s *MembershipService) DeleteTeam(ctx context.Context, teamID, requesterID string) error {
	ctx = ensureContext(ctx)

	var (
		team    *models.Team
		members []models.User
	)
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		team, err = lockTeam(tx, teamID)
		if err != nil {
			return err
		}
		if !team.IsOrganizer(requesterID) {
			return apperrors.NewForbidden("only the team organizer can delete the team")
		}
		members = team.Members

		participants := s.deps.Participants.WithTx(tx)
		for _, member := range members {
			if err := resetParticipant(ctx, participants, team.HackathonID, member.ID); err != nil {
				return err
			}
		}
		// Participants linked to the team without a roster row.
		if err := tx.Model(&models.Participant{}).
			Where("team_id = ?", team.ID).
			Updates(map[string]any{"team_id": nil, "looking_for_team": true}).Error; err != nil {
			return fmt.Errorf("reset participants: %w", err)
		}

		if err := tx.Exec("DELETE FROM team_members WHERE team_id = ?", team.ID).Error; err != nil {
			return fmt.Errorf("delete team members: %w", err)
		}
		if err := tx.Where("team_id = ?", team.ID).Delete(&models.TeamInvitation{}).Error; err != nil {
			return fmt.Errorf("delete invitations: %w", err)
		}
		if err := tx.Where("team_id = ?", team.ID).Delete(&models.TeamJoinRequest{}).Error; err != nil {
			return fmt.Errorf("delete join requests: %w", err)
		}
		if err := tx.Model(&models.Conversation{}).
			Where("team_id = ?", team.ID).
			Update("team_id", nil).Error; err != nil {
			return fmt.Errorf("unlink conversation: %w", err)
		}
		if err := tx.Delete(&models.Team{}, "id = ?", team.ID).Error; err != nil {
			return fmt.Errorf("delete team: %w", err)
		}
		return nil
	})
	metrics.TeamOperations.WithLabelValues("delete", metrics.Result(err)).Inc()
	if err != nil {
		return wrapTx("membership service", err)
	}

	for _, member := range members {
		if team.IsOrganizer(member.ID) {
			continue
		}
		notify(ctx, s.deps.Notifier, NotificationRequest{
			UserID:   member.ID,
			Title:    fmt.Sprintf("%s was deleted", team.Name),
			Body:     fmt.Sprintf("The team %q has been deleted by its organizer.", team.Name),
			Category: CategoryTeam,
			Priority: PriorityHigh,
			Data:     map[string]any{"hackathon_id": team.HackathonID},
			Email:    true,
			InApp:    true,
		})
	}
	recordAudit(s.deps.Audit, ctx, AuditEntry{
		UserID:     stringPtr(requesterID),
		Action:     "team.delete",
		Resource:   "team",
		ResourceID: team.ID,
		Metadata:   map[string]any{"name": team.Name, "members": len(members)},
	})
	return nil
}

// detach enforces the size floor and removes userID from the locked team.
func (s *MembershipService) detach(ctx context.Context, tx *gorm.DB, team *models.Team, userID string) error {
	minSize, _, err := s.deps.Hackathons.WithTx(tx).TeamBounds(ctx, team.HackathonID)
	if err != nil {
		return err
	}
	if len(team.Members)-1 < minSize {
		return apperrors.NewValidation(fmt.Sprintf("removing this member would fall below minimum size of %d", minSize))
	}
	if err := removeTeamMember(tx, team.ID, userID); err != nil {
		return err
	}
	return resetParticipant(ctx, s.deps.Participants.WithTx(tx), team.HackathonID, userID)
}
