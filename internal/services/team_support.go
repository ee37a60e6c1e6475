package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
	"github.com/Goodness5/Vortexis-Backend/pkg/logger"
)

// TeamDeps bundles the collaborators shared by the team workflows.
type TeamDeps struct {
	DB           *gorm.DB
	Participants ParticipantDirectory
	Hackathons   HackathonDirectory
	Notifier     NotificationSender
	Mailer       DirectMailer
	Audit        *AuditService
	FrontendURL  string
	Clock        func() time.Time
}

func (d TeamDeps) normalise(component string) (TeamDeps, error) {
	if d.DB == nil {
		return d, fmt.Errorf("%s: db is required", component)
	}
	if d.Participants == nil {
		d.Participants = NewParticipantDirectory(d.DB)
	}
	if d.Hackathons == nil {
		d.Hackathons = NewHackathonDirectory(d.DB)
	}
	if d.Clock == nil {
		d.Clock = utcClock
	}
	d.FrontendURL = strings.TrimRight(strings.TrimSpace(d.FrontendURL), "/")
	return d, nil
}

func (d TeamDeps) logger(module string) *zap.Logger {
	return logger.WithModule(module)
}

func (d TeamDeps) link(format string, args ...any) string {
	return d.FrontendURL + fmt.Sprintf(format, args...)
}

// lockTeam loads a team under a row lock together with its members. SQLite
// has no row locks and relies on its single writer instead.
func lockTeam(tx *gorm.DB, teamID string) (*models.Team, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return nil, apperrors.NewValidation("team id is required")
	}

	var team models.Team
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&team, "id = ?", teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("team not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load team: %w", err)
	}

	members, err := teamMembers(tx, team.ID)
	if err != nil {
		return nil, err
	}
	team.Members = members
	return &team, nil
}

func loadTeam(db *gorm.DB, teamID string) (*models.Team, error) {
	var team models.Team
	err := db.Preload("Organizer").First(&team, "id = ?", strings.TrimSpace(teamID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("team not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load team: %w", err)
	}

	members, err := teamMembers(db, team.ID)
	if err != nil {
		return nil, err
	}
	team.Members = members
	return &team, nil
}

func teamMembers(db *gorm.DB, teamID string) ([]models.User, error) {
	var members []models.User
	if err := db.
		Joins("JOIN team_members ON team_members.user_id = users.id").
		Where("team_members.team_id = ?", teamID).
		Order("users.username").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("load team members: %w", err)
	}
	return members, nil
}

func addTeamMember(tx *gorm.DB, teamID, userID string) error {
	if err := tx.Exec("INSERT INTO team_members (team_id, user_id) VALUES (?, ?)", teamID, userID).Error; err != nil {
		return conflictOr(fmt.Errorf("add team member: %w", err), "user is already a member of this team")
	}
	return nil
}

func removeTeamMember(tx *gorm.DB, teamID, userID string) error {
	if err := tx.Exec("DELETE FROM team_members WHERE team_id = ? AND user_id = ?", teamID, userID).Error; err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}
	return nil
}

// teamOfUser returns the id of the team userID belongs to in hackathonID, or "".
func teamOfUser(tx *gorm.DB, hackathonID, userID string) (string, error) {
	var ids []string
	if err := tx.Table("team_members").
		Joins("JOIN teams ON teams.id = team_members.team_id").
		Where("teams.hackathon_id = ? AND team_members.user_id = ?", hackathonID, userID).
		Limit(1).
		Pluck("team_members.team_id", &ids).Error; err != nil {
		return "", fmt.Errorf("find user team: %w", err)
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}

// hasTeamInHackathon reports membership through either the roster or the
// participant record.
func hasTeamInHackathon(tx *gorm.DB, participant *models.Participant, hackathonID, userID string) (bool, error) {
	if participant != nil && participant.TeamID != nil {
		return true, nil
	}
	teamID, err := teamOfUser(tx, hackathonID, userID)
	if err != nil {
		return false, err
	}
	return teamID != "", nil
}

func pendingInvitationCount(tx *gorm.DB, teamID string, now time.Time) (int64, error) {
	var count int64
	if err := tx.Model(&models.TeamInvitation{}).
		Where("team_id = ? AND accepted_at IS NULL AND expires_at > ?", teamID, now).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count pending invitations: %w", err)
	}
	return count, nil
}

func findUserByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "email = ?", normaliseEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user by email: %w", err)
	}
	return &user, nil
}

func findUser(db *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "id = ?", strings.TrimSpace(userID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// resetParticipant detaches a user from their team within the hackathon.
func resetParticipant(ctx context.Context, dir ParticipantDirectory, hackathonID, userID string) error {
	participant, err := dir.GetParticipant(ctx, hackathonID, userID)
	if err != nil || participant == nil {
		return err
	}
	if err := dir.SetTeam(ctx, participant, nil); err != nil {
		return err
	}
	return dir.SetLookingForTeam(ctx, participant, true)
}

// joinParticipant attaches a user to teamID within the hackathon, if registered.
func joinParticipant(ctx context.Context, dir ParticipantDirectory, hackathonID, userID, teamID string) error {
	participant, err := dir.GetParticipant(ctx, hackathonID, userID)
	if err != nil || participant == nil {
		return err
	}
	if err := dir.SetTeam(ctx, participant, stringPtr(teamID)); err != nil {
		return err
	}
	return dir.SetLookingForTeam(ctx, participant, false)
}

// wrapTx keeps domain errors intact and annotates storage failures.
func wrapTx(component string, err error) error {
	if err == nil || passThrough(err) {
		return err
	}
	return fmt.Errorf("%s: %w", component, err)
}
