package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
	"github.com/Goodness5/Vortexis-Backend/pkg/crypto"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
	"github.com/Goodness5/Vortexis-Backend/pkg/mail"
	"github.com/Goodness5/Vortexis-Backend/pkg/metrics"
)

const (
	defaultInvitationTTL        = 7 * 24 * time.Hour
	defaultInvitationTokenBytes = 32
)

// CreateTeamInput describes a new team and the emails invited to it.
type CreateTeamInput struct {
	Name         string   `json:"name" validate:"required,notblank,max=100"`
	Description  string   `json:"description"`
	HackathonID  string   `json:"hackathon_id" validate:"required"`
	MemberEmails []string `json:"member_emails"`
}

// IssuedInvitation pairs a stored invitation with its raw token, which is
// only available when the invitation is issued.
type IssuedInvitation struct {
	models.TeamInvitation
	Token string `json:"-"`
}

// TeamCreation is the result of CreateTeamWithInvitations.
type TeamCreation struct {
	Team        *models.Team       `json:"team"`
	Invitations []IssuedInvitation `json:"invitations"`
}

// invitationDelivery captures what is needed to notify an invitee after commit.
type invitationDelivery struct {
	invitation IssuedInvitation
	invitee    *models.User
}

// InvitationService creates teams with invitations and resolves invitation tokens.
type InvitationService struct {
	deps       TeamDeps
	ttl        time.Duration
	tokenBytes int
	log        *zap.Logger
}

// NewInvitationService constructs an InvitationService. A non-positive ttl
// selects the seven day default.
func NewInvitationService(deps TeamDeps, ttl time.Duration) (*InvitationService, error) {
	deps, err := deps.normalise("invitation service")
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = defaultInvitationTTL
	}
	return &InvitationService{
		deps:       deps,
		ttl:        ttl,
		tokenBytes: defaultInvitationTokenBytes,
		log:        deps.logger("invitations"),
	}, nil
}

// CreateTeamWithInvitations creates a team with creatorID as its organizer and
// sole member, then invites every listed email. Team size bounds are checked
// against the full invite list.
func (s *InvitationService) CreateTeamWithInvitations(ctx context.Context, creatorID string, input CreateTeamInput) (*TeamCreation, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidation("team name is required")
	}
	emails, duplicate := duplicateEmails(input.MemberEmails)
	if duplicate != "" {
		return nil, apperrors.NewValidation(fmt.Sprintf("duplicate email in invite list: %s", duplicate))
	}
	for _, email := range emails {
		if !mail.ValidAddress(email) {
			return nil, apperrors.NewValidation(fmt.Sprintf("invalid email address: %s", email))
		}
	}

	var (
		result     *TeamCreation
		deliveries []invitationDelivery
		hackathon  *models.Hackathon
		creator    *models.User
	)
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		participants := s.deps.Participants.WithTx(tx)
		hackathons := s.deps.Hackathons.WithTx(tx)

		var err error
		hackathon, err = hackathons.GetHackathon(ctx, input.HackathonID)
		if err != nil {
			return err
		}
		creator, err = findUser(tx, creatorID)
		if err != nil {
			return err
		}

		participant, err := participants.GetParticipant(ctx, hackathon.ID, creator.ID)
		if err != nil {
			return err
		}
		if participant == nil {
			return apperrors.NewForbidden("you must register for this hackathon before creating a team")
		}

		var organized int64
		if err := tx.Model(&models.Team{}).
			Where("hackathon_id = ? AND organizer_id = ?", hackathon.ID, creator.ID).
			Count(&organized).Error; err != nil {
			return fmt.Errorf("count organized teams: %w", err)
		}
		if organized > 0 {
			return apperrors.NewValidation("you already created a team for this hackathon")
		}
		inTeam, err := hasTeamInHackathon(tx, participant, hackathon.ID, creator.ID)
		if err != nil {
			return err
		}
		if inTeam {
			return apperrors.NewValidation("you already belong to a team in this hackathon")
		}

		var sameName int64
		if err := tx.Model(&models.Team{}).
			Where("hackathon_id = ? AND name = ?", hackathon.ID, name).
			Count(&sameName).Error; err != nil {
			return fmt.Errorf("check team name: %w", err)
		}
		if sameName > 0 {
			return apperrors.NewValidation("a team with this name already exists in this hackathon")
		}

		invitees := make([]*models.User, len(emails))
		for i, email := range emails {
			if email == normaliseEmail(creator.Email) {
				return apperrors.NewValidation("you cannot invite yourself")
			}
			invitee, err := findUserByEmail(tx, email)
			if err != nil {
				return err
			}
			invitees[i] = invitee
			if invitee == nil {
				continue
			}
			inviteeParticipant, err := participants.GetParticipant(ctx, hackathon.ID, invitee.ID)
			if err != nil {
				return err
			}
			if inviteeParticipant == nil {
				continue
			}
			taken, err := hasTeamInHackathon(tx, inviteeParticipant, hackathon.ID, invitee.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperrors.NewValidation(fmt.Sprintf("%s already belongs to a team in this hackathon", email))
			}
		}

		size := 1 + len(emails)
		if size < hackathon.MinTeamSize || size > hackathon.MaxTeamSize {
			return apperrors.NewValidation(fmt.Sprintf("team size must be between %d and %d members", hackathon.MinTeamSize, hackathon.MaxTeamSize))
		}

		team := &models.Team{
			Name:        name,
			Description: strings.TrimSpace(input.Description),
			HackathonID: hackathon.ID,
			OrganizerID: stringPtr(creator.ID),
		}
		if err := tx.Create(team).Error; err != nil {
			return conflictOr(fmt.Errorf("create team: %w", err), "a team with this name or organizer already exists in this hackathon")
		}
		if err := addTeamMember(tx, team.ID, creator.ID); err != nil {
			return err
		}
		if err := joinParticipant(ctx, participants, hackathon.ID, creator.ID, team.ID); err != nil {
			return err
		}

		result = &TeamCreation{Team: team}
		for i, email := range emails {
			issued, err := s.createInvitation(tx, team.ID, creator.ID, email)
			if err != nil {
				return err
			}
			result.Invitations = append(result.Invitations, *issued)
			deliveries = append(deliveries, invitationDelivery{invitation: *issued, invitee: invitees[i]})
		}

		team.Members, err = teamMembers(tx, team.ID)
		return err
	})
	metrics.TeamOperations.WithLabelValues("create", metrics.Result(err)).Inc()
	if err != nil {
		return nil, wrapTx("invitation service", err)
	}

	metrics.TokensIssued.WithLabelValues("invitation").Add(float64(len(result.Invitations)))
	for _, delivery := range deliveries {
		s.deliver(ctx, delivery, result.Team, hackathon, creator)
	}

	recordAudit(s.deps.Audit, ctx, AuditEntry{
		UserID:     &creator.ID,
		Action:     "team.create",
		Resource:   "team",
		ResourceID: result.Team.ID,
		Metadata:   map[string]any{"name": result.Team.Name, "invited": len(result.Invitations)},
	})
	return result, nil
}

// AddMember invites email to the team. Only the organizer may invite. An
// earlier expired or accepted invitation for the same email is reused with a
// fresh token.
func (s *InvitationService) AddMember(ctx context.Context, teamID, requesterID, email string) (*IssuedInvitation, error) {
	ctx = ensureContext(ctx)

	email = normaliseEmail(email)
	if !mail.ValidAddress(email) {
		return nil, apperrors.NewValidation("a valid email address is required")
	}

	var (
		issued    *IssuedInvitation
		invitee   *models.User
		team      *models.Team
		hackathon *models.Hackathon
		inviter   *models.User
	)
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		team, err = lockTeam(tx, teamID)
		if err != nil {
			return err
		}
		if !team.IsOrganizer(requesterID) {
			return apperrors.NewForbidden("only the team organizer can add members")
		}
		hackathon, err = s.deps.Hackathons.WithTx(tx).GetHackathon(ctx, team.HackathonID)
		if err != nil {
			return err
		}
		inviter, err = findUser(tx, requesterID)
		if err != nil {
			return err
		}

		now := s.deps.Clock()
		var existing models.TeamInvitation
		err = tx.Where("team_id = ? AND email = ?", team.ID, email).First(&existing).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load invitation: %w", err)
		}
		if found && existing.IsPending(now) {
			return apperrors.NewValidation("an invitation has already been sent to this email")
		}

		invitee, err = findUserByEmail(tx, email)
		if err != nil {
			return err
		}
		if invitee != nil {
			if team.HasMember(invitee.ID) {
				return apperrors.NewValidation("user is already a member of this team")
			}
			participant, err := s.deps.Participants.WithTx(tx).GetParticipant(ctx, team.HackathonID, invitee.ID)
			if err != nil {
				return err
			}
			taken, err := hasTeamInHackathon(tx, participant, team.HackathonID, invitee.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperrors.NewValidation("user is already part of a team for this hackathon")
			}
		}

		pending, err := pendingInvitationCount(tx, team.ID, now)
		if err != nil {
			return err
		}
		if int64(len(team.Members))+pending >= int64(hackathon.MaxTeamSize) {
			return apperrors.NewValidation("team has reached maximum size including pending invitations")
		}

		if found {
			issued, err = s.rotateInvitation(tx, &existing, requesterID)
		} else {
			issued, err = s.createInvitation(tx, team.ID, requesterID, email)
		}
		return err
	})
	metrics.TeamOperations.WithLabelValues("invite", metrics.Result(err)).Inc()
	if err != nil {
		return nil, wrapTx("invitation service", err)
	}

	metrics.TokensIssued.WithLabelValues("invitation").Inc()
	s.deliver(ctx, invitationDelivery{invitation: *issued, invitee: invitee}, team, hackathon, inviter)

	recordAudit(s.deps.Audit, ctx, AuditEntry{
		UserID:     stringPtr(requesterID),
		Action:     "team.invite",
		Resource:   "team",
		ResourceID: team.ID,
		Metadata:   map[string]any{"email": email},
	})
	return issued, nil
}

// AcceptInvitation redeems token for userID, whose email must match the
// invitation, and adds them to the team.
func (s *InvitationService) AcceptInvitation(ctx context.Context, token, userID string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.ErrTokenNotFound
	}
	hash := crypto.HashToken(token)

	var (
		team *models.Team
		user *models.User
	)
	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tokenClaim{
			model:          &models.TeamInvitation{},
			consumedColumn: "accepted_at",
			scope: func(db *gorm.DB) *gorm.DB {
				return db.Where("token_hash = ?", hash)
			},
		}
		if err := claim.claim(tx, s.deps.Clock()); err != nil {
			return err
		}

		var invitation models.TeamInvitation
		if err := tx.First(&invitation, "token_hash = ?", hash).Error; err != nil {
			return fmt.Errorf("load invitation: %w", err)
		}

		var err error
		user, err = findUser(tx, userID)
		if err != nil {
			return err
		}
		if normaliseEmail(user.Email) != invitation.Email {
			return apperrors.NewForbidden("this invitation was sent to a different email address")
		}

		team, err = lockTeam(tx, invitation.TeamID)
		if err != nil {
			return err
		}
		if team.HasMember(user.ID) {
			return apperrors.NewValidation("you are already a member of this team")
		}
		_, maxSize, err := s.deps.Hackathons.WithTx(tx).TeamBounds(ctx, team.HackathonID)
		if err != nil {
			return err
		}
		if len(team.Members) >= maxSize {
			return apperrors.NewValidation("team has reached maximum size")
		}

		participants := s.deps.Participants.WithTx(tx)
		participant, err := participants.GetParticipant(ctx, team.HackathonID, user.ID)
		if err != nil {
			return err
		}
		taken, err := hasTeamInHackathon(tx, participant, team.HackathonID, user.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.NewValidation("you already belong to a team in this hackathon")
		}

		if err := addTeamMember(tx, team.ID, user.ID); err != nil {
			return err
		}
		if err := joinParticipant(ctx, participants, team.HackathonID, user.ID, team.ID); err != nil {
			return err
		}

		team.Members, err = teamMembers(tx, team.ID)
		return err
	})
	metrics.TokenRedemptions.WithLabelValues("invitation", redemptionResult(err)).Inc()
	metrics.TeamOperations.WithLabelValues("accept", metrics.Result(err)).Inc()
	if err != nil {
		return nil, wrapTx("invitation service", err)
	}

	if team.OrganizerID != nil {
		notify(ctx, s.deps.Notifier, NotificationRequest{
			UserID:   *team.OrganizerID,
			Title:    fmt.Sprintf("%s joined %s", displayName(user), team.Name),
			Body:     fmt.Sprintf("%s accepted your invitation to join %s.", displayName(user), team.Name),
			Category: CategoryTeam,
			Priority: PriorityNormal,
			Data:     map[string]any{"team_id": team.ID, "user_id": user.ID},
			InApp:    true,
		})
	}

	recordAudit(s.deps.Audit, ctx, AuditEntry{
		UserID:     &user.ID,
		Action:     "team.invitation_accept",
		Resource:   "team",
		ResourceID: team.ID,
	})
	return team, nil
}

// PendingForUser lists unaccepted, unexpired invitations addressed to userID's email.
func (s *InvitationService) PendingForUser(ctx context.Context, userID string) ([]models.TeamInvitation, error) {
	ctx = ensureContext(ctx)
	db := s.deps.DB.WithContext(ctx)

	user, err := findUser(db, userID)
	if err != nil {
		return nil, err
	}

	var invitations []models.TeamInvitation
	if err := db.
		Preload("Team").
		Preload("InvitedBy").
		Where("email = ? AND accepted_at IS NULL AND expires_at > ?", normaliseEmail(user.Email), s.deps.Clock()).
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, fmt.Errorf("invitation service: list pending: %w", err)
	}
	return invitations, nil
}

func (s *InvitationService) createInvitation(tx *gorm.DB, teamID, inviterID, email string) (*IssuedInvitation, error) {
	token, err := crypto.GenerateToken(s.tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}

	invitation := models.TeamInvitation{
		TeamID:      teamID,
		Email:       email,
		InvitedByID: stringPtr(inviterID),
		TokenHash:   crypto.HashToken(token),
		ExpiresAt:   s.deps.Clock().Add(s.ttl),
	}
	if err := tx.Create(&invitation).Error; err != nil {
		return nil, conflictOr(fmt.Errorf("create invitation: %w", err), "an invitation already exists for this email")
	}
	return &IssuedInvitation{TeamInvitation: invitation, Token: token}, nil
}

func (s *InvitationService) rotateInvitation(tx *gorm.DB, invitation *models.TeamInvitation, inviterID string) (*IssuedInvitation, error) {
	token, err := crypto.GenerateToken(s.tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}

	now := s.deps.Clock()
	updates := map[string]any{
		"token_hash":    crypto.HashToken(token),
		"invited_by_id": inviterID,
		"created_at":    now,
		"expires_at":    now.Add(s.ttl),
		"accepted_at":   nil,
	}
	if err := tx.Model(invitation).Updates(updates).Error; err != nil {
		return nil, conflictOr(fmt.Errorf("rotate invitation: %w", err), "an invitation already exists for this email")
	}

	invitation.TokenHash = updates["token_hash"].(string)
	invitation.InvitedByID = stringPtr(inviterID)
	invitation.CreatedAt = now
	invitation.ExpiresAt = now.Add(s.ttl)
	invitation.AcceptedAt = nil
	return &IssuedInvitation{TeamInvitation: *invitation, Token: token}, nil
}

// deliver notifies account holders in-app and by email, and mails a signup
// link to everyone else. Failures never reach the caller.
func (s *InvitationService) deliver(ctx context.Context, delivery invitationDelivery, team *models.Team, hackathon *models.Hackathon, inviter *models.User) {
	invitation := delivery.invitation
	organizer := displayName(inviter)
	expires := invitation.ExpiresAt.Format(time.RFC1123)

	if delivery.invitee != nil {
		acceptURL := s.deps.link("/team-invitation/%s", invitation.Token)
		notify(ctx, s.deps.Notifier, NotificationRequest{
			UserID: delivery.invitee.ID,
			Title:  fmt.Sprintf("Team Invitation: Join %s for %s", team.Name, hackathon.Title),
			Body: fmt.Sprintf("%s has invited you to join the team %q for the hackathon %q.\n\nThis invitation expires on %s.",
				organizer, team.Name, hackathon.Title, expires),
			Category:   CategoryTeam,
			Priority:   PriorityNormal,
			ActionURL:  acceptURL,
			ActionText: "Accept Invitation",
			Data: map[string]any{
				"team_id":          team.ID,
				"hackathon_id":     hackathon.ID,
				"invitation_token": invitation.Token,
				"team_name":        team.Name,
				"hackathon_title":  hackathon.Title,
				"organizer_name":   organizer,
			},
			Email: true,
			InApp: true,
		})
		return
	}

	subject := fmt.Sprintf("Join %s for %s - Create Account", team.Name, hackathon.Title)
	body := fmt.Sprintf(`Hi there!

%s has invited you to join the team %q for the hackathon %q.

To accept this invitation:
1. Create an account: %s
2. Register for the hackathon
3. Accept the team invitation

This invitation expires on %s.

The Vortexis Team
`, organizer, team.Name, hackathon.Title, s.deps.link("/signup?invitation=%s", invitation.Token), expires)
	sendDirect(ctx, s.deps.Mailer, s.log, invitation.Email, subject, body)
}
