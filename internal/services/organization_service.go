package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
	"github.com/Goodness5/Vortexis-Backend/pkg/crypto"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
	"github.com/Goodness5/Vortexis-Backend/pkg/metrics"
	"github.com/Goodness5/Vortexis-Backend/pkg/validator"
)

// CreateOrganizationInput describes a new organization.
type CreateOrganizationInput struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description"`
	Website     string `json:"website" validate:"omitempty,url,max=200"`
}

// IssuedModeratorInvitation pairs a moderator invitation with its raw token.
type IssuedModeratorInvitation struct {
	models.ModeratorInvitation
	Token string `json:"-"`
}

// OrganizationService manages organizations and their moderator seats.
type OrganizationService struct {
	db       *gorm.DB
	notifier NotificationSender
	audit    *AuditService
	frontend string
	ttl      time.Duration
	now      func() time.Time
}

// OrganizationOption configures an OrganizationService.
type OrganizationOption func(*OrganizationService)

// WithOrganizationClock overrides the clock used for invitation expiry.
func WithOrganizationClock(clock func() time.Time) OrganizationOption {
	return func(s *OrganizationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithOrganizationNotifier sets the sender used for moderator invitations.
func WithOrganizationNotifier(sender NotificationSender) OrganizationOption {
	return func(s *OrganizationService) {
		s.notifier = sender
	}
}

// WithOrganizationAudit records organization transitions.
func WithOrganizationAudit(audit *AuditService) OrganizationOption {
	return func(s *OrganizationService) {
		s.audit = audit
	}
}

// NewOrganizationService constructs an OrganizationService. ttl bounds moderator
// invitations and defaults to seven days.
func NewOrganizationService(db *gorm.DB, frontendURL string, ttl time.Duration, opts ...OrganizationOption) (*OrganizationService, error) {
	if db == nil {
		return nil, errors.New("organization service: db is required")
	}
	if ttl <= 0 {
		ttl = defaultInvitationTTL
	}
	svc := &OrganizationService{
		db:       db,
		frontend: strings.TrimRight(strings.TrimSpace(frontendURL), "/"),
		ttl:      ttl,
		now:      utcClock,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create stores a new organization owned by organizerID and grants them the
// organizer role.
func (s *OrganizationService) Create(ctx context.Context, organizerID string, input CreateOrganizationInput) (*models.Organization, error) {
	ctx = ensureContext(ctx)
	input.Name = strings.TrimSpace(input.Name)
	input.Website = strings.TrimSpace(input.Website)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	organization := &models.Organization{
		Name:        input.Name,
		Description: strings.TrimSpace(input.Description),
		Website:     input.Website,
		OrganizerID: organizerID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findUser(tx, organizerID); err != nil {
			return err
		}
		if err := tx.Create(organization).Error; err != nil {
			return conflictOr(fmt.Errorf("create organization: %w", err), "an organization with this name already exists")
		}
		if err := tx.Model(&models.User{}).Where("id = ?", organizerID).Update("is_organizer", true).Error; err != nil {
			return fmt.Errorf("grant organizer role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTx("organization service", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:     stringPtr(organizerID),
		Action:     "organization.create",
		Resource:   "organization",
		ResourceID: organization.ID,
		Metadata:   map[string]any{"name": organization.Name},
	})
	return s.Get(ctx, organization.ID)
}

// Get returns the organization with its organizer and moderators.
func (s *OrganizationService) Get(ctx context.Context, organizationID string) (*models.Organization, error) {
	var organization models.Organization
	err := s.db.WithContext(ensureContext(ctx)).
		Preload("Organizer").
		Preload("Moderators").
		First(&organization, "id = ?", strings.TrimSpace(organizationID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("organization not found")
	}
	if err != nil {
		return nil, fmt.Errorf("organization service: load organization: %w", err)
	}
	return &organization, nil
}

// List returns every organization ordered by name.
func (s *OrganizationService) List(ctx context.Context) ([]models.Organization, error) {
	var organizations []models.Organization
	if err := s.db.WithContext(ensureContext(ctx)).
		Preload("Organizer").
		Order("name ASC").
		Find(&organizations).Error; err != nil {
		return nil, fmt.Errorf("organization service: list organizations: %w", err)
	}
	return organizations, nil
}

// InviteModerator offers a moderator seat to the account registered under
// email. Only the organization organizer may invite. An answered or expired
// invitation for the same user is reissued with a fresh token.
func (s *OrganizationService) InviteModerator(ctx context.Context, organizationID, inviterID, email string) (*IssuedModeratorInvitation, error) {
	ctx = ensureContext(ctx)
	email = normaliseEmail(email)
	if email == "" {
		return nil, apperrors.NewValidation("email is required")
	}

	var (
		issued       *IssuedModeratorInvitation
		organization *models.Organization
		invitee      *models.User
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		organization, err = s.organization(tx, organizationID)
		if err != nil {
			return err
		}
		if organization.OrganizerID != inviterID {
			return apperrors.NewForbidden("only the organization organizer can invite moderators")
		}
		invitee, err = findUserByEmail(tx, email)
		if err != nil {
			return err
		}
		if invitee == nil {
			return apperrors.NewNotFound("no account is registered with this email")
		}
		if invitee.ID == organization.OrganizerID {
			return apperrors.NewValidation("the organizer cannot be invited as a moderator")
		}
		isModerator, err := s.isModerator(tx, organization.ID, invitee.ID)
		if err != nil {
			return err
		}
		if isModerator {
			return apperrors.NewValidation("user is already a moderator of this organization")
		}

		token, err := crypto.GenerateToken(defaultInvitationTokenBytes)
		if err != nil {
			return fmt.Errorf("generate invitation token: %w", err)
		}
		now := s.now()

		var existing models.ModeratorInvitation
		err = tx.Where("organization_id = ? AND invitee_id = ?", organization.ID, invitee.ID).First(&existing).Error
		switch {
		case err == nil:
			if existing.RespondedAt == nil && now.Before(existing.ExpiresAt) {
				return apperrors.NewValidation("an invitation has already been sent to this user")
			}
			if err := tx.Model(&existing).Updates(map[string]any{
				"token_hash":    crypto.HashToken(token),
				"invited_by_id": inviterID,
				"status":        models.ModeratorInvitationPending,
				"created_at":    now,
				"expires_at":    now.Add(s.ttl),
				"responded_at":  nil,
			}).Error; err != nil {
				return conflictOr(fmt.Errorf("reissue moderator invitation: %w", err), "an invitation already exists for this user")
			}
			existing.TokenHash = crypto.HashToken(token)
			existing.InvitedByID = stringPtr(inviterID)
			existing.Status = models.ModeratorInvitationPending
			existing.CreatedAt = now
			existing.ExpiresAt = now.Add(s.ttl)
			existing.RespondedAt = nil
			issued = &IssuedModeratorInvitation{ModeratorInvitation: existing, Token: token}
		case errors.Is(err, gorm.ErrRecordNotFound):
			invitation := models.ModeratorInvitation{
				OrganizationID: organization.ID,
				InviteeID:      invitee.ID,
				InvitedByID:    stringPtr(inviterID),
				TokenHash:      crypto.HashToken(token),
				Status:         models.ModeratorInvitationPending,
				ExpiresAt:      now.Add(s.ttl),
			}
			if err := tx.Create(&invitation).Error; err != nil {
				return conflictOr(fmt.Errorf("create moderator invitation: %w", err), "an invitation already exists for this user")
			}
			issued = &IssuedModeratorInvitation{ModeratorInvitation: invitation, Token: token}
		default:
			return fmt.Errorf("load moderator invitation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTx("organization service", err)
	}
	metrics.TokensIssued.WithLabelValues("moderator_invitation").Inc()

	notify(ctx, s.notifier, NotificationRequest{
		UserID:     invitee.ID,
		Title:      fmt.Sprintf("Moderator invitation from %s", organization.Name),
		Body:       fmt.Sprintf("You have been invited to moderate %q. This invitation expires on %s.", organization.Name, issued.ExpiresAt.Format(time.RFC1123)),
		Category:   CategoryOrganization,
		Priority:   PriorityNormal,
		ActionURL:  s.frontend + "/moderator-invitation/" + issued.Token,
		ActionText: "Respond to Invitation",
		Data: map[string]any{
			"organization_id":  organization.ID,
			"invitation_token": issued.Token,
		},
		Email: true,
		InApp: true,
	})
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:     stringPtr(inviterID),
		Action:     "organization.moderator_invite",
		Resource:   "organization",
		ResourceID: organization.ID,
		Metadata:   map[string]any{"invitee_id": invitee.ID},
	})
	return issued, nil
}

// AcceptModeratorInvitation redeems token for userID and grants the moderator seat.
func (s *OrganizationService) AcceptModeratorInvitation(ctx context.Context, token, userID string) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	var invitation *models.ModeratorInvitation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invitation, err = s.respond(tx, token, userID, models.ModeratorInvitationAccepted)
		if err != nil {
			return err
		}
		if err := tx.Exec("INSERT INTO organization_moderators (organization_id, user_id) VALUES (?, ?)",
			invitation.OrganizationID, userID).Error; err != nil {
			return conflictOr(fmt.Errorf("add moderator: %w", err), "user is already a moderator of this organization")
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("is_moderator", true).Error; err != nil {
			return fmt.Errorf("grant moderator role: %w", err)
		}
		return nil
	})
	metrics.TokenRedemptions.WithLabelValues("moderator_invitation", redemptionResult(err)).Inc()
	if err != nil {
		return nil, wrapTx("organization service", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:     stringPtr(userID),
		Action:     "organization.moderator_accept",
		Resource:   "organization",
		ResourceID: invitation.OrganizationID,
	})
	return s.Get(ctx, invitation.OrganizationID)
}

// DeclineModeratorInvitation redeems token for userID without granting anything.
func (s *OrganizationService) DeclineModeratorInvitation(ctx context.Context, token, userID string) error {
	ctx = ensureContext(ctx)

	var invitation *models.ModeratorInvitation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invitation, err = s.respond(tx, token, userID, models.ModeratorInvitationDeclined)
		return err
	})
	metrics.TokenRedemptions.WithLabelValues("moderator_invitation", redemptionResult(err)).Inc()
	if err != nil {
		return wrapTx("organization service", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:     stringPtr(userID),
		Action:     "organization.moderator_decline",
		Resource:   "organization",
		ResourceID: invitation.OrganizationID,
	})
	return nil
}

// RemoveModerator revokes userID's moderator seat. Only the organizer may remove.
func (s *OrganizationService) RemoveModerator(ctx context.Context, organizationID, requesterID, userID string) (*models.Organization, error) {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		organization, err := s.organization(tx, organizationID)
		if err != nil {
			return err
		}
		if organization.OrganizerID != requesterID {
			return apperrors.NewForbidden("only the organization organizer can remove moderators")
		}
		result := tx.Exec("DELETE FROM organization_moderators WHERE organization_id = ? AND user_id = ?", organization.ID, userID)
		if result.Error != nil {
			return fmt.Errorf("remove moderator: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.NewValidation("user is not a moderator of this organization")
		}
		return nil
	})
	if err != nil {
		return nil, wrapTx("organization service", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:     stringPtr(requesterID),
		Action:     "organization.moderator_remove",
		Resource:   "organization",
		ResourceID: organizationID,
		Metadata:   map[string]any{"user_id": userID},
	})
	return s.Get(ctx, organizationID)
}

// respond claims the invitation token and checks it belongs to userID. A
// mismatch rolls the claim back with the surrounding transaction.
func (s *OrganizationService) respond(tx *gorm.DB, token, userID, status string) (*models.ModeratorInvitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.ErrTokenNotFound
	}
	hash := crypto.HashToken(token)

	claim := tokenClaim{
		model:          &models.ModeratorInvitation{},
		consumedColumn: "responded_at",
		scope: func(db *gorm.DB) *gorm.DB {
			return db.Where("token_hash = ?", hash)
		},
		updates: map[string]any{"status": status},
	}
	if err := claim.claim(tx, s.now()); err != nil {
		return nil, err
	}

	var invitation models.ModeratorInvitation
	if err := tx.First(&invitation, "token_hash = ?", hash).Error; err != nil {
		return nil, fmt.Errorf("load moderator invitation: %w", err)
	}
	if invitation.InviteeID != userID {
		return nil, apperrors.NewForbidden("this invitation was sent to a different user")
	}
	return &invitation, nil
}

func (s *OrganizationService) organization(tx *gorm.DB, organizationID string) (*models.Organization, error) {
	var organization models.Organization
	err := tx.First(&organization, "id = ?", strings.TrimSpace(organizationID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("organization not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	return &organization, nil
}

func (s *OrganizationService) isModerator(tx *gorm.DB, organizationID, userID string) (bool, error) {
	var count int64
	if err := tx.Table("organization_moderators").
		Where("organization_id = ? AND user_id = ?", organizationID, userID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check moderator: %w", err)
	}
	return count > 0, nil
}
