package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/auth/social"
	"github.com/Goodness5/Vortexis-Backend/internal/models"
	"github.com/Goodness5/Vortexis-Backend/pkg/crypto"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
	"github.com/Goodness5/Vortexis-Backend/pkg/metrics"
)

var usernameStrip = regexp.MustCompile(`[^a-z0-9_.-]+`)

// SocialAuthService signs users in through third-party identity providers.
type SocialAuthService struct {
	db        *gorm.DB
	accounts  *AccountService
	resolvers map[string]social.Resolver
	password  string
	audit     *AuditService
}

// NewSocialAuthService constructs a SocialAuthService. socialPassword seeds the
// password of accounts created here; a random one is generated when empty.
func NewSocialAuthService(db *gorm.DB, accounts *AccountService, socialPassword string, audit *AuditService) (*SocialAuthService, error) {
	if db == nil {
		return nil, errors.New("social auth service: db is required")
	}
	if accounts == nil {
		return nil, errors.New("social auth service: account service is required")
	}
	if strings.TrimSpace(socialPassword) == "" {
		generated, err := crypto.GenerateToken(crypto.MinTokenBytes)
		if err != nil {
			return nil, fmt.Errorf("social auth service: generate password: %w", err)
		}
		socialPassword = generated
	}
	return &SocialAuthService{
		db:        db,
		accounts:  accounts,
		resolvers: make(map[string]social.Resolver),
		password:  socialPassword,
		audit:     audit,
	}, nil
}

// RegisterProvider enables sign-in through resolver under name.
func (s *SocialAuthService) RegisterProvider(name string, resolver social.Resolver) {
	if resolver == nil {
		return
	}
	s.resolvers[strings.ToLower(strings.TrimSpace(name))] = resolver
}

// Authenticate resolves credential with the named provider, then links or
// creates the matching account and returns a session.
func (s *SocialAuthService) Authenticate(ctx context.Context, provider, credential string) (*LoginResult, error) {
	ctx = ensureContext(ctx)
	provider = strings.ToLower(strings.TrimSpace(provider))

	resolver, ok := s.resolvers[provider]
	if !ok {
		return nil, apperrors.NewValidation(fmt.Sprintf("sign-in with %s is not enabled", provider))
	}

	identity, err := resolver.Resolve(ctx, credential)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(provider, "failure").Inc()
		if errors.Is(err, social.ErrInvalidCredential) {
			return nil, apperrors.ErrUnauthorized.WithMessage("social credential was rejected").WithInternal(err)
		}
		return nil, fmt.Errorf("social auth service: resolve identity: %w", err)
	}

	user, created, err := s.findOrCreate(ctx, identity)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(provider, "failure").Inc()
		return nil, err
	}
	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues(provider, "failure").Inc()
		return nil, apperrors.NewForbidden("account is disabled")
	}

	result, err := s.accounts.issueSession(ctx, user)
	metrics.AuthAttempts.WithLabelValues(provider, metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	action := "account.social_login"
	if created {
		action = "account.social_register"
	}
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:     &user.ID,
		Action:     action,
		Resource:   "user",
		ResourceID: user.ID,
		Metadata:   map[string]any{"provider": provider},
	})
	return result, nil
}

func (s *SocialAuthService) findOrCreate(ctx context.Context, identity *social.Identity) (*models.User, bool, error) {
	email := normaliseEmail(identity.Email)
	if email == "" {
		return nil, false, apperrors.NewValidation("provider did not supply an email address")
	}

	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").First(&user, "email = ?", email).Error
	if err == nil {
		// A provider-confirmed email verifies an existing account.
		if !user.IsVerified {
			if err := s.db.WithContext(ctx).Model(&models.User{}).
				Where("id = ?", user.ID).
				Update("is_verified", true).Error; err != nil {
				return nil, false, fmt.Errorf("social auth service: verify user: %w", err)
			}
			user.IsVerified = true
		}
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("social auth service: load user: %w", err)
	}

	hash, err := crypto.HashPassword(s.password)
	if err != nil {
		return nil, false, fmt.Errorf("social auth service: hash password: %w", err)
	}

	username, err := s.uniqueUsername(ctx, identity)
	if err != nil {
		return nil, false, err
	}

	created := &models.User{
		Username:      username,
		Email:         email,
		Password:      hash,
		FirstName:     truncate(identity.FirstName, 50),
		LastName:      truncate(identity.LastName, 50),
		AuthProvider:  identity.Provider,
		IsParticipant: true,
		IsActive:      true,
		IsVerified:    true,
	}
	if err := s.db.WithContext(ctx).Create(created).Error; err != nil {
		return nil, false, conflictOr(fmt.Errorf("social auth service: create user: %w", err), "account already exists")
	}
	return created, true, nil
}

// uniqueUsername derives a username from the identity and appends _1, _2 ...
// until it is free.
func (s *SocialAuthService) uniqueUsername(ctx context.Context, identity *social.Identity) (string, error) {
	base := strings.ToLower(strings.TrimSpace(identity.FirstName + identity.LastName))
	if base == "" {
		base = strings.ToLower(strings.SplitN(identity.Email, "@", 2)[0])
	}
	base = usernameStrip.ReplaceAllString(base, "")
	if len(base) < 3 {
		base = base + "user"
	}
	base = truncate(base, 40)

	candidate := base
	for i := 1; i < 1000; i++ {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return "", fmt.Errorf("social auth service: check username: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
	return "", apperrors.NewConflict("could not derive a free username")
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
