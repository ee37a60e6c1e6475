package api

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/app"
	iauth "github.com/Goodness5/Vortexis-Backend/internal/auth"
	"github.com/Goodness5/Vortexis-Backend/internal/auth/social"
	"github.com/Goodness5/Vortexis-Backend/internal/cache"
	"github.com/Goodness5/Vortexis-Backend/internal/services"
	"github.com/Goodness5/Vortexis-Backend/pkg/mail"
)

// Dependencies carries the infrastructure the services are built on.
type Dependencies struct {
	DB     *gorm.DB
	Config *app.Config
	JWT    *iauth.JWTService
	Cache  cache.Store
	// Mailer may be nil when SMTP is disabled.
	Mailer mail.Mailer
	// Social maps provider names to credential resolvers.
	Social map[string]social.Resolver
	Clock  func() time.Time
}

// Services is the set of domain services behind the HTTP surface.
type Services struct {
	Tokens        *services.TokenService
	Accounts      *services.AccountService
	Social        *services.SocialAuthService
	Audit         *services.AuditService
	Notifications *services.NotificationService
	Organizations *services.OrganizationService
	Hackathons    *services.HackathonService
	Teams         *services.TeamService
	Invitations   *services.InvitationService
	Membership    *services.MembershipService
	JoinRequests  *services.JoinRequestService
	Conversations *services.ConversationService
}

func (d Dependencies) validate() error {
	switch {
	case d.DB == nil:
		return errors.New("database handle must be provided")
	case d.Config == nil:
		return errors.New("config must be provided")
	case d.JWT == nil:
		return errors.New("jwt service must be provided")
	case d.Cache == nil:
		return errors.New("cache store must be provided")
	}
	return nil
}

// NewServices constructs every domain service from deps.
func NewServices(deps Dependencies) (*Services, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	cfg := deps.Config
	ttl := cfg.Tokens.WithDefaults()
	frontend := cfg.Server.FrontendURL
	direct := services.NewDirectMailer(deps.Mailer)

	var tokenOpts []services.TokenOption
	accountOpts := []services.AccountOption{services.WithAccountStore(deps.Cache)}
	var orgOpts []services.OrganizationOption
	if deps.Clock != nil {
		tokenOpts = append(tokenOpts, services.WithTokenClock(deps.Clock))
		accountOpts = append(accountOpts, services.WithAccountClock(deps.Clock))
		orgOpts = append(orgOpts, services.WithOrganizationClock(deps.Clock))
	}

	svc := &Services{}
	var err error

	if svc.Audit, err = services.NewAuditService(deps.DB); err != nil {
		return nil, fmt.Errorf("audit service: %w", err)
	}
	if svc.Notifications, err = services.NewNotificationService(deps.DB, deps.Mailer); err != nil {
		return nil, fmt.Errorf("notification service: %w", err)
	}
	if svc.Tokens, err = services.NewTokenService(deps.DB, tokenOpts...); err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	accountOpts = append(accountOpts, services.WithAccountAudit(svc.Audit))
	svc.Accounts, err = services.NewAccountService(deps.DB, svc.Tokens, deps.JWT, direct, services.AccountConfig{
		OTPTTL:            ttl.OTPTTL,
		OTPResendCooldown: ttl.OTPResendCooldown,
		PasswordResetTTL:  ttl.PasswordResetTTL,
		FrontendURL:       frontend,
	}, accountOpts...)
	if err != nil {
		return nil, fmt.Errorf("account service: %w", err)
	}

	if svc.Social, err = services.NewSocialAuthService(deps.DB, svc.Accounts, cfg.Auth.Social.SocialPassword, svc.Audit); err != nil {
		return nil, fmt.Errorf("social auth service: %w", err)
	}
	for name, resolver := range deps.Social {
		svc.Social.RegisterProvider(name, resolver)
	}

	orgOpts = append(orgOpts,
		services.WithOrganizationNotifier(svc.Notifications),
		services.WithOrganizationAudit(svc.Audit),
	)
	if svc.Organizations, err = services.NewOrganizationService(deps.DB, frontend, ttl.InvitationTTL, orgOpts...); err != nil {
		return nil, fmt.Errorf("organization service: %w", err)
	}
	if svc.Hackathons, err = services.NewHackathonService(deps.DB, svc.Notifications, svc.Audit); err != nil {
		return nil, fmt.Errorf("hackathon service: %w", err)
	}

	team := services.TeamDeps{
		DB:          deps.DB,
		Notifier:    svc.Notifications,
		Mailer:      direct,
		Audit:       svc.Audit,
		FrontendURL: frontend,
		Clock:       deps.Clock,
	}
	if svc.Teams, err = services.NewTeamService(team); err != nil {
		return nil, fmt.Errorf("team service: %w", err)
	}
	if svc.Invitations, err = services.NewInvitationService(team, ttl.InvitationTTL); err != nil {
		return nil, fmt.Errorf("invitation service: %w", err)
	}
	if svc.Membership, err = services.NewMembershipService(team); err != nil {
		return nil, fmt.Errorf("membership service: %w", err)
	}
	if svc.JoinRequests, err = services.NewJoinRequestService(team); err != nil {
		return nil, fmt.Errorf("join request service: %w", err)
	}
	if svc.Conversations, err = services.NewConversationService(team); err != nil {
		return nil, fmt.Errorf("conversation service: %w", err)
	}

	return svc, nil
}
