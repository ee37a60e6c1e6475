package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/auth"
	"github.com/Goodness5/Vortexis-Backend/internal/auth/otpcode"
	"github.com/Goodness5/Vortexis-Backend/internal/cache"
	"github.com/Goodness5/Vortexis-Backend/internal/models"
	"github.com/Goodness5/Vortexis-Backend/pkg/crypto"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
	"github.com/Goodness5/Vortexis-Backend/pkg/logger"
	"github.com/Goodness5/Vortexis-Backend/pkg/mail"
	"github.com/Goodness5/Vortexis-Backend/pkg/metrics"
	"github.com/Goodness5/Vortexis-Backend/pkg/validator"
)

// AccountConfig carries token lifetimes and link targets for account flows.
type AccountConfig struct {
	OTPTTL            time.Duration
	OTPResendCooldown time.Duration
	PasswordResetTTL  time.Duration
	FrontendURL       string
}

// RegisterInput describes a new email/password account.
type RegisterInput struct {
	Username        string `json:"username" validate:"required,username"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"password2" validate:"required"`
	FirstName       string `json:"first_name" validate:"max=50"`
	LastName        string `json:"last_name" validate:"max=50"`
}

// LoginResult is returned from successful sign-in flows.
type LoginResult struct {
	User   *PrivateUser   `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
	Raw    *models.User   `json:"-"`
}

// AccountService implements registration, verification and password flows.
type AccountService struct {
	db     *gorm.DB
	tokens *TokenService
	jwt    *auth.JWTService
	mailer DirectMailer
	store  cache.Store
	audit  *AuditService
	cfg    AccountConfig
	now    func() time.Time
	log    *zap.Logger
}

// AccountOption customises AccountService behaviour.
type AccountOption func(*AccountService)

// WithAccountClock injects a custom clock primarily for testing.
func WithAccountClock(clock func() time.Time) AccountOption {
	return func(s *AccountService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithAccountAudit records account transitions.
func WithAccountAudit(audit *AuditService) AccountOption {
	return func(s *AccountService) {
		s.audit = audit
	}
}

// WithAccountStore sets the cache used for the OTP resend cooldown.
func WithAccountStore(store cache.Store) AccountOption {
	return func(s *AccountService) {
		s.store = store
	}
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB, tokens *TokenService, jwt *auth.JWTService, mailer DirectMailer, cfg AccountConfig, opts ...AccountOption) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if tokens == nil {
		return nil, errors.New("account service: token service is required")
	}
	if jwt == nil {
		return nil, errors.New("account service: jwt service is required")
	}

	service := &AccountService{
		db:     db,
		tokens: tokens,
		jwt:    jwt,
		mailer: mailer,
		cfg:    cfg,
		now:    utcClock,
		log:    logger.WithModule("accounts"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Register creates an unverified participant account and emails an OTP.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	input.Username = strings.TrimSpace(input.Username)
	input.Email = normaliseEmail(input.Email)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	if !mail.ValidAddress(input.Email) {
		return nil, apperrors.NewValidation("email address is invalid")
	}
	if input.Password != input.ConfirmPassword {
		return nil, apperrors.NewValidation("passwords do not match")
	}

	if err := s.ensureUnique(ctx, input.Email, input.Username); err != nil {
		return nil, err
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account service: hash password: %w", err)
	}

	user := &models.User{
		Username:      input.Username,
		Email:         input.Email,
		Password:      hash,
		FirstName:     strings.TrimSpace(input.FirstName),
		LastName:      strings.TrimSpace(input.LastName),
		AuthProvider:  models.AuthProviderEmail,
		IsParticipant: true,
		IsActive:      true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, conflictOr(fmt.Errorf("account service: create user: %w", err), "email or username already in use")
	}

	s.sendOTP(ctx, user)

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:     &user.ID,
		Action:     "account.register",
		Resource:   "user",
		ResourceID: user.ID,
	})
	return user, nil
}

func (s *AccountService) ensureUnique(ctx context.Context, email, username string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("account service: check email: %w", err)
	}
	if count > 0 {
		return apperrors.NewConflict("this email is already in use")
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("account service: check username: %w", err)
	}
	if count > 0 {
		return apperrors.NewConflict("this username is already taken")
	}
	return nil
}

// VerifyOTP redeems code for the account behind email and marks it verified.
func (s *AccountService) VerifyOTP(ctx context.Context, email, code string) (*models.User, error) {
	ctx = ensureContext(ctx)

	code = strings.TrimSpace(code)
	if !otpcode.Valid(code) {
		return nil, apperrors.NewValidation(fmt.Sprintf("verification code must be %d digits", otpcode.Digits))
	}

	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.tokens.RedeemWithin(tx, user.ID, code, TokenKindOTP); err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Update("is_verified", true).Error
	})
	metrics.TokenRedemptions.WithLabelValues(string(TokenKindOTP), redemptionResult(err)).Inc()
	if err != nil {
		if passThrough(err) {
			return nil, err
		}
		return nil, fmt.Errorf("account service: verify otp: %w", err)
	}
	user.IsVerified = true

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:     &user.ID,
		Action:     "account.verify",
		Resource:   "user",
		ResourceID: user.ID,
	})
	return user, nil
}

// ResendOTP issues a fresh OTP, rate limited per user by the resend cooldown.
func (s *AccountService) ResendOTP(ctx context.Context, email string) error {
	ctx = ensureContext(ctx)

	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return apperrors.NewValidation("email is already verified")
	}

	if s.store != nil && s.cfg.OTPResendCooldown > 0 {
		ok, err := s.store.SetIfAbsent(ctx, "otp-resend:"+user.ID, []byte("1"), s.cfg.OTPResendCooldown)
		if err != nil {
			s.log.Warn("resend cooldown unavailable", zap.Error(err))
		} else if !ok {
			return apperrors.ErrRateLimit.WithMessage("please wait before requesting another code")
		}
	}

	s.sendOTP(ctx, user)
	return nil
}

func (s *AccountService) sendOTP(ctx context.Context, user *models.User) {
	token, err := s.tokens.Issue(ctx, TokenKindOTP, user.ID, s.cfg.OTPTTL)
	if err != nil {
		s.log.Warn("issue otp failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	body := fmt.Sprintf("Hello %s,\n\nYour Vortexis verification code is %s. It expires in %s.\n",
		displayName(user), token.Value, s.cfg.OTPTTL)
	sendDirect(ctx, s.mailer, s.log, user.Email, "Verify your Vortexis account", body)
}

// Login authenticates by username or email and password.
func (s *AccountService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	ctx = ensureContext(ctx)

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperrors.NewValidation("username and password are required")
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Where("username = ? OR email = ?", identifier, normaliseEmail(identifier)).
		First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account service: load user: %w", err)
	}
	if err != nil || !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, apperrors.NewForbidden("account is disabled")
	}
	if !user.IsVerified {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return nil, apperrors.NewForbidden("email is not verified")
	}

	result, err := s.issueSession(ctx, &user)
	metrics.AuthAttempts.WithLabelValues("password", metrics.Result(err)).Inc()
	return result, err
}

// issueSession stamps the login time and mints a token pair.
func (s *AccountService) issueSession(ctx context.Context, user *models.User) (*LoginResult, error) {
	now := s.now()
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("account service: record login: %w", err)
	}
	user.LastLoginAt = &now

	pair, err := s.jwt.GenerateTokenPair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("account service: issue tokens: %w", err)
	}
	return &LoginResult{User: PrivateView(user), Tokens: pair, Raw: user}, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	ctx = ensureContext(ctx)

	claims, err := s.jwt.ValidateRefreshToken(strings.TrimSpace(refreshToken))
	if err != nil {
		return auth.TokenPair{}, apperrors.ErrUnauthorized.WithInternal(err)
	}

	user, err := s.GetUser(ctx, claims.UserID)
	if err != nil {
		return auth.TokenPair{}, apperrors.ErrUnauthorized.WithInternal(err)
	}
	if !user.IsActive {
		return auth.TokenPair{}, apperrors.NewForbidden("account is disabled")
	}

	pair, err := s.jwt.GenerateTokenPair(user.ID)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("account service: issue tokens: %w", err)
	}
	return pair, nil
}

// ForgotPassword emails a reset link. Unknown addresses succeed silently.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	ctx = ensureContext(ctx)

	user, err := s.userByEmail(ctx, email)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil
		}
		return err
	}

	token, err := s.tokens.Issue(ctx, TokenKindPasswordReset, user.ID, s.cfg.PasswordResetTTL)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.cfg.FrontendURL, "/"), token.Value)
	body := fmt.Sprintf("Hello %s,\n\nUse the link below to reset your password. It expires in %s.\n%s\n\nIf you did not request this, you can ignore this email.\n",
		displayName(user), s.cfg.PasswordResetTTL, link)
	sendDirect(ctx, s.mailer, s.log, user.Email, "Reset your Vortexis password", body)

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:     &user.ID,
		Action:     "account.password_reset_requested",
		Resource:   "user",
		ResourceID: user.ID,
	})
	return nil
}

// ResetPassword redeems a reset token and sets a new password atomically.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	ctx = ensureContext(ctx)

	if err := validatePassword(newPassword, confirmPassword); err != nil {
		return err
	}
	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("account service: hash password: %w", err)
	}

	var userID string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		redeemed, err := s.tokens.RedeemWithin(tx, "", token, TokenKindPasswordReset)
		if err != nil {
			return err
		}
		userID = redeemed.UserID
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("password", hash).Error
	})
	metrics.TokenRedemptions.WithLabelValues(string(TokenKindPasswordReset), redemptionResult(err)).Inc()
	if err != nil {
		if passThrough(err) {
			return err
		}
		return fmt.Errorf("account service: reset password: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:     &userID,
		Action:     "account.password_reset",
		Resource:   "user",
		ResourceID: userID,
	})
	return nil
}

// ChangePassword replaces the password of an authenticated user.
func (s *AccountService) ChangePassword(ctx context.Context, userID, current, newPassword, confirmPassword string) error {
	ctx = ensureContext(ctx)

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !crypto.VerifyPassword(user.Password, current) {
		return apperrors.NewValidation("current password is incorrect")
	}
	if err := validatePassword(newPassword, confirmPassword); err != nil {
		return err
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("account service: hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("password", hash).Error; err != nil {
		return fmt.Errorf("account service: update password: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{
		UserID:     &user.ID,
		Action:     "account.password_change",
		Resource:   "user",
		ResourceID: user.ID,
	})
	return nil
}

// GetUser loads a user with its profile.
func (s *AccountService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").First(&user, "id = ?", strings.TrimSpace(userID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("account service: load user: %w", err)
	}
	return &user, nil
}

func (s *AccountService) userByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normaliseEmail(email)
	if email == "" {
		return nil, apperrors.NewValidation("email is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("user with this email does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("account service: load user: %w", err)
	}
	return &user, nil
}

func validatePassword(password, confirm string) error {
	if len(password) < 8 {
		return apperrors.NewValidation("password must be at least 8 characters")
	}
	if password != confirm {
		return apperrors.NewValidation("passwords do not match")
	}
	return nil
}

func displayName(user *models.User) string {
	if name := user.FullName(); name != "" {
		return name
	}
	return user.Username
}
