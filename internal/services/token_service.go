package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/auth/otpcode"
	"github.com/Goodness5/Vortexis-Backend/internal/models"
	"github.com/Goodness5/Vortexis-Backend/pkg/crypto"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
	"github.com/Goodness5/Vortexis-Backend/pkg/metrics"
)

// TokenKind selects the token table and value format.
type TokenKind string

const (
	// TokenKindOTP is a six digit email verification code.
	TokenKindOTP TokenKind = "otp"
	// TokenKindPasswordReset is an opaque URL-safe password reset token.
	TokenKindPasswordReset TokenKind = "password_reset"
)

const defaultTokenBytes = 32

// Token is the persisted view of a single-use token. Value is only populated
// on the token returned from Issue.
type Token struct {
	ID         string
	Kind       TokenKind
	UserID     string
	Value      string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// TokenOption customises TokenService behaviour.
type TokenOption func(*TokenService)

// WithTokenClock injects a custom clock primarily for testing.
func WithTokenClock(clock func() time.Time) TokenOption {
	return func(s *TokenService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithTokenSize adjusts the random password reset token length in bytes.
func WithTokenSize(size int) TokenOption {
	return func(s *TokenService) {
		if size >= crypto.MinTokenBytes {
			s.tokenBytes = size
		}
	}
}

// TokenService issues and redeems OTP codes and password reset tokens.
type TokenService struct {
	db         *gorm.DB
	tokenBytes int
	now        func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(db *gorm.DB, opts ...TokenOption) (*TokenService, error) {
	if db == nil {
		return nil, errors.New("token service: db is required")
	}
	service := &TokenService{
		db:         db,
		tokenBytes: defaultTokenBytes,
		now:        utcClock,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Issue creates a token for userID valid for ttl. Issuing an OTP consumes
// every earlier unconsumed OTP of the same user in the same transaction.
func (s *TokenService) Issue(ctx context.Context, kind TokenKind, userID string, ttl time.Duration) (*Token, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewValidation("user id is required")
	}
	if ttl <= 0 {
		return nil, apperrors.NewValidation("token lifetime must be positive")
	}

	var (
		token *Token
		err   error
	)
	switch kind {
	case TokenKindOTP:
		token, err = s.issueOTP(ctx, userID, ttl)
	case TokenKindPasswordReset:
		token, err = s.issueReset(ctx, userID, ttl)
	default:
		return nil, apperrors.NewValidation(fmt.Sprintf("unsupported token kind %q", kind))
	}
	if err != nil {
		return nil, err
	}

	metrics.TokensIssued.WithLabelValues(string(kind)).Inc()
	return token, nil
}

func (s *TokenService) issueOTP(ctx context.Context, userID string, ttl time.Duration) (*Token, error) {
	code, err := otpcode.Generate()
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	now := s.now()
	record := models.OneTimePassword{
		UserID:    userID,
		CodeHash:  crypto.HashToken(code),
		ExpiresAt: now.Add(ttl),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.OneTimePassword{}).
			Where("user_id = ? AND consumed_at IS NULL", userID).
			Update("consumed_at", now).Error; err != nil {
			return fmt.Errorf("invalidate previous codes: %w", err)
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, fmt.Errorf("token service: issue otp: %w", err)
	}

	return &Token{
		ID:        record.ID,
		Kind:      TokenKindOTP,
		UserID:    userID,
		Value:     code,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

func (s *TokenService) issueReset(ctx context.Context, userID string, ttl time.Duration) (*Token, error) {
	value, err := crypto.GenerateToken(s.tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("token service: generate token: %w", err)
	}

	record := models.PasswordResetToken{
		UserID:    userID,
		TokenHash: crypto.HashToken(value),
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, conflictOr(fmt.Errorf("token service: issue reset token: %w", err), "token already exists")
	}

	return &Token{
		ID:        record.ID,
		Kind:      TokenKindPasswordReset,
		UserID:    userID,
		Value:     value,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// Redeem consumes a globally unique token by value. OTP codes are only
// unique per user and must go through RedeemForUser.
func (s *TokenService) Redeem(ctx context.Context, value string, kind TokenKind) (*Token, error) {
	if kind == TokenKindOTP {
		return nil, apperrors.NewValidation("one-time codes must be redeemed for a specific user")
	}
	return s.redeem(ctx, "", value, kind)
}

// RedeemForUser consumes the token value issued to userID.
func (s *TokenService) RedeemForUser(ctx context.Context, userID, value string, kind TokenKind) (*Token, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewValidation("user id is required")
	}
	return s.redeem(ctx, userID, value, kind)
}

// RedeemWithin consumes a token inside an existing transaction so the caller
// can apply the state change it gates atomically with the redemption.
func (s *TokenService) RedeemWithin(tx *gorm.DB, userID, value string, kind TokenKind) (*Token, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, apperrors.ErrTokenNotFound
	}

	now := s.now()
	hash := crypto.HashToken(value)

	var (
		claim tokenClaim
		load  func() (*Token, error)
	)
	switch kind {
	case TokenKindOTP:
		scope := func(db *gorm.DB) *gorm.DB {
			return db.Where("user_id = ? AND code_hash = ?", userID, hash)
		}
		claim = tokenClaim{model: &models.OneTimePassword{}, consumedColumn: "consumed_at", scope: scope}
		load = func() (*Token, error) {
			var record models.OneTimePassword
			if err := scope(tx).Order("created_at DESC").First(&record).Error; err != nil {
				return nil, err
			}
			return &Token{ID: record.ID, Kind: kind, UserID: record.UserID, CreatedAt: record.CreatedAt, ExpiresAt: record.ExpiresAt, ConsumedAt: record.ConsumedAt}, nil
		}
	case TokenKindPasswordReset:
		scope := func(db *gorm.DB) *gorm.DB {
			db = db.Where("token_hash = ?", hash)
			if userID != "" {
				db = db.Where("user_id = ?", userID)
			}
			return db
		}
		claim = tokenClaim{model: &models.PasswordResetToken{}, consumedColumn: "consumed_at", scope: scope}
		load = func() (*Token, error) {
			var record models.PasswordResetToken
			if err := scope(tx).First(&record).Error; err != nil {
				return nil, err
			}
			return &Token{ID: record.ID, Kind: kind, UserID: record.UserID, CreatedAt: record.CreatedAt, ExpiresAt: record.ExpiresAt, ConsumedAt: record.ConsumedAt}, nil
		}
	default:
		return nil, apperrors.NewValidation(fmt.Sprintf("unsupported token kind %q", kind))
	}

	if err := claim.claim(tx, now); err != nil {
		return nil, err
	}
	token, err := load()
	if err != nil {
		return nil, fmt.Errorf("load redeemed token: %w", err)
	}
	return token, nil
}

func (s *TokenService) redeem(ctx context.Context, userID, value string, kind TokenKind) (*Token, error) {
	ctx = ensureContext(ctx)

	var token *Token
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		token, err = s.RedeemWithin(tx, userID, value, kind)
		return err
	})
	metrics.TokenRedemptions.WithLabelValues(string(kind), redemptionResult(err)).Inc()
	if err != nil {
		if passThrough(err) {
			return nil, err
		}
		return nil, fmt.Errorf("token service: redeem: %w", err)
	}
	return token, nil
}

// HasActive reports whether userID holds an unconsumed, unexpired token of kind.
func (s *TokenService) HasActive(ctx context.Context, userID string, kind TokenKind) (bool, error) {
	ctx = ensureContext(ctx)

	var model any
	switch kind {
	case TokenKindOTP:
		model = &models.OneTimePassword{}
	case TokenKindPasswordReset:
		model = &models.PasswordResetToken{}
	default:
		return false, apperrors.NewValidation(fmt.Sprintf("unsupported token kind %q", kind))
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(model).
		Where("user_id = ? AND consumed_at IS NULL AND expires_at > ?", userID, s.now()).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("token service: count active: %w", err)
	}
	return count > 0, nil
}

func redemptionResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrTokenNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrTokenExpired):
		return "expired"
	case errors.Is(err, apperrors.ErrTokenAlreadyConsumed):
		return "consumed"
	default:
		return "error"
	}
}
