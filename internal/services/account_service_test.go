package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/auth"
	"github.com/Goodness5/Vortexis-Backend/internal/cache"
	"github.com/Goodness5/Vortexis-Backend/internal/database/testutil"
	"github.com/Goodness5/Vortexis-Backend/internal/models"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
)

var (
	otpPattern   = regexp.MustCompile(`code is (\d{6})`)
	resetPattern = regexp.MustCompile(`reset-password\?token=(\S+)`)
)

type accountFixture struct {
	db     *gorm.DB
	svc    *AccountService
	jwt    *auth.JWTService
	mailer *recordingMailer
	clock  *testClock
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := newTestClock()

	tokens, err := NewTokenService(db, WithTokenClock(clock.Now))
	require.NoError(t, err)
	jwt, err := auth.NewJWTService(auth.JWTConfig{Secret: "account-test-secret", Issuer: "vortexis-test", Clock: clock.Now})
	require.NoError(t, err)
	audit, err := NewAuditService(db)
	require.NoError(t, err)

	mailer := &recordingMailer{}
	svc, err := NewAccountService(db, tokens, jwt, mailer, AccountConfig{
		OTPTTL:            10 * time.Minute,
		OTPResendCooldown: time.Minute,
		PasswordResetTTL:  time.Hour,
		FrontendURL:       "https://app.vortexis.test",
	},
		WithAccountClock(clock.Now),
		WithAccountAudit(audit),
		WithAccountStore(cache.NewDatabaseStore(db)),
	)
	require.NoError(t, err)

	return &accountFixture{db: db, svc: svc, jwt: jwt, mailer: mailer, clock: clock}
}

func (fx *accountFixture) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := fx.svc.Register(context.Background(), RegisterInput{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "correct horse",
		ConfirmPassword: "correct horse",
		FirstName:       "Ada",
	})
	require.NoError(t, err)
	return user
}

func (fx *accountFixture) lastMatch(t *testing.T, pattern *regexp.Regexp) string {
	t.Helper()
	sent := fx.mailer.messages()
	require.NotEmpty(t, sent)
	match := pattern.FindStringSubmatch(sent[len(sent)-1].body)
	require.Len(t, match, 2, "no match in %q", sent[len(sent)-1].body)
	return match[1]
}

func TestAccountServiceRegisterAndVerify(t *testing.T) {
	fx := newAccountFixture(t)
	ctx := context.Background()

	user := fx.register(t, "ada")
	require.False(t, user.IsVerified)
	require.True(t, user.IsParticipant)
	require.NotEqual(t, "correct horse", user.Password)
	require.Equal(t, models.AuthProviderEmail, user.AuthProvider)

	sent := fx.mailer.messages()
	require.Len(t, sent, 1)
	require.Equal(t, "ada@example.com", sent[0].to)

	_, err := fx.svc.Login(ctx, "ada", "correct horse")
	requireKind(t, err, apperrors.KindAuthorization)

	code := fx.lastMatch(t, otpPattern)
	verified, err := fx.svc.VerifyOTP(ctx, "ADA@example.com", code)
	require.NoError(t, err)
	require.True(t, verified.IsVerified)

	_, err = fx.svc.VerifyOTP(ctx, "ada@example.com", code)
	require.ErrorIs(t, err, apperrors.ErrTokenAlreadyConsumed)

	var audits int64
	require.NoError(t, fx.db.Model(&models.AuditLog{}).Where("action = ?", "account.verify").Count(&audits).Error)
	require.EqualValues(t, 1, audits)
}

func TestAccountServiceRegisterValidation(t *testing.T) {
	fx := newAccountFixture(t)
	fx.register(t, "taken")

	cases := []struct {
		name  string
		input RegisterInput
		kind  apperrors.Kind
	}{
		{"mismatch", RegisterInput{Username: "new1", Email: "new1@example.com", Password: "password1", ConfirmPassword: "password2"}, apperrors.KindValidation},
		{"short password", RegisterInput{Username: "new2", Email: "new2@example.com", Password: "short", ConfirmPassword: "short"}, apperrors.KindValidation},
		{"bad email", RegisterInput{Username: "new3", Email: "not-an-email", Password: "password1", ConfirmPassword: "password1"}, apperrors.KindValidation},
		{"duplicate email", RegisterInput{Username: "new4", Email: "taken@example.com", Password: "password1", ConfirmPassword: "password1"}, apperrors.KindConflict},
		{"duplicate username", RegisterInput{Username: "taken", Email: "new5@example.com", Password: "password1", ConfirmPassword: "password1"}, apperrors.KindConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.svc.Register(context.Background(), tc.input)
			requireKind(t, err, tc.kind)
		})
	}
}

func TestAccountServiceVerifyOTPErrors(t *testing.T) {
	fx := newAccountFixture(t)
	ctx := context.Background()
	fx.register(t, "grace")
	code := fx.lastMatch(t, otpPattern)

	_, err := fx.svc.VerifyOTP(ctx, "nobody@example.com", code)
	requireKind(t, err, apperrors.KindNotFound)

	_, err = fx.svc.VerifyOTP(ctx, "grace@example.com", "000000x")
	requireKind(t, err, apperrors.KindValidation)
	_, err = fx.svc.VerifyOTP(ctx, "nobody@example.com", "12ab56")
	requireKind(t, err, apperrors.KindValidation)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = fx.svc.VerifyOTP(ctx, "grace@example.com", wrong)
	require.ErrorIs(t, err, apperrors.ErrTokenNotFound)

	fx.clock.Advance(11 * time.Minute)
	_, err = fx.svc.VerifyOTP(ctx, "grace@example.com", code)
	require.ErrorIs(t, err, apperrors.ErrTokenExpired)

	var user models.User
	require.NoError(t, fx.db.First(&user, "email = ?", "grace@example.com").Error)
	require.False(t, user.IsVerified)
}

func TestAccountServiceResendOTPCooldown(t *testing.T) {
	fx := newAccountFixture(t)
	ctx := context.Background()
	fx.register(t, "linus")
	first := fx.lastMatch(t, otpPattern)

	require.NoError(t, fx.svc.ResendOTP(ctx, "linus@example.com"))
	require.Len(t, fx.mailer.messages(), 2)
	second := fx.lastMatch(t, otpPattern)

	err := fx.svc.ResendOTP(ctx, "linus@example.com")
	require.ErrorIs(t, err, apperrors.ErrRateLimit)
	require.Len(t, fx.mailer.messages(), 2)

	if first != second {
		_, err = fx.svc.VerifyOTP(ctx, "linus@example.com", first)
		requireKind(t, err, apperrors.KindToken)
	}
	_, err = fx.svc.VerifyOTP(ctx, "linus@example.com", second)
	require.NoError(t, err)

	err = fx.svc.ResendOTP(ctx, "linus@example.com")
	requireKind(t, err, apperrors.KindValidation)
}

func TestAccountServiceLoginAndRefresh(t *testing.T) {
	fx := newAccountFixture(t)
	ctx := context.Background()
	fx.register(t, "hopper")
	_, err := fx.svc.VerifyOTP(ctx, "hopper@example.com", fx.lastMatch(t, otpPattern))
	require.NoError(t, err)

	_, err = fx.svc.Login(ctx, "hopper", "wrong password")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = fx.svc.Login(ctx, "ghost", "correct horse")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	result, err := fx.svc.Login(ctx, "Hopper@Example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, "hopper", result.User.Username)
	require.NotNil(t, result.Raw.LastLoginAt)
	require.True(t, result.Raw.LastLoginAt.Equal(fx.clock.Now()))

	claims, err := fx.jwt.ValidateAccessToken(result.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, result.Raw.ID, claims.UserID)

	pair, err := fx.svc.Refresh(ctx, result.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	_, err = fx.svc.Refresh(ctx, result.Tokens.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	require.NoError(t, fx.db.Model(&models.User{}).Where("id = ?", result.Raw.ID).Update("is_active", false).Error)
	_, err = fx.svc.Login(ctx, "hopper", "correct horse")
	requireKind(t, err, apperrors.KindAuthorization)
	_, err = fx.svc.Refresh(ctx, result.Tokens.RefreshToken)
	requireKind(t, err, apperrors.KindAuthorization)
}

func TestAccountServicePasswordReset(t *testing.T) {
	fx := newAccountFixture(t)
	ctx := context.Background()
	fx.register(t, "barbara")
	_, err := fx.svc.VerifyOTP(ctx, "barbara@example.com", fx.lastMatch(t, otpPattern))
	require.NoError(t, err)

	before := len(fx.mailer.messages())
	require.NoError(t, fx.svc.ForgotPassword(ctx, "unknown@example.com"))
	require.Len(t, fx.mailer.messages(), before)

	require.NoError(t, fx.svc.ForgotPassword(ctx, "barbara@example.com"))
	token := fx.lastMatch(t, resetPattern)

	err = fx.svc.ResetPassword(ctx, token, "new password", "other password")
	requireKind(t, err, apperrors.KindValidation)

	require.NoError(t, fx.svc.ResetPassword(ctx, token, "new password", "new password"))
	err = fx.svc.ResetPassword(ctx, token, "third password", "third password")
	require.ErrorIs(t, err, apperrors.ErrTokenAlreadyConsumed)

	_, err = fx.svc.Login(ctx, "barbara", "correct horse")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = fx.svc.Login(ctx, "barbara", "new password")
	require.NoError(t, err)

	err = fx.svc.ResetPassword(ctx, "bogus-token", "new password", "new password")
	require.ErrorIs(t, err, apperrors.ErrTokenNotFound)
}

func TestAccountServiceChangePassword(t *testing.T) {
	fx := newAccountFixture(t)
	ctx := context.Background()
	user := fx.register(t, "dennis")

	err := fx.svc.ChangePassword(ctx, user.ID, "wrong", "brand new pw", "brand new pw")
	requireKind(t, err, apperrors.KindValidation)

	err = fx.svc.ChangePassword(ctx, user.ID, "correct horse", "brand new pw", "brand new px")
	requireKind(t, err, apperrors.KindValidation)

	require.NoError(t, fx.svc.ChangePassword(ctx, user.ID, "correct horse", "brand new pw", "brand new pw"))

	_, err = fx.svc.GetUser(ctx, "missing")
	requireKind(t, err, apperrors.KindNotFound)
}
