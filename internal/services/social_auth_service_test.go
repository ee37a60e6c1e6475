package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Goodness5/Vortexis-Backend/internal/auth/social"
	"github.com/Goodness5/Vortexis-Backend/internal/models"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
)

type stubResolver struct {
	identities map[string]*social.Identity
}

func (s stubResolver) Resolve(_ context.Context, credential string) (*social.Identity, error) {
	identity, ok := s.identities[credential]
	if !ok {
		return nil, social.ErrInvalidCredential
	}
	return identity, nil
}

func newSocialFixture(t *testing.T) (*accountFixture, *SocialAuthService) {
	t.Helper()
	fx := newAccountFixture(t)
	svc, err := NewSocialAuthService(fx.db, fx.svc, "", nil)
	require.NoError(t, err)
	svc.RegisterProvider(social.ProviderGoogle, stubResolver{identities: map[string]*social.Identity{
		"ada-token":  {Provider: social.ProviderGoogle, Subject: "1", Email: "Ada.Lovelace@example.com", EmailVerified: true, FirstName: "Ada", LastName: "Lovelace"},
		"bare-token": {Provider: social.ProviderGoogle, Subject: "2", Email: "x@example.com"},
		"no-email":   {Provider: social.ProviderGoogle, Subject: "3"},
	}})
	return fx, svc
}

func TestSocialAuthCreatesVerifiedAccount(t *testing.T) {
	fx, svc := newSocialFixture(t)
	ctx := context.Background()

	result, err := svc.Authenticate(ctx, "Google", "ada-token")
	require.NoError(t, err)
	require.Equal(t, "adalovelace", result.User.Username)
	require.True(t, result.Raw.IsVerified)
	require.Equal(t, social.ProviderGoogle, result.Raw.AuthProvider)
	require.NotEmpty(t, result.Tokens.AccessToken)

	again, err := svc.Authenticate(ctx, "google", "ada-token")
	require.NoError(t, err)
	require.Equal(t, result.Raw.ID, again.Raw.ID)

	var count int64
	require.NoError(t, fx.db.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestSocialAuthLinksExistingAccount(t *testing.T) {
	fx, svc := newSocialFixture(t)
	ctx := context.Background()

	existing := createTestUser(t, fx.db, "lovelace", "ada.lovelace@example.com")
	require.NoError(t, fx.db.Model(existing).Update("is_verified", false).Error)

	result, err := svc.Authenticate(ctx, "google", "ada-token")
	require.NoError(t, err)
	require.Equal(t, existing.ID, result.Raw.ID)

	var reloaded models.User
	require.NoError(t, fx.db.First(&reloaded, "id = ?", existing.ID).Error)
	require.True(t, reloaded.IsVerified)
}

func TestSocialAuthUsernameCollisions(t *testing.T) {
	fx, svc := newSocialFixture(t)
	createTestUser(t, fx.db, "xuser", "someone@example.com")

	result, err := svc.Authenticate(context.Background(), "google", "bare-token")
	require.NoError(t, err)
	require.Equal(t, "xuser_1", result.Raw.Username)
}

func TestSocialAuthErrors(t *testing.T) {
	_, svc := newSocialFixture(t)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "github", "anything")
	requireKind(t, err, apperrors.KindValidation)

	_, err = svc.Authenticate(ctx, "google", "forged")
	require.True(t, errors.Is(err, apperrors.ErrUnauthorized))

	_, err = svc.Authenticate(ctx, "google", "no-email")
	requireKind(t, err, apperrors.KindValidation)
}
