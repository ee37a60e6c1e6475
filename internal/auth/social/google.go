package social

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

const (
	googleIssuer  = "https://accounts.google.com"
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// Google accepts both issuer spellings.
var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// GoogleOptions configures GoogleVerifier.
type GoogleOptions struct {
	ClientID string
	// KeySet overrides the remote Google JWKS, mainly for tests.
	KeySet oidc.KeySet
	Now    func() time.Time
}

// GoogleVerifier validates Google ID tokens issued for the configured client.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier builds a verifier. Keys are fetched lazily on first use.
func NewGoogleVerifier(ctx context.Context, opts GoogleOptions) (*GoogleVerifier, error) {
	clientID := strings.TrimSpace(opts.ClientID)
	if clientID == "" {
		return nil, errors.New("google: client id is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	keySet := opts.KeySet
	if keySet == nil {
		keySet = oidc.NewRemoteKeySet(ctx, googleJWKSURL)
	}

	verifier := oidc.NewVerifier(googleIssuer, keySet, &oidc.Config{
		ClientID:        clientID,
		SkipIssuerCheck: true,
		Now:             opts.Now,
	})
	return &GoogleVerifier{verifier: verifier}, nil
}

// Resolve verifies idToken and extracts the Google account identity.
func (g *GoogleVerifier) Resolve(ctx context.Context, idToken string) (*Identity, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, ErrInvalidCredential
	}
	if ctx == nil {
		ctx = context.Background()
	}

	token, err := g.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !validGoogleIssuer(token.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidCredential, token.Issuer)
	}

	var claims map[string]any
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google: decode claims: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(stringValue(claims, "email")))
	if email == "" {
		return nil, fmt.Errorf("%w: token carries no email", ErrInvalidCredential)
	}

	identity := &Identity{
		Provider:      ProviderGoogle,
		Subject:       token.Subject,
		Email:         email,
		EmailVerified: boolValue(claims, "email_verified"),
		FirstName:     stringValue(claims, "given_name"),
		LastName:      stringValue(claims, "family_name"),
		DisplayName:   stringValue(claims, "name"),
		AvatarURL:     stringValue(claims, "picture"),
	}
	if identity.FirstName == "" {
		identity.FirstName, identity.LastName = splitName(identity.DisplayName)
	}
	return identity, nil
}

func validGoogleIssuer(issuer string) bool {
	for _, candidate := range googleIssuers {
		if issuer == candidate {
			return true
		}
	}
	return false
}
