// Package social verifies third-party sign-in credentials and returns the
// identity they assert.
package social

import (
	"context"
	"errors"
	"strings"
)

// Provider names.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// ErrInvalidCredential is returned when a provider rejects the credential.
var ErrInvalidCredential = errors.New("social: invalid credential")

// Identity represents the claims returned from an external authentication provider.
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	DisplayName   string
	AvatarURL     string
}

// Resolver turns a provider credential (an ID token or an authorization code)
// into a verified Identity.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (*Identity, error)
}

// splitName derives first and last names from a display name.
func splitName(display string) (string, string) {
	parts := strings.Fields(display)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func stringValue(claims map[string]any, key string) string {
	if v, ok := claims[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func boolValue(claims map[string]any, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}
