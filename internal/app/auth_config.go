package app

import (
	"time"

	"github.com/Goodness5/Vortexis-Backend/internal/auth"
)

// Fallback token lifetimes used when configuration leaves them unset.
const (
	DefaultOTPTTL            = 10 * time.Minute
	DefaultOTPResendCooldown = time.Minute
	DefaultPasswordResetTTL  = time.Hour
	DefaultInvitationTTL     = 7 * 24 * time.Hour
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}
	refresh := c.JWT.RefreshTTL
	if refresh <= 0 {
		refresh = auth.DefaultRefreshTokenTTL
	}

	return auth.JWTConfig{
		Secret:          c.JWT.Secret,
		Issuer:          c.JWT.Issuer,
		AccessTokenTTL:  ttl,
		RefreshTokenTTL: refresh,
	}
}

// WithDefaults fills unset lifetimes.
func (c TokenConfig) WithDefaults() TokenConfig {
	if c.OTPTTL <= 0 {
		c.OTPTTL = DefaultOTPTTL
	}
	if c.OTPResendCooldown <= 0 {
		c.OTPResendCooldown = DefaultOTPResendCooldown
	}
	if c.PasswordResetTTL <= 0 {
		c.PasswordResetTTL = DefaultPasswordResetTTL
	}
	if c.InvitationTTL <= 0 {
		c.InvitationTTL = DefaultInvitationTTL
	}
	return c
}
