package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Goodness5/Vortexis-Backend/internal/services"
	"github.com/Goodness5/Vortexis-Backend/pkg/response"
)

// AuthHandler serves registration, verification, sign-in and password recovery.
type AuthHandler struct {
	accounts *services.AccountService
	social   *services.SocialAuthService
}

// NewAuthHandler constructs an AuthHandler. social may be nil when no
// provider is configured.
func NewAuthHandler(accounts *services.AccountService, social *services.SocialAuthService) *AuthHandler {
	return &AuthHandler{accounts: accounts, social: social}
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type resetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type socialRequest struct {
	// IDToken is sent by the Google client, Code by the GitHub redirect.
	IDToken string `json:"id_token"`
	Code    string `json:"code"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterInput
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.accounts.Register(requestContext(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"user":    services.PrivateView(user),
		"message": "Account created. Check your email for the verification code.",
	})
}

// POST /api/auth/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.accounts.VerifyOTP(requestContext(c), req.Email, req.OTP)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": services.PrivateView(user)})
}

// POST /api/auth/resend-otp
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.ResendOTP(requestContext(c), req.Email); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "A new verification code has been sent."})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.Login(requestContext(c), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, err := h.accounts.Refresh(requestContext(c), req.Refresh)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, pair)
}

// POST /api/auth/password/forgot
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.ForgotPassword(requestContext(c), req.Email); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "If the address is registered, a reset link has been sent."})
}

// POST /api/auth/password/reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.ResetPassword(requestContext(c), req.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Password has been reset."})
}

// Social returns the handler for POST /api/auth/social/:provider.
func (h *AuthHandler) Social(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req socialRequest
		if !bindAndValidate(c, &req) {
			return
		}
		credential := strings.TrimSpace(req.IDToken)
		if credential == "" {
			credential = strings.TrimSpace(req.Code)
		}
		if credential == "" {
			fail(c, errBadRequest("id_token or code is required"))
			return
		}
		if h.social == nil {
			fail(c, errBadRequest("social sign-in is not enabled"))
			return
		}

		result, err := h.social.Authenticate(requestContext(c), provider, credential)
		if err != nil {
			fail(c, err)
			return
		}
		response.Success(c, http.StatusOK, result)
	}
}
