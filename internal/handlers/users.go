package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Goodness5/Vortexis-Backend/internal/services"
	"github.com/Goodness5/Vortexis-Backend/pkg/response"
)

// UserHandler exposes the caller's account and public profiles.
type UserHandler struct {
	accounts *services.AccountService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(accounts *services.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.accounts.GetUser(requestContext(c), userID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, services.PrivateView(user))
}

// PUT /api/users/me/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.ChangePassword(requestContext(c), userID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Password updated."})
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	viewerID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.accounts.GetUser(requestContext(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, services.ViewFor(viewerID, user))
}
