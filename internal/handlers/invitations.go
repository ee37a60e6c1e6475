package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Goodness5/Vortexis-Backend/internal/services"
	"github.com/Goodness5/Vortexis-Backend/pkg/response"
)

// InvitationHandler lets invitees see and redeem team invitations.
type InvitationHandler struct {
	invitations *services.InvitationService
}

// NewInvitationHandler constructs an InvitationHandler.
func NewInvitationHandler(invitations *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

// GET /api/invitations
func (h *InvitationHandler) Pending(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	pending, err := h.invitations.PendingForUser(requestContext(c), userID)
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, pending, &response.Meta{Total: len(pending)})
}

// POST /api/invitations/:token/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	team, err := h.invitations.AcceptInvitation(requestContext(c), c.Param("token"), userID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"message": "You have joined " + team.Name + ".",
		"team":    team,
	})
}
