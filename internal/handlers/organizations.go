package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Goodness5/Vortexis-Backend/internal/services"
	"github.com/Goodness5/Vortexis-Backend/pkg/response"
)

// OrganizationHandler serves organizations and their moderator seats.
type OrganizationHandler struct {
	organizations *services.OrganizationService
}

// NewOrganizationHandler constructs an OrganizationHandler.
func NewOrganizationHandler(organizations *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{organizations: organizations}
}

// POST /api/organizations
func (h *OrganizationHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.CreateOrganizationInput
	if !bindAndValidate(c, &req) {
		return
	}

	organization, err := h.organizations.Create(requestContext(c), userID, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, organization)
}

// GET /api/organizations
func (h *OrganizationHandler) List(c *gin.Context) {
	organizations, err := h.organizations.List(requestContext(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, organizations, &response.Meta{Total: len(organizations)})
}

// GET /api/organizations/:id
func (h *OrganizationHandler) Get(c *gin.Context) {
	organization, err := h.organizations.Get(requestContext(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, organization)
}

// POST /api/organizations/:id/moderators/invitations
func (h *OrganizationHandler) InviteModerator(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req memberEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	issued, err := h.organizations.InviteModerator(requestContext(c), c.Param("id"), userID, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"message":    "Invitation sent.",
		"invitation": issued.ModeratorInvitation,
	})
}

// POST /api/organizations/moderator-invitations/:token/accept
func (h *OrganizationHandler) AcceptModeratorInvitation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	organization, err := h.organizations.AcceptModeratorInvitation(requestContext(c), c.Param("token"), userID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, organization)
}

// POST /api/organizations/moderator-invitations/:token/decline
func (h *OrganizationHandler) DeclineModeratorInvitation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.organizations.DeclineModeratorInvitation(requestContext(c), c.Param("token"), userID); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Invitation declined."})
}

// DELETE /api/organizations/:id/moderators/:userID
func (h *OrganizationHandler) RemoveModerator(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	organization, err := h.organizations.RemoveModerator(requestContext(c), c.Param("id"), userID, c.Param("userID"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, organization)
}
