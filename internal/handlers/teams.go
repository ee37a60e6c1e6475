package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
	"github.com/Goodness5/Vortexis-Backend/internal/services"
	"github.com/Goodness5/Vortexis-Backend/pkg/response"
)

// TeamHandler serves team creation, roster changes, join requests and the
// team conversation.
type TeamHandler struct {
	teams         *services.TeamService
	invitations   *services.InvitationService
	membership    *services.MembershipService
	joinRequests  *services.JoinRequestService
	conversations *services.ConversationService
}

// TeamServices groups the services a TeamHandler delegates to.
type TeamServices struct {
	Teams         *services.TeamService
	Invitations   *services.InvitationService
	Membership    *services.MembershipService
	JoinRequests  *services.JoinRequestService
	Conversations *services.ConversationService
}

// NewTeamHandler constructs a TeamHandler.
func NewTeamHandler(svc TeamServices) *TeamHandler {
	return &TeamHandler{
		teams:         svc.Teams,
		invitations:   svc.Invitations,
		membership:    svc.Membership,
		joinRequests:  svc.JoinRequests,
		conversations: svc.Conversations,
	}
}

type createTeamRequest struct {
	Name         string   `json:"name" validate:"required,notblank,max=100"`
	Description  string   `json:"description"`
	HackathonID  string   `json:"hackathon" validate:"required"`
	MemberEmails []string `json:"member_emails" validate:"omitempty,dive,required"`
}

type memberEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type joinDecisionRequest struct {
	UserID string `json:"user_id"`
}

type invitationView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

func invitationViews(issued []services.IssuedInvitation) []invitationView {
	views := make([]invitationView, 0, len(issued))
	for _, inv := range issued {
		views = append(views, invitationView{ID: inv.ID, Email: inv.Email, ExpiresAt: inv.ExpiresAt})
	}
	return views
}

// POST /api/teams
func (h *TeamHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req createTeamRequest
	if !bindAndValidate(c, &req) {
		return
	}

	created, err := h.invitations.CreateTeamWithInvitations(requestContext(c), userID, services.CreateTeamInput{
		Name:         req.Name,
		Description:  req.Description,
		HackathonID:  req.HackathonID,
		MemberEmails: req.MemberEmails,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"team":        created.Team,
		"invitations": invitationViews(created.Invitations),
	})
}

// GET /api/teams/:id
func (h *TeamHandler) Get(c *gin.Context) {
	team, err := h.teams.Get(requestContext(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

// PATCH /api/teams/:id
func (h *TeamHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.UpdateTeamInput
	if !bindAndValidate(c, &req) {
		return
	}

	team, err := h.teams.Update(requestContext(c), c.Param("id"), userID, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

// DELETE /api/teams/:id
func (h *TeamHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.membership.DeleteTeam(requestContext(c), c.Param("id"), userID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/teams/:id/members
func (h *TeamHandler) AddMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req memberEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	issued, err := h.invitations.AddMember(requestContext(c), c.Param("id"), userID, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"message":    "Invitation sent.",
		"invitation": invitationViews([]services.IssuedInvitation{*issued})[0],
	})
}

// DELETE /api/teams/:id/members
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req memberEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	team, err := h.membership.RemoveMember(requestContext(c), c.Param("id"), userID, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

// POST /api/teams/:id/leave
func (h *TeamHandler) Leave(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.membership.LeaveTeam(requestContext(c), c.Param("id"), userID); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "You have left the team."})
}

// POST /api/teams/:id/join-requests
func (h *TeamHandler) RequestToJoin(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	request, err := h.joinRequests.Request(requestContext(c), c.Param("id"), userID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, request)
}

// GET /api/teams/:id/join-requests
func (h *TeamHandler) ListJoinRequests(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	requests, err := h.joinRequests.ListPending(requestContext(c), c.Param("id"), userID)
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, requests, &response.Meta{Total: len(requests)})
}

// POST /api/teams/:id/join-requests/approve
func (h *TeamHandler) ApproveJoinRequest(c *gin.Context) {
	h.decideJoinRequest(c, h.joinRequests.Approve)
}

// POST /api/teams/:id/join-requests/reject
func (h *TeamHandler) RejectJoinRequest(c *gin.Context) {
	h.decideJoinRequest(c, h.joinRequests.Reject)
}

type joinDecision func(ctx context.Context, teamID, approverID, userID string) (*models.TeamJoinRequest, error)

func (h *TeamHandler) decideJoinRequest(c *gin.Context, decide joinDecision) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req joinDecisionRequest
	// The body is optional; without a user_id the oldest request is decided.
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}

	request, err := decide(requestContext(c), c.Param("id"), userID, req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, request)
}

// POST /api/teams/:id/conversation
func (h *TeamHandler) SyncConversation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	synced, err := h.conversations.SyncTeamConversationAs(requestContext(c), userID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respondSync(c, synced)
}

func respondSync(c *gin.Context, synced *services.ConversationSync) {
	status := http.StatusOK
	if synced.Created {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{
		"conversation": synced.Conversation,
		"created":      synced.Created,
		"added":        synced.Added,
	})
}
