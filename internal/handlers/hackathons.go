package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Goodness5/Vortexis-Backend/internal/services"
	"github.com/Goodness5/Vortexis-Backend/pkg/response"
)

// HackathonHandler serves hackathons, their registrations, judges and teams.
type HackathonHandler struct {
	hackathons    *services.HackathonService
	teams         *services.TeamService
	conversations *services.ConversationService
}

// NewHackathonHandler constructs a HackathonHandler.
func NewHackathonHandler(hackathons *services.HackathonService, teams *services.TeamService, conversations *services.ConversationService) *HackathonHandler {
	return &HackathonHandler{hackathons: hackathons, teams: teams, conversations: conversations}
}

type judgesConversationRequest struct {
	IncludeOrganizers       bool `json:"include_organizers"`
	IncludeOrganizationMods bool `json:"include_moderators"`
}

// POST /api/hackathons
func (h *HackathonHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req services.CreateHackathonInput
	if !bindAndValidate(c, &req) {
		return
	}

	hackathon, err := h.hackathons.Create(requestContext(c), userID, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, hackathon)
}

// GET /api/hackathons/:id
func (h *HackathonHandler) Get(c *gin.Context) {
	hackathon, err := h.hackathons.Get(requestContext(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, hackathon)
}

// POST /api/hackathons/:id/register
func (h *HackathonHandler) Register(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	participant, err := h.hackathons.Register(requestContext(c), c.Param("id"), userID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, participant)
}

// POST /api/hackathons/:id/judges
func (h *HackathonHandler) AddJudge(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req memberEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	hackathon, err := h.hackathons.AddJudge(requestContext(c), c.Param("id"), userID, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, hackathon)
}

// GET /api/hackathons/:id/teams
func (h *HackathonHandler) Teams(c *gin.Context) {
	teams, err := h.teams.ListByHackathon(requestContext(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, teams, &response.Meta{Total: len(teams)})
}

// POST /api/hackathons/:id/judges-conversation
func (h *HackathonHandler) SyncJudgesConversation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	req := judgesConversationRequest{IncludeOrganizers: true}
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}

	synced, err := h.conversations.SyncJudgesConversation(requestContext(c), userID, c.Param("id"), req.IncludeOrganizers, req.IncludeOrganizationMods)
	if err != nil {
		fail(c, err)
		return
	}
	respondSync(c, synced)
}
