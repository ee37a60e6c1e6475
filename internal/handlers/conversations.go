package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Goodness5/Vortexis-Backend/internal/services"
	"github.com/Goodness5/Vortexis-Backend/pkg/response"
)

// ConversationHandler serves direct conversations and messages.
type ConversationHandler struct {
	conversations *services.ConversationService
}

// NewConversationHandler constructs a ConversationHandler.
func NewConversationHandler(conversations *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

type directConversationRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type messageRequest struct {
	Content string `json:"content" validate:"required,notblank,max=5000"`
}

// GET /api/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conversations, err := h.conversations.ListForUser(requestContext(c), userID)
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, conversations, &response.Meta{Total: len(conversations)})
}

// POST /api/conversations/direct
func (h *ConversationHandler) Direct(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req directConversationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	synced, err := h.conversations.DirectConversation(requestContext(c), userID, req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	respondSync(c, synced)
}

// GET /api/conversations/:id/messages
func (h *ConversationHandler) Messages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	messages, err := h.conversations.ListMessages(requestContext(c), c.Param("id"), userID, parseIntQuery(c, "limit", 0))
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, messages, &response.Meta{Total: len(messages)})
}

// POST /api/conversations/:id/messages
func (h *ConversationHandler) Post(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req messageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	message, err := h.conversations.PostMessage(requestContext(c), c.Param("id"), userID, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, message)
}

// PATCH /api/messages/:id
func (h *ConversationHandler) Edit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req messageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	message, err := h.conversations.EditMessage(requestContext(c), c.Param("id"), userID, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, message)
}

// DELETE /api/messages/:id
func (h *ConversationHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.conversations.DeleteMessage(requestContext(c), c.Param("id"), userID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
