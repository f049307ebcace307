// README: Chat handlers (session lifecycle + message turns).
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"navmarg/internal/modules/conversation"
	"navmarg/internal/types"
)

// turnTimeout bounds one dialogue turn: up to three sequential model calls
// plus audit writes.
const turnTimeout = 120 * time.Second

type ChatHandler struct {
	conv *conversation.Service
}

func NewChatHandler(conv *conversation.Service) *ChatHandler {
	return &ChatHandler{conv: conv}
}

// CreateSession handles POST /api/sessions.
func (h *ChatHandler) CreateSession(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	id := h.conv.StartSession(ctx)
	writeJSON(c, http.StatusCreated, map[string]any{
		"session_id": string(id),
		"state":      conversation.StateAwaitingFirstMessage,
	})
}

type messageReq struct {
	Message string `json:"message"`
}

// PostMessage handles POST /api/sessions/:id/messages.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	id := sessionIDParam(c)
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid session id")
		return
	}

	var req messageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), turnTimeout)
	defer cancel()

	replies, err := h.conv.HandleMessage(ctx, types.ID(id), req.Message)
	if err != nil {
		writeConversationError(c, err)
		return
	}

	view, err := h.conv.Get(types.ID(id))
	if err != nil {
		writeConversationError(c, err)
		return
	}

	writeJSON(c, http.StatusOK, map[string]any{
		"replies": replies,
		"state":   view.State,
		"version": view.Version,
	})
}

// GetSession handles GET /api/sessions/:id.
func (h *ChatHandler) GetSession(c *gin.Context) {
	id := sessionIDParam(c)
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid session id")
		return
	}

	view, err := h.conv.Get(types.ID(id))
	if err != nil {
		writeConversationError(c, err)
		return
	}

	writeJSON(c, http.StatusOK, map[string]any{
		"session_id":     string(view.ID),
		"state":          view.State,
		"question_idx":   view.QuestionIdx,
		"slots_complete": view.SlotsComplete,
		"version":        view.Version,
		"final_plan":     view.FinalPlan,
	})
}
