package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/llm"
	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
)

type NewSessionRequest struct {
	Message string `json:"message"`
}

// HandleCreateSession opens a chat session titled after its first message:
// POST /api/sessions.
func (h *Handler) HandleCreateSession(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if h.Sessions == nil {
		unavailable(c, "Session storage")
		return
	}
	var req NewSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondError(c, "Invalid request body", models.NewError(models.KindValidation, "create session", err))
		return
	}

	title := llm.DefaultTitle
	if req.Message != "" && h.Titles != nil {
		t, err := llm.GenerateChatTitle(c.Request.Context(), h.Titles, h.TitleModel, req.Message)
		if err != nil {
			logger.Get().Warn("failed to generate chat title", zap.String("user_id", uid), zap.Error(err))
		} else {
			title = t
		}
	}

	session, err := h.Sessions.CreateSession(c.Request.Context(), uid, title)
	if err != nil {
		respondError(c, "Failed to create session", err)
		return
	}
	logger.Get().Info("created chat session", zap.String("user_id", uid), zap.String("session_id", session.ID.String()))
	c.JSON(http.StatusOK, gin.H{"success": true, "session": session})
}

// HandleListSessions: GET /api/sessions.
func (h *Handler) HandleListSessions(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if h.Sessions == nil {
		unavailable(c, "Session storage")
		return
	}
	sessions, err := h.Sessions.ListSessions(c.Request.Context(), uid)
	if err != nil {
		respondError(c, "Failed to list sessions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessions": sessions})
}

// HandleGetSessionMessages: GET /api/sessions/:id/messages.
func (h *Handler) HandleGetSessionMessages(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if h.History == nil {
		unavailable(c, "Conversation history")
		return
	}
	id := c.Param("id")
	if h.Sessions != nil {
		sid, err := uuid.Parse(id)
		if err != nil {
			respondError(c, "Invalid session id", models.NewError(models.KindValidation, "session messages", err))
			return
		}
		if _, err := h.Sessions.GetSession(c.Request.Context(), sid, uid); err != nil {
			respondError(c, "Session not found", err)
			return
		}
	}
	turns, err := h.History.History(c.Request.Context(), uid, id, 100)
	if err != nil {
		respondError(c, "Failed to load messages", err)
		return
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": turns})
}

// HandleDeleteSession: DELETE /api/sessions/:id.
func (h *Handler) HandleDeleteSession(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	if h.Sessions == nil {
		unavailable(c, "Session storage")
		return
	}
	sid, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, "Invalid session id", models.NewError(models.KindValidation, "delete session", err))
		return
	}
	if err := h.Sessions.DeleteSession(c.Request.Context(), sid, uid); err != nil {
		respondError(c, "Failed to delete session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
