package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/chat"
	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
)

// HandleChat runs one chat turn: POST /api/chat.
func (h *Handler) HandleChat(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Get().Warn("invalid chat request", zap.String("user_id", uid), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": chat.SafeApology,
			"code":    models.KindValidation,
		})
		return
	}
	status, resp := h.runTurn(c.Request.Context(), uid, req)
	c.JSON(status, resp)
}

// runTurn fills in stored history when the client sent none and maps the
// turn's error kind to a status.
func (h *Handler) runTurn(ctx context.Context, uid string, req models.ChatRequest) (int, *models.ChatResponse) {
	if len(req.ConversationHistory) == 0 && req.SessionID != "" && h.History != nil {
		turns, err := h.History.History(ctx, uid, req.SessionID, h.historyTurns())
		if err != nil {
			logger.Get().Warn("failed to load conversation history",
				zap.String("user_id", uid),
				zap.String("session_id", req.SessionID),
				zap.Error(err))
		}
		req.ConversationHistory = turns
	}
	resp, err := h.Chat.Handle(ctx, uid, req)
	if err != nil {
		return statusFor(err), resp
	}
	return http.StatusOK, resp
}

func (h *Handler) historyTurns() int {
	if h.HistoryTurns > 0 {
		return h.HistoryTurns
	}
	return chat.DefaultHistoryTurns
}
