package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/middleware"
)

// HandleSSE streams profile-update events to the caller: GET /sse/updates.
// Browsers cannot set headers on an EventSource, so the token may come in
// the query string.
func (h *Handler) HandleSSE(c *gin.Context) {
	if h.Hub == nil {
		unavailable(c, "Update stream")
		return
	}
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid token"})
		return
	}
	claims, err := middleware.ParseToken(tokenString, h.JWTSecret, h.SupabaseURL)
	if err != nil {
		logger.Get().Warn("SSE authentication failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	uid := claims.Sub

	stream := h.Hub.Register(uid)
	log := logger.Get().With(zap.String("user_id", uid))
	log.Info("SSE connection established")
	defer func() {
		h.Hub.Unregister(uid, stream)
		log.Info("SSE connection closed")
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-stream.Messages:
			if !ok {
				return false
			}
			c.SSEvent("profile_update", msg)
			return true
		case <-c.Request.Context().Done():
			return false
		case <-stream.Done:
			return false
		}
	})
}
