package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/chat"
	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/middleware"
	"github.com/qiuethan/RT1M-sub001/models"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HandleWebSocket runs chat turns over a websocket: GET /api/ws?token=.
// Browsers cannot set headers on the upgrade, so the token rides in the query.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	claims, err := middleware.ParseToken(c.Query("token"), h.JWTSecret, h.SupabaseURL)
	if err != nil {
		logger.Get().Warn("websocket authentication failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": models.KindAuth})
		return
	}
	uid := claims.Sub

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Get().Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer conn.Close()
	logger.Get().Info("websocket connection established",
		zap.String("user_id", uid),
		zap.String("remote_addr", c.Request.RemoteAddr))

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	ctx := c.Request.Context()
	for {
		var req models.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Get().Warn("websocket read error", zap.String("user_id", uid), zap.Error(err))
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var out any
		if req.Message == "" {
			out = wsError{Type: "error", Message: chat.SafeApology}
		} else {
			_, resp := h.runTurn(ctx, uid, req)
			out = resp
		}
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(out); err != nil {
			logger.Get().Warn("websocket write error", zap.String("user_id", uid), zap.Error(err))
			break
		}
	}
	logger.Get().Info("websocket connection closed", zap.String("user_id", uid))
}
