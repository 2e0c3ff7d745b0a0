// Package sse keeps the open server-sent-event streams of each user.
package sse

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/jsonx"
	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
)

const streamBuffer = 100

type ClientStream struct {
	Messages chan string
	Done     chan struct{}
}

// Hub fans a message out to every stream a user has open.
type Hub struct {
	mu      sync.RWMutex
	streams map[string]map[*ClientStream]struct{}
}

func NewHub() *Hub {
	return &Hub{streams: map[string]map[*ClientStream]struct{}{}}
}

func (h *Hub) Register(userID string) *ClientStream {
	s := &ClientStream{Messages: make(chan string, streamBuffer), Done: make(chan struct{})}
	h.mu.Lock()
	if h.streams[userID] == nil {
		h.streams[userID] = map[*ClientStream]struct{}{}
	}
	h.streams[userID][s] = struct{}{}
	h.mu.Unlock()
	logger.Get().Debug("SSE stream registered", zap.String("user_id", userID))
	return s
}

func (h *Hub) Unregister(userID string, s *ClientStream) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.streams[userID]
	if !ok {
		return
	}
	if _, ok := set[s]; ok {
		delete(set, s)
		close(s.Done)
	}
	if len(set) == 0 {
		delete(h.streams, userID)
	}
}

// SendToUser delivers msg to each open stream of the user and returns how
// many received it. A full stream drops the message.
func (h *Hub) SendToUser(userID, msg string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set, ok := h.streams[userID]
	if !ok {
		logger.Get().Debug("no client stream found", zap.String("user_id", userID))
		return 0
	}
	sent := 0
	for s := range set {
		select {
		case s.Messages <- msg:
			sent++
		default:
			logger.Get().Warn("client stream full, dropping message", zap.String("user_id", userID))
		}
	}
	return sent
}

func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.streams {
		n += len(set)
	}
	return n
}

// HandleProfileUpdate forwards an encoded models.ProfileUpdateEvent to the
// user it belongs to.
func (h *Hub) HandleProfileUpdate(_ context.Context, value []byte) error {
	var ev models.ProfileUpdateEvent
	if err := jsonx.Unmarshal(value, &ev); err != nil {
		return err
	}
	h.SendToUser(ev.UserID, string(value))
	return nil
}
