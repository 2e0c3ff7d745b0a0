package store

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/qiuethan/RT1M-sub001/models"
)

// Conversations is an in-process append-only conversation log.
type Conversations struct {
	mu      sync.Mutex
	entries []models.ConversationLog
}

func (c *Conversations) Log(_ context.Context, entry models.ConversationLog) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	c.mu.Lock()
	c.entries = append(c.entries, entry)
	c.mu.Unlock()
}

// Entries returns a copy of the log, oldest first.
func (c *Conversations) Entries() []models.ConversationLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ConversationLog(nil), c.entries...)
}

func (c *Conversations) DeleteUser(uid string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.entries[:0]
	for _, e := range c.entries {
		if e.UserID != uid {
			kept = append(kept, e)
		}
	}
	n := len(c.entries) - len(kept)
	c.entries = kept
	return n
}

// History returns up to limit most recent turns of a session, oldest first.
func (c *Conversations) History(_ context.Context, uid, sessionID string, limit int) ([]models.Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var turns []models.Turn
	for i := len(c.entries) - 1; i >= 0 && len(turns) < limit; i-- {
		e := c.entries[i]
		if e.UserID == uid && e.SessionID == sessionID {
			turns = append(turns, models.Turn{User: e.UserMessage, Assistant: e.AIResponse})
		}
	}
	slices.Reverse(turns)
	return turns, nil
}
