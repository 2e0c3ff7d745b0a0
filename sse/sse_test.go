package sse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/qiuethan/RT1M-sub001/logger"
)

func testLogger(t *testing.T) {
	logger.Set(zaptest.NewLogger(t))
	t.Cleanup(func() { logger.Set(nil) })
}

func TestHubFansOutPerUser(t *testing.T) {
	testLogger(t)
	h := NewHub()
	a1 := h.Register("a")
	a2 := h.Register("a")
	b := h.Register("b")

	assert.Equal(t, 2, h.SendToUser("a", "hello"))
	assert.Equal(t, "hello", <-a1.Messages)
	assert.Equal(t, "hello", <-a2.Messages)
	assert.Empty(t, b.Messages)

	h.Unregister("a", a1)
	_, open := <-a1.Done
	assert.False(t, open)
	assert.Equal(t, 2, h.Connections())
	assert.Equal(t, 0, h.SendToUser("nobody", "x"))
}

func TestHandleProfileUpdate(t *testing.T) {
	h := NewHub()
	s := h.Register("u1")
	payload := `{"user_id":"u1","source":"chat","updated_sections":{"assets":true}}`

	require.NoError(t, h.HandleProfileUpdate(context.Background(), []byte(payload)))
	assert.JSONEq(t, payload, <-s.Messages)
	assert.Error(t, h.HandleProfileUpdate(context.Background(), []byte("not json")))
}

func TestFullStreamDrops(t *testing.T) {
	testLogger(t)
	h := NewHub()
	h.Register("u1")
	for i := 0; i < streamBuffer; i++ {
		require.Equal(t, 1, h.SendToUser("u1", "m"))
	}
	assert.Equal(t, 0, h.SendToUser("u1", "overflow"))
}
