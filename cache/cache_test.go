package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswersL1Only(t *testing.T) {
	a, err := New(0, 0, nil)
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()

	_, ok := a.Get(ctx, "what is an etf")
	assert.False(t, ok)

	a.Set(ctx, "what is an etf", "An ETF is a basket of securities.")
	got, ok := a.Get(ctx, "what is an etf")
	require.True(t, ok)
	assert.Equal(t, "An ETF is a basket of securities.", got)

	a.Set(ctx, "", "ignored")
	a.Set(ctx, "blank", "")
	_, ok = a.Get(ctx, "blank")
	assert.False(t, ok)

	assert.Equal(t, Stats{L1Hits: 1, Misses: 2}, a.Stats())
}

func TestNewRedisEmptyURL(t *testing.T) {
	rdb, err := NewRedis(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, rdb)
}
