package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("MAX_ASSETS", "")
	t.Setenv("PORT", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DefaultPipeline(), cfg.Pipeline)
	assert.Error(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_ASSETS", "3")
	t.Setenv("SMART_MERGE_THRESHOLD", "0.6")
	t.Setenv("SMART_MERGE_CHAT", "true")
	t.Setenv("ANSWER_CACHE_TTL_SECONDS", "60")
	t.Setenv("MAX_DEBTS", "lots")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Pipeline.MaxAssets)
	assert.Equal(t, 10, cfg.Pipeline.MaxDebts)
	assert.Equal(t, 0.6, cfg.Pipeline.SmartMergeThreshold)
	assert.True(t, cfg.Pipeline.SmartMergeChat)
	assert.Equal(t, time.Minute, cfg.Pipeline.AnswerCacheTTL)
}

func TestValidate(t *testing.T) {
	cfg := &Config{MongoURI: "mongodb://localhost", SupabaseJWTSecret: "s", OpenAIAPIKey: "k"}
	assert.NoError(t, cfg.Validate())
	cfg.SupabaseJWTSecret = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_JWT_SECRET")
}
