package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiregrid/matchengine/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "semantic", cfg.ScoringMode)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingsModel)
	assert.Equal(t, 2048, cfg.EmbedCacheSize)
	assert.Equal(t, 4, cfg.RankBackfillConcurrency)
	assert.False(t, cfg.QdrantEnabled())
	assert.True(t, cfg.IsDev())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SCORING_MODE", "composite")
	t.Setenv("QDRANT_URL", "http://localhost:6333")
	t.Setenv("AI_BACKOFF_MAX_ELAPSED_TIME", "10s")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, "composite", cfg.ScoringMode)
	assert.True(t, cfg.QdrantEnabled())

	maxElapsed, _, _, _ := cfg.GetAIBackoffConfig()
	assert.Equal(t, 10*time.Second, maxElapsed)
}

func TestGetAIBackoffConfig_TestEnvShortens(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := config.Load()
	require.NoError(t, err)
	maxElapsed, initial, maxInterval, multiplier := cfg.GetAIBackoffConfig()
	assert.Equal(t, 5*time.Second, maxElapsed)
	assert.Equal(t, 100*time.Millisecond, initial)
	assert.Equal(t, time.Second, maxInterval)
	assert.Equal(t, 2.0, multiplier)
}
