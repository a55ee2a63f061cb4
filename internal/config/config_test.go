package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "gemini-2.0-flash-lite", cfg.GeminiModel)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.OpenRouterModel)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouterBaseURL)
	assert.Equal(t, 24*time.Hour, cfg.ExplanationCacheTTL)
	assert.Equal(t, int64(10), cfg.MaxUploadMB)
	assert.Equal(t, int64(50), cfg.MaxAudioMB)
	assert.Equal(t, 2, cfg.AIMaxRetries)
	assert.Equal(t, 5*time.Second, cfg.AIBackoffInitialInterval)
	assert.Equal(t, 30*time.Second, cfg.AIBackoffMaxInterval)
	assert.Equal(t, 3, cfg.TranscribeMaxRetries)
	assert.Equal(t, time.Second, cfg.TranscribeInitialInterval)
	assert.Equal(t, 1200, cfg.ResumeContextMaxTokens)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("AI_MAX_RETRIES", "5")
	t.Setenv("EXPLANATION_CACHE_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.AppEnv)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 5, cfg.AIMaxRetries)
	assert.Equal(t, time.Hour, cfg.ExplanationCacheTTL)
	assert.True(t, cfg.IsProd())
	assert.False(t, cfg.IsDev())
}

func TestEnvPredicates(t *testing.T) {
	t.Parallel()
	assert.True(t, Config{AppEnv: "dev"}.IsDev())
	assert.True(t, Config{AppEnv: "TEST"}.IsTest())
	assert.True(t, Config{AppEnv: "Prod"}.IsProd())
	assert.False(t, Config{AppEnv: "prod"}.IsDev())
}

func TestAIBackoff_TestModeShortensWaits(t *testing.T) {
	t.Parallel()
	cfg := Config{AppEnv: "test", AIMaxRetries: 2, AIBackoffInitialInterval: 5 * time.Second, AIBackoffMaxInterval: 30 * time.Second}
	retries, initial, maxInterval := cfg.AIBackoff()
	assert.Equal(t, 2, retries)
	assert.Equal(t, 10*time.Millisecond, initial)
	assert.Equal(t, 100*time.Millisecond, maxInterval)

	cfg.AppEnv = "prod"
	_, initial, maxInterval = cfg.AIBackoff()
	assert.Equal(t, 5*time.Second, initial)
	assert.Equal(t, 30*time.Second, maxInterval)
}

func TestTranscribeBackoff(t *testing.T) {
	t.Parallel()
	cfg := Config{AppEnv: "prod", TranscribeMaxRetries: 3, TranscribeInitialInterval: time.Second}
	retries, initial := cfg.TranscribeBackoff()
	assert.Equal(t, 3, retries)
	assert.Equal(t, time.Second, initial)

	cfg.AppEnv = "test"
	_, initial = cfg.TranscribeBackoff()
	assert.Equal(t, 10*time.Millisecond, initial)
}
