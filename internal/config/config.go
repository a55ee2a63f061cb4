// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
// It is constructed once at process start and passed by value into adapters so
// no component reads the environment at call time.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// Gemini generate-content provider
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash-lite"`

	// OpenRouter chat-completion provider (OpenAI-compatible)
	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterModel   string `env:"OPENROUTER_MODEL" envDefault:"openai/gpt-4o-mini"`

	// Redis explanation cache; empty address disables caching.
	RedisAddr           string        `env:"REDIS_ADDR"`
	ExplanationCacheTTL time.Duration `env:"EXPLANATION_CACHE_TTL" envDefault:"24h"`

	MaxUploadMB      int64  `env:"MAX_UPLOAD_MB" envDefault:"10"`
	MaxAudioMB       int64  `env:"MAX_AUDIO_MB" envDefault:"50"`
	CORSAllowOrigins string `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin  int    `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`

	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	// Retry policy for generation calls. Attempts = AIMaxRetries + 1.
	AIMaxRetries             int           `env:"AI_MAX_RETRIES" envDefault:"2"`
	AIBackoffInitialInterval time.Duration `env:"AI_BACKOFF_INITIAL_INTERVAL" envDefault:"5s"`
	AIBackoffMaxInterval     time.Duration `env:"AI_BACKOFF_MAX_INTERVAL" envDefault:"30s"`

	// Retry policy for audio transcription (overload signals only).
	TranscribeMaxRetries      int           `env:"TRANSCRIBE_MAX_RETRIES" envDefault:"3"`
	TranscribeInitialInterval time.Duration `env:"TRANSCRIBE_INITIAL_INTERVAL" envDefault:"1s"`

	// Token budget for resume context embedded into generation prompts.
	ResumeContextMaxTokens int `env:"RESUME_CONTEXT_MAX_TOKENS" envDefault:"1200"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// AIBackoff returns the generation retry policy for the current environment.
// Test mode shortens the waits so suites run fast.
func (c Config) AIBackoff() (maxRetries int, initial, maxInterval time.Duration) {
	if c.IsTest() {
		return c.AIMaxRetries, 10 * time.Millisecond, 100 * time.Millisecond
	}
	return c.AIMaxRetries, c.AIBackoffInitialInterval, c.AIBackoffMaxInterval
}

// TranscribeBackoff returns the transcription retry policy.
func (c Config) TranscribeBackoff() (maxRetries int, initial time.Duration) {
	if c.IsTest() {
		return c.TranscribeMaxRetries, 10 * time.Millisecond
	}
	return c.TranscribeMaxRetries, c.TranscribeInitialInterval
}
