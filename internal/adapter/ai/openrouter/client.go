// Package openrouter implements the chat-completion side of the LLM gateway
// against OpenRouter's OpenAI-compatible API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/preppal/interview-prep-ai/internal/adapter/ai"
	"github.com/preppal/interview-prep-ai/internal/adapter/observability"
	"github.com/preppal/interview-prep-ai/internal/config"
	"github.com/preppal/interview-prep-ai/internal/domain"
)

// Client implements domain.ChatCompleter against OpenRouter.
type Client struct {
	cfg    config.Config
	hc     *http.Client
	policy ai.Policy
}

// New constructs a client with the configured retry policy and a timeout that
// accommodates slow free-tier models.
func New(cfg config.Config) *Client {
	maxRetries, initial, maxInterval := cfg.AIBackoff()
	return &Client{
		cfg:    cfg,
		hc:     &http.Client{Timeout: 120 * time.Second},
		policy: ai.Policy{MaxRetries: maxRetries, Initial: initial, MaxInterval: maxInterval},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends a single user prompt and returns the trimmed message content.
// Empty content yields an empty string and a nil error; callers treat that as
// a downstream failure.
func (c *Client) Complete(ctx context.Context, prompt string, opts domain.GenerationOptions) (string, error) {
	return c.call(ctx, "chat", []chatMessage{{Role: "user", Content: prompt}}, opts)
}

// CompleteVision sends an instruction plus binary content as a data URL, the
// shape OpenRouter's vision-capable models accept.
func (c *Client) CompleteVision(ctx context.Context, instruction string, data []byte, mime string, opts domain.GenerationOptions) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
	content := []map[string]any{
		{"type": "text", "text": instruction},
		{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
	}
	return c.call(ctx, "vision", []chatMessage{{Role: "user", Content: content}}, opts)
}

func (c *Client) call(ctx context.Context, op string, messages []chatMessage, opts domain.GenerationOptions) (string, error) {
	if c.cfg.OpenRouterAPIKey == "" {
		return "", fmt.Errorf("%w: OPENROUTER_API_KEY", domain.ErrConfiguration)
	}

	model := opts.Model
	if model == "" {
		model = c.cfg.OpenRouterModel
	}
	body, _ := json.Marshal(chatRequest{
		Model:       model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages:    messages,
	})

	var out chatResponse
	attempt := 0
	do := func() error {
		attempt++
		if attempt > 1 {
			observability.AIRetriesTotal.WithLabelValues("openrouter", op).Inc()
		}
		start := time.Now()
		// Recreate the request each attempt to avoid reusing consumed bodies
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenRouterBaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenRouterAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.hc.Do(r)
		observability.AIRequestsTotal.WithLabelValues("openrouter", op).Inc()
		observability.AIRequestDuration.WithLabelValues("openrouter", op).Observe(time.Since(start).Seconds())
		if err != nil {
			// Transport failures are not overload signals; fail fast.
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrProvider, err))
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: read body: %v", domain.ErrProvider, err))
		}
		snippet := string(respBody)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}

		if ai.Overloaded(resp.StatusCode, snippet) {
			slog.Warn("ai provider rate limited",
				slog.String("provider", "openrouter"), slog.String("op", op),
				slog.Int("status", resp.StatusCode), slog.Int("attempt", attempt),
				slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return fmt.Errorf("%w: status %d", domain.ErrRateLimited, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			slog.Error("ai provider non-2xx",
				slog.String("provider", "openrouter"), slog.String("op", op),
				slog.Int("status", resp.StatusCode), slog.String("model", model),
				slog.String("body", snippet))
			return backoff.Permanent(fmt.Errorf("%w: chat status %d: %s", domain.ErrProvider, resp.StatusCode, snippet))
		}
		if err := json.Unmarshal(respBody, &out); err != nil {
			slog.Error("ai provider decode error",
				slog.String("provider", "openrouter"), slog.String("op", op),
				slog.String("model", model), slog.Any("error", err))
			return backoff.Permanent(fmt.Errorf("%w: decode: %v", domain.ErrProvider, err))
		}
		return nil
	}

	if err := ai.Retry(ctx, c.policy, do); err != nil {
		return "", fmt.Errorf("openrouter %s: %w", op, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", domain.ErrProvider)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
