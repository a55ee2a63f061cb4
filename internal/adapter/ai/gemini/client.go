// Package gemini implements the generate-content side of the LLM gateway
// against Google's Generative Language REST API, including tier-selected
// audio transcription.
package gemini

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

// Transcription model tiers by audio payload size. Smaller payloads go to the
// cheaper tier; the boundaries are a cost/latency trade-off, not correctness.
const (
	tierSmallLimit  = 100 * 1024
	tierMediumLimit = 500 * 1024

	tierSmallModel  = "gemini-2.5-flash-lite"
	tierMediumModel = "gemini-2.5-flash"
	tierLargeModel  = "gemini-2.5-pro"
)

const transcribeInstruction = "Transcribe this audio to plain English text only. Do not add any explanation or extra words."

// Client implements domain.ContentGenerator and domain.Transcriber.
type Client struct {
	cfg              config.Config
	hc               *http.Client
	genPolicy        ai.Policy
	transcribePolicy ai.Policy
}

// New constructs a Gemini REST client.
func New(cfg config.Config) *Client {
	maxRetries, initial, maxInterval := cfg.AIBackoff()
	tRetries, tInitial := cfg.TranscribeBackoff()
	return &Client{
		cfg:       cfg,
		hc:        &http.Client{Timeout: 120 * time.Second},
		genPolicy: ai.Policy{MaxRetries: maxRetries, Initial: initial, MaxInterval: maxInterval},
		transcribePolicy: ai.Policy{MaxRetries: tRetries, Initial: tInitial, MaxInterval: 30 * time.Second},
	}
}

// ModelForAudioSize returns the transcription model tier for a payload size.
func ModelForAudioSize(sizeInBytes int) string {
	switch {
	case sizeInBytes < tierSmallLimit:
		return tierSmallModel
	case sizeInBytes < tierMediumLimit:
		return tierMediumModel
	default:
		return tierLargeModel
	}
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateRequest struct {
	Contents []struct {
		Parts []part `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends a text-only prompt and returns the concatenation of all text
// parts, trimmed. Absence of text yields an empty string, never an error.
func (c *Client) Generate(ctx context.Context, prompt string, opts domain.GenerationOptions) (string, error) {
	return c.call(ctx, "generate", []part{{Text: prompt}}, opts, c.genPolicy)
}

// GenerateFromBlob attaches inline binary data (document bytes) ahead of the
// instruction, the ordering Gemini expects for multimodal extraction.
func (c *Client) GenerateFromBlob(ctx context.Context, instruction string, data []byte, mime string, opts domain.GenerationOptions) (string, error) {
	parts := []part{
		{InlineData: &inlineData{Data: base64.StdEncoding.EncodeToString(data), MimeType: mime}},
		{Text: instruction},
	}
	return c.call(ctx, "blob", parts, opts, c.genPolicy)
}

// Transcribe converts audio to text with the model tier chosen by payload
// size and temperature pinned to 0. Only overload signals are retried.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mime string) (string, error) {
	if mime == "" {
		mime = "audio/webm"
	}
	parts := []part{
		{InlineData: &inlineData{Data: base64.StdEncoding.EncodeToString(audio), MimeType: mime}},
		{Text: transcribeInstruction},
	}
	opts := domain.GenerationOptions{Model: ModelForAudioSize(len(audio)), Temperature: 0}
	slog.Debug("transcription model selected",
		slog.String("model", opts.Model), slog.Int("audio_bytes", len(audio)))
	return c.call(ctx, "transcribe", parts, opts, c.transcribePolicy)
}

func (c *Client) call(ctx context.Context, op string, parts []part, opts domain.GenerationOptions, policy ai.Policy) (string, error) {
	if c.cfg.GeminiAPIKey == "" {
		return "", fmt.Errorf("%w: GEMINI_API_KEY", domain.ErrConfiguration)
	}

	model := opts.Model
	if model == "" {
		model = c.cfg.GeminiModel
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.cfg.GeminiBaseURL, model, c.cfg.GeminiAPIKey)

	var req generateRequest
	req.Contents = make([]struct {
		Parts []part `json:"parts"`
	}, 1)
	req.Contents[0].Parts = parts
	req.GenerationConfig.Temperature = opts.Temperature
	req.GenerationConfig.MaxOutputTokens = opts.MaxTokens
	body, _ := json.Marshal(req)

	var out generateResponse
	attempt := 0
	do := func() error {
		attempt++
		if attempt > 1 {
			observability.AIRetriesTotal.WithLabelValues("gemini", op).Inc()
		}
		start := time.Now()
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.hc.Do(r)
		observability.AIRequestsTotal.WithLabelValues("gemini", op).Inc()
		observability.AIRequestDuration.WithLabelValues("gemini", op).Observe(time.Since(start).Seconds())
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
			slog.Warn("ai provider overloaded",
				slog.String("provider", "gemini"), slog.String("op", op),
				slog.Int("status", resp.StatusCode), slog.Int("attempt", attempt))
			return fmt.Errorf("%w: status %d", domain.ErrRateLimited, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			slog.Error("ai provider non-2xx",
				slog.String("provider", "gemini"), slog.String("op", op),
				slog.Int("status", resp.StatusCode), slog.String("model", model),
				slog.String("body", snippet))
			return backoff.Permanent(fmt.Errorf("%w: generate status %d: %s", domain.ErrProvider, resp.StatusCode, snippet))
		}
		if err := json.Unmarshal(respBody, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: decode: %v", domain.ErrProvider, err))
		}
		return nil
	}

	if err := ai.Retry(ctx, policy, do); err != nil {
		return "", fmt.Errorf("gemini %s: %w", op, err)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("%w: empty candidates", domain.ErrProvider)
	}

	var texts []string
	for _, p := range out.Candidates[0].Content.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, " ")), nil
}
