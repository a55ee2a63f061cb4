// Package tokencount estimates token counts for prompt budgeting.
//
// It uses tiktoken-go, a Go port of OpenAI's tiktoken library. Counts are
// used to cap how much resume context gets interpolated into generation
// prompts, not for billing, so the cl100k_base approximation is fine for
// non-OpenAI models.
package tokencount

import (
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting with per-model encoding cache.
type Counter struct {
	mu    sync.RWMutex
	cache map[string]*tiktoken.Tiktoken
}

// NewCounter creates a token counter.
func NewCounter() *Counter {
	return &Counter{cache: make(map[string]*tiktoken.Tiktoken)}
}

// DefaultCounter is a process-wide counter instance.
var DefaultCounter = NewCounter()

// Count returns the token count of text for model. When no encoding can be
// resolved it falls back to a rough ~4 chars/token estimate rather than
// failing; budgeting tolerates imprecision.
func (c *Counter) Count(text, model string) int {
	enc, err := c.encodingFor(model)
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// Count uses the default counter.
func Count(text, model string) int { return DefaultCounter.Count(text, model) }

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	name := normalizeModelName(model)

	c.mu.RLock()
	enc, ok := c.cache[name]
	c.mu.RUnlock()
	if ok {
		return enc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.cache[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		// cl100k_base covers GPT-4-family and approximates everything else
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.cache[name] = enc
	return enc, nil
}

// normalizeModelName maps provider-prefixed model ids (e.g.
// "openai/gpt-4o-mini", "google/gemini-2.0-flash:free") onto
// tiktoken-compatible names.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	if i := strings.LastIndex(model, "/"); i != -1 {
		model = model[i+1:]
	}
	model = strings.TrimSuffix(model, ":free")
	switch {
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		// GPT-4 tokenization is a close enough proxy for gemini/llama/mistral
		return "gpt-4"
	}
}
