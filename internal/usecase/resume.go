package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/preppal/interview-prep-ai/internal/adapter/ai"
	"github.com/preppal/interview-prep-ai/internal/config"
	"github.com/preppal/interview-prep-ai/internal/domain"
	"github.com/preppal/interview-prep-ai/internal/prompt"
	"github.com/preppal/interview-prep-ai/pkg/textx"
)

// Extracted text below this length means the upload was unreadable (blank
// page, corrupt file, pure-image PDF without recoverable text).
const minResumeTextLen = 50

const tempResumeParse = 0.3

// docParseModel is the multimodal Gemini model used for binary document
// extraction.
const docParseModel = "gemini-1.5-pro"

// ResumeService extracts text from an uploaded resume and parses it into a
// structured summary.
type ResumeService struct {
	cfg  config.Config
	chat domain.ChatCompleter
	gen  domain.ContentGenerator
}

// NewResumeService wires the resume parsing pipeline.
func NewResumeService(cfg config.Config, chat domain.ChatCompleter, gen domain.ContentGenerator) *ResumeService {
	return &ResumeService{cfg: cfg, chat: chat, gen: gen}
}

// Parse turns resume bytes into a structured summary. The extraction strategy
// follows the MIME type: plain text reads directly, PDF and Office documents
// go through Gemini inline data, images and unknown types go through the
// vision endpoint.
func (s *ResumeService) Parse(ctx context.Context, data []byte, mime string) (*domain.ResumeSummary, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no resume file provided", domain.ErrInvalidArgument)
	}

	text, err := s.extractText(ctx, data, mime)
	if err != nil {
		return nil, err
	}
	text = textx.SanitizeText(text)
	if len(text) < minResumeTextLen {
		return nil, fmt.Errorf("%w: could not extract sufficient text from resume", domain.ErrInvalidArgument)
	}

	raw, err := s.chat.Complete(ctx, prompt.ParseResume(text), domain.GenerationOptions{
		Model:       s.cfg.OpenRouterModel,
		Temperature: tempResumeParse,
	})
	if err != nil {
		return nil, fmt.Errorf("parse resume: %w", err)
	}

	var summary domain.ResumeSummary
	if err := ai.ExtractObject(raw, &summary); err != nil {
		return nil, fmt.Errorf("parse resume: %w", err)
	}
	if summary.Role == "" && len(summary.Skills) == 0 {
		slog.Warn("parsed resume missing key fields")
	}
	return &summary, nil
}

func (s *ResumeService) extractText(ctx context.Context, data []byte, mime string) (string, error) {
	mt := strings.ToLower(mime)
	switch {
	case strings.Contains(mt, "text") || strings.Contains(mt, "plain"):
		return string(data), nil

	case strings.Contains(mt, "pdf"),
		strings.Contains(mt, "word"),
		strings.Contains(mt, "document"),
		strings.Contains(mt, "msword"),
		strings.Contains(mt, "officedocument"):
		text, err := s.gen.GenerateFromBlob(ctx, prompt.DocExtractInstruction, data, mime, domain.GenerationOptions{
			Model: docParseModel,
		})
		if err != nil {
			return "", fmt.Errorf("extract document text: %w", err)
		}
		return text, nil

	default:
		// Images and anything unrecognized go through vision OCR.
		text, err := s.chat.CompleteVision(ctx, prompt.ImageExtractInstruction, data, mime, domain.GenerationOptions{
			Model:     s.cfg.OpenRouterModel,
			MaxTokens: 4096,
		})
		if err != nil {
			return "", fmt.Errorf("extract image text: %w", err)
		}
		return text, nil
	}
}
