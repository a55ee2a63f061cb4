package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/preppal/interview-prep-ai/internal/domain"
	"github.com/preppal/interview-prep-ai/pkg/textx"
)

// VoiceService transcribes a recorded answer and hands the text to the
// evaluation service. The candidate's words are never lost: every failure
// path still returns whatever transcript we have.
type VoiceService struct {
	transcriber domain.Transcriber
	evaluator   *EvaluateService
}

// NewVoiceService wires the voice evaluation pipeline.
func NewVoiceService(transcriber domain.Transcriber, evaluator *EvaluateService) *VoiceService {
	return &VoiceService{transcriber: transcriber, evaluator: evaluator}
}

// VoiceRequest is one voice submission. Audio may be empty when the browser
// already produced a transcript client-side.
type VoiceRequest struct {
	QuestionID        string
	QuestionText      string
	CorrectAnswer     string
	BrowserTranscript string
	Audio             []byte
	MIME              string
}

// Evaluate transcribes and scores a voice answer.
//
// Transcription failures fall back to the browser transcript; with neither
// available the caller gets an untranscribable result, not an error. A missing
// answer (no audio, no transcript) is evaluated as skipped so the candidate
// still learns what the question covered.
func (s *VoiceService) Evaluate(ctx context.Context, req VoiceRequest) (*domain.EvaluationResult, error) {
	browser := textx.SanitizeText(req.BrowserTranscript)

	transcript := ""
	if len(req.Audio) > 0 {
		text, err := s.transcriber.Transcribe(ctx, req.Audio, req.MIME)
		if err != nil {
			slog.Warn("transcription failed", slog.Any("error", err),
				slog.Int("audio_bytes", len(req.Audio)))
			if browser == "" {
				return untranscribable(req), nil
			}
			slog.Info("falling back to browser transcript")
		}
		transcript = strings.TrimSpace(text)
	}
	if transcript == "" {
		transcript = browser
	}
	if len(req.Audio) > 0 && transcript == "" {
		return untranscribable(req), nil
	}

	result, err := s.evaluator.Evaluate(ctx, EvaluationRequest{
		QuestionID:    req.QuestionID,
		QuestionText:  req.QuestionText,
		CorrectAnswer: req.CorrectAnswer,
		UserAnswer:    transcript,
	})
	if err != nil {
		return nil, err
	}
	result.RawTranscription = transcript
	return result, nil
}

func untranscribable(req VoiceRequest) *domain.EvaluationResult {
	return &domain.EvaluationResult{
		QuestionID:           req.QuestionID,
		UserAnswer:           "",
		CorrectAnswer:        req.CorrectAnswer,
		Verdict:              domain.VerdictUntranscribable,
		Score:                0,
		Explanation:          "Could not transcribe audio. Try again, speak more clearly, or contact the admin.",
		KeyConceptsMentioned: []string{},
		MissingConcepts:      []string{},
		IsCoherent:           false,
		Degraded:             true,
	}
}
