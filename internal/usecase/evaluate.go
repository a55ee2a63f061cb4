package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/preppal/interview-prep-ai/internal/adapter/ai"
	"github.com/preppal/interview-prep-ai/internal/adapter/observability"
	"github.com/preppal/interview-prep-ai/internal/config"
	"github.com/preppal/interview-prep-ai/internal/domain"
	"github.com/preppal/interview-prep-ai/internal/prompt"
	"github.com/preppal/interview-prep-ai/pkg/textx"
)

// Answers shorter than this are treated as skipped: there is nothing
// substantive for the evaluator to score.
const minAnswerLen = 10

const (
	maxTokensEvaluate = 1500
	maxTokensSkipped  = 1000
)

// rawExcerptLen bounds how much raw provider output leaks into a fallback
// explanation when the evaluator's JSON cannot be parsed.
const rawExcerptLen = 300

// EvaluateService scores one submitted answer against its reference answer.
type EvaluateService struct {
	cfg  config.Config
	chat domain.ChatCompleter
}

// NewEvaluateService wires the evaluation service.
func NewEvaluateService(cfg config.Config, chat domain.ChatCompleter) *EvaluateService {
	return &EvaluateService{cfg: cfg, chat: chat}
}

// EvaluationRequest is one answer to score.
type EvaluationRequest struct {
	QuestionID    string
	QuestionText  string
	CorrectAnswer string
	UserAnswer    string
}

// evalPayload is the evaluator model's JSON response shape.
type evalPayload struct {
	Evaluation           string                 `json:"evaluation"`
	Explanation          string                 `json:"explanation"`
	CategoryScores       *domain.CategoryScores `json:"categoryScores"`
	TotalScore           int                    `json:"totalScore"`
	KeyConceptsMentioned []string               `json:"keyConceptsMentioned"`
	MissingConcepts      []string               `json:"missingConcepts"`
	UsedRealLifeExamples bool                   `json:"usedRealLifeExamples"`
	IsCoherent           bool                   `json:"isCoherent"`
	InterviewImpact      string                 `json:"interviewImpactFeedback"`
}

// ScoreForVerdict maps the qualitative verdict onto the headline score. The
// model's totalScore is ignored: only the verdict drives the number shown.
func ScoreForVerdict(v domain.Verdict) int {
	switch v {
	case domain.VerdictCorrect:
		return 100
	case domain.VerdictPartiallyCorrect:
		return 50
	default:
		return 0
	}
}

// normalizeVerdict maps free-form evaluator labels onto the known set,
// defaulting to Partially Correct for anything unrecognized.
func normalizeVerdict(label string) domain.Verdict {
	switch domain.Verdict(strings.TrimSpace(label)) {
	case domain.VerdictCorrect:
		return domain.VerdictCorrect
	case domain.VerdictWrong:
		return domain.VerdictWrong
	case domain.VerdictSkipped:
		return domain.VerdictSkipped
	default:
		return domain.VerdictPartiallyCorrect
	}
}

// ensureMissingConcepts guarantees a non-empty missingConcepts list with a
// verdict-appropriate placeholder when the model returned none.
func ensureMissingConcepts(concepts []string, verdict domain.Verdict, correctAnswer string) []string {
	if len(concepts) > 0 {
		return concepts
	}
	switch verdict {
	case domain.VerdictCorrect:
		return []string{"Consider adding more depth or edge cases to strengthen your answer"}
	case domain.VerdictSkipped:
		if correctAnswer == "" {
			return []string{}
		}
		return []string{"Key concepts from the correct answer - see details below"}
	default:
		return []string{"Key concepts from the correct answer"}
	}
}

// Evaluate scores one answer. Short or empty answers take the skipped path;
// provider failures degrade to a default result instead of an error so one
// evaluation never sinks a whole session.
func (s *EvaluateService) Evaluate(ctx context.Context, req EvaluationRequest) (*domain.EvaluationResult, error) {
	if strings.TrimSpace(req.QuestionText) == "" {
		return nil, fmt.Errorf("%w: questionText is required", domain.ErrInvalidArgument)
	}

	answer := strings.TrimSpace(req.UserAnswer)
	if len(answer) < minAnswerLen {
		return s.evaluateSkipped(ctx, req), nil
	}
	return s.evaluateAnswered(ctx, req, answer), nil
}

func (s *EvaluateService) evaluateAnswered(ctx context.Context, req EvaluationRequest, answer string) *domain.EvaluationResult {
	raw, err := s.chat.Complete(ctx, prompt.Evaluation(req.QuestionText, req.CorrectAnswer, answer), domain.GenerationOptions{
		Model:       s.cfg.OpenRouterModel,
		Temperature: 0,
		MaxTokens:   maxTokensEvaluate,
	})
	if err != nil {
		slog.Warn("evaluation degraded: provider failure", slog.Any("error", err))
		observability.EvaluationDegradedTotal.Inc()
		return &domain.EvaluationResult{
			QuestionID:           req.QuestionID,
			UserAnswer:           answer,
			CorrectAnswer:        req.CorrectAnswer,
			Verdict:              domain.VerdictPartiallyCorrect,
			Score:                2,
			Explanation:          "Unable to run full AI evaluation; showing transcription result.",
			KeyConceptsMentioned: []string{},
			MissingConcepts:      ensureMissingConcepts(nil, domain.VerdictPartiallyCorrect, req.CorrectAnswer),
			IsCoherent:           true,
			Degraded:             true,
		}
	}

	var payload evalPayload
	if perr := ai.ExtractObject(raw, &payload); perr != nil {
		slog.Warn("evaluation degraded: unparsable evaluator output", slog.Any("error", perr))
		observability.EvaluationDegradedTotal.Inc()
		return &domain.EvaluationResult{
			QuestionID:           req.QuestionID,
			UserAnswer:           answer,
			CorrectAnswer:        req.CorrectAnswer,
			Verdict:              domain.VerdictPartiallyCorrect,
			Score:                ScoreForVerdict(domain.VerdictPartiallyCorrect),
			Explanation:          textx.Truncate(raw, rawExcerptLen),
			KeyConceptsMentioned: []string{},
			MissingConcepts:      ensureMissingConcepts(nil, domain.VerdictPartiallyCorrect, req.CorrectAnswer),
			IsCoherent:           true,
			Degraded:             true,
		}
	}

	verdict := normalizeVerdict(payload.Evaluation)
	observability.EvaluationVerdictTotal.WithLabelValues(string(verdict)).Inc()
	return &domain.EvaluationResult{
		QuestionID:           req.QuestionID,
		UserAnswer:           answer,
		CorrectAnswer:        req.CorrectAnswer,
		Verdict:              verdict,
		Score:                ScoreForVerdict(verdict),
		Explanation:          payload.Explanation,
		KeyConceptsMentioned: orEmpty(payload.KeyConceptsMentioned),
		MissingConcepts:      ensureMissingConcepts(payload.MissingConcepts, verdict, req.CorrectAnswer),
		CategoryScores:       payload.CategoryScores,
		UsedRealLifeExamples: payload.UsedRealLifeExamples,
		IsCoherent:           payload.IsCoherent,
		InterviewImpact:      payload.InterviewImpact,
	}
}

// evaluateSkipped still consults the model so the candidate learns which
// concepts the skipped question would have covered. The verdict and score are
// forced regardless of what the model says.
func (s *EvaluateService) evaluateSkipped(ctx context.Context, req EvaluationRequest) *domain.EvaluationResult {
	result := &domain.EvaluationResult{
		QuestionID:           req.QuestionID,
		UserAnswer:           strings.TrimSpace(req.UserAnswer),
		CorrectAnswer:        req.CorrectAnswer,
		Verdict:              domain.VerdictSkipped,
		Score:                0,
		Explanation:          "No answer was provided. Review the correct answer below to understand the key concepts.",
		KeyConceptsMentioned: []string{},
		MissingConcepts:      ensureMissingConcepts(nil, domain.VerdictSkipped, req.CorrectAnswer),
		IsCoherent:           false,
		InterviewImpact:      "You skipped this question. Review the correct answer below and practice explaining these concepts.",
	}

	raw, err := s.chat.Complete(ctx, prompt.SkippedEvaluation(req.QuestionText, req.CorrectAnswer), domain.GenerationOptions{
		Model:       s.cfg.OpenRouterModel,
		Temperature: 0,
		MaxTokens:   maxTokensSkipped,
	})
	if err != nil {
		slog.Warn("skipped-answer analysis degraded", slog.Any("error", err))
		observability.EvaluationDegradedTotal.Inc()
		result.Degraded = true
		return result
	}

	var payload evalPayload
	if perr := ai.ExtractObject(raw, &payload); perr != nil {
		slog.Warn("skipped-answer analysis unparsable", slog.Any("error", perr))
		observability.EvaluationDegradedTotal.Inc()
		result.Degraded = true
		return result
	}

	observability.EvaluationVerdictTotal.WithLabelValues(string(domain.VerdictSkipped)).Inc()
	if payload.Explanation != "" {
		result.Explanation = payload.Explanation
	}
	if payload.InterviewImpact != "" {
		result.InterviewImpact = payload.InterviewImpact
	}
	result.MissingConcepts = ensureMissingConcepts(payload.MissingConcepts, domain.VerdictSkipped, req.CorrectAnswer)
	result.CategoryScores = payload.CategoryScores
	return result
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
