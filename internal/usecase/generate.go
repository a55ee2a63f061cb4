// Package usecase contains the application services behind the HTTP handlers.
// Services orchestrate prompt construction, provider calls, and response
// normalization; they never touch the transport layer.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/preppal/interview-prep-ai/internal/adapter/ai"
	"github.com/preppal/interview-prep-ai/internal/adapter/ai/tokencount"
	"github.com/preppal/interview-prep-ai/internal/config"
	"github.com/preppal/interview-prep-ai/internal/domain"
	"github.com/preppal/interview-prep-ai/internal/prompt"
)

// Generation temperatures. Question and quiz generation run hot for variety;
// analysis and explanation run cooler for consistency.
const (
	tempQuestions    = 0.9
	tempQuiz         = 0.9
	tempAnalysis     = 0.7
	tempExplanation  = 0.7
	maxTokensGen     = 4096
	maxTokensAnalyze = 2048
)

// GenerateService produces question sets, explanations, session analyses, and
// remedial quizzes.
type GenerateService struct {
	cfg   config.Config
	chat  domain.ChatCompleter
	gen   domain.ContentGenerator
	cache domain.ExplanationCache
	rng   *rand.Rand
}

// NewGenerateService wires the generation service. cache may be nil, which
// disables explanation caching. rng may be nil to use a time-seeded source.
func NewGenerateService(cfg config.Config, chat domain.ChatCompleter, gen domain.ContentGenerator, cache domain.ExplanationCache, rng *rand.Rand) *GenerateService {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &GenerateService{cfg: cfg, chat: chat, gen: gen, cache: cache, rng: rng}
}

// GenerateQuestions builds a personalized question set. The resume context is
// trimmed to the configured token budget before it reaches the prompt so long
// resumes cannot crowd out the instructions.
func (s *GenerateService) GenerateQuestions(ctx context.Context, req domain.GenerationRequest) ([]domain.QuestionAnswerPair, error) {
	if req.Role == "" || req.ExperienceYears == "" || len(req.FocusTopics) == 0 || req.QuestionCount <= 0 {
		return nil, fmt.Errorf("%w: role, experience, topics and count are required", domain.ErrInvalidArgument)
	}
	if req.Resume != nil {
		req.Resume = trimResumeContext(req.Resume, s.cfg.OpenRouterModel, s.cfg.ResumeContextMaxTokens)
	}

	styles := prompt.SelectStyles(s.rng, req.QuestionCount)
	p := prompt.Questions(req, styles)

	raw, err := s.chat.Complete(ctx, p, domain.GenerationOptions{
		Model:       s.cfg.OpenRouterModel,
		Temperature: tempQuestions,
		MaxTokens:   maxTokensGen,
	})
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	pairs, err := ai.ExtractPairs(raw)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	if len(pairs) < req.QuestionCount {
		slog.Warn("generated fewer questions than requested",
			slog.Int("requested", req.QuestionCount), slog.Int("got", len(pairs)))
	}
	return pairs, nil
}

// trimResumeContext drops projects, then skills, until the serialized resume
// block fits the token budget. The summary fields always survive.
func trimResumeContext(r *domain.ResumeSummary, model string, budget int) *domain.ResumeSummary {
	if budget <= 0 {
		return r
	}
	trimmed := *r
	trimmed.RawText = ""
	for {
		blob := strings.Join([]string{
			trimmed.Role, trimmed.Experience, trimmed.Education,
			strings.Join(trimmed.Skills, ", "),
			strings.Join(trimmed.Projects, "; "),
		}, "\n")
		if tokencount.Count(blob, model) <= budget {
			return &trimmed
		}
		switch {
		case len(trimmed.Projects) > 0:
			trimmed.Projects = trimmed.Projects[:len(trimmed.Projects)-1]
		case len(trimmed.Skills) > 0:
			trimmed.Skills = trimmed.Skills[:len(trimmed.Skills)-1]
		default:
			return &trimmed
		}
	}
}

// ExplainConcept returns an in-depth explanation for one interview question,
// served from cache when available.
func (s *GenerateService) ExplainConcept(ctx context.Context, question string) (*domain.ConceptExplanation, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidArgument)
	}
	if s.cache != nil {
		if exp, ok := s.cache.Get(ctx, question); ok {
			slog.Debug("explanation cache hit")
			return exp, nil
		}
	}

	raw, err := s.gen.Generate(ctx, prompt.ConceptExplanation(question), domain.GenerationOptions{
		Temperature: tempExplanation,
	})
	if err != nil {
		return nil, fmt.Errorf("explain concept: %w", err)
	}

	var exp domain.ConceptExplanation
	if err := ai.ExtractObject(raw, &exp); err != nil {
		return nil, fmt.Errorf("explain concept: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, question, &exp)
	}
	return &exp, nil
}

// AnalyzeResults summarizes a finished session. Provider failures degrade to
// a labeled fallback rather than an error: the session results page must
// always render.
func (s *GenerateService) AnalyzeResults(ctx context.Context, answers []domain.AnsweredQuestion) (*domain.InterviewAnalysis, error) {
	if len(answers) == 0 {
		return nil, fmt.Errorf("%w: answers are required", domain.ErrInvalidArgument)
	}

	raw, err := s.chat.Complete(ctx, prompt.Analysis(answers), domain.GenerationOptions{
		Model:       s.cfg.OpenRouterModel,
		Temperature: tempAnalysis,
		MaxTokens:   maxTokensAnalyze,
	})
	if err == nil {
		var analysis domain.InterviewAnalysis
		if perr := ai.ExtractObject(raw, &analysis); perr == nil {
			return &analysis, nil
		} else {
			err = perr
		}
	}

	slog.Warn("analysis degraded to fallback", slog.Any("error", err))
	return degradedAnalysis(err), nil
}

func degradedAnalysis(err error) *domain.InterviewAnalysis {
	if errors.Is(err, domain.ErrRateLimited) {
		return &domain.InterviewAnalysis{
			StrongConcepts:            []string{},
			AreasForImprovement:       []string{},
			StrongConceptsSuggestions: "AI analysis is temporarily unavailable due to rate limits. Please wait a few minutes and refresh the page to see AI-generated insights.",
			ImprovementSuggestions:    "AI analysis is temporarily unavailable due to rate limits. Please review the feedback for each question below to identify areas for improvement.",
			Degraded:                  true,
			DegradedReason:            "Rate limit exceeded. The API has temporary usage limits. Please wait 2-3 minutes before trying again.",
		}
	}
	return &domain.InterviewAnalysis{
		StrongConcepts:            []string{},
		AreasForImprovement:       []string{},
		StrongConceptsSuggestions: "Unable to generate AI analysis at this time. Please review your answers manually to identify strengths.",
		ImprovementSuggestions:    "Unable to generate AI analysis at this time. Please review the feedback for each question to identify areas for improvement.",
		Degraded:                  true,
		DegradedReason:            "AI analysis temporarily unavailable. Please try again later.",
	}
}

// GenerateQuiz builds exactly five remedial multiple-choice questions from
// the concepts the candidate missed. A rate-limited provider yields an empty
// quiz with no error so the client can retry later.
func (s *GenerateService) GenerateQuiz(ctx context.Context, missedConcepts, topics []string, answers []domain.AnsweredQuestion) ([]domain.QuizQuestion, error) {
	if len(missedConcepts) == 0 {
		return nil, fmt.Errorf("%w: missedConcepts is required", domain.ErrInvalidArgument)
	}

	raw, err := s.chat.Complete(ctx, prompt.Quiz(missedConcepts, topics, answers), domain.GenerationOptions{
		Model:       s.cfg.OpenRouterModel,
		Temperature: tempQuiz,
		MaxTokens:   maxTokensGen,
	})
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			slog.Warn("quiz generation rate limited, returning empty quiz")
			return []domain.QuizQuestion{}, nil
		}
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	var questions []domain.QuizQuestion
	if err := ai.ExtractArray(raw, &questions); err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
	}
	return questions, nil
}
