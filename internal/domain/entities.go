package domain

import (
	"context"
	"errors"
	"fmt"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConfiguration   = errors.New("configuration missing")
	ErrRateLimited     = errors.New("provider rate limited")
	ErrProvider        = errors.New("provider failure")
	ErrUnparsable      = errors.New("unparsable response")
)

// UnparsableResponseError is returned when the normalizer exhausts every
// recovery strategy. It carries diagnostics about the raw text so callers can
// log what the provider actually sent without dumping the whole payload.
type UnparsableResponseError struct {
	RawLen int
	Head   string
	Tail   string
	Reason string
}

func (e *UnparsableResponseError) Error() string {
	return fmt.Sprintf("unparsable response (%d bytes): %s", e.RawLen, e.Reason)
}

// Unwrap makes errors.Is(err, ErrUnparsable) hold for every normalizer failure.
func (e *UnparsableResponseError) Unwrap() error { return ErrUnparsable }

// NewUnparsableResponseError captures head/tail excerpts of raw (up to n chars
// each) alongside the failure reason.
func NewUnparsableResponseError(raw, reason string, n int) *UnparsableResponseError {
	head, tail := raw, ""
	if len(raw) > n {
		head = raw[:n]
		tail = raw[len(raw)-n:]
	}
	return &UnparsableResponseError{RawLen: len(raw), Head: head, Tail: tail, Reason: reason}
}

// InterviewKind selects the tone of generated question sets.
type InterviewKind string

const (
	InterviewGeneral   InterviewKind = "general"
	InterviewTechnical InterviewKind = "technical"
)

// GenerationRequest describes one question-generation call. Request-scoped;
// never persisted here.
type GenerationRequest struct {
	Role            string
	ExperienceYears string
	FocusTopics     []string
	QuestionCount   int
	Resume          *ResumeSummary
	Kind            InterviewKind
}

// ResumeSummary is what the resume parser extracts. Every field is optional:
// prompt construction must tolerate the zero value.
type ResumeSummary struct {
	Role       string   `json:"extractedRole"`
	Experience string   `json:"extractedExperience"`
	Skills     []string `json:"extractedSkills"`
	Education  string   `json:"extractedEducation"`
	Projects   []string `json:"extractedProjects"`
	RawText    string   `json:"rawText,omitempty"`
}

// QuestionAnswerPair is one generated interview question with its reference
// answer. Both fields are non-empty after normalization; pairs failing that
// are dropped, never defaulted.
type QuestionAnswerPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ConceptExplanation is the single-object payload for the explanation endpoint.
type ConceptExplanation struct {
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
}

// Verdict is the qualitative correctness label for a candidate answer.
type Verdict string

const (
	VerdictCorrect          Verdict = "Correct"
	VerdictPartiallyCorrect Verdict = "Partially Correct"
	VerdictWrong            Verdict = "Wrong"
	VerdictSkipped          Verdict = "Skipped"
	// VerdictUntranscribable marks voice submissions whose audio could not be
	// turned into text and that carried no fallback transcript.
	VerdictUntranscribable Verdict = "Unable to transcribe"
)

// CategoryScores is the model's per-dimension breakdown. Passed through for
// display; it never feeds the headline score.
type CategoryScores struct {
	ContentAccuracy  int `json:"contentAccuracy"`
	ClarityStructure int `json:"clarityStructure"`
	Depth            int `json:"depth"`
	Examples         int `json:"examples"`
	Communication    int `json:"communication"`
}

// EvaluationResult is the caller-facing annotation for one submitted answer.
// Built once per submission and serialized immediately; MissingConcepts is
// never empty.
type EvaluationResult struct {
	QuestionID           string          `json:"questionId,omitempty"`
	UserAnswer           string          `json:"userAnswer"`
	CorrectAnswer        string          `json:"correctAnswer"`
	Verdict              Verdict         `json:"evaluation"`
	Score                int             `json:"score"`
	Explanation          string          `json:"explanation"`
	KeyConceptsMentioned []string        `json:"keyConceptsMentioned"`
	MissingConcepts      []string        `json:"missingConcepts"`
	CategoryScores       *CategoryScores `json:"categoryScores,omitempty"`
	UsedRealLifeExamples bool            `json:"usedRealLifeExamples"`
	IsCoherent           bool            `json:"isCoherent"`
	InterviewImpact      string          `json:"interviewImpactFeedback"`
	RawTranscription     string          `json:"rawTranscription,omitempty"`
	Degraded             bool            `json:"degraded,omitempty"`
}

// InterviewAnalysis summarizes a full session.
type InterviewAnalysis struct {
	StrongConcepts            []string `json:"strongConcepts"`
	AreasForImprovement       []string `json:"areasForImprovement"`
	StrongConceptsSuggestions string   `json:"strongConceptsSuggestions"`
	ImprovementSuggestions    string   `json:"improvementSuggestions"`
	Degraded                  bool     `json:"degraded,omitempty"`
	DegradedReason            string   `json:"error,omitempty"`
}

// AnsweredQuestion is one question with its recorded outcome, as submitted to
// the analysis and quiz endpoints.
type AnsweredQuestion struct {
	QuestionNumber       int      `json:"questionNumber"`
	Question             string   `json:"question"`
	UserAnswer           string   `json:"userAnswer"`
	CorrectAnswer        string   `json:"correctAnswer"`
	Score                int      `json:"score"`
	KeyConceptsMentioned []string `json:"keyConceptsMentioned"`
	MissingConcepts      []string `json:"missingConcepts"`
	FocusArea            string   `json:"focusArea"`
}

// QuizQuestion is one remedial multiple-choice question.
type QuizQuestion struct {
	ID            string            `json:"id"`
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correctAnswer"`
	Explanation   string            `json:"explanation"`
	Concept       string            `json:"concept"`
}

// GenerationOptions tune one outbound generation call.
type GenerationOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// ChatCompleter is the OpenAI-compatible chat-completion provider (OpenRouter).
//
// Implementations return the trimmed message content; an empty string is a
// valid return that callers must treat as a downstream failure.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt string, opts GenerationOptions) (string, error)
	// CompleteVision sends an image (or other binary the provider accepts as a
	// data URL) alongside an instruction.
	CompleteVision(ctx context.Context, instruction string, data []byte, mime string, opts GenerationOptions) (string, error)
}

// ContentGenerator is the Google-style generate-content provider (Gemini).
type ContentGenerator interface {
	Generate(ctx context.Context, prompt string, opts GenerationOptions) (string, error)
	// GenerateFromBlob attaches inline binary data (document, audio) to the
	// instruction. An empty opts.Model lets the implementation choose.
	GenerateFromBlob(ctx context.Context, instruction string, data []byte, mime string, opts GenerationOptions) (string, error)
}

// Transcriber turns audio bytes into text. Tier selection by payload size is
// an implementation concern.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mime string) (string, error)
}

// ExplanationCache stores concept explanations keyed by question. A nil cache
// and a down cache behave the same: miss.
type ExplanationCache interface {
	Get(ctx context.Context, question string) (*ConceptExplanation, bool)
	Set(ctx context.Context, question string, exp *ConceptExplanation)
}
