package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preppal/interview-prep-ai/internal/domain"
)

func TestScoreForVerdict(t *testing.T) {
	t.Parallel()
	tests := []struct {
		verdict domain.Verdict
		want    int
	}{
		{verdict: domain.VerdictCorrect, want: 100},
		{verdict: domain.VerdictPartiallyCorrect, want: 50},
		{verdict: domain.VerdictWrong, want: 0},
		{verdict: domain.VerdictSkipped, want: 0},
		{verdict: domain.Verdict("Mostly Correct"), want: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.verdict), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ScoreForVerdict(tt.verdict))
		})
	}
}

const evaluatorJSON = `{
  "evaluation": "Partially Correct",
  "explanation": "Missed promise chaining.",
  "categoryScores": {"contentAccuracy": 25, "clarityStructure": 15, "depth": 10, "examples": 5, "communication": 8},
  "totalScore": 63,
  "keyConceptsMentioned": ["Event loop"],
  "missingConcepts": ["Promise chaining"],
  "usedRealLifeExamples": true,
  "isCoherent": true,
  "interviewImpactFeedback": "You missed promise chaining, which matters."
}`

func TestEvaluate_VerdictDrivesScore(t *testing.T) {
	t.Parallel()
	chat := &fakeChat{response: evaluatorJSON}
	svc := NewEvaluateService(testConfig(), chat)

	res, err := svc.Evaluate(context.Background(), EvaluationRequest{
		QuestionID:    "q1",
		QuestionText:  "Explain the event loop.",
		CorrectAnswer: "The event loop processes the task queue.",
		UserAnswer:    "It runs callbacks from a queue.",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictPartiallyCorrect, res.Verdict)
	assert.Equal(t, 50, res.Score) // verdict mapping, not the model's totalScore
	assert.Equal(t, []string{"Promise chaining"}, res.MissingConcepts)
	require.NotNil(t, res.CategoryScores)
	assert.Equal(t, 25, res.CategoryScores.ContentAccuracy)
	assert.False(t, res.Degraded)
	// zero temperature for deterministic scoring
	assert.Equal(t, 0.0, chat.lastOpts.Temperature)
	assert.Equal(t, 1500, chat.lastOpts.MaxTokens)
}

func TestEvaluate_CorrectGetsPlaceholderMissingConcepts(t *testing.T) {
	t.Parallel()
	chat := &fakeChat{response: `{"evaluation":"Correct","explanation":"Good.","missingConcepts":[],"isCoherent":true}`}
	svc := NewEvaluateService(testConfig(), chat)

	res, err := svc.Evaluate(context.Background(), EvaluationRequest{
		QuestionText: "Q", CorrectAnswer: "A", UserAnswer: "a perfectly fine answer",
	})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	require.NotEmpty(t, res.MissingConcepts)
	assert.Contains(t, res.MissingConcepts[0], "depth or edge cases")
}

func TestEvaluate_ShortAnswerIsSkipped(t *testing.T) {
	t.Parallel()
	chat := &fakeChat{response: `{
		"evaluation":"Skipped",
		"explanation":"No answer was provided. Key concepts: slices, maps.",
		"missingConcepts":["Slice internals","Map iteration order"],
		"interviewImpactFeedback":"You skipped this question."
	}`}
	svc := NewEvaluateService(testConfig(), chat)

	res, err := svc.Evaluate(context.Background(), EvaluationRequest{
		QuestionText:  "Explain slices.",
		CorrectAnswer: "Slices wrap arrays.",
		UserAnswer:    "idk", // under the 10-char threshold
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictSkipped, res.Verdict)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, []string{"Slice internals", "Map iteration order"}, res.MissingConcepts)
	// The skipped path uses the dedicated prompt.
	require.Len(t, chat.prompts, 1)
	assert.Contains(t, chat.prompts[0], "skipped or had no meaningful answer")
	assert.Equal(t, 1000, chat.lastOpts.MaxTokens)
}

func TestEvaluate_SkippedProviderFailureStillSkipped(t *testing.T) {
	t.Parallel()
	chat := &fakeChat{err: domain.ErrRateLimited}
	svc := NewEvaluateService(testConfig(), chat)

	res, err := svc.Evaluate(context.Background(), EvaluationRequest{
		QuestionText: "Q", CorrectAnswer: "A", UserAnswer: "",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictSkipped, res.Verdict)
	assert.Equal(t, 0, res.Score)
	assert.True(t, res.Degraded)
	assert.NotEmpty(t, res.MissingConcepts)
}

func TestEvaluate_UnparsableOutputDegrades(t *testing.T) {
	t.Parallel()
	raw := strings.Repeat("the model rambled on without json ", 20)
	chat := &fakeChat{response: raw}
	svc := NewEvaluateService(testConfig(), chat)

	res, err := svc.Evaluate(context.Background(), EvaluationRequest{
		QuestionText: "Q", CorrectAnswer: "A", UserAnswer: "a real answer with substance",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictPartiallyCorrect, res.Verdict)
	assert.Equal(t, 50, res.Score)
	assert.True(t, res.Degraded)
	// Explanation carries a bounded excerpt of the raw output.
	assert.LessOrEqual(t, len(res.Explanation), 300)
	assert.True(t, strings.HasPrefix(raw, res.Explanation))
}

func TestEvaluate_ProviderFailureDegrades(t *testing.T) {
	t.Parallel()
	chat := &fakeChat{err: errors.New("connection refused")}
	svc := NewEvaluateService(testConfig(), chat)

	res, err := svc.Evaluate(context.Background(), EvaluationRequest{
		QuestionText: "Q", CorrectAnswer: "A", UserAnswer: "a real answer with substance",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictPartiallyCorrect, res.Verdict)
	assert.Equal(t, 2, res.Score)
	assert.True(t, res.Degraded)
	// Even degraded results keep the missing-concepts placeholder.
	require.NotEmpty(t, res.MissingConcepts)
	assert.Contains(t, res.MissingConcepts[0], "Key concepts from the correct answer")
}

func TestEvaluate_MissingQuestion(t *testing.T) {
	t.Parallel()
	svc := NewEvaluateService(testConfig(), &fakeChat{})
	_, err := svc.Evaluate(context.Background(), EvaluationRequest{UserAnswer: "something long enough"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}
