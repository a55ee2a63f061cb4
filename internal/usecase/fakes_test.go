package usecase

import (
	"context"

	"github.com/preppal/interview-prep-ai/internal/config"
	"github.com/preppal/interview-prep-ai/internal/domain"
)

// fakeChat scripts ChatCompleter responses and records the prompts it saw.
type fakeChat struct {
	response    string
	err         error
	prompts     []string
	lastOpts    domain.GenerationOptions
	visionText  string
	visionErr   error
	visionCalls int
}

func (f *fakeChat) Complete(_ context.Context, prompt string, opts domain.GenerationOptions) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.lastOpts = opts
	return f.response, f.err
}

func (f *fakeChat) CompleteVision(_ context.Context, _ string, _ []byte, _ string, _ domain.GenerationOptions) (string, error) {
	f.visionCalls++
	return f.visionText, f.visionErr
}

type fakeGen struct {
	response  string
	err       error
	blobText  string
	blobErr   error
	prompts   []string
	blobCalls int
	lastOpts  domain.GenerationOptions
}

func (f *fakeGen) Generate(_ context.Context, prompt string, opts domain.GenerationOptions) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.lastOpts = opts
	return f.response, f.err
}

func (f *fakeGen) GenerateFromBlob(_ context.Context, _ string, _ []byte, _ string, _ domain.GenerationOptions) (string, error) {
	f.blobCalls++
	return f.blobText, f.blobErr
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeCache struct {
	data map[string]*domain.ConceptExplanation
	sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]*domain.ConceptExplanation{}}
}

func (f *fakeCache) Get(_ context.Context, question string) (*domain.ConceptExplanation, bool) {
	exp, ok := f.data[question]
	return exp, ok
}

func (f *fakeCache) Set(_ context.Context, question string, exp *domain.ConceptExplanation) {
	f.sets++
	f.data[question] = exp
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:                 "test",
		OpenRouterModel:        "openai/gpt-4o-mini",
		ResumeContextMaxTokens: 1200,
	}
}
