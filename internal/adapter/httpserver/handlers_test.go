package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preppal/interview-prep-ai/internal/config"
	"github.com/preppal/interview-prep-ai/internal/domain"
	"github.com/preppal/interview-prep-ai/internal/usecase"
)

type stubChat struct {
	response   string
	err        error
	visionText string
}

func (s *stubChat) Complete(context.Context, string, domain.GenerationOptions) (string, error) {
	return s.response, s.err
}

func (s *stubChat) CompleteVision(context.Context, string, []byte, string, domain.GenerationOptions) (string, error) {
	return s.visionText, s.err
}

type stubGen struct {
	response string
	err      error
}

func (s *stubGen) Generate(context.Context, string, domain.GenerationOptions) (string, error) {
	return s.response, s.err
}

func (s *stubGen) GenerateFromBlob(context.Context, string, []byte, string, domain.GenerationOptions) (string, error) {
	return s.response, s.err
}

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(context.Context, []byte, string) (string, error) {
	return s.text, s.err
}

func serverConfig() config.Config {
	return config.Config{
		AppEnv:           "test",
		GeminiAPIKey:     "gk",
		OpenRouterAPIKey: "ok",
		OpenRouterModel:  "openai/gpt-4o-mini",
		MaxUploadMB:      10,
		MaxAudioMB:       50,
	}
}

func newTestServer(chat *stubChat, gen *stubGen, tr *stubTranscriber) *Server {
	cfg := serverConfig()
	rng := rand.New(rand.NewSource(1))
	genSvc := usecase.NewGenerateService(cfg, chat, gen, nil, rng)
	evalSvc := usecase.NewEvaluateService(cfg, chat)
	voiceSvc := usecase.NewVoiceService(tr, evalSvc)
	resumeSvc := usecase.NewResumeService(cfg, chat, gen)
	return NewServer(cfg, genSvc, voiceSvc, resumeSvc, nil)
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

const questionsBody = `{
	"role": "Backend Engineer",
	"experience": "3",
	"topicsToFocus": ["Go"],
	"numberOfQuestions": 2
}`

func TestQuestionsHandler_Success(t *testing.T) {
	t.Parallel()
	chat := &stubChat{response: `[{"question":"Q1","answer":"A1"},{"question":"Q2","answer":"A2"}]`}
	srv := newTestServer(chat, &stubGen{}, &stubTranscriber{})

	rec := postJSON(t, srv.QuestionsHandler(), questionsBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var pairs []domain.QuestionAnswerPair
	decodeBody(t, rec, &pairs)
	require.Len(t, pairs, 2)
	assert.Equal(t, "Q1", pairs[0].Question)
}

func TestQuestionsHandler_Validation(t *testing.T) {
	t.Parallel()
	srv := newTestServer(&stubChat{}, &stubGen{}, &stubTranscriber{})

	tests := []struct {
		name string
		body string
	}{
		{name: "missing role", body: `{"experience":"3","topicsToFocus":["Go"],"numberOfQuestions":2}`},
		{name: "empty topics", body: `{"role":"BE","experience":"3","topicsToFocus":[],"numberOfQuestions":2}`},
		{name: "count too high", body: `{"role":"BE","experience":"3","topicsToFocus":["Go"],"numberOfQuestions":99}`},
		{name: "bad interview type", body: `{"role":"BE","experience":"3","topicsToFocus":["Go"],"numberOfQuestions":2,"interviewType":"casual"}`},
		{name: "invalid json", body: `{"role":`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := postJSON(t, srv.QuestionsHandler(), tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var env errorEnvelope
			decodeBody(t, rec, &env)
			assert.Equal(t, "INVALID_ARGUMENT", env.Error.Code)
		})
	}
}

func TestQuestionsHandler_RateLimited(t *testing.T) {
	t.Parallel()
	chat := &stubChat{err: domain.ErrRateLimited}
	srv := newTestServer(chat, &stubGen{}, &stubTranscriber{})

	rec := postJSON(t, srv.QuestionsHandler(), questionsBody)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var env errorEnvelope
	decodeBody(t, rec, &env)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)
	assert.Contains(t, env.Error.Message, "wait 2-3 minutes")
}

func TestQuestionsHandler_UnparsableResponse(t *testing.T) {
	t.Parallel()
	chat := &stubChat{response: "I cannot answer that as JSON, sorry."}
	srv := newTestServer(chat, &stubGen{}, &stubTranscriber{})

	rec := postJSON(t, srv.QuestionsHandler(), questionsBody)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var env errorEnvelope
	decodeBody(t, rec, &env)
	assert.Equal(t, "UNPARSABLE_RESPONSE", env.Error.Code)
	details, ok := env.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "raw_len")
}

func TestExplanationsHandler(t *testing.T) {
	t.Parallel()
	gen := &stubGen{response: `{"title":"Closures","explanation":"Captures variables."}`}
	srv := newTestServer(&stubChat{}, gen, &stubTranscriber{})

	rec := postJSON(t, srv.ExplanationsHandler(), `{"question":"What is a closure?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var exp domain.ConceptExplanation
	decodeBody(t, rec, &exp)
	assert.Equal(t, "Closures", exp.Title)

	rec = postJSON(t, srv.ExplanationsHandler(), `{"question":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalysisHandler_DegradesTo200(t *testing.T) {
	t.Parallel()
	chat := &stubChat{err: domain.ErrRateLimited}
	srv := newTestServer(chat, &stubGen{}, &stubTranscriber{})

	body := `{"answers":[{"questionNumber":1,"question":"Q","userAnswer":"a","correctAnswer":"b","score":50}]}`
	rec := postJSON(t, srv.AnalysisHandler(), body)
	require.Equal(t, http.StatusOK, rec.Code)

	var analysis domain.InterviewAnalysis
	decodeBody(t, rec, &analysis)
	assert.True(t, analysis.Degraded)
}

func TestQuizHandler_RateLimitedReturnsEmptyList(t *testing.T) {
	t.Parallel()
	chat := &stubChat{err: domain.ErrRateLimited}
	srv := newTestServer(chat, &stubGen{}, &stubTranscriber{})

	rec := postJSON(t, srv.QuizHandler(), `{"missedConcepts":["Indexing"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, fileMIME string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+fileName+`"`)
		hdr.Set("Content-Type", fileMIME)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(fileData))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestResumeHandler_PlainText(t *testing.T) {
	t.Parallel()
	chat := &stubChat{response: `{"extractedRole":"Engineer","extractedSkills":["Go"]}`}
	srv := newTestServer(chat, &stubGen{}, &stubTranscriber{})

	resume := strings.Repeat("Senior engineer with Go and PostgreSQL experience. ", 3)
	body, ct := multipartBody(t, nil, "resume", "resume.txt", "text/plain", []byte(resume))
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.ResumeHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var summary domain.ResumeSummary
	decodeBody(t, rec, &summary)
	assert.Equal(t, "Engineer", summary.Role)
}

func TestResumeHandler_MissingFile(t *testing.T) {
	t.Parallel()
	srv := newTestServer(&stubChat{}, &stubGen{}, &stubTranscriber{})

	body, ct := multipartBody(t, map[string]string{"other": "x"}, "", "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.ResumeHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResumeHandler_RequiresMultipart(t *testing.T) {
	t.Parallel()
	srv := newTestServer(&stubChat{}, &stubGen{}, &stubTranscriber{})

	rec := postJSON(t, srv.ResumeHandler(), `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoiceEvaluateHandler_BrowserTranscriptOnly(t *testing.T) {
	t.Parallel()
	chat := &stubChat{response: `{"evaluation":"Correct","explanation":"Good.","isCoherent":true}`}
	srv := newTestServer(chat, &stubGen{}, &stubTranscriber{})

	fields := map[string]string{
		"questionId":        "q-1",
		"questionText":      "Explain indexing.",
		"correctAnswer":     "Sorted lookup structure.",
		"browserTranscript": "An index keeps keys sorted for fast lookups.",
	}
	body, ct := multipartBody(t, fields, "", "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.VoiceEvaluateHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result domain.EvaluationResult
	decodeBody(t, rec, &result)
	assert.Equal(t, domain.VerdictCorrect, result.Verdict)
	assert.Equal(t, 100, result.Score)
}

func TestVoiceEvaluateHandler_WithAudio(t *testing.T) {
	t.Parallel()
	chat := &stubChat{response: `{"evaluation":"Partially Correct","explanation":"Ok."}`}
	tr := &stubTranscriber{text: "Indexes keep lookups fast by sorting keys."}
	srv := newTestServer(chat, &stubGen{}, tr)

	fields := map[string]string{
		"questionId":    "q-1",
		"questionText":  "Explain indexing.",
		"correctAnswer": "Sorted lookup structure.",
	}
	body, ct := multipartBody(t, fields, "audio", "answer.webm", "audio/webm", []byte("fake-webm"))
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.VoiceEvaluateHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result domain.EvaluationResult
	decodeBody(t, rec, &result)
	assert.Equal(t, "Indexes keep lookups fast by sorting keys.", result.RawTranscription)
	assert.Equal(t, 50, result.Score)
}

func TestVoiceEvaluateHandler_NothingSubmitted(t *testing.T) {
	t.Parallel()
	srv := newTestServer(&stubChat{}, &stubGen{}, &stubTranscriber{})

	body, ct := multipartBody(t, map[string]string{"questionId": "q-1"}, "", "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.VoiceEvaluateHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()
	srv := newTestServer(&stubChat{}, &stubGen{}, &stubTranscriber{})

	rec := httptest.NewRecorder()
	srv.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyHandler(t *testing.T) {
	t.Parallel()
	srv := newTestServer(&stubChat{}, &stubGen{}, &stubTranscriber{})

	rec := httptest.NewRecorder()
	srv.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	srv.Cfg.GeminiAPIKey = ""
	rec = httptest.NewRecorder()
	srv.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadyHandler_CacheFailureIsInformational(t *testing.T) {
	t.Parallel()
	srv := newTestServer(&stubChat{}, &stubGen{}, &stubTranscriber{})
	srv.RedisCheck = func(context.Context) error { return assert.AnError }

	rec := httptest.NewRecorder()
	srv.ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decodeBody(t, rec, &resp)
	checks := resp["checks"].(map[string]any)
	assert.NotEqual(t, "ok", checks["redis"])
}
