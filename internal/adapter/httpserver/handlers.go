package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/preppal/interview-prep-ai/internal/config"
	"github.com/preppal/interview-prep-ai/internal/domain"
	"github.com/preppal/interview-prep-ai/internal/usecase"
)

// Server bundles config and application services for the HTTP handlers.
type Server struct {
	Cfg        config.Config
	Generate   *usecase.GenerateService
	Voice      *usecase.VoiceService
	Resume     *usecase.ResumeService
	RedisCheck func(context.Context) error
}

// NewServer constructs an HTTP server with all handlers wired. redisCheck may
// be nil when caching is disabled.
func NewServer(cfg config.Config, gen *usecase.GenerateService, voice *usecase.VoiceService, resume *usecase.ResumeService, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Generate: gen, Voice: voice, Resume: resume, RedisCheck: redisCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// decodeAndValidate decodes a JSON body into req and runs struct validation.
// The body is capped at 1MB before this is called.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
		return false
	}
	if err := getValidator().Struct(req); err != nil {
		verrs := map[string]string{}
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
		return false
	}
	return true
}

// QuestionsHandler generates a personalized interview question set.
func (s *Server) QuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Role              string                `json:"role" validate:"required,max=200"`
			Experience        string                `json:"experience" validate:"required,max=50"`
			TopicsToFocus     []string              `json:"topicsToFocus" validate:"required,min=1,dive,max=200"`
			NumberOfQuestions int                   `json:"numberOfQuestions" validate:"required,min=1,max=50"`
			ResumeData        *domain.ResumeSummary `json:"resumeData"`
			InterviewType     string                `json:"interviewType" validate:"omitempty,oneof=general technical"`
		}
		if !decodeAndValidate(w, r, &req) {
			return
		}

		kind := domain.InterviewGeneral
		if req.InterviewType == string(domain.InterviewTechnical) {
			kind = domain.InterviewTechnical
		}
		pairs, err := s.Generate.GenerateQuestions(r.Context(), domain.GenerationRequest{
			Role:            req.Role,
			ExperienceYears: req.Experience,
			FocusTopics:     req.TopicsToFocus,
			QuestionCount:   req.NumberOfQuestions,
			Resume:          req.ResumeData,
			Kind:            kind,
		})
		if err != nil {
			LoggerFrom(r).Error("question generation failed", "error", err)
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, pairs)
	}
}

// ExplanationsHandler explains one interview question in depth.
func (s *Server) ExplanationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Question string `json:"question" validate:"required,max=2000"`
		}
		if !decodeAndValidate(w, r, &req) {
			return
		}
		exp, err := s.Generate.ExplainConcept(r.Context(), req.Question)
		if err != nil {
			LoggerFrom(r).Error("concept explanation failed", "error", err)
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, exp)
	}
}

// AnalysisHandler summarizes a finished session. It responds 200 even when
// the provider is down: the usecase degrades to a labeled fallback.
func (s *Server) AnalysisHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers []domain.AnsweredQuestion `json:"answers" validate:"required,min=1"`
		}
		if !decodeAndValidate(w, r, &req) {
			return
		}
		analysis, err := s.Generate.AnalyzeResults(r.Context(), req.Answers)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, analysis)
	}
}

// QuizHandler generates a remedial quiz from missed concepts.
func (s *Server) QuizHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			MissedConcepts []string                  `json:"missedConcepts" validate:"required,min=1,dive,max=500"`
			Topics         []string                  `json:"topics"`
			Answers        []domain.AnsweredQuestion `json:"answers"`
		}
		if !decodeAndValidate(w, r, &req) {
			return
		}
		quiz, err := s.Generate.GenerateQuiz(r.Context(), req.MissedConcepts, req.Topics, req.Answers)
		if err != nil {
			LoggerFrom(r).Error("quiz generation failed", "error", err)
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, quiz)
	}
}

// ResumeHandler parses an uploaded resume into a structured summary.
func (s *Server) ResumeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		data, declaredMIME, ok := readUploadedFile(w, r, "resume", maxBytes)
		if !ok {
			return
		}

		// Content sniffing; the declared type wins only when sniffing is
		// inconclusive (text/plain with a charset, say).
		mime := mimetype.Detect(data).String()
		if mime == "application/octet-stream" && declaredMIME != "" {
			mime = declaredMIME
		}

		summary, err := s.Resume.Parse(r.Context(), data, mime)
		if err != nil {
			LoggerFrom(r).Error("resume parsing failed", "error", err, "mime", mime)
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// VoiceEvaluateHandler transcribes and scores a recorded answer. The audio
// part is optional when a browser transcript is supplied.
func (s *Server) VoiceEvaluateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxAudioMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			if isBodyTooLarge(err) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code: "INVALID_ARGUMENT", Message: "payload too large",
					Details: map[string]any{"max_mb": s.Cfg.MaxAudioMB},
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		req := usecase.VoiceRequest{
			QuestionID:        r.FormValue("questionId"),
			QuestionText:      r.FormValue("questionText"),
			CorrectAnswer:     r.FormValue("correctAnswer"),
			BrowserTranscript: r.FormValue("browserTranscript"),
		}

		if file, header, err := r.FormFile("audio"); err == nil {
			defer func() { _ = file.Close() }()
			audio, rerr := io.ReadAll(file)
			if rerr != nil {
				writeError(w, r, fmt.Errorf("%w: audio read: %v", domain.ErrInvalidArgument, rerr), nil)
				return
			}
			req.Audio = audio
			req.MIME = header.Header.Get("Content-Type")
			if req.MIME == "" || req.MIME == "application/octet-stream" {
				req.MIME = mimetype.Detect(audio).String()
			}
		}

		if len(req.Audio) == 0 && strings.TrimSpace(req.BrowserTranscript) == "" && req.QuestionText == "" {
			writeError(w, r, fmt.Errorf("%w: no audio file or transcript received", domain.ErrInvalidArgument), nil)
			return
		}

		result, err := s.Voice.Evaluate(r.Context(), req)
		if err != nil {
			LoggerFrom(r).Error("voice evaluation failed", "error", err)
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// readUploadedFile parses the multipart form and reads one named file fully
// into memory, mapping an oversized body to 413.
func readUploadedFile(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		if isBodyTooLarge(err) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "payload too large",
			}})
			return nil, "", false
		}
		writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
		return nil, "", false
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %s file required", domain.ErrInvalidArgument, field), map[string]string{"field": field})
		return nil, "", false
	}
	defer func() { _ = file.Close() }()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %s read: %v", domain.ErrInvalidArgument, field, err), nil)
		return nil, "", false
	}
	return data, header.Header.Get("Content-Type"), true
}

func isBodyTooLarge(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "too large") || strings.Contains(msg, "request body too large")
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyHandler reports readiness. Missing provider keys make the service not
// ready; an unreachable cache does not, since the cache is optional.
func (s *Server) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}
		ready := true
		if s.Cfg.GeminiAPIKey == "" {
			checks["gemini"] = "missing GEMINI_API_KEY"
			ready = false
		} else {
			checks["gemini"] = "ok"
		}
		if s.Cfg.OpenRouterAPIKey == "" {
			checks["openrouter"] = "missing OPENROUTER_API_KEY"
			ready = false
		} else {
			checks["openrouter"] = "ok"
		}
		if s.RedisCheck != nil {
			if err := s.RedisCheck(r.Context()); err != nil {
				checks["redis"] = err.Error()
			} else {
				checks["redis"] = "ok"
			}
		}
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"ready": ready, "checks": checks})
	}
}
