// Package httpserver contains HTTP handlers and middleware.
//
// It exposes the REST API for question generation, concept explanation,
// session analysis, quiz generation, resume parsing, and voice evaluation.
// The package keeps HTTP concerns separate from the application services.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/preppal/interview-prep-ai/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrConfiguration):
		codeStr = "CONFIGURATION"
	case errors.Is(err, domain.ErrRateLimited):
		codeStr = "RATE_LIMITED"
		msg = "Rate limit exceeded. Please wait 2-3 minutes and try again."
	case errors.Is(err, domain.ErrUnparsable):
		codeStr = "UNPARSABLE_RESPONSE"
		var ue *domain.UnparsableResponseError
		if details == nil && errors.As(err, &ue) {
			details = map[string]any{"raw_len": ue.RawLen, "reason": ue.Reason}
		}
	case errors.Is(err, domain.ErrProvider):
		codeStr = "PROVIDER"
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: msg, Details: details}})
}
