package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
)

const maxBodyBytes = 4 << 20

// Error codes returned in {"error":{"code":...}}.
const (
	codeNotFound            = "not_found"
	codeInvalidMode         = "invalid_mode"
	codeNoActiveSession     = "no_active_session"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeValidation          = "validation_error"
	codeRateLimited         = "rate_limited"
	codeUnauthorized        = "unauthorized"
	codeInternal            = "internal_error"
)

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// writeAppError maps the error kinds in models to HTTP statuses.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidMode):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidMode, err.Error())
	case errors.Is(err, models.ErrNoActiveSession):
		writeError(w, http.StatusBadRequest, codeNoActiveSession, "no active chat session, activate one with POST /v1/chats/active")
	case errors.Is(err, models.ErrUpstreamUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, codeUpstreamUnavailable, err.Error())
	case errors.Is(err, models.ErrValidation):
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
	}
}

// decodeJSON reads a JSON body into v. An empty body yields io.EOF.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return io.EOF
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("%w: invalid request body: %v", models.ErrValidation, err)
	}
	return nil
}
