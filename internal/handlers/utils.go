package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"

	"github.com/notekeeper/apiserver/internal/services"
)

const (
	maxBodyBytes = 1 << 20

	msgInvalidBody    = "Invalid request body"
	msgInternalError  = "Internal server error"
	msgTimedOut       = "Request timed out"
	msgRouteNotFound  = "Route not found"
	msgMethodNotAllow = "Method not allowed"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse acknowledges a write that returns no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps a service error to its status. Unclassified errors
// are logged with the request and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		switch svcErr.Kind {
		case services.KindValidation:
			writeError(w, http.StatusBadRequest, svcErr.Message)
			return
		case services.KindConflict:
			writeError(w, http.StatusConflict, svcErr.Message)
			return
		case services.KindAuthentication:
			writeError(w, http.StatusUnauthorized, svcErr.Message)
			return
		case services.KindNotFound:
			writeError(w, http.StatusNotFound, svcErr.Message)
			return
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		hlog.FromRequest(r).Warn().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request deadline exceeded")
		writeError(w, http.StatusGatewayTimeout, msgTimedOut)
		return
	}

	hlog.FromRequest(r).Error().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("unhandled error")
	writeError(w, http.StatusInternalServerError, msgInternalError)
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst at its
// zero value so that field-level checks produce the error message.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

// parseID reads a positive integer URL parameter.
func parseID(r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, msgRouteNotFound)
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllow)
}
