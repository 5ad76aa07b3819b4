package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/PromptForge/internal/domain"
	"github.com/Strob0t/PromptForge/internal/domain/prompt"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// idParam parses the positive integer URL parameter "id", writing a 400
// when it is not one.
func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid identifier format")
		return 0, false
	}
	return id, true
}

// queryInt returns the integer query parameter name, or def when absent or
// malformed.
func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// userMessager is implemented by backend errors that carry a message fit
// for display.
type userMessager interface {
	UserMessage() string
}

// writeDomainError maps err onto a status code. Backend error details are
// passed through; fallbackMsg is used when there is none.
func writeDomainError(w http.ResponseWriter, err error, fallbackMsg string) {
	msg := fallbackMsg
	var um userMessager
	hasDetail := errors.As(err, &um)
	if hasDetail {
		msg = um.UserMessage()
	}

	switch {
	case errors.Is(err, domain.ErrProtected):
		writeError(w, http.StatusConflict, strings.TrimSuffix(err.Error(), ": "+domain.ErrProtected.Error()))
	case errors.Is(err, domain.ErrValidation):
		if !hasDetail {
			msg = strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
		}
		writeError(w, http.StatusBadRequest, msg)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, msg)
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, msg)
	case errors.Is(err, domain.ErrUnavailable):
		slog.Warn("prompt backend unavailable", "error", err)
		if !hasDetail {
			msg = "prompt backend unavailable"
		}
		writeError(w, http.StatusBadGateway, msg)
	case errors.Is(err, prompt.ErrMalformed):
		slog.Warn("malformed backend response", "error", err)
		writeError(w, http.StatusBadGateway, "prompt backend returned malformed data")
	case hasDetail:
		writeError(w, http.StatusBadGateway, msg)
	default:
		writeInternalError(w, err)
	}
}

// writeInternalError logs the actual error server-side and returns a generic message to the client.
func writeInternalError(w http.ResponseWriter, err error) {
	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
