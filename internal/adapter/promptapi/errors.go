package promptapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Strob0t/PromptForge/internal/domain"
)

// APIError is a non-success response from the prompt backend.
type APIError struct {
	Op     string // operation label, e.g. "save persona"
	Status int
	Detail string // backend-provided detail; may be empty
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prompt backend %s: status %d: %s", e.Op, e.Status, e.UserMessage())
}

// UserMessage returns the backend detail, or a generic message naming the
// failed operation when the backend sent none.
func (e *APIError) UserMessage() string {
	if e.Detail != "" {
		return e.Detail
	}
	return "Failed to " + e.Op
}

// Unwrap maps the status onto the domain sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return domain.ErrNotFound
	case e.Status == http.StatusConflict:
		return domain.ErrConflict
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return domain.ErrValidation
	case e.Status >= http.StatusInternalServerError:
		return domain.ErrUnavailable
	}
	return nil
}

// IsAPIError reports whether err carries a backend response (as opposed to
// a transport failure).
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// detailOf extracts the detail field of an error body. The backend sends either
// a string or a list of validation items; only the string form is used.
func detailOf(body []byte) string {
	var d struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &d); err != nil {
		return ""
	}
	if s, ok := d.Detail.(string); ok {
		return s
	}
	return ""
}
