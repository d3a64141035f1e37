package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ecogarden-sync-go/internal/models"
)

// APIError is a rejection reported by the backend. Message is the
// server-provided text when the body carried one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// IsAPIError reports whether err is, or wraps, a server rejection
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// Message returns the user-facing text of err: the server message for an
// APIError, otherwise err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func newAPIError(status int, body []byte) *APIError {
	msg := extractMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

// extractMessage reads "message" or "detail" out of an error body. Validation
// failures arrive with detail as a list of objects carrying "msg".
func extractMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var parsed models.ErrorResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return strings.TrimSpace(string(body))
	}
	if parsed.Message != "" {
		return parsed.Message
	}

	switch detail := parsed.Detail.(type) {
	case string:
		return detail
	case []any:
		var parts []string
		for _, item := range detail {
			if obj, ok := item.(map[string]any); ok {
				if msg, ok := obj["msg"].(string); ok {
					parts = append(parts, msg)
				}
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}
