package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrTransport is returned when no response was received
	ErrTransport = errors.New("api unreachable")
	// ErrUnauthorized matches 401 responses
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound matches 404 responses
	ErrNotFound = errors.New("not found")
	// ErrValidation matches 400 and 422 responses
	ErrValidation = errors.New("validation failed")
	// ErrConflict matches 409 and 412 responses
	ErrConflict = errors.New("conflict")
)

// Error is a non-2xx response from the API. The body is kept untouched so
// callers can render field errors the way the server reported them.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Detail     string
	Fields     map[string][]string
	Body       []byte
}

func (e *Error) Error() string {
	msg := e.Detail
	if msg == "" && len(e.Fields) > 0 {
		msg = e.FieldSummary()
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// Is lets errors.Is match an *Error against the status sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrValidation:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	case ErrConflict:
		return e.StatusCode == http.StatusConflict || e.StatusCode == http.StatusPreconditionFailed
	}
	return false
}

// FieldSummary joins field errors as "field: message" pairs in a stable order.
func (e *Error) FieldSummary() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
	}
	return strings.Join(parts, "; ")
}

// newError decodes the DRF error shapes: {"detail": "..."} and {"field": ["msg", ...]}.
func newError(method, path string, status int, body []byte) *Error {
	apiErr := &Error{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Body:       body,
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}

	for key, raw := range payload {
		if key == "detail" {
			var detail string
			if json.Unmarshal(raw, &detail) == nil {
				apiErr.Detail = detail
			}
			continue
		}
		var messages []string
		if json.Unmarshal(raw, &messages) == nil {
			if apiErr.Fields == nil {
				apiErr.Fields = make(map[string][]string)
			}
			apiErr.Fields[key] = messages
			continue
		}
		var message string
		if json.Unmarshal(raw, &message) == nil {
			if apiErr.Fields == nil {
				apiErr.Fields = make(map[string][]string)
			}
			apiErr.Fields[key] = []string{message}
		}
	}
	return apiErr
}

// StatusCode returns the HTTP status of err, or 0 when err is not an API response.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
