package api

import (
	"errors"
	"net/http"
	"testing"
)

func TestNewError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		wantFields map[string][]string
		sentinel   error
	}{
		{
			name:       "detail",
			status:     http.StatusNotFound,
			body:       `{"detail": "Not found."}`,
			wantDetail: "Not found.",
			sentinel:   ErrNotFound,
		},
		{
			name:       "field list",
			status:     http.StatusBadRequest,
			body:       `{"email": ["Enter a valid email address."], "password1": ["Too short.", "Too common."]}`,
			wantFields: map[string][]string{"email": {"Enter a valid email address."}, "password1": {"Too short.", "Too common."}},
			sentinel:   ErrValidation,
		},
		{
			name:       "field string",
			status:     http.StatusUnprocessableEntity,
			body:       `{"value": "must be positive"}`,
			wantFields: map[string][]string{"value": {"must be positive"}},
			sentinel:   ErrValidation,
		},
		{
			name:     "not json",
			status:   http.StatusConflict,
			body:     `<html>conflict</html>`,
			sentinel: ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newError(http.MethodPost, "habits/", tt.status, []byte(tt.body))
			if err.Detail != tt.wantDetail {
				t.Errorf("Detail = %q, want %q", err.Detail, tt.wantDetail)
			}
			if len(err.Fields) != len(tt.wantFields) {
				t.Fatalf("Fields = %v, want %v", err.Fields, tt.wantFields)
			}
			for k, want := range tt.wantFields {
				got := err.Fields[k]
				if len(got) != len(want) {
					t.Errorf("Fields[%s] = %v, want %v", k, got, want)
					continue
				}
				for i := range want {
					if got[i] != want[i] {
						t.Errorf("Fields[%s][%d] = %q, want %q", k, i, got[i], want[i])
					}
				}
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
			if string(err.Body) != tt.body {
				t.Errorf("Body was not kept verbatim")
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := newError(http.MethodGet, "tags/", http.StatusServiceUnavailable, nil)
	if got, want := err.Error(), "GET tags/: 503 Service Unavailable"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = newError(http.MethodPost, "auth/registration/", http.StatusBadRequest,
		[]byte(`{"password2": ["mismatch"], "email": ["taken"]}`))
	if got, want := err.FieldSummary(), "email: taken; password2: mismatch"; got != want {
		t.Errorf("FieldSummary() = %q, want %q", got, want)
	}
}

func TestStatusCode(t *testing.T) {
	if got := StatusCode(errors.New("plain")); got != 0 {
		t.Errorf("StatusCode(plain) = %d, want 0", got)
	}
	wrapped := errors.Join(errors.New("context"), newError(http.MethodGet, "x/", http.StatusTeapot, nil))
	if got := StatusCode(wrapped); got != http.StatusTeapot {
		t.Errorf("StatusCode(wrapped) = %d, want 418", got)
	}
}
