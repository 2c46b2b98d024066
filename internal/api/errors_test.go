package api

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAPIError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		target error
		want   bool
	}{
		{"401 unauthorized", &APIError{StatusCode: 401}, ErrUnauthorized, true},
		{"403 unauthorized", &APIError{StatusCode: 403}, ErrUnauthorized, true},
		{"404 not found", &APIError{StatusCode: 404}, ErrNotFound, true},
		{"429 rate limited", &APIError{StatusCode: 429}, ErrRateLimited, true},
		{"404 is not unauthorized", &APIError{StatusCode: 404}, ErrUnauthorized, false},
		{"envelope auth failure", &APIError{StatusCode: 200, Status: "ERROR", ShortMessage: "auth_invalid"}, ErrUnauthorized, true},
		{"envelope login required", &APIError{StatusCode: 200, Status: "ERROR", ShortMessage: "login_required"}, ErrUnauthorized, true},
		{"envelope not found", &APIError{StatusCode: 200, Status: "ERROR", ShortMessage: "key_not_found"}, ErrNotFound, true},
		{"envelope other", &APIError{StatusCode: 200, Status: "ERROR", ShortMessage: "bad_input"}, ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.want)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want []string
	}{
		{"status only", &APIError{StatusCode: 500}, []string{"API error 500"}},
		{"with path", &APIError{StatusCode: 404, Path: "/users/info"}, []string{"404", "/users/info"}},
		{"both messages", &APIError{StatusCode: 200, ShortMessage: "auth_invalid", Message: "Session expired"}, []string{"Session expired", "auth_invalid"}},
		{"status value", &APIError{StatusCode: 200, Status: "ERROR"}, []string{"status ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Error() = %q, want it to contain %q", got, w)
				}
			}
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := &NetworkError{Err: inner, URL: "https://api.example.com/x", Attempt: 2}

	if !errors.Is(err, inner) {
		t.Error("errors.Is(NetworkError, inner) = false")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q", err.Error())
	}
}
