package api

import (
	"errors"
	"fmt"
	"strings"
)

// Common API errors that can be checked with errors.Is.
var (
	// ErrNotAuthenticated indicates an authenticated call was attempted
	// before a client key was set.
	ErrNotAuthenticated = errors.New("not authenticated: no client key")
	// ErrUnauthorized indicates the client key is invalid or expired.
	ErrUnauthorized = errors.New("invalid or expired client key")
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// APIError is a failure reported by the server, either through the HTTP
// status or through a response envelope whose status value is not "OK".
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Status is the envelope's status value, empty for plain HTTP errors.
	Status       string
	ShortMessage string
	Message      string
	Path         string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "API error %d", e.StatusCode)
	if e.Path != "" {
		fmt.Fprintf(&b, " on %s", e.Path)
	}
	switch {
	case e.ShortMessage != "" && e.Message != "":
		fmt.Fprintf(&b, ": %s (%s)", e.Message, e.ShortMessage)
	case e.Message != "":
		fmt.Fprintf(&b, ": %s", e.Message)
	case e.ShortMessage != "":
		fmt.Fprintf(&b, ": %s", e.ShortMessage)
	case e.Status != "":
		fmt.Fprintf(&b, ": status %s", e.Status)
	}
	return b.String()
}

// StashcatError implements the StashcatError interface.
func (e *APIError) StashcatError() {}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 401, 403:
		return target == ErrUnauthorized
	case 404:
		return target == ErrNotFound
	case 429:
		return target == ErrRateLimited
	}

	short := strings.ToLower(e.ShortMessage)
	switch {
	case strings.Contains(short, "auth"), strings.Contains(short, "login"):
		return target == ErrUnauthorized
	case strings.Contains(short, "not_found"), strings.Contains(short, "notfound"):
		return target == ErrNotFound
	}
	return false
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StashcatError implements the StashcatError interface.
func (e *NetworkError) StashcatError() {}
