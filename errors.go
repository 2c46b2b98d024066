package stashcat

import (
	"errors"
	"fmt"

	"github.com/stashcat/client-go/internal/api"
	"github.com/stashcat/client-go/internal/crypto"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrCrypto matches every CryptoError.
	ErrCrypto = errors.New("cryptographic operation failed")

	// ErrProtocol matches every ProtocolError.
	ErrProtocol = errors.New("unexpected server data")

	// ErrValue matches every ValueError.
	ErrValue = errors.New("invalid value")

	// ErrEncoding matches every EncodingError.
	ErrEncoding = errors.New("decrypted text is not valid UTF-8")

	// ErrWrongPassphrase matches CryptoErrors raised by Unlock at a step
	// that depends on the passphrase.
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted key")

	// ErrLocked is returned when decryption is attempted before Unlock.
	ErrLocked = errors.New("encryption keys are locked")

	// ErrNotAuthenticated is returned when an API call needs a session
	// and none has been established.
	ErrNotAuthenticated = errors.New("not logged in")

	// ErrUnauthorized is returned when the server rejects the session.
	ErrUnauthorized = errors.New("invalid or expired session")

	// ErrNotFound is returned when the server does not know a resource.
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimited is returned when the API rate limit is exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// StashcatError is implemented by all SDK errors.
type StashcatError interface {
	error
	StashcatError() // marker method
}

// CryptoError is a failed cipher, padding, key derivation or RSA
// operation. It is terminal; retrying with the same inputs fails again.
type CryptoError struct {
	Op  string
	Err error

	wrongPassphrase bool
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto error: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *CryptoError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *CryptoError) Is(target error) bool {
	return target == ErrCrypto || (e.wrongPassphrase && target == ErrWrongPassphrase)
}

// StashcatError implements the StashcatError interface.
func (e *CryptoError) StashcatError() {}

// ProtocolError means the server sent data of a shape this client does
// not understand: malformed hex or base64, an unknown key envelope,
// missing derivation parameters, an unresolved sender.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// StashcatError implements the StashcatError interface.
func (e *ProtocolError) StashcatError() {}

// ValueError reports an unknown chat or a missing required field.
type ValueError struct {
	Field   string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is implements errors.Is for sentinel error matching.
func (e *ValueError) Is(target error) bool {
	return target == ErrValue
}

// StashcatError implements the StashcatError interface.
func (e *ValueError) StashcatError() {}

// EncodingError means decryption succeeded but the plaintext is not UTF-8.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encoding error: %v", e.Err)
	}
	return ErrEncoding.Error()
}

// Unwrap returns the underlying error.
func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

// StashcatError implements the StashcatError interface.
func (e *EncodingError) StashcatError() {}

// APIError is a failure reported by the stashcat API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Status is the response envelope's status value, e.g. "ERROR".
	Status       string
	ShortMessage string
	Message      string
	Path         string
}

func (e *APIError) Error() string {
	return e.internal().Error()
}

func (e *APIError) internal() *api.APIError {
	return &api.APIError{
		StatusCode:   e.StatusCode,
		Status:       e.Status,
		ShortMessage: e.ShortMessage,
		Message:      e.Message,
		Path:         e.Path,
	}
}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	in := e.internal()
	switch target {
	case ErrUnauthorized:
		return in.Is(api.ErrUnauthorized)
	case ErrNotFound:
		return in.Is(api.ErrNotFound)
	case ErrRateLimited:
		return in.Is(api.ErrRateLimited)
	}
	return false
}

// StashcatError implements the StashcatError interface.
func (e *APIError) StashcatError() {}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StashcatError implements the StashcatError interface.
func (e *NetworkError) StashcatError() {}

// wrapError converts internal API errors to public errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, api.ErrNotAuthenticated) {
		return ErrNotAuthenticated
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode:   apiErr.StatusCode,
			Status:       apiErr.Status,
			ShortMessage: apiErr.ShortMessage,
			Message:      apiErr.Message,
			Path:         apiErr.Path,
		}
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return &NetworkError{
			Err:     netErr.Err,
			URL:     netErr.URL,
			Attempt: netErr.Attempt,
		}
	}

	return err
}

// wrapCryptoError classifies an error from the crypto package. Errors
// that already carry a public type pass through unchanged.
func wrapCryptoError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se StashcatError
	if errors.As(err, &se) {
		return err
	}
	if crypto.IsProtocolError(err) {
		return &ProtocolError{Reason: op, Err: err}
	}
	return &CryptoError{Op: op, Err: err}
}
