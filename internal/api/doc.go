// Package api provides the HTTP client for the stashcat REST API. It handles
// authentication, form encoding, response envelope decoding, pacing and
// automatic retries with exponential backoff for transient failures.
//
// # Protocol
//
// Every call is an HTTP POST with a form-encoded body. Authenticated calls
// carry the session's client_key and the device_id it was issued to. The
// server answers with a JSON envelope:
//
//	{"status": {"value": "OK", "short_message": "", "message": ""}, "payload": {...}}
//
// A status value other than "OK" is reported as an [*APIError]. The payload
// is decoded into the endpoint's response type. File downloads are the
// exception and return the raw body.
//
// # Retry Behavior
//
// Transport failures and these HTTP status codes are retried, up to 3 times
// by default:
//
//   - 408 Request Timeout
//   - 429 Too Many Requests
//   - 500 Internal Server Error
//   - 502 Bad Gateway
//   - 503 Service Unavailable
//   - 504 Gateway Timeout
//
// Delays grow exponentially from [RetryConfig.BaseDelay] with jitter. An
// "OK"-less envelope is never retried; it is the server's final answer.
//
// # Rate Limiting
//
// [Config.RateLimit] installs a token bucket (golang.org/x/time/rate) that
// every attempt, including retries, must pass before it is sent.
//
// # Error Handling
//
//   - [ErrNotAuthenticated]: an authenticated call was made without a client key.
//   - [ErrUnauthorized]: the server rejected the client key (401/403).
//   - [ErrNotFound]: the resource does not exist (404).
//   - [ErrRateLimited]: the server is throttling the client (429).
//
// Use errors.Is to check for them.
//
// # Thread Safety
//
// [Client] is safe for concurrent use.
package api
