package api

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public stashcat API endpoint.
	DefaultBaseURL = "https://api.stashcat.com"
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second
	// DefaultAppName is reported to the server on login.
	DefaultAppName = "stashcat-client-go"
	// DeviceIDLength is the length of generated device identifiers.
	DeviceIDLength = 32

	statusOK = "OK"
)

// Config holds the API client configuration.
type Config struct {
	// BaseURL defaults to DefaultBaseURL. A missing scheme becomes https.
	BaseURL string
	// DeviceID identifies this client to the server. Generated when empty.
	DeviceID string
	// ClientKey is an existing session key. Optional; set by Login.
	ClientKey  string
	AppName    string
	UserAgent  string
	HTTPClient *http.Client
	Timeout    time.Duration
	// Retry defaults to DefaultRetryConfig.
	Retry *RetryConfig
	// RateLimit is the sustained request rate per second. Zero disables pacing.
	RateLimit float64
	// RateBurst defaults to 1 when RateLimit is set.
	RateBurst int
	Logger    zerolog.Logger
}

// Client is the HTTP API client.
type Client struct {
	baseURL    string
	deviceID   string
	appName    string
	userAgent  string
	httpClient *http.Client
	retry      *RetryConfig
	limiter    *rate.Limiter
	logger     zerolog.Logger

	mu        sync.RWMutex
	clientKey string
}

// NewClient creates a new API client.
func NewClient(cfg Config) (*Client, error) {
	baseURL, err := NormalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	deviceID := cfg.DeviceID
	if deviceID == "" {
		deviceID, err = NewDeviceID()
		if err != nil {
			return nil, err
		}
	}

	c := &Client{
		baseURL:    baseURL,
		deviceID:   deviceID,
		appName:    cfg.AppName,
		userAgent:  cfg.UserAgent,
		httpClient: cfg.HTTPClient,
		retry:      cfg.Retry,
		logger:     cfg.Logger,
		clientKey:  cfg.ClientKey,
	}

	if c.appName == "" {
		c.appName = DefaultAppName
	}
	if c.userAgent == "" {
		c.userAgent = DefaultAppName
	}
	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.retry == nil {
		c.retry = DefaultRetryConfig()
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return c, nil
}

// NormalizeBaseURL returns raw with an https scheme added when missing and
// trailing slashes removed. Empty input yields DefaultBaseURL.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultBaseURL, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid base URL %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

const deviceIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewDeviceID returns a random alphanumeric device identifier.
func NewDeviceID() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(deviceIDAlphabet)))
	for i := 0; i < DeviceIDLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate device id: %w", err)
		}
		b.WriteByte(deviceIDAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DeviceID returns the device identifier sent with authenticated calls.
func (c *Client) DeviceID() string {
	return c.deviceID
}

// ClientKey returns the current session key, empty before login.
func (c *Client) ClientKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientKey
}

// SetClientKey replaces the session key.
func (c *Client) SetClientKey(key string) {
	c.mu.Lock()
	c.clientKey = key
	c.mu.Unlock()
}

// Do posts form to path with the session credentials and decodes the
// response payload into result, which may be nil.
func (c *Client) Do(ctx context.Context, path string, form url.Values, result any) error {
	return c.post(ctx, path, form, true, result)
}

func (c *Client) post(ctx context.Context, path string, form url.Values, auth bool, result any) error {
	form, err := c.withAuth(form, auth)
	if err != nil {
		return err
	}

	body, _, err := c.send(ctx, path, nil, form)
	if err != nil {
		return err
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	if env.Status.Value != statusOK {
		return &APIError{
			StatusCode:   http.StatusOK,
			Status:       env.Status.Value,
			ShortMessage: env.Status.ShortMessage,
			Message:      env.Status.Message,
			Path:         path,
		}
	}

	if result != nil && len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, result); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", path, err)
		}
	}
	return nil
}

func (c *Client) withAuth(form url.Values, auth bool) (url.Values, error) {
	out := url.Values{}
	for k, v := range form {
		out[k] = append([]string(nil), v...)
	}
	if !auth {
		return out, nil
	}

	key := c.ClientKey()
	if key == "" {
		return nil, ErrNotAuthenticated
	}
	out.Set("client_key", key)
	out.Set("device_id", c.deviceID)
	return out, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// send performs the POST with pacing and retries and returns the body of
// the first non-error response.
func (c *Client) send(ctx context.Context, path string, query, form url.Values) ([]byte, http.Header, error) {
	endpoint := c.endpoint(path, query)
	encoded := form.Encode()

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(encoded))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		var body []byte
		if err == nil {
			body, err = io.ReadAll(resp.Body)
			resp.Body.Close()
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			netErr := &NetworkError{Err: err, URL: endpoint, Attempt: attempt + 1}
			if !c.retry.ShouldRetryNetwork(attempt) {
				return nil, nil, netErr
			}
			c.logger.Debug().Err(err).Str("path", path).Int("attempt", attempt+1).Msg("retrying after network error")
			if err := c.retry.Wait(ctx, attempt); err != nil {
				return nil, nil, err
			}
			continue
		}

		if resp.StatusCode >= 400 {
			if c.retry.ShouldRetry(attempt, resp.StatusCode) {
				c.logger.Debug().Int("status", resp.StatusCode).Str("path", path).Int("attempt", attempt+1).Msg("retrying after HTTP error")
				if err := c.retry.Wait(ctx, attempt); err != nil {
					return nil, nil, err
				}
				continue
			}
			return nil, nil, parseErrorResponse(resp.StatusCode, body, path)
		}

		return body, resp.Header, nil
	}
}

func parseErrorResponse(statusCode int, body []byte, path string) error {
	apiErr := &APIError{StatusCode: statusCode, Path: path}

	var env Envelope
	if err := json.Unmarshal(body, &env); err == nil && (env.Status.Value != "" || env.Status.Message != "") {
		apiErr.Status = env.Status.Value
		apiErr.ShortMessage = env.Status.ShortMessage
		apiErr.Message = env.Status.Message
		return apiErr
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	apiErr.Message = msg
	return apiErr
}

func isJSON(h http.Header) bool {
	mt, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
