package stashcat

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultPageSize is the page size used when listing conversations
	// and messages.
	DefaultPageSize = 64

	defaultRetries = 3
)

// clientConfig holds configuration for the client.
type clientConfig struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	retries    int
	retryOn    []int
	deviceID   string
	clientKey  string
	appName    string
	logger     zerolog.Logger
	metrics    *Metrics
	rateLimit  float64
	rateBurst  int
	pageSize   int
}

// componentConfig holds configuration shared by KeyStore and Decryptor.
type componentConfig struct {
	logger  zerolog.Logger
	metrics *Metrics
}

// Option configures the client.
type Option func(*clientConfig)

// ComponentOption configures a KeyStore or Decryptor.
type ComponentOption func(*componentConfig)

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		retries:  defaultRetries,
		logger:   zerolog.Nop(),
		pageSize: DefaultPageSize,
	}
}

func newComponentConfig(opts []ComponentOption) *componentConfig {
	cfg := &componentConfig{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithBaseURL sets the API base URL. A URL without scheme gets https.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets the number of retries for failed requests. Zero
// disables retrying.
func WithRetries(count int) Option {
	return func(c *clientConfig) {
		c.retries = count
	}
}

// WithRetryOn sets the HTTP status codes that trigger a retry.
func WithRetryOn(statusCodes []int) Option {
	return func(c *clientConfig) {
		c.retryOn = statusCodes
	}
}

// WithDeviceID sets the device identifier sent with every request.
// A random one is generated otherwise.
func WithDeviceID(id string) Option {
	return func(c *clientConfig) {
		c.deviceID = id
	}
}

// WithClientKey resumes an existing session instead of calling Login.
func WithClientKey(key string) Option {
	return func(c *clientConfig) {
		c.clientKey = key
	}
}

// WithAppName sets the application name reported on login.
func WithAppName(name string) Option {
	return func(c *clientConfig) {
		c.appName = name
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithMetrics enables Prometheus counters.
func WithMetrics(m *Metrics) Option {
	return func(c *clientConfig) {
		c.metrics = m
	}
}

// WithRateLimit paces requests to rps per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *clientConfig) {
		c.rateLimit = rps
		c.rateBurst = burst
	}
}

// WithPageSize sets the page size for listing conversations and messages.
func WithPageSize(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithComponentLogger sets the logger of a KeyStore or Decryptor.
func WithComponentLogger(logger zerolog.Logger) ComponentOption {
	return func(c *componentConfig) {
		c.logger = logger
	}
}

// WithComponentMetrics sets the metrics of a KeyStore or Decryptor.
func WithComponentMetrics(m *Metrics) ComponentOption {
	return func(c *componentConfig) {
		c.metrics = m
	}
}
