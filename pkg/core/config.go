package core

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

// Request defaults applied by every exchange client.
const (
	DefaultMethod      = http.MethodGet
	DefaultContentType = "text/plain"
	DefaultUserAgent   = "tradegate/1.0"

	// DefaultRateLimitRequests and DefaultRateLimitPeriod bound each client to
	// 5 requests in any 15 second window.
	DefaultRateLimitRequests = 5
	DefaultRateLimitPeriod   = 15 * time.Second
)

// Credentials holds API authentication credentials for an exchange.
type Credentials struct {
	// APIKey is the public API key identifier.
	APIKey string `json:"api_key" mapstructure:"api_key"`
	// SecretKey is the private API key used for signing requests.
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`
	// Passphrase is an optional additional credential required by some exchanges.
	Passphrase string `json:"passphrase,omitempty" mapstructure:"passphrase"`
}

// Valid reports whether both halves of the key pair are present.
func (c *Credentials) Valid() bool {
	return c != nil && c.APIKey != "" && c.SecretKey != ""
}

// Config contains the options for one exchange client.
type Config struct {
	Exchange    string       `json:"exchange" validate:"required"`
	BaseURL     string       `json:"base_url" validate:"omitempty,url"`
	Credentials *Credentials `json:"credentials,omitempty"`

	// BackupCredentials are tried in order after the venue rejects the
	// active key pair.
	BackupCredentials []Credentials `json:"backup_credentials,omitempty"`

	// Timeout is the maximum duration for a single HTTP call.
	Timeout time.Duration `json:"timeout" validate:"min=1ms"`

	RateLimitRequests int           `json:"rate_limit_requests" validate:"min=1"`
	RateLimitPeriod   time.Duration `json:"rate_limit_period" validate:"min=1ms"`

	Method      string `json:"method" validate:"oneof=GET POST PUT DELETE"`
	ContentType string `json:"content_type" validate:"required"`
	UserAgent   string `json:"user_agent" validate:"required"`

	// LogLevel is the lowest level the client logs at. It only ever raises
	// the level of the logger the client was given.
	LogLevel string `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns a Config initialized with the defaults for the named exchange:
// 10s timeout, GET with text/plain, and 5 requests per 15 seconds.
func DefaultConfig(exchange string) *Config {
	return &Config{
		Exchange: exchange,
		Timeout:  10 * time.Second,

		RateLimitRequests: DefaultRateLimitRequests,
		RateLimitPeriod:   DefaultRateLimitPeriod,

		Method:      DefaultMethod,
		ContentType: DefaultContentType,
		UserAgent:   DefaultUserAgent,

		LogLevel: "info",
	}
}

var validate = validator.New()

// Validate checks the config against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%s: %w", ErrCodeInvalidConfig, err)
	}
	return nil
}

// WithCredentials sets the API credentials and returns the config for chaining.
func (c *Config) WithCredentials(creds *Credentials) *Config {
	c.Credentials = creds
	return c
}

// WithBackupCredentials appends key pairs to rotate to when the active one
// is rejected.
func (c *Config) WithBackupCredentials(creds ...Credentials) *Config {
	c.BackupCredentials = append(c.BackupCredentials, creds...)
	return c
}

// WithBaseURL overrides the exchange's default base URL.
func (c *Config) WithBaseURL(baseURL string) *Config {
	c.BaseURL = baseURL
	return c
}

// WithTimeout sets the request timeout and returns the config for chaining.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithRateLimit sets the rate limiting parameters and returns the config for chaining.
func (c *Config) WithRateLimit(requests int, period time.Duration) *Config {
	c.RateLimitRequests = requests
	c.RateLimitPeriod = period
	return c
}

// WithUserAgent sets the User-Agent header sent on every request.
func (c *Config) WithUserAgent(ua string) *Config {
	c.UserAgent = ua
	return c
}
