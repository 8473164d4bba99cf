// Package config provides configuration management for the Brein SDK.
//
// A Config holds credentials, the API base URL, per-request-kind endpoints and
// transport timeouts. It is created once by the caller and shared read-only by
// every request dispatched through it; it carries no internal locking and must
// not be mutated while requests are in flight.
//
// # Configuration Sources Priority
//
// Configuration is loaded in the following order (later sources override earlier ones):
//  1. Default values (set via SetConfigDefaults)
//  2. Configuration files (./brein.yaml, ./configs/brein.yaml, ~/.brein/brein.yaml, /etc/brein/brein.yaml)
//  3. .env files
//  4. Environment variables (configurable prefix, default: BREIN_)
//
// # Usage Example
//
//	cfg, err := config.LoadConfig("BREIN", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("API: %s%s\n", cfg.BaseURL, cfg.Endpoints.Activity)
//
// # Environment Variables
//
// Use prefix and underscores for nested keys:
//   - BREIN_API_KEY=...
//   - BREIN_SECRET=...
//   - BREIN_ENDPOINTS_ACTIVITY=/activity
//   - BREIN_DISPATCH_WORKERS=8
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"brein.evalgo.org/brerr"
)

// Breinify API defaults.
const (
	DefaultBaseURL                = "https://api.breinify.com"
	DefaultActivityEndpoint       = "/activity"
	DefaultLookupEndpoint         = "/lookup"
	DefaultTemporalDataEndpoint   = "/temporaldata"
	DefaultRecommendationEndpoint = "/recommendation"
	DefaultConnectionTimeout      = 10 * time.Second
	DefaultSocketTimeout          = 10 * time.Second
	DefaultWorkers                = 4
	DefaultQueueSize              = 128
)

// EndpointsConfig maps each request kind to its path below the base URL.
type EndpointsConfig struct {
	Activity       string `mapstructure:"activity"`
	Lookup         string `mapstructure:"lookup"`
	TemporalData   string `mapstructure:"temporal_data"`
	Recommendation string `mapstructure:"recommendation"`
}

// DispatchConfig sizes the worker pool that performs network I/O.
type DispatchConfig struct {
	// Workers is the number of goroutines sending requests
	Workers int `mapstructure:"workers"`

	// QueueSize bounds the number of accepted but not yet sent requests
	QueueSize int `mapstructure:"queue_size"`

	// RateLimit is the maximum requests per second (0 = unlimited)
	RateLimit float64 `mapstructure:"rate_limit"`

	// Burst is the rate limiter bucket size
	Burst int `mapstructure:"burst"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error)
	Level string `mapstructure:"level"`

	// Format is the log format (json, text)
	Format string `mapstructure:"format"`
}

// StoreConfig selects the backend remembering user defaults across restarts.
type StoreConfig struct {
	// Driver is "bolt", "redis" or empty for no persistence
	Driver string `mapstructure:"driver"`

	// Path is the bbolt database file
	Path string `mapstructure:"path"`

	// RedisURL is the redis connection URL
	RedisURL string `mapstructure:"redis_url"`

	// KeyPrefix namespaces redis keys
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Config is the SDK configuration record.
type Config struct {
	APIKey          string          `mapstructure:"api_key"`
	Secret          string          `mapstructure:"secret"`
	BaseURL         string          `mapstructure:"base_url"`
	Endpoints       EndpointsConfig `mapstructure:"endpoints"`
	DefaultCategory string          `mapstructure:"default_category"`

	// ConnectionTimeout bounds establishing the TCP/TLS connection
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout"`

	// SocketTimeout bounds waiting for the response once connected
	SocketTimeout time.Duration `mapstructure:"socket_timeout"`

	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Store    StoreConfig    `mapstructure:"store"`
}

// Default returns a configuration with every default applied and no credentials.
func Default() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Endpoints: EndpointsConfig{
			Activity:       DefaultActivityEndpoint,
			Lookup:         DefaultLookupEndpoint,
			TemporalData:   DefaultTemporalDataEndpoint,
			Recommendation: DefaultRecommendationEndpoint,
		},
		ConnectionTimeout: DefaultConnectionTimeout,
		SocketTimeout:     DefaultSocketTimeout,
		Dispatch: DispatchConfig{
			Workers:   DefaultWorkers,
			QueueSize: DefaultQueueSize,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// New returns a default configuration carrying the given credentials.
func New(apiKey, secret string) *Config {
	cfg := Default()
	cfg.APIKey = apiKey
	cfg.Secret = secret
	return cfg
}

// SignRequests reports whether requests issued with this config are signed.
func (c *Config) SignRequests() bool {
	return c.Secret != ""
}

// Endpoint returns the path configured for a request kind ("activity",
// "lookup", "temporaldata" or "recommendation"). Unknown kinds yield "".
func (c *Config) Endpoint(kind string) string {
	switch kind {
	case "activity":
		return c.Endpoints.Activity
	case "lookup":
		return c.Endpoints.Lookup
	case "temporaldata":
		return c.Endpoints.TemporalData
	case "recommendation":
		return c.Endpoints.Recommendation
	default:
		return ""
	}
}

// Validate checks the configuration for values that can never work.
// A missing API key is not checked here; it is reported when a request is dispatched.
func (c *Config) Validate() error {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return brerr.Wrap(brerr.KindConfiguration, "config.Validate", err, "invalid base url %q", c.BaseURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return brerr.Configuration("config.Validate", "base url %q must use http or https", c.BaseURL)
		}
		if u.Host == "" {
			return brerr.Configuration("config.Validate", "base url %q has no host", c.BaseURL)
		}
	}
	if c.ConnectionTimeout < 0 {
		return brerr.Configuration("config.Validate", "connection timeout must not be negative")
	}
	if c.SocketTimeout < 0 {
		return brerr.Configuration("config.Validate", "socket timeout must not be negative")
	}
	if c.Dispatch.Workers < 0 || c.Dispatch.QueueSize < 0 {
		return brerr.Configuration("config.Validate", "dispatch workers and queue size must not be negative")
	}
	if c.Dispatch.RateLimit < 0 {
		return brerr.Configuration("config.Validate", "invalid rate limit: %v", c.Dispatch.RateLimit)
	}
	switch c.Store.Driver {
	case "", "bolt", "redis":
	default:
		return brerr.Configuration("config.Validate", "unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// Loader provides configuration loading functionality.
type Loader struct {
	v      *viper.Viper
	prefix string
}

// NewLoader creates a new configuration loader with the given environment prefix.
// The prefix is used for environment variables (e.g., "BREIN" -> "BREIN_API_KEY").
func NewLoader(envPrefix string) *Loader {
	return &Loader{
		v:      viper.New(),
		prefix: envPrefix,
	}
}

// Viper exposes the underlying viper instance, e.g. for binding CLI flags.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// SetDefaults sets default configuration values.
// This should be called before Load().
func (l *Loader) SetDefaults(defaults map[string]interface{}) {
	for key, value := range defaults {
		l.v.SetDefault(key, value)
	}
}

// SetConfigDefaults sets the standard SDK defaults.
func (l *Loader) SetConfigDefaults() {
	l.v.SetDefault("api_key", "")
	l.v.SetDefault("secret", "")
	l.v.SetDefault("base_url", DefaultBaseURL)
	l.v.SetDefault("default_category", "")
	l.v.SetDefault("connection_timeout", DefaultConnectionTimeout.String())
	l.v.SetDefault("socket_timeout", DefaultSocketTimeout.String())

	l.v.SetDefault("endpoints.activity", DefaultActivityEndpoint)
	l.v.SetDefault("endpoints.lookup", DefaultLookupEndpoint)
	l.v.SetDefault("endpoints.temporal_data", DefaultTemporalDataEndpoint)
	l.v.SetDefault("endpoints.recommendation", DefaultRecommendationEndpoint)

	l.v.SetDefault("dispatch.workers", DefaultWorkers)
	l.v.SetDefault("dispatch.queue_size", DefaultQueueSize)
	l.v.SetDefault("dispatch.rate_limit", 0)
	l.v.SetDefault("dispatch.burst", 1)

	l.v.SetDefault("logging.level", "info")
	l.v.SetDefault("logging.format", "text")

	l.v.SetDefault("store.driver", "")
	l.v.SetDefault("store.path", "brein.db")
	l.v.SetDefault("store.redis_url", "redis://localhost:6379/0")
	l.v.SetDefault("store.key_prefix", "brein:")
}

// Load reads configuration from file, .env, and environment variables.
// If cfgFile is empty, searches for brein.yaml in standard locations.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (with prefix)
//  2. .env file
//  3. Configuration file
//  4. Default values
func (l *Loader) Load(cfgFile string, target interface{}) error {
	if cfgFile != "" {
		l.v.SetConfigFile(cfgFile)
	} else {
		l.v.SetConfigName("brein")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("./configs")
		l.v.AddConfigPath("$HOME/.brein")
		l.v.AddConfigPath("/etc/brein")
	}

	if err := l.v.ReadInConfig(); err != nil {
		// Only fail on non-NotFound errors for explicit file paths
		if cfgFile != "" && !isFileNotFoundError(err) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		if cfgFile == "" {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Merge .env file if present
	l.v.SetConfigFile(".env")
	l.v.SetConfigType("env")
	_ = l.v.MergeInConfig()

	if l.prefix != "" {
		l.v.SetEnvPrefix(l.prefix)
	}
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.v.Unmarshal(target); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}

	return nil
}

// LoadConfig is a convenience function that loads configuration with standard defaults.
func LoadConfig(envPrefix, cfgFile string) (*Config, error) {
	loader := NewLoader(envPrefix)
	loader.SetConfigDefaults()

	cfg := &Config{}
	if err := loader.Load(cfgFile, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// isFileNotFoundError checks if an error is a file not found error.
func isFileNotFoundError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr, os.ErrNotExist)
	}
	return false
}
