package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the network layer
type Config struct {
	// API endpoint configuration
	API APIConfig `yaml:"api" json:"api"`

	// Retry behavior
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Local response cache settings
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Connectivity monitoring settings
	Connectivity ConnectivityConfig `yaml:"connectivity" json:"connectivity"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds the remote API configuration
type APIConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	ClientID  string        `yaml:"client_id" json:"client_id"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// RetryConfig holds retry behavior configuration
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	Delay       time.Duration `yaml:"delay" json:"delay"`
	Strategy    string        `yaml:"strategy" json:"strategy"` // "constant" or "exponential"
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// CacheConfig holds local cache configuration
type CacheConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// ConnectivityConfig holds connectivity monitor configuration
type ConnectivityConfig struct {
	ProbeAddress string        `yaml:"probe_address" json:"probe_address"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" json:"probe_timeout"`
	Interval     time.Duration `yaml:"interval" json:"interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "https://api.streamnet.tv",
			UserAgent: "streamnet/1.0",
			Timeout:   30 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Delay:       2 * time.Second,
			Strategy:    "constant",
			MaxDelay:    60 * time.Second,
			Multiplier:  2.0,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Cache: CacheConfig{
			Directory: defaultCacheDir(),
		},
		Connectivity: ConnectivityConfig{
			ProbeAddress: "1.1.1.1:443",
			ProbeTimeout: 3 * time.Second,
			Interval:     5 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file, applies environment
// variable overrides, and validates the result. A missing file is not an
// error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Load .env if present; real environment takes precedence
	_ = godotenv.Load()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies STREAMNET_* environment variables on top of
// the file-based configuration
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STREAMNET_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("STREAMNET_CLIENT_ID"); v != "" {
		c.API.ClientID = v
	}
	if v := os.Getenv("STREAMNET_CACHE_DIR"); v != "" {
		c.Cache.Directory = v
	}
	if v := os.Getenv("STREAMNET_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STREAMNET_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("STREAMNET_RETRY_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.Retry.Delay = d
		}
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not a valid URL", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be at least 1")
	}
	if c.Retry.Delay < 0 {
		return errors.New("retry.delay must not be negative")
	}
	switch c.Retry.Strategy {
	case "constant", "exponential":
	default:
		return fmt.Errorf("retry.strategy %q is not supported", c.Retry.Strategy)
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return errors.New("rate_limit.requests_per_minute must not be negative")
	}
	if c.Cache.Directory == "" {
		return errors.New("cache.directory is required")
	}
	if c.Connectivity.Interval <= 0 {
		return errors.New("connectivity.interval must be positive")
	}
	return nil
}

// Save writes the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".", "streamnet-cache")
	}
	return filepath.Join(base, "streamnet")
}
