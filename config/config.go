// Package config has the configuration for the event counter API
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/giygas/event-counter-api/convert"
)

// Environment is the deployment environment the server runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

// String returns the canonical name of the environment
func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment maps an ENV value, including the long aliases, to an Environment
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	case "":
		return EnvDevelopment, fmt.Errorf("ENV cannot be empty")
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", value)
}

// Config holds all application configuration
type Config struct {
	Port              string      `env:"PORT" envDefault:"8000"`
	Address           string      `env:"ADDRESS" envDefault:"127.0.0.1"`
	Env               Environment `env:"ENV" envDefault:"dev"`
	LogLevel          string      `env:"LOG_LEVEL" envDefault:"info"`
	LogDir            string      `env:"LOG_DIR" envDefault:"logs"`
	LogRetentionWeeks int         `env:"LOG_RETENTION_WEEKS" envDefault:"4"`
	MaxLogFileSize    int64       `env:"MAX_LOG_FILE_SIZE" envDefault:"104857600"` // 100MB
	MaxRequestBody    int64       `env:"MAX_REQUEST_BODY" envDefault:"1048576"`    // 1MB
	MaxHeaderSize     int64       `env:"MAX_HEADER_SIZE" envDefault:"1048576"`     // 1MB

	// Event counter settings. USE_EVENT_COUNTER accepts the loose boolean forms
	// understood by convert.ParseBoolish, so it is kept as a string.
	UseEventCounter    string        `env:"USE_EVENT_COUNTER" envDefault:"true"`
	CounterPeriodMs    int64         `env:"EVENT_COUNTER_PERIOD" envDefault:"300000"` // 5 minutes
	CounterMaxEntries  int           `env:"EVENT_COUNTER_MAX_ENTRIES" envDefault:"100"`
	CounterReportEvery time.Duration `env:"EVENT_COUNTER_REPORT_INTERVAL" envDefault:"1m"`

	RateLimitRate      float64  `env:"RATE_LIMIT_RATE" envDefault:"3"`
	RateLimitCapacity  int64    `env:"RATE_LIMIT_CAPACITY" envDefault:"1000"`
	BlockDirectAccess  bool     `env:"BLOCK_DIRECT_ACCESS" envDefault:"false"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// CounterEnabled reports whether the request middleware should record events
func (c *Config) CounterEnabled() bool {
	return convert.ParseBoolish(c.UseEventCounter)
}

// CounterRetention returns the retention period of each counter
func (c *Config) CounterRetention() time.Duration {
	return time.Duration(c.CounterPeriodMs) * time.Millisecond
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	envValue, err := ParseEnvironment(string(cfg.Env))
	if err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}
	cfg.Env = envValue

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validateCounterPeriod(cfg.CounterPeriodMs); err != nil {
		return fmt.Errorf("invalid EVENT_COUNTER_PERIOD: %w", err)
	}

	if err := validateCounterMaxEntries(cfg.CounterMaxEntries); err != nil {
		return fmt.Errorf("invalid EVENT_COUNTER_MAX_ENTRIES: %w", err)
	}

	if cfg.CounterReportEvery < time.Second {
		return fmt.Errorf("invalid EVENT_COUNTER_REPORT_INTERVAL: must be at least 1s, got: %s", cfg.CounterReportEvery)
	}

	if cfg.RateLimitRate <= 0 || cfg.RateLimitCapacity <= 0 {
		return fmt.Errorf("invalid rate limit: RATE_LIMIT_RATE and RATE_LIMIT_CAPACITY must be positive")
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" || address == "0.0.0.0" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 {
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 {
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateCounterPeriod validates the EVENT_COUNTER_PERIOD environment variable (milliseconds)
func validateCounterPeriod(periodMs int64) error {
	if periodMs <= 0 {
		return fmt.Errorf("EVENT_COUNTER_PERIOD must be positive, got: %d", periodMs)
	}

	if periodMs > 24*60*60*1000 {
		return fmt.Errorf("EVENT_COUNTER_PERIOD is too large (max 24h), got: %d ms", periodMs)
	}

	return nil
}

// validateCounterMaxEntries validates the EVENT_COUNTER_MAX_ENTRIES environment variable
func validateCounterMaxEntries(maxEntries int) error {
	if maxEntries < 1 {
		return fmt.Errorf("EVENT_COUNTER_MAX_ENTRIES must be at least 1, got: %d", maxEntries)
	}

	if maxEntries > 1000000 {
		return fmt.Errorf("EVENT_COUNTER_MAX_ENTRIES is too large (max 1000000), got: %d", maxEntries)
	}

	return nil
}
