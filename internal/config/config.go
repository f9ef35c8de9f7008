package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/kode4food/paisley/pkg/api"
)

// Config holds the tunable engine settings. Values load from the
// environment and fall back to the defaults below
type Config struct {
	MaxWorkers       int
	StepTimeout      int64
	RetryMaxAttempts int
	RetryBaseDelay   int64
	RetryMaxDelay    int64
	RetryMultiplier  float64
	LogLevel         string
}

const (
	DefaultMaxWorkers  = 8
	DefaultStepTimeout = 30 * api.Second
	DefaultLogLevel    = "info"

	DefaultRetryMaxAttempts = 3
	DefaultRetryBaseDelay   = api.Second
	DefaultRetryMaxDelay    = api.Minute
	DefaultRetryMultiplier  = 2.0

	MaxWorkerLimit      = 1024
	MaxRetryMaxAttempts = 1000
	MaxStepTimeout      = 24 * 60 * api.Minute // 1 day in ms
	MaxRetryBaseDelay   = 60 * api.Minute
	MaxRetryMaxDelay    = MaxStepTimeout
)

var (
	ErrInvalidMaxWorkers  = errors.New("max workers must be positive")
	ErrInvalidStepTimeout = errors.New(
		"step timeout must not be negative",
	)
	ErrInvalidRetryAttempts = errors.New(
		"retry max attempts must not be negative",
	)
	ErrInvalidRetryDelay = errors.New(
		"retry delays must be positive",
	)
	ErrRetryMaxDelayTooSmall = errors.New(
		"retry max delay must be >= retry base delay",
	)
	ErrInvalidRetryMultiplier = errors.New(
		"retry multiplier must be at least 1",
	)
)

// NewDefaultConfig creates a configuration with sensible defaults for
// all engine settings
func NewDefaultConfig() *Config {
	return &Config{
		MaxWorkers:       DefaultMaxWorkers,
		StepTimeout:      DefaultStepTimeout,
		RetryMaxAttempts: DefaultRetryMaxAttempts,
		RetryBaseDelay:   DefaultRetryBaseDelay,
		RetryMaxDelay:    DefaultRetryMaxDelay,
		RetryMultiplier:  DefaultRetryMultiplier,
		LogLevel:         DefaultLogLevel,
	}
}

// LoadFromEnv populates configuration values from environment
// variables. Returns an error if any value cannot be parsed or falls
// outside its valid range
func (c *Config) LoadFromEnv() error {
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if err := loadEnvInt(
		"MAX_WORKERS", &c.MaxWorkers, 0, MaxWorkerLimit,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"STEP_TIMEOUT", &c.StepTimeout, 0, MaxStepTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RETRY_MAX_ATTEMPTS", &c.RetryMaxAttempts, 0, MaxRetryMaxAttempts,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RETRY_BASE_DELAY", &c.RetryBaseDelay, 0, MaxRetryBaseDelay,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"RETRY_MAX_DELAY", &c.RetryMaxDelay, 0, MaxRetryMaxDelay,
	); err != nil {
		return err
	}
	return loadEnvFloat("RETRY_MULTIPLIER", &c.RetryMultiplier)
}

// RetryDefaults returns the configured values as a retry policy used
// to fill zero-valued fields of step policies
func (c *Config) RetryDefaults() api.RetryPolicy {
	return api.RetryPolicy{
		MaxAttempts: c.RetryMaxAttempts,
		BaseDelay:   c.RetryBaseDelay,
		MaxDelay:    c.RetryMaxDelay,
		Multiplier:  c.RetryMultiplier,
	}
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxWorkers, c.MaxWorkers)
	}
	if c.StepTimeout < 0 {
		return ErrInvalidStepTimeout
	}
	if c.RetryMaxAttempts < 0 {
		return ErrInvalidRetryAttempts
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay <= 0 {
		return ErrInvalidRetryDelay
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		return ErrRetryMaxDelayTooSmall
	}
	if c.RetryMultiplier < 1 {
		return fmt.Errorf("%w: %v",
			ErrInvalidRetryMultiplier, c.RetryMultiplier)
	}
	return nil
}

// loadEnvInt reads key from the environment, parses it as an integer,
// and sets *dst if the value is in the range (min, max). Returns an
// error if the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

func loadEnvFloat(key string, dst *float64) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 1 {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	*dst = v
	return nil
}
