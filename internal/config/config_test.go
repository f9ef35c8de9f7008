package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/paisley/internal/config"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := config.NewDefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, config.DefaultMaxWorkers, cfg.MaxWorkers)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MAX_WORKERS", "4")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_MULTIPLIER", "1.5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := config.NewDefaultConfig()
	assert.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.Equal(t, 5, cfg.RetryMaxAttempts)
	assert.Equal(t, 1.5, cfg.RetryMultiplier)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvBadInt(t *testing.T) {
	t.Setenv("MAX_WORKERS", "lots")

	cfg := config.NewDefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())
}

func TestLoadFromEnvOutOfRange(t *testing.T) {
	t.Setenv("MAX_WORKERS", "100000")

	cfg := config.NewDefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())
}

func TestLoadFromEnvBadFloat(t *testing.T) {
	t.Setenv("RETRY_MULTIPLIER", "0.5")

	cfg := config.NewDefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"zero workers", func(c *config.Config) {
			c.MaxWorkers = 0
		}, config.ErrInvalidMaxWorkers},
		{"negative timeout", func(c *config.Config) {
			c.StepTimeout = -1
		}, config.ErrInvalidStepTimeout},
		{"negative attempts", func(c *config.Config) {
			c.RetryMaxAttempts = -1
		}, config.ErrInvalidRetryAttempts},
		{"zero base delay", func(c *config.Config) {
			c.RetryBaseDelay = 0
		}, config.ErrInvalidRetryDelay},
		{"crossed delays", func(c *config.Config) {
			c.RetryBaseDelay = 5000
			c.RetryMaxDelay = 1000
		}, config.ErrRetryMaxDelayTooSmall},
		{"small multiplier", func(c *config.Config) {
			c.RetryMultiplier = 0.5
		}, config.ErrInvalidRetryMultiplier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestRetryDefaults(t *testing.T) {
	cfg := config.NewDefaultConfig()
	p := cfg.RetryDefaults()
	assert.Equal(t, config.DefaultRetryMaxAttempts, p.MaxAttempts)
	assert.Equal(t, config.DefaultRetryBaseDelay, p.BaseDelay)
	assert.Equal(t, config.DefaultRetryMaxDelay, p.MaxDelay)
	assert.Equal(t, config.DefaultRetryMultiplier, p.Multiplier)
}
