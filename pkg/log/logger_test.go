package log_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/paisley/pkg/log"
)

func TestNew(t *testing.T) {
	as := assert.New(t)

	logger := log.New("paisley", "test")
	as.NotNil(logger)
	as.True(logger.Enabled(context.Background(), slog.LevelInfo))
	as.False(logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewWithLevel(t *testing.T) {
	as := assert.New(t)

	logger := log.NewWithLevel("paisley", "test", slog.LevelError)
	as.False(logger.Enabled(context.Background(), slog.LevelWarn))
	as.True(logger.Enabled(context.Background(), slog.LevelError))
}
