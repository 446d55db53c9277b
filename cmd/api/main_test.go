package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/joshua-takyi/bashbay-client/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestSetupLoggerHonoursLevel(t *testing.T) {
	tests := []struct {
		env   string
		level string
		debug bool
		warn  bool
	}{
		{"development", "warn", false, true},
		{"development", "debug", true, true},
		{"development", "", false, true},
		{"production", "error", false, false},
		{"production", "debug", true, true},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			logger := setupLogger(&config.Config{Environment: tt.env, LogLevel: tt.level})
			assert.Equal(t, tt.debug, logger.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tt.warn, logger.Enabled(ctx, slog.LevelWarn))
			assert.True(t, logger.Enabled(ctx, slog.LevelError))
		})
	}
}
