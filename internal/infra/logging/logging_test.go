package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level        string
		debugEnabled bool
		infoEnabled  bool
		warnEnabled  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"warn", false, false, true},
		{"error", false, false, false},
		{"nonsense", false, true, true},
	}

	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			logger := New("json", tc.level)

			ctx := context.Background()
			require.Equal(t, tc.debugEnabled, logger.Enabled(ctx, slog.LevelDebug))
			require.Equal(t, tc.infoEnabled, logger.Enabled(ctx, slog.LevelInfo))
			require.Equal(t, tc.warnEnabled, logger.Enabled(ctx, slog.LevelWarn))
		})
	}
}

func TestNew_InstallsDefault(t *testing.T) {
	logger := New("text", "info")
	require.Same(t, logger, slog.Default())
}
