package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level   string
		format  string
		enabled zapcore.Level
		hidden  zapcore.Level
	}{
		{"debug", "json", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"info", "console", zapcore.InfoLevel, zapcore.DebugLevel},
		{"warn", "json", zapcore.WarnLevel, zapcore.InfoLevel},
		{"error", "console", zapcore.ErrorLevel, zapcore.WarnLevel},
		{"bogus", "", zapcore.InfoLevel, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.level, func(t *testing.T) {
			t.Parallel()

			log, err := New(tt.level, tt.format)
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.enabled))
			assert.False(t, log.Core().Enabled(tt.hidden))
		})
	}
}
