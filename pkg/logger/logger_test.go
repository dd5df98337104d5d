package logger

import (
	"testing"

	"github.com/GlebRadaev/spinearn/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name          string
		logLvl        string
		logFmt        string
		expectedError bool
	}{
		{name: "debug console", logLvl: "debug", logFmt: "console"},
		{name: "info default format", logLvl: "info"},
		{name: "warn json", logLvl: "warn", logFmt: "json"},
		{name: "error json", logLvl: "error", logFmt: "json"},
		{name: "unsupported level", logLvl: "verbose", expectedError: true},
		{name: "unsupported format", logLvl: "info", logFmt: "xml", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InitLogger(&config.Config{LogLvl: tt.logLvl, LogFmt: tt.logFmt})

			if tt.expectedError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, zap.L().Core().Enabled(logLvlMap[tt.logLvl]))
			if lvl := logLvlMap[tt.logLvl]; lvl > zap.DebugLevel {
				assert.False(t, zap.L().Core().Enabled(lvl-1))
			}
		})
	}
}
