package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Run("should create a new zap logger instance", func(t *testing.T) {
		// Act
		logger := NewLogger()

		// Assert
		assert.NotNil(t, logger)
		assert.IsType(t, &zap.Logger{}, logger)
	})

	t.Run("should create logger with JSON encoder for production", func(t *testing.T) {
		// Act
		logger, err := NewProductionLogger()

		// Assert
		assert.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("should create logger with development config for testing", func(t *testing.T) {
		// Act
		logger, err := NewDevelopmentLogger()

		// Assert
		assert.NoError(t, err)
		assert.NotNil(t, logger)
	})
}

func TestNewLoggerWithLevel(t *testing.T) {
	t.Run("should honour the requested level", func(t *testing.T) {
		// Act
		logger, err := NewLoggerWithLevel("warn")

		// Assert
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("should enable debug output", func(t *testing.T) {
		logger, err := NewLoggerWithLevel("DEBUG")

		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("should reject an unknown level", func(t *testing.T) {
		logger, err := NewLoggerWithLevel("chatty")

		assert.Error(t, err)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestParseLevel(t *testing.T) {
	t.Run("should default to info", func(t *testing.T) {
		lvl, err := ParseLevel("  ")

		require.NoError(t, err)
		assert.Equal(t, zapcore.InfoLevel, lvl)
	})

	t.Run("should parse error level", func(t *testing.T) {
		lvl, err := ParseLevel("error")

		require.NoError(t, err)
		assert.Equal(t, zapcore.ErrorLevel, lvl)
	})
}
