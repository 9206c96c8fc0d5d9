package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGet_BeforeInitIsNop(t *testing.T) {
	globalLogger = nil
	l := Get()
	require.NotNil(t, l)
	l.Info("dropped")
}

func TestInit_SetsLevel(t *testing.T) {
	t.Cleanup(func() { globalLogger = nil })

	require.NoError(t, Init("production", "warn"))
	require.NotNil(t, globalLogger)
	require.False(t, Get().Core().Enabled(zapcore.InfoLevel))
	require.True(t, Get().Core().Enabled(zapcore.WarnLevel))

	require.NoError(t, Init("development", "garbage"))
	require.True(t, Get().Core().Enabled(zapcore.DebugLevel))
	Sync()
}
