package debugger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogEvent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	LogEvent(zap.New(core), "progress", []byte(`{"type":"progress"}`))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Stream event sent", entry.Message)
	assert.Equal(t, "progress", entry.ContextMap()["type"])
	assert.Equal(t, false, entry.ContextMap()["truncated"])
}

func TestLogEvent_Truncates(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	LogEvent(zap.New(core), "itinerary", []byte(strings.Repeat("x", maxLoggedPayload+10)))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, true, fields["truncated"])
	assert.Equal(t, int64(maxLoggedPayload), fields["bytes"])
}

func TestLogEvent_SkippedAboveDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	LogEvent(zap.New(core), "progress", []byte(`{}`))
	assert.Equal(t, 0, logs.Len())
}
