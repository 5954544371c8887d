package debugger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxLoggedPayload caps how much of one event is written to the log.
const maxLoggedPayload = 2048

// LogEvent logs an outgoing stream event at debug level. It is a no-op unless
// the logger has debug enabled, so it can stay on the hot path.
func LogEvent(logger *zap.Logger, eventType string, payload []byte) {
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}

	truncated := len(payload) > maxLoggedPayload
	if truncated {
		payload = payload[:maxLoggedPayload]
	}
	logger.Debug("Stream event sent",
		zap.String("type", eventType),
		zap.Int("bytes", len(payload)),
		zap.Bool("truncated", truncated),
		zap.ByteString("payload", payload))
}
