package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{"bot_token", "123:abc", "lesson_id", "variables", "dangling"})
	assert.Equal(t, []interface{}{"bot_token", "[REDACTED]", "lesson_id", "variables", "dangling"}, got)
}

func TestLoggerRedactsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("component", "tutor").Info("calling api", "api_key", "sk-123", "lesson_id", "optionals")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "[REDACTED]", fields["api_key"])
		assert.Equal(t, "optionals", fields["lesson_id"])
		assert.Equal(t, "tutor", fields["component"])
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		l, err := New(mode)
		assert.NoError(t, err)
		assert.NotNil(t, l)
	}
	Nop().Warn("ignored")
}

func TestStdLogWritesThroughZap(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.StdLog().Printf("Endpoint: %s", "getUpdates")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "Endpoint: getUpdates", entries[0].Message)
	}
}
