package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(buf *bytes.Buffer) *Logger {
	l := zerolog.New(buf)
	return &Logger{&l}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_ContextFieldsAreCarried(t *testing.T) {
	var buf bytes.Buffer
	lg := bufferLogger(&buf).
		WithService("api").
		WithComponent("ingest").
		WithRequestID("req-1").
		WithField("device_id", "dev-1")

	lg.Info("reading stored")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "reading stored", entry["message"])
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "ingest", entry["component"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "dev-1", entry["device_id"])
}

func TestLogger_ErrorWithError(t *testing.T) {
	var buf bytes.Buffer
	bufferLogger(&buf).ErrorWithError(errors.New("boom"), "store failed")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "store failed", entry["message"])
}

func TestLogger_WarnLevel(t *testing.T) {
	var buf bytes.Buffer
	bufferLogger(&buf).Warn("slow store")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "warn", entry["level"])
}

func TestNewNop_Discards(t *testing.T) {
	assert.NotPanics(t, func() {
		lg := NewNop().WithComponent("x")
		lg.Info("ignored")
		lg.ErrorWithError(errors.New("ignored"), "ignored")
	})
}
