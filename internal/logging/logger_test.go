package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	return out
}

func TestNew_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "json")

	logger.Info("outbound",
		slog.String("Authorization", "Bearer abc.def"),
		slog.String("X-API-Key", "k-123"),
		slog.String("method", "GET"),
		slog.Group("headers", slog.String("Cookie", "sid=1"), slog.String("Accept", "*/*")),
	)

	line := decodeLine(t, &buf)
	assert.Equal(t, "Bearer ***", line["Authorization"])
	assert.Equal(t, "***", line["X-API-Key"])
	assert.Equal(t, "GET", line["method"])
	headers := line["headers"].(map[string]any)
	assert.Equal(t, "***", headers["Cookie"])
	assert.Equal(t, "*/*", headers["Accept"])
	assert.NotContains(t, buf.String(), "abc.def")
	assert.NotContains(t, buf.String(), "k-123")
}

func TestNew_RedactsWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "json").With(slog.String("token", "t-1"))

	logger.Info("hello")

	line := decodeLine(t, &buf)
	assert.Equal(t, "***", line["token"])
}

func TestNew_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "json")

	logger.InfoContext(WithRequestID(context.Background(), "req-42"), "handled")

	line := decodeLine(t, &buf)
	assert.Equal(t, "req-42", line["request_id"])
}

func TestNew_TextFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn, "text")

	logger.Info("dropped")
	logger.Warn("kept", slog.String("password", "hunter2"))

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
	assert.Contains(t, out, "password=***")
	assert.False(t, strings.Contains(out, "hunter2"))
}

func TestRedactAttr_AuthorizationWithoutScheme(t *testing.T) {
	a := redactAttr(slog.String("authorization", "opaque"))
	assert.Equal(t, "***", a.Value.String())
}
