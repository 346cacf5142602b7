package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
}

func TestLogGrpcRequest(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: "debug", Output: &buf})

	l.LogGrpcRequest("/annstore.v1.AnnotationService/CreateSpan", "req-1", 5*time.Millisecond, nil)
	entry := lastEntry(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "annstore", entry["service"])
	assert.Equal(t, "req-1", entry["request_id"])

	l.LogGrpcRequest("/annstore.v1.AnnotationService/CreateSpan", "req-2", time.Millisecond, errors.New("boom"))
	entry = lastEntry(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "boom", entry["error"])
}

func TestDocLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: "debug", Output: &buf})

	l.DocLogger("close", "/data/doc1.ann").Info("written").Send()
	entry := lastEntry(t, &buf)
	assert.Equal(t, "document", entry["component"])
	assert.Equal(t, "close", entry["operation"])
	assert.Equal(t, "/data/doc1.ann", entry["doc"])

	l.LogDocOperation("create_span", "/data/doc1.ann", time.Millisecond, 2, nil)
	entry = lastEntry(t, &buf)
	assert.Equal(t, float64(2), entry["changes"])
}
