package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatter_Format(t *testing.T) {
	formatter := &JSONFormatter{}
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	entry := LogEntry{
		Timestamp: ts,
		Level:     WARNING,
		Component: "rotation",
		Action:    "prune",
		Message:   "Retired log file could not be removed",
		Fields:    Fields{"retired": 2},
		Error:     "permission denied",
		ErrorType: "PathError",
		TraceID:   "abc123",
	}

	data, err := formatter.Format(entry)
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "2024-01-15T10:30:00Z", result["timestamp"])
	assert.Equal(t, "WARNING", result["level"])
	assert.Equal(t, "rotation", result["component"])
	assert.Equal(t, "prune", result["action"])
	assert.Equal(t, "permission denied", result["error"])
	assert.Equal(t, "PathError", result["error_type"])
	assert.Equal(t, "abc123", result["trace_id"])

	fields, ok := result["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), fields["retired"])
}

func TestJSONFormatter_MinimalEntry(t *testing.T) {
	formatter := &JSONFormatter{}

	data, err := formatter.Format(LogEntry{
		Timestamp: time.Now(),
		Level:     DEBUG,
		Component: "test",
		Action:    "test",
		Message:   "line one\nline two",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, bytes.Count(data, []byte("\n")), "one JSON object per line")

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &result))
	assert.NotContains(t, result, "fields")
	assert.NotContains(t, result, "error")
	assert.NotContains(t, result, "error_type")
	assert.NotContains(t, result, "trace_id")
}

func TestHumanFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewHumanFormatter(&buf)

	entry := LogEntry{
		Timestamp: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Level:     ERROR,
		Component: "logseq",
		Action:    "request",
		Message:   "Logseq API call failed",
		Fields:    Fields{"status": 401, "method": "logseq.Editor.getPage"},
		Error:     "unauthorized",
		ErrorType: "APIError",
		TraceID:   "trace123",
	}

	data, err := formatter.Format(entry)
	require.NoError(t, err)

	output := string(data)
	assert.Contains(t, output, "2024-01-15 10:30:00")
	assert.Contains(t, output, "ERROR")
	assert.Contains(t, output, "[logseq] request:")
	assert.Contains(t, output, "[method=logseq.Editor.getPage, status=401]")
	assert.Contains(t, output, "error=unauthorized")
	assert.Contains(t, output, "error_type=APIError")
	assert.Contains(t, output, "trace_id=trace123")
	assert.NotContains(t, output, "\033[", "buffers are not terminals")
}

func TestHumanFormatter_ColorLevel(t *testing.T) {
	f := &HumanFormatter{colorEnabled: true}
	assert.Equal(t, "\033[33mWARNING\033[0m", f.ColorLevel(WARNING))

	f = &HumanFormatter{}
	assert.Equal(t, "INFO   ", f.ColorLevel(INFO))
}
