package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithFields_Copies(t *testing.T) {
	original := Fields{"a": 1, "b": 2}
	copied := WithFields(original)

	assert.Equal(t, original, copied)

	copied["c"] = 3
	assert.NotContains(t, original, "c")
}

func TestWithError(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		f := WithError(errors.New("disk full"))
		assert.Equal(t, "disk full", f["error"])
	})

	t.Run("nil error", func(t *testing.T) {
		assert.Empty(t, WithError(nil))
	})
}

func TestFields_AddMerge(t *testing.T) {
	f := Fields{"a": 1}
	f.Add("b", 2).Merge(Fields{"c": 3})

	assert.Equal(t, Fields{"a": 1, "b": 2, "c": 3}, f)
}

func TestFields_Sanitize(t *testing.T) {
	f := Fields{
		"api_token":     "abc123",
		"authorization": "Bearer token",
		"log_secret":    "c2VjcmV0",
		"log_file":      "logs/logseq-mcp.log",
	}

	sanitized := f.Sanitize()

	assert.Equal(t, "[REDACTED]", sanitized["api_token"])
	assert.Equal(t, "[REDACTED]", sanitized["authorization"])
	assert.Equal(t, "[REDACTED]", sanitized["log_secret"])
	assert.Equal(t, "logs/logseq-mcp.log", sanitized["log_file"])
	assert.Equal(t, "abc123", f["api_token"], "original must not change")
}
