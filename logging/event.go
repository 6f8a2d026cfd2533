package logging

import (
	"encoding/json"
	"time"
)

// LogEvent is the record produced once per tool invocation. Treat it as a
// value: code that needs a different version builds a new one, it never
// mutates Arguments or Result in place.
type LogEvent struct {
	Timestamp  time.Time
	Level      LogLevel
	Logger     string
	Message    string
	ToolName   string
	Arguments  map[string]any
	Result     any
	DurationMs float64
}

type eventJSON struct {
	Timestamp  string         `json:"timestamp"`
	Level      string         `json:"level"`
	Logger     string         `json:"logger"`
	Message    string         `json:"message"`
	ToolName   string         `json:"tool_name"`
	Arguments  map[string]any `json:"arguments"`
	Result     any            `json:"result"`
	DurationMs float64        `json:"duration_ms"`
}

func (e LogEvent) MarshalJSON() ([]byte, error) {
	args := e.Arguments
	if args == nil {
		args = map[string]any{}
	}
	return json.Marshal(eventJSON{
		Timestamp:  e.Timestamp.UTC().Format(time.RFC3339Nano),
		Level:      e.Level.String(),
		Logger:     e.Logger,
		Message:    e.Message,
		ToolName:   e.ToolName,
		Arguments:  args,
		Result:     e.Result,
		DurationMs: e.DurationMs,
	})
}

// ErrorDescriptor is the result placed in a LogEvent for a failed invocation.
func ErrorDescriptor(err error) map[string]any {
	if err == nil {
		return nil
	}
	return map[string]any{
		"error":      err.Error(),
		"error_type": ErrorType(err),
	}
}
