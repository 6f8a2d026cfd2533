package logging

import "time"

// LogEntry is one diagnostic line. Tool invocations are recorded as LogEvent instead.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Component string    `json:"component"`
	Action    string    `json:"action"`
	Message   string    `json:"message"`
	Fields    Fields    `json:"fields,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorType string    `json:"error_type,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
}
