package logging

import "strings"

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ShouldLog reports whether l is at or above min.
func (l LogLevel) ShouldLog(min LogLevel) bool {
	return l >= min
}

// LookupLevel resolves a level name. The second result is false for unknown names.
func LookupLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, true
	case "info":
		return INFO, true
	case "warn", "warning":
		return WARNING, true
	case "error":
		return ERROR, true
	default:
		return INFO, false
	}
}

// ParseLevel is LookupLevel without the validity flag; unknown names map to INFO.
func ParseLevel(s string) LogLevel {
	l, _ := LookupLevel(s)
	return l
}
