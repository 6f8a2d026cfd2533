package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

type Formatter interface {
	Format(entry LogEntry) ([]byte, error)
}

type JSONFormatter struct{}

func (f *JSONFormatter) Format(entry LogEntry) ([]byte, error) {
	output := map[string]interface{}{
		"timestamp": entry.Timestamp.Format(time.RFC3339),
		"level":     entry.Level.String(),
		"component": entry.Component,
		"action":    entry.Action,
		"message":   entry.Message,
	}

	if len(entry.Fields) > 0 {
		output["fields"] = entry.Fields
	}

	if entry.Error != "" {
		output["error"] = entry.Error
	}

	if entry.ErrorType != "" {
		output["error_type"] = entry.ErrorType
	}

	if entry.TraceID != "" {
		output["trace_id"] = entry.TraceID
	}

	data, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return append(data, '\n'), nil
}

type HumanFormatter struct {
	colorEnabled bool
}

func NewHumanFormatter(w io.Writer) *HumanFormatter {
	return &HumanFormatter{colorEnabled: IsTerminal(w)}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (f *HumanFormatter) Format(entry LogEntry) ([]byte, error) {
	ts := entry.Timestamp.Format("2006-01-02 15:04:05")
	level := f.ColorLevel(entry.Level)

	msg := fmt.Sprintf("%s %s [%s] %s: %s",
		ts, level, entry.Component, entry.Action, entry.Message)

	if len(entry.Fields) > 0 {
		msg += " " + FormatFields(entry.Fields)
	}

	if entry.Error != "" {
		msg += fmt.Sprintf(" error=%s", entry.Error)
	}

	if entry.ErrorType != "" {
		msg += fmt.Sprintf(" error_type=%s", entry.ErrorType)
	}

	if entry.TraceID != "" {
		msg += fmt.Sprintf(" trace_id=%s", entry.TraceID)
	}

	return []byte(msg + "\n"), nil
}

// ColorLevel pads the level name and wraps it in ANSI colour when enabled.
func (f *HumanFormatter) ColorLevel(l LogLevel) string {
	name := l.String()
	if !f.colorEnabled {
		return fmt.Sprintf("%-7s", name)
	}

	var color string
	switch l {
	case DEBUG:
		color = "\033[36m" // cyan
	case INFO:
		color = "\033[32m" // green
	case WARNING:
		color = "\033[33m" // yellow
	case ERROR:
		color = "\033[31m" // red
	}
	return fmt.Sprintf("%s%-7s\033[0m", color, name)
}

// FormatFields renders fields as [k=v, ...] in key order.
func FormatFields(f Fields) string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, f[k]))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
