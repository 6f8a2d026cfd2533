package privacy

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/auditmos/logseq-mcp/logging"
)

// Mode selects how much of a record survives sanitization.
type Mode int

const (
	// ModePrivacy redacts every field per its class.
	ModePrivacy Mode = iota
	// ModeDebug passes every field through unchanged.
	ModeDebug
	// ModeMinimal drops events below WARNING and fully redacts the rest.
	ModeMinimal
)

func (m Mode) String() string {
	switch m {
	case ModePrivacy:
		return "privacy"
	case ModeDebug:
		return "debug"
	case ModeMinimal:
		return "minimal"
	default:
		return "unknown"
	}
}

// ParseMode accepts privacy, debug or minimal in any case. An empty string
// selects ModePrivacy; anything else is an error.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "privacy":
		return ModePrivacy, nil
	case "debug":
		return ModeDebug, nil
	case "minimal":
		return ModeMinimal, nil
	default:
		return ModePrivacy, fmt.Errorf("unknown log mode %q (want privacy, debug or minimal)", s)
	}
}

// Admits reports whether an event at level is written at all in this mode.
func (m Mode) Admits(level logging.LogLevel) bool {
	if m == ModeMinimal {
		return level.ShouldLog(logging.WARNING)
	}
	return true
}

// Strategy rewrites one scalar value of the named field.
type Strategy func(field string, v any) any

// Policy assigns a Strategy to every Class.
type Policy map[Class]Strategy

// NewPolicy builds the strategy table for mode. Privacy and Minimal share a
// table; Debug maps every class to passthrough.
func NewPolicy(mode Mode, anon *Anonymizer) Policy {
	if mode == ModeDebug {
		return Policy{
			Identifier:      passthrough,
			FreeText:        passthrough,
			StructuredQuery: passthrough,
			FilePath:        passthrough,
			Opaque:          passthrough,
			Safe:            passthrough,
		}
	}
	return Policy{
		Identifier:      onString(MaskIdentifier),
		FreeText:        onString(DescribeContent),
		StructuredQuery: onString(DescribeQuery),
		FilePath:        onString(MaskURL),
		Opaque:          pseudonymize(anon),
		Safe:            passthrough,
	}
}

// Apply runs the strategy for class, falling back to full redaction when the
// table has no entry.
func (p Policy) Apply(class Class, field string, v any) any {
	if s, ok := p[class]; ok {
		return s(field, v)
	}
	return p[FreeText](field, v)
}

func passthrough(_ string, v any) any { return v }

func onString(f func(string) string) Strategy {
	return func(_ string, v any) any {
		switch t := v.(type) {
		case nil:
			return nil
		case string:
			return f(t)
		default:
			return Placeholder
		}
	}
}

func pseudonymize(anon *Anonymizer) Strategy {
	return func(field string, v any) any {
		if anon == nil {
			return Placeholder
		}
		var raw string
		switch t := v.(type) {
		case nil:
			return nil
		case string:
			raw = t
		case json.Number:
			raw = t.String()
		case float64:
			raw = strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			raw = strconv.Itoa(t)
		case int64:
			raw = strconv.FormatInt(t, 10)
		default:
			return Placeholder
		}
		return anon.PseudonymizeAs(pseudonymKind(field), raw)
	}
}
