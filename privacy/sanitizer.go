package privacy

import (
	"encoding/json"

	"github.com/auditmos/logseq-mcp/logging"
)

// resultField is the name under which a non-object result is classified.
const resultField = "result"

// Sanitizer applies one Mode's Policy to whole records.
type Sanitizer struct {
	mode   Mode
	policy Policy
}

func NewSanitizer(mode Mode, anon *Anonymizer) *Sanitizer {
	return &Sanitizer{mode: mode, policy: NewPolicy(mode, anon)}
}

func (s *Sanitizer) Mode() Mode { return s.mode }

// Sanitize returns the version of ev that may be persisted. The second
// result is false when the mode drops the event entirely. In ModeDebug ev is
// returned as is. The input's maps and slices are never modified.
func (s *Sanitizer) Sanitize(ev logging.LogEvent, hints Hints) (logging.LogEvent, bool) {
	if !s.mode.Admits(ev.Level) {
		return logging.LogEvent{}, false
	}
	if s.mode == ModeDebug {
		return ev, true
	}

	out := ev
	out.Arguments = s.SanitizeArguments(ev.Arguments, hints)
	out.Result = s.SanitizeValue(resultField, ev.Result, hints)
	return out, true
}

// SanitizeArguments classifies each argument by its own name.
func (s *Sanitizer) SanitizeArguments(args map[string]any, hints Hints) map[string]any {
	if args == nil {
		return nil
	}
	if s.mode == ModeDebug {
		return args
	}
	return s.object(args, hints)
}

// SanitizeValue sanitizes v as if it were stored under field. Objects recurse
// key by key; sequence elements inherit field's class.
func (s *Sanitizer) SanitizeValue(field string, v any, hints Hints) any {
	if s.mode == ModeDebug {
		return v
	}
	if m, ok := v.(map[string]any); ok {
		return s.object(m, hints)
	}
	return s.value(field, Classify(field, hints.Lookup(field)), v, hints)
}

func (s *Sanitizer) object(m map[string]any, hints Hints) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = s.value(k, Classify(k, hints.Lookup(k)), v, hints)
	}
	return out
}

func (s *Sanitizer) value(field string, class Class, v any, hints Hints) any {
	switch t := v.(type) {
	case map[string]any:
		return s.object(t, hints)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = s.value(field, class, e, hints)
		}
		return out
	case nil, string, bool, float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
		return s.policy.Apply(class, field, t)
	default:
		generic, ok := normalize(v)
		if !ok {
			return Placeholder
		}
		return s.value(field, class, generic, hints)
	}
}

// normalize converts typed Go values (structs, typed maps and slices) into
// the generic JSON shape the walker understands.
func normalize(v any) (any, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, false
	}
	switch generic.(type) {
	case map[string]any, []any, string, bool, float64, nil:
		return generic, true
	}
	return nil, false
}
