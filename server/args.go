package server

import (
	"fmt"
	"strings"
)

// ValidationError is a missing or mistyped tool argument.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Type() string { return "ValidationError" }

// NotFoundError reports a page or block Logseq does not know.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

func (e *NotFoundError) Type() string { return "NotFound" }

type arguments map[string]any

func (a arguments) requireString(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", &ValidationError{Field: key, Reason: "required"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Field: key, Reason: "must be a string"}
	}
	if strings.TrimSpace(s) == "" {
		return "", &ValidationError{Field: key, Reason: "must not be empty"}
	}
	return s, nil
}

func (a arguments) optString(key string) (string, bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, &ValidationError{Field: key, Reason: "must be a string"}
	}
	return s, true, nil
}

func (a arguments) optBool(key string, def bool) (bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return def, &ValidationError{Field: key, Reason: "must be a boolean"}
	}
	return b, nil
}

func (a arguments) optInt(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return def, &ValidationError{Field: key, Reason: "must be an integer"}
		}
		return int(n), nil
	case int:
		return n, nil
	default:
		return def, &ValidationError{Field: key, Reason: "must be a number"}
	}
}

func (a arguments) optObject(key string) (map[string]any, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ValidationError{Field: key, Reason: "must be an object"}
	}
	return m, nil
}

func (a arguments) optStrings(key string) ([]string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &ValidationError{Field: key, Reason: "must be an array of strings"}
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, &ValidationError{Field: key, Reason: "must be an array of strings"}
		}
		out = append(out, s)
	}
	return out, nil
}
