package service

import "strings"

// Sanitize normalizes one intake value. Nulls and blank strings become the
// missing sentinel, empty lists become a single-sentinel list, lists and
// mappings are sanitized element-wise. Any other scalar passes through
// unchanged.
func (s *Settings) Sanitize(value any) any {
	switch v := value.(type) {
	case nil:
		return s.Missing
	case string:
		cleaned := strings.TrimSpace(v)
		if cleaned == "" {
			return s.Missing
		}
		return cleaned
	case []any:
		if len(v) == 0 {
			return []any{s.Missing}
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = s.Sanitize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = s.Sanitize(item)
		}
		return out
	default:
		return v
	}
}

// SanitizeIntake sanitizes every field of a raw intake record. Keys are
// preserved unchanged. The result is built once per run and treated as
// immutable afterwards.
func (s *Settings) SanitizeIntake(intake map[string]any) map[string]any {
	out := make(map[string]any, len(intake))
	for k, v := range intake {
		out[k] = s.Sanitize(v)
	}
	return out
}
