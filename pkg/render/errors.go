package render

import (
	"strconv"
	"strings"
)

// ErrorMapping splits a server error payload into field messages, keyed by
// field name, and form level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// Empty reports whether the mapping carries no messages.
func (m ErrorMapping) Empty() bool {
	return len(m.Fields) == 0 && len(m.Form) == 0
}

// MergeFormErrors concatenates message lists, trimming blanks and dropping
// duplicates while keeping order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload resolves payload keys against the form's field names.
// Keys may be plain names, dotted or JSON pointer paths (`/body/dob`), or
// indexed (`krt[0].start_date`); wrapper segments such as body or data are
// ignored. Keys that match no field become form level messages.
func MapErrorPayload(fieldNames []string, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	if len(payload) == 0 {
		mapping.Fields = nil
		return mapping
	}

	known := make(map[string]struct{}, len(fieldNames))
	for _, name := range fieldNames {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			known[trimmed] = struct{}{}
		}
	}

	for _, key := range sortedKeys(payload) {
		messages := normalizeMessages(payload[key])
		if len(messages) == 0 {
			continue
		}
		name, ok := resolveField(key, known)
		if !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		mapping.Fields[name] = append(mapping.Fields[name], messages...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func resolveField(raw string, known map[string]struct{}) (string, bool) {
	key := strings.TrimSpace(raw)
	if isFormLevelKey(key) {
		return "", false
	}
	if _, ok := known[key]; ok {
		return key, true
	}

	segments := splitPath(key)
	for _, candidate := range [][]string{segments, dropWrappers(segments), dropIndexes(dropWrappers(segments))} {
		// The deepest segment that names a field wins, so `body.dob.0` and
		// `patient/dob` both resolve to dob.
		for i := len(candidate) - 1; i >= 0; i-- {
			if _, ok := known[candidate[i]]; ok {
				return candidate[i], true
			}
		}
		if joined := strings.Join(candidate, "."); joined != "" {
			if _, ok := known[joined]; ok {
				return joined, true
			}
		}
	}
	return "", false
}

func splitPath(path string) []string {
	clean := strings.TrimLeft(path, "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	parts := strings.FieldsFunc(clean, func(r rune) bool { return r == '.' || r == '/' })

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		out = append(out, part)
	}
	return out
}

func dropWrappers(segments []string) []string {
	for len(segments) > 0 {
		switch strings.ToLower(segments[0]) {
		case "body", "request", "payload", "data", "values", "fields":
			segments = segments[1:]
			continue
		}
		break
	}
	return segments
}

func dropIndexes(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(key) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors", "non-field-errors":
		return true
	}
	return false
}
