package render

import (
	"fmt"
	"sort"
	"strings"
)

// HiddenField is a hidden input submitted with the form, such as the CSRF
// token expected by the registry backend.
type HiddenField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Hidden returns a HiddenField for any value.
func Hidden(name string, value any) HiddenField {
	return HiddenField{Name: strings.TrimSpace(name), Value: fmt.Sprint(value)}
}

// CSRFToken returns the hidden field carrying token. The registry backend
// expects the name "csrfmiddlewaretoken".
func CSRFToken(name, token string) HiddenField {
	if strings.TrimSpace(name) == "" {
		name = "csrfmiddlewaretoken"
	}
	return Hidden(name, token)
}

// MergeHiddenFields copies base and applies fields on top of it. Blank names
// are dropped; later fields win.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	out := make(map[string]string, len(base)+len(fields))
	for key, value := range base {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out[trimmed] = value
		}
	}
	for _, field := range fields {
		if name := strings.TrimSpace(field.Name); name != "" {
			out[name] = field.Value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields returns fields ordered by name.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	merged := MergeHiddenFields(fields)
	if len(merged) == 0 {
		return nil
	}
	result := make([]HiddenField, 0, len(merged))
	for name, value := range merged {
		result = append(result, HiddenField{Name: name, Value: value})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
