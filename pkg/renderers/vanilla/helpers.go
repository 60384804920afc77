package vanilla

import (
	"sort"
	"strings"
)

// classList joins base with the marker classes of an element, dropping
// blanks and duplicates.
func classList(base string, markers []string) string {
	seen := make(map[string]struct{})
	var out []string
	for _, token := range append(strings.Fields(base), markers...) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return strings.Join(out, " ")
}

// inlineVars renders CSS custom properties as a declaration list in key
// order.
func inlineVars(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		value := strings.NewReplacer(";", "", "{", "", "}", "", "<", "").Replace(vars[key])
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(value))
		b.WriteByte(';')
	}
	return b.String()
}
