package model

import (
	"strings"
	"unicode"
)

// DefaultLabeler turns a field name into a sentence case label. A form prefix
// such as `krt_present-` is dropped, so `krt_present-start_date` becomes
// "Start date".
func DefaultLabeler(name string) string {
	if idx := strings.LastIndex(name, "-"); idx >= 0 && idx < len(name)-1 {
		name = name[idx+1:]
	}
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	if len(words) == 0 {
		return ""
	}
	for i, word := range words {
		words[i] = strings.ToLower(word)
	}
	first := []rune(words[0])
	first[0] = unicode.ToUpper(first[0])
	words[0] = string(first)
	return strings.Join(words, " ")
}
