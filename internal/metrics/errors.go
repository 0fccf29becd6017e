package metrics

import (
	"fmt"
	"strings"
	"unicode"
)

var friendlyAliases = map[string]string{
	"runner.HTTPError":              "HTTP error response",
	"url.Error":                     "Request URL error",
	"context.deadlineExceededError": "Context deadline exceeded",
}

// FriendlyErrorName returns a human-friendly label for a Go error type name
// as produced by %T, for the error breakdown in reports.
func FriendlyErrorName(typeName string) string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(typeName), "*")
	if cleaned == "" {
		return "Unknown error"
	}
	if alias, ok := friendlyAliases[cleaned]; ok {
		return alias
	}
	if idx := strings.LastIndex(cleaned, "/"); idx != -1 {
		cleaned = cleaned[idx+1:]
	}

	pkg, name, found := strings.Cut(cleaned, ".")
	if !found {
		pkg, name = "", cleaned
	}

	pretty := splitCamelCase(name)
	if pretty == "" {
		pretty = name
	}
	if pkg != "" && pkg != "main" {
		return fmt.Sprintf("%s (%s)", pretty, pkg)
	}
	return pretty
}

// splitCamelCase turns "deadlineExceededError" into "Deadline Exceeded Error",
// keeping acronym runs like "DNS" intact.
func splitCamelCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	wordStart := 0

	flush := func(end int) {
		if end <= wordStart {
			return
		}
		word := string(runes[wordStart:end])
		if !allUpper(word) {
			word = titleWord(word)
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
		wordStart = end
	}

	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		switch {
		case unicode.IsUpper(cur) && unicode.IsLower(prev):
			flush(i)
		case unicode.IsUpper(cur) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			flush(i)
		case unicode.IsDigit(cur) && !unicode.IsDigit(prev):
			flush(i)
		}
	}
	flush(len(runes))

	return b.String()
}

func allUpper(s string) bool {
	sawLetter := false
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.IsLower(r) {
			return false
		}
		sawLetter = true
	}
	return sawLetter
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
