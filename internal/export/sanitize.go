package export

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeName normalises s to NFC, drops control characters and replaces
// anything outside a conservative set with '_'.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range norm.NFC.String(s) {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// fileToken is SanitizeName restricted to characters safe inside a filename
// and a Content-Disposition header.
func fileToken(s string) string {
	name := SanitizeName(s, 64)
	name = strings.Map(func(r rune) rune {
		switch r {
		case ' ', ',', '(', ')':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "episode"
	}
	return name
}
