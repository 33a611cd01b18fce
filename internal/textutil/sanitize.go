package textutil

import (
	"path/filepath"
	"strings"
)

// Token lowercases value and keeps ASCII letters, digits, hyphens, and
// underscores. Every other run of characters collapses to one underscore.
// Leading and trailing separators are trimmed; fallback is returned when
// nothing remains.
func Token(value, fallback string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			pendingSep = true
			continue
		}
		if pendingSep && b.Len() > 0 {
			b.WriteByte('_')
		}
		pendingSep = false
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return fallback
	}
	return out
}

// StemToken applies Token to the base name of path without its extension.
func StemToken(path, fallback string) string {
	base := filepath.Base(strings.ReplaceAll(path, "\\", "/"))
	return Token(strings.TrimSuffix(base, filepath.Ext(base)), fallback)
}
