// Package slug produces filesystem-safe filename stems.
package slug

import (
	"path/filepath"
	"strings"
)

// MaxLen caps slug length so generated filenames stay manageable.
const MaxLen = 60

// Sanitize lowercases s and reduces it to [a-z0-9-]: every other rune
// becomes a hyphen, runs of hyphens collapse, and leading/trailing hyphens
// are trimmed. Returns "" when nothing survives.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	prevHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	out := strings.Trim(b.String(), "-")
	if len(out) > MaxLen {
		out = strings.Trim(out[:MaxLen], "-")
	}
	return out
}

// FromFilename derives a deterministic fallback slug from an original
// filename. Never returns "".
func FromFilename(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if s := Sanitize(base); s != "" {
		return s
	}
	return "note"
}
