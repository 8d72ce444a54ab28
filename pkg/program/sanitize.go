package program

import (
	"strings"
	"time"
	"unicode"
)

// maxTitleRunes bounds the sanitized title so distribution filenames stay
// short enough for every storage backend.
const maxTitleRunes = 40

func unsafeRune(r rune) bool {
	switch r {
	case '/', '\\', '?', '%', '*', ':', '|', '"', '<', '>', '.':
		return true
	}
	return r < 0x20 || unicode.IsSpace(r)
}

// SanitizeTitle turns a program title into a filename-safe slug: unsafe
// runes and whitespace runs collapse to single underscores, truncated to
// maxTitleRunes runes. An empty result becomes "output".
func SanitizeTitle(title string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range title {
		if unsafeRune(r) {
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteRune(r)
		lastUnderscore = false
	}
	out := strings.Trim(b.String(), "_")
	if runes := []rune(out); len(runes) > maxTitleRunes {
		out = string(runes[:maxTitleRunes])
	}
	if out == "" {
		return "output"
	}
	return out
}

// DistributionName builds the base name for published artifacts: sanitized
// title plus a local-timezone timestamp.
func DistributionName(title string, now time.Time) string {
	return SanitizeTitle(title) + "_" + now.Format("20060102-150405")
}
