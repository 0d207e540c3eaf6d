package validate

import (
	"strings"
	"unicode"
)

// SanitizeTitle trims a title, drops control characters and collapses runs
// of whitespace to one space.
func SanitizeTitle(title string) string {
	return strings.Join(strings.Fields(stripControl(title, false)), " ")
}

// SanitizeNote cleans notes for safe storage. Line breaks are kept.
func SanitizeNote(note string) string {
	note = strings.ReplaceAll(note, "\r\n", "\n")
	note = strings.ReplaceAll(note, "\r", "\n")
	return strings.TrimSpace(StripControlChars(note))
}

// StripControlChars removes control characters other than newline and tab.
func StripControlChars(s string) string {
	return stripControl(s, true)
}

func stripControl(s string, keepLines bool) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) && !(keepLines && (r == '\n' || r == '\t')) {
			if r == '\n' || r == '\t' {
				sb.WriteRune(' ')
			}
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// TruncateString shortens s to at most maxLen runes, ending in "..." when
// cut.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// SafeFilename converts a string to a safe filename.
func SafeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		"\x00", "",
	)
	s = strings.Trim(replacer.Replace(s), " .")
	return TruncateString(s, 200)
}
