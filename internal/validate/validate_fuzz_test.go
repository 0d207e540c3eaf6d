package validate

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"
)

// FuzzSanitizeTitle checks sanitized titles are single-line and stable.
// Run with: go test ./internal/validate -fuzz=FuzzSanitizeTitle -fuzztime=30s
func FuzzSanitizeTitle(f *testing.F) {
	seeds := []string{
		"normal text",
		"hello\x00world",
		"test\x1b[31mred",
		"café résumé",
		"日本語テスト",
		"emoji 😀🎉",
		"<script>alert('xss')</script>",
		"",
		"   ",
		"\t\n\r",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		out := SanitizeTitle(input)
		if strings.ContainsFunc(out, unicode.IsControl) {
			t.Fatalf("SanitizeTitle(%q) = %q contains control characters", input, out)
		}
		if again := SanitizeTitle(out); again != out {
			t.Fatalf("SanitizeTitle not idempotent: %q then %q", out, again)
		}
	})
}

// FuzzTruncateString checks truncation respects the rune limit.
// Run with: go test ./internal/validate -fuzz=FuzzTruncateString -fuzztime=30s
func FuzzTruncateString(f *testing.F) {
	f.Add("hello world", 5)
	f.Add("日本語テスト", 4)
	f.Add("", 0)

	f.Fuzz(func(t *testing.T, input string, n int) {
		if n < 0 || n > 1000 || !utf8.ValidString(input) {
			return
		}
		if got := utf8.RuneCountInString(TruncateString(input, n)); got > n {
			t.Fatalf("TruncateString(%q, %d) has %d runes", input, n, got)
		}
	})
}
