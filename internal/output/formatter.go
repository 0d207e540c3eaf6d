// Package output renders command results for the terminal or as JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

// Format selects how command results are written.
type Format string

const (
	FormatCLI   Format = "cli"
	FormatJSON  Format = "json"
	FormatPlain Format = "plain"
)

// ParseFormat maps a --format value to a Format. Unknown values fall back
// to FormatCLI.
func ParseFormat(s string) Format {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatPlain:
		return f
	default:
		return FormatCLI
	}
}

// ColorMode represents the color output mode.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode maps a --color value to a ColorMode. Unknown values fall
// back to ColorAuto.
func ParseColorMode(s string) ColorMode {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ColorAlways, ColorNever:
		return m
	default:
		return ColorAuto
	}
}

// Formatter writes command output in the selected format.
type Formatter struct {
	Writer    io.Writer
	Format    Format
	ColorMode ColorMode
}

// NewFormatter returns a CLI formatter on stdout with automatic color.
func NewFormatter() *Formatter {
	return &Formatter{
		Writer:    os.Stdout,
		Format:    FormatCLI,
		ColorMode: ColorAuto,
	}
}

// IsColorEnabled reports whether styled output should be written. NO_COLOR
// disables automatic color.
func (f *Formatter) IsColorEnabled() bool {
	switch f.ColorMode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if w, ok := f.Writer.(*os.File); ok {
		return isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd())
	}
	return false
}

func (f *Formatter) Print(a ...any) {
	fmt.Fprint(f.Writer, a...)
}

func (f *Formatter) Println(a ...any) {
	fmt.Fprintln(f.Writer, a...)
}

func (f *Formatter) Printf(format string, a ...any) {
	fmt.Fprintf(f.Writer, format, a...)
}

// JSON writes v as indented JSON. Titles and notes are written as typed,
// without HTML escaping.
func (f *Formatter) JSON(v any) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}

// FormatDuration renders d down to the second, e.g. "1d 2h", "1m 30s".
// Negative durations render as "0s".
func FormatDuration(d time.Duration) string {
	return formatDuration(d, true)
}

// FormatDurationShort renders d down to the minute, e.g. "2h 15m". Under a
// minute it falls back to seconds.
func FormatDurationShort(d time.Duration) string {
	return formatDuration(d, false)
}

func formatDuration(d time.Duration, seconds bool) string {
	d = max(d, 0).Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}

	units := []struct {
		size   time.Duration
		suffix string
	}{
		{24 * time.Hour, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
	}
	if !seconds {
		units = units[:3]
	}

	var parts []string
	for _, u := range units {
		if n := d / u.size; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, u.suffix))
			d -= n * u.size
		}
		// Two parts are enough to read at a glance.
		if len(parts) == 2 {
			break
		}
	}
	return strings.Join(parts, " ")
}

// FormatTimeShort renders t in its own location without seconds. Callers
// pick the zone, usually the reminder's schedule zone.
func FormatTimeShort(t time.Time) string {
	return t.Format("2006-01-02 15:04 MST")
}

// FormatTimeOnly renders the clock time of t in its own location.
func FormatTimeOnly(t time.Time) string {
	return t.Format("15:04")
}
