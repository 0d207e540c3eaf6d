// Package parser turns human input into schedule fields.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// durationPattern matches expressions like "10", "30 min", "2h", "1h 30m", "1.5 hours".
var durationPattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(h|hr|hrs|hour|hours|m|min|mins|minute|minutes|s|sec|secs|second|seconds)?\s*(?:(\d+(?:\.\d+)?)\s*(m|min|mins|minute|minutes))?$`)

// ParseDuration parses a human-readable duration. A bare number is minutes.
// Zero and negative durations are rejected.
func ParseDuration(input string) (time.Duration, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, NewDurationError(input)
	}

	if d, err := time.ParseDuration(input); err == nil {
		if d <= 0 {
			return 0, NewDurationError(input)
		}
		return d, nil
	}

	matches := durationPattern.FindStringSubmatch(input)
	if matches == nil {
		return 0, NewDurationError(input)
	}

	var total time.Duration
	value, _ := strconv.ParseFloat(matches[1], 64)
	total += unitToDuration(value, strings.ToLower(matches[2]))

	if matches[3] != "" {
		value, _ := strconv.ParseFloat(matches[3], 64)
		total += unitToDuration(value, strings.ToLower(matches[4]))
	}

	if total <= 0 {
		return 0, NewDurationError(input)
	}
	return total, nil
}

func unitToDuration(value float64, unit string) time.Duration {
	switch unit {
	case "h", "hr", "hrs", "hour", "hours":
		return time.Duration(value * float64(time.Hour))
	case "s", "sec", "secs", "second", "seconds":
		return time.Duration(value * float64(time.Second))
	default:
		return time.Duration(value * float64(time.Minute))
	}
}
