package parser

import (
	"testing"
	"time"
)

// FuzzParseDuration checks the duration parser never panics and never
// accepts a non-positive duration.
// Run with: go test ./internal/parser -fuzz=FuzzParseDuration -fuzztime=30s
func FuzzParseDuration(f *testing.F) {
	seeds := []string{
		"10",
		"30m",
		"1h30m",
		"90 min",
		"1.5 hours",
		"45s",
		"0",
		"-5m",
		"",
		"ten minutes",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		d, err := ParseDuration(input)
		if err == nil && d <= 0 {
			t.Fatalf("ParseDuration(%q) = %v, want positive or error", input, d)
		}
	})
}

// FuzzParseTimes checks every accepted time of day is valid.
// Run with: go test ./internal/parser -fuzz=FuzzParseTimes -fuzztime=30s
func FuzzParseTimes(f *testing.F) {
	seeds := []string{
		"08:00",
		"8am,8pm",
		"9:30, 18:00",
		"12am",
		"24:00",
		"7",
		"noon",
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		times, err := ParseTimes(input)
		if err != nil {
			return
		}
		for _, tod := range times {
			if !tod.Valid() {
				t.Fatalf("ParseTimes(%q) returned invalid %v", input, tod)
			}
		}
	})
}

// FuzzParsePhrase checks phrases never panic when turned into schedules.
// Run with: go test ./internal/parser -fuzz=FuzzParsePhrase -fuzztime=30s
func FuzzParsePhrase(f *testing.F) {
	seeds := []string{
		"Stand up at 9:30 on weekdays",
		"Drink water every 2h until friday",
		`"Meet at noon" at 12:00`,
		"Gym at 18:00 on MO,WE,FR",
		"Rent at 9am every month from 2025-02-01",
		"at at at",
		"every",
		`"unterminated`,
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	now := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	f.Fuzz(func(t *testing.T, input string) {
		p := ParsePhrase([]string{input})
		_, _ = p.Schedule(now, time.UTC)
	})
}
