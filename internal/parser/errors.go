package parser

import (
	"fmt"
	"strings"

	"github.com/manav03panchal/chime/internal/errors"
)

// InputError is a parse error for one user-supplied value, with examples.
type InputError struct {
	Input      string
	Field      string
	Message    string
	Examples   []string
	Suggestion string
	// Kind is the sentinel the error unwraps to.
	Kind error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s '%s': %s", e.Field, e.Input, e.Message)
}

func (e *InputError) Unwrap() error {
	return e.Kind
}

// FormatWithExamples returns the error message with example suggestions.
func (e *InputError) FormatWithExamples() string {
	var sb strings.Builder
	sb.WriteString(e.Error())

	if len(e.Examples) > 0 {
		sb.WriteString("\n\nValid examples:\n")
		for _, ex := range e.Examples {
			sb.WriteString("  - ")
			sb.WriteString(ex)
			sb.WriteString("\n")
		}
	}

	if e.Suggestion != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

// ToUserError converts the error to a UserError for consistent handling.
func (e *InputError) ToUserError() *errors.UserError {
	suggestion := e.Suggestion
	if len(e.Examples) > 0 && suggestion == "" {
		suggestion = fmt.Sprintf("Try: %s", strings.Join(e.Examples[:min(3, len(e.Examples))], ", "))
	}

	return errors.NewUserErrorWithField(e.Field, e.Input, e.Message, suggestion)
}

// Example inputs per field.
var (
	DurationExamples  = []string{"10m", "1h30m", "90 minutes", "2 hours"}
	TimeOfDayExamples = []string{"08:00", "20:30", "9am", "5:30pm", "noon"}
	WeekdayExamples   = []string{"MO,WE,FR", "monday,thursday", "weekdays", "weekends"}
	IntervalExamples  = []string{"45m", "2h", "3d", "90 minutes"}
	DateExamples      = []string{"2025-06-01", "tomorrow", "next friday", "june 3"}
)

// NewDurationError creates a duration parse error.
func NewDurationError(input string) *InputError {
	return &InputError{
		Input:      input,
		Field:      "duration",
		Message:    "could not parse duration",
		Examples:   DurationExamples,
		Suggestion: "A bare number is read as minutes.",
		Kind:       errors.ErrInvalidDuration,
	}
}

// NewTimeOfDayError creates a time of day parse error.
func NewTimeOfDayError(input string) *InputError {
	return &InputError{
		Input:    input,
		Field:    "time",
		Message:  "could not parse time of day",
		Examples: TimeOfDayExamples,
		Kind:     errors.ErrInvalidTimeOfDay,
	}
}

// NewWeekdayError creates a weekday parse error.
func NewWeekdayError(input string) *InputError {
	return &InputError{
		Input:    input,
		Field:    "weekday",
		Message:  "could not parse weekday",
		Examples: WeekdayExamples,
		Kind:     errors.ErrInvalidWeekday,
	}
}

// NewIntervalError creates an interval parse error.
func NewIntervalError(input string) *InputError {
	return &InputError{
		Input:      input,
		Field:      "interval",
		Message:    "could not parse interval",
		Examples:   IntervalExamples,
		Suggestion: "Intervals are whole minutes (m), hours (h) or days (d).",
		Kind:       errors.ErrInvalidSchedule,
	}
}

// NewDateError creates a date parse error.
func NewDateError(input string) *InputError {
	return &InputError{
		Input:    input,
		Field:    "date",
		Message:  "could not parse date",
		Examples: DateExamples,
		Kind:     errors.ErrInvalidSchedule,
	}
}
