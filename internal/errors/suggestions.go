package errors

import "errors"

// Suggestions maps common errors to helpful suggestions.
var Suggestions = map[error]string{
	// User input errors
	ErrReminderNotFound: "Use 'chime remind list' to see reminders and their IDs.",
	ErrAmbiguousID:      "Type more characters of the reminder ID.",
	ErrInvalidSchedule:  "Run 'chime remind add --help' for the supported schedule keywords.",
	ErrInvalidTimeOfDay: "Use 24 hour HH:MM times like '08:00' or '20:30'.",
	ErrInvalidWeekday:   "Use weekday codes like MO,WE,FR or full names like monday.",
	ErrInvalidTimezone:  "Use an IANA zone name like 'Europe/Helsinki' or 'UTC'.",
	ErrInvalidDuration:  "Try formats like '30s', '5m' or '1h30m'.",
	ErrNoCredential:     "Set delivery.token in the config file or export CHIME_TOKEN.",

	// System errors
	ErrUnauthorized:        "The server rejected the token. Check that it matches one of the server's delivery.tokens.",
	ErrProviderUnavailable: "Prayer times could not be fetched. Reminders will resume once the provider is reachable.",
	ErrDatabaseCorrupted:   "Move the database aside and restart chime to rebuild it.",
	ErrNetworkUnavailable:  "Check your network connection. The listener keeps retrying in the background.",
	ErrLockHeld:            "Another chime instance is running. Stop it with 'chime serve stop' or remove a stale PID file.",
	ErrTimeout:             "The operation took too long. Try again or check your network connection.",
	ErrPermissionDenied:    "Grant notification and audio permissions, or check permissions on the data directory.",
}

// GetSuggestion returns a suggestion for an error, if available.
// It walks the error chain to find matching suggestions.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	for knownErr, suggestion := range Suggestions {
		if errors.Is(err, knownErr) {
			return suggestion
		}
	}

	// Check if it's a UserError with a suggestion
	if ue, ok := AsUserError(err); ok && ue.Suggestion != "" {
		return ue.Suggestion
	}

	return ""
}

// CommandExamples provides example commands for common errors.
var CommandExamples = map[error][]string{
	ErrInvalidSchedule: {
		"chime remind add Stand up at 09:30 every day",
		"chime remind add Gym at 18:00 on MO,WE,FR",
		"chime remind add Stretch every 45m",
		"chime remind add \"Fajr\" --prayer fajr --before 10m --city Cairo --country Egypt",
	},
	ErrInvalidTimeOfDay: {
		"chime remind add Meds at 08:00,20:00 every day",
	},
	ErrNoCredential: {
		"CHIME_TOKEN=secret chime listen",
	},
}

// GetExamples returns example commands for an error.
func GetExamples(err error) []string {
	for knownErr, examples := range CommandExamples {
		if errors.Is(err, knownErr) {
			return examples
		}
	}
	return nil
}
