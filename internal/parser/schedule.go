package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/markusmobius/go-dateparser"

	"github.com/manav03panchal/chime/internal/model"
)

// clockPattern matches 12h and 24h clock times: "9", "9am", "9:30 pm", "21:05".
var clockPattern = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?$`)

// ParseTimeOfDay parses one wall-clock time.
func ParseTimeOfDay(input string) (model.TimeOfDay, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	switch s {
	case "noon", "midday":
		return model.TimeOfDay{Hour: 12}, nil
	case "midnight":
		return model.TimeOfDay{}, nil
	}

	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return model.TimeOfDay{}, NewTimeOfDayError(input)
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}

	switch suffix := strings.ReplaceAll(m[3], ".", ""); suffix {
	case "am", "pm":
		if hour < 1 || hour > 12 {
			return model.TimeOfDay{}, NewTimeOfDayError(input)
		}
		hour %= 12
		if suffix == "pm" {
			hour += 12
		}
	default:
		if m[2] == "" {
			// A bare number without am/pm is ambiguous.
			return model.TimeOfDay{}, NewTimeOfDayError(input)
		}
	}

	tod := model.TimeOfDay{Hour: hour, Minute: minute}
	if !tod.Valid() {
		return model.TimeOfDay{}, NewTimeOfDayError(input)
	}
	return tod, nil
}

// ParseTimes parses a comma separated list of times of day.
func ParseTimes(input string) ([]model.TimeOfDay, error) {
	var out []model.TimeOfDay
	for _, part := range splitList(input) {
		tod, err := ParseTimeOfDay(part)
		if err != nil {
			return nil, err
		}
		out = append(out, tod)
	}
	if len(out) == 0 {
		return nil, NewTimeOfDayError(input)
	}
	return out, nil
}

var weekdayGroups = map[string][]model.Weekday{
	"weekday":  {model.Monday, model.Tuesday, model.Wednesday, model.Thursday, model.Friday},
	"weekdays": {model.Monday, model.Tuesday, model.Wednesday, model.Thursday, model.Friday},
	"weekends": {model.Saturday, model.Sunday},
	"weekend":  {model.Saturday, model.Sunday},
	"everyday": {model.Monday, model.Tuesday, model.Wednesday, model.Thursday, model.Friday, model.Saturday, model.Sunday},
}

// ParseWeekdays parses weekday codes, English day names and the groups
// "weekdays" and "weekends". Duplicates are removed; order is preserved.
func ParseWeekdays(input string) ([]model.Weekday, error) {
	seen := make(map[model.Weekday]bool)
	var out []model.Weekday
	add := func(w model.Weekday) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}

	for _, part := range strings.FieldsFunc(input, isWordSep) {
		if group, ok := weekdayGroups[strings.ToLower(part)]; ok {
			for _, w := range group {
				add(w)
			}
			continue
		}
		if !isDayName(part) {
			return nil, NewWeekdayError(part)
		}
		w, ok := model.ParseWeekday(part)
		if !ok {
			return nil, NewWeekdayError(part)
		}
		add(w)
	}
	if len(out) == 0 {
		return nil, NewWeekdayError(input)
	}
	return out, nil
}

var dayNames = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// isDayName accepts a two letter code or a prefix of an English day name.
func isDayName(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 2 {
		return false
	}
	for _, name := range dayNames {
		if strings.HasPrefix(name, s) {
			return true
		}
	}
	return false
}

// intervalPattern matches "45m", "2 hours", "day", "3d".
var intervalPattern = regexp.MustCompile(`(?i)^(\d+)?\s*(m|min|mins|minute|minutes|h|hr|hrs|hour|hours|d|day|days)$`)

// ParseInterval parses the period of an interval schedule.
func ParseInterval(input string) (model.Interval, error) {
	s := strings.TrimSpace(input)
	m := intervalPattern.FindStringSubmatch(s)
	if m == nil {
		return model.Interval{}, NewIntervalError(input)
	}

	var unit model.IntervalUnit
	switch strings.ToLower(m[2])[0] {
	case 'm':
		unit = model.UnitMinute
	case 'h':
		unit = model.UnitHour
	default:
		unit = model.UnitDay
	}

	every := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return model.Interval{}, NewIntervalError(input)
		}
		every = n
	}
	if every < 1 || every > unit.MaxEvery() {
		return model.Interval{}, NewIntervalError(input)
	}
	return model.Interval{Every: every, Unit: unit}, nil
}

// ParseDate parses a calendar date relative to now in loc. ISO dates are
// taken as-is; anything else goes through natural language parsing and
// prefers the future ("friday" is the coming friday).
func ParseDate(input string, now time.Time, loc *time.Location) (model.Date, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return model.Date{}, NewDateError(input)
	}
	if d, err := model.ParseDate(s); err == nil {
		return d, nil
	}

	t, err := parseNatural(s, now, loc)
	if err != nil {
		return model.Date{}, NewDateError(input)
	}
	return model.DateOf(t), nil
}

// ParseWhen parses a date with a time of day, such as "tomorrow 9am" or
// "2025-06-01 18:30", into wall-clock fields in loc.
func ParseWhen(input string, now time.Time, loc *time.Location) (model.Date, model.TimeOfDay, error) {
	s := strings.TrimSpace(input)
	if date, clock, ok := strings.Cut(s, " "); ok {
		if d, err := model.ParseDate(date); err == nil {
			tod, err := ParseTimeOfDay(clock)
			if err != nil {
				return model.Date{}, model.TimeOfDay{}, err
			}
			return d, tod, nil
		}
	}

	t, err := parseNatural(s, now, loc)
	if err != nil {
		return model.Date{}, model.TimeOfDay{}, NewDateError(input)
	}
	return model.DateOf(t), model.TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func parseNatural(s string, now time.Time, loc *time.Location) (time.Time, error) {
	cfg := &dateparser.Configuration{
		CurrentTime:         now.In(loc),
		PreferredDateSource: dateparser.Future,
	}
	result, err := dateparser.Parse(cfg, s)
	if err != nil {
		return time.Time{}, err
	}
	// Keep the parsed wall clock and place it in loc.
	t := result.Time
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

func isWordSep(r rune) bool {
	return r == ',' || r == ';' || unicode.IsSpace(r)
}

func splitList(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
