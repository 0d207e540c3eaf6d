package calendar

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
)

// Occurrence is one expanded calendar instance.
type Occurrence struct {
	UID     string
	Summary string
	At      time.Time
}

// Expand parses an iCalendar feed and returns every instance in
// [from, to], ordered by time.
func Expand(data []byte, from, to time.Time) ([]Occurrence, error) {
	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}

	var out []Occurrence
	for _, ev := range cal.Events() {
		occ, err := expandEvent(ev, from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, occ...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

func expandEvent(ev *ics.VEvent, from, to time.Time) ([]Occurrence, error) {
	var summary string
	if p := ev.GetProperty(ics.ComponentPropertySummary); p != nil {
		summary = p.Value
	}

	dtstart := ev.GetProperty(ics.ComponentPropertyDtStart)
	if dtstart == nil {
		return nil, fmt.Errorf("event %s has no DTSTART", ev.Id())
	}
	start, err := parseTime(dtstart.Value, dtstart.ICalParameters)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.Id(), err)
	}

	mk := func(t time.Time) Occurrence { return Occurrence{UID: ev.Id(), Summary: summary, At: t} }

	rp := ev.GetProperty(ics.ComponentPropertyRrule)
	if rp == nil {
		if start.Before(from) || start.After(to) {
			return nil, nil
		}
		return []Occurrence{mk(start)}, nil
	}

	r, err := rrule.StrToRRule(rp.Value)
	if err != nil {
		return nil, fmt.Errorf("event %s: invalid RRULE: %w", ev.Id(), err)
	}
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, p := range ev.GetProperties(ics.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			ex, err := parseTime(strings.TrimSpace(part), p.ICalParameters)
			if err != nil {
				return nil, fmt.Errorf("event %s: invalid EXDATE: %w", ev.Id(), err)
			}
			set.ExDate(ex.In(start.Location()))
		}
	}

	var out []Occurrence
	for _, t := range set.Between(from.In(start.Location()), to.In(start.Location()), true) {
		out = append(out, mk(t))
	}
	return out, nil
}

func parseTime(value string, params map[string][]string) (time.Time, error) {
	if strings.HasSuffix(value, "Z") {
		return time.Parse(icsUTC, value)
	}
	loc := time.UTC
	if tz, ok := params[string(ics.ParameterTzid)]; ok && len(tz) > 0 {
		l, err := time.LoadLocation(tz[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("unknown TZID %q", tz[0])
		}
		loc = l
	}
	return time.ParseInLocation(icsLocal, value, loc)
}
