// Package schedule normalizes recurrence definitions and computes their
// occurrences.
package schedule

import (
	"slices"
	"strings"
	"time"

	"github.com/jmhodges/clock"

	"github.com/manav03panchal/chime/internal/model"
)

// Defaults applied by the normalizer.
var (
	DefaultTime     = model.TimeOfDay{Hour: 8, Minute: 0}
	DefaultInterval = model.Interval{Every: 1, Unit: model.UnitHour}
	DefaultPrayer   = model.PrayerSpec{Name: model.Fajr, OffsetMinutes: 10, Direction: model.Before}
)

// Normalizer completes raw schedules into canonical form.
type Normalizer struct {
	// Timezone replaces missing or unknown schedule zones.
	Timezone string
	// Location fills the prayer city and country when omitted.
	Location model.Location
	// Clock supplies "today" for a missing start date.
	Clock clock.Clock
}

// NewNormalizer returns a normalizer using the real clock.
func NewNormalizer(timezone string, loc model.Location) *Normalizer {
	return &Normalizer{Timezone: timezone, Location: loc, Clock: clock.New()}
}

// Normalize fills every omitted field with its default and clears the fields
// the mode does not use. It never fails and is idempotent.
func (n *Normalizer) Normalize(raw model.Schedule) model.Schedule {
	s := raw.Clone()

	mode, ok := model.ParseMode(string(s.Mode))
	if !ok {
		mode = model.ModeDaily
	}
	s.Mode = mode

	s.Timezone = n.zone(s.Timezone)
	loc := s.Location()

	s.Times = normalizeTimes(s.Times)

	if s.StartDate.IsZero() {
		s.StartDate = model.DateOf(n.now().In(loc))
	}
	if s.EndDate != nil && s.EndDate.IsZero() {
		s.EndDate = nil
	}

	s.DaysOfWeek = nil
	s.Interval = nil
	s.Prayer = nil
	switch mode {
	case model.ModeWeekly:
		s.DaysOfWeek = normalizeWeekdays(raw.DaysOfWeek, s.StartDate)
	case model.ModeInterval:
		s.Interval = normalizeInterval(raw.Interval)
	case model.ModePrayer:
		s.Prayer = n.normalizePrayer(raw.Prayer)
	}

	s.Exdates = normalizeExdates(s.Exdates)
	return s
}

func (n *Normalizer) now() time.Time {
	if n.Clock == nil {
		return time.Now()
	}
	return n.Clock.Now()
}

func (n *Normalizer) zone(tz string) string {
	tz = strings.TrimSpace(tz)
	if tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			return tz
		}
	}
	if n.Timezone != "" {
		if _, err := time.LoadLocation(n.Timezone); err == nil {
			return n.Timezone
		}
	}
	return "UTC"
}

func normalizeTimes(in []model.TimeOfDay) []model.TimeOfDay {
	out := make([]model.TimeOfDay, 0, len(in))
	for _, t := range in {
		if t.Valid() {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return []model.TimeOfDay{DefaultTime}
	}
	slices.SortFunc(out, func(a, b model.TimeOfDay) int { return a.Minutes() - b.Minutes() })
	return slices.Compact(out)
}

// weekdayOrder sorts codes Monday first.
func weekdayOrder(w model.Weekday) int {
	d, _ := w.Time()
	return (int(d) + 6) % 7
}

func normalizeWeekdays(in []model.Weekday, start model.Date) []model.Weekday {
	out := make([]model.Weekday, 0, len(in))
	for _, w := range in {
		if code, ok := model.ParseWeekday(string(w)); ok {
			out = append(out, code)
		}
	}
	if len(out) == 0 {
		return []model.Weekday{model.WeekdayOf(start.Weekday())}
	}
	slices.SortFunc(out, func(a, b model.Weekday) int { return weekdayOrder(a) - weekdayOrder(b) })
	return slices.Compact(out)
}

func normalizeInterval(in *model.Interval) *model.Interval {
	if in == nil || in.Every <= 0 {
		iv := DefaultInterval
		return &iv
	}
	iv := *in
	if iv.Unit.Duration() == 0 {
		iv.Unit = model.UnitHour
	}
	iv.Every = min(iv.Every, iv.Unit.MaxEvery())
	return &iv
}

func (n *Normalizer) normalizePrayer(in *model.PrayerSpec) *model.PrayerSpec {
	p := DefaultPrayer
	if in != nil {
		p = *in
		name, ok := model.ParsePrayerName(string(p.Name))
		if !ok {
			name = model.Fajr
		}
		p.Name = name
		if p.OffsetMinutes < 0 {
			p.OffsetMinutes = 0
		}
		switch strings.ToLower(string(p.Direction)) {
		case string(model.After):
			p.Direction = model.After
		default:
			p.Direction = model.Before
		}
	}
	p.City = strings.TrimSpace(p.City)
	p.Country = strings.TrimSpace(p.Country)
	if p.City == "" {
		p.City = strings.TrimSpace(n.Location.City)
		if p.Country == "" {
			p.Country = strings.TrimSpace(n.Location.Country)
		}
	}
	return &p
}

func normalizeExdates(in []time.Time) []time.Time {
	if len(in) == 0 {
		return nil
	}
	out := make([]time.Time, 0, len(in))
	for _, t := range in {
		if !t.IsZero() {
			out = append(out, t.UTC())
		}
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	out = slices.CompactFunc(out, func(a, b time.Time) bool { return a.Equal(b) })
	if len(out) == 0 {
		return nil
	}
	return out
}
