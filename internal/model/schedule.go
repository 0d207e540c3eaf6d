package model

import (
	"strings"
	"time"
)

// Mode is the recurrence strategy of a schedule.
type Mode string

// Recurrence modes.
const (
	ModeOnce     Mode = "once"
	ModeDaily    Mode = "daily"
	ModeWeekly   Mode = "weekly"
	ModeMonthly  Mode = "monthly"
	ModeInterval Mode = "interval"
	ModePrayer   Mode = "prayer"
)

// Modes returns every supported recurrence mode.
func Modes() []Mode {
	return []Mode{ModeOnce, ModeDaily, ModeWeekly, ModeMonthly, ModeInterval, ModePrayer}
}

// ParseMode returns the mode named by s, case-insensitively.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	return m, m.Valid()
}

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	for _, v := range Modes() {
		if m == v {
			return true
		}
	}
	return false
}

// Weekday is a two-letter weekday code (MO, TU, ...).
type Weekday string

// Weekday codes.
const (
	Monday    Weekday = "MO"
	Tuesday   Weekday = "TU"
	Wednesday Weekday = "WE"
	Thursday  Weekday = "TH"
	Friday    Weekday = "FR"
	Saturday  Weekday = "SA"
	Sunday    Weekday = "SU"
)

var weekdayCodes = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// WeekdayOf returns the code for a time.Weekday.
func WeekdayOf(d time.Weekday) Weekday {
	return weekdayCodes[d]
}

// ParseWeekday parses a weekday code or English day name.
func ParseWeekday(s string) (Weekday, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return "", false
	}
	w := Weekday(s[:2])
	_, ok := w.Time()
	return w, ok
}

// Time returns the time.Weekday for the code.
func (w Weekday) Time() (time.Weekday, bool) {
	for i, c := range weekdayCodes {
		if c == w {
			return time.Weekday(i), true
		}
	}
	return time.Sunday, false
}

// IntervalUnit is the unit of an Interval schedule.
type IntervalUnit string

// Interval units.
const (
	UnitMinute IntervalUnit = "minute"
	UnitHour   IntervalUnit = "hour"
	UnitDay    IntervalUnit = "day"
)

// Duration returns the absolute length of one unit.
func (u IntervalUnit) Duration() time.Duration {
	switch u {
	case UnitMinute:
		return time.Minute
	case UnitHour:
		return time.Hour
	case UnitDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

// MaxIntervalPeriod bounds an interval so that stepping from the anchor
// never overflows a time.Duration.
const MaxIntervalPeriod = 100 * 365 * 24 * time.Hour

// MaxEvery returns the largest count of u that stays within
// MaxIntervalPeriod. It is zero for an unknown unit.
func (u IntervalUnit) MaxEvery() int {
	d := u.Duration()
	if d == 0 {
		return 0
	}
	return int(MaxIntervalPeriod / d)
}

// Interval is the period of an Interval schedule.
type Interval struct {
	Every int          `json:"every" yaml:"every"`
	Unit  IntervalUnit `json:"unit" yaml:"unit"`
}

// Period returns Every units as a duration.
func (i Interval) Period() time.Duration {
	return time.Duration(i.Every) * i.Unit.Duration()
}

// Direction places a prayer-relative reminder before or after the prayer.
type Direction string

// Directions.
const (
	Before Direction = "before"
	After  Direction = "after"
)

// PrayerName is one of the five canonical daily prayers.
type PrayerName string

// Canonical prayer names.
const (
	Fajr    PrayerName = "Fajr"
	Dhuhr   PrayerName = "Dhuhr"
	Asr     PrayerName = "Asr"
	Maghrib PrayerName = "Maghrib"
	Isha    PrayerName = "Isha"
)

// PrayerNames returns the canonical prayers in daily order.
func PrayerNames() []PrayerName {
	return []PrayerName{Fajr, Dhuhr, Asr, Maghrib, Isha}
}

// ParsePrayerName matches s against the canonical names, case-insensitively.
func ParsePrayerName(s string) (PrayerName, bool) {
	s = strings.TrimSpace(s)
	for _, p := range PrayerNames() {
		if strings.EqualFold(string(p), s) {
			return p, true
		}
	}
	return "", false
}

// PrayerSpec anchors a reminder to a named prayer of the day.
type PrayerSpec struct {
	Name          PrayerName `json:"name" yaml:"name"`
	OffsetMinutes int        `json:"offset_minutes" yaml:"offset_minutes"`
	Direction     Direction  `json:"direction" yaml:"direction"`
	City          string     `json:"city,omitempty" yaml:"city,omitempty"`
	Country       string     `json:"country,omitempty" yaml:"country,omitempty"`
}

// Offset returns the signed shift applied to the prayer instant.
func (p PrayerSpec) Offset() time.Duration {
	d := time.Duration(p.OffsetMinutes) * time.Minute
	if p.Direction == Before {
		return -d
	}
	return d
}

// Location returns the city/country the prayer is resolved for.
func (p PrayerSpec) Location() Location {
	return Location{City: p.City, Country: p.Country}
}

// Schedule is the recurrence definition of a reminder.
//
// Exactly one of DaysOfWeek, Interval and Prayer is meaningful, selected by
// Mode. A normalized schedule carries inert values in the others.
type Schedule struct {
	Mode       Mode        `json:"mode" yaml:"mode"`
	Times      []TimeOfDay `json:"times" yaml:"times"`
	DaysOfWeek []Weekday   `json:"days_of_week,omitempty" yaml:"days_of_week,omitempty"`
	Interval   *Interval   `json:"interval,omitempty" yaml:"interval,omitempty"`
	Prayer     *PrayerSpec `json:"prayer,omitempty" yaml:"prayer,omitempty"`
	StartDate  Date        `json:"start_date" yaml:"start_date"`
	EndDate    *Date       `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Timezone   string      `json:"timezone" yaml:"timezone"`
	Exdates    []time.Time `json:"exdates,omitempty" yaml:"exdates,omitempty"`
}

// Location loads the schedule's IANA zone, falling back to UTC.
func (s Schedule) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HasWeekday reports whether w is one of the schedule's weekdays.
func (s Schedule) HasWeekday(w time.Weekday) bool {
	code := WeekdayOf(w)
	for _, d := range s.DaysOfWeek {
		if d == code {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the schedule.
func (s Schedule) Clone() Schedule {
	c := s
	c.Times = append([]TimeOfDay(nil), s.Times...)
	c.DaysOfWeek = append([]Weekday(nil), s.DaysOfWeek...)
	c.Exdates = append([]time.Time(nil), s.Exdates...)
	if s.Interval != nil {
		iv := *s.Interval
		c.Interval = &iv
	}
	if s.Prayer != nil {
		p := *s.Prayer
		c.Prayer = &p
	}
	if s.EndDate != nil {
		d := *s.EndDate
		c.EndDate = &d
	}
	return c
}
