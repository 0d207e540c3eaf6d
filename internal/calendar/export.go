// Package calendar exports reminders as an iCalendar feed.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/manav03panchal/chime/internal/model"
)

// ProductID identifies the generator in exported calendars.
const ProductID = "-//chime//reminders//EN"

// Export defaults.
const (
	DefaultEventDuration = 15 * time.Minute
	DefaultPrayerDays    = 7

	icsUTC   = "20060102T150405Z"
	icsLocal = "20060102T150405"
)

// Planner computes occurrences of reminders.
type Planner interface {
	Next(ctx context.Context, r *model.Reminder, now time.Time) (time.Time, bool)
	Upcoming(ctx context.Context, r *model.Reminder, now time.Time, n int) []time.Time
}

// Exporter renders reminders as VEVENTs.
type Exporter struct {
	Planner       Planner
	EventDuration time.Duration
	// PrayerDays is how many resolved prayer instants are exported per
	// prayer reminder. Prayer times have no recurrence rule.
	PrayerDays int
}

// NewExporter creates an exporter with default settings.
func NewExporter(p Planner) *Exporter {
	return &Exporter{Planner: p, EventDuration: DefaultEventDuration, PrayerDays: DefaultPrayerDays}
}

// Export serializes every schedulable reminder that still has an
// occurrence after now.
func (x *Exporter) Export(ctx context.Context, reminders []*model.Reminder, now time.Time) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)

	sorted := append([]*model.Reminder(nil), reminders...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, r := range sorted {
		if !r.Schedulable() {
			continue
		}
		if err := x.addReminder(ctx, cal, r, now); err != nil {
			return nil, fmt.Errorf("failed to export reminder %s: %w", r.ShortID(), err)
		}
	}
	return []byte(cal.Serialize()), nil
}

func (x *Exporter) addReminder(ctx context.Context, cal *ics.Calendar, r *model.Reminder, now time.Time) error {
	s := r.Schedule
	switch s.Mode {
	case model.ModeOnce:
		if at, ok := x.Planner.Next(ctx, r, now); ok {
			x.event(cal, r, uid(r.ID, ""), at, "")
		}
	case model.ModePrayer:
		for _, at := range x.Planner.Upcoming(ctx, r, now, x.prayerDays()) {
			x.event(cal, r, uid(r.ID, at.UTC().Format(icsUTC)), at, "")
		}
	case model.ModeInterval:
		at, ok := x.Planner.Next(ctx, r, now)
		if !ok {
			return nil
		}
		rule, err := Rule(s)
		if err != nil {
			return err
		}
		x.event(cal, r, uid(r.ID, ""), at, rule)
	default:
		// One series per time of day; BYHOUR x BYMINUTE would cross times.
		for _, tod := range s.Times {
			single := *r
			single.Schedule = s.Clone()
			single.Schedule.Times = []model.TimeOfDay{tod}
			single.SnoozedUntil = nil
			at, ok := x.Planner.Next(ctx, &single, now)
			if !ok {
				continue
			}
			rule, err := Rule(s)
			if err != nil {
				return err
			}
			x.event(cal, r, uid(r.ID, strings.ReplaceAll(tod.String(), ":", "")), at, rule)
		}
	}
	return nil
}

func (x *Exporter) event(cal *ics.Calendar, r *model.Reminder, id string, start time.Time, rule string) {
	ev := cal.AddEvent(id)
	ev.SetDtStampTime(r.UpdatedAt)
	ev.SetSummary(r.Title)
	if r.Notes != "" {
		ev.SetDescription(r.Notes)
	}

	zone := r.Schedule.Timezone
	if zone == "" || zone == "UTC" {
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(x.duration()))
	} else {
		loc := r.Schedule.Location()
		tzid := &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{zone}}
		ev.SetProperty(ics.ComponentPropertyDtStart, start.In(loc).Format(icsLocal), tzid)
		ev.SetProperty(ics.ComponentPropertyDtEnd, start.Add(x.duration()).In(loc).Format(icsLocal), tzid)
	}

	if rule != "" {
		ev.AddProperty(ics.ComponentPropertyRrule, rule)
		for _, ex := range r.Schedule.Exdates {
			if !ex.Before(start) {
				ev.AddProperty(ics.ComponentPropertyExdate, ex.UTC().Format(icsUTC))
			}
		}
	}

	alarm := ev.AddAlarm()
	alarm.SetAction(ics.ActionDisplay)
	alarm.SetTrigger("PT0M")
	alarm.AddProperty(ics.ComponentPropertyDescription, r.Title)
}

func (x *Exporter) duration() time.Duration {
	if x.EventDuration <= 0 {
		return DefaultEventDuration
	}
	return x.EventDuration
}

func (x *Exporter) prayerDays() int {
	if x.PrayerDays <= 0 {
		return DefaultPrayerDays
	}
	return x.PrayerDays
}

func uid(id, suffix string) string {
	if suffix == "" {
		return id + "@chime"
	}
	return id + "-" + suffix + "@chime"
}

// Rule renders the recurrence of s as an RRULE value. Once and Prayer
// schedules have none. Monthly renders as daily, matching how monthly
// occurrences are computed.
func Rule(s model.Schedule) (string, error) {
	opt := rrule.ROption{}
	switch s.Mode {
	case model.ModeDaily, model.ModeMonthly:
		opt.Freq = rrule.DAILY
	case model.ModeWeekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range s.DaysOfWeek {
			if wd, ok := weekday(d); ok {
				opt.Byweekday = append(opt.Byweekday, wd)
			}
		}
	case model.ModeInterval:
		if s.Interval == nil {
			return "", fmt.Errorf("interval schedule without interval")
		}
		opt.Interval = s.Interval.Every
		switch s.Interval.Unit {
		case model.UnitMinute:
			opt.Freq = rrule.MINUTELY
		case model.UnitDay:
			// Interval days are absolute 24h periods, not calendar days.
			opt.Freq = rrule.HOURLY
			opt.Interval = s.Interval.Every * 24
		default:
			opt.Freq = rrule.HOURLY
		}
	default:
		return "", nil
	}

	if s.EndDate != nil {
		opt.Until = s.EndDate.EndOfDay(s.Location()).UTC()
	}
	return opt.RRuleString(), nil
}

func weekday(d model.Weekday) (rrule.Weekday, bool) {
	switch d {
	case model.Monday:
		return rrule.MO, true
	case model.Tuesday:
		return rrule.TU, true
	case model.Wednesday:
		return rrule.WE, true
	case model.Thursday:
		return rrule.TH, true
	case model.Friday:
		return rrule.FR, true
	case model.Saturday:
		return rrule.SA, true
	case model.Sunday:
		return rrule.SU, true
	}
	return rrule.Weekday{}, false
}
