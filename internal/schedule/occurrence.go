package schedule

import (
	"time"

	"github.com/manav03panchal/chime/internal/model"
)

// weeklyScanDays bounds the Weekly day-by-day scan. Three weeks always covers
// one full cycle of any weekday set.
const weeklyScanDays = 21

// Excluded reports whether a candidate instant must be skipped.
// A nil Excluded excludes nothing.
type Excluded func(time.Time) bool

func (e Excluded) match(t time.Time) bool {
	return e != nil && e(t)
}

// NextOccurrence returns the next instant at or after now at which s fires.
// The schedule must already be normalized. Prayer schedules always report
// false here; they are resolved by composing with a prayer resolver.
func NextOccurrence(s model.Schedule, now time.Time, excluded Excluded) (time.Time, bool) {
	loc := s.Location()
	now = now.In(loc)

	if s.EndDate != nil && now.After(s.EndDate.EndOfDay(loc)) {
		return time.Time{}, false
	}

	var (
		next time.Time
		ok   bool
	)
	switch s.Mode {
	case model.ModeOnce:
		next, ok = nextOnce(s, now, loc, excluded)
	case model.ModeDaily, model.ModeMonthly:
		// Monthly does not narrow by day of month. It fires like Daily.
		next, ok = nextDaily(s, now, loc, excluded)
	case model.ModeWeekly:
		next, ok = nextWeekly(s, now, loc, excluded)
	case model.ModeInterval:
		next, ok = nextInterval(s, now, loc, excluded)
	default:
		return time.Time{}, false
	}

	if !ok || !withinEnd(s, next, loc) {
		return time.Time{}, false
	}
	return next, true
}

func withinEnd(s model.Schedule, t time.Time, loc *time.Location) bool {
	return s.EndDate == nil || !t.After(s.EndDate.EndOfDay(loc))
}

func times(s model.Schedule) []model.TimeOfDay {
	if len(s.Times) == 0 {
		return []model.TimeOfDay{DefaultTime}
	}
	return s.Times
}

// firstDay is the first calendar day the scan may consider.
func firstDay(s model.Schedule, now time.Time) model.Date {
	today := model.DateOf(now)
	if today.Before(s.StartDate) {
		return s.StartDate
	}
	return today
}

// remaining returns the first time on day that is not before now.
func remaining(day model.Date, tods []model.TimeOfDay, now time.Time, loc *time.Location) (time.Time, bool) {
	for _, tod := range tods {
		if c := day.At(tod, loc); !c.Before(now) {
			return c, true
		}
	}
	return time.Time{}, false
}

func nextOnce(s model.Schedule, now time.Time, loc *time.Location, excluded Excluded) (time.Time, bool) {
	c := s.StartDate.At(times(s)[0], loc)
	if c.Before(now) || excluded.match(c) {
		return time.Time{}, false
	}
	return c, true
}

func nextDaily(s model.Schedule, now time.Time, loc *time.Location, excluded Excluded) (time.Time, bool) {
	tods := times(s)
	day := firstDay(s, now)

	c, ok := remaining(day, tods, now, loc)
	if !ok {
		day = day.AddDays(1)
		c = day.At(tods[0], loc)
	}
	if !excluded.match(c) {
		return c, true
	}

	// One retry on the following day, never more.
	retry := day.AddDays(1).At(tods[0], loc)
	if excluded.match(retry) {
		return time.Time{}, false
	}
	return retry, true
}

func nextWeekly(s model.Schedule, now time.Time, loc *time.Location, excluded Excluded) (time.Time, bool) {
	tods := times(s)
	start := firstDay(s, now)

	for i := 0; i < weeklyScanDays; i++ {
		day := start.AddDays(i)
		if !s.HasWeekday(day.Weekday()) {
			continue
		}
		for _, tod := range tods {
			c := day.At(tod, loc)
			if c.Before(now) || excluded.match(c) {
				continue
			}
			return c, true
		}
	}
	return time.Time{}, false
}

func nextInterval(s model.Schedule, now time.Time, loc *time.Location, excluded Excluded) (time.Time, bool) {
	anchor := s.StartDate.At(times(s)[0], loc)
	period := intervalPeriod(s)

	c := anchor
	if now.After(anchor) {
		elapsed := now.Sub(anchor)
		steps := (elapsed + period - 1) / period
		c = anchor.Add(steps * period)
	}
	if excluded.match(c) {
		return c.Add(period), true
	}
	return c, true
}

func intervalPeriod(s model.Schedule) time.Duration {
	if s.Interval != nil {
		if p := s.Interval.Period(); p > 0 {
			return p
		}
	}
	return DefaultInterval.Period()
}
