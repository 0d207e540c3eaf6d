package schedule

import (
	"slices"
	"time"

	"github.com/manav03panchal/chime/internal/model"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// Period returns the longest gap between two consecutive expected
// occurrences of s. Lifecycle tracking uses it to decide whether the
// previous occurrence was missed. Once schedules have no period.
func Period(s model.Schedule) time.Duration {
	switch s.Mode {
	case model.ModeDaily, model.ModeMonthly:
		return maxCyclicGap(offsets(times(s), 0), day)
	case model.ModeWeekly:
		var all []time.Duration
		for _, w := range s.DaysOfWeek {
			d, ok := w.Time()
			if !ok {
				continue
			}
			all = append(all, offsets(times(s), time.Duration(d)*day)...)
		}
		if len(all) == 0 {
			return week
		}
		return maxCyclicGap(all, week)
	case model.ModeInterval:
		return intervalPeriod(s)
	case model.ModePrayer:
		return day
	default:
		return 0
	}
}

func offsets(tods []model.TimeOfDay, base time.Duration) []time.Duration {
	out := make([]time.Duration, 0, len(tods))
	for _, tod := range tods {
		out = append(out, base+time.Duration(tod.Minutes())*time.Minute)
	}
	return out
}

// maxCyclicGap returns the largest distance between neighbouring offsets on
// a circle of the given length.
func maxCyclicGap(offs []time.Duration, cycle time.Duration) time.Duration {
	if len(offs) <= 1 {
		return cycle
	}
	slices.Sort(offs)
	offs = slices.Compact(offs)
	if len(offs) == 1 {
		return cycle
	}
	gap := offs[0] + cycle - offs[len(offs)-1]
	for i := 1; i < len(offs); i++ {
		gap = max(gap, offs[i]-offs[i-1])
	}
	return gap
}

// Upcoming returns up to n successive occurrences of s after now.
func Upcoming(s model.Schedule, now time.Time, n int, excluded Excluded) []time.Time {
	var out []time.Time
	from := now
	for len(out) < n {
		next, ok := NextOccurrence(s, from, excluded)
		if !ok || (len(out) > 0 && !next.After(out[len(out)-1])) {
			break
		}
		out = append(out, next)
		from = next.Add(time.Second)
	}
	return out
}
