// Package planner computes reminder occurrences, composing the pure
// schedule calculator with prayer-time resolution.
package planner

import (
	"context"
	"time"

	"github.com/manav03panchal/chime/internal/model"
	"github.com/manav03panchal/chime/internal/schedule"
)

// prayerScanDays is how many days ahead a prayer occurrence is looked for.
// Today's prayer may already have passed, so tomorrow must be reachable.
const prayerScanDays = 2

// Resolver resolves a prayer spec on a calendar day.
type Resolver interface {
	Resolve(ctx context.Context, spec model.PrayerSpec, date model.Date, zone *time.Location) (time.Time, bool)
}

// Planner answers "when does this reminder fire next".
type Planner struct {
	resolver  Resolver
	tolerance time.Duration
}

// New creates a planner. resolver may be nil, in which case prayer
// reminders have no occurrence.
func New(resolver Resolver, tolerance time.Duration) *Planner {
	return &Planner{resolver: resolver, tolerance: tolerance}
}

// Next returns the next occurrence of r at or after now. Inactive and
// completed reminders never fire. A pending snooze earlier than the
// scheduled occurrence wins.
func (p *Planner) Next(ctx context.Context, r *model.Reminder, now time.Time) (time.Time, bool) {
	if !r.Schedulable() {
		return time.Time{}, false
	}

	next, ok := p.next(ctx, r.Schedule, now)
	if r.SnoozedUntil != nil && !r.SnoozedUntil.Before(now) {
		if !ok || r.SnoozedUntil.Before(next) {
			return r.SnoozedUntil.In(r.Schedule.Location()), true
		}
	}
	return next, ok
}

// Upcoming returns up to n occurrences of r after now, ignoring snoozes.
func (p *Planner) Upcoming(ctx context.Context, r *model.Reminder, now time.Time, n int) []time.Time {
	if !r.Schedulable() {
		return nil
	}
	if r.Schedule.Mode != model.ModePrayer {
		return schedule.Upcoming(r.Schedule, now, n, p.excluded(r.Schedule))
	}

	var out []time.Time
	from := now
	for len(out) < n {
		next, ok := p.nextPrayer(ctx, r.Schedule, from)
		if !ok {
			break
		}
		out = append(out, next)
		from = next.Add(time.Second)
	}
	return out
}

func (p *Planner) next(ctx context.Context, s model.Schedule, now time.Time) (time.Time, bool) {
	if s.Mode == model.ModePrayer {
		return p.nextPrayer(ctx, s, now)
	}
	return schedule.NextOccurrence(s, now, p.excluded(s))
}

func (p *Planner) excluded(s model.Schedule) schedule.Excluded {
	return schedule.NewExclusionSet(s.Exdates, p.tolerance).Predicate()
}

func (p *Planner) nextPrayer(ctx context.Context, s model.Schedule, now time.Time) (time.Time, bool) {
	if p.resolver == nil || s.Prayer == nil {
		return time.Time{}, false
	}
	loc := s.Location()
	now = now.In(loc)
	if s.EndDate != nil && now.After(s.EndDate.EndOfDay(loc)) {
		return time.Time{}, false
	}

	excluded := p.excluded(s)
	start := model.DateOf(now)
	if start.Before(s.StartDate) {
		start = s.StartDate
	}

	for i := 0; i < prayerScanDays; i++ {
		d := start.AddDays(i)
		if s.EndDate != nil && d.After(*s.EndDate) {
			break
		}
		t, ok := p.resolver.Resolve(ctx, *s.Prayer, d, loc)
		if !ok {
			// Never guess past a day that could not be resolved.
			return time.Time{}, false
		}
		if t.Before(now) || (excluded != nil && excluded(t)) {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}
