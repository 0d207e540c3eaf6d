// Package lifecycle keeps reminder streaks and counters in step with user
// responses to alerts.
package lifecycle

import (
	"time"

	"github.com/jmhodges/clock"

	"github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/model"
	"github.com/manav03panchal/chime/internal/schedule"
)

// Store applies an atomic read-modify-write to a stored reminder.
type Store interface {
	Modify(id string, fn func(*model.Reminder) error) (*model.Reminder, error)
}

// Tracker records acknowledgments, skips, snoozes and pauses.
type Tracker struct {
	store     Store
	clk       clock.Clock
	tolerance time.Duration
}

// NewTracker creates a tracker writing through store.
func NewTracker(store Store, clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	return &Tracker{store: store, clk: clk, tolerance: schedule.DefaultTolerance}
}

// WithTolerance sets how close an occurrence must be to an exdate to count
// as excluded when looking for missed occurrences.
func (t *Tracker) WithTolerance(d time.Duration) *Tracker {
	if d > 0 {
		t.tolerance = d
	}
	return t
}

// Acknowledge records that the occurrence firing at firedAt was done.
// A zero firedAt means "now". Acknowledging an occurrence at or before the
// last resolved one changes nothing and reports Duplicate.
func (t *Tracker) Acknowledge(id string, firedAt time.Time) (model.UpdatedMetrics, error) {
	now := t.clk.Now()
	if firedAt.IsZero() {
		firedAt = now
	}

	var dup bool
	r, err := t.store.Modify(id, func(r *model.Reminder) error {
		if dup = resolved(r, firedAt); dup {
			return nil
		}

		m := &r.Metrics
		m.DoneCount++
		if t.continues(r, firedAt) {
			m.Streak++
		} else {
			m.Streak = 1
		}
		m.LastAcknowledgedAt = ptr(now)
		m.LastOccurrenceAt = ptr(firedAt.UTC())
		r.SnoozedUntil = nil

		if r.IsOnce() {
			r.Completed = true
		}
		return nil
	})
	if err != nil {
		return model.UpdatedMetrics{}, err
	}
	return updated(r, dup), nil
}

// Skip records that the occurrence firing at firedAt was skipped. The
// streak resets to zero and the last acknowledgment is kept.
func (t *Tracker) Skip(id string, firedAt time.Time) (model.UpdatedMetrics, error) {
	if firedAt.IsZero() {
		firedAt = t.clk.Now()
	}

	var dup bool
	r, err := t.store.Modify(id, func(r *model.Reminder) error {
		if dup = resolved(r, firedAt); dup {
			return nil
		}
		r.Metrics.SkipCount++
		r.Metrics.Streak = 0
		r.Metrics.LastOccurrenceAt = ptr(firedAt.UTC())
		r.SnoozedUntil = nil
		return nil
	})
	if err != nil {
		return model.UpdatedMetrics{}, err
	}
	return updated(r, dup), nil
}

// Snooze makes the reminder fire again after d. Metrics are untouched.
func (t *Tracker) Snooze(id string, d time.Duration) (time.Time, error) {
	if d <= 0 {
		return time.Time{}, errors.NewUserErrorWithField("duration", d.String(), "snooze duration must be positive", "Try '5m' or '1h'.")
	}
	until := t.clk.Now().Add(d).UTC()
	_, err := t.store.Modify(id, func(r *model.Reminder) error {
		r.SnoozedUntil = &until
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return until, nil
}

// ToggleActive flips the active flag and returns the new value.
func (t *Tracker) ToggleActive(id string) (bool, error) {
	r, err := t.store.Modify(id, func(r *model.Reminder) error {
		r.Active = !r.Active
		if !r.Active {
			r.SnoozedUntil = nil
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return r.Active, nil
}

// resolved reports whether firedAt is not after the occurrence last
// acknowledged or skipped. Occurrences are resolved in order, so an older
// one arriving late is as much a repeat as the same one twice.
func resolved(r *model.Reminder, firedAt time.Time) bool {
	last := r.Metrics.LastOccurrenceAt
	if last == nil {
		return false
	}
	return !firedAt.Truncate(time.Second).After(last.Truncate(time.Second))
}

// continues reports whether no expected occurrence fell between the last
// resolved occurrence and firedAt. At most one occurrence, the one being
// answered, may lie in that span.
func (t *Tracker) continues(r *model.Reminder, firedAt time.Time) bool {
	last := r.Metrics.LastOccurrenceAt
	if last == nil || r.Metrics.Streak == 0 {
		return false
	}

	switch r.Schedule.Mode {
	case model.ModeOnce:
		return false
	case model.ModePrayer:
		// Prayer times drift daily and need a resolver, so fall back to
		// the one-day cycle.
		period := schedule.Period(r.Schedule)
		return firedAt.Sub(*last) <= period+grace(period)
	}

	excluded := schedule.NewExclusionSet(r.Schedule.Exdates, t.tolerance).Predicate()
	expected := 0
	for _, at := range schedule.Upcoming(r.Schedule, last.Add(time.Second), 2, excluded) {
		if !at.After(firedAt) {
			expected++
		}
	}
	return expected <= 1
}

// grace absorbs DST shifts and daily prayer-time drift.
func grace(period time.Duration) time.Duration {
	return min(period/4, time.Hour)
}

func updated(r *model.Reminder, dup bool) model.UpdatedMetrics {
	return model.UpdatedMetrics{
		ReminderID: r.ID,
		Metrics:    r.Metrics,
		Completed:  r.Completed,
		Active:     r.Active,
		Duplicate:  dup,
	}
}

func ptr(t time.Time) *time.Time {
	return &t
}
