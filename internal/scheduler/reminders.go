package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmhodges/clock"

	"github.com/manav03panchal/chime/internal/logging"
	"github.com/manav03panchal/chime/internal/model"
)

// RetryAfter is how long an unplannable reminder waits before the planner
// is asked again. Prayer reminders land here while the provider is down.
const RetryAfter = 5 * time.Minute

// Source lists the reminders eligible for scheduling.
type Source interface {
	ListSchedulable() ([]*model.Reminder, error)
}

// Planner computes the next occurrence of a reminder.
type Planner interface {
	Next(ctx context.Context, r *model.Reminder, now time.Time) (time.Time, bool)
}

// Publisher delivers a due event and returns how many sessions received it.
type Publisher interface {
	Publish(e model.DueEvent) int
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(e model.DueEvent) int

// Publish calls f(e).
func (f PublisherFunc) Publish(e model.DueEvent) int { return f(e) }

type plan struct {
	at        time.Time
	ok        bool
	updatedAt time.Time
	retryAt   time.Time
}

// ReminderChecker detects due occurrences and publishes them.
type ReminderChecker struct {
	source    Source
	planner   Planner
	publisher Publisher
	clk       clock.Clock
	log       *slog.Logger

	mu      sync.Mutex
	planned map[string]plan
}

// NewReminderChecker creates a new reminder checker.
func NewReminderChecker(source Source, planner Planner, publisher Publisher, clk clock.Clock) *ReminderChecker {
	if clk == nil {
		clk = clock.New()
	}
	return &ReminderChecker{
		source:    source,
		planner:   planner,
		publisher: publisher,
		clk:       clk,
		log:       logging.Component("checker"),
		planned:   make(map[string]plan),
	}
}

// Reset forgets every plan.
func (c *ReminderChecker) Reset() {
	c.mu.Lock()
	c.planned = make(map[string]plan)
	c.mu.Unlock()
}

// Planned returns the planned occurrence for id, if any.
func (c *ReminderChecker) Planned(id string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.planned[id]
	if !ok || !p.ok {
		return time.Time{}, false
	}
	return p.at, true
}

// Check publishes every occurrence that is due at now.
func (c *ReminderChecker) Check(ctx context.Context, now time.Time) {
	reminders, err := c.source.ListSchedulable()
	if err != nil {
		c.log.Warn("failed to list reminders", logging.KeyError, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(reminders))
	for _, r := range reminders {
		seen[r.ID] = struct{}{}
		c.checkReminder(ctx, r, now)
	}
	for id := range c.planned {
		if _, ok := seen[id]; !ok {
			delete(c.planned, id)
		}
	}
}

func (c *ReminderChecker) checkReminder(ctx context.Context, r *model.Reminder, now time.Time) {
	p, ok := c.planned[r.ID]
	if !ok || !p.updatedAt.Equal(r.UpdatedAt) {
		p = c.plan(ctx, r, now)
	} else if !p.ok && !p.retryAt.IsZero() && !now.Before(p.retryAt) {
		p = c.plan(ctx, r, now)
	}

	if p.ok && !p.at.After(now) {
		e := model.NewDueEvent(r, p.at)
		n := c.publisher.Publish(e)
		c.log.Info("reminder due",
			logging.KeyReminderID, r.ID,
			logging.KeyFiredAt, e.FiredAt.Format(time.RFC3339),
			logging.KeyCount, n,
		)
		p = c.plan(ctx, r, p.at.Add(time.Second))
	}
	c.planned[r.ID] = p
}

func (c *ReminderChecker) plan(ctx context.Context, r *model.Reminder, from time.Time) plan {
	p := plan{updatedAt: r.UpdatedAt}
	p.at, p.ok = c.planner.Next(ctx, r, from)
	if !p.ok && r.Schedule.Mode == model.ModePrayer {
		p.retryAt = c.clk.Now().Add(RetryAfter)
	}
	return p
}
