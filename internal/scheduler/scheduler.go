// Package scheduler drives reminder occurrences from a cron tick.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmhodges/clock"
	"github.com/robfig/cron/v3"

	"github.com/manav03panchal/chime/internal/logging"
)

// DefaultTickSpec fires at second zero of every minute.
const DefaultTickSpec = "0 * * * * *"

// Checker is run on every tick.
type Checker interface {
	Check(ctx context.Context, now time.Time)
	// Reset drops any plan so the next check starts from now.
	Reset()
}

// Options configures a Scheduler.
type Options struct {
	TickSpec string
	// SleepThreshold is the tick gap beyond which the host is assumed to
	// have slept. The stale tick is skipped and every plan is rebuilt.
	SleepThreshold time.Duration
	Clock          clock.Clock
}

// Scheduler manages the periodic reminder check using cron.
type Scheduler struct {
	cron     *cron.Cron
	checker  Checker
	spec     string
	sleep    time.Duration
	clk      clock.Clock
	log      *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	lastTick time.Time
}

// NewScheduler creates a new scheduler running checker.
func NewScheduler(checker Checker, opts Options) *Scheduler {
	if opts.TickSpec == "" {
		opts.TickSpec = DefaultTickSpec
	}
	if opts.SleepThreshold <= 0 {
		opts.SleepThreshold = time.Hour
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	log := logging.Component("scheduler")
	cl := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		checker: checker,
		spec:    opts.TickSpec,
		sleep:   opts.SleepThreshold,
		clk:     opts.Clock,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start registers the tick and starts cron. The first check runs at once.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.Tick); err != nil {
		return fmt.Errorf("failed to add reminder tick %q: %w", s.spec, err)
	}

	s.mu.Lock()
	s.lastTick = s.clk.Now()
	s.mu.Unlock()
	s.checker.Check(s.ctx, s.lastTick)

	s.cron.Start()
	s.log.Info("scheduler started", "spec", s.spec)
	return nil
}

// Stop stops cron and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.log.Info("scheduler stopped")
}

// Tick runs one check, skipping it if the previous tick is too far back.
func (s *Scheduler) Tick() {
	now := s.clk.Now()

	s.mu.Lock()
	elapsed := now.Sub(s.lastTick)
	s.lastTick = now
	s.mu.Unlock()

	if elapsed > s.sleep {
		s.log.Warn("skipping stale tick after sleep", logging.KeyDuration, elapsed.Round(time.Second).Milliseconds())
		s.checker.Reset()
		return
	}
	s.checker.Check(s.ctx, now)
}

// NextRun returns the next scheduled tick.
func (s *Scheduler) NextRun() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, logging.KeyError, err)...)
}
