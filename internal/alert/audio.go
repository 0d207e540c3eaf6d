package alert

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jmhodges/clock"

	"github.com/manav03panchal/chime/internal/logging"
	"github.com/manav03panchal/chime/internal/model"
)

// Silent is an Audio that plays nothing.
type Silent struct{}

// Start does nothing.
func (Silent) Start(model.Sound) error { return nil }

// Stop does nothing.
func (Silent) Stop() {}

// Bell loops the terminal bell until stopped. The terminal bell has no
// volume levels: a zero volume is silent and any other volume rings at full
// strength. The requested volume is recorded and logged.
type Bell struct {
	w        io.Writer
	interval time.Duration
	clk      clock.Clock
	log      *slog.Logger

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	volume float64
}

// NewBell creates a bell cue writing to w.
func NewBell(w io.Writer, interval time.Duration, clk clock.Clock) *Bell {
	if interval <= 0 {
		interval = time.Second
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Bell{w: w, interval: interval, clk: clk, log: logging.Component("bell")}
}

// Start rings the bell now and then once per interval.
func (b *Bell) Start(s model.Sound) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()

	s = s.Clamped()
	b.log.Debug("bell cue", "sound", s.ID, "volume", s.Volume)
	if s.Volume == 0 {
		return nil
	}
	if _, err := io.WriteString(b.w, "\a"); err != nil {
		return err
	}

	b.volume = s.Volume
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go b.loop(b.stop, b.done)
	return nil
}

// Stop silences the bell and waits for the loop to exit.
func (b *Bell) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

// Playing reports whether the bell is looping.
func (b *Bell) Playing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stop != nil
}

// Volume returns the clamped volume of the cue playing, or zero.
func (b *Bell) Volume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.volume
}

func (b *Bell) stopLocked() {
	b.volume = 0
	if b.stop == nil {
		return
	}
	close(b.stop)
	<-b.done
	b.stop, b.done = nil, nil
}

func (b *Bell) loop(stop, done chan struct{}) {
	defer close(done)
	for {
		t := b.clk.NewTimer(b.interval)
		select {
		case <-stop:
			t.Stop()
			return
		case <-t.C:
			if _, err := io.WriteString(b.w, "\a"); err != nil {
				return
			}
		}
	}
}
