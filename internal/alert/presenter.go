// Package alert presents due reminders: one audible cue at a time, a system
// notification and an in-app acknowledgment surface.
package alert

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jmhodges/clock"

	"github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/logging"
	"github.com/manav03panchal/chime/internal/model"
	"github.com/manav03panchal/chime/internal/notify"
)

// Defaults.
const (
	DefaultSilenceAfter    = 5 * time.Second
	DefaultDuplicateWindow = 60 * time.Second
	DefaultDeepLinkBase    = "chime://reminders"

	notifyTimeout = 5 * time.Second
)

// State is the presenter state.
type State int

// Presenter states.
const (
	Idle State = iota
	Presenting
)

func (s State) String() string {
	if s == Presenting {
		return "presenting"
	}
	return "idle"
}

// Reason says why a presentation ended.
type Reason string

// End reasons.
const (
	ReasonAcknowledged Reason = "acknowledged"
	ReasonDismissed    Reason = "dismissed"
	ReasonTimeout      Reason = "timeout"
	ReasonPreempted    Reason = "preempted"
	ReasonSuperseded   Reason = "superseded"
	ReasonStopped      Reason = "stopped"
)

// Audio owns the audio output. Start replaces whatever is playing and
// Stop is idempotent.
type Audio interface {
	Start(s model.Sound) error
	Stop()
}

// Surface is the in-app acknowledgment surface.
type Surface interface {
	Open(e model.DueEvent)
	Close(key string, reason Reason)
}

// Options configures a Presenter.
type Options struct {
	// SilenceAfter auto-dismisses an unacknowledged alert. Zero rings
	// until acknowledged.
	SilenceAfter    time.Duration
	DuplicateWindow time.Duration
	DeepLinkBase    string

	Audio    Audio
	Notifier notify.Notifier
	Surface  Surface
	Clock    clock.Clock

	// OnEnd is called from the presenter goroutine when a presentation
	// ends. It must not block.
	OnEnd func(e model.DueEvent, reason Reason)
}

// DefaultOptions returns options with the default timings.
func DefaultOptions() Options {
	return Options{
		SilenceAfter:    DefaultSilenceAfter,
		DuplicateWindow: DefaultDuplicateWindow,
		DeepLinkBase:    DefaultDeepLinkBase,
	}
}

type cmdKind int

const (
	cmdDeliver cmdKind = iota
	cmdAcknowledge
	cmdDismiss
	cmdPreempt
	cmdCurrent
	cmdConfigure
)

type command struct {
	kind  cmdKind
	event model.DueEvent
	key   string
	opts  Timings
	reply chan result
}

type result struct {
	event model.DueEvent
	ok    bool
}

// Timings are the presenter settings that may change while running.
type Timings struct {
	SilenceAfter    time.Duration
	DuplicateWindow time.Duration
}

// Presenter is a single-writer state machine. Every event and user action
// is handled by one goroutine, which is the only owner of the audio output.
type Presenter struct {
	opts Options
	clk  clock.Clock
	log  *slog.Logger

	cmds      chan command
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the run goroutine.
	current *model.DueEvent
	timer   *clock.Timer
	timerC  <-chan time.Time
	seen    map[string]time.Time
	pending sync.WaitGroup
}

// New starts a presenter.
func New(opts Options) *Presenter {
	if opts.DuplicateWindow <= 0 {
		opts.DuplicateWindow = DefaultDuplicateWindow
	}
	if opts.SilenceAfter < 0 {
		opts.SilenceAfter = 0
	}
	if opts.DeepLinkBase == "" {
		opts.DeepLinkBase = DefaultDeepLinkBase
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Audio == nil {
		opts.Audio = Silent{}
	}

	p := &Presenter{
		opts: opts,
		clk:  opts.Clock,
		log:  logging.Component("presenter"),
		cmds: make(chan command),
		quit: make(chan struct{}),
		done: make(chan struct{}),
		seen: make(map[string]time.Time),
	}
	go p.run()
	return p
}

// Deliver presents e. It reports false when e duplicates an occurrence
// seen within the duplicate window.
func (p *Presenter) Deliver(ctx context.Context, e model.DueEvent) (bool, error) {
	res, err := p.call(ctx, command{kind: cmdDeliver, event: e})
	return res.ok, err
}

// Acknowledge ends the presentation of the occurrence key, or of the
// current one when key is empty. The audio is stopped and the
// auto-silence timeout cancelled before it returns.
func (p *Presenter) Acknowledge(key string) (model.DueEvent, bool) {
	res, _ := p.call(context.Background(), command{kind: cmdAcknowledge, key: key})
	return res.event, res.ok
}

// Dismiss is Acknowledge without the acknowledgment semantics.
func (p *Presenter) Dismiss(key string) (model.DueEvent, bool) {
	res, _ := p.call(context.Background(), command{kind: cmdDismiss, key: key})
	return res.event, res.ok
}

// Preempt yields the audio channel to another local feature. The
// interrupted alert does not resume.
func (p *Presenter) Preempt() (model.DueEvent, bool) {
	res, _ := p.call(context.Background(), command{kind: cmdPreempt})
	return res.event, res.ok
}

// Current returns the occurrence being presented.
func (p *Presenter) Current() (model.DueEvent, bool) {
	res, _ := p.call(context.Background(), command{kind: cmdCurrent})
	return res.event, res.ok
}

// State returns the presenter state.
func (p *Presenter) State() State {
	if _, ok := p.Current(); ok {
		return Presenting
	}
	return Idle
}

// Configure changes the timings. A running timeout keeps its deadline.
func (p *Presenter) Configure(t Timings) {
	_, _ = p.call(context.Background(), command{kind: cmdConfigure, opts: t})
}

// Close ends any presentation and stops the presenter.
func (p *Presenter) Close() {
	p.closeOnce.Do(func() { close(p.quit) })
	<-p.done
	p.pending.Wait()
}

func (p *Presenter) call(ctx context.Context, c command) (result, error) {
	c.reply = make(chan result, 1)
	select {
	case p.cmds <- c:
	case <-p.done:
		return result{}, errors.ErrPresenterStopped
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
	return <-c.reply, nil
}

func (p *Presenter) run() {
	defer close(p.done)
	for {
		select {
		case <-p.quit:
			p.end(ReasonStopped)
			return
		case <-p.timerC:
			p.timer, p.timerC = nil, nil
			p.end(ReasonTimeout)
		case c := <-p.cmds:
			c.reply <- p.handle(c)
		}
	}
}

func (p *Presenter) handle(c command) result {
	switch c.kind {
	case cmdDeliver:
		return result{event: c.event, ok: p.deliver(c.event)}
	case cmdAcknowledge:
		return p.finish(c.key, ReasonAcknowledged)
	case cmdDismiss:
		return p.finish(c.key, ReasonDismissed)
	case cmdPreempt:
		return p.finish("", ReasonPreempted)
	case cmdCurrent:
		if p.current == nil {
			return result{}
		}
		return result{event: *p.current, ok: true}
	case cmdConfigure:
		if c.opts.SilenceAfter >= 0 {
			p.opts.SilenceAfter = c.opts.SilenceAfter
		}
		if c.opts.DuplicateWindow > 0 {
			p.opts.DuplicateWindow = c.opts.DuplicateWindow
		}
		return result{ok: true}
	}
	return result{}
}

func (p *Presenter) deliver(e model.DueEvent) bool {
	now := p.clk.Now()
	p.purge(now)

	key := e.Key()
	if _, dup := p.seen[key]; dup {
		p.log.Debug("duplicate delivery suppressed", logging.KeyReminderID, e.ReminderID, logging.KeyFiredAt, e.FiredAt)
		return false
	}
	p.seen[key] = now

	p.end(ReasonSuperseded)
	p.present(e)
	return true
}

func (p *Presenter) present(e model.DueEvent) {
	// At most one cue is audible, including cues this presenter did not start.
	p.opts.Audio.Stop()
	if err := p.opts.Audio.Start(e.Sound.Clamped()); err != nil {
		p.log.Warn("audio cue failed", logging.KeyReminderID, e.ReminderID, logging.KeyError, err)
	}
	p.current = &e

	if p.opts.Notifier != nil {
		p.notify(p.notification(e))
	}
	if p.opts.Surface != nil {
		p.opts.Surface.Open(e)
	}
	if p.opts.SilenceAfter > 0 {
		p.timer = p.clk.NewTimer(p.opts.SilenceAfter)
		p.timerC = p.timer.C
	}
	p.log.Info("presenting reminder", logging.KeyReminderID, e.ReminderID, logging.KeyFiredAt, e.FiredAt)
}

// finish ends the current presentation if key names it.
func (p *Presenter) finish(key string, reason Reason) result {
	if p.current == nil {
		return result{}
	}
	if key != "" && key != p.current.Key() {
		return result{}
	}
	e := *p.current
	p.end(reason)
	return result{event: e, ok: true}
}

func (p *Presenter) end(reason Reason) {
	if p.current == nil {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
		p.timer, p.timerC = nil, nil
	}
	p.opts.Audio.Stop()

	e := *p.current
	p.current = nil
	if p.opts.Surface != nil {
		p.opts.Surface.Close(e.Key(), reason)
	}
	if p.opts.OnEnd != nil {
		p.opts.OnEnd(e, reason)
	}
	p.log.Info("alert ended", logging.KeyReminderID, e.ReminderID, logging.KeyReason, string(reason))
}

func (p *Presenter) purge(now time.Time) {
	for key, at := range p.seen {
		if now.Sub(at) >= p.opts.DuplicateWindow {
			delete(p.seen, key)
		}
	}
}

// notify hands n to the notifier without holding up the presenter. Failure,
// including denied permission, only costs the visual notification.
func (p *Presenter) notify(n model.Notification) {
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := p.opts.Notifier.Notify(ctx, n); err != nil {
			p.log.Warn("system notification failed", logging.KeyError, err, "permission_denied", errors.Is(err, errors.ErrPermissionDenied))
		}
	}()
}

func (p *Presenter) notification(e model.DueEvent) model.Notification {
	return model.Notification{
		Title:       e.Title,
		Body:        e.Notes,
		Tag:         e.Key(),
		DeepLinkURL: DeepLink(p.opts.DeepLinkBase, e),
	}
}

// DeepLink returns the link to the reminder's detail view at the occurrence.
func DeepLink(base string, e model.DueEvent) string {
	q := url.Values{"at": {e.FiredAt.UTC().Format(time.RFC3339)}}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(e.ReminderID) + "?" + q.Encode()
}
