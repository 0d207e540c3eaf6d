package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/chime/internal/alert"
	"github.com/manav03panchal/chime/internal/delivery"
	"github.com/manav03panchal/chime/internal/model"
)

// AlertOpenedMsg is sent when the presenter opens an alert.
type AlertOpenedMsg struct {
	Event model.DueEvent
}

// AlertClosedMsg is sent when the presenter ends an alert.
type AlertClosedMsg struct {
	Key    string
	Reason alert.Reason
}

// ConnStateMsg reports a delivery channel state change.
type ConnStateMsg struct {
	State   delivery.State
	Session string
}

// ResultMsg carries the server's answer to an action.
type ResultMsg struct {
	Frame delivery.Frame
}

type tickMsg time.Time

type actionDoneMsg struct {
	verb string
	err  error
}

// Controller performs the actions offered on an open alert.
type Controller interface {
	Acknowledge(e model.DueEvent) error
	Skip(e model.DueEvent) error
	Snooze(e model.DueEvent, d time.Duration) error
	Dismiss(e model.DueEvent) error
	// Preempt hands the audio to another local feature. The alert
	// closes without a response and does not resume.
	Preempt(e model.DueEvent) error
}

// ListenConfig holds configuration for the listen view.
type ListenConfig struct {
	Controller Controller
	SnoozeFor  time.Duration
	Now        func() time.Time
}

// ListenModel is the bubbletea model of chime listen.
type ListenModel struct {
	ctrl      Controller
	snoozeFor time.Duration
	now       func() time.Time

	current *model.DueEvent
	conn    ConnectionComponent

	// UI state
	width      int
	message    string
	messageErr bool
	messageExp time.Time
}

// NewListenModel creates a new listen model.
func NewListenModel(cfg ListenConfig) *ListenModel {
	if cfg.SnoozeFor <= 0 {
		cfg.SnoozeFor = 10 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ListenModel{
		ctrl:      cfg.Controller,
		snoozeFor: cfg.SnoozeFor,
		now:       cfg.Now,
	}
}

// Init initializes the model.
func (m *ListenModel) Init() tea.Cmd {
	return tickCmd()
}

// Current returns the open alert, if any.
func (m *ListenModel) Current() (model.DueEvent, bool) {
	if m.current == nil {
		return model.DueEvent{}, false
	}
	return *m.current, true
}

// Message returns the status line shown under the alert box.
func (m *ListenModel) Message() string {
	return m.message
}

// Update handles messages and updates the model.
func (m *ListenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		if !m.messageExp.IsZero() && m.now().After(m.messageExp) {
			m.message = ""
			m.messageExp = time.Time{}
		}
		return m, tickCmd()

	case AlertOpenedMsg:
		e := msg.Event
		m.current = &e
		return m, nil

	case AlertClosedMsg:
		if m.current != nil && m.current.Key() == msg.Key {
			m.current = nil
			if msg.Reason == alert.ReasonTimeout {
				m.setMessage("Silenced", false, 3*time.Second)
			}
		}
		return m, nil

	case ConnStateMsg:
		m.conn = ConnectionComponent(msg)
		return m, nil

	case ResultMsg:
		m.handleResult(msg.Frame)
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.setMessage(fmt.Sprintf("Could not %s: %v", msg.verb, msg.err), true, 5*time.Second)
		}
		return m, nil
	}

	return m, nil
}

func (m *ListenModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "a", "enter":
		return m, m.act("acknowledge", Controller.Acknowledge)
	case "s":
		return m, m.act("skip", Controller.Skip)
	case "z":
		d := m.snoozeFor
		return m, m.act("snooze", func(c Controller, e model.DueEvent) error { return c.Snooze(e, d) })
	case "d", "esc":
		return m, m.act("dismiss", Controller.Dismiss)
	case "p":
		return m, m.act("yield audio", Controller.Preempt)
	}
	return m, nil
}

// act runs fn against the open alert off the update loop.
func (m *ListenModel) act(verb string, fn func(Controller, model.DueEvent) error) tea.Cmd {
	if m.current == nil || m.ctrl == nil {
		return nil
	}
	ctrl, e := m.ctrl, *m.current
	return func() tea.Msg {
		return actionDoneMsg{verb: verb, err: fn(ctrl, e)}
	}
}

func (m *ListenModel) handleResult(f delivery.Frame) {
	if f.Error != "" {
		m.setMessage(f.Error, true, 5*time.Second)
		return
	}
	if f.Metrics == nil {
		return
	}
	u := f.Metrics
	switch {
	case u.Duplicate:
		m.setMessage("Already recorded", false, 3*time.Second)
	case u.Completed:
		m.setMessage("Done. This reminder has finished", false, 3*time.Second)
	default:
		m.setMessage(fmt.Sprintf("Streak %d  •  done %d  •  skipped %d",
			u.Metrics.Streak, u.Metrics.DoneCount, u.Metrics.SkipCount), false, 3*time.Second)
	}
}

// View renders the listen view.
func (m *ListenModel) View() string {
	sections := []string{m.renderHeader()}

	sections = append(sections, AlertComponent{Event: m.current, Width: m.width, Now: m.now()}.View())

	if m.message != "" {
		style := StyleSuccess
		if m.messageErr {
			style = StyleError
		}
		sections = append(sections, style.Render(m.message))
	}

	sections = append(sections, HelpBar(m.current != nil))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *ListenModel) renderHeader() string {
	title := StyleTitle.Render("chime")
	now := StyleSubtitle.Render(m.now().Format("Mon Jan 2, 15:04:05"))
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", now, "  ", m.conn.View()) + "\n"
}

func (m *ListenModel) setMessage(msg string, isErr bool, d time.Duration) {
	m.message = msg
	m.messageErr = isErr
	m.messageExp = m.now().Add(d)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Surface is an alert.Surface that forwards to a running program.
type Surface struct {
	send func(tea.Msg)
}

// NewSurface creates a surface for p.
func NewSurface(p *tea.Program) *Surface {
	return &Surface{send: p.Send}
}

// Open shows the alert.
func (s *Surface) Open(e model.DueEvent) {
	s.send(AlertOpenedMsg{Event: e})
}

// Close hides the alert.
func (s *Surface) Close(key string, reason alert.Reason) {
	s.send(AlertClosedMsg{Key: key, Reason: reason})
}

// Program creates the listen program.
func Program(m *ListenModel) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}
