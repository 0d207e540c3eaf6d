package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/manav03panchal/chime/internal/delivery"
	"github.com/manav03panchal/chime/internal/model"
	"github.com/manav03panchal/chime/internal/output"
)

// ConnectionComponent renders the delivery channel state as a single line.
type ConnectionComponent struct {
	State   delivery.State
	Session string
}

// View renders the connection indicator.
func (cc ConnectionComponent) View() string {
	switch cc.State {
	case delivery.StateConnected:
		line := "● connected"
		if cc.Session != "" {
			line += " " + StyleSubtitle.Render("("+cc.Session+")")
		}
		return StyleConnected.Render(line)
	case delivery.StateConnecting, delivery.StateReconnecting:
		return StyleReconnecting.Render("○ " + cc.State.String() + "…")
	}
	return StyleSubtitle.Render("○ " + cc.State.String())
}

// AlertComponent displays the ringing reminder, or an idle box.
type AlertComponent struct {
	Event *model.DueEvent
	Width int
	Now   time.Time
}

// View renders the alert box.
func (ac AlertComponent) View() string {
	var content strings.Builder

	if ac.Event == nil {
		content.WriteString(StyleSubtitle.Render("Waiting for reminders"))
		return StyleIdleBox.Width(boxWidth(ac.Width)).Render(content.String())
	}

	e := ac.Event
	content.WriteString(StyleReminder.Render("⏰ " + e.Title))
	content.WriteString("\n\n")
	content.WriteString(StyleSubtitle.Render(fmt.Sprintf("Due %s", output.FormatTimeOnly(e.FiredAt.Local()))))
	if !ac.Now.IsZero() && ac.Now.After(e.FiredAt) {
		content.WriteString(StyleSubtitle.Render(fmt.Sprintf("  (%s ago)", output.FormatDurationShort(ac.Now.Sub(e.FiredAt)))))
	}
	if e.Notes != "" {
		content.WriteString("\n\n")
		content.WriteString(StyleNote.Render(e.Notes))
	}

	return StyleAlertBox.Width(boxWidth(ac.Width)).Render(content.String())
}

func boxWidth(w int) int {
	if w <= 8 {
		return 40
	}
	return w - 4
}

// HelpBar renders the key bindings. The action keys are shown only while
// an alert is open.
func HelpBar(alerting bool) string {
	type binding struct {
		key  string
		desc string
	}
	var keys []binding
	if alerting {
		keys = append(keys,
			binding{"a", "acknowledge"},
			binding{"s", "skip"},
			binding{"z", "snooze"},
			binding{"d", "dismiss"},
			binding{"p", "yield audio"},
		)
	}
	keys = append(keys, binding{"q", "quit"})

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, StyleHelpKey.Render(k.key)+" "+StyleHelpDesc.Render(k.desc))
	}

	return StyleHelp.Render(strings.Join(parts, "  •  "))
}
