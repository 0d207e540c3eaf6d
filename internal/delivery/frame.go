// Package delivery is the push channel between the scheduling authority and
// listening clients: a WebSocket hub and a reconnecting client.
package delivery

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/manav03panchal/chime/internal/model"
)

// Frame types.
const (
	// Server to client.
	FrameWelcome   = "welcome"
	FrameDue       = "due"
	FrameHeartbeat = "heartbeat"
	FrameResult    = "result"

	// Client to server.
	FrameAck    = "ack"
	FrameSkip   = "skip"
	FrameSnooze = "snooze"
)

// Frame is one JSON text message on the channel.
type Frame struct {
	Type       string                `json:"type"`
	Session    string                `json:"session,omitempty"`
	Event      *model.DueEvent       `json:"event,omitempty"`
	ReminderID string                `json:"reminder_id,omitempty"`
	FiredAt    *time.Time            `json:"fired_at,omitempty"`
	Snooze     string                `json:"snooze,omitempty"`
	Metrics    *model.UpdatedMetrics `json:"metrics,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// Action is a user action sent by a client.
type Action struct {
	Kind       string
	ReminderID string
	FiredAt    time.Time
	Snooze     time.Duration
}

// Frame encodes the action for the wire.
func (a Action) Frame() Frame {
	f := Frame{Type: a.Kind, ReminderID: a.ReminderID}
	if !a.FiredAt.IsZero() {
		t := a.FiredAt.UTC()
		f.FiredAt = &t
	}
	if a.Kind == FrameSnooze {
		f.Snooze = a.Snooze.String()
	}
	return f
}

// Encode marshals a frame.
func Encode(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

// Decode unmarshals and validates a frame.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("malformed frame: %w", err)
	}
	switch f.Type {
	case FrameDue:
		if f.Event == nil {
			return Frame{}, fmt.Errorf("due frame without event")
		}
	case FrameAck, FrameSkip, FrameSnooze:
		if f.ReminderID == "" {
			return Frame{}, fmt.Errorf("%s frame without reminder_id", f.Type)
		}
	case FrameWelcome, FrameHeartbeat, FrameResult:
	default:
		return Frame{}, fmt.Errorf("unknown frame type %q", f.Type)
	}
	return f, nil
}

// action converts a client frame into an Action.
func action(f Frame) (Action, error) {
	a := Action{Kind: f.Type, ReminderID: f.ReminderID}
	if f.FiredAt != nil {
		a.FiredAt = *f.FiredAt
	}
	if f.Type == FrameSnooze {
		d, err := time.ParseDuration(f.Snooze)
		if err != nil {
			return Action{}, fmt.Errorf("invalid snooze duration %q", f.Snooze)
		}
		a.Snooze = d
	}
	return a, nil
}
