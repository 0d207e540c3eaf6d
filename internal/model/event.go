package model

import (
	"time"
)

// DueEvent is emitted when an occurrence of a reminder is reached.
// It carries a snapshot of the presentation fields so that later edits to
// the reminder cannot change an alert already in flight.
type DueEvent struct {
	ReminderID string    `json:"reminder_id"`
	FiredAt    time.Time `json:"fired_at"`
	Title      string    `json:"title"`
	Notes      string    `json:"notes,omitempty"`
	Sound      Sound     `json:"sound"`
}

// NewDueEvent snapshots r for the occurrence at firedAt.
func NewDueEvent(r *Reminder, firedAt time.Time) DueEvent {
	return DueEvent{
		ReminderID: r.ID,
		FiredAt:    firedAt.UTC(),
		Title:      r.Title,
		Notes:      r.Notes,
		Sound:      r.Sound.Clamped(),
	}
}

// Key identifies the (reminder, occurrence) pair.
func (e DueEvent) Key() string {
	return OccurrenceKey(e.ReminderID, e.FiredAt)
}

// OccurrenceKey identifies one occurrence of one reminder.
func OccurrenceKey(reminderID string, firedAt time.Time) string {
	return reminderID + "@" + firedAt.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// Notification is the payload handed to the system notification surface.
type Notification struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	Tag         string `json:"tag"`
	DeepLinkURL string `json:"deep_link_url"`
}

// UpdatedMetrics is returned by lifecycle operations.
type UpdatedMetrics struct {
	ReminderID string  `json:"reminder_id"`
	Metrics    Metrics `json:"metrics"`
	Completed  bool    `json:"completed"`
	Active     bool    `json:"active"`
	Duplicate  bool    `json:"duplicate,omitempty"`
}
