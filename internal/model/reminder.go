package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority orders reminders for display.
type Priority string

// Priorities.
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Sound is the audio cue played when a reminder fires.
type Sound struct {
	ID     string  `json:"id"`
	Volume float64 `json:"volume"` // 0..1
}

// DefaultSound is used when a reminder has no sound configured.
var DefaultSound = Sound{ID: "chime", Volume: 0.8}

// Clamped returns the sound with its volume forced into [0, 1].
func (s Sound) Clamped() Sound {
	switch {
	case s.Volume < 0:
		s.Volume = 0
	case s.Volume > 1:
		s.Volume = 1
	}
	return s
}

// Metrics are the lifecycle counters of a reminder.
type Metrics struct {
	Streak             int        `json:"streak"`
	DoneCount          int        `json:"done_count"`
	SkipCount          int        `json:"skip_count"`
	LastAcknowledgedAt *time.Time `json:"last_acknowledged_at,omitempty"`
	// LastOccurrenceAt is the fire instant of the most recently acknowledged
	// occurrence. It makes acknowledgment idempotent across restarts.
	LastOccurrenceAt *time.Time `json:"last_occurrence_at,omitempty"`
}

// Reminder is the addressable reminder entity.
type Reminder struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Notes        string     `json:"notes,omitempty"`
	Schedule     Schedule   `json:"schedule"`
	Sound        Sound      `json:"sound"`
	Priority     Priority   `json:"priority"`
	Active       bool       `json:"active"`
	Completed    bool       `json:"completed"` // terminal, Once mode only
	Metrics      Metrics    `json:"metrics"`
	SnoozedUntil *time.Time `json:"snoozed_until,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// SetKey sets the database key for this reminder.
func (r *Reminder) SetKey(key string) {
	r.ID = strings.TrimPrefix(key, PrefixReminder+":")
}

// GetKey returns the database key for this reminder.
func (r *Reminder) GetKey() string {
	return GenerateReminderKey(r.ID)
}

// ShortID returns the first 6 characters of the id for display.
func (r *Reminder) ShortID() string {
	if len(r.ID) > 6 {
		return r.ID[:6]
	}
	return r.ID
}

// IsOnce reports whether the reminder fires a single time.
func (r *Reminder) IsOnce() bool {
	return r.Schedule.Mode == ModeOnce
}

// Schedulable reports whether occurrences should be computed at all.
func (r *Reminder) Schedulable() bool {
	return r.Active && !r.Completed
}

// GenerateReminderKey generates a database key for a reminder id.
func GenerateReminderKey(id string) string {
	return fmt.Sprintf("%s:%s", PrefixReminder, id)
}

// NewReminder creates an active reminder with zeroed metrics.
func NewReminder(title string, schedule Schedule) *Reminder {
	now := time.Now()
	return &Reminder{
		Title:     title,
		Schedule:  schedule,
		Sound:     DefaultSound,
		Priority:  PriorityNormal,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
