package output

import (
	"time"

	"github.com/manav03panchal/chime/internal/model"
)

// JSONFormatter provides JSON-specific formatting.
type JSONFormatter struct {
	*Formatter
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(f *Formatter) *JSONFormatter {
	return &JSONFormatter{Formatter: f}
}

// ReminderOutput represents a reminder in JSON output.
type ReminderOutput struct {
	*model.Reminder
	Summary string `json:"summary"`
	Status  string `json:"status"`
	NextAt  string `json:"next_at,omitempty"`
}

// NewReminderOutput creates a ReminderOutput. next may be nil.
func NewReminderOutput(r *model.Reminder, next *time.Time) *ReminderOutput {
	out := &ReminderOutput{
		Reminder: r,
		Summary:  DescribeSchedule(r.Schedule),
		Status:   reminderStatus(r),
	}
	if next != nil {
		out.NextAt = next.UTC().Format(time.RFC3339)
	}
	return out
}

// RemindersResponse represents the reminder list output in JSON.
type RemindersResponse struct {
	Reminders []*ReminderOutput `json:"reminders"`
	Count     int               `json:"count"`
}

// NewRemindersResponse creates a RemindersResponse.
func NewRemindersResponse(rs []*model.Reminder, next map[string]time.Time) *RemindersResponse {
	outputs := make([]*ReminderOutput, len(rs))
	for i, r := range rs {
		var n *time.Time
		if t, ok := next[r.ID]; ok {
			n = &t
		}
		outputs[i] = NewReminderOutput(r, n)
	}
	return &RemindersResponse{Reminders: outputs, Count: len(rs)}
}

// OccurrencesResponse represents upcoming occurrences in JSON.
type OccurrencesResponse struct {
	ReminderID  string   `json:"reminder_id"`
	Occurrences []string `json:"occurrences"`
}

// MetricsResponse represents the outcome of a lifecycle action in JSON.
type MetricsResponse struct {
	Status string `json:"status"`
	model.UpdatedMetrics
}

// SnoozeResponse represents the snooze command output in JSON.
type SnoozeResponse struct {
	Status       string `json:"status"`
	ReminderID   string `json:"reminder_id"`
	SnoozedUntil string `json:"snoozed_until"`
}

// ErrorResponse represents an error in JSON.
type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// PrintReminder outputs one reminder in JSON format.
func (j *JSONFormatter) PrintReminder(r *model.Reminder, next *time.Time) error {
	return j.JSON(NewReminderOutput(r, next))
}

// PrintReminders outputs reminders in JSON format.
func (j *JSONFormatter) PrintReminders(rs []*model.Reminder, next map[string]time.Time) error {
	return j.JSON(NewRemindersResponse(rs, next))
}

// PrintOccurrences outputs upcoming occurrences in JSON format.
func (j *JSONFormatter) PrintOccurrences(r *model.Reminder, at []time.Time) error {
	resp := OccurrencesResponse{ReminderID: r.ID, Occurrences: make([]string, len(at))}
	for i, t := range at {
		resp.Occurrences[i] = t.UTC().Format(time.RFC3339)
	}
	return j.JSON(resp)
}

// PrintMetrics outputs a lifecycle result in JSON format.
func (j *JSONFormatter) PrintMetrics(status string, u model.UpdatedMetrics) error {
	return j.JSON(MetricsResponse{Status: status, UpdatedMetrics: u})
}

// PrintSnooze outputs a snooze result in JSON format.
func (j *JSONFormatter) PrintSnooze(id string, until time.Time) error {
	return j.JSON(SnoozeResponse{
		Status:       "snoozed",
		ReminderID:   id,
		SnoozedUntil: until.UTC().Format(time.RFC3339),
	})
}

// PrintError outputs an error in JSON format.
func (j *JSONFormatter) PrintError(status, errMsg, message string) error {
	resp := ErrorResponse{
		Status:  status,
		Error:   errMsg,
		Message: message,
	}
	return j.JSON(resp)
}
