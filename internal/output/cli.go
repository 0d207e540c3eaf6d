package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/manav03panchal/chime/internal/model"
)

// Styles for CLI output.
var (
	// Colors
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#10B981") // Green
	colorMuted     = lipgloss.Color("#6B7280") // Gray
	colorWarning   = lipgloss.Color("#F59E0B") // Yellow
	colorError     = lipgloss.Color("#EF4444") // Red

	// Styles
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorSecondary)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorWarning)

	styleError = lipgloss.NewStyle().
			Foreground(colorError)

	styleMuted = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleBold = lipgloss.NewStyle().
			Bold(true)

	styleReminder = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleSchedule = lipgloss.NewStyle().
			Foreground(colorSecondary)

	styleNote = lipgloss.NewStyle().
			Italic(true).
			Foreground(colorMuted)
)

// CLIFormatter provides CLI-specific formatting.
type CLIFormatter struct {
	*Formatter
}

// NewCLIFormatter creates a new CLI formatter.
func NewCLIFormatter(f *Formatter) *CLIFormatter {
	return &CLIFormatter{Formatter: f}
}

func (c *CLIFormatter) styled(s lipgloss.Style, text string) string {
	if c.IsColorEnabled() {
		return s.Render(text)
	}
	return text
}

// Title prints a title.
func (c *CLIFormatter) Title(text string) {
	c.Println(c.styled(styleTitle, text))
}

// Success prints a success message.
func (c *CLIFormatter) Success(text string) {
	c.Println(c.styled(styleSuccess, "✓ "+text))
}

// Warning prints a warning message.
func (c *CLIFormatter) Warning(text string) {
	c.Println(c.styled(styleWarning, "⚠ "+text))
}

// Error prints an error message.
func (c *CLIFormatter) Error(text string) {
	c.Println(c.styled(styleError, "✗ "+text))
}

// Muted prints muted text.
func (c *CLIFormatter) Muted(text string) {
	c.Println(c.styled(styleMuted, text))
}

// ReminderTitle formats a reminder title.
func (c *CLIFormatter) ReminderTitle(title string) string {
	return c.styled(styleReminder, title)
}

// Schedule formats a schedule summary.
func (c *CLIFormatter) Schedule(s model.Schedule) string {
	return c.styled(styleSchedule, DescribeSchedule(s))
}

// Note formats a note.
func (c *CLIFormatter) Note(text string) string {
	return c.styled(styleNote, text)
}

// PrintReminder prints one reminder in detail. next may be nil.
func (c *CLIFormatter) PrintReminder(r *model.Reminder, next *time.Time) {
	c.Printf("%s  %s\n", c.ReminderTitle(r.Title), c.styled(styleMuted, "["+r.ShortID()+"]"))
	c.Printf("  Schedule: %s\n", c.Schedule(r.Schedule))
	if r.Notes != "" {
		c.Printf("  Notes: %s\n", c.Note(r.Notes))
	}
	c.Printf("  Status: %s\n", reminderStatus(r))
	if next != nil {
		c.Printf("  Next: %s\n", FormatTimeShort(next.In(r.Schedule.Location())))
	}
	if r.SnoozedUntil != nil {
		c.Printf("  Snoozed until: %s\n", FormatTimeShort(r.SnoozedUntil.In(r.Schedule.Location())))
	}
	c.Printf("  Streak: %d  Done: %d  Skipped: %d\n", r.Metrics.Streak, r.Metrics.DoneCount, r.Metrics.SkipCount)
}

// PrintReminders prints reminders as a table. next holds the upcoming
// occurrence by reminder id.
func (c *CLIFormatter) PrintReminders(rs []*model.Reminder, next map[string]time.Time) {
	if len(rs) == 0 {
		c.Muted("No reminders.")
		c.Muted("Use 'chime remind add <title> at <time>' to create one.")
		return
	}

	rows := make([]TableRow, 0, len(rs))
	for _, r := range rs {
		nextStr := "-"
		if t, ok := next[r.ID]; ok {
			nextStr = FormatTimeShort(t.In(r.Schedule.Location()))
		}
		rows = append(rows, TableRow{Columns: []string{
			r.ShortID(),
			r.Title,
			DescribeSchedule(r.Schedule),
			nextStr,
			reminderStatus(r),
		}})
	}
	c.PrintTable([]string{"ID", "TITLE", "SCHEDULE", "NEXT", "STATUS"}, rows)
}

// PrintOccurrences prints upcoming occurrences of one reminder.
func (c *CLIFormatter) PrintOccurrences(r *model.Reminder, at []time.Time) {
	if len(at) == 0 {
		c.Muted(fmt.Sprintf("%s has no upcoming occurrences.", r.Title))
		return
	}
	c.Printf("Upcoming for %s:\n", c.ReminderTitle(r.Title))
	for _, t := range at {
		c.Printf("  %s\n", t.In(r.Schedule.Location()).Format("Mon 2006-01-02 15:04 MST"))
	}
}

// PrintMetrics prints the outcome of a lifecycle action.
func (c *CLIFormatter) PrintMetrics(verb string, u model.UpdatedMetrics) {
	switch {
	case u.Duplicate:
		c.Muted("Occurrence already acknowledged.")
	case u.Completed:
		c.Success(verb + ". Reminder completed.")
	default:
		c.Success(verb)
	}
	c.Printf("  Streak: %d  Done: %d  Skipped: %d\n", u.Metrics.Streak, u.Metrics.DoneCount, u.Metrics.SkipCount)
}

// PrintPrayerTable prints one day of prayer times.
func (c *CLIFormatter) PrintPrayerTable(t *model.PrayerDayTable) {
	c.Title(fmt.Sprintf("%s  %s", model.Location{City: t.City, Country: t.Country}, t.Date))
	for _, p := range model.PrayerNames() {
		if tod, ok := t.Lookup(p); ok {
			c.Printf("  %-8s %s\n", p, tod)
		}
	}
}

func reminderStatus(r *model.Reminder) string {
	switch {
	case r.Completed:
		return "completed"
	case !r.Active:
		return "paused"
	case r.SnoozedUntil != nil:
		return "snoozed"
	}
	return "active"
}

// DescribeSchedule summarizes a schedule in one line.
func DescribeSchedule(s model.Schedule) string {
	var b strings.Builder
	times := make([]string, len(s.Times))
	for i, t := range s.Times {
		times[i] = t.String()
	}
	at := strings.Join(times, ", ")

	switch s.Mode {
	case model.ModeOnce:
		fmt.Fprintf(&b, "once on %s at %s", s.StartDate, at)
	case model.ModeDaily:
		fmt.Fprintf(&b, "daily at %s", at)
	case model.ModeWeekly:
		days := make([]string, len(s.DaysOfWeek))
		for i, d := range s.DaysOfWeek {
			days[i] = string(d)
		}
		fmt.Fprintf(&b, "weekly on %s at %s", strings.Join(days, ","), at)
	case model.ModeMonthly:
		fmt.Fprintf(&b, "monthly on day %d at %s", s.StartDate.Day, at)
	case model.ModeInterval:
		if s.Interval != nil {
			fmt.Fprintf(&b, "every %d %s", s.Interval.Every, s.Interval.Unit)
			if s.Interval.Every != 1 {
				b.WriteString("s")
			}
		} else {
			b.WriteString("interval")
		}
	case model.ModePrayer:
		if p := s.Prayer; p != nil {
			if p.OffsetMinutes != 0 {
				fmt.Fprintf(&b, "%dm %s ", p.OffsetMinutes, p.Direction)
			}
			b.WriteString(string(p.Name))
			if loc := p.Location(); !loc.IsZero() {
				b.WriteString(" in " + loc.String())
			}
		} else {
			b.WriteString("prayer")
		}
	default:
		b.WriteString(string(s.Mode))
	}

	if s.EndDate != nil {
		fmt.Fprintf(&b, " until %s", *s.EndDate)
	}
	if s.Timezone != "" && s.Timezone != "UTC" && s.Mode != model.ModePrayer {
		fmt.Fprintf(&b, " (%s)", s.Timezone)
	}
	return b.String()
}

// Table helpers for CLI output.
type TableRow struct {
	Columns []string
}

// PrintTable prints a simple table.
func (c *CLIFormatter) PrintTable(headers []string, rows []TableRow) {
	if len(rows) == 0 {
		return
	}

	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, col := range row.Columns {
			if i < len(widths) && lipgloss.Width(col) > widths[i] {
				widths[i] = lipgloss.Width(col)
			}
		}
	}

	pad := func(s string, w int) string {
		return s + strings.Repeat(" ", w-lipgloss.Width(s)) + "  "
	}

	var headerLine strings.Builder
	for i, h := range headers {
		headerLine.WriteString(pad(h, widths[i]))
	}
	c.Println(c.styled(styleBold, strings.TrimRight(headerLine.String(), " ")))

	var sep strings.Builder
	for _, w := range widths {
		sep.WriteString(strings.Repeat("─", w) + "  ")
	}
	c.Println(strings.TrimRight(sep.String(), " "))

	for _, row := range rows {
		var rowLine strings.Builder
		for i, col := range row.Columns {
			if i < len(widths) {
				rowLine.WriteString(pad(col, widths[i]))
			}
		}
		c.Println(strings.TrimRight(rowLine.String(), " "))
	}
}
