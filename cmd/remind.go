package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/model"
	"github.com/manav03panchal/chime/internal/output"
	"github.com/manav03panchal/chime/internal/parser"
	"github.com/manav03panchal/chime/internal/runtime"
	"github.com/manav03panchal/chime/internal/validate"
)

// Remind command flags.
var (
	remindFlagTitle    string
	remindFlagAt       string
	remindFlagOn       string
	remindFlagEvery    string
	remindFlagFrom     string
	remindFlagUntil    string
	remindFlagPrayer   string
	remindFlagBefore   string
	remindFlagAfter    string
	remindFlagCity     string
	remindFlagCountry  string
	remindFlagTZ       string
	remindFlagNotes    string
	remindFlagSound    string
	remindFlagVolume   float64
	remindFlagPriority string
	remindFlagExclude  []string

	remindListAll     bool
	remindNextCount   int
	remindOccurrence  string
	remindDeleteForce bool
)

// remindCmd represents the remind command.
var remindCmd = &cobra.Command{
	Use:     "remind",
	Aliases: []string{"r", "rem"},
	Short:   "Manage recurring reminders",
	Long: `Create and manage recurring reminders.

Without a subcommand, lists reminders.

Examples:
  chime remind add Stand up at 9:30 on weekdays
  chime remind add "Drink water" every 2h until friday
  chime remind add Meds at 8am,8pm every day
  chime remind add Quran --prayer fajr --after 15m
  chime remind next 3f2a -n 5`,
	Args: cobra.NoArgs,
	RunE: runRemindList,
}

// remindAddCmd creates a reminder.
var remindAddCmd = &cobra.Command{
	Use:   "add TITLE [at TIMES] [on DAYS|DATE] [every N UNIT|day|week|month] [from DATE] [until DATE]",
	Short: "Create a reminder",
	Long: `Create a reminder from a short phrase. Words before the first keyword
form the title; quote a title that contains a keyword.

Keywords:
  at     times of day: 9:30, 8am,8pm, 18:00
  on     weekdays (MO,WE,FR, weekdays, weekend) or a date
  every  day, week, month, weekdays, or an interval like 45m, 2h, 3 days
  from   first day the reminder is active
  until  last day the reminder is active

Flags override the matching keyword.

Examples:
  chime remind add Gym at 18:00 on MO,WE,FR
  chime remind add "Pay rent" at 9am every month from 2025-02-01
  chime remind add Stretch every 45m
  chime remind add Dentist at 14:30 on 2025-03-12
  chime remind add Tahajjud --prayer fajr --before 45m --city Cairo --country Egypt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemindAdd,
}

// remindListCmd lists reminders.
var remindListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List reminders",
	Long: `List reminders with their next occurrence. Use --all to include
completed one-off reminders.

Examples:
  chime remind list
  chime remind list --all
  chime remind list --format json`,
	Args: cobra.NoArgs,
	RunE: runRemindList,
}

// remindShowCmd shows one reminder.
var remindShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a reminder",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemindShow,
}

// remindNextCmd lists upcoming occurrences.
var remindNextCmd = &cobra.Command{
	Use:   "next ID",
	Short: "Show upcoming occurrences of a reminder",
	Long: `Show the next occurrences of a reminder, honoring exclusions and the
active date range.

Examples:
  chime remind next 3f2a
  chime remind next 3f2a -n 10`,
	Args: cobra.ExactArgs(1),
	RunE: runRemindNext,
}

// remindEditCmd edits a reminder.
var remindEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change a reminder",
	Long: `Change a reminder. Only the given flags are applied.

--on, --every and --prayer replace the recurrence; --at alone keeps the
recurrence and changes its times. --until none removes the end date.

Examples:
  chime remind edit 3f2a --at 07:30
  chime remind edit 3f2a --every weekdays
  chime remind edit 3f2a --exclude "2025-04-18 08:00"
  chime remind edit 3f2a --title "Morning walk" --priority high`,
	Args: cobra.ExactArgs(1),
	RunE: runRemindEdit,
}

// remindAckCmd acknowledges an occurrence.
var remindAckCmd = &cobra.Command{
	Use:     "ack ID",
	Aliases: []string{"done"},
	Short:   "Acknowledge an occurrence",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemindAck,
}

// remindSkipCmd skips an occurrence.
var remindSkipCmd = &cobra.Command{
	Use:   "skip ID",
	Short: "Skip an occurrence",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemindSkip,
}

// remindSnoozeCmd snoozes a reminder.
var remindSnoozeCmd = &cobra.Command{
	Use:   "snooze ID [DURATION]",
	Short: "Ring again after a delay",
	Long: `Make a reminder fire again after DURATION (default alert.snooze_for).
A bare number is minutes.

Examples:
  chime remind snooze 3f2a
  chime remind snooze 3f2a 20m`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRemindSnooze,
}

// remindToggleCmd pauses or resumes a reminder.
var remindToggleCmd = &cobra.Command{
	Use:   "toggle ID",
	Short: "Pause or resume a reminder",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemindToggle,
}

// remindDeleteCmd deletes a reminder.
var remindDeleteCmd = &cobra.Command{
	Use:     "delete ID",
	Aliases: []string{"rm", "remove"},
	Short:   "Delete a reminder",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemindDelete,
}

func init() {
	for _, c := range []*cobra.Command{remindAddCmd, remindEditCmd} {
		addScheduleFlags(c)
	}
	remindEditCmd.Flags().StringVar(&remindFlagTitle, "title", "", "New title")
	remindEditCmd.Flags().StringArrayVar(&remindFlagExclude, "exclude", nil,
		"Skip the occurrence at this date and time (repeatable)")

	remindListCmd.Flags().BoolVarP(&remindListAll, "all", "a", false,
		"Include completed reminders")
	remindNextCmd.Flags().IntVarP(&remindNextCount, "count", "n", 5,
		"Number of occurrences")
	for _, c := range []*cobra.Command{remindAckCmd, remindSkipCmd} {
		c.Flags().StringVar(&remindOccurrence, "occurrence", "",
			"Occurrence date and time (default now)")
	}
	remindDeleteCmd.Flags().BoolVar(&remindDeleteForce, "force", false,
		"Skip confirmation")

	for _, c := range []*cobra.Command{
		remindShowCmd, remindNextCmd, remindEditCmd, remindAckCmd,
		remindSkipCmd, remindSnoozeCmd, remindToggleCmd, remindDeleteCmd,
	} {
		c.ValidArgsFunction = completeReminderArgs
		remindCmd.AddCommand(c)
	}
	remindAddCmd.ValidArgsFunction = completePhraseArgs
	for _, c := range []*cobra.Command{remindAddCmd, remindEditCmd} {
		_ = c.RegisterFlagCompletionFunc("prayer", completePrayerNames)
		_ = c.RegisterFlagCompletionFunc("priority", completePriorities)
	}
	remindCmd.AddCommand(remindAddCmd, remindListCmd)

	rootCmd.AddCommand(remindCmd)
}

func addScheduleFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&remindFlagAt, "at", "", "Times of day, e.g. 08:00,20:00")
	f.StringVar(&remindFlagOn, "on", "", "Weekdays or a date")
	f.StringVar(&remindFlagEvery, "every", "", "day, week, month or an interval like 45m")
	f.StringVar(&remindFlagFrom, "from", "", "First active day")
	f.StringVar(&remindFlagUntil, "until", "", "Last active day")
	f.StringVar(&remindFlagPrayer, "prayer", "", "Anchor to a prayer: fajr, dhuhr, asr, maghrib, isha")
	f.StringVar(&remindFlagBefore, "before", "", "Fire this long before the prayer")
	f.StringVar(&remindFlagAfter, "after", "", "Fire this long after the prayer")
	f.StringVar(&remindFlagCity, "city", "", "Prayer city (default prayer.city)")
	f.StringVar(&remindFlagCountry, "country", "", "Prayer country (default prayer.country)")
	f.StringVar(&remindFlagTZ, "tz", "", "IANA timezone (default schedule.default_timezone)")
	f.StringVar(&remindFlagNotes, "notes", "", "Notes shown with the alert")
	f.StringVar(&remindFlagSound, "sound", "", "Sound id")
	f.Float64Var(&remindFlagVolume, "volume", model.DefaultSound.Volume, "Sound volume between 0 and 1")
	f.StringVar(&remindFlagPriority, "priority", "", "low, normal or high")
}

// completeReminderArgs provides completion for reminder IDs.
func completeReminderArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	rt := ctx
	if rt == nil {
		var err error
		rt, err = runtime.New(runtime.DefaultOptions())
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		defer rt.Close()
	}

	reminders, err := rt.Reminders.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var suggestions []string
	for _, r := range reminders {
		shortID := r.ShortID()
		if strings.HasPrefix(shortID, toComplete) {
			suggestions = append(suggestions, fmt.Sprintf("%s\t%s", shortID, r.Title))
		}
	}
	return suggestions, cobra.ShellCompDirectiveNoFileComp
}

// runRemindAdd handles creating a reminder.
func runRemindAdd(cmd *cobra.Command, args []string) error {
	phrase := parser.ParsePhrase(args)
	phrase.Merge(parser.Phrase{
		At:    remindFlagAt,
		On:    remindFlagOn,
		Every: remindFlagEvery,
		From:  remindFlagFrom,
		Until: remindFlagUntil,
	})

	title := validate.SanitizeTitle(phrase.Title)
	if err := validate.Title(title); err != nil {
		return err
	}
	if err := validate.Timezone(remindFlagTZ); err != nil {
		return err
	}

	now := ctx.Clock.Now()
	raw, err := phrase.Schedule(now, zoneFor(remindFlagTZ))
	if err != nil {
		return err
	}
	raw.Timezone = remindFlagTZ
	if remindFlagPrayer != "" {
		spec, err := prayerFromFlags(cmd, nil)
		if err != nil {
			return err
		}
		raw.Mode = model.ModePrayer
		raw.Prayer = spec
	}

	r := model.NewReminder(title, ctx.Normalizer.Normalize(raw))
	if err := applyDetails(cmd, r); err != nil {
		return err
	}
	if err := ctx.Reminders.Create(r); err != nil {
		return err
	}
	ctx.Debugf("created reminder %s (%s)", r.ID, r.Schedule.Mode)

	return printReminder(cmd, r, now)
}

// runRemindList handles listing reminders.
func runRemindList(cmd *cobra.Command, args []string) error {
	all, err := ctx.Reminders.List()
	if err != nil {
		return err
	}

	now := ctx.Clock.Now()
	reminders := make([]*model.Reminder, 0, len(all))
	next := make(map[string]time.Time, len(all))
	for _, r := range all {
		if r.Completed && !remindListAll {
			continue
		}
		reminders = append(reminders, r)
		if t, ok := ctx.Planner.Next(cmd.Context(), r, now); ok {
			next[r.ID] = t
		}
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintReminders(reminders, next)
	}
	ctx.CLIFormatter().PrintReminders(reminders, next)
	return nil
}

// runRemindShow handles showing one reminder.
func runRemindShow(cmd *cobra.Command, args []string) error {
	r, err := ctx.Reminders.Resolve(args[0])
	if err != nil {
		return err
	}
	return printReminder(cmd, r, ctx.Clock.Now())
}

// runRemindNext handles listing upcoming occurrences.
func runRemindNext(cmd *cobra.Command, args []string) error {
	if err := validate.InRange("count", remindNextCount, 1, 100); err != nil {
		return err
	}
	r, err := ctx.Reminders.Resolve(args[0])
	if err != nil {
		return err
	}

	at := ctx.Planner.Upcoming(cmd.Context(), r, ctx.Clock.Now(), remindNextCount)
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintOccurrences(r, at)
	}
	ctx.CLIFormatter().PrintOccurrences(r, at)
	return nil
}

// runRemindEdit handles changing a reminder.
func runRemindEdit(cmd *cobra.Command, args []string) error {
	r, err := ctx.Reminders.Resolve(args[0])
	if err != nil {
		return err
	}

	f := cmd.Flags()
	title := r.Title
	if f.Changed("title") {
		title = validate.SanitizeTitle(remindFlagTitle)
		if err := validate.Title(title); err != nil {
			return err
		}
	}
	if err := validate.Timezone(remindFlagTZ); err != nil {
		return err
	}

	now := ctx.Clock.Now()
	sched, err := editedSchedule(cmd, r.Schedule, now)
	if err != nil {
		return err
	}

	updated, err := ctx.Reminders.Modify(r.ID, func(rem *model.Reminder) error {
		rem.Title = title
		rem.Schedule = sched
		return applyDetails(cmd, rem)
	})
	if err != nil {
		return err
	}
	ctx.Debugf("updated reminder %s", updated.ID)

	return printReminder(cmd, updated, now)
}

// runRemindAck handles acknowledging an occurrence.
func runRemindAck(cmd *cobra.Command, args []string) error {
	r, err := ctx.Reminders.Resolve(args[0])
	if err != nil {
		return err
	}
	firedAt, err := occurrenceFlag(r)
	if err != nil {
		return err
	}

	u, err := ctx.Tracker.Acknowledge(r.ID, firedAt)
	if err != nil {
		return err
	}
	return printMetrics("acknowledged", "Acknowledged "+r.Title, u)
}

// runRemindSkip handles skipping an occurrence.
func runRemindSkip(cmd *cobra.Command, args []string) error {
	r, err := ctx.Reminders.Resolve(args[0])
	if err != nil {
		return err
	}
	firedAt, err := occurrenceFlag(r)
	if err != nil {
		return err
	}

	u, err := ctx.Tracker.Skip(r.ID, firedAt)
	if err != nil {
		return err
	}
	return printMetrics("skipped", "Skipped "+r.Title, u)
}

// runRemindSnooze handles snoozing a reminder.
func runRemindSnooze(cmd *cobra.Command, args []string) error {
	r, err := ctx.Reminders.Resolve(args[0])
	if err != nil {
		return err
	}

	d := ctx.Config.Alert.SnoozeFor
	if len(args) > 1 {
		if d, err = parser.ParseDuration(args[1]); err != nil {
			return err
		}
	}

	until, err := ctx.Tracker.Snooze(r.ID, d)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintSnooze(r.ID, until)
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("Snoozed %s until %s",
		r.Title, output.FormatTimeShort(until.In(r.Schedule.Location()))))
	return nil
}

// runRemindToggle handles pausing and resuming a reminder.
func runRemindToggle(cmd *cobra.Command, args []string) error {
	r, err := ctx.Reminders.Resolve(args[0])
	if err != nil {
		return err
	}

	active, err := ctx.Tracker.ToggleActive(r.ID)
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]interface{}{
			"status": "updated",
			"id":     r.ID,
			"active": active,
		})
	}
	if active {
		ctx.CLIFormatter().Success("Resumed " + r.Title)
	} else {
		ctx.CLIFormatter().Success("Paused " + r.Title)
	}
	return nil
}

// runRemindDelete handles deleting a reminder.
func runRemindDelete(cmd *cobra.Command, args []string) error {
	r, err := ctx.Reminders.Resolve(args[0])
	if err != nil {
		return err
	}

	// Confirmation (skip if --force)
	if !remindDeleteForce && !ctx.IsJSON() {
		ctx.Formatter.Printf("Delete reminder %q? [y/N] ", r.Title)
		var response string
		_, _ = fmt.Fscanln(cmd.InOrStdin(), &response)
		if response != "y" && response != "Y" {
			ctx.Formatter.Println("Cancelled.")
			return nil
		}
	}

	if err := ctx.Reminders.Delete(r.ID); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]interface{}{
			"status": "deleted",
			"id":     r.ID,
			"title":  r.Title,
		})
	}
	ctx.CLIFormatter().Success("Deleted " + r.Title)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func printReminder(cmd *cobra.Command, r *model.Reminder, now time.Time) error {
	var next *time.Time
	if t, ok := ctx.Planner.Next(cmd.Context(), r, now); ok {
		next = &t
	}
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintReminder(r, next)
	}
	ctx.CLIFormatter().PrintReminder(r, next)
	return nil
}

func printMetrics(status, verb string, u model.UpdatedMetrics) error {
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintMetrics(status, u)
	}
	ctx.CLIFormatter().PrintMetrics(verb, u)
	return nil
}

// zoneFor loads tz, falling back to the configured default zone.
func zoneFor(tz string) *time.Location {
	for _, name := range []string{tz, ctx.Normalizer.Timezone} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}

// applyDetails copies the non-schedule flags onto r.
func applyDetails(cmd *cobra.Command, r *model.Reminder) error {
	f := cmd.Flags()
	if f.Changed("notes") {
		notes := validate.SanitizeNote(remindFlagNotes)
		if err := validate.Note(notes); err != nil {
			return err
		}
		r.Notes = notes
	}
	if f.Changed("sound") {
		r.Sound.ID = strings.TrimSpace(remindFlagSound)
	}
	if f.Changed("volume") {
		if err := validate.Volume(remindFlagVolume); err != nil {
			return err
		}
		r.Sound.Volume = remindFlagVolume
	}
	if f.Changed("priority") {
		p, err := parsePriority(remindFlagPriority)
		if err != nil {
			return err
		}
		r.Priority = p
	}
	return nil
}

func parsePriority(s string) (model.Priority, error) {
	switch p := model.Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case model.PriorityLow, model.PriorityNormal, model.PriorityHigh:
		return p, nil
	}
	return "", errors.NewUserErrorWithField("priority", s,
		"Unknown priority",
		"Use low, normal or high")
}

// prayerFromFlags applies the prayer flags on top of base, which may be nil.
func prayerFromFlags(cmd *cobra.Command, base *model.PrayerSpec) (*model.PrayerSpec, error) {
	spec := &model.PrayerSpec{Direction: model.After}
	if base != nil {
		*spec = *base
	}

	f := cmd.Flags()
	if f.Changed("prayer") {
		name, ok := model.ParsePrayerName(remindFlagPrayer)
		if !ok {
			return nil, errors.NewUserErrorWithField("prayer", remindFlagPrayer,
				"Unknown prayer",
				"Use one of "+prayerNames())
		}
		spec.Name = name
	}

	switch {
	case remindFlagBefore != "" && remindFlagAfter != "":
		return nil, errors.NewUserError("Use either --before or --after, not both",
			"e.g. --prayer fajr --before 10m")
	case remindFlagBefore != "":
		d, err := parser.ParseDuration(remindFlagBefore)
		if err != nil {
			return nil, err
		}
		spec.Direction = model.Before
		spec.OffsetMinutes = int(d / time.Minute)
	case remindFlagAfter != "":
		d, err := parser.ParseDuration(remindFlagAfter)
		if err != nil {
			return nil, err
		}
		spec.Direction = model.After
		spec.OffsetMinutes = int(d / time.Minute)
	}
	if err := validate.Offset(spec.OffsetMinutes); err != nil {
		return nil, err
	}

	if f.Changed("city") {
		spec.City = strings.TrimSpace(remindFlagCity)
	}
	if f.Changed("country") {
		spec.Country = strings.TrimSpace(remindFlagCountry)
	}
	return spec, nil
}

// editedSchedule applies the schedule flags of cmd to current.
func editedSchedule(cmd *cobra.Command, current model.Schedule, now time.Time) (model.Schedule, error) {
	f := cmd.Flags()
	s := current.Clone()
	if f.Changed("tz") {
		s.Timezone = remindFlagTZ
	}
	loc := zoneFor(s.Timezone)

	switch {
	case f.Changed("prayer"):
		spec, err := prayerFromFlags(cmd, current.Prayer)
		if err != nil {
			return s, err
		}
		s.Mode = model.ModePrayer
		s.Prayer = spec
	case f.Changed("on") || f.Changed("every"):
		at := remindFlagAt
		if at == "" {
			at = joinTimes(current.Times)
		}
		phrase := &parser.Phrase{At: at, On: remindFlagOn, Every: remindFlagEvery}
		rebuilt, err := phrase.Schedule(now, loc)
		if err != nil {
			return s, err
		}
		s.Mode = rebuilt.Mode
		s.Times = rebuilt.Times
		s.DaysOfWeek = rebuilt.DaysOfWeek
		s.Interval = rebuilt.Interval
		if !rebuilt.StartDate.IsZero() {
			s.StartDate = rebuilt.StartDate
		}
	case f.Changed("at"):
		times, err := parser.ParseTimes(remindFlagAt)
		if err != nil {
			return s, err
		}
		s.Times = times
	case s.Mode == model.ModePrayer &&
		(f.Changed("before") || f.Changed("after") || f.Changed("city") || f.Changed("country")):
		spec, err := prayerFromFlags(cmd, current.Prayer)
		if err != nil {
			return s, err
		}
		s.Prayer = spec
	}

	if f.Changed("from") {
		d, err := parser.ParseDate(remindFlagFrom, now, loc)
		if err != nil {
			return s, err
		}
		s.StartDate = d
	}
	if f.Changed("until") {
		switch strings.ToLower(strings.TrimSpace(remindFlagUntil)) {
		case "none", "never", "":
			s.EndDate = nil
		default:
			d, err := parser.ParseDate(remindFlagUntil, now, loc)
			if err != nil {
				return s, err
			}
			s.EndDate = &d
		}
	}

	for _, ex := range remindFlagExclude {
		d, tod, err := parser.ParseWhen(ex, now, loc)
		if err != nil {
			return s, err
		}
		s.Exdates = append(s.Exdates, d.At(tod, loc))
	}

	return ctx.Normalizer.Normalize(s), nil
}

// occurrenceFlag returns the --occurrence instant, or zero for now.
func occurrenceFlag(r *model.Reminder) (time.Time, error) {
	if remindOccurrence == "" {
		return time.Time{}, nil
	}
	loc := r.Schedule.Location()
	d, tod, err := parser.ParseWhen(remindOccurrence, ctx.Clock.Now(), loc)
	if err != nil {
		return time.Time{}, err
	}
	return d.At(tod, loc), nil
}

func joinTimes(times []model.TimeOfDay) string {
	parts := make([]string, len(times))
	for i, t := range times {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}
