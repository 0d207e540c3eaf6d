package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/chime/internal/calendar"
	"github.com/manav03panchal/chime/internal/model"
)

// BackupVersion is the version written into JSON backups.
const BackupVersion = "1"

// Export command flags.
var (
	exportFlagOutput     string
	exportFlagPrayerDays int
)

// Backup is a full dump of the reminder store.
type Backup struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Reminders  []*model.Reminder `json:"reminders"`
}

// exportCmd groups export formats.
var exportCmd = &cobra.Command{
	Use:     "export",
	Aliases: []string{"ex", "dump"},
	Short:   "Export reminders",
}

// exportICSCmd writes an iCalendar feed.
var exportICSCmd = &cobra.Command{
	Use:   "ics",
	Short: "Export reminders as an iCalendar feed",
	Long: `Export active reminders as iCalendar events, starting at each reminder's
next occurrence. Recurring reminders carry an RRULE and their exclusions;
prayer reminders are exported as individual events for the coming days.

Examples:
  chime export ics > chime.ics
  chime export ics -o ~/calendars/chime.ics
  chime export ics --prayer-days 14`,
	Args: cobra.NoArgs,
	RunE: runExportICS,
}

// exportJSONCmd writes a JSON backup.
var exportJSONCmd = &cobra.Command{
	Use:   "json",
	Short: "Export a JSON backup of every reminder",
	Long: `Export every reminder, including metrics and paused or completed
reminders, as JSON. Restore it with chime import.

Examples:
  chime export json -o backup.json`,
	Args: cobra.NoArgs,
	RunE: runExportJSON,
}

func init() {
	exportCmd.PersistentFlags().StringVarP(&exportFlagOutput, "output", "o", "", "Output file (stdout if omitted)")
	exportICSCmd.Flags().IntVar(&exportFlagPrayerDays, "prayer-days", calendar.DefaultPrayerDays,
		"Days of prayer reminders to export")

	exportCmd.AddCommand(exportICSCmd)
	exportCmd.AddCommand(exportJSONCmd)
	rootCmd.AddCommand(exportCmd)
}

func runExportICS(cmd *cobra.Command, args []string) error {
	reminders, err := ctx.Reminders.List()
	if err != nil {
		return err
	}

	x := calendar.NewExporter(ctx.Planner)
	x.PrayerDays = exportFlagPrayerDays
	data, err := x.Export(cmd.Context(), reminders, ctx.Clock.Now())
	if err != nil {
		return err
	}
	return writeExport(cmd, data)
}

func runExportJSON(cmd *cobra.Command, args []string) error {
	reminders, err := ctx.Reminders.List()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(Backup{
		Version:    BackupVersion,
		ExportedAt: ctx.Clock.Now().UTC(),
		Reminders:  reminders,
	}, "", "  ")
	if err != nil {
		return err
	}
	return writeExport(cmd, append(data, '\n'))
}

// writeExport writes data to --output, or stdout when unset.
func writeExport(cmd *cobra.Command, data []byte) error {
	var w io.Writer = cmd.OutOrStdout()
	if exportFlagOutput != "" {
		file, err := os.Create(exportFlagOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		w = file
	}

	if _, err := w.Write(data); err != nil {
		return err
	}
	if exportFlagOutput != "" && !ctx.IsJSON() {
		ctx.CLIFormatter().Success("Exported to " + exportFlagOutput)
	}
	return nil
}
