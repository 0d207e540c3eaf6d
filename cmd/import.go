package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/validate"
)

// Import command flags.
var (
	importFlagDryRun bool
	importFlagForce  bool
)

// importCmd restores a JSON backup.
var importCmd = &cobra.Command{
	Use:     "import FILE",
	Aliases: []string{"restore"},
	Short:   "Import reminders from a JSON backup",
	Long: `Import reminders written by chime export json. Reminders that already
exist are kept unless --force is given.

Examples:
  chime import backup.json
  chime import backup.json --dry-run
  chime import backup.json --force`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importFlagDryRun, "dry-run", false, "Preview import without making changes")
	importCmd.Flags().BoolVar(&importFlagForce, "force", false, "Overwrite existing reminders")

	rootCmd.AddCommand(importCmd)
}

// importStats counts what an import did.
type importStats struct {
	Created     int `json:"created"`
	Overwritten int `json:"overwritten"`
	Skipped     int `json:"skipped"`
	Invalid     int `json:"invalid"`
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var backup Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return errors.NewUserErrorWithField("file", args[0],
			"Not a chime backup",
			"Create one with: chime export json -o backup.json")
	}

	var stats importStats
	for _, r := range backup.Reminders {
		if r == nil || r.ID == "" || validate.Title(r.Title) != nil {
			stats.Invalid++
			continue
		}
		r.Schedule = ctx.Normalizer.Normalize(r.Schedule)

		_, err := ctx.Reminders.Get(r.ID)
		exists := err == nil
		if err != nil && !errors.Is(err, errors.ErrReminderNotFound) {
			return err
		}
		if exists && !importFlagForce {
			stats.Skipped++
			continue
		}
		if importFlagDryRun {
			countImport(&stats, exists)
			continue
		}

		if exists {
			err = ctx.Reminders.Update(r)
		} else {
			err = ctx.Reminders.Create(r)
		}
		if err != nil {
			return err
		}
		countImport(&stats, exists)
	}

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]interface{}{
			"status":  "imported",
			"dry_run": importFlagDryRun,
			"stats":   stats,
		})
	}

	c := ctx.CLIFormatter()
	if importFlagDryRun {
		c.Title("Dry run, nothing was written")
	}
	c.Success(fmt.Sprintf("%d created, %d overwritten", stats.Created, stats.Overwritten))
	if stats.Skipped > 0 {
		c.Muted(fmt.Sprintf("%d already present (use --force to overwrite)", stats.Skipped))
	}
	if stats.Invalid > 0 {
		c.Warning(fmt.Sprintf("%d invalid entries ignored", stats.Invalid))
	}
	return nil
}

func countImport(stats *importStats, exists bool) {
	if exists {
		stats.Overwritten++
	} else {
		stats.Created++
	}
}
