package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/model"
	"github.com/manav03panchal/chime/internal/parser"
	"github.com/manav03panchal/chime/internal/validate"
)

// Prayer command flags.
var (
	prayerFlagCity    string
	prayerFlagCountry string
	prayerFlagDate    string
	prayerFlagTZ      string
)

// prayerCmd groups prayer time commands.
var prayerCmd = &cobra.Command{
	Use:   "prayer",
	Short: "Inspect prayer times",
}

// prayerTimesCmd prints one day of prayer times.
var prayerTimesCmd = &cobra.Command{
	Use:   "times",
	Short: "Show the prayer times for a day",
	Long: `Show the five daily prayer times for a city. Tables are cached, so
repeated lookups for the same day do not call the provider again.

Examples:
  chime prayer times
  chime prayer times --city Cairo --country Egypt
  chime prayer times --date tomorrow --tz Africa/Cairo`,
	Args: cobra.NoArgs,
	RunE: runPrayerTimes,
}

func init() {
	prayerTimesCmd.Flags().StringVar(&prayerFlagCity, "city", "", "City (default prayer.city)")
	prayerTimesCmd.Flags().StringVar(&prayerFlagCountry, "country", "", "Country (default prayer.country)")
	prayerTimesCmd.Flags().StringVar(&prayerFlagDate, "date", "", "Day to show (default today)")
	prayerTimesCmd.Flags().StringVar(&prayerFlagTZ, "tz", "", "IANA timezone (default schedule.default_timezone)")

	prayerCmd.AddCommand(prayerTimesCmd)
	rootCmd.AddCommand(prayerCmd)
}

func runPrayerTimes(cmd *cobra.Command, args []string) error {
	if err := validate.Timezone(prayerFlagTZ); err != nil {
		return err
	}
	zone := zoneFor(prayerFlagTZ)
	now := ctx.Clock.Now()

	loc := model.Location{
		City:    firstNonEmpty(prayerFlagCity, ctx.Config.Prayer.City),
		Country: firstNonEmpty(prayerFlagCountry, ctx.Config.Prayer.Country),
	}
	if loc.City == "" || loc.Country == "" {
		return errors.NewUserError("No prayer location configured",
			"Pass --city and --country, or set prayer.city and prayer.country in the config file")
	}

	date := model.DateOf(now.In(zone))
	if prayerFlagDate != "" {
		d, err := parser.ParseDate(prayerFlagDate, now, zone)
		if err != nil {
			return err
		}
		date = d
	}

	table, ok := ctx.Resolver.Table(cmd.Context(), loc, date, zone)
	if !ok {
		return errors.Wrapf(errors.ErrProviderUnavailable, "no prayer times for %s on %s", loc, date)
	}
	ctx.Debugf("prayer table %s fetched %s", table.GetKey(), table.FetchedAt.Format(time.RFC3339))

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(table)
	}
	ctx.CLIFormatter().PrintPrayerTable(table)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// prayerNames lists the accepted prayer names for help text.
func prayerNames() string {
	names := make([]string, 0, len(model.PrayerNames()))
	for _, p := range model.PrayerNames() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}
