package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/chime/internal/model"
)

// phraseKeywords are the clause words of a reminder phrase.
var phraseKeywords = []string{
	"at\ttimes of day",
	"on\tweekdays or a date",
	"every\tday, week, month or an interval",
	"from\tfirst active day",
	"until\tlast active day",
}

// completePhraseArgs handles completion for the remind add phrase.
func completePhraseArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Title comes first
	if len(args) == 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var candidates []string
	switch strings.ToLower(args[len(args)-1]) {
	case "on":
		candidates = weekdayCompletions()
		candidates = append(candidates, "weekdays\tMonday to Friday", "weekend\tSaturday and Sunday", "tomorrow")
	case "every":
		candidates = []string{"day", "week", "month", "weekdays", "30m", "1h", "2h"}
	case "at", "from", "until":
		return nil, cobra.ShellCompDirectiveNoFileComp
	default:
		candidates = phraseKeywords
	}
	return filterCompletions(candidates, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completePrayerNames completes the --prayer flag.
func completePrayerNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, 0, len(model.PrayerNames()))
	for _, p := range model.PrayerNames() {
		names = append(names, string(p))
	}
	return filterCompletions(names, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completePriorities completes the --priority flag.
func completePriorities(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return filterCompletions([]string{
		string(model.PriorityLow),
		string(model.PriorityNormal),
		string(model.PriorityHigh),
	}, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func weekdayCompletions() []string {
	days := []model.Weekday{
		model.Monday, model.Tuesday, model.Wednesday, model.Thursday,
		model.Friday, model.Saturday, model.Sunday,
	}
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = string(d)
	}
	return out
}

// filterCompletions keeps candidates whose value starts with prefix.
// Candidates may carry a tab-separated description.
func filterCompletions(candidates []string, prefix string) []string {
	var filtered []string
	for _, c := range candidates {
		value, _, _ := strings.Cut(c, "\t")
		if strings.HasPrefix(value, prefix) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
