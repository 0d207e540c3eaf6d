package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/chime/internal/model"
)

func TestPeriod(t *testing.T) {
	tests := []struct {
		name string
		s    model.Schedule
		want time.Duration
	}{
		{"once", model.Schedule{Mode: model.ModeOnce, Times: tods("08:00")}, 0},
		{"daily_single", daily("08:00"), 24 * time.Hour},
		{"daily_uneven", daily("08:00", "12:00"), 20 * time.Hour},
		{"daily_even", daily("08:00", "20:00"), 12 * time.Hour},
		{"monthly", model.Schedule{Mode: model.ModeMonthly, Times: tods("09:00")}, 24 * time.Hour},
		{
			"weekly_single_day",
			model.Schedule{Mode: model.ModeWeekly, Times: tods("08:00"), DaysOfWeek: []model.Weekday{model.Friday}},
			7 * 24 * time.Hour,
		},
		{
			"weekly_mon_wed",
			model.Schedule{Mode: model.ModeWeekly, Times: tods("08:00"), DaysOfWeek: []model.Weekday{model.Monday, model.Wednesday}},
			5 * 24 * time.Hour,
		},
		{
			"weekly_wraps_sunday",
			model.Schedule{Mode: model.ModeWeekly, Times: tods("08:00"), DaysOfWeek: []model.Weekday{model.Sunday, model.Saturday}},
			6 * 24 * time.Hour,
		},
		{
			"interval",
			model.Schedule{Mode: model.ModeInterval, Interval: &model.Interval{Every: 90, Unit: model.UnitMinute}},
			90 * time.Minute,
		},
		{"interval_missing", model.Schedule{Mode: model.ModeInterval}, time.Hour},
		{"prayer", model.Schedule{Mode: model.ModePrayer}, 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Period(tt.s))
		})
	}
}

func TestUpcoming(t *testing.T) {
	t.Run("daily", func(t *testing.T) {
		got := Upcoming(daily("08:00", "20:00"), at(2025, 1, 1, 9, 0), 4, nil)
		require.Len(t, got, 4)
		assert.Equal(t, at(2025, 1, 1, 20, 0), got[0].UTC())
		assert.Equal(t, at(2025, 1, 2, 8, 0), got[1].UTC())
		assert.Equal(t, at(2025, 1, 2, 20, 0), got[2].UTC())
		assert.Equal(t, at(2025, 1, 3, 8, 0), got[3].UTC())
	})

	t.Run("skips_exclusions", func(t *testing.T) {
		ex := exclude(at(2025, 1, 2, 8, 0))
		got := Upcoming(daily("08:00"), at(2025, 1, 1, 9, 0), 2, ex)
		require.Len(t, got, 2)
		assert.Equal(t, at(2025, 1, 3, 8, 0), got[0].UTC())
		assert.Equal(t, at(2025, 1, 4, 8, 0), got[1].UTC())
	})

	t.Run("once_yields_single", func(t *testing.T) {
		s := model.Schedule{Mode: model.ModeOnce, Times: tods("10:00"), StartDate: date(2025, 1, 5), Timezone: "UTC"}
		got := Upcoming(s, at(2025, 1, 1, 0, 0), 5, nil)
		assert.Equal(t, []time.Time{at(2025, 1, 5, 10, 0)}, got)
	})

	t.Run("stops_at_end_date", func(t *testing.T) {
		s := daily("08:00")
		end := date(2025, 1, 3)
		s.EndDate = &end
		got := Upcoming(s, at(2025, 1, 1, 0, 0), 10, nil)
		assert.Len(t, got, 3)
	})

	t.Run("interval", func(t *testing.T) {
		s := model.Schedule{
			Mode: model.ModeInterval, Times: tods("00:00"), StartDate: date(2025, 1, 1), Timezone: "UTC",
			Interval: &model.Interval{Every: 30, Unit: model.UnitMinute},
		}
		got := Upcoming(s, at(2025, 1, 1, 0, 10), 3, nil)
		assert.Equal(t, []time.Time{at(2025, 1, 1, 0, 30), at(2025, 1, 1, 1, 0), at(2025, 1, 1, 1, 30)}, got)
	})
}
