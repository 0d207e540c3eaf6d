package calendar

import (
	"context"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/chime/internal/model"
	"github.com/manav03panchal/chime/internal/planner"
)

func date(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func reminder(id string, s model.Schedule) *model.Reminder {
	r := model.NewReminder("reminder "+id, s)
	r.ID = id
	r.UpdatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return r
}

func tods(times ...string) []model.TimeOfDay {
	out := make([]model.TimeOfDay, len(times))
	for i, s := range times {
		out[i] = model.MustTimeOfDay(s)
	}
	return out
}

type dawnResolver struct{}

func (dawnResolver) Resolve(_ context.Context, _ model.PrayerSpec, d model.Date, zone *time.Location) (time.Time, bool) {
	return d.At(model.MustTimeOfDay("05:00"), zone), true
}

// =============================================================================
// Rule
// =============================================================================

func TestRule(t *testing.T) {
	end := date("2025-02-01")
	tests := []struct {
		name     string
		schedule model.Schedule
		want     []string
	}{
		{"daily", model.Schedule{Mode: model.ModeDaily}, []string{"FREQ=DAILY"}},
		{"monthly_as_daily", model.Schedule{Mode: model.ModeMonthly}, []string{"FREQ=DAILY"}},
		{"weekly", model.Schedule{Mode: model.ModeWeekly, DaysOfWeek: []model.Weekday{model.Monday, model.Wednesday}}, []string{"FREQ=WEEKLY", "BYDAY=MO,WE"}},
		{"interval_hours", model.Schedule{Mode: model.ModeInterval, Interval: &model.Interval{Every: 2, Unit: model.UnitHour}}, []string{"FREQ=HOURLY", "INTERVAL=2"}},
		{"interval_minutes", model.Schedule{Mode: model.ModeInterval, Interval: &model.Interval{Every: 30, Unit: model.UnitMinute}}, []string{"FREQ=MINUTELY", "INTERVAL=30"}},
		{"interval_days", model.Schedule{Mode: model.ModeInterval, Interval: &model.Interval{Every: 2, Unit: model.UnitDay}}, []string{"FREQ=HOURLY", "INTERVAL=48"}},
		{"until", model.Schedule{Mode: model.ModeDaily, EndDate: &end, Timezone: "UTC"}, []string{"FREQ=DAILY", "UNTIL=20250201T235959Z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := Rule(tt.schedule)
			require.NoError(t, err)
			for _, part := range tt.want {
				assert.Contains(t, rule, part)
			}
		})
	}
}

func TestRuleNone(t *testing.T) {
	for _, m := range []model.Mode{model.ModeOnce, model.ModePrayer} {
		rule, err := Rule(model.Schedule{Mode: m})
		require.NoError(t, err)
		assert.Empty(t, rule, m)
	}

	_, err := Rule(model.Schedule{Mode: model.ModeInterval})
	assert.Error(t, err)
}

// =============================================================================
// Export
// =============================================================================

func TestExportStructure(t *testing.T) {
	p := planner.New(nil, time.Minute)
	r := reminder("r1", model.Schedule{
		Mode: model.ModeDaily, Times: tods("08:00"), StartDate: date("2025-01-01"), Timezone: "UTC",
	})
	r.Notes = "500ml"

	data, err := NewExporter(p).Export(context.Background(), []*model.Reminder{r}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "PRODID:"+ProductID)
	assert.Contains(t, out, "UID:r1-0800@chime")
	assert.Contains(t, out, "SUMMARY:reminder r1")
	assert.Contains(t, out, "DESCRIPTION:500ml")
	assert.Contains(t, out, "DTSTART:20250101T080000Z")
	assert.Contains(t, out, "RRULE:FREQ=DAILY")
	assert.Contains(t, out, "BEGIN:VALARM")
	assert.Contains(t, out, "ACTION:DISPLAY")
}

func TestExportSkipsInactiveAndFinished(t *testing.T) {
	p := planner.New(nil, time.Minute)
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	inactive := reminder("off", model.Schedule{Mode: model.ModeDaily, Times: tods("08:00"), StartDate: date("2025-01-01"), Timezone: "UTC"})
	inactive.Active = false
	past := reminder("past", model.Schedule{Mode: model.ModeOnce, Times: tods("08:00"), StartDate: date("2025-01-01"), Timezone: "UTC"})
	once := reminder("once", model.Schedule{Mode: model.ModeOnce, Times: tods("09:00"), StartDate: date("2025-01-03"), Timezone: "UTC"})

	data, err := NewExporter(p).Export(context.Background(), []*model.Reminder{inactive, past, once}, now)
	require.NoError(t, err)

	out := string(data)
	assert.NotContains(t, out, "off")
	assert.NotContains(t, out, "UID:past")
	assert.Contains(t, out, "UID:once@chime")
	assert.NotContains(t, out, "RRULE")
	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
}

func TestExportPrayerInstants(t *testing.T) {
	p := planner.New(dawnResolver{}, time.Minute)
	r := reminder("p1", model.Schedule{
		Mode:      model.ModePrayer,
		Times:     tods("08:00"),
		StartDate: date("2025-01-01"),
		Timezone:  "UTC",
		Prayer:    &model.PrayerSpec{Name: model.Fajr, City: "Cairo", Country: "Egypt"},
	})

	x := NewExporter(p)
	x.PrayerDays = 3
	now := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)
	data, err := x.Export(context.Background(), []*model.Reminder{r}, now)
	require.NoError(t, err)

	occ, err := Expand(data, now, now.Add(7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, occ, 3)
	assert.True(t, occ[0].At.Equal(time.Date(2025, 1, 2, 5, 0, 0, 0, time.UTC)))
	assert.True(t, occ[2].At.Equal(time.Date(2025, 1, 4, 5, 0, 0, 0, time.UTC)))
}

// =============================================================================
// Cross-check against the planner
// =============================================================================

func TestExportMatchesPlanner(t *testing.T) {
	p := planner.New(nil, time.Minute)
	helsinki, err := time.LoadLocation("Europe/Helsinki")
	require.NoError(t, err)

	tests := []struct {
		name     string
		schedule model.Schedule
		now      time.Time
	}{
		{
			name: "daily_across_dst_with_exdate",
			schedule: model.Schedule{
				Mode:      model.ModeDaily,
				Times:     tods("08:00"),
				StartDate: date("2025-03-01"),
				Timezone:  "Europe/Helsinki",
				Exdates:   []time.Time{time.Date(2025, 3, 29, 8, 0, 0, 0, helsinki).UTC()},
			},
			now: time.Date(2025, 3, 27, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "daily_two_times",
			schedule: model.Schedule{
				Mode:      model.ModeDaily,
				Times:     tods("08:00", "20:30"),
				StartDate: date("2025-01-01"),
				Timezone:  "UTC",
			},
			now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "weekly",
			schedule: model.Schedule{
				Mode:       model.ModeWeekly,
				Times:      tods("07:15"),
				DaysOfWeek: []model.Weekday{model.Monday, model.Wednesday},
				StartDate:  date("2025-01-01"),
				Timezone:   "UTC",
			},
			now: time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "interval",
			schedule: model.Schedule{
				Mode:      model.ModeInterval,
				Times:     tods("00:00"),
				Interval:  &model.Interval{Every: 2, Unit: model.UnitHour},
				StartDate: date("2025-01-01"),
				Timezone:  "UTC",
				Exdates:   []time.Time{time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)},
			},
			now: time.Date(2025, 1, 1, 5, 10, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := reminder("x", tt.schedule)
			want := p.Upcoming(context.Background(), r, tt.now, 7)
			require.Len(t, want, 7)

			data, err := NewExporter(p).Export(context.Background(), []*model.Reminder{r}, tt.now)
			require.NoError(t, err)

			got, err := Expand(data, tt.now, want[len(want)-1])
			require.NoError(t, err)
			require.Len(t, got, len(want))
			for i := range want {
				assert.True(t, want[i].Equal(got[i].At), "occurrence %d: want %s got %s", i, want[i], got[i].At)
			}
		})
	}
}

func TestExpandInvalid(t *testing.T) {
	_, err := Expand([]byte("not a calendar"), time.Now(), time.Now())
	assert.Error(t, err)
}
