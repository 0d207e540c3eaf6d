package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/chime/internal/model"
)

// fixedResolver places every prayer at the same wall-clock time each day.
type fixedResolver struct {
	at    model.TimeOfDay
	fail  map[model.Date]bool
	calls int
}

func (f *fixedResolver) Resolve(_ context.Context, spec model.PrayerSpec, date model.Date, zone *time.Location) (time.Time, bool) {
	f.calls++
	if f.fail[date] {
		return time.Time{}, false
	}
	return date.At(f.at, zone).Add(spec.Offset()), true
}

func utc(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func dailyReminder() *model.Reminder {
	r := model.NewReminder("water", model.Schedule{
		Mode:      model.ModeDaily,
		Times:     []model.TimeOfDay{model.MustTimeOfDay("08:00"), model.MustTimeOfDay("20:00")},
		StartDate: model.Date{Year: 2025, Month: time.January, Day: 1},
		Timezone:  "UTC",
	})
	r.ID = "r1"
	return r
}

func prayerReminder() *model.Reminder {
	r := model.NewReminder("fajr", model.Schedule{
		Mode:      model.ModePrayer,
		Times:     []model.TimeOfDay{model.MustTimeOfDay("08:00")},
		Prayer:    &model.PrayerSpec{Name: model.Fajr, OffsetMinutes: 10, Direction: model.Before, City: "Cairo", Country: "Egypt"},
		StartDate: model.Date{Year: 2025, Month: time.January, Day: 1},
		Timezone:  "UTC",
	})
	r.ID = "p1"
	return r
}

func TestNextGuards(t *testing.T) {
	p := New(nil, time.Minute)
	ctx := context.Background()
	now := utc(2025, 1, 1, 9, 0)

	r := dailyReminder()
	got, ok := p.Next(ctx, r, now)
	require.True(t, ok)
	assert.Equal(t, utc(2025, 1, 1, 20, 0), got.UTC())

	r.Active = false
	_, ok = p.Next(ctx, r, now)
	assert.False(t, ok, "inactive reminders never fire")

	r.Active = true
	r.Completed = true
	_, ok = p.Next(ctx, r, now)
	assert.False(t, ok, "completed reminders never fire")
}

func TestNextUsesExdatesWithTolerance(t *testing.T) {
	ctx := context.Background()
	r := dailyReminder()
	r.Schedule.Exdates = []time.Time{utc(2025, 1, 1, 20, 0).Add(30 * time.Second)}

	got, ok := New(nil, time.Minute).Next(ctx, r, utc(2025, 1, 1, 9, 0))
	require.True(t, ok)
	assert.Equal(t, utc(2025, 1, 2, 8, 0), got.UTC())

	got, ok = New(nil, 10*time.Second).Next(ctx, r, utc(2025, 1, 1, 9, 0))
	require.True(t, ok)
	assert.Equal(t, utc(2025, 1, 1, 20, 0), got.UTC())
}

func TestNextSnooze(t *testing.T) {
	p := New(nil, time.Minute)
	ctx := context.Background()
	now := utc(2025, 1, 1, 9, 0)
	r := dailyReminder()

	snooze := utc(2025, 1, 1, 9, 10)
	r.SnoozedUntil = &snooze
	got, ok := p.Next(ctx, r, now)
	require.True(t, ok)
	assert.Equal(t, snooze, got.UTC())

	late := utc(2025, 1, 1, 22, 0)
	r.SnoozedUntil = &late
	got, _ = p.Next(ctx, r, now)
	assert.Equal(t, utc(2025, 1, 1, 20, 0), got.UTC(), "scheduled occurrence earlier than snooze wins")

	past := utc(2025, 1, 1, 8, 30)
	r.SnoozedUntil = &past
	got, _ = p.Next(ctx, r, now)
	assert.Equal(t, utc(2025, 1, 1, 20, 0), got.UTC(), "elapsed snooze is ignored")

	once := model.NewReminder("call", model.Schedule{
		Mode: model.ModeOnce, Times: []model.TimeOfDay{model.MustTimeOfDay("08:00")},
		StartDate: model.Date{Year: 2025, Month: time.January, Day: 1}, Timezone: "UTC",
	})
	once.SnoozedUntil = &snooze
	got, ok = p.Next(ctx, once, now)
	require.True(t, ok, "a snoozed once reminder fires again")
	assert.Equal(t, snooze, got.UTC())
}

func TestNextPrayer(t *testing.T) {
	ctx := context.Background()
	res := &fixedResolver{at: model.MustTimeOfDay("05:20")}
	p := New(res, time.Minute)
	r := prayerReminder()

	t.Run("today", func(t *testing.T) {
		got, ok := p.Next(ctx, r, utc(2025, 1, 5, 3, 0))
		require.True(t, ok)
		assert.Equal(t, utc(2025, 1, 5, 5, 10), got.UTC())
	})

	t.Run("passed_today_goes_to_tomorrow", func(t *testing.T) {
		got, ok := p.Next(ctx, r, utc(2025, 1, 5, 6, 0))
		require.True(t, ok)
		assert.Equal(t, utc(2025, 1, 6, 5, 10), got.UTC())
	})

	t.Run("excluded_goes_to_tomorrow", func(t *testing.T) {
		ex := r.Schedule.Clone()
		ex.Exdates = []time.Time{utc(2025, 1, 5, 5, 10)}
		rr := *r
		rr.Schedule = ex
		got, ok := p.Next(ctx, &rr, utc(2025, 1, 5, 3, 0))
		require.True(t, ok)
		assert.Equal(t, utc(2025, 1, 6, 5, 10), got.UTC())
	})

	t.Run("resolution_failure_is_none", func(t *testing.T) {
		failing := &fixedResolver{at: model.MustTimeOfDay("05:20"), fail: map[model.Date]bool{{Year: 2025, Month: 1, Day: 5}: true}}
		_, ok := New(failing, time.Minute).Next(ctx, r, utc(2025, 1, 5, 3, 0))
		assert.False(t, ok)
		assert.Equal(t, 1, failing.calls, "no guessing past an unresolvable day")
	})

	t.Run("end_date", func(t *testing.T) {
		end := model.Date{Year: 2025, Month: time.January, Day: 5}
		rr := *r
		rr.Schedule = r.Schedule.Clone()
		rr.Schedule.EndDate = &end
		_, ok := p.Next(ctx, &rr, utc(2025, 1, 5, 6, 0))
		assert.False(t, ok)
		_, ok = p.Next(ctx, &rr, utc(2025, 1, 6, 0, 0))
		assert.False(t, ok)
	})

	t.Run("no_resolver", func(t *testing.T) {
		_, ok := New(nil, time.Minute).Next(ctx, r, utc(2025, 1, 5, 3, 0))
		assert.False(t, ok)
	})
}

func TestUpcoming(t *testing.T) {
	ctx := context.Background()
	p := New(&fixedResolver{at: model.MustTimeOfDay("05:20")}, time.Minute)

	got := p.Upcoming(ctx, prayerReminder(), utc(2025, 1, 5, 6, 0), 3)
	assert.Equal(t, []time.Time{utc(2025, 1, 6, 5, 10), utc(2025, 1, 7, 5, 10), utc(2025, 1, 8, 5, 10)}, got)

	daily := p.Upcoming(ctx, dailyReminder(), utc(2025, 1, 1, 9, 0), 2)
	require.Len(t, daily, 2)
	assert.Equal(t, utc(2025, 1, 2, 8, 0), daily[1].UTC())

	off := dailyReminder()
	off.Active = false
	assert.Nil(t, p.Upcoming(ctx, off, utc(2025, 1, 1, 9, 0), 2))
}
