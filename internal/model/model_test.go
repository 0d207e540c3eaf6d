package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Date Tests
// =============================================================================

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2025-03-09 ")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2025, Month: time.March, Day: 9}, d)
	assert.Equal(t, "2025-03-09", d.String())

	_, err = ParseDate("09/03/2025")
	assert.Error(t, err)
}

func TestDateArithmetic(t *testing.T) {
	d := Date{Year: 2024, Month: time.February, Day: 28}

	assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, d.AddDays(1))
	assert.Equal(t, Date{Year: 2024, Month: time.March, Day: 1}, d.AddDays(2))
	assert.Equal(t, Date{Year: 2023, Month: time.December, Day: 31}, Date{Year: 2024, Month: time.January, Day: 1}.AddDays(-1))
	assert.Equal(t, time.Wednesday, d.Weekday())

	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(1).After(d))
	assert.Equal(t, 0, d.Compare(d))
}

func TestDateAt(t *testing.T) {
	cairo, err := time.LoadLocation("Africa/Cairo")
	require.NoError(t, err)

	d := Date{Year: 2025, Month: time.January, Day: 15}
	at := d.At(TimeOfDay{Hour: 5, Minute: 12}, cairo)
	assert.Equal(t, time.Date(2025, time.January, 15, 3, 12, 0, 0, time.UTC), at.UTC())

	end := d.EndOfDay(time.UTC)
	assert.Equal(t, d, DateOf(end))
	assert.Equal(t, d.AddDays(1).In(time.UTC), end.Add(time.Nanosecond))
}

func TestDateText(t *testing.T) {
	var wrapper struct {
		D Date  `json:"d"`
		E *Date `json:"e,omitempty"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2025-06-01"}`), &wrapper))
	assert.Equal(t, Date{Year: 2025, Month: time.June, Day: 1}, wrapper.D)
	assert.Nil(t, wrapper.E)

	var zero Date
	require.NoError(t, zero.UnmarshalText(nil))
	assert.True(t, zero.IsZero())
	assert.Empty(t, zero.String())
}

// =============================================================================
// TimeOfDay Tests
// =============================================================================

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"08:00", TimeOfDay{8, 0}, false},
		{"23:59", TimeOfDay{23, 59}, false},
		{"05:12 (EET)", TimeOfDay{5, 12}, false},
		{"24:00", TimeOfDay{}, true},
		{"12:60", TimeOfDay{}, true},
		{"noon", TimeOfDay{}, true},
		{"7", TimeOfDay{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDayString(t *testing.T) {
	tod := TimeOfDay{Hour: 7, Minute: 5}
	assert.Equal(t, "07:05", tod.String())
	assert.Equal(t, 425, tod.Minutes())
	assert.True(t, tod.Valid())
	assert.False(t, TimeOfDay{Hour: -1}.Valid())
	assert.Panics(t, func() { MustTimeOfDay("25:00") })
}

// =============================================================================
// Reminder and Event Tests
// =============================================================================

func TestOccurrenceKey(t *testing.T) {
	cairo, err := time.LoadLocation("Africa/Cairo")
	require.NoError(t, err)

	utc := time.Date(2025, time.January, 15, 3, 12, 0, 0, time.UTC)
	local := utc.In(cairo).Add(400 * time.Millisecond)

	assert.Equal(t, "abc@2025-01-15T03:12:00Z", OccurrenceKey("abc", utc))
	assert.Equal(t, OccurrenceKey("abc", utc), OccurrenceKey("abc", local))
	assert.NotEqual(t, OccurrenceKey("abc", utc), OccurrenceKey("abd", utc))
}

func TestNewDueEventSnapshots(t *testing.T) {
	r := NewReminder("Stretch", Schedule{Mode: ModeDaily})
	r.ID = "r1"
	r.Sound = Sound{ID: "bell", Volume: 3}

	fired := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	e := NewDueEvent(r, fired)
	r.Title = "Changed"

	assert.Equal(t, "Stretch", e.Title)
	assert.Equal(t, 1.0, e.Sound.Volume)
	assert.Equal(t, OccurrenceKey("r1", fired), e.Key())
}

func TestSoundClamped(t *testing.T) {
	assert.Equal(t, 0.0, Sound{Volume: -0.5}.Clamped().Volume)
	assert.Equal(t, 1.0, Sound{Volume: 1.5}.Clamped().Volume)
	assert.Equal(t, 0.4, Sound{Volume: 0.4}.Clamped().Volume)
}

func TestNewReminderDefaults(t *testing.T) {
	r := NewReminder("Meds", Schedule{Mode: ModeOnce})
	assert.True(t, r.Active)
	assert.True(t, r.Schedulable())
	assert.True(t, r.IsOnce())
	assert.Equal(t, DefaultSound, r.Sound)
	assert.Equal(t, PriorityNormal, r.Priority)

	r.Completed = true
	assert.False(t, r.Schedulable())
}

func TestReminderKey(t *testing.T) {
	r := &Reminder{}
	r.SetKey("reminder:0f8c2a1e-aaaa")
	assert.Equal(t, "0f8c2a1e-aaaa", r.ID)
	assert.Equal(t, "reminder:0f8c2a1e-aaaa", r.GetKey())
	assert.Equal(t, "0f8c2a", r.ShortID())
}

// =============================================================================
// Schedule Tests
// =============================================================================

func TestParseWeekday(t *testing.T) {
	w, ok := ParseWeekday("monday")
	assert.True(t, ok)
	assert.Equal(t, Monday, w)

	w, ok = ParseWeekday("fr")
	assert.True(t, ok)
	assert.Equal(t, Friday, w)

	_, ok = ParseWeekday("x")
	assert.False(t, ok)
	_, ok = ParseWeekday("zz")
	assert.False(t, ok)

	assert.Equal(t, Sunday, WeekdayOf(time.Sunday))
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode(" Weekly ")
	assert.True(t, ok)
	assert.Equal(t, ModeWeekly, m)

	_, ok = ParseMode("yearly")
	assert.False(t, ok)
}

func TestIntervalPeriod(t *testing.T) {
	assert.Equal(t, 90*time.Minute, Interval{Every: 90, Unit: UnitMinute}.Period())
	assert.Equal(t, 48*time.Hour, Interval{Every: 2, Unit: UnitDay}.Period())
	assert.Zero(t, Interval{Every: 3, Unit: "fortnight"}.Period())
}

func TestIntervalUnitMaxEvery(t *testing.T) {
	assert.Equal(t, 876000, UnitHour.MaxEvery())
	assert.Equal(t, 36500, UnitDay.MaxEvery())
	assert.Equal(t, 52560000, UnitMinute.MaxEvery())
	assert.Zero(t, IntervalUnit("fortnight").MaxEvery())
	assert.Equal(t, MaxIntervalPeriod, Interval{Every: UnitMinute.MaxEvery(), Unit: UnitMinute}.Period())
}

func TestParsePrayerName(t *testing.T) {
	p, ok := ParsePrayerName("maghrib")
	assert.True(t, ok)
	assert.Equal(t, Maghrib, p)

	_, ok = ParsePrayerName("sunrise")
	assert.False(t, ok)
}

func TestPrayerSpecOffset(t *testing.T) {
	before := PrayerSpec{Name: Fajr, OffsetMinutes: 10, Direction: Before}
	after := PrayerSpec{Name: Fajr, OffsetMinutes: 10, Direction: After}
	assert.Equal(t, -10*time.Minute, before.Offset())
	assert.Equal(t, 10*time.Minute, after.Offset())
}

func TestScheduleClone(t *testing.T) {
	end := Date{Year: 2025, Month: time.December, Day: 31}
	orig := Schedule{
		Mode:       ModeWeekly,
		Times:      []TimeOfDay{{8, 0}},
		DaysOfWeek: []Weekday{Monday},
		Prayer:     &PrayerSpec{Name: Asr},
		Interval:   &Interval{Every: 1, Unit: UnitHour},
		EndDate:    &end,
	}

	c := orig.Clone()
	c.Times[0] = TimeOfDay{9, 0}
	c.DaysOfWeek[0] = Tuesday
	c.Prayer.Name = Isha
	c.Interval.Every = 5
	c.EndDate.Day = 1

	assert.Equal(t, TimeOfDay{8, 0}, orig.Times[0])
	assert.Equal(t, Monday, orig.DaysOfWeek[0])
	assert.Equal(t, Asr, orig.Prayer.Name)
	assert.Equal(t, 1, orig.Interval.Every)
	assert.Equal(t, 31, orig.EndDate.Day)
}

func TestScheduleLocation(t *testing.T) {
	assert.Equal(t, time.UTC, Schedule{}.Location())
	assert.Equal(t, time.UTC, Schedule{Timezone: "Mars/Olympus"}.Location())
	assert.Equal(t, "Asia/Tokyo", Schedule{Timezone: "Asia/Tokyo"}.Location().String())
}

func TestScheduleHasWeekday(t *testing.T) {
	s := Schedule{DaysOfWeek: []Weekday{Monday, Friday}}
	assert.True(t, s.HasWeekday(time.Friday))
	assert.False(t, s.HasWeekday(time.Sunday))
}

// =============================================================================
// Prayer Table Tests
// =============================================================================

func TestPrayerTableKey(t *testing.T) {
	d := Date{Year: 2025, Month: time.January, Day: 15}
	key := PrayerTableKey(Location{City: " Cairo ", Country: "Egypt"}, d)
	assert.Equal(t, "prayer:Cairo|Egypt|2025-01-15", key)

	table := &PrayerDayTable{City: "Cairo", Country: "Egypt", Date: d}
	assert.Equal(t, key, table.GetKey())
}

func TestPrayerTableComplete(t *testing.T) {
	table := &PrayerDayTable{Times: map[PrayerName]TimeOfDay{
		Fajr: {5, 12}, Dhuhr: {11, 58}, Asr: {14, 50}, Maghrib: {17, 20},
	}}
	assert.False(t, table.Complete())

	table.Times[Isha] = TimeOfDay{18, 40}
	assert.True(t, table.Complete())

	tod, ok := table.Lookup(Asr)
	assert.True(t, ok)
	assert.Equal(t, TimeOfDay{14, 50}, tod)
}

func TestLocationString(t *testing.T) {
	assert.Equal(t, "Cairo, Egypt", Location{City: "Cairo", Country: "Egypt"}.String())
	assert.Equal(t, "Cairo", Location{City: "Cairo"}.String())
	assert.True(t, Location{City: "  "}.IsZero())
}
