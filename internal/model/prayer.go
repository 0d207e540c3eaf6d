package model

import (
	"strings"
	"time"
)

// Location identifies where prayer times are computed.
// City and country are free text as typed by the user.
type Location struct {
	City    string `json:"city" yaml:"city"`
	Country string `json:"country" yaml:"country"`
}

// IsZero reports whether no city was given.
func (l Location) IsZero() bool {
	return strings.TrimSpace(l.City) == ""
}

// String returns "City, Country".
func (l Location) String() string {
	if l.Country == "" {
		return l.City
	}
	return l.City + ", " + l.Country
}

// PrayerDayTable holds the five prayer times of one calendar day at one location.
// Tables are never mutated after creation.
type PrayerDayTable struct {
	Key       string                   `json:"key"`
	City      string                   `json:"city"`
	Country   string                   `json:"country"`
	Date      Date                     `json:"date"`
	Times     map[PrayerName]TimeOfDay `json:"times"`
	FetchedAt time.Time                `json:"fetched_at"`
}

// SetKey sets the database key for this table.
func (t *PrayerDayTable) SetKey(key string) {
	t.Key = key
}

// GetKey returns the database key for this table.
func (t *PrayerDayTable) GetKey() string {
	if t.Key == "" {
		t.Key = PrayerTableKey(Location{City: t.City, Country: t.Country}, t.Date)
	}
	return t.Key
}

// Lookup returns the wall-clock time of the named prayer.
func (t *PrayerDayTable) Lookup(name PrayerName) (TimeOfDay, bool) {
	tod, ok := t.Times[name]
	return tod, ok
}

// Complete reports whether all five canonical prayers are present.
func (t *PrayerDayTable) Complete() bool {
	for _, p := range PrayerNames() {
		if _, ok := t.Times[p]; !ok {
			return false
		}
	}
	return true
}

// PrayerTableKey builds the cache and database key for a (city, country, date).
func PrayerTableKey(loc Location, d Date) string {
	return PrefixPrayerTable + ":" + strings.TrimSpace(loc.City) + "|" + strings.TrimSpace(loc.Country) + "|" + d.String()
}
