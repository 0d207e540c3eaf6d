package storage

import (
	"github.com/manav03panchal/chime/internal/model"
)

// PrayerTableRepo persists fetched prayer day tables.
// Tables for past dates never change, so they are kept indefinitely.
type PrayerTableRepo struct {
	db *DB
}

// NewPrayerTableRepo creates a new prayer table repository.
func NewPrayerTableRepo(db *DB) *PrayerTableRepo {
	return &PrayerTableRepo{db: db}
}

// Get returns the stored table for a location and date.
// The boolean is false when none is stored.
func (r *PrayerTableRepo) Get(loc model.Location, date model.Date) (*model.PrayerDayTable, bool, error) {
	table := &model.PrayerDayTable{}
	if err := r.db.Get(model.PrayerTableKey(loc, date), table); err != nil {
		if IsErrKeyNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return table, true, nil
}

// Put stores a table under its location and date key.
func (r *PrayerTableRepo) Put(table *model.PrayerDayTable) error {
	return r.db.Set(table)
}

// List returns every stored table.
func (r *PrayerTableRepo) List() ([]*model.PrayerDayTable, error) {
	return GetAllByPrefix(r.db, model.PrefixPrayerTable+":", func() *model.PrayerDayTable {
		return &model.PrayerDayTable{}
	})
}
