package storage

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jmhodges/clock"

	"github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/model"
)

// ReminderRepo provides operations for Reminder entities.
type ReminderRepo struct {
	db  *DB
	clk clock.Clock
}

// NewReminderRepo creates a new reminder repository.
func NewReminderRepo(db *DB) *ReminderRepo {
	return &ReminderRepo{db: db, clk: clock.New()}
}

// WithClock replaces the clock used for timestamps.
func (r *ReminderRepo) WithClock(clk clock.Clock) *ReminderRepo {
	r.clk = clk
	return r
}

// Create stores a new reminder, assigning an id if it has none.
func (r *ReminderRepo) Create(reminder *model.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}
	now := r.clk.Now()
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = now
	}
	reminder.UpdatedAt = now
	return r.db.Set(reminder)
}

// Get retrieves a reminder by id.
func (r *ReminderRepo) Get(id string) (*model.Reminder, error) {
	reminder := &model.Reminder{}
	if err := r.db.Get(model.GenerateReminderKey(id), reminder); err != nil {
		return nil, notFound(err)
	}
	return reminder, nil
}

// Resolve retrieves a reminder by full id or unique id prefix.
func (r *ReminderRepo) Resolve(idOrPrefix string) (*model.Reminder, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, errors.ErrReminderNotFound
	}
	if rem, err := r.Get(idOrPrefix); err == nil {
		return rem, nil
	}

	reminders, err := r.List()
	if err != nil {
		return nil, err
	}

	var matches []*model.Reminder
	for _, rem := range reminders {
		if strings.HasPrefix(rem.ID, idOrPrefix) {
			matches = append(matches, rem)
		}
	}

	switch len(matches) {
	case 0:
		return nil, errors.ErrReminderNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, errors.ErrAmbiguousID
	}
}

// List retrieves all reminders.
func (r *ReminderRepo) List() ([]*model.Reminder, error) {
	return GetAllByPrefix(r.db, model.PrefixReminder+":", func() *model.Reminder {
		return &model.Reminder{}
	})
}

// ListSchedulable retrieves reminders that are active and not completed.
func (r *ReminderRepo) ListSchedulable() ([]*model.Reminder, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}

	var result []*model.Reminder
	for _, rem := range all {
		if rem.Schedulable() {
			result = append(result, rem)
		}
	}
	return result, nil
}

// Update replaces a stored reminder.
func (r *ReminderRepo) Update(reminder *model.Reminder) error {
	exists, err := r.db.Exists(reminder.GetKey())
	if err != nil {
		return err
	}
	if !exists {
		return errors.ErrReminderNotFound
	}
	reminder.UpdatedAt = r.clk.Now()
	return r.db.Set(reminder)
}

// Modify applies fn to the stored reminder atomically and returns the result.
func (r *ReminderRepo) Modify(id string, fn func(*model.Reminder) error) (*model.Reminder, error) {
	reminder := &model.Reminder{}
	err := r.db.Update(model.GenerateReminderKey(id), reminder, func() error {
		if err := fn(reminder); err != nil {
			return err
		}
		reminder.UpdatedAt = r.clk.Now()
		return nil
	})
	if err != nil {
		return nil, notFound(err)
	}
	return reminder, nil
}

// UpdateSchedule replaces only the schedule of a reminder.
func (r *ReminderRepo) UpdateSchedule(id string, schedule model.Schedule) (*model.Reminder, error) {
	return r.Modify(id, func(rem *model.Reminder) error {
		rem.Schedule = schedule
		return nil
	})
}

// SetActive changes only the active flag of a reminder.
func (r *ReminderRepo) SetActive(id string, active bool) (*model.Reminder, error) {
	return r.Modify(id, func(rem *model.Reminder) error {
		rem.Active = active
		return nil
	})
}

// Delete removes a reminder by id.
func (r *ReminderRepo) Delete(id string) error {
	exists, err := r.db.Exists(model.GenerateReminderKey(id))
	if err != nil {
		return err
	}
	if !exists {
		return errors.ErrReminderNotFound
	}
	return r.db.Delete(model.GenerateReminderKey(id))
}

func notFound(err error) error {
	if IsErrKeyNotFound(err) {
		return errors.ErrReminderNotFound
	}
	return err
}
