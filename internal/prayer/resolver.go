package prayer

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/jmhodges/clock"
	"golang.org/x/sync/singleflight"

	"github.com/manav03panchal/chime/internal/logging"
	"github.com/manav03panchal/chime/internal/model"
)

// DefaultTimeout bounds one provider fetch.
const DefaultTimeout = 8 * time.Second

// Store persists fetched day tables across restarts.
type Store interface {
	Get(loc model.Location, date model.Date) (*model.PrayerDayTable, bool, error)
	Put(table *model.PrayerDayTable) error
}

// Options configures a Resolver.
type Options struct {
	// Store is optional.
	Store Store
	// CacheEntries bounds the in-memory cache. Default 1024.
	CacheEntries int64
	// Timeout bounds a provider fetch. Default DefaultTimeout.
	Timeout time.Duration
	// Clock defaults to the real clock.
	Clock clock.Clock
}

type entry struct {
	table   *model.PrayerDayTable
	expires time.Time // zero never expires
}

// Resolver turns (prayer, date, location) into instants. Day tables are
// cached whole so one fetch serves every prayer and offset of that day.
// Concurrent misses for the same key share one provider call.
type Resolver struct {
	provider Provider
	store    Store
	cache    *ristretto.Cache[string, entry]
	group    singleflight.Group
	clk      clock.Clock
	timeout  time.Duration
	log      *slog.Logger
}

// NewResolver creates a resolver backed by provider.
func NewResolver(provider Provider, opts Options) (*Resolver, error) {
	if opts.CacheEntries <= 0 {
		opts.CacheEntries = 1024
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, entry]{
		NumCounters: opts.CacheEntries * 10,
		MaxCost:     opts.CacheEntries,
		BufferItems: 64,
		// Every table costs 1 so MaxCost counts entries.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	return &Resolver{
		provider: provider,
		store:    opts.Store,
		cache:    cache,
		clk:      opts.Clock,
		timeout:  opts.Timeout,
		log:      logging.Component("prayer"),
	}, nil
}

// Close releases the cache.
func (r *Resolver) Close() {
	r.cache.Close()
}

// Resolve returns the instant of spec's prayer on date in zone, shifted by
// the spec's offset. It reports false when the table cannot be obtained.
func (r *Resolver) Resolve(ctx context.Context, spec model.PrayerSpec, date model.Date, zone *time.Location) (time.Time, bool) {
	t, ok := r.Lookup(ctx, spec.Name, date, spec.Location(), zone)
	if !ok {
		return time.Time{}, false
	}
	return t.Add(spec.Offset()), true
}

// Lookup returns the unshifted instant of the named prayer.
func (r *Resolver) Lookup(ctx context.Context, name model.PrayerName, date model.Date, loc model.Location, zone *time.Location) (time.Time, bool) {
	table, ok := r.Table(ctx, loc, date, zone)
	if !ok {
		return time.Time{}, false
	}
	tod, ok := table.Lookup(name)
	if !ok {
		return time.Time{}, false
	}
	return date.At(tod, zone), true
}

// Table returns the day table for loc and date. Provider failures are
// logged and reported as false.
func (r *Resolver) Table(ctx context.Context, loc model.Location, date model.Date, zone *time.Location) (*model.PrayerDayTable, bool) {
	if zone == nil {
		zone = time.UTC
	}
	key := model.PrayerTableKey(loc, date)
	today := model.DateOf(r.clk.Now().In(zone))

	if e, ok := r.cache.Get(key); ok && r.live(e) {
		return e.table, true
	}

	ch := r.group.DoChan(key, func() (any, error) {
		return r.load(ctx, key, loc, date, today, zone)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			r.log.Warn("prayer times unavailable",
				logging.KeyCity, loc.City,
				logging.KeyCountry, loc.Country,
				logging.KeyDate, date.String(),
				logging.KeyError, res.Err)
			return nil, false
		}
		return res.Val.(*model.PrayerDayTable), true
	case <-ctx.Done():
		return nil, false
	}
}

func (r *Resolver) load(ctx context.Context, key string, loc model.Location, date, today model.Date, zone *time.Location) (*model.PrayerDayTable, error) {
	if r.store != nil {
		table, ok, err := r.store.Get(loc, date)
		if err != nil {
			r.log.Warn("prayer table store read failed", logging.KeyDate, date.String(), logging.KeyError, err)
		} else if ok && table.Complete() && fresh(table, today, zone) {
			r.remember(key, table, today, zone)
			return table, nil
		}
	}

	// The fetch outlives a cancelled caller so that coalesced waiters still
	// get a result, but never the resolver timeout.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	table, err := r.provider.DayTable(fetchCtx, loc, date)
	if err != nil {
		return nil, err
	}
	table.Key = key
	table.FetchedAt = r.clk.Now()

	if r.store != nil {
		if err := r.store.Put(table); err != nil {
			r.log.Warn("prayer table store write failed", logging.KeyDate, date.String(), logging.KeyError, err)
		}
	}
	r.remember(key, table, today, zone)
	return table, nil
}

func (r *Resolver) remember(key string, table *model.PrayerDayTable, today model.Date, zone *time.Location) {
	e := entry{table: table}
	var ttl time.Duration
	if !table.Date.Before(today) {
		e.expires = today.AddDays(1).In(zone)
		ttl = e.expires.Sub(r.clk.Now())
		if ttl <= 0 {
			return
		}
	}
	r.cache.SetWithTTL(key, e, 1, ttl)
	r.cache.Wait()
}

func (r *Resolver) live(e entry) bool {
	return e.expires.IsZero() || r.clk.Now().Before(e.expires)
}

// fresh reports whether a stored table may still be served. Past dates never
// change. Tables for today or later are valid for the day they were fetched.
func fresh(table *model.PrayerDayTable, today model.Date, zone *time.Location) bool {
	if table.Date.Before(today) {
		return true
	}
	return model.DateOf(table.FetchedAt.In(zone)) == today
}
