// Package runtime assembles the services a chime command runs against.
package runtime

import (
	"os"

	"github.com/jmhodges/clock"

	"github.com/manav03panchal/chime/internal/config"
	"github.com/manav03panchal/chime/internal/lifecycle"
	"github.com/manav03panchal/chime/internal/model"
	"github.com/manav03panchal/chime/internal/output"
	"github.com/manav03panchal/chime/internal/planner"
	"github.com/manav03panchal/chime/internal/prayer"
	"github.com/manav03panchal/chime/internal/schedule"
	"github.com/manav03panchal/chime/internal/storage"
)

// EnvDatabase overrides the database directory. ":memory:" selects an
// in-memory database.
const EnvDatabase = "CHIME_DATABASE"

// Context holds the application runtime context.
type Context struct {
	Config    *config.RuntimeConfig
	DB        *storage.DB
	Formatter *output.Formatter
	Clock     clock.Clock

	// Repositories, nil when the context was opened without a database.
	Reminders    *storage.ReminderRepo
	PrayerTables *storage.PrayerTableRepo

	Normalizer *schedule.Normalizer
	Resolver   *prayer.Resolver
	Planner    *planner.Planner
	Tracker    *lifecycle.Tracker

	// Debug mode
	Debug bool
}

// Options configures the runtime context.
type Options struct {
	DBPath     string
	InMemory   bool
	ConfigPath string
	Format     output.Format
	ColorMode  output.ColorMode
	Debug      bool
	// NoDatabase skips opening storage. Commands that only talk to the
	// server use it so they never contend for the database lock.
	NoDatabase bool
	Clock      clock.Clock
}

// DefaultOptions returns default runtime options.
func DefaultOptions() Options {
	return Options{
		ConfigPath: config.DefaultPath(),
		Format:     output.FormatCLI,
		ColorMode:  output.ColorAuto,
	}
}

// New creates a new runtime context.
func New(opts Options) (*Context, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	formatter := output.NewFormatter()
	formatter.Format = opts.Format
	formatter.ColorMode = opts.ColorMode

	c := &Context{
		Config:    cfg,
		Formatter: formatter,
		Clock:     opts.Clock,
		Debug:     opts.Debug,
	}

	var store prayer.Store
	if !opts.NoDatabase {
		dbOpts := databaseOptions(opts, cfg)
		db, err := storage.Open(dbOpts)
		if err != nil {
			return nil, err
		}
		c.DB = db
		c.Reminders = storage.NewReminderRepo(db).WithClock(opts.Clock)
		c.PrayerTables = storage.NewPrayerTableRepo(db)
		c.Tracker = lifecycle.NewTracker(c.Reminders, opts.Clock).WithTolerance(cfg.Schedule.ExclusionTolerance)
		store = c.PrayerTables
	}

	home := model.Location{City: cfg.Prayer.City, Country: cfg.Prayer.Country}
	c.Normalizer = schedule.NewNormalizer(cfg.Schedule.DefaultTimezone, home)
	c.Normalizer.Clock = opts.Clock

	provider := prayer.NewAladhanProvider(cfg.Prayer.BaseURL, cfg.Prayer.Method, cfg.Prayer.Timeout, cfg.Prayer.RatePerSec)
	resolver, err := prayer.NewResolver(provider, prayer.Options{
		Store:        store,
		CacheEntries: cfg.Prayer.CacheEntries,
		Timeout:      cfg.Prayer.Timeout,
		Clock:        opts.Clock,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Resolver = resolver
	c.Planner = planner.New(resolver, cfg.Schedule.ExclusionTolerance)

	return c, nil
}

// databaseOptions picks the database location: the environment wins over
// flags, flags over the config file, and the XDG default comes last.
func databaseOptions(opts Options, cfg *config.RuntimeConfig) storage.Options {
	if env := os.Getenv(EnvDatabase); env != "" {
		if env == ":memory:" {
			return storage.Options{InMemory: true}
		}
		return storage.Options{Path: env}
	}
	if opts.InMemory {
		return storage.Options{InMemory: true}
	}
	path := opts.DBPath
	if path == "" {
		path = cfg.Storage.Path
	}
	if path == "" {
		path = storage.DefaultPath()
	}
	return storage.Options{Path: path}
}

// Close closes the runtime context.
func (c *Context) Close() error {
	if c.Resolver != nil {
		c.Resolver.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// CLIFormatter returns a CLI formatter.
func (c *Context) CLIFormatter() *output.CLIFormatter {
	return output.NewCLIFormatter(c.Formatter)
}

// JSONFormatter returns a JSON formatter.
func (c *Context) JSONFormatter() *output.JSONFormatter {
	return output.NewJSONFormatter(c.Formatter)
}

// IsJSON returns true if output format is JSON.
func (c *Context) IsJSON() bool {
	return c.Formatter.Format == output.FormatJSON
}

// Debugf prints debug output if debug mode is enabled.
func (c *Context) Debugf(format string, args ...any) {
	if c.Debug {
		c.Formatter.Printf("[DEBUG] "+format+"\n", args...)
	}
}
