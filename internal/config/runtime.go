// Package config provides centralized configuration for chime runtime values.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RuntimeConfig holds all runtime configuration values.
type RuntimeConfig struct {
	// Schedule configuration
	Schedule ScheduleConfig `yaml:"schedule"`

	// Prayer-time resolution configuration
	Prayer PrayerConfig `yaml:"prayer"`

	// Delivery channel configuration
	Delivery DeliveryConfig `yaml:"delivery"`

	// Alert presenter configuration
	Alert AlertConfig `yaml:"alert"`

	// Scheduler configuration
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage"`
}

// ScheduleConfig holds schedule normalization and matching configuration.
type ScheduleConfig struct {
	// DefaultTimezone is the IANA zone given to schedules that omit one.
	// Default: "UTC"
	DefaultTimezone string `yaml:"default_timezone"`

	// ExclusionTolerance is how close an occurrence must be to an exdate
	// to be considered the same instant.
	// Default: 60s
	ExclusionTolerance time.Duration `yaml:"exclusion_tolerance"`
}

// PrayerConfig holds prayer-time provider and cache configuration.
type PrayerConfig struct {
	// BaseURL is the timings provider endpoint.
	// Default: "https://api.aladhan.com/v1"
	BaseURL string `yaml:"base_url"`

	// Method is the provider's calculation method id.
	// Default: 2 (ISNA)
	Method int `yaml:"method"`

	// Timeout bounds a single provider request.
	// Default: 8s
	Timeout time.Duration `yaml:"timeout"`

	// RatePerSec limits provider requests.
	// Default: 2
	RatePerSec int `yaml:"rate_per_sec"`

	// City and Country are used when a prayer schedule names no location.
	City    string `yaml:"city"`
	Country string `yaml:"country"`

	// CacheEntries is the maximum number of day tables kept in memory.
	// Default: 1024
	CacheEntries int64 `yaml:"cache_entries"`
}

// DeliveryConfig holds push channel configuration for both ends.
type DeliveryConfig struct {
	// Listen is the hub listen address.
	// Default: "127.0.0.1:7788"
	Listen string `yaml:"listen"`

	// ServerURL is the hub endpoint dialed by clients.
	// Default: "ws://127.0.0.1:7788/v1/events"
	ServerURL string `yaml:"server_url"`

	// Token is the session credential presented by the client.
	Token string `yaml:"token"`

	// Tokens maps accepted credentials to session identities on the hub.
	Tokens map[string]string `yaml:"tokens"`

	// MinBackoff and MaxBackoff bound the reconnect backoff.
	// Default: 500ms, 30s
	MinBackoff time.Duration `yaml:"min_backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// DialTimeout bounds a single connection attempt.
	// Default: 10s
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// SendBuffer is the per-session outbound queue length.
	// Default: 32
	SendBuffer int `yaml:"send_buffer"`

	// SendRatePerSec limits events pushed to one session.
	// Default: 20
	SendRatePerSec int `yaml:"send_rate_per_sec"`
}

// AlertConfig holds alert presenter configuration.
type AlertConfig struct {
	// SilenceAfter auto-dismisses an unacknowledged alert. Zero rings until
	// acknowledged.
	// Default: 5s
	SilenceAfter time.Duration `yaml:"silence_after"`

	// DuplicateWindow suppresses re-delivery of the same occurrence.
	// Default: 60s
	DuplicateWindow time.Duration `yaml:"duplicate_window"`

	// DeepLinkBase is prefixed to reminder deep links.
	// Default: "chime://reminders"
	DeepLinkBase string `yaml:"deep_link_base"`

	// BellInterval is the loop period of the terminal bell cue.
	// Default: 1s
	BellInterval time.Duration `yaml:"bell_interval"`

	// SnoozeFor is the snooze length offered by the listen view.
	// Default: 10m
	SnoozeFor time.Duration `yaml:"snooze_for"`

	// SystemNotifications enables desktop notifications.
	// Default: true
	SystemNotifications bool `yaml:"system_notifications"`

	// Webhooks receive a copy of every system notification.
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig is one notification webhook.
type WebhookConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	// Type selects the payload format: generic, discord or slack.
	Type string `yaml:"type"`
	// Template is an optional text/template for generic payloads.
	Template string `yaml:"template"`
}

// SchedulerConfig holds scheduler-related configuration.
type SchedulerConfig struct {
	// TickSpec is the cron spec (with seconds) of the due check.
	// Default: "0 * * * * *"
	TickSpec string `yaml:"tick_spec"`

	// SleepThreshold is the time gap that indicates the system was sleeping.
	// If elapsed time since last check exceeds this, stale checks are skipped.
	// Default: 1h
	SleepThreshold time.Duration `yaml:"sleep_threshold"`
}

// StorageConfig holds storage-related configuration.
type StorageConfig struct {
	// Path is the database directory. Empty uses the XDG data directory.
	Path string `yaml:"path"`
}

// DefaultRuntimeConfig returns the default runtime configuration.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		Schedule: ScheduleConfig{
			DefaultTimezone:    "UTC",
			ExclusionTolerance: 60 * time.Second,
		},
		Prayer: PrayerConfig{
			BaseURL:      "https://api.aladhan.com/v1",
			Method:       2,
			Timeout:      8 * time.Second,
			RatePerSec:   2,
			CacheEntries: 1024,
		},
		Delivery: DeliveryConfig{
			Listen:         "127.0.0.1:7788",
			ServerURL:      "ws://127.0.0.1:7788/v1/events",
			MinBackoff:     500 * time.Millisecond,
			MaxBackoff:     30 * time.Second,
			DialTimeout:    10 * time.Second,
			SendBuffer:     32,
			SendRatePerSec: 20,
		},
		Alert: AlertConfig{
			SilenceAfter:        5 * time.Second,
			DuplicateWindow:     60 * time.Second,
			DeepLinkBase:        "chime://reminders",
			BellInterval:        time.Second,
			SnoozeFor:           10 * time.Minute,
			SystemNotifications: true,
		},
		Scheduler: SchedulerConfig{
			TickSpec:       "0 * * * * *",
			SleepThreshold: 1 * time.Hour,
		},
	}
}

// Global holds the global runtime configuration instance.
// It is initialized with defaults and can be overridden via environment variables.
var Global = initGlobal()

// initGlobal initializes the global config with defaults and environment overrides.
func initGlobal() *RuntimeConfig {
	cfg := DefaultRuntimeConfig()
	cfg.loadFromEnv()
	return cfg
}

// loadFromEnv loads configuration overrides from environment variables.
func (c *RuntimeConfig) loadFromEnv() {
	// Schedule configuration
	if v := os.Getenv("CHIME_TIMEZONE"); v != "" {
		if _, err := time.LoadLocation(v); err == nil {
			c.Schedule.DefaultTimezone = v
		}
	}
	envDuration("CHIME_EXCLUSION_TOLERANCE", &c.Schedule.ExclusionTolerance)

	// Prayer configuration
	if v := os.Getenv("CHIME_PRAYER_URL"); v != "" {
		c.Prayer.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("CHIME_PRAYER_METHOD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Prayer.Method = n
		}
	}
	envDuration("CHIME_PRAYER_TIMEOUT", &c.Prayer.Timeout)
	if v := os.Getenv("CHIME_CITY"); v != "" {
		c.Prayer.City = v
	}
	if v := os.Getenv("CHIME_COUNTRY"); v != "" {
		c.Prayer.Country = v
	}

	// Delivery configuration
	if v := os.Getenv("CHIME_LISTEN"); v != "" {
		c.Delivery.Listen = v
	}
	if v := os.Getenv("CHIME_SERVER_URL"); v != "" {
		c.Delivery.ServerURL = v
	}
	if v := os.Getenv("CHIME_TOKEN"); v != "" {
		c.Delivery.Token = v
	}
	envDuration("CHIME_MIN_BACKOFF", &c.Delivery.MinBackoff)
	envDuration("CHIME_MAX_BACKOFF", &c.Delivery.MaxBackoff)

	// Alert configuration
	envDuration("CHIME_SILENCE_AFTER", &c.Alert.SilenceAfter)
	envDuration("CHIME_DUPLICATE_WINDOW", &c.Alert.DuplicateWindow)
	envDuration("CHIME_SNOOZE_FOR", &c.Alert.SnoozeFor)
	if v := os.Getenv("CHIME_SYSTEM_NOTIFICATIONS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Alert.SystemNotifications = b
		}
	}

	if v := os.Getenv("CHIME_WEBHOOK_URL"); v != "" && !c.hasWebhook(v) {
		c.Alert.Webhooks = append(c.Alert.Webhooks, WebhookConfig{Name: "env", URL: v, Type: "generic"})
	}

	// Scheduler configuration
	envDuration("CHIME_SLEEP_THRESHOLD", &c.Scheduler.SleepThreshold)

	// Storage configuration
	if v := os.Getenv("CHIME_DATABASE"); v != "" {
		c.Storage.Path = v
	}
}

func (c *RuntimeConfig) hasWebhook(url string) bool {
	for _, w := range c.Alert.Webhooks {
		if w.URL == url {
			return true
		}
	}
	return false
}

func envDuration(name string, dst *time.Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		*dst = d
	}
}

// ReloadFromEnv reloads configuration from environment variables.
// This is useful for testing or when environment variables change.
func (c *RuntimeConfig) ReloadFromEnv() {
	c.loadFromEnv()
}

// Reset resets the configuration to defaults.
// This is primarily useful for testing.
func (c *RuntimeConfig) Reset() {
	defaults := DefaultRuntimeConfig()
	*c = *defaults
}
