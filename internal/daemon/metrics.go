package daemon

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/manav03panchal/chime/internal/errors"
)

// Metrics tracks daemon operational counters.
type Metrics struct {
	eventsPublished atomic.Int64
	eventsDelivered atomic.Int64
	eventsDropped   atomic.Int64
	actions         atomic.Int64
	actionErrors    atomic.Int64

	mu           sync.RWMutex
	lastEventAt  time.Time
	lastError    string
	lastErrorAt  time.Time
	errorsByKind map[string]int64
	actionsByOp  map[string]int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	EventsPublished int64            `json:"events_published_total"`
	EventsDelivered int64            `json:"events_delivered_total"`
	EventsDropped   int64            `json:"events_dropped_total"`
	Actions         int64            `json:"actions_total"`
	ActionErrors    int64            `json:"action_errors_total"`
	ActionsByKind   map[string]int64 `json:"actions_by_kind,omitempty"`
	ErrorsByKind    map[string]int64 `json:"errors_by_category,omitempty"`
	LastEventAt     *time.Time       `json:"last_event_at,omitempty"`
	LastError       string           `json:"last_error,omitempty"`
	LastErrorAt     *time.Time       `json:"last_error_at,omitempty"`
}

// NewMetrics creates zeroed metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		errorsByKind: make(map[string]int64),
		actionsByOp:  make(map[string]int64),
	}
}

// RecordPublish counts one due event handed to sessions sessions. An event
// no session received counts as dropped.
func (m *Metrics) RecordPublish(sessions int) {
	m.eventsPublished.Add(1)
	if sessions == 0 {
		m.eventsDropped.Add(1)
	} else {
		m.eventsDelivered.Add(int64(sessions))
	}

	m.mu.Lock()
	m.lastEventAt = time.Now()
	m.mu.Unlock()
}

// RecordAction counts one client action and its outcome.
func (m *Metrics) RecordAction(kind string, err error) {
	m.actions.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.actionsByOp[kind]++
	if err != nil {
		m.actionErrors.Add(1)
		m.errorsByKind[errors.Classify(err).String()]++
		m.lastError = err.Error()
		m.lastErrorAt = time.Now()
	}
}

// EventsPublished returns the number of due events published.
func (m *Metrics) EventsPublished() int64 { return m.eventsPublished.Load() }

// EventsDropped returns the number of due events no session received.
func (m *Metrics) EventsDropped() int64 { return m.eventsDropped.Load() }

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		EventsPublished: m.eventsPublished.Load(),
		EventsDelivered: m.eventsDelivered.Load(),
		EventsDropped:   m.eventsDropped.Load(),
		Actions:         m.actions.Load(),
		ActionErrors:    m.actionErrors.Load(),
		ActionsByKind:   copyCounts(m.actionsByOp),
		ErrorsByKind:    copyCounts(m.errorsByKind),
		LastError:       m.lastError,
	}
	if !m.lastEventAt.IsZero() {
		t := m.lastEventAt
		snap.LastEventAt = &t
	}
	if !m.lastErrorAt.IsZero() {
		t := m.lastErrorAt
		snap.LastErrorAt = &t
	}
	return snap
}

// JSON returns the snapshot as JSON.
func (m *Metrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m.Snapshot(), "", "  ")
}

func copyCounts(in map[string]int64) map[string]int64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
