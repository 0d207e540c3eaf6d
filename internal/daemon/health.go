package daemon

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/jmhodges/clock"
)

// Health states.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status        string          `json:"status"`
	Version       string          `json:"version,omitempty"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Sessions      int             `json:"sessions"`
	Goroutines    int             `json:"goroutines"`
	MemoryMB      float64         `json:"memory_mb"`
	Checks        []CheckResult   `json:"checks,omitempty"`
	Metrics       MetricsSnapshot `json:"metrics"`
}

// CheckResult represents the result of a single health check.
type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HealthChecker reports daemon health.
type HealthChecker struct {
	mu        sync.RWMutex
	clk       clock.Clock
	startTime time.Time
	version   string
	sessions  func() int
	metrics   *Metrics
	checks    map[string]func() error
}

// NewHealthChecker creates a health checker started now.
func NewHealthChecker(version string, clk clock.Clock) *HealthChecker {
	if clk == nil {
		clk = clock.New()
	}
	return &HealthChecker{
		clk:       clk,
		startTime: clk.Now(),
		version:   version,
		checks:    make(map[string]func() error),
	}
}

// SetSessions sets the open session counter.
func (h *HealthChecker) SetSessions(fn func() int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions = fn
}

// SetMetrics attaches counters to the report.
func (h *HealthChecker) SetMetrics(m *Metrics) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.metrics = m
}

// AddCheck adds a named check. A non-nil error marks the daemon unhealthy.
func (h *HealthChecker) AddCheck(name string, check func() error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// RemoveCheck removes a named check.
func (h *HealthChecker) RemoveCheck(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.checks, name)
}

// Uptime returns how long the daemon has been running.
func (h *HealthChecker) Uptime() time.Duration {
	return h.clk.Now().Sub(h.startTime)
}

// Check runs every check and returns the status.
func (h *HealthChecker) Check() *HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := &HealthStatus{
		Status:        StatusHealthy,
		Version:       h.version,
		UptimeSeconds: int64(h.Uptime().Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		MemoryMB:      float64(memStats.Alloc) / 1024 / 1024,
	}
	if h.sessions != nil {
		status.Sessions = h.sessions()
	}
	if h.metrics != nil {
		status.Metrics = h.metrics.Snapshot()
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		result := CheckResult{Name: name, Healthy: true}
		if err := h.checks[name](); err != nil {
			result.Healthy = false
			result.Error = err.Error()
			status.Status = StatusUnhealthy
		}
		status.Checks = append(status.Checks, result)
	}
	return status
}

// IsHealthy returns true if every check passes.
func (h *HealthChecker) IsHealthy() bool {
	return h.Check().Status == StatusHealthy
}

// ServeHTTP writes the status as JSON, with 503 when unhealthy.
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := h.Check()
	w.Header().Set("Content-Type", "application/json")
	if status.Status != StatusHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
