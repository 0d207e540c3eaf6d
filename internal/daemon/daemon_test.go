package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/chime/internal/delivery"
	chimeerrors "github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/model"
	"github.com/manav03panchal/chime/internal/runtime"
)

var testStart = time.Date(2025, time.January, 1, 7, 55, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *runtime.Context, clock.FakeClock) {
	t.Helper()
	fc := clock.NewFake()
	fc.Set(testStart)

	rt, err := runtime.New(runtime.Options{
		InMemory:   true,
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		Clock:      fc,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	return NewServer(rt, "test"), rt, fc
}

func createDaily(t *testing.T, rt *runtime.Context) *model.Reminder {
	t.Helper()
	r := model.NewReminder("stretch", rt.Normalizer.Normalize(model.Schedule{
		Mode:      model.ModeDaily,
		Times:     []model.TimeOfDay{model.MustTimeOfDay("08:00")},
		StartDate: model.Date{Year: 2025, Month: time.January, Day: 1},
		Timezone:  "UTC",
	}))
	require.NoError(t, rt.Reminders.Create(r))
	return r
}

// =============================================================================
// Action Tests
// =============================================================================

func TestHandleActionAcknowledge(t *testing.T) {
	s, rt, fc := newTestServer(t)
	r := createDaily(t, rt)

	fired := time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)
	fc.Set(fired.Add(time.Minute))

	m, err := s.HandleAction(context.Background(), "phone", delivery.Action{
		Kind:       delivery.FrameAck,
		ReminderID: r.ID,
		FiredAt:    fired,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Metrics.Streak)
	assert.Equal(t, 1, m.Metrics.DoneCount)

	again, err := s.HandleAction(context.Background(), "phone", delivery.Action{
		Kind:       delivery.FrameAck,
		ReminderID: r.ID,
		FiredAt:    fired,
	})
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, 1, again.Metrics.DoneCount)

	snap := s.metrics.Snapshot()
	assert.Equal(t, int64(2), snap.Actions)
	assert.Equal(t, int64(2), snap.ActionsByKind[delivery.FrameAck])
}

func TestHandleActionSkip(t *testing.T) {
	s, rt, fc := newTestServer(t)
	r := createDaily(t, rt)

	fired := time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)
	fc.Set(fired.Add(time.Minute))

	m, err := s.HandleAction(context.Background(), "phone", delivery.Action{
		Kind:       delivery.FrameSkip,
		ReminderID: r.ID,
		FiredAt:    fired,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, m.Metrics.Streak)
	assert.Equal(t, 1, m.Metrics.SkipCount)
}

func TestHandleActionSnooze(t *testing.T) {
	s, rt, _ := newTestServer(t)
	r := createDaily(t, rt)

	m, err := s.HandleAction(context.Background(), "phone", delivery.Action{
		Kind:       delivery.FrameSnooze,
		ReminderID: r.ID,
		Snooze:     10 * time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, r.ID, m.ReminderID)
	assert.True(t, m.Active)

	stored, err := rt.Reminders.Get(r.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SnoozedUntil)
	assert.Equal(t, testStart.Add(10*time.Minute), stored.SnoozedUntil.UTC())
}

func TestHandleActionUnknownReminder(t *testing.T) {
	s, _, _ := newTestServer(t)

	_, err := s.HandleAction(context.Background(), "phone", delivery.Action{
		Kind:       delivery.FrameAck,
		ReminderID: "missing",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, chimeerrors.ErrReminderNotFound))

	snap := s.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.ActionErrors)
	assert.NotEmpty(t, snap.LastError)
	assert.Equal(t, int64(1), snap.ErrorsByKind[chimeerrors.CategoryUnknown.String()])
}

func TestHandleActionUnsupported(t *testing.T) {
	s, _, _ := newTestServer(t)

	_, err := s.HandleAction(context.Background(), "phone", delivery.Action{Kind: "dance", ReminderID: "x"})
	assert.Error(t, err)
}

// =============================================================================
// Checker Tests
// =============================================================================

func TestCheckerPublishesThroughMetrics(t *testing.T) {
	s, rt, fc := newTestServer(t)
	createDaily(t, rt)

	s.Checker().Check(context.Background(), fc.Now())
	assert.Equal(t, int64(0), s.metrics.EventsPublished())

	fc.Set(time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC))
	s.Checker().Check(context.Background(), fc.Now())

	// No listener is connected, so the event is dropped.
	assert.Equal(t, int64(1), s.metrics.EventsPublished())
	assert.Equal(t, int64(1), s.metrics.EventsDropped())
}

// =============================================================================
// HTTP Tests
// =============================================================================

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + HealthPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	// The scheduler has not been started, so no tick is scheduled.
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, "test", status.Version)
	assert.Equal(t, 0, status.Sessions)
	require.Len(t, status.Checks, 2)
	assert.Equal(t, "database", status.Checks[0].Name)
	assert.True(t, status.Checks[0].Healthy)
	assert.Equal(t, "scheduler", status.Checks[1].Name)
	assert.False(t, status.Checks[1].Healthy)
}

func TestEventsEndpointRequiresCredential(t *testing.T) {
	s, _, _ := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + EventsPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// =============================================================================
// HealthChecker Tests
// =============================================================================

func TestHealthCheckerCheck(t *testing.T) {
	fc := clock.NewFake()
	checker := NewHealthChecker("1.0.0", fc)
	checker.SetSessions(func() int { return 2 })
	fc.Add(90 * time.Second)

	status := checker.Check()
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, "1.0.0", status.Version)
	assert.Equal(t, int64(90), status.UptimeSeconds)
	assert.Equal(t, 2, status.Sessions)
	assert.GreaterOrEqual(t, status.Goroutines, 1)
	assert.Empty(t, status.Checks)
}

func TestHealthCheckerAddRemoveCheck(t *testing.T) {
	checker := NewHealthChecker("1.0.0", clock.NewFake())

	checker.AddCheck("test", func() error { return errors.New("test error") })
	status := checker.Check()
	assert.Equal(t, StatusUnhealthy, status.Status)
	require.Len(t, status.Checks, 1)
	assert.Equal(t, "test error", status.Checks[0].Error)
	assert.False(t, checker.IsHealthy())

	checker.RemoveCheck("test")
	assert.True(t, checker.IsHealthy())
}

func TestHealthCheckerRejectsPost(t *testing.T) {
	checker := NewHealthChecker("1.0.0", clock.NewFake())

	rec := httptest.NewRecorder()
	checker.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, HealthPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// =============================================================================
// Metrics Tests
// =============================================================================

func TestMetricsRecordPublish(t *testing.T) {
	m := NewMetrics()

	m.RecordPublish(2)
	m.RecordPublish(0)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.EventsPublished)
	assert.Equal(t, int64(2), snap.EventsDelivered)
	assert.Equal(t, int64(1), snap.EventsDropped)
	assert.NotNil(t, snap.LastEventAt)
}

func TestMetricsJSON(t *testing.T) {
	m := NewMetrics()
	m.RecordAction(delivery.FrameSkip, nil)

	data, err := m.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), "actions_total")
	assert.Contains(t, string(data), `"skip": 1`)
}

// =============================================================================
// PID File Tests
// =============================================================================

func TestPIDFile(t *testing.T) {
	p := NewPIDFileAt(filepath.Join(t.TempDir(), "state", PIDFileName))

	_, err := p.Read()
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.False(t, p.IsRunning())

	require.NoError(t, p.Write())
	pid, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, p.IsRunning())
	assert.Equal(t, os.Getpid(), p.GetRunningPID())

	require.NoError(t, p.Remove())
	require.NoError(t, p.Remove())
	assert.Equal(t, 0, p.GetRunningPID())
}

func TestPIDFileGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), PIDFileName)
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o644))

	p := NewPIDFileAt(path)
	_, err := p.Read()
	assert.Error(t, err)
	assert.False(t, p.IsRunning())
}

func TestIsProcessRunning(t *testing.T) {
	assert.True(t, IsProcessRunning(os.Getpid()))
	assert.False(t, IsProcessRunning(0))
	assert.False(t, IsProcessRunning(-1))
}

// =============================================================================
// Helpers
// =============================================================================

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{5 * time.Minute, "5m"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
		{48 * time.Hour, "2d"},
		{50 * time.Hour, "2d 2h"},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(int(tt.d.Seconds())), func(t *testing.T) {
			assert.Equal(t, tt.want, formatUptime(tt.d))
		})
	}
}

func TestLastLogError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	log := "time=1 level=INFO msg=starting\ntime=2 level=ERROR msg=\"failed to listen on 127.0.0.1:7788\"\n"
	require.NoError(t, os.WriteFile(path, []byte(log), 0o644))

	assert.Contains(t, lastLogError(path), "failed to listen")
	assert.Empty(t, lastLogError(filepath.Join(t.TempDir(), "none.log")))
}
