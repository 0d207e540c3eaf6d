// Package daemon runs the chime scheduling authority behind a PID file:
// the due checker, the push hub and a health endpoint on one listener.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/manav03panchal/chime/internal/delivery"
	"github.com/manav03panchal/chime/internal/logging"
	"github.com/manav03panchal/chime/internal/model"
	"github.com/manav03panchal/chime/internal/runtime"
	"github.com/manav03panchal/chime/internal/scheduler"
)

// Paths served by the daemon.
const (
	EventsPath = "/v1/events"
	HealthPath = "/healthz"
)

const (
	startupWait     = 750 * time.Millisecond
	killTimeout     = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server is the long-running `chime serve` process.
type Server struct {
	rt        *runtime.Context
	pidFile   *PIDFile
	hub       *delivery.Hub
	checker   *scheduler.ReminderChecker
	scheduler *scheduler.Scheduler
	health    *HealthChecker
	metrics   *Metrics
	log       *slog.Logger
}

// Status represents the daemon status.
type Status struct {
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	Listen    string    `json:"listen,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
}

// NewServer wires the checker and hub over rt. rt must have a database.
func NewServer(rt *runtime.Context, version string) *Server {
	cfg := rt.Config
	s := &Server{
		rt:      rt,
		pidFile: NewPIDFile(),
		metrics: NewMetrics(),
		log:     logging.Component("daemon"),
	}

	s.hub = delivery.NewHub(delivery.HubOptions{
		Tokens:         cfg.Delivery.Tokens,
		SendBuffer:     cfg.Delivery.SendBuffer,
		SendRatePerSec: cfg.Delivery.SendRatePerSec,
		ReplayWindow:   cfg.Alert.DuplicateWindow,
		Actions:        delivery.ActionFunc(s.HandleAction),
		OnConnect: func(sess delivery.Session) {
			s.log.Info("session connected", logging.KeySession, sess.ID, "identity", sess.Identity)
		},
		OnDisconnect: func(sess delivery.Session) {
			s.log.Info("session closed", logging.KeySession, sess.ID)
		},
	})

	publish := scheduler.PublisherFunc(func(e model.DueEvent) int {
		n := s.hub.Publish(e)
		s.metrics.RecordPublish(n)
		return n
	})
	s.checker = scheduler.NewReminderChecker(rt.Reminders, rt.Planner, publish, rt.Clock)
	s.scheduler = scheduler.NewScheduler(s.checker, scheduler.Options{
		TickSpec:       cfg.Scheduler.TickSpec,
		SleepThreshold: cfg.Scheduler.SleepThreshold,
		Clock:          rt.Clock,
	})

	s.health = NewHealthChecker(version, rt.Clock)
	s.health.SetSessions(func() int { return len(s.hub.Sessions()) })
	s.health.SetMetrics(s.metrics)
	s.health.AddCheck("database", func() error {
		if rt.DB == nil || rt.DB.Badger().IsClosed() {
			return errors.New("database closed")
		}
		return nil
	})
	s.health.AddCheck("scheduler", func() error {
		if s.scheduler.NextRun().IsZero() {
			return errors.New("no tick scheduled")
		}
		return nil
	})
	return s
}

// Handler routes the events channel and the health endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(EventsPath, s.hub)
	mux.Handle(HealthPath, s.health)
	return mux
}

// Checker returns the due checker.
func (s *Server) Checker() *scheduler.ReminderChecker {
	return s.checker
}

// HandleAction applies an ack, skip or snooze sent by a listener.
func (s *Server) HandleAction(ctx context.Context, identity string, a delivery.Action) (model.UpdatedMetrics, error) {
	var (
		m   model.UpdatedMetrics
		err error
	)
	switch a.Kind {
	case delivery.FrameAck:
		m, err = s.rt.Tracker.Acknowledge(a.ReminderID, a.FiredAt)
	case delivery.FrameSkip:
		m, err = s.rt.Tracker.Skip(a.ReminderID, a.FiredAt)
	case delivery.FrameSnooze:
		m, err = s.snooze(a.ReminderID, a.Snooze)
	default:
		err = fmt.Errorf("unsupported action %q", a.Kind)
	}
	s.metrics.RecordAction(a.Kind, err)
	if err != nil {
		s.log.Warn("action failed", logging.KeyOperation, a.Kind, logging.KeyReminderID, a.ReminderID, "identity", identity, logging.KeyError, err)
		return m, err
	}
	s.log.Info("action applied", logging.KeyOperation, a.Kind, logging.KeyReminderID, a.ReminderID, "identity", identity)
	return m, nil
}

func (s *Server) snooze(id string, d time.Duration) (model.UpdatedMetrics, error) {
	if _, err := s.rt.Tracker.Snooze(id, d); err != nil {
		return model.UpdatedMetrics{}, err
	}
	r, err := s.rt.Reminders.Get(id)
	if err != nil {
		return model.UpdatedMetrics{}, err
	}
	return model.UpdatedMetrics{
		ReminderID: r.ID,
		Metrics:    r.Metrics,
		Completed:  r.Completed,
		Active:     r.Active,
	}, nil
}

// GetStatus returns the current daemon status.
func GetStatus() *Status {
	status := &Status{}

	pid := NewPIDFile().GetRunningPID()
	if pid > 0 {
		status.Running = true
		status.PID = pid

		if state, err := readState(); err == nil {
			status.Listen = state.Listen
			status.StartedAt = state.StartedAt
			status.Uptime = formatUptime(time.Since(state.StartedAt))
		}
	}

	return status
}

// Run serves in the foreground until ctx is cancelled or a shutdown signal
// arrives.
func (s *Server) Run(ctx context.Context) error {
	if s.pidFile.IsRunning() {
		return ErrAlreadyRunning
	}

	addr := s.rt.Config.Delivery.Listen
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if err := s.pidFile.Write(); err != nil {
		ln.Close()
		return err
	}
	defer s.pidFile.Remove()

	if err := writeState(&State{StartedAt: s.rt.Clock.Now(), Listen: ln.Addr().String()}); err != nil {
		ln.Close()
		return err
	}
	defer removeState()

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if err := s.scheduler.Start(); err != nil {
		_ = srv.Close()
		return err
	}
	s.log.Info("daemon started", "pid", os.Getpid(), "listen", ln.Addr().String())

	sigHandler := NewSignalHandler()
	sigHandler.Setup()
	defer sigHandler.Cleanup()

	var runErr error
	select {
	case sig := <-sigHandler.C():
		s.log.Info("received signal", "signal", sig.String())
	case <-ctx.Done():
	case runErr = <-serveErr:
	}

	s.scheduler.Stop()
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("http shutdown", logging.KeyError, err)
	}
	s.log.Info("daemon stopped")
	return runErr
}

// StartBackground re-executes chime as a detached `serve` process.
func StartBackground(extraArgs ...string) (int, error) {
	pidFile := NewPIDFile()
	if pid := pidFile.GetRunningPID(); pid > 0 {
		return pid, ErrAlreadyRunning
	}

	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(executable, append([]string{"serve"}, extraArgs...)...)
	cmd.Stdin = nil

	logPath := GetLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err == nil {
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			defer logFile.Close()
			cmd.Stdout = logFile
			cmd.Stderr = logFile
		}
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}

	time.Sleep(startupWait)

	if !pidFile.IsRunning() {
		if msg := lastLogError(logPath); msg != "" {
			return 0, fmt.Errorf("daemon failed to start: %s", msg)
		}
		return 0, fmt.Errorf("daemon failed to start (check logs: %s)", logPath)
	}
	return cmd.Process.Pid, nil
}

// lastLogError returns the most recent error-looking line of the log.
func lastLogError(logPath string) string {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return ""
	}

	lines := strings.Split(string(data), "\n")
	start := max(len(lines)-10, 0)
	for i := len(lines) - 1; i >= start; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.Contains(strings.ToLower(line), "error") ||
			strings.Contains(line, "cannot access database") ||
			strings.Contains(line, "failed to") {
			return line
		}
	}
	return ""
}

// Stop signals the running daemon and waits for it to exit.
func Stop() error {
	pidFile := NewPIDFile()
	pid := pidFile.GetRunningPID()
	if pid == 0 {
		return ErrNotRunning
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}
	if err := process.Signal(os.Interrupt); err != nil {
		if err := process.Kill(); err != nil {
			return fmt.Errorf("failed to stop daemon: %w", err)
		}
	}

	deadline := time.Now().Add(killTimeout)
	for IsProcessRunning(pid) {
		if time.Now().After(deadline) {
			_ = process.Kill()
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	pidFile.Remove()
	removeState()
	return nil
}

// State is persisted next to the PID file while the daemon runs.
type State struct {
	StartedAt time.Time `json:"started_at"`
	Listen    string    `json:"listen"`
}

func statePath() string {
	return filepath.Join(xdg.StateHome, AppName, "daemon.json")
}

func writeState(state *State) error {
	path := statePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func readState() (*State, error) {
	data, err := os.ReadFile(statePath())
	if err != nil {
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func removeState() {
	if err := os.Remove(statePath()); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove daemon state file", logging.KeyError, err, "path", statePath())
	}
}

// GetLogPath returns the path to the daemon log file.
func GetLogPath() string {
	return filepath.Join(xdg.StateHome, AppName, "daemon.log")
}

// formatUptime formats a duration as uptime.
func formatUptime(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		hours, minutes := int(d.Hours()), int(d.Minutes())%60
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	days, hours := int(d.Hours()/24), int(d.Hours())%24
	if hours > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}
