package daemon

import (
	"os"
	"os/signal"
	"syscall"
)

// SignalHandler delivers shutdown signals.
type SignalHandler struct {
	signals chan os.Signal
}

// NewSignalHandler creates a new signal handler.
func NewSignalHandler() *SignalHandler {
	return &SignalHandler{signals: make(chan os.Signal, 1)}
}

// Setup registers for SIGINT, SIGTERM and SIGHUP.
func (h *SignalHandler) Setup() {
	signal.Notify(h.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
}

// C receives the first shutdown signal.
func (h *SignalHandler) C() <-chan os.Signal {
	return h.signals
}

// Cleanup stops signal delivery.
func (h *SignalHandler) Cleanup() {
	signal.Stop(h.signals)
}
