package alert

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/manav03panchal/chime/internal/model"
)

// TextSurface prints alerts as lines of text. It is used when no terminal
// UI is attached.
type TextSurface struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextSurface creates a text surface writing to w.
func NewTextSurface(w io.Writer) *TextSurface {
	return &TextSurface{w: w}
}

// Open prints the alert.
func (s *TextSurface) Open(e model.DueEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "⏰ %s  %s  [%s]\n", e.FiredAt.Local().Format(time.Kitchen), e.Title, shortID(e.ReminderID))
	if e.Notes != "" {
		fmt.Fprintf(s.w, "   %s\n", e.Notes)
	}
}

// Close prints how the alert ended.
func (s *TextSurface) Close(key string, reason Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "   %s\n", reason)
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}

// Surfaces fans out to several surfaces.
type Surfaces []Surface

// Open opens every surface.
func (m Surfaces) Open(e model.DueEvent) {
	for _, s := range m {
		s.Open(e)
	}
}

// Close closes every surface.
func (m Surfaces) Close(key string, reason Reason) {
	for _, s := range m {
		s.Close(key, reason)
	}
}
