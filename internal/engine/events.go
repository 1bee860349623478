package engine

import (
	"fmt"

	"github.com/Lingen1218/cfac/internal/view"
)

// Status is the state of one view rebuild.
type Status int

const (
	StatusPending Status = iota
	StatusCommitted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCommitted:
		return "committed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event reports progress of one view rebuild.
type Event struct {
	View    view.ID
	Status  Status
	Records int
	Err     error
}

// Reporter delivers rebuild events through a buffered channel.
type Reporter struct {
	ch chan Event
}

// NewReporter creates a Reporter buffering up to size events.
func NewReporter(size int) *Reporter {
	if size <= 0 {
		size = 64
	}
	return &Reporter{ch: make(chan Event, size)}
}

// Emit sends ev without blocking. Events are dropped when the buffer is full.
func (r *Reporter) Emit(ev Event) {
	if r == nil {
		return
	}
	select {
	case r.ch <- ev:
	default:
	}
}

// Subscribe returns the event channel.
func (r *Reporter) Subscribe() <-chan Event { return r.ch }

// Close closes the event channel.
func (r *Reporter) Close() { close(r.ch) }

// FormatEvent renders ev as a one-line status.
func FormatEvent(ev Event) string {
	switch ev.Status {
	case StatusPending:
		return fmt.Sprintf("  ○ %s (pending)", ev.View)
	case StatusCommitted:
		return fmt.Sprintf("  ✓ %s (%d rows)", ev.View, ev.Records)
	case StatusFailed:
		return fmt.Sprintf("  ✗ %s failed: %v", ev.View, ev.Err)
	default:
		return fmt.Sprintf("  ? %s", ev.View)
	}
}
