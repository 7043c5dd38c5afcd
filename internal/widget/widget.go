// Package widget defines the contract between the playback adapter and an
// external, asynchronously bootstrapped media player.
package widget

import (
	"context"
	"errors"
	"sync"
)

// EventKind enumerates widget lifecycle and state callbacks.
type EventKind int

const (
	EventReady EventKind = iota
	EventPlaying
	EventPaused
	EventVolume
	EventEnded   // natural end of media only
	EventStopped // media unloaded for any other reason (replace, quit, error)
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventPlaying:
		return "playing"
	case EventPaused:
		return "paused"
	case EventVolume:
		return "volume"
	case EventEnded:
		return "ended"
	case EventStopped:
		return "stopped"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// ReasonError is the EventStopped reason for media that could not be opened.
const ReasonError = "error"

// Event is one callback from a widget.
type Event struct {
	Kind   EventKind
	Volume int    // EventVolume
	Reason string // EventStopped
	Err    error  // EventError, EventStopped with ReasonError
}

// Widget is one live player instance. Implementations need not be
// idempotent; callers decide when a command is necessary.
type Widget interface {
	Load(mediaID string) error
	Play() error
	Pause() error
	SetVolume(volume int) error
	// Events is closed when the widget is closed.
	Events() <-chan Event
	Close() error
}

// Host is the process-wide bootstrap that widgets are created from.
type Host interface {
	// EnsureLoaded starts the bootstrap on first call. Every call returns the
	// same Readiness.
	EnsureLoaded(ctx context.Context) *Readiness
	// NewWidget creates a widget with media already cued. Valid only after
	// the readiness signal fired without error.
	NewWidget(mediaID string) (Widget, error)
}

var ErrNotReady = errors.New("widget: host not ready")

// Readiness is a one-shot signal shared by everyone waiting on a bootstrap.
type Readiness struct {
	once sync.Once
	done chan struct{}
	err  error
}

func NewReadiness() *Readiness {
	return &Readiness{done: make(chan struct{})}
}

// Done is closed once the bootstrap finished, successfully or not.
func (r *Readiness) Done() <-chan struct{} { return r.done }

// Err is the bootstrap failure, valid after Done is closed.
func (r *Readiness) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Resolve fires the signal. Later calls are ignored.
func (r *Readiness) Resolve(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}
