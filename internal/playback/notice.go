package playback

import (
	"errors"
	"fmt"

	"github.com/discotune/discotune/internal/catalog"
)

// NoticeKind classifies a non-fatal playback failure.
type NoticeKind int

const (
	NoticeResolutionNotFound NoticeKind = iota + 1
	NoticeResolutionTransport
	NoticeBootstrapLoad
	NoticeWidgetCommand
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeResolutionNotFound:
		return "resolution not found"
	case NoticeResolutionTransport:
		return "resolution transport error"
	case NoticeBootstrapLoad:
		return "player bootstrap error"
	case NoticeWidgetCommand:
		return "player command error"
	default:
		return "unknown"
	}
}

var (
	ErrBootstrapTimeout = errors.New("playback: player did not become ready in time")
	ErrInvalidOptions   = errors.New("playback: resolver and host are required")
	ErrMediaLoad        = errors.New("playback: media failed to load")
)

// Notice is what the adapter reports instead of failing. Track is set for
// resolution notices.
type Notice struct {
	Kind  NoticeKind
	Track *catalog.Track
	Err   error
}

func (n *Notice) Error() string {
	return fmt.Sprintf("%s: %v", n.Kind, n.Err)
}

func (n *Notice) Unwrap() error { return n.Err }

// Message is the user-facing text for the status bar.
func (n *Notice) Message() string {
	switch n.Kind {
	case NoticeResolutionNotFound:
		if n.Track != nil {
			return fmt.Sprintf("Cannot play %q: no media found", n.Track.Label())
		}
		return "Cannot play this track: no media found"
	case NoticeResolutionTransport:
		return fmt.Sprintf("Cannot play this track: lookup failed (%v)", n.Err)
	case NoticeBootstrapLoad:
		return fmt.Sprintf("Player unavailable: %v", n.Err)
	case NoticeWidgetCommand:
		return fmt.Sprintf("Player command failed: %v", n.Err)
	default:
		return n.Error()
	}
}
