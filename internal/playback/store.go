// Package playback keeps the embedded player consistent with what the user
// asked for: the Store holds the intent and the Adapter reconciles a widget
// against it.
package playback

import (
	"sync"

	"github.com/discotune/discotune/internal/catalog"
)

// Intent is the desired playback state. Generation increases on every track
// selection and tags asynchronous work started for that selection.
type Intent struct {
	Track      *catalog.Track
	Playing    bool
	Volume     int
	Generation uint64
}

func (in Intent) clone() Intent {
	if in.Track != nil {
		t := *in.Track
		in.Track = &t
	}
	return in
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Store is the intent container. Every effective change is passed to the
// listener, outside the lock, in mutation order per caller.
type Store struct {
	mu       sync.Mutex
	intent   Intent
	listener func(Intent)
}

// NewStore returns a store with no track selected. listener may be nil.
func NewStore(volume int, listener func(Intent)) *Store {
	return &Store{
		intent:   Intent{Volume: clampVolume(volume)},
		listener: listener,
	}
}

func (s *Store) Intent() Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intent.clone()
}

func (s *Store) update(fn func(in *Intent) bool) Intent {
	s.mu.Lock()
	changed := fn(&s.intent)
	out := s.intent.clone()
	s.mu.Unlock()
	if changed && s.listener != nil {
		s.listener(out)
	}
	return out
}

// SelectTrack makes track current and starts a new generation. autoplay is
// the caller's playback request; selecting from a list passes true.
func (s *Store) SelectTrack(track catalog.Track, autoplay bool) Intent {
	return s.update(func(in *Intent) bool {
		t := track
		in.Track = &t
		in.Playing = autoplay
		in.Generation++
		return true
	})
}

// ClearTrack drops the selection.
func (s *Store) ClearTrack() Intent {
	return s.update(func(in *Intent) bool {
		if in.Track == nil {
			return false
		}
		in.Track = nil
		in.Playing = false
		in.Generation++
		return true
	})
}

// SetPlaying is a no-op while no track is selected.
func (s *Store) SetPlaying(playing bool) Intent {
	return s.update(func(in *Intent) bool {
		if in.Track == nil || in.Playing == playing {
			return false
		}
		in.Playing = playing
		return true
	})
}

func (s *Store) TogglePlaying() Intent {
	return s.update(func(in *Intent) bool {
		if in.Track == nil {
			return false
		}
		in.Playing = !in.Playing
		return true
	})
}

// SetVolume clamps to [0,100].
func (s *Store) SetVolume(volume int) Intent {
	volume = clampVolume(volume)
	return s.update(func(in *Intent) bool {
		if in.Volume == volume {
			return false
		}
		in.Volume = volume
		return true
	})
}

func (s *Store) AdjustVolume(delta int) Intent {
	return s.update(func(in *Intent) bool {
		v := clampVolume(in.Volume + delta)
		if v == in.Volume {
			return false
		}
		in.Volume = v
		return true
	})
}
