// Package queue holds the ordered list of tracks the player advances through.
package queue

import (
	"errors"

	"github.com/discotune/discotune/internal/catalog"
)

type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "off"
	}
}

var (
	ErrEmpty      = errors.New("queue is empty")
	ErrEnd        = errors.New("end of queue")
	ErrOutOfRange = errors.New("index out of range")
)

// Queue maintains an ordered list of tracks and the current position. It is
// not safe for concurrent use.
type Queue struct {
	items   []catalog.Track
	current int
	repeat  RepeatMode
	source  string
}

func New() *Queue {
	return &Queue{current: -1}
}

// Replace swaps in a new list, e.g. when a chart or playlist is opened.
// source labels where the list came from.
func (q *Queue) Replace(source string, tracks []catalog.Track) {
	q.items = append([]catalog.Track(nil), tracks...)
	q.source = source
	q.current = -1
	if len(q.items) > 0 {
		q.current = 0
	}
}

func (q *Queue) Source() string { return q.source }

func (q *Queue) Items() []catalog.Track {
	out := make([]catalog.Track, len(q.items))
	copy(out, q.items)
	return out
}

func (q *Queue) Len() int { return len(q.items) }

func (q *Queue) Current() (catalog.Track, error) {
	if q.current < 0 || q.current >= len(q.items) {
		return catalog.Track{}, ErrEmpty
	}
	return q.items[q.current], nil
}

func (q *Queue) CurrentIndex() int { return q.current }

// Add appends tracks, skipping ones already queued.
func (q *Queue) Add(tracks ...catalog.Track) int {
	added := 0
	for _, t := range tracks {
		if q.IndexOf(t.Key()) >= 0 {
			continue
		}
		q.items = append(q.items, t)
		added++
	}
	if q.current == -1 && len(q.items) > 0 {
		q.current = 0
	}
	return added
}

// IndexOf finds a track by its resolution identity.
func (q *Queue) IndexOf(key catalog.Key) int {
	for i, t := range q.items {
		if t.Key() == key {
			return i
		}
	}
	return -1
}

func (q *Queue) Remove(idx int) error {
	if idx < 0 || idx >= len(q.items) {
		return ErrOutOfRange
	}
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	switch {
	case len(q.items) == 0:
		q.current = -1
	case idx < q.current:
		q.current--
	case q.current >= len(q.items):
		q.current = len(q.items) - 1
	}
	return nil
}

func (q *Queue) CycleRepeat() RepeatMode {
	q.repeat = (q.repeat + 1) % 3
	return q.repeat
}

func (q *Queue) SetRepeat(m RepeatMode) { q.repeat = m }

func (q *Queue) RepeatMode() RepeatMode { return q.repeat }

// Next advances after a natural end of media. RepeatOne stays put and
// RepeatAll wraps; otherwise the end of the list is ErrEnd.
func (q *Queue) Next() (catalog.Track, error) {
	if len(q.items) == 0 {
		return catalog.Track{}, ErrEmpty
	}
	switch {
	case q.repeat == RepeatOne && q.current >= 0:
	case q.current < len(q.items)-1:
		q.current++
	case q.repeat != RepeatOff:
		q.current = 0
	default:
		return catalog.Track{}, ErrEnd
	}
	return q.items[q.current], nil
}

// Skip moves forward on user request; unlike Next it leaves RepeatOne.
func (q *Queue) Skip() (catalog.Track, error) {
	if q.repeat != RepeatOne {
		return q.Next()
	}
	q.repeat = RepeatAll
	t, err := q.Next()
	q.repeat = RepeatOne
	return t, err
}

func (q *Queue) Prev() (catalog.Track, error) {
	if len(q.items) == 0 {
		return catalog.Track{}, ErrEmpty
	}
	if q.current > 0 {
		q.current--
	}
	return q.items[q.current], nil
}

func (q *Queue) SetCurrent(idx int) error {
	if idx < 0 || idx >= len(q.items) {
		return ErrOutOfRange
	}
	q.current = idx
	return nil
}

func (q *Queue) Clear() {
	q.items = nil
	q.current = -1
	q.source = ""
}
