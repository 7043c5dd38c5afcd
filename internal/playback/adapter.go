package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/discotune/discotune/internal/catalog"
	"github.com/discotune/discotune/internal/resolver"
	"github.com/discotune/discotune/internal/widget"
)

// State is the adapter lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Resolution is the media lookup state of the selected track.
type Resolution int

const (
	ResolutionIdle Resolution = iota
	ResolutionPending
	ResolutionResolved
	ResolutionFailed
)

func (r Resolution) String() string {
	switch r {
	case ResolutionIdle:
		return "idle"
	case ResolutionPending:
		return "resolving"
	case ResolutionResolved:
		return "resolved"
	case ResolutionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const defaultTimeout = 10 * time.Second

// Options configures an Adapter. OnEnded and OnNotice run on the adapter
// goroutine and must not block or call Close. OnEnded gets the generation of
// the intent whose media ended.
type Options struct {
	Resolver         resolver.Resolver
	Host             widget.Host
	OnEnded          func(generation uint64)
	OnNotice         func(Notice)
	Logger           *slog.Logger
	ResolveTimeout   time.Duration
	BootstrapTimeout time.Duration
}

// Status is a snapshot of the adapter for display.
type Status struct {
	State      State
	Resolution Resolution
	Track      *catalog.Track
	MediaID    string
	Playing    bool // last known widget state
	Volume     int  // last known widget volume, -1 before the first report
	Ended      bool
	LastNotice *Notice
	// Generation of the intent the adapter has applied.
	Generation uint64
	// Discarded counts resolutions dropped because the selection moved on.
	Discarded int
}

// Adapter owns one widget and keeps it in line with the applied Intent.
// All state lives on a single goroutine that drains an inbox of closures;
// resolution results, bootstrap readiness and widget events are posted to it.
type Adapter struct {
	opts   Options
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	queue   []func()
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
	status  Status

	// Owned by the run goroutine.
	state       State
	intent      Intent
	generation  uint64
	resolution  Resolution
	mediaID     string
	w           widget.Widget
	widgetReady bool
	loadedGen   uint64
	loaded      bool
	playing     bool
	volume      int
	ended       bool
	loadFailed  bool
	expect      expectation
	bootNotice  bool
	lastNotice  *Notice
	discarded   int
}

// expectation is the pause state the last play or pause command asked for.
// Property changes that contradict it were emitted before the command took
// effect and are ignored until mpv reports the requested state.
type expectation int

const (
	expectNone expectation = iota
	expectPlaying
	expectPaused
)

func NewAdapter(opts Options) (*Adapter, error) {
	if opts.Resolver == nil || opts.Host == nil {
		return nil, ErrInvalidOptions
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = defaultTimeout
	}
	if opts.BootstrapTimeout <= 0 {
		opts.BootstrapTimeout = defaultTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Adapter{
		opts:    opts,
		log:     opts.Logger.With(slog.String("component", "playback")),
		ctx:     ctx,
		cancel:  cancel,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		volume:  -1,
	}
	a.publish()
	go a.run()
	return a, nil
}

// Start moves the adapter out of Uninitialized and kicks off the shared
// player bootstrap. Apply does the same on first use.
func (a *Adapter) Start(ctx context.Context) {
	a.post(func() { a.start(ctx) })
}

// Apply hands the adapter the latest intent.
func (a *Adapter) Apply(in Intent) {
	in = in.clone()
	a.post(func() { a.apply(in) })
}

// Close disposes the adapter and waits for its goroutine to exit.
func (a *Adapter) Close() {
	a.post(a.dispose)
	<-a.stopped
}

func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.status
	if st.Track != nil {
		t := *st.Track
		st.Track = &t
	}
	return st
}

func (a *Adapter) post(fn func()) bool {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false
	}
	a.queue = append(a.queue, fn)
	a.mu.Unlock()
	select {
	case a.wake <- struct{}{}:
	default:
	}
	return true
}

func (a *Adapter) run() {
	defer close(a.stopped)
	for range a.wake {
		for {
			a.mu.Lock()
			if len(a.queue) == 0 {
				a.mu.Unlock()
				break
			}
			fn := a.queue[0]
			a.queue[0] = nil
			a.queue = a.queue[1:]
			a.mu.Unlock()

			fn()
			a.publish()

			if a.state == StateDisposed {
				a.mu.Lock()
				a.closed = true
				a.queue = nil
				a.mu.Unlock()
				return
			}
		}
	}
}

func (a *Adapter) publish() {
	st := Status{
		State:      a.state,
		Resolution: a.resolution,
		MediaID:    a.mediaID,
		Playing:    a.playing,
		Volume:     a.volume,
		Ended:      a.ended,
		LastNotice: a.lastNotice,
		Generation: a.generation,
		Discarded:  a.discarded,
	}
	if a.intent.Track != nil {
		t := *a.intent.Track
		st.Track = &t
	}
	a.mu.Lock()
	a.status = st
	a.mu.Unlock()
}

func (a *Adapter) start(ctx context.Context) {
	if a.state != StateUninitialized {
		return
	}
	a.state = StateLoading
	a.log.Debug("player bootstrap requested")
	ready := a.opts.Host.EnsureLoaded(ctx)
	go a.awaitBootstrap(ready)
}

func (a *Adapter) awaitBootstrap(ready *widget.Readiness) {
	timer := time.NewTimer(a.opts.BootstrapTimeout)
	defer timer.Stop()
	select {
	case <-ready.Done():
		a.post(func() { a.onBootstrap(ready.Err()) })
		return
	case <-timer.C:
		a.post(a.onBootstrapTimeout)
	case <-a.ctx.Done():
		return
	}
	// A late bootstrap still counts.
	select {
	case <-ready.Done():
		a.post(func() { a.onBootstrap(ready.Err()) })
	case <-a.ctx.Done():
	}
}

func (a *Adapter) onBootstrapTimeout() {
	if a.state != StateLoading {
		return
	}
	a.bootNotice = true
	a.notify(Notice{Kind: NoticeBootstrapLoad, Err: ErrBootstrapTimeout})
}

func (a *Adapter) onBootstrap(err error) {
	if a.state != StateLoading {
		return
	}
	if err != nil {
		// Stay in Loading; selecting tracks still resolves, nothing plays.
		if a.bootNotice {
			a.log.Warn("player bootstrap failed after timeout", slog.Any("err", err))
			return
		}
		a.bootNotice = true
		a.notify(Notice{Kind: NoticeBootstrapLoad, Err: err})
		return
	}
	a.state = StateReady
	a.log.Debug("player ready", slog.String("media_id", a.mediaID))
	if a.resolution == ResolutionResolved {
		a.loadMedia()
	}
	a.reconcile()
}

func (a *Adapter) apply(in Intent) {
	if a.state == StateDisposed {
		return
	}
	if a.state == StateUninitialized {
		a.start(a.ctx)
	}
	prev := a.intent
	a.intent = in
	switch {
	case in.Generation != a.generation:
		a.selectTrack(in)
	case (a.ended || a.loadFailed) && in.Playing && !prev.Playing:
		a.replay()
	}
	a.reconcile()
}

func (a *Adapter) selectTrack(in Intent) {
	a.generation = in.Generation
	a.ended = false
	a.loadFailed = false
	a.mediaID = ""
	if in.Track == nil {
		a.resolution = ResolutionIdle
		return
	}
	if id := in.Track.MediaID; id != "" {
		a.resolution = ResolutionResolved
		a.mediaID = id
		a.loadMedia()
		return
	}
	a.resolution = ResolutionPending
	go a.resolve(in.Generation, *in.Track)
}

func (a *Adapter) resolve(gen uint64, track catalog.Track) {
	ctx, cancel := context.WithTimeout(a.ctx, a.opts.ResolveTimeout)
	defer cancel()
	id, err := a.opts.Resolver.Resolve(ctx, track.Title, track.Artist)
	a.post(func() { a.onResolved(gen, track, id, err) })
}

func (a *Adapter) onResolved(gen uint64, track catalog.Track, id string, err error) {
	if a.state == StateDisposed {
		return
	}
	if gen != a.generation {
		a.discarded++
		a.log.Debug("discarding stale resolution",
			slog.String("title", track.Title),
			slog.Uint64("generation", gen),
			slog.Uint64("current", a.generation))
		return
	}
	if err != nil {
		a.resolution = ResolutionFailed
		kind := NoticeResolutionTransport
		if resolver.IsNotFound(err) {
			kind = NoticeResolutionNotFound
		}
		a.notify(Notice{Kind: kind, Track: &track, Err: err})
		a.reconcile()
		return
	}
	a.resolution = ResolutionResolved
	a.mediaID = id
	a.loadMedia()
	a.reconcile()
}

// loadMedia puts mediaID into the widget, creating it on first use.
func (a *Adapter) loadMedia() {
	if a.state != StateReady || a.mediaID == "" {
		return
	}
	if a.w == nil {
		w, err := a.opts.Host.NewWidget(a.mediaID)
		if err != nil {
			a.notify(Notice{Kind: NoticeWidgetCommand, Err: err})
			return
		}
		a.log.Debug("widget created", slog.String("media_id", a.mediaID))
		a.w = w
		a.widgetReady = false
		a.playing = false
		a.expect = expectNone
		a.volume = -1
		a.markLoaded()
		go a.pump(w)
		return
	}
	if !a.widgetReady {
		// Loaded on EventReady.
		return
	}
	if err := a.w.Load(a.mediaID); err != nil {
		a.notify(Notice{Kind: NoticeWidgetCommand, Err: err})
		return
	}
	a.log.Debug("widget loaded", slog.String("media_id", a.mediaID))
	a.markLoaded()
}

func (a *Adapter) markLoaded() {
	a.loaded = true
	a.loadedGen = a.generation
}

func (a *Adapter) current() bool {
	return a.loaded && a.loadedGen == a.generation
}

// replay reloads media after a natural end or a failed load so that play has
// something to play again.
func (a *Adapter) replay() {
	a.ended = false
	a.loadFailed = false
	if a.w == nil || !a.widgetReady || a.mediaID == "" {
		return
	}
	if err := a.w.Load(a.mediaID); err != nil {
		a.notify(Notice{Kind: NoticeWidgetCommand, Err: err})
	}
}

func (a *Adapter) reconcile() {
	if a.state != StateReady || a.w == nil || !a.widgetReady {
		return
	}
	want := a.intent.Track != nil && a.intent.Playing && a.current() && !a.ended && !a.loadFailed
	switch {
	case want && !a.playing:
		if err := a.w.Play(); err != nil {
			a.notify(Notice{Kind: NoticeWidgetCommand, Err: err})
		} else {
			a.playing = true
			a.expect = expectPlaying
		}
	case !want && a.playing:
		if err := a.w.Pause(); err != nil {
			a.notify(Notice{Kind: NoticeWidgetCommand, Err: err})
		} else {
			a.playing = false
			a.expect = expectPaused
		}
	}
	if a.volume != a.intent.Volume {
		if err := a.w.SetVolume(a.intent.Volume); err != nil {
			a.notify(Notice{Kind: NoticeWidgetCommand, Err: err})
		} else {
			a.volume = a.intent.Volume
		}
	}
}

func (a *Adapter) pump(w widget.Widget) {
	for evt := range w.Events() {
		evt := evt
		if !a.post(func() { a.onWidgetEvent(w, evt) }) {
			return
		}
	}
}

func (a *Adapter) onWidgetEvent(w widget.Widget, evt widget.Event) {
	if a.state == StateDisposed || w != a.w {
		return
	}
	switch evt.Kind {
	case widget.EventReady:
		if a.widgetReady {
			return
		}
		a.widgetReady = true
		if a.mediaID != "" && !a.current() {
			a.loadMedia()
		}
		a.reconcile()
	case widget.EventPlaying:
		if a.expect == expectPaused {
			a.log.Debug("ignoring stale playing report")
			return
		}
		a.expect = expectNone
		a.playing = true
	case widget.EventPaused:
		if a.expect == expectPlaying {
			a.log.Debug("ignoring stale paused report")
			return
		}
		a.expect = expectNone
		a.playing = false
	case widget.EventVolume:
		a.volume = evt.Volume
	case widget.EventEnded:
		if !a.current() || a.ended {
			a.log.Debug("ignoring end of media", slog.Bool("current", a.current()), slog.Bool("ended", a.ended))
			return
		}
		a.ended = true
		a.playing = false
		a.expect = expectNone
		a.log.Info("media ended", slog.String("media_id", a.mediaID))
		if a.opts.OnEnded != nil {
			a.publish()
			a.opts.OnEnded(a.generation)
		}
	case widget.EventStopped:
		if evt.Reason != widget.ReasonError {
			a.log.Debug("media stopped", slog.String("reason", evt.Reason))
			return
		}
		if !a.current() {
			a.log.Debug("ignoring load failure of replaced media", slog.Any("err", evt.Err))
			return
		}
		// mpv is idle now; a later play request reloads the media.
		a.loadFailed = true
		a.playing = false
		a.expect = expectNone
		err := evt.Err
		if err == nil {
			err = ErrMediaLoad
		}
		n := Notice{Kind: NoticeWidgetCommand, Err: fmt.Errorf("load %s: %w", a.mediaID, err)}
		if a.intent.Track != nil {
			t := *a.intent.Track
			n.Track = &t
		}
		a.notify(n)
	case widget.EventError:
		a.notify(Notice{Kind: NoticeWidgetCommand, Err: evt.Err})
	}
}

func (a *Adapter) notify(n Notice) {
	a.lastNotice = &n
	a.publish()
	a.log.Warn("playback notice", slog.String("kind", n.Kind.String()), slog.Any("err", n.Err))
	if a.opts.OnNotice != nil {
		a.opts.OnNotice(n)
	}
}

func (a *Adapter) dispose() {
	if a.state == StateDisposed {
		return
	}
	a.state = StateDisposed
	a.cancel()
	if a.w != nil {
		if err := a.w.Close(); err != nil {
			a.log.Debug("closing widget", slog.Any("err", err))
		}
		a.w = nil
	}
	a.log.Debug("adapter disposed")
}
