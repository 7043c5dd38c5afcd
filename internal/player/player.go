// Package player drives mpv over its JSON IPC socket and exposes it as the
// embedded widget the playback adapter controls.
package player

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/discotune/discotune/internal/widget"
)

const defaultMediaURLTemplate = "https://www.youtube.com/watch?v=%s"

// Options configures the Host.
type Options struct {
	MPVPath          string
	IPCPath          string
	Logger           *slog.Logger
	DisableProcess   bool
	Dial             func(ctx context.Context, network, addr string) (net.Conn, error)
	ExtraArgs        []string
	MediaURLTemplate string
	YTDLFormat       string
	ConnectRetries   int
}

// Host owns the single mpv process for this program. The process is started
// lazily by EnsureLoaded and shared by every widget created afterwards.
type Host struct {
	opts      Options
	once      sync.Once
	readiness *widget.Readiness

	mu      sync.Mutex
	cmd     *exec.Cmd
	conn    net.Conn
	cancel  context.CancelFunc
	current *Widget
}

func New(opts Options) *Host {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MPVPath == "" {
		opts.MPVPath = "mpv"
	}
	if opts.MediaURLTemplate == "" {
		opts.MediaURLTemplate = defaultMediaURLTemplate
	}
	if opts.ConnectRetries <= 0 {
		opts.ConnectRetries = 10
	}
	return &Host{
		opts:      opts,
		readiness: widget.NewReadiness(),
	}
}

func defaultIPCPath() string {
	name := "discotune-mpv-" + uuid.NewString()[:8]
	if runtime.GOOS == "windows" {
		return `\\.\pipe\` + name
	}
	return filepath.Join(os.TempDir(), name+".sock")
}

// EnsureLoaded starts mpv and connects to it exactly once per Host. The
// caller's context is only used for values; cancelling it does not abort the
// shared bootstrap.
func (h *Host) EnsureLoaded(ctx context.Context) *widget.Readiness {
	h.once.Do(func() {
		base, cancel := context.WithCancel(context.WithoutCancel(ctx))
		h.mu.Lock()
		h.cancel = cancel
		h.mu.Unlock()
		go h.bootstrap(base)
	})
	return h.readiness
}

func (h *Host) bootstrap(ctx context.Context) {
	if h.opts.IPCPath == "" {
		h.opts.IPCPath = defaultIPCPath()
	}
	h.opts.Logger.Debug("bootstrapping mpv", slog.String("ipc_path", h.opts.IPCPath), slog.Bool("disable_process", h.opts.DisableProcess))
	if !h.opts.DisableProcess {
		if err := h.spawnMPV(ctx); err != nil {
			h.opts.Logger.Error("failed to spawn mpv", slog.Any("err", err))
			h.readiness.Resolve(err)
			return
		}
	}
	if err := h.connect(ctx); err != nil {
		h.opts.Logger.Error("failed to connect to mpv ipc", slog.Any("err", err))
		h.readiness.Resolve(err)
		return
	}
	if err := h.observeProperties(); err != nil {
		h.opts.Logger.Error("failed to observe mpv properties", slog.Any("err", err))
		h.readiness.Resolve(err)
		return
	}
	go h.readLoop()
	h.opts.Logger.Debug("mpv ready")
	h.readiness.Resolve(nil)
}

func (h *Host) spawnMPV(ctx context.Context) error {
	args := []string{
		"--idle=yes",
		"--force-window=no",
		"--no-terminal",
		"--no-video",
		"--input-ipc-server=" + h.opts.IPCPath,
	}
	if h.opts.YTDLFormat != "" {
		args = append(args, "--ytdl-format="+h.opts.YTDLFormat)
	}
	args = append(args, h.opts.ExtraArgs...)
	h.opts.Logger.Debug("spawning mpv process", slog.String("mpv_path", h.opts.MPVPath), slog.Any("args", args))
	cmd := exec.CommandContext(ctx, h.opts.MPVPath, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}
	h.mu.Lock()
	h.cmd = cmd
	h.mu.Unlock()
	h.opts.Logger.Debug("mpv process started", slog.Int("pid", cmd.Process.Pid))
	return nil
}

func (h *Host) connect(ctx context.Context) error {
	dial := h.opts.Dial
	if dial == nil {
		dial = (&net.Dialer{Timeout: 5 * time.Second}).DialContext
	}
	var err error
	baseDelay := 50 * time.Millisecond
	maxDelay := 500 * time.Millisecond
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < h.opts.ConnectRetries; i++ {
		var conn net.Conn
		conn, err = dial(ctx, "unix", h.opts.IPCPath)
		if err == nil {
			h.mu.Lock()
			h.conn = conn
			h.mu.Unlock()
			h.opts.Logger.Debug("connected to mpv ipc", slog.Int("attempt", i+1))
			return nil
		}

		if i < h.opts.ConnectRetries-1 {
			delay := baseDelay * time.Duration(1<<uint(i))
			if delay > maxDelay {
				delay = maxDelay
			}
			jitter := time.Duration(float64(delay) * 0.2 * rng.Float64())
			h.opts.Logger.Debug("mpv ipc connection failed, retrying", slog.Int("attempt", i+1), slog.Any("err", err), slog.Duration("delay", delay+jitter))
			select {
			case <-ctx.Done():
				return fmt.Errorf("connect mpv ipc: %w", ctx.Err())
			case <-time.After(delay + jitter):
			}
		}
	}
	return fmt.Errorf("connect mpv ipc: %w", err)
}

func (h *Host) observeProperties() error {
	for i, p := range []string{"pause", "volume"} {
		if err := h.send("observe_property", i+1, p); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) send(args ...any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return errors.New("mpv not connected")
	}
	b, err := json.Marshal(map[string]any{"command": args})
	if err != nil {
		return err
	}
	_, err = h.conn.Write(append(b, '\n'))
	return err
}

// MediaURL expands a media id into something mpv can open. Local paths and
// full URLs pass through unchanged.
func (h *Host) MediaURL(mediaID string) string {
	if strings.Contains(mediaID, "://") || filepath.IsAbs(mediaID) {
		return mediaID
	}
	return strings.ReplaceAll(h.opts.MediaURLTemplate, "%s", mediaID)
}

// NewWidget cues mediaID paused and returns the widget bound to it. mpv has a
// single playback slot, so an older widget is detached first.
func (h *Host) NewWidget(mediaID string) (widget.Widget, error) {
	select {
	case <-h.readiness.Done():
		if err := h.readiness.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", widget.ErrNotReady, err)
		}
	default:
		return nil, widget.ErrNotReady
	}

	w := &Widget{
		host:   h,
		events: make(chan widget.Event, 32),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	prev := h.current
	h.current = w
	h.mu.Unlock()
	if prev != nil {
		prev.detach()
	}

	if err := h.send("set_property", "pause", true); err != nil {
		return nil, fmt.Errorf("cue media: %w", err)
	}
	if err := w.Load(mediaID); err != nil {
		return nil, err
	}
	w.emit(widget.Event{Kind: widget.EventReady})
	return w, nil
}

// Shutdown quits mpv and closes the IPC connection.
func (h *Host) Shutdown() error {
	h.mu.Lock()
	current := h.current
	h.current = nil
	if h.cancel != nil {
		h.cancel()
	}
	if h.conn != nil {
		b, _ := json.Marshal(map[string]any{"command": []any{"quit"}})
		_, _ = h.conn.Write(append(b, '\n'))
		_ = h.conn.Close()
		h.conn = nil
	}
	cmd := h.cmd
	h.cmd = nil
	h.mu.Unlock()

	if current != nil {
		current.detach()
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
	return nil
}

func (h *Host) readLoop() {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn == nil {
		return
	}
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			h.dispatch(widget.Event{Kind: widget.EventError, Err: fmt.Errorf("decode: %w", err)})
			continue
		}
		if evt, ok := translate(msg); ok {
			h.dispatch(evt)
		}
	}
	err := scanner.Err()
	if err == nil {
		err = errors.New("mpv ipc closed")
	}
	h.dispatch(widget.Event{Kind: widget.EventError, Err: err})
}

func (h *Host) dispatch(evt widget.Event) {
	h.mu.Lock()
	w := h.current
	h.mu.Unlock()
	if w == nil {
		return
	}
	w.emit(evt)
}

type ipcMessage struct {
	Event  string `json:"event"`
	Name   string `json:"name"`
	Data   any    `json:"data"`
	Reason    string `json:"reason"`     // end-file: "eof", "stop", "quit", "error", "redirect"
	FileError string `json:"file_error"` // end-file with reason "error"
	Error     string `json:"error"`      // command replies
}

func translate(msg ipcMessage) (widget.Event, bool) {
	switch msg.Event {
	case "property-change":
		switch msg.Name {
		case "pause":
			paused, ok := msg.Data.(bool)
			if !ok {
				return widget.Event{}, false
			}
			if paused {
				return widget.Event{Kind: widget.EventPaused}, true
			}
			return widget.Event{Kind: widget.EventPlaying}, true
		case "volume":
			v, ok := msg.Data.(float64)
			if !ok {
				return widget.Event{}, false
			}
			return widget.Event{Kind: widget.EventVolume, Volume: int(math.Round(v))}, true
		}
	case "end-file":
		// Only eof is a natural end; "stop" is what a loadfile replace produces.
		switch msg.Reason {
		case "eof":
			return widget.Event{Kind: widget.EventEnded}, true
		case widget.ReasonError:
			detail := msg.FileError
			if detail == "" {
				detail = "unknown error"
			}
			return widget.Event{Kind: widget.EventStopped, Reason: widget.ReasonError, Err: fmt.Errorf("mpv: %s", detail)}, true
		}
		return widget.Event{Kind: widget.EventStopped, Reason: msg.Reason}, true
	case "":
		if msg.Error != "" && msg.Error != "success" {
			return widget.Event{Kind: widget.EventError, Err: fmt.Errorf("mpv: %s", msg.Error)}, true
		}
	}
	return widget.Event{}, false
}

// Widget is the mpv playback slot as seen by one adapter.
type Widget struct {
	host   *Host
	events chan widget.Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

var errWidgetClosed = errors.New("player: widget closed")

func (w *Widget) Events() <-chan widget.Event { return w.events }

func (w *Widget) command(args ...any) error {
	w.mu.RLock()
	closed := w.closed
	w.mu.RUnlock()
	if closed {
		return errWidgetClosed
	}
	return w.host.send(args...)
}

func (w *Widget) Load(mediaID string) error {
	url := w.host.MediaURL(mediaID)
	w.host.opts.Logger.Debug("loading media", slog.String("media_id", mediaID), slog.String("url", url))
	return w.command("loadfile", url, "replace")
}

func (w *Widget) Play() error  { return w.command("set_property", "pause", false) }
func (w *Widget) Pause() error { return w.command("set_property", "pause", true) }

func (w *Widget) SetVolume(volume int) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return w.command("set_property", "volume", volume)
}

// Close stops playback and releases the slot.
func (w *Widget) Close() error {
	h := w.host
	h.mu.Lock()
	owner := h.current == w
	if owner {
		h.current = nil
	}
	h.mu.Unlock()
	var err error
	if owner {
		err = h.send("stop")
	}
	w.detach()
	return err
}

func (w *Widget) detach() {
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		w.closed = true
		close(w.events)
		w.mu.Unlock()
	})
}

func (w *Widget) emit(evt widget.Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.events <- evt:
	case <-w.done:
	}
}
