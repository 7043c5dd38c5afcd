// Package app is the terminal front end: a track list wired to the playback
// intent store, the adapter status and the queue.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/discotune/discotune/internal/catalog"
	"github.com/discotune/discotune/internal/config"
	"github.com/discotune/discotune/internal/playback"
	"github.com/discotune/discotune/internal/queue"
	"github.com/discotune/discotune/internal/ui"
)

const statusInterval = 250 * time.Millisecond

// Player is the part of the playback adapter the model needs.
type Player interface {
	Status() playback.Status
	Close()
}

// QueueStore persists the queue between sessions.
type QueueStore interface {
	Save(ctx context.Context, q *queue.Queue, volume int) error
}

// Source produces the track list shown on start and on reload.
type Source struct {
	Name string
	Load func(ctx context.Context) ([]catalog.Track, error)
}

type Options struct {
	Config     *config.Config
	Store      *playback.Store
	Player     Player
	Queue      *queue.Queue
	QueueStore QueueStore // optional
	Source     Source
	Logger     *slog.Logger
	NoColor    bool
}

type Model struct {
	cfg      *config.Config
	store    *playback.Store
	player   Player
	queue    *queue.Queue
	saver    QueueStore
	source   Source
	log      *slog.Logger
	theme    ui.Theme
	commands *CommandRegistry
	diag     *DiagnosticsState

	playerStatus playback.Status
	cursor       int
	filter       *FilterState
	loading      bool
	message      string
	errorMsg     string
	width        int
	height       int
	showHelp     bool
	showDiag     bool
	quitting     bool
}

func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	q := opts.Queue
	if q == nil {
		q = queue.New()
	}
	m := Model{
		cfg:      opts.Config,
		store:    opts.Store,
		player:   opts.Player,
		queue:    q,
		saver:    opts.QueueStore,
		source:   opts.Source,
		log:      logger.With(slog.String("component", "app")),
		theme:    ui.GetTheme(opts.Config.UI.Theme, opts.NoColor, opts.Config.UI.NoEmoji),
		commands: NewCommandRegistry(),
		diag:     NewDiagnosticsState(),
		cursor:   max(q.CurrentIndex(), 0),
		width:    80,
		height:   24,
	}
	m.playerStatus = m.player.Status()
	return m
}

// EndedMsg reports that the media for an intent generation played to its
// natural end.
type EndedMsg struct {
	Generation uint64
}

// NoticeMsg carries a non-fatal playback failure.
type NoticeMsg struct {
	Notice playback.Notice
}

type tracksMsg struct {
	source  string
	tracks  []catalog.Track
	err     error
	latency time.Duration
}

type statusTickMsg time.Time

type clearErrorMsg struct{}

type savedMsg struct {
	err error
}

// Bridge forwards adapter callbacks into a running program. Callbacks that
// arrive before Attach are dropped.
type Bridge struct {
	prog atomic.Pointer[tea.Program]
}

func (b *Bridge) Attach(p *tea.Program) { b.prog.Store(p) }

// OnEnded is suitable for playback.Options.OnEnded.
func (b *Bridge) OnEnded(generation uint64) { b.send(EndedMsg{Generation: generation}) }

// OnNotice is suitable for playback.Options.OnNotice.
func (b *Bridge) OnNotice(n playback.Notice) { b.send(NoticeMsg{Notice: n}) }

// send never blocks the caller: Program.Send waits for the event loop, which
// may itself be waiting on the adapter.
func (b *Bridge) send(msg tea.Msg) {
	if p := b.prog.Load(); p != nil {
		go p.Send(msg)
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tickCmd()}
	if cur, err := m.queue.Current(); err == nil && m.store.Intent().Track == nil {
		// Cue the restored track without playing it.
		m.store.SelectTrack(cur, false)
	}
	if m.queue.Len() == 0 && m.source.Load != nil {
		cmds = append(cmds, m.loadCmd())
	}
	return tea.Batch(cmds...)
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return statusTickMsg(t)
	})
}

func (m Model) loadCmd() tea.Cmd {
	src := m.source
	return func() tea.Msg {
		ctx, cancel := m.cfg.APIContext()
		defer cancel()
		start := time.Now()
		tracks, err := src.Load(ctx)
		return tracksMsg{source: src.Name, tracks: tracks, err: err, latency: time.Since(start)}
	}
}

func (m Model) saveCmd() tea.Cmd {
	if m.saver == nil || !m.cfg.PersistQueue() {
		return nil
	}
	saver, q, volume := m.saver, m.queue, m.store.Intent().Volume
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return savedMsg{err: saver.Save(ctx, q, volume)}
	}
}

func (m Model) clearErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return clearErrorMsg{}
	})
}

func (m Model) setError(text string) (Model, tea.Cmd) {
	m.errorMsg = text
	return m, m.clearErrorCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case statusTickMsg:
		if m.quitting {
			return m, nil
		}
		m.playerStatus = m.player.Status()
		return m, m.tickCmd()
	case clearErrorMsg:
		m.errorMsg = ""
		return m, nil
	case tracksMsg:
		return m.onTracks(msg)
	case EndedMsg:
		return m.onEnded(msg)
	case NoticeMsg:
		m.diag.RecordNotice(msg.Notice)
		m.playerStatus = m.player.Status()
		return m.setError(msg.Notice.Message())
	case savedMsg:
		if msg.err != nil {
			m.log.Warn("saving queue", slog.Any("err", msg.err))
		}
		return m, nil
	case tea.KeyMsg:
		if m.filter != nil {
			return m.updateFilter(msg)
		}
		if cmd, ok := m.commands.Lookup(msg.String()); ok {
			return cmd.Handler(m)
		}
	}
	return m, nil
}

func (m Model) onTracks(msg tracksMsg) (Model, tea.Cmd) {
	m.loading = false
	m.diag.RecordRequest(msg.latency, msg.err)
	if msg.err != nil {
		m.log.Warn("loading tracks", slog.String("source", msg.source), slog.Any("err", msg.err))
		switch {
		case errors.Is(msg.err, catalog.ErrUnauthorized):
			return m.setError("Not logged in: run `discotune login` first")
		case errors.Is(msg.err, catalog.ErrOffline):
			return m.setError("API unreachable: " + m.cfg.API.BaseURL)
		default:
			return m.setError("Loading " + msg.source + " failed: " + msg.err.Error())
		}
	}
	m.queue.Replace(msg.source, msg.tracks)
	m.cursor = 0
	m.message = fmt.Sprintf("%d tracks from %s", len(msg.tracks), msg.source)
	if len(msg.tracks) == 0 {
		m.message = "No tracks found"
	}
	return m, nil
}

// onEnded advances the queue. A selection made after the ended media was
// applied wins.
func (m Model) onEnded(msg EndedMsg) (Model, tea.Cmd) {
	m.diag.RecordEnded()
	m.playerStatus = m.player.Status()
	if msg.Generation != m.store.Intent().Generation {
		return m, nil
	}
	next, err := m.queue.Next()
	if err != nil {
		m.store.SetPlaying(false)
		m.message = "End of queue"
		return m, nil
	}
	m.cursor = m.queue.CurrentIndex()
	m.store.SelectTrack(next, true)
	m.message = "Playing " + next.Label()
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.filter = nil
	case tea.KeyEnter:
		idx, ok := m.filter.Selected()
		m.filter = nil
		if ok {
			m.cursor = idx
			return m.playSelected()
		}
	case tea.KeyUp:
		m.filter.SelectUp()
	case tea.KeyDown:
		m.filter.SelectDown()
	case tea.KeyBackspace:
		m.filter.Backspace()
	case tea.KeySpace:
		m.filter.InsertRunes([]rune{' '})
	case tea.KeyRunes:
		m.filter.InsertRunes(msg.Runes)
	}
	return m, nil
}

func (m Model) moveCursor(delta int) Model {
	if n := m.queue.Len(); n > 0 {
		m.cursor = min(max(m.cursor+delta, 0), n-1)
	}
	return m
}

func (m Model) playSelected() (Model, tea.Cmd) {
	if err := m.queue.SetCurrent(m.cursor); err != nil {
		return m, nil
	}
	track, err := m.queue.Current()
	if err != nil {
		return m, nil
	}
	m.store.SelectTrack(track, true)
	m.message = "Playing " + track.Label()
	return m, nil
}

func (m Model) togglePlaying() (Model, tea.Cmd) {
	if m.store.Intent().Track == nil {
		return m.playSelected()
	}
	m.store.TogglePlaying()
	return m, nil
}

func (m Model) skip() (Model, tea.Cmd) {
	return m.step(m.queue.Skip)
}

func (m Model) previous() (Model, tea.Cmd) {
	return m.step(m.queue.Prev)
}

func (m Model) step(move func() (catalog.Track, error)) (Model, tea.Cmd) {
	track, err := move()
	switch {
	case errors.Is(err, queue.ErrEnd):
		m.message = "End of queue"
		return m, nil
	case err != nil:
		return m, nil
	}
	m.cursor = m.queue.CurrentIndex()
	m.store.SelectTrack(track, true)
	m.message = "Playing " + track.Label()
	return m, nil
}

func (m Model) adjustVolume(dir int) (Model, tea.Cmd) {
	in := m.store.AdjustVolume(dir * m.cfg.Player.VolumeStep)
	m.message = fmt.Sprintf("Volume %d%%", in.Volume)
	return m, nil
}

func (m Model) cycleRepeat() (Model, tea.Cmd) {
	m.message = "Repeat " + m.queue.CycleRepeat().String()
	return m, nil
}

func (m Model) openFilter() (Model, tea.Cmd) {
	if m.queue.Len() == 0 {
		return m, nil
	}
	m.filter = NewFilterState(m.queue.Items())
	return m, nil
}

func (m Model) reload() (Model, tea.Cmd) {
	if m.source.Load == nil || m.loading {
		return m, nil
	}
	m.loading = true
	m.message = "Loading " + m.source.Name + "…"
	return m, m.loadCmd()
}

func (m Model) quit() (Model, tea.Cmd) {
	m.quitting = true
	m.player.Close()
	if save := m.saveCmd(); save != nil {
		return m, tea.Sequence(save, tea.Quit)
	}
	return m, tea.Quit
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showDiag {
		return m.diag.Render(m)
	}
	if m.showHelp {
		return m.helpView()
	}

	var b strings.Builder
	title := "discotune"
	if src := m.queue.Source(); src != "" {
		title += " · " + src
	}
	b.WriteString(m.theme.Title.Render(title))
	b.WriteString("\n\n")

	switch {
	case m.filter != nil:
		b.WriteString(m.filter.Render(m))
	case m.loading && m.queue.Len() == 0:
		b.WriteString(m.theme.Dim.Render("Loading…"))
		b.WriteString("\n")
	case m.queue.Len() == 0:
		b.WriteString(m.theme.Dim.Render("No tracks. Press ctrl+r to reload or ? for help."))
		b.WriteString("\n")
	default:
		b.WriteString(m.listView())
	}

	b.WriteString("\n")
	b.WriteString(m.statusView())
	return b.String()
}

func (m Model) listView() string {
	items := m.queue.Items()
	rows := max(m.height-7, 3)
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(items))

	var selected *catalog.Track
	if in := m.store.Intent(); in.Track != nil {
		selected = in.Track
	}
	line := lipgloss.NewStyle().MaxWidth(m.width)

	var b strings.Builder
	for i := start; i < end; i++ {
		t := items[i]
		prefix := "  "
		if i == m.cursor {
			prefix = m.theme.Highlight.Render(m.theme.Glyphs.Cursor + " ")
		}
		marker := "  "
		style := m.theme.Text
		if selected != nil && selected.Same(t) && i == m.queue.CurrentIndex() {
			marker = m.trackGlyph() + " "
			style = m.theme.Playing
		}
		row := prefix + marker + style.Render(t.Label())
		if t.Genre != "" {
			row += m.theme.Dim.Render("  " + t.Genre)
		}
		b.WriteString(line.Render(row))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) trackGlyph() string {
	st := m.playerStatus
	switch {
	case st.Resolution == playback.ResolutionPending:
		return m.theme.Dim.Render(m.theme.Glyphs.Pending)
	case st.Resolution == playback.ResolutionFailed:
		return m.theme.Error.Render(m.theme.Glyphs.Failed)
	case m.store.Intent().Playing && !st.Ended:
		return m.theme.Accent.Render(m.theme.Glyphs.Playing)
	default:
		return m.theme.Dim.Render(m.theme.Glyphs.Paused)
	}
}

func (m Model) statusView() string {
	st := m.playerStatus
	in := m.store.Intent()

	parts := []string{
		"player " + st.State.String(),
		"media " + st.Resolution.String(),
	}
	if in.Track != nil {
		now := m.trackGlyph() + " " + in.Track.Label()
		if st.Ended {
			now += " (ended)"
		}
		parts = append(parts, now)
	}
	parts = append(parts,
		fmt.Sprintf("vol %d%%", in.Volume),
		"repeat "+m.queue.RepeatMode().String(),
	)

	var b strings.Builder
	b.WriteString(m.theme.StatusBar.Width(max(m.width, 1)).Render(strings.Join(parts, "  ·  ")))
	b.WriteString("\n")
	switch {
	case m.errorMsg != "":
		b.WriteString(m.theme.Error.Render(m.errorMsg))
	case st.LastNotice != nil && (st.Resolution == playback.ResolutionFailed || st.State == playback.StateLoading):
		b.WriteString(m.theme.Warning.Render(st.LastNotice.Message()))
	case m.message != "":
		b.WriteString(m.theme.Dim.Render(m.message))
	default:
		b.WriteString(m.theme.Dim.Render("? for help"))
	}
	return b.String()
}

func (m Model) helpView() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render(" ═══ Keys ═══ "))
	b.WriteString("\n\n")
	for _, c := range m.commands.Commands() {
		keys := make([]string, 0, len(c.Keys))
		for _, k := range c.Keys {
			if k == " " {
				continue
			}
			keys = append(keys, k)
		}
		b.WriteString(m.theme.Accent.Render(fmt.Sprintf("  %-14s", strings.Join(keys, "/"))))
		b.WriteString(m.theme.Text.Render(c.Description))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Dim.Render("  Press ? to close"))
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2).Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
