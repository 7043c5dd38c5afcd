package app

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/discotune/discotune/internal/playback"
)

// DiagnosticsState holds diagnostic metrics for the debug overlay.
type DiagnosticsState struct {
	// API request timing
	LastRequestLatency time.Duration
	RequestCount       int
	TotalRequestTime   time.Duration
	FailedRequests     int

	// Playback
	NoticeCount  map[playback.NoticeKind]int
	LastNotice   string
	LastNoticeAt time.Time
	EndedCount   int

	// App stats
	StartTime      time.Time
	LastUpdate     time.Time
	MemoryUsage    uint64
	GoroutineCount int
}

// NewDiagnosticsState creates a new diagnostics state.
func NewDiagnosticsState() *DiagnosticsState {
	return &DiagnosticsState{
		StartTime:   time.Now(),
		NoticeCount: map[playback.NoticeKind]int{},
	}
}

// RecordRequest records an API request latency.
func (d *DiagnosticsState) RecordRequest(latency time.Duration, err error) {
	d.LastRequestLatency = latency
	d.RequestCount++
	d.TotalRequestTime += latency
	if err != nil {
		d.FailedRequests++
	}
}

// AverageLatency returns the average request latency.
func (d *DiagnosticsState) AverageLatency() time.Duration {
	if d.RequestCount == 0 {
		return 0
	}
	return d.TotalRequestTime / time.Duration(d.RequestCount)
}

func (d *DiagnosticsState) RecordNotice(n playback.Notice) {
	d.NoticeCount[n.Kind]++
	d.LastNotice = n.Error()
	d.LastNoticeAt = time.Now()
}

func (d *DiagnosticsState) RecordEnded() {
	d.EndedCount++
}

// Update refreshes runtime stats.
func (d *DiagnosticsState) Update() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	d.MemoryUsage = m.Alloc
	d.GoroutineCount = runtime.NumGoroutine()
	d.LastUpdate = time.Now()
}

// Uptime returns the application uptime.
func (d *DiagnosticsState) Uptime() time.Duration {
	return time.Since(d.StartTime)
}

// Render renders the diagnostics overlay.
func (d *DiagnosticsState) Render(m Model) string {
	d.Update()

	var b strings.Builder
	b.WriteString(m.theme.Title.Render(" ═══ Diagnostics ═══ "))
	b.WriteString("\n\n")

	b.WriteString(m.theme.Dim.Render("Uptime: "))
	b.WriteString(m.theme.Text.Render(d.Uptime().Round(time.Second).String()))
	b.WriteString("\n\n")

	b.WriteString(m.theme.Accent.Render("Runtime"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Memory: %s\n", formatBytes(d.MemoryUsage))
	fmt.Fprintf(&b, "  Goroutines: %d\n\n", d.GoroutineCount)

	b.WriteString(m.theme.Accent.Render("API"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Requests: %d (%d failed)\n", d.RequestCount, d.FailedRequests)
	if d.RequestCount > 0 {
		fmt.Fprintf(&b, "  Last latency: %s\n", d.LastRequestLatency.Round(time.Millisecond))
		fmt.Fprintf(&b, "  Avg latency: %s\n", d.AverageLatency().Round(time.Millisecond))
	}
	b.WriteString("\n")

	st := m.playerStatus
	b.WriteString(m.theme.Accent.Render("Player"))
	b.WriteString("\n")
	if st.State == playback.StateReady {
		b.WriteString(m.theme.Success.Render("  ● " + st.State.String()))
	} else {
		b.WriteString(m.theme.Warning.Render("  ○ " + st.State.String()))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Resolution: %s\n", st.Resolution)
	if st.MediaID != "" {
		fmt.Fprintf(&b, "  Media: %s\n", st.MediaID)
	}
	if st.Volume >= 0 {
		fmt.Fprintf(&b, "  Volume: %d%%\n", st.Volume)
	}
	fmt.Fprintf(&b, "  Ended: %d\n", d.EndedCount)
	if st.Discarded > 0 {
		fmt.Fprintf(&b, "  Stale lookups dropped: %d\n", st.Discarded)
	}
	for _, kind := range []playback.NoticeKind{
		playback.NoticeResolutionNotFound,
		playback.NoticeResolutionTransport,
		playback.NoticeBootstrapLoad,
		playback.NoticeWidgetCommand,
	} {
		if n := d.NoticeCount[kind]; n > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", kind, n)
		}
	}
	if d.LastNotice != "" && time.Since(d.LastNoticeAt) < 5*time.Minute {
		b.WriteString(m.theme.Error.Render("  Last: " + d.LastNotice))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.theme.Accent.Render("Queue"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Items: %d\n", m.queue.Len())
	fmt.Fprintf(&b, "  Current: %d\n", m.queue.CurrentIndex())
	fmt.Fprintf(&b, "  Repeat: %v\n", m.queue.RepeatMode())

	b.WriteString("\n")
	b.WriteString(m.theme.Dim.Render("Press Ctrl+D to close"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1, 2).
		Width(44).
		Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Right, lipgloss.Top, box)
}

// formatBytes formats bytes as human-readable string.
func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
