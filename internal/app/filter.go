package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/discotune/discotune/internal/catalog"
)

const maxFilterRows = 8

// trackSource lets fuzzy search run over track labels without copying them.
type trackSource []catalog.Track

func (s trackSource) String(i int) string { return s[i].Label() }
func (s trackSource) Len() int            { return len(s) }

// FilterState holds the fuzzy track filter.
type FilterState struct {
	input    string
	matches  []fuzzy.Match
	selected int
	tracks   trackSource
}

// NewFilterState creates a filter over tracks.
func NewFilterState(tracks []catalog.Track) *FilterState {
	return &FilterState{tracks: tracks}
}

func (f *FilterState) Input() string { return f.input }

// InsertRunes appends typed characters to the query.
func (f *FilterState) InsertRunes(rs []rune) {
	f.input += string(rs)
	f.updateMatches()
}

// Backspace removes the last character of the query.
func (f *FilterState) Backspace() {
	if f.input == "" {
		return
	}
	rs := []rune(f.input)
	f.input = string(rs[:len(rs)-1])
	f.updateMatches()
}

func (f *FilterState) SelectUp() {
	if f.selected > 0 {
		f.selected--
	}
}

func (f *FilterState) SelectDown() {
	if f.selected < f.count()-1 {
		f.selected++
	}
}

func (f *FilterState) count() int {
	if f.input == "" {
		return len(f.tracks)
	}
	return len(f.matches)
}

// Selected returns the index into the track list of the highlighted match.
func (f *FilterState) Selected() (int, bool) {
	if f.input == "" {
		if f.selected < len(f.tracks) {
			return f.selected, true
		}
		return 0, false
	}
	if f.selected < len(f.matches) {
		return f.matches[f.selected].Index, true
	}
	return 0, false
}

func (f *FilterState) updateMatches() {
	f.selected = 0
	if f.input == "" {
		f.matches = nil
		return
	}
	f.matches = fuzzy.FindFrom(f.input, f.tracks)
}

// Render draws the query line and the best matches.
func (f *FilterState) Render(m Model) string {
	var b strings.Builder
	b.WriteString(m.theme.Accent.Render("/"))
	b.WriteString(m.theme.Text.Render(f.input + "│"))
	b.WriteString("\n")

	if f.input != "" && len(f.matches) == 0 {
		b.WriteString(m.theme.Dim.Render("  No matching tracks"))
		b.WriteString("\n")
	}

	start := 0
	if f.selected >= maxFilterRows {
		start = f.selected - maxFilterRows + 1
	}
	end := min(start+maxFilterRows, f.count())
	for i := start; i < end; i++ {
		var label string
		if f.input == "" {
			label = f.tracks[i].Label()
		} else {
			match := f.matches[i]
			label = highlightMatches(match.Str, match.MatchedIndexes, m.theme.Accent)
		}
		if i == f.selected {
			b.WriteString(m.theme.Highlight.Render(" " + m.theme.Glyphs.Cursor + " "))
			b.WriteString(m.theme.Text.Bold(true).Render(label))
		} else {
			b.WriteString("   " + m.theme.Text.Render(label))
		}
		b.WriteString("\n")
	}
	b.WriteString(m.theme.Dim.Render("  ↑↓ navigate  Enter play  Esc close"))
	return b.String()
}

// highlightMatches highlights matched characters in a string. indices are
// byte offsets as reported by fuzzy.
func highlightMatches(s string, indices []int, style lipgloss.Style) string {
	if len(indices) == 0 {
		return s
	}
	matchSet := make(map[int]bool, len(indices))
	for _, idx := range indices {
		matchSet[idx] = true
	}
	var result strings.Builder
	for i, ch := range s {
		if matchSet[i] {
			result.WriteString(style.Render(string(ch)))
		} else {
			result.WriteRune(ch)
		}
	}
	return result.String()
}
