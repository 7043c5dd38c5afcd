// Package ui holds the lipgloss styles and glyphs shared by the TUI.
package ui

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Name      string
	Accent    lipgloss.Style
	Dim       lipgloss.Style
	Text      lipgloss.Style
	Title     lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Border    lipgloss.Style
	Highlight lipgloss.Style
	// Playing marks the row of the selected track.
	Playing lipgloss.Style
	// StatusBar frames the bottom line with the player state.
	StatusBar lipgloss.Style
	Glyphs    Glyphs
}

// Glyphs are the symbols drawn next to tracks and in the status bar.
type Glyphs struct {
	Playing string
	Paused  string
	Pending string
	Failed  string
	Cursor  string
}

var (
	emojiGlyphs = Glyphs{Playing: "▶", Paused: "⏸", Pending: "…", Failed: "✗", Cursor: "›"}
	plainGlyphs = Glyphs{Playing: ">", Paused: "=", Pending: "~", Failed: "x", Cursor: ">"}
)

type palette struct {
	accent, dim, text, title, err, ok, warn, border, highlight string
}

var palettes = map[string]palette{
	"rainbow": {
		accent: "#FF6FF7", dim: "#6C6F93", text: "#E6E6FA", title: "#8EEBFF",
		err: "#FF5F56", ok: "#5CFF5C", warn: "#FFD166", border: "#7C7CFF", highlight: "#FFA7C4",
	},
	"dracula": {
		accent: "#FF79C6", dim: "#6272A4", text: "#F8F8F2", title: "#BD93F9",
		err: "#FF5555", ok: "#50FA7B", warn: "#FFB86C", border: "#6272A4", highlight: "#8BE9FD",
	},
	"green": {
		accent: "#00FF00", dim: "#005500", text: "#00CC00", title: "#00FF00",
		err: "#00FF00", ok: "#00FF00", warn: "#00CC00", border: "#008800", highlight: "#00FF00",
	},
	"mono": {
		accent: "#FFFFFF", dim: "#666666", text: "#CCCCCC", title: "#FFFFFF",
		err: "#FFFFFF", ok: "#CCCCCC", warn: "#AAAAAA", border: "#888888", highlight: "#FFFFFF",
	},
}

// ThemeNames returns the available theme names in sorted order.
func ThemeNames() []string {
	names := []string{"nocolor"}
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidTheme returns true if the theme name is known.
func ValidTheme(name string) bool {
	if name == "nocolor" {
		return true
	}
	_, ok := palettes[name]
	return ok
}

// GetTheme returns a theme by name, falling back to rainbow. noColor forces
// the attribute-only theme regardless of name.
func GetTheme(name string, noColor, noEmoji bool) Theme {
	glyphs := emojiGlyphs
	if noEmoji {
		glyphs = plainGlyphs
	}
	if noColor || name == "nocolor" {
		return NoColor(glyphs)
	}
	p, ok := palettes[name]
	if !ok {
		name, p = "rainbow", palettes["rainbow"]
	}
	return fromPalette(name, p, glyphs)
}

func fromPalette(name string, p palette, glyphs Glyphs) Theme {
	fg := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	return Theme{
		Name:      name,
		Accent:    fg(p.accent).Bold(true),
		Dim:       fg(p.dim),
		Text:      fg(p.text),
		Title:     fg(p.title).Bold(true),
		Error:     fg(p.err).Bold(true),
		Success:   fg(p.ok).Bold(true),
		Warning:   fg(p.warn).Bold(true),
		Border:    fg(p.border),
		Highlight: fg(p.highlight).Bold(true),
		Playing:   fg(p.accent).Bold(true),
		StatusBar: fg(p.text).Border(lipgloss.NormalBorder(), true, false, false, false).BorderForeground(lipgloss.Color(p.border)),
		Glyphs:    glyphs,
	}
}

// NoColor is a high-contrast theme for NO_COLOR environments.
// Uses only bold, underline, and reverse instead of colors.
func NoColor(glyphs Glyphs) Theme {
	reset := lipgloss.NewStyle()
	return Theme{
		Name:      "nocolor",
		Accent:    reset.Bold(true),
		Dim:       reset,
		Text:      reset,
		Title:     reset.Bold(true),
		Error:     reset.Bold(true),
		Success:   reset.Bold(true),
		Warning:   reset.Bold(true),
		Border:    reset,
		Highlight: reset.Reverse(true),
		Playing:   reset.Bold(true).Underline(true),
		StatusBar: reset.Border(lipgloss.NormalBorder(), true, false, false, false),
		Glyphs:    glyphs,
	}
}
