package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestGetTheme(t *testing.T) {
	tests := []struct {
		name     string
		noColor  bool
		expected string
	}{
		{"rainbow", false, "rainbow"},
		{"dracula", false, "dracula"},
		{"mono", false, "mono"},
		{"green", false, "green"},
		{"nocolor", false, "nocolor"},
		{"invalid", false, "rainbow"}, // defaults to rainbow
		{"dracula", true, "nocolor"},  // noColor overrides
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			theme := GetTheme(tt.name, tt.noColor, false)
			if theme.Name != tt.expected {
				t.Errorf("GetTheme(%q, %v) = %q, want %q", tt.name, tt.noColor, theme.Name, tt.expected)
			}
		})
	}
}

func TestColoredThemesHaveForeground(t *testing.T) {
	for _, name := range ThemeNames() {
		if name == "nocolor" {
			continue
		}
		theme := GetTheme(name, false, false)
		if theme.Accent.GetForeground() == (lipgloss.NoColor{}) {
			t.Errorf("%s: accent has no color", name)
		}
	}
}

func TestNoColor(t *testing.T) {
	theme := GetTheme("rainbow", true, false)
	if !theme.Title.GetBold() {
		t.Error("NoColor should use bold for title")
	}
	if !theme.Highlight.GetReverse() {
		t.Error("NoColor should reverse highlights")
	}
}

func TestGlyphs(t *testing.T) {
	if g := GetTheme("rainbow", false, true).Glyphs; g.Playing != ">" {
		t.Errorf("plain glyphs = %+v", g)
	}
	if g := GetTheme("rainbow", false, false).Glyphs; g.Playing != "▶" {
		t.Errorf("emoji glyphs = %+v", g)
	}
}

func TestValidTheme(t *testing.T) {
	for _, name := range ThemeNames() {
		if !ValidTheme(name) {
			t.Errorf("ValidTheme(%q) should be true", name)
		}
	}
	if ValidTheme("invalid") {
		t.Error("ValidTheme('invalid') should be false")
	}
	if len(ThemeNames()) != 5 {
		t.Errorf("expected 5 themes, got %v", ThemeNames())
	}
}
