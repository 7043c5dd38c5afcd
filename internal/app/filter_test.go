package app

import (
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/discotune/discotune/internal/catalog"
)

func TestFilterState(t *testing.T) {
	list := []catalog.Track{
		{Title: "Roads", Artist: "Portishead"},
		{Title: "Teardrop", Artist: "Massive Attack"},
		{Title: "Glory Box", Artist: "Portishead"},
	}

	t.Run("empty query selects from the full list", func(t *testing.T) {
		f := NewFilterState(list)
		f.SelectDown()
		f.SelectDown()
		f.SelectDown()
		if idx, ok := f.Selected(); !ok || idx != 2 {
			t.Fatalf("selected = %d, %v", idx, ok)
		}
	})

	t.Run("query narrows matches", func(t *testing.T) {
		f := NewFilterState(list)
		f.InsertRunes([]rune("tear"))
		if idx, ok := f.Selected(); !ok || idx != 1 {
			t.Fatalf("selected = %d, %v", idx, ok)
		}
	})

	t.Run("no match", func(t *testing.T) {
		f := NewFilterState(list)
		f.InsertRunes([]rune("zzz"))
		if _, ok := f.Selected(); ok {
			t.Fatal("expected no selection")
		}
		f.Backspace()
		f.Backspace()
		f.Backspace()
		if f.Input() != "" {
			t.Fatalf("input = %q", f.Input())
		}
		f.Backspace()
		if _, ok := f.Selected(); !ok {
			t.Fatal("cleared query should select from the list")
		}
	})

	t.Run("select up stops at top", func(t *testing.T) {
		f := NewFilterState(list)
		f.SelectUp()
		if idx, _ := f.Selected(); idx != 0 {
			t.Fatalf("selected = %d", idx)
		}
	})
}

func TestHighlightMatchesWithoutIndexes(t *testing.T) {
	if got := highlightMatches("Roads", nil, lipgloss.NewStyle()); got != "Roads" {
		t.Fatalf("got %q", got)
	}
}

func TestCommandRegistry(t *testing.T) {
	r := NewCommandRegistry()
	if len(r.Commands()) == 0 {
		t.Fatal("expected commands to be registered")
	}
	for _, key := range []string{"enter", " ", "space", "n", "p", "+", "-", "/", "q", "ctrl+c"} {
		if _, ok := r.Lookup(key); !ok {
			t.Errorf("no command bound to %q", key)
		}
	}
	if _, ok := r.Lookup("x"); ok {
		t.Error("unexpected binding for x")
	}
	seen := map[string]string{}
	for _, c := range r.Commands() {
		for _, k := range c.Keys {
			if prev, dup := seen[k]; dup {
				t.Errorf("key %q bound to %s and %s", k, prev, c.Name)
			}
			seen[k] = c.Name
		}
	}
}
