package catalog

import "testing"

func TestTrackKey(t *testing.T) {
	a := Track{Title: "Hey Jude", Artist: "The Beatles", MediaID: "x"}
	b := Track{Title: "Hey Jude", Artist: "The Beatles"}
	c := Track{Title: "Hey Jude", Artist: "Wilson Pickett"}
	if !a.Same(b) {
		t.Error("media id must not take part in identity")
	}
	if a.Same(c) {
		t.Error("different artists must not match")
	}
}

func TestTrackSlug(t *testing.T) {
	tests := map[string]Track{
		"hey-jude-the-beatles":    {Title: "Hey Jude", Artist: "The Beatles"},
		"don-t-stop-me-now-queen": {Title: "Don't Stop Me Now!", Artist: "Queen"},
		"solo":                    {Title: "Solo"},
	}
	for want, tr := range tests {
		if got := tr.Slug(); got != want {
			t.Errorf("Slug(%q) = %q, want %q", tr.Title, got, want)
		}
	}
}

func TestTrackLabel(t *testing.T) {
	if got := (Track{Title: "Intro"}).Label(); got != "Intro" {
		t.Errorf("Label = %q", got)
	}
	if got := (Track{Title: "Intro", Artist: "The xx"}).Label(); got != "Intro — The xx" {
		t.Errorf("Label = %q", got)
	}
}
