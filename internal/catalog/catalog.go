// Package catalog holds the music domain types shared by the API client, the
// queue and the playback engine.
package catalog

import "strings"

// Track is a playable catalog entry. Resolution identity is the
// (Title, Artist) pair; MediaID is derived and may be empty.
type Track struct {
	// ID is the server id of a playlist entry; zero for chart and search
	// results.
	ID       int    `json:"id,omitempty"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	MediaID  string `json:"media_id,omitempty"`
	Image    string `json:"image,omitempty"`
	URL      string `json:"url,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// Key identifies a track for resolution and de-duplication.
type Key struct {
	Title  string
	Artist string
}

func (t Track) Key() Key {
	return Key{Title: t.Title, Artist: t.Artist}
}

// Same reports whether two tracks resolve to the same media.
func (t Track) Same(o Track) bool {
	return t.Key() == o.Key()
}

// Label is the display form used in lists and the status bar.
func (t Track) Label() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Title + " — " + t.Artist
}

// Slug mirrors the id scheme the web client used for list keys.
func (t Track) Slug() string {
	s := strings.ToLower(t.Title + "-" + t.Artist)
	var b strings.Builder
	dash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

type Playlist struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"` // naive ISO timestamp
	UserID      int     `json:"user_id"`
	IsFavorite  bool    `json:"is_favorite,omitempty"`
	Tracks      []Track `json:"-"`
}

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Registration is the sign-up payload.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// Quiz drives playlist generation from listening preferences.
type Quiz struct {
	Mood            string   `json:"mood"`
	Activity        string   `json:"activity"`
	PreferredGenres []string `json:"preferred_genres"`
	Decade          string   `json:"decade"`
	DiscoveryMode   string   `json:"discovery_mode"`
}
