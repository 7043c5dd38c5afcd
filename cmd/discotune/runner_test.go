package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/discotune/discotune/internal/app"
	"github.com/discotune/discotune/internal/catalog"
	"github.com/discotune/discotune/internal/config"
)

type testEnv struct {
	runner *Runner
	out    *bytes.Buffer
	tui    []app.Source
	restos []bool
}

func newTestEnv(t *testing.T, handler http.Handler, input string) *testEnv {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	persist := false
	cfg := &config.Config{
		API:    config.APIConfig{BaseURL: srv.URL, TimeoutMs: 2000},
		Player: config.PlayerConfig{MPVPath: "mpv", VolumeStep: 5},
		Queue:  config.QueueConfig{Persist: &persist},
	}
	env := &testEnv{out: &bytes.Buffer{}}
	env.runner = NewRunner(RunnerOpts{
		Config:   cfg,
		StateDir: t.TempDir(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Output:   env.out,
		Input:    strings.NewReader(input),
	})
	env.runner.tui = func(_ context.Context, src app.Source, restore bool) error {
		env.tui = append(env.tui, src)
		env.restos = append(env.restos, restore)
		return nil
	}
	return env
}

func (e *testEnv) run(args ...string) error {
	return newApp(e.runner).Run(context.Background(), append([]string{"discotune"}, args...))
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func chartHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/lastfm-top-tracks", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"name": "Roads", "artist": "Portishead", "url": "https://last.fm/roads"},
				{"name": "Teardrop", "artist": "Massive Attack"},
			},
		})
	})
	mux.HandleFunc("/genre/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{
			{"title": "So What", "artist": "Miles Davis"},
		})
	})
	return mux
}

func TestTrendingList(t *testing.T) {
	env := newTestEnv(t, chartHandler(), "")
	if err := env.run("trending", "--list"); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := env.out.String()
	for _, want := range []string{"TITLE", "Roads", "Portishead", "Teardrop"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if len(env.tui) != 0 {
		t.Fatal("--list opened the player")
	}
}

func TestTrendingJSON(t *testing.T) {
	env := newTestEnv(t, chartHandler(), "")
	if err := env.run("trending", "--json"); err != nil {
		t.Fatalf("run: %v", err)
	}
	var tracks []catalog.Track
	if err := json.Unmarshal(env.out.Bytes(), &tracks); err != nil {
		t.Fatalf("decode: %v\n%s", err, env.out.String())
	}
	if len(tracks) != 2 || tracks[0].Title != "Roads" {
		t.Fatalf("tracks = %+v", tracks)
	}
}

func TestCommandsOpenPlayer(t *testing.T) {
	env := newTestEnv(t, chartHandler(), "")

	if err := env.run(); err != nil {
		t.Fatalf("default: %v", err)
	}
	if err := env.run("genre", "jazz"); err != nil {
		t.Fatalf("genre: %v", err)
	}
	if len(env.tui) != 2 {
		t.Fatalf("tui calls = %d", len(env.tui))
	}
	if env.tui[0].Name != "trending" || !env.restos[0] {
		t.Errorf("default source = %q restore=%v", env.tui[0].Name, env.restos[0])
	}
	if env.tui[1].Name != "genre:jazz" || env.restos[1] {
		t.Errorf("genre source = %q restore=%v", env.tui[1].Name, env.restos[1])
	}
	tracks, err := env.tui[1].Load(context.Background())
	if err != nil || len(tracks) != 1 || tracks[0].Genre != "jazz" {
		t.Fatalf("genre load = %+v, %v", tracks, err)
	}
}

func TestMissingArguments(t *testing.T) {
	env := newTestEnv(t, chartHandler(), "")
	for _, args := range [][]string{{"genre"}, {"search"}, {"generate"}, {"import"}, {"playlists", "add", "--title", "t", "x"}} {
		if err := env.run(args...); !errors.Is(err, catalog.ErrInvalidInput) {
			t.Errorf("%v: err = %v", args, err)
		}
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("username") != "alice" || r.Form.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": token, "token_type": "bearer"})
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id": "1", "username": "alice", "email": "alice@example.com", "first_name": "Alice",
		})
	})
	env := newTestEnv(t, mux, "alice\nsecret\n")

	if err := env.run("login"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(env.out.String(), "Logged in as alice") {
		t.Fatalf("output = %q", env.out.String())
	}
	if _, err := os.Stat(filepath.Join(env.runner.stateDir, "token")); err != nil {
		t.Fatalf("token not saved: %v", err)
	}

	env.out.Reset()
	if err := env.run("whoami"); err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(env.out.String(), "alice@example.com") || !strings.Contains(env.out.String(), "Session expires") {
		t.Fatalf("whoami output = %q", env.out.String())
	}

	env.out.Reset()
	if err := env.run("logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	env.out.Reset()
	if err := env.run("whoami"); err != nil {
		t.Fatalf("whoami after logout: %v", err)
	}
	if !strings.Contains(env.out.String(), "Not logged in") {
		t.Fatalf("output = %q", env.out.String())
	}
}

func TestLoginRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	env := newTestEnv(t, mux, "")
	err := env.run("login", "-u", "alice", "-p", "wrong")
	if err == nil || !strings.Contains(err.Error(), "wrong username or password") {
		t.Fatalf("err = %v", err)
	}
}

func TestPlaylists(t *testing.T) {
	var added []map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /playlists", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{{
			"id": 4, "name": "Night drive", "user_id": 1, "created_at": "2024-05-01T10:00:00",
			"tracks": []map[string]string{{"title": "Roads", "artist": "Portishead"}},
		}})
	})
	mux.HandleFunc("POST /playlists/4/tracks", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Tracks []map[string]string `json:"tracks"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		added = append(added, body.Tracks...)
		w.Write([]byte(`{"ok":true}`))
	})
	env := newTestEnv(t, mux, "")

	if err := env.run("playlists"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(env.out.String(), "Night drive") {
		t.Fatalf("output = %q", env.out.String())
	}
	if err := env.run("playlists", "add", "--title", "Teardrop", "--artist", "Massive Attack", "4"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(added) != 1 || added[0]["name"] != "Teardrop" {
		t.Fatalf("added = %+v", added)
	}

	if err := env.run("playlists", "play", "4"); err != nil {
		t.Fatalf("play: %v", err)
	}
	tracks, err := env.tui[0].Load(context.Background())
	if err != nil || len(tracks) != 1 || tracks[0].Title != "Roads" {
		t.Fatalf("playlist load = %+v, %v", tracks, err)
	}
	if err := env.run("playlists", "play", "--list", "9"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("missing playlist err = %v", err)
	}
}

func TestImportList(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "Portishead - Roads.mp3"), []byte("x"), 0o644)
	env := newTestEnv(t, http.NotFoundHandler(), "")
	if err := env.run("import", "--list", dir); err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(env.out.String(), "Roads") {
		t.Fatalf("output = %q", env.out.String())
	}
}

func TestDoctor(t *testing.T) {
	orig := lookPath
	lookPath = func(file string) (string, error) {
		if file == "mpv" {
			return "/usr/bin/mpv", nil
		}
		return "", errors.New("not found")
	}
	t.Cleanup(func() { lookPath = orig })

	env := newTestEnv(t, chartHandler(), "")
	if err := env.run("doctor"); err != nil {
		t.Fatalf("doctor: %v", err)
	}
	out := env.out.String()
	for _, want := range []string{"mpv: OK (/usr/bin/mpv)", "yt-dlp: NOT FOUND", "OK (2 top tracks", "Session: not logged in", "Queue: not persisted"} {
		if !strings.Contains(out, want) {
			t.Errorf("doctor output missing %q:\n%s", want, out)
		}
	}
}

func TestPlaylistsRenameAndRemove(t *testing.T) {
	var (
		renamed map[string]any
		removed string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /playlists", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{{
			"id": 4, "name": "Night drive", "user_id": 1,
			"tracks": []map[string]any{{"id": 17, "playlist_id": 4, "name": "Roads", "artist": "Portishead"}},
		}})
	})
	mux.HandleFunc("PUT /playlists/4", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&renamed)
		json.NewEncoder(w).Encode(map[string]any{"id": 4, "name": renamed["name"], "user_id": 1})
	})
	mux.HandleFunc("DELETE /playlists/4/tracks/17", func(w http.ResponseWriter, r *http.Request) {
		removed = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	env := newTestEnv(t, mux, "")

	if err := env.run("playlists", "show", "4"); err != nil {
		t.Fatalf("show: %v", err)
	}
	if out := env.out.String(); !strings.Contains(out, "17") || !strings.Contains(out, "Roads") {
		t.Fatalf("show output = %q", out)
	}

	if err := env.run("playlists", "rename", "--name", "Late drive", "4"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed["name"] != "Late drive" {
		t.Fatalf("renamed = %v", renamed)
	}
	if _, ok := renamed["description"]; ok {
		t.Fatalf("description sent without flag: %v", renamed)
	}
	if !strings.Contains(env.out.String(), `Renamed playlist 4 to "Late drive"`) {
		t.Fatalf("output = %q", env.out.String())
	}

	if err := env.run("playlists", "remove", "4", "17"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed != "/playlists/4/tracks/17" {
		t.Fatalf("removed = %q", removed)
	}
	if err := env.run("playlists", "remove", "4", "x"); !errors.Is(err, catalog.ErrInvalidInput) {
		t.Fatalf("bad track id err = %v", err)
	}
	if err := env.run("playlists", "show", "9"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("missing playlist err = %v", err)
	}
}
