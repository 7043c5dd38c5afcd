// Package api talks to the discovery backend: charts, search, AI playlist
// generation, saved playlists and authentication.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/discotune/discotune/internal/catalog"
)

var (
	ErrUnauthorized = catalog.ErrUnauthorized
	ErrNotFound     = catalog.ErrNotFound
)

// StatusError is a non-2xx response, or a 2xx body that carried an error.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Detail)
}

type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Timeout    time.Duration
}

type Client struct {
	base   string
	token  string
	client *http.Client
	log    *slog.Logger
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, catalog.ErrInvalidConfig
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrInvalidConfig, err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	c := &Client{
		base:   strings.TrimRight(opts.BaseURL, "/"),
		token:  opts.Token,
		client: opts.HTTPClient,
		log:    opts.Logger,
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: opts.Timeout}
	}
	return c, nil
}

// SetToken replaces the bearer token used for authenticated calls.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) BaseURL() string { return c.base }

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("api request failed", slog.String("method", method), slog.String("path", path), slog.Any("err", err))
		return mapTransportError(err)
	}
	defer resp.Body.Close()
	c.log.Debug("api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	// The backend reports some failures as 200 {"error": "..."}.
	var failure struct {
		Error string `json:"error"`
	}
	if trimmed := bytes.TrimSpace(raw); trimmed[0] == '{' && json.Unmarshal(trimmed, &failure) == nil && failure.Error != "" {
		return &StatusError{StatusCode: resp.StatusCode, Detail: failure.Error}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, in, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, bytes.NewReader(b), "application/json", out)
}

func statusError(code int, raw []byte) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return catalog.ErrRateLimited
	}
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	detail := ""
	if json.Unmarshal(raw, &body) == nil && len(body.Detail) > 0 {
		var s string
		if json.Unmarshal(body.Detail, &s) == nil {
			detail = s
		} else {
			// Validation errors come back as a list.
			detail = string(body.Detail)
		}
	}
	return &StatusError{StatusCode: code, Detail: detail}
}

func mapTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", catalog.ErrOffline, err)
}

// wireTrack accepts both the Last.fm ("name") and AI ("title") track shapes.
type wireTrack struct {
	ID       int    `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist"`
	URL      string `json:"url,omitempty"`
	Image    string `json:"image,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Duration string `json:"duration,omitempty"`
}

func (w wireTrack) track(genre string) catalog.Track {
	t := catalog.Track{
		ID:       w.ID,
		Title:    w.Title,
		Artist:   w.Artist,
		URL:      w.URL,
		Image:    w.Image,
		Genre:    w.Genre,
		Duration: w.Duration,
	}
	if t.Title == "" {
		t.Title = w.Name
	}
	if t.Genre == "" {
		t.Genre = genre
	}
	return t
}

func toTracks(in []wireTrack, genre string) []catalog.Track {
	out := make([]catalog.Track, 0, len(in))
	for _, w := range in {
		t := w.track(genre)
		if strings.TrimSpace(t.Title) == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

func fromTracks(in []catalog.Track) []wireTrack {
	out := make([]wireTrack, len(in))
	for i, t := range in {
		out[i] = wireTrack{Name: t.Title, Artist: t.Artist, URL: t.URL}
	}
	return out
}

type searchResponse struct {
	Results []wireTrack `json:"results"`
	Total   *int        `json:"total,omitempty"`
}

// TopTracks returns the Last.fm chart.
func (c *Client) TopTracks(ctx context.Context) ([]catalog.Track, error) {
	var resp searchResponse
	if err := c.getJSON(ctx, "/lastfm-top-tracks", &resp); err != nil {
		return nil, err
	}
	return toTracks(resp.Results, "all"), nil
}

func (c *Client) Search(ctx context.Context, q string) ([]catalog.Track, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, catalog.ErrInvalidInput
	}
	var resp searchResponse
	if err := c.getJSON(ctx, "/search?"+url.Values{"q": {q}}.Encode(), &resp); err != nil {
		return nil, err
	}
	return toTracks(resp.Results, ""), nil
}

func (c *Client) Genre(ctx context.Context, genre string) ([]catalog.Track, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return nil, catalog.ErrInvalidInput
	}
	var resp []wireTrack
	if err := c.getJSON(ctx, "/genre/"+url.PathEscape(genre), &resp); err != nil {
		return nil, err
	}
	return toTracks(resp, genre), nil
}

func (c *Client) GenerateFromPrompt(ctx context.Context, prompt string) ([]catalog.Track, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, catalog.ErrInvalidInput
	}
	var resp []wireTrack
	if err := c.postJSON(ctx, "/ai/playlist-from-prompt", map[string]string{"prompt": prompt}, &resp); err != nil {
		return nil, err
	}
	return toTracks(resp, "unknown"), nil
}

func (c *Client) GenerateFromQuiz(ctx context.Context, quiz catalog.Quiz) ([]catalog.Track, error) {
	if quiz.PreferredGenres == nil {
		quiz.PreferredGenres = []string{}
	}
	var resp []wireTrack
	if err := c.postJSON(ctx, "/ai/playlist-from-quiz", quiz, &resp); err != nil {
		return nil, err
	}
	return toTracks(resp, "unknown"), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for a bearer token and starts using it.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{"username": {username}, "password": {password}}
	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &resp)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", errors.New("api: empty token")
	}
	c.token = resp.AccessToken
	return resp.AccessToken, nil
}

// Register creates an account. The backend answers with a token which is
// returned when present.
func (c *Client) Register(ctx context.Context, r catalog.Registration) (string, error) {
	var resp tokenResponse
	if err := c.postJSON(ctx, "/auth/register", r, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken != "" {
		c.token = resp.AccessToken
	}
	return resp.AccessToken, nil
}

func (c *Client) Me(ctx context.Context) (catalog.User, error) {
	var u catalog.User
	if c.token == "" {
		return u, ErrUnauthorized
	}
	err := c.getJSON(ctx, "/auth/me", &u)
	return u, err
}

type wirePlaylist struct {
	catalog.Playlist
	Tracks []wireTrack `json:"tracks"`
}

func (w wirePlaylist) playlist() catalog.Playlist {
	p := w.Playlist
	p.Tracks = toTracks(w.Tracks, "")
	return p
}

func (c *Client) Playlists(ctx context.Context) ([]catalog.Playlist, error) {
	var resp []wirePlaylist
	if err := c.getJSON(ctx, "/playlists", &resp); err != nil {
		return nil, err
	}
	out := make([]catalog.Playlist, len(resp))
	for i, p := range resp {
		out[i] = p.playlist()
	}
	return out, nil
}

func (c *Client) CreatePlaylist(ctx context.Context, name, description string, tracks []catalog.Track) (catalog.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.Playlist{}, catalog.ErrInvalidInput
	}
	body := map[string]any{
		"name":        name,
		"description": description,
		"tracks":      fromTracks(tracks),
	}
	var resp wirePlaylist
	if err := c.postJSON(ctx, "/playlists", body, &resp); err != nil {
		return catalog.Playlist{}, err
	}
	return resp.playlist(), nil
}

func (c *Client) AddTracks(ctx context.Context, playlistID int, tracks []catalog.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	path := "/playlists/" + strconv.Itoa(playlistID) + "/tracks"
	return c.postJSON(ctx, path, map[string]any{"tracks": fromTracks(tracks)}, &json.RawMessage{})
}

// UpdatePlaylist renames a playlist. A nil description leaves it unchanged.
func (c *Client) UpdatePlaylist(ctx context.Context, playlistID int, name string, description *string) (catalog.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.Playlist{}, catalog.ErrInvalidInput
	}
	body := map[string]any{"name": name}
	if description != nil {
		body["description"] = *description
	}
	var resp wirePlaylist
	if err := c.sendJSON(ctx, http.MethodPut, "/playlists/"+strconv.Itoa(playlistID), body, &resp); err != nil {
		return catalog.Playlist{}, err
	}
	return resp.playlist(), nil
}

// RemoveTrack deletes one entry, by its server id, from a playlist.
func (c *Client) RemoveTrack(ctx context.Context, playlistID, trackID int) error {
	path := "/playlists/" + strconv.Itoa(playlistID) + "/tracks/" + strconv.Itoa(trackID)
	return c.do(ctx, http.MethodDelete, path, nil, "", nil)
}

func (c *Client) DeletePlaylist(ctx context.Context, playlistID int) error {
	return c.do(ctx, http.MethodDelete, "/playlists/"+strconv.Itoa(playlistID), nil, "", nil)
}
