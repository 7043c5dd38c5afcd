// Package resolver maps a (title, artist) pair to a playable media id using the
// discovery API's YouTube lookup.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/discotune/discotune/internal/catalog"
)

const lookupPath = "/track/youtube-track"

var (
	// ErrNotFound means the lookup succeeded but no media exists for the track.
	ErrNotFound = errors.New("resolver: not found")
	// ErrTransport matches every *TransportError.
	ErrTransport     = errors.New("resolver: transport failure")
	ErrInvalidQuery  = errors.New("resolver: title is required")
	errEmptyResponse = errors.New("empty response body")
)

func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsTransport(err error) bool { return errors.Is(err, ErrTransport) }

// TransportError reports a failed request or a non-2xx response.
type TransportError struct {
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("resolver: lookup status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("resolver: lookup failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

//go:generate mockgen -destination=mocks/resolver_mock.go -package=mocks github.com/discotune/discotune/internal/resolver Resolver

// Resolver turns a track into a media id.
type Resolver interface {
	Resolve(ctx context.Context, title, artist string) (string, error)
}

// Options configures Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Timeout    time.Duration
	CacheSize  int     // 0 disables the cache
	RatePerSec float64 // 0 disables rate limiting
	Burst      int
}

// Client resolves media ids over HTTP. Concurrent lookups for the same pair
// share one request and successful results are cached by the exact pair.
type Client struct {
	opts    Options
	client  *http.Client
	cache   *lru.Cache[catalog.Key, string]
	limiter *rate.Limiter
	group   singleflight.Group
}

func New(opts Options) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BaseURL == "" {
		return nil, catalog.ErrInvalidConfig
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	c := &Client{opts: opts, client: opts.HTTPClient}
	if c.client == nil {
		c.client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[catalog.Key, string](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("resolver cache: %w", err)
		}
		c.cache = cache
	}
	if opts.RatePerSec > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	return c, nil
}

// Resolve returns the media id for title/artist. Title must be non-empty;
// artist may be empty.
func (c *Client) Resolve(ctx context.Context, title, artist string) (string, error) {
	title = strings.TrimSpace(title)
	artist = strings.TrimSpace(artist)
	if title == "" {
		return "", ErrInvalidQuery
	}
	key := catalog.Key{Title: title, Artist: artist}
	if c.cache != nil {
		if id, ok := c.cache.Get(key); ok {
			c.opts.Logger.Debug("resolver cache hit", slog.String("title", title), slog.String("artist", artist))
			return id, nil
		}
	}

	// The shared lookup must not die with whichever caller started it.
	ch := c.group.DoChan(title+"\x00"+artist, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.Timeout)
		defer cancel()
		return c.lookup(lookupCtx, title, artist)
	})

	select {
	case <-ctx.Done():
		return "", &TransportError{Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		id := res.Val.(string)
		if c.cache != nil {
			c.cache.Add(key, id)
		}
		return id, nil
	}
}

type lookupResponse struct {
	VideoID string `json:"video_id"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}

func (c *Client) lookup(ctx context.Context, title, artist string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &TransportError{Err: fmt.Errorf("rate limit: %w", err)}
		}
	}
	q := url.Values{}
	q.Set("track_title", title)
	q.Set("artist", artist)
	endpoint := c.opts.BaseURL + lookupPath + "?" + q.Encode()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		c.opts.Logger.Warn("media lookup failed", slog.String("title", title), slog.Any("err", err))
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	var body lookupResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := errors.New(resp.Status)
		if decodeErr == nil && body.Detail != "" {
			reason = errors.New(body.Detail)
		}
		return "", &TransportError{StatusCode: resp.StatusCode, Err: reason}
	}
	if decodeErr != nil {
		if errors.Is(decodeErr, io.EOF) {
			decodeErr = errEmptyResponse
		}
		return "", &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", decodeErr)}
	}
	c.opts.Logger.Debug("media lookup complete",
		slog.String("title", title),
		slog.String("artist", artist),
		slog.String("media_id", body.VideoID),
		slog.Duration("latency", time.Since(start)))
	if body.VideoID == "" {
		if body.Error != "" {
			return "", fmt.Errorf("%w: %s", ErrNotFound, body.Error)
		}
		return "", ErrNotFound
	}
	return body.VideoID, nil
}
