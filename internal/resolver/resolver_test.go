package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc, cacheSize int) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL + "/", CacheSize: cacheSize, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func TestResolveSendsQuery(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != lookupPath {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("track_title"); got != "Hey Jude" {
			t.Errorf("track_title = %q", got)
		}
		if got := r.URL.Query().Get("artist"); got != "The Beatles" {
			t.Errorf("artist = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"video_id": "abc123"})
	}, 0)

	id, err := c.Resolve(context.Background(), "Hey Jude", "The Beatles")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "abc123" {
		t.Fatalf("id = %q, want abc123", id)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name          string
		handler       http.HandlerFunc
		wantNotFound  bool
		wantTransport bool
		wantStatus    int
	}{
		{
			name: "missing video id is not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			},
			wantNotFound: true,
		},
		{
			name: "error field is not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"error":"no results"}`))
			},
			wantNotFound: true,
		},
		{
			name: "server error is transport",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte(`{"detail":"upstream quota exceeded"}`))
			},
			wantTransport: true,
			wantStatus:    http.StatusBadGateway,
		},
		{
			name: "404 is transport",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantTransport: true,
			wantStatus:    http.StatusNotFound,
		},
		{
			name: "garbage body is transport",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>`))
			},
			wantTransport: true,
			wantStatus:    http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.handler, 0)
			_, err := c.Resolve(context.Background(), "Song", "")
			if err == nil {
				t.Fatal("expected error")
			}
			if IsNotFound(err) != tt.wantNotFound {
				t.Errorf("IsNotFound = %v for %v", IsNotFound(err), err)
			}
			if IsTransport(err) != tt.wantTransport {
				t.Errorf("IsTransport = %v for %v", IsTransport(err), err)
			}
			var te *TransportError
			if tt.wantTransport && errors.As(err, &te) && te.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", te.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestResolveConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: url})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Resolve(context.Background(), "Song", "Artist")
	if !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if IsNotFound(err) {
		t.Fatal("transport failure must not look like not found")
	}
}

func TestResolveRequiresTitle(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, 0)
	if _, err := c.Resolve(context.Background(), "  ", "Artist"); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("err = %v, want ErrInvalidQuery", err)
	}
}

func TestResolveCacheIsKeyedByExactPair(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		id := r.URL.Query().Get("track_title") + "|" + r.URL.Query().Get("artist")
		json.NewEncoder(w).Encode(map[string]string{"video_id": id})
	}, 8)
	ctx := context.Background()

	first, _ := c.Resolve(ctx, "Hurt", "Nine Inch Nails")
	again, _ := c.Resolve(ctx, "Hurt", "Nine Inch Nails")
	other, _ := c.Resolve(ctx, "Hurt", "Johnny Cash")

	if first != again {
		t.Errorf("cached id differs: %q vs %q", first, again)
	}
	if other == first {
		t.Errorf("different artist returned cached id %q", other)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestResolveNotFoundIsNotCached(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{}`))
	}, 8)
	c.Resolve(context.Background(), "Ghost", "")
	c.Resolve(context.Background(), "Ghost", "")
	if got := hits.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestResolveSharesInFlightLookup(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(`{"video_id":"shared"}`))
	}, 0)

	var wg sync.WaitGroup
	results := make([]string, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Resolve(context.Background(), "Same", "Pair")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, r := range results {
		if r != "shared" {
			t.Errorf("result[%d] = %q", i, r)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestResolveCallerCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	}, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Resolve(ctx, "Slow", "")
	if !IsTransport(err) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want transport deadline", err)
	}
}

func TestResolveRateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"video_id": "id"})
	}))
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL, RatePerSec: 0.5, Burst: 1, Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := c.Resolve(context.Background(), "First", ""); err != nil {
		t.Fatalf("first: %v", err)
	}
	// The next token is two seconds away, past the lookup timeout.
	if _, err := c.Resolve(context.Background(), "Second", ""); !IsTransport(err) {
		t.Fatalf("second err = %v, want transport", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}
