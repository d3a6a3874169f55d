package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/doulist-movies/internal/movie"
)

func proxyTarget(raw string) string {
	return "/api/proxy-image?url=" + url.QueryEscape(raw)
}

func TestProxyImageMissingURL(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t, seededOpener(t)), http.MethodGet, "/api/proxy-image")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"missing url parameter"}`, rec.Body.String())
}

func TestProxyImageRelaysUpstream(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		headers http.Header
	)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = r.Header.Clone()
		mu.Unlock()
		switch r.URL.Path {
		case "/poster.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("PNGDATA"))
		case "/bare":
			w.Header()["Content-Type"] = nil
			_, _ = w.Write([]byte{0xff, 0xd8})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(upstream.Close)

	srv := newTestServer(t, seededOpener(t))

	rec := do(t, srv, http.MethodGet, proxyTarget(upstream.URL+"/poster.png"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PNGDATA", rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, proxyTarget(upstream.URL+"/poster.png"), nil)
	req.Header.Set("If-None-Match", "W/"+etag)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	mu.Lock()
	assert.Equal(t, "https://movie.douban.com/", headers.Get("Referer"))
	assert.Equal(t, "movies-test", headers.Get("User-Agent"))
	assert.Equal(t, imageAccept, headers.Get("Accept"))
	mu.Unlock()

	rec = do(t, srv, http.MethodGet, proxyTarget(upstream.URL+"/bare"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultImageType, rec.Header().Get("Content-Type"))

	rec = do(t, srv, http.MethodGet, proxyTarget(upstream.URL+"/missing.jpg"))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"failed to fetch image"}`, rec.Body.String())
}

type fetcherFunc func(ctx context.Context, req movie.FetchRequest) (movie.FetchResponse, error)

func (f fetcherFunc) Fetch(ctx context.Context, req movie.FetchRequest) (movie.FetchResponse, error) {
	return f(ctx, req)
}

func TestImageProxyErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fetch    fetcherFunc
		wantCode int
		wantBody string
	}{
		{
			name: "transport failure",
			fetch: func(context.Context, movie.FetchRequest) (movie.FetchResponse, error) {
				return movie.FetchResponse{}, errors.New("connection refused")
			},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"connection refused"}`,
		},
		{
			name: "non-200 without error",
			fetch: func(context.Context, movie.FetchRequest) (movie.FetchResponse, error) {
				return movie.FetchResponse{StatusCode: http.StatusNoContent}, nil
			},
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"failed to fetch image"}`,
		},
		{
			name: "upstream status error",
			fetch: func(_ context.Context, req movie.FetchRequest) (movie.FetchResponse, error) {
				return movie.FetchResponse{}, &movie.StatusError{URL: req.URL, Code: http.StatusForbidden}
			},
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"failed to fetch image"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewImageProxy(tt.fetch, ProxyOptions{}, nil)
			rec := httptest.NewRecorder()
			p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, proxyTarget("https://img.example/p.jpg"), nil))
			require.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestImageProxyAppliesTimeout(t *testing.T) {
	t.Parallel()

	var deadline time.Time
	p := NewImageProxy(fetcherFunc(func(ctx context.Context, _ movie.FetchRequest) (movie.FetchResponse, error) {
		deadline, _ = ctx.Deadline()
		return movie.FetchResponse{StatusCode: http.StatusOK, Body: []byte("x")}, nil
	}), ProxyOptions{Timeout: time.Minute}, nil)

	start := time.Now()
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, proxyTarget("https://img.example/p.jpg"), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.WithinDuration(t, start.Add(time.Minute), deadline, 5*time.Second)
}

type waiterFunc func(ctx context.Context, rawURL string) error

func (f waiterFunc) Wait(ctx context.Context, rawURL string) error { return f(ctx, rawURL) }

func TestImageProxyThrottled(t *testing.T) {
	t.Parallel()

	fetched := false
	p := NewImageProxy(fetcherFunc(func(context.Context, movie.FetchRequest) (movie.FetchResponse, error) {
		fetched = true
		return movie.FetchResponse{StatusCode: http.StatusOK}, nil
	}), ProxyOptions{Limiter: waiterFunc(func(context.Context, string) error {
		return context.DeadlineExceeded
	})}, nil)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, proxyTarget("https://img.example/p.jpg"), nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"image proxy busy"}`, rec.Body.String())
	assert.False(t, fetched)
}

func TestETagMatches(t *testing.T) {
	t.Parallel()

	const tag = `"abc"`
	assert.False(t, etagMatches("", tag))
	assert.True(t, etagMatches(`"abc"`, tag))
	assert.True(t, etagMatches(`"zzz", W/"abc"`, tag))
	assert.True(t, etagMatches("*", tag))
	assert.False(t, etagMatches(`"abd"`, tag))
}
