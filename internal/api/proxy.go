package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/doulist-movies/internal/metrics"
	"github.com/JakeFAU/doulist-movies/internal/movie"
)

const (
	defaultProxyTimeout = 15 * time.Second
	defaultImageType    = "image/jpeg"
	imageAccept         = "image/webp,image/apng,image/*,*/*;q=0.8"
	acceptLanguage      = "zh-CN,zh;q=0.9,en;q=0.8"
)

// Waiter throttles upstream requests by URL.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// ProxyOptions controls how upstream images are requested and cached. A nil
// Limiter sends every request immediately; a nil Hasher omits ETag.
type ProxyOptions struct {
	UserAgent    string
	Referer      string
	Timeout      time.Duration
	CacheControl string
	Limiter      Waiter
	Hasher       movie.Hasher
}

// ImageProxy fetches remote images server-side so browsers never see the
// origin's hotlink checks.
type ImageProxy struct {
	fetcher movie.Fetcher
	opts    ProxyOptions
	logger  *zap.Logger
}

// NewImageProxy builds an ImageProxy. Zero options fall back to defaults.
func NewImageProxy(fetcher movie.Fetcher, opts ProxyOptions, logger *zap.Logger) *ImageProxy {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultProxyTimeout
	}
	if opts.CacheControl == "" {
		opts.CacheControl = "public, max-age=86400"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageProxy{fetcher: fetcher, opts: opts, logger: logger}
}

func (p *ImageProxy) headers() http.Header {
	h := http.Header{}
	if p.opts.UserAgent != "" {
		h.Set("User-Agent", p.opts.UserAgent)
	}
	if p.opts.Referer != "" {
		h.Set("Referer", p.opts.Referer)
	}
	h.Set("Accept", imageAccept)
	h.Set("Accept-Language", acceptLanguage)
	return h
}

// ServeHTTP handles GET /api/proxy-image?url=<image_url>.
func (p *ImageProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		metrics.ObserveProxy(metrics.ProxyBadRequest)
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), p.opts.Timeout)
	defer cancel()

	logger := p.logger.With(
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.String("url", target),
	)

	if p.opts.Limiter != nil {
		if err := p.opts.Limiter.Wait(ctx, target); err != nil {
			metrics.ObserveProxy(metrics.ProxyFailed)
			logger.Warn("image proxy throttled", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "image proxy busy")
			return
		}
	}

	resp, err := p.fetcher.Fetch(ctx, movie.FetchRequest{URL: target, Headers: p.headers()})
	switch {
	case movie.IsStatusError(err):
		metrics.ObserveProxy(metrics.ProxyUpstreamErr)
		logger.Warn("upstream image status", zap.Error(err))
		writeError(w, http.StatusNotFound, "failed to fetch image")
		return
	case err != nil:
		metrics.ObserveProxy(metrics.ProxyFailed)
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("upstream image timed out", zap.Duration("timeout", p.opts.Timeout))
		} else {
			logger.Error("fetch image", zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	case resp.StatusCode != http.StatusOK:
		metrics.ObserveProxy(metrics.ProxyUpstreamErr)
		logger.Warn("upstream image status", zap.Int("status", resp.StatusCode))
		writeError(w, http.StatusNotFound, "failed to fetch image")
		return
	}

	metrics.ObserveProxy(metrics.ProxyOK)
	h := w.Header()
	h.Set("Cache-Control", p.opts.CacheControl)
	if p.opts.Hasher != nil {
		etag := p.opts.Hasher.ETag(resp.Body)
		h.Set("ETag", etag)
		if etagMatches(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	h.Set("Content-Type", resp.ContentType(defaultImageType))
	h.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.Body); err != nil {
		logger.Debug("write image", zap.Error(err))
	}
}

// etagMatches applies the weak comparison If-None-Match uses.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
