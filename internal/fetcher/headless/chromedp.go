// Package headless renders listing pages in headless Chrome for markup that
// only appears after scripts run.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/doulist-movies/internal/movie"
)

const (
	// DefaultItemSelector matches one movie entry on a listing page.
	DefaultItemSelector = "div.doulist-item"

	defaultNavTimeout   = 45 * time.Second
	defaultReadyTimeout = 5 * time.Second
)

// ErrClosed is returned by Fetch after Close.
var ErrClosed = errors.New("headless fetcher closed")

// Config controls the behavior of the headless fetcher.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	// ReadyTimeout bounds the wait for ItemSelector once the page has loaded.
	// A page that never shows an item is returned as rendered.
	ReadyTimeout time.Duration
	ItemSelector string
}

// Fetcher implements movie.Fetcher with a single headless Chrome tab that is
// reused for every page of a scrape. Fetches are serialized.
type Fetcher struct {
	cfg Config

	mu          sync.Mutex
	closed      bool
	started     bool
	allocCancel context.CancelFunc
	tab         context.Context
	tabCancel   context.CancelFunc
	status      *pageStatus
}

var _ movie.Fetcher = (*Fetcher)(nil)

// NewChromedp prepares a browser allocator. Chrome is started by the first Fetch.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.NavigationTimeout < 0 || cfg.ReadyTimeout < 0 {
		return nil, errors.New("headless timeouts must be >= 0")
	}
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if cfg.ItemSelector == "" {
		cfg.ItemSelector = DefaultItemSelector
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tab, tabCancel := chromedp.NewContext(allocCtx)

	status := &pageStatus{}
	chromedp.ListenTarget(tab, status.observe)

	return &Fetcher{
		cfg:         cfg,
		allocCancel: allocCancel,
		tab:         tab,
		tabCancel:   tabCancel,
		status:      status,
	}, nil
}

// Close shuts the tab and the browser. It is safe to call more than once.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.tabCancel()
	f.allocCancel()
	return nil
}

// Fetch loads request.URL in the shared tab and returns the rendered DOM.
func (f *Fetcher) Fetch(ctx context.Context, request movie.FetchRequest) (movie.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return movie.FetchResponse{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return movie.FetchResponse{}, err
	}
	// The browser lives as long as the context of the first Run, so it is
	// started on the tab itself rather than under a navigation deadline.
	if !f.started {
		if err := chromedp.Run(f.tab); err != nil {
			return movie.FetchResponse{}, fmt.Errorf("start browser: %w", err)
		}
		f.started = true
	}

	navCtx, cancel := context.WithTimeout(f.tab, f.cfg.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	f.status.reset()
	start := time.Now()

	var finalURL string
	err := chromedp.Run(navCtx,
		f.headerAction(request.Headers),
		chromedp.Navigate(request.URL),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return movie.FetchResponse{}, navError(ctx, err)
	}

	code, docURL := f.status.result()
	if docURL == "" {
		docURL = finalURL
	}
	if code >= http.StatusBadRequest {
		return movie.FetchResponse{}, &movie.StatusError{URL: docURL, Code: code}
	}

	if err := f.awaitItems(navCtx); err != nil {
		return movie.FetchResponse{}, navError(ctx, err)
	}

	var html string
	if err := chromedp.Run(navCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return movie.FetchResponse{}, navError(ctx, err)
	}

	return movie.FetchResponse{
		URL:        docURL,
		StatusCode: code,
		Headers:    http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:       []byte(html),
		Duration:   time.Since(start),
	}, nil
}

// awaitItems waits for the first listing entry. Running out of ReadyTimeout
// is not an error: past the last page there is nothing to wait for.
func (f *Fetcher) awaitItems(navCtx context.Context) error {
	readyCtx, cancel := context.WithTimeout(navCtx, f.cfg.ReadyTimeout)
	defer cancel()
	err := chromedp.Run(readyCtx, chromedp.WaitReady(f.cfg.ItemSelector, chromedp.ByQuery))
	return itemsWaitResult(navCtx, err)
}

func itemsWaitResult(navCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if navCtx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return fmt.Errorf("wait for listing items: %w", err)
}

// navError prefers the caller's cancellation over chromedp's own wrapping.
func navError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("render page: %w", ctxErr)
	}
	return fmt.Errorf("render page: %w", err)
}

func (f *Fetcher) headerAction(headers http.Header) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		extra, ua := splitHeaders(headers)
		if ua != "" {
			if err := emulation.SetUserAgentOverride(ua).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if err := network.SetExtraHTTPHeaders(extra).Do(ctx); err != nil {
			return fmt.Errorf("set extra headers: %w", err)
		}
		return nil
	})
}

// splitHeaders pulls User-Agent out for the emulation override and folds the
// rest into CDP's single-valued header map.
func splitHeaders(h http.Header) (network.Headers, string) {
	extra := network.Headers{}
	var ua string
	for key, values := range h {
		if len(values) == 0 {
			continue
		}
		if http.CanonicalHeaderKey(key) == "User-Agent" {
			ua = values[0]
			continue
		}
		extra[key] = strings.Join(values, ", ")
	}
	return extra, ua
}

// pageStatus remembers the last document response seen by the tab.
type pageStatus struct {
	mu   sync.Mutex
	code int
	url  string
}

func (p *pageStatus) observe(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	p.mu.Lock()
	p.code = int(resp.Response.Status)
	p.url = resp.Response.URL
	p.mu.Unlock()
}

func (p *pageStatus) reset() {
	p.mu.Lock()
	p.code, p.url = 0, ""
	p.mu.Unlock()
}

// result reports 200 when no document response was captured.
func (p *pageStatus) result() (int, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.code == 0 {
		return http.StatusOK, p.url
	}
	return p.code, p.url
}
