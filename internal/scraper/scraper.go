package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/doulist-movies/internal/clock/system"
	"github.com/JakeFAU/doulist-movies/internal/metrics"
	"github.com/JakeFAU/doulist-movies/internal/movie"
)

// StopReason records why a run stopped paging.
type StopReason string

// Reasons reported in Summary.Reason.
const (
	ReasonMaxPages   StopReason = "max_pages"
	ReasonEndOfList  StopReason = "end_of_list"
	ReasonFetchError StopReason = "fetch_error"
	ReasonCanceled   StopReason = "canceled"
	ReasonStorage    StopReason = "storage_error"
)

// DefaultDelay is the pause before each listing request.
const DefaultDelay = 2 * time.Second

// Config controls a scrape run.
type Config struct {
	BaseURL  string
	MaxPages int
	Delay    time.Duration
	Headers  http.Header
}

// Summary describes a finished run. Inserted is valid even when Run returns
// an error.
type Summary struct {
	ListingID    string
	PagesFetched int
	Inserted     int
	Skipped      int
	Reason       StopReason
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration is the wall time the run took.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Scraper pulls one listing into the store.
type Scraper struct {
	cfg     Config
	fetcher movie.Fetcher
	opener  movie.Opener
	pauser  Pauser
	clock   movie.Clock
	logger  *zap.Logger
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithPauser replaces the timer-based delay.
func WithPauser(p Pauser) Option {
	return func(s *Scraper) { s.pauser = p }
}

// WithClock replaces the wall clock used for Summary timestamps.
func WithClock(c movie.Clock) Option {
	return func(s *Scraper) { s.clock = c }
}

// New builds a Scraper. A nil logger discards output.
func New(cfg Config, fetcher movie.Fetcher, opener movie.Opener, logger *zap.Logger, opts ...Option) *Scraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.Headers == nil {
		cfg.Headers = BrowserHeaders("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scraper{
		cfg:     cfg,
		fetcher: fetcher,
		opener:  opener,
		pauser:  TimerPauser{},
		clock:   system.New(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run resets the store and scrapes up to MaxPages pages of listingID into it.
// On a fetch failure or cancellation the summary still carries the rows
// inserted so far.
func (s *Scraper) Run(ctx context.Context, listingID string) (summary Summary, err error) {
	summary = Summary{ListingID: listingID, StartedAt: s.clock.Now()}
	defer func() {
		summary.FinishedAt = s.clock.Now()
		s.logger.Info("scrape finished",
			zap.String("listing_id", listingID),
			zap.Int("pages", summary.PagesFetched),
			zap.Int("inserted", summary.Inserted),
			zap.Int("skipped", summary.Skipped),
			zap.String("reason", string(summary.Reason)),
			zap.Duration("duration", summary.Duration()),
		)
	}()

	store, err := s.opener.Open(ctx)
	if err != nil {
		summary.Reason = ReasonStorage
		return summary, fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			s.logger.Warn("close store", zap.Error(cerr))
		}
	}()

	if err := store.ResetSchema(ctx); err != nil {
		summary.Reason = ReasonStorage
		return summary, fmt.Errorf("reset schema: %w", err)
	}

	for page := 0; page < s.cfg.MaxPages; page++ {
		done, err := s.scrapePage(ctx, store, listingID, page, &summary)
		if err != nil {
			return summary, err
		}
		if done {
			return summary, nil
		}
	}
	summary.Reason = ReasonMaxPages
	return summary, nil
}

// scrapePage handles one page and reports whether paging should stop.
func (s *Scraper) scrapePage(
	ctx context.Context,
	store movie.Store,
	listingID string,
	page int,
	summary *Summary,
) (bool, error) {
	if err := s.pauser.Pause(ctx, s.cfg.Delay); err != nil {
		summary.Reason = ReasonCanceled
		return true, fmt.Errorf("wait before page %d: %w", page+1, err)
	}

	url := ListingURL(s.cfg.BaseURL, listingID, page)
	s.logger.Info("fetching listing page", zap.Int("page", page+1), zap.String("url", url))

	resp, err := s.fetch(ctx, url)
	if err != nil {
		metrics.ObservePage(metrics.PageFailed)
		summary.Reason = ReasonFetchError
		if ctx.Err() != nil {
			summary.Reason = ReasonCanceled
		}
		s.logger.Error("fetch listing page", zap.Int("page", page+1), zap.String("url", url), zap.Error(err))
		return true, fmt.Errorf("fetch page %d: %w", page+1, err)
	}
	summary.PagesFetched++

	parsed, err := ParsePage(resp.Body)
	if err != nil {
		metrics.ObservePage(metrics.PageFailed)
		summary.Reason = ReasonFetchError
		return true, fmt.Errorf("page %d: %w", page+1, err)
	}
	if parsed.Containers() == 0 {
		metrics.ObservePage(metrics.PageEmpty)
		s.logger.Info("no more items", zap.Int("page", page+1))
		summary.Reason = ReasonEndOfList
		return true, nil
	}
	metrics.ObservePage(metrics.PageFetched)

	for _, perr := range parsed.Malformed {
		metrics.ObserveItem(metrics.ItemMalformed)
		summary.Skipped++
		s.logger.Warn("skipping item", zap.Int("page", page+1), zap.Error(perr))
	}

	for _, item := range parsed.Items {
		id, err := store.Insert(ctx, item, listingID)
		if err != nil {
			if ctx.Err() != nil {
				summary.Reason = ReasonCanceled
				return true, fmt.Errorf("insert %q: %w", item.Title, ctx.Err())
			}
			metrics.ObserveItem(metrics.ItemFailed)
			summary.Skipped++
			s.logger.Error("insert movie", zap.String("title", item.Title), zap.Error(err))
			continue
		}
		metrics.ObserveItem(metrics.ItemInserted)
		summary.Inserted++
		s.logger.Debug("saved movie", zap.String("title", item.Title), zap.Int64("id", id))
	}
	s.logger.Info("page done", zap.Int("page", page+1), zap.Int("items", len(parsed.Items)))
	return false, nil
}

func (s *Scraper) fetch(ctx context.Context, url string) (movie.FetchResponse, error) {
	resp, err := s.fetcher.Fetch(ctx, movie.FetchRequest{URL: url, Headers: s.cfg.Headers.Clone()})
	if err != nil {
		return movie.FetchResponse{}, err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return movie.FetchResponse{}, &movie.StatusError{URL: url, Code: resp.StatusCode}
	}
	return resp, nil
}

// IsCanceled reports whether err came from a canceled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
