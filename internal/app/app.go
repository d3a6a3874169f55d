// Package app holds the long-lived services shared by the CLI commands,
// acting as a small dependency injection container.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/doulist-movies/internal/config"
	collyfetcher "github.com/JakeFAU/doulist-movies/internal/fetcher/colly"
	"github.com/JakeFAU/doulist-movies/internal/fetcher/headless"
	"github.com/JakeFAU/doulist-movies/internal/movie"
	"github.com/JakeFAU/doulist-movies/internal/storage/sqlite"
)

// ListingFetcher is a movie.Fetcher that owns resources released by Close.
type ListingFetcher interface {
	movie.Fetcher
	Close() error
}

type nopCloser struct{ movie.Fetcher }

func (nopCloser) Close() error { return nil }

// App holds the configuration, logger, store opener and image fetcher built
// once at startup.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	opener movie.Opener
	images movie.Fetcher
}

// NewApp wires the services described by cfg.
func NewApp(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DB.Path == "" {
		return nil, fmt.Errorf("db.path is not set")
	}
	logger.Debug("initializing application services", zap.String("db_path", cfg.DB.Path))

	return &App{
		cfg:    cfg,
		logger: logger,
		opener: sqlite.Opener{Config: sqlite.Config{
			Path:        cfg.DB.Path,
			BusyTimeout: cfg.DB.BusyTimeout(),
		}},
		images: collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.Scraper.UserAgent,
			Timeout:   cfg.Proxy.Timeout(),
		}),
	}, nil
}

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetOpener returns the store opener; each command opens its own handle.
func (a *App) GetOpener() movie.Opener {
	return a.opener
}

// GetImageFetcher returns the fetcher used by the image proxy.
func (a *App) GetImageFetcher() movie.Fetcher {
	return a.images
}

// NewListingFetcher builds the fetcher selected by scraper.fetcher. The
// caller must Close it.
func (a *App) NewListingFetcher() (ListingFetcher, error) {
	switch a.cfg.Scraper.Fetcher {
	case config.FetcherChromedp:
		f, err := headless.NewChromedp(headless.Config{
			UserAgent:         a.cfg.Scraper.UserAgent,
			NavigationTimeout: a.cfg.Scraper.Headless.NavTimeout(),
			ReadyTimeout:      a.cfg.Scraper.Headless.ReadyTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("init headless fetcher: %w", err)
		}
		a.logger.Info("using headless listing fetcher")
		return f, nil
	case config.FetcherColly, "":
		return nopCloser{collyfetcher.New(collyfetcher.Config{
			UserAgent: a.cfg.Scraper.UserAgent,
			Timeout:   a.cfg.Scraper.Timeout(),
		})}, nil
	default:
		return nil, fmt.Errorf("unknown fetcher: %s", a.cfg.Scraper.Fetcher)
	}
}

// Close flushes the logger. Store handles are closed by their users.
func (a *App) Close() {
	a.logger.Debug("shutting down application services")
	// Sync fails on ttys and pipes, so the error only gets a debug line.
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("sync logger", zap.Error(err))
	}
}
