package app_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/doulist-movies/internal/app"
	"github.com/JakeFAU/doulist-movies/internal/config"
	collyfetcher "github.com/JakeFAU/doulist-movies/internal/fetcher/colly"
	"github.com/JakeFAU/doulist-movies/internal/fetcher/headless"
	"github.com/JakeFAU/doulist-movies/internal/storage/sqlite"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DB: config.DBConfig{Path: filepath.Join(t.TempDir(), "movies.db"), BusyTimeoutMs: 100},
		Scraper: config.ScraperConfig{
			UserAgent:      "app-test",
			TimeoutSeconds: 3,
			Fetcher:        config.FetcherColly,
			Headless:       config.HeadlessConfig{NavTimeoutSeconds: 5, ReadyTimeoutSeconds: 1},
		},
		Proxy: config.ProxyConfig{TimeoutSeconds: 2},
	}
}

func TestNewApp_Success(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	a, err := app.NewApp(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.NotNil(t, a.GetLogger())
	assert.Equal(t, cfg, a.GetConfig())
	assert.IsType(t, &collyfetcher.Fetcher{}, a.GetImageFetcher())

	opener, ok := a.GetOpener().(sqlite.Opener)
	require.True(t, ok)
	assert.Equal(t, cfg.DB.Path, opener.Config.Path)
	assert.Equal(t, cfg.DB.BusyTimeout(), opener.Config.BusyTimeout)
}

func TestNewApp_RequiresDBPath(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.DB.Path = ""
	_, err := app.NewApp(cfg, nil)
	require.Error(t, err)
}

func TestNewListingFetcher(t *testing.T) {
	t.Parallel()

	t.Run("colly", func(t *testing.T) {
		t.Parallel()
		a, err := app.NewApp(testConfig(t), nil)
		require.NoError(t, err)
		f, err := a.NewListingFetcher()
		require.NoError(t, err)
		require.NoError(t, f.Close())
	})

	t.Run("chromedp", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig(t)
		cfg.Scraper.Fetcher = config.FetcherChromedp
		a, err := app.NewApp(cfg, nil)
		require.NoError(t, err)
		f, err := a.NewListingFetcher()
		require.NoError(t, err)
		assert.IsType(t, &headless.Fetcher{}, f)
		require.NoError(t, f.Close())
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig(t)
		cfg.Scraper.Fetcher = "curl"
		a, err := app.NewApp(cfg, nil)
		require.NoError(t, err)
		_, err = a.NewListingFetcher()
		require.ErrorContains(t, err, "unknown fetcher")
	})
}
