// Package main hosts the doulist-movies entrypoint.
//
// Architecture overview:
//   - Scrape: `doulist-movies scrape` drops the movie table, then walks a Douban doulist 25 items per page
//     through the colly fetcher (or chromedp when scraper.fetcher=chromedp), parsing each page with goquery and
//     inserting rows into SQLite. Paging stops at the first empty page, the first failed request, or the page cap.
//   - Storage: internal/storage/sqlite wraps mattn/go-sqlite3 through sqlx. Every command and every API request
//     opens its own handle and closes it when done. Errors are classified into not found, constraint violation and
//     storage unavailable.
//   - HTTP API: `doulist-movies serve` exposes internal/api.Server on server.host:server.port with sorted, paginated
//     listing, detail, random, search, health and an image proxy that relays posters with the Referer the origin
//     expects.
//   - Configuration & plumbing: Viper populates config from a file, MOVIES_* env vars and an optional .env; zap
//     provides structured logging; Prometheus metrics are exported via the metrics middleware and /metrics.
//
// Operational notes:
//   - A scrape replaces the table in place, so API reads running at the same time may see an empty or missing
//     table until the scrape finishes.
//   - SIGINT/SIGTERM cancel a scrape between or during pages and drain the API server within ten seconds.
//
// Quick checklist:
//   - Configure env vars: MOVIES_DB_PATH, MOVIES_SCRAPER_DOULIST_ID, MOVIES_SCRAPER_MAX_PAGES, MOVIES_SERVER_PORT.
//   - Run locally: go run ./cmd/doulist-movies scrape && go run ./cmd/doulist-movies serve
package main
