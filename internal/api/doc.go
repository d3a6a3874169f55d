// Package api hosts the HTTP server, middleware, and JSON handlers over the
// movie store. Notable routes:
//   - GET /api/movies with page, per_page, sort_by and order.
//   - GET /api/movies/random and /api/movies/{id}.
//   - GET /api/movies/search?q= for keyword lookups.
//   - GET /api/proxy-image?url= to relay poster images.
//   - GET /api/health and /metrics for probes and Prometheus scraping.
package api
