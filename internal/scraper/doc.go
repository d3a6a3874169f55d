// Package scraper walks a doulist page by page, parses each movie item from
// the listing markup, and writes the results into a freshly reset store.
//
// A run is destructive: the movies table is dropped and recreated before the
// first page is requested, so rows from earlier runs (of any listing) are gone
// once Run starts. Paging stops at the configured page limit, at the first page
// with no items, at the first fetch failure, or when the context is canceled.
package scraper
