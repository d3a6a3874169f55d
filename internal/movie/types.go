// Package movie defines the doulist movie domain types shared across the
// store, scraper, and API subsystems.
package movie

import (
	"net/http"
	"time"
)

// Record is one persisted movie row.
type Record struct {
	ID        int64   `json:"id" db:"id"`
	Title     string  `json:"title" db:"title"`
	Rating    string  `json:"rating" db:"rating"`
	Image     string  `json:"image" db:"image"`
	Abstract  string  `json:"abstract" db:"abstract"`
	Time      string  `json:"time" db:"time"`
	DoulistID *string `json:"doulist_id" db:"doulist_id"`
	CreatedAt string  `json:"created_at" db:"created_at"`
}

// Item is a scraped movie that has not been persisted yet.
type Item struct {
	Title    string `json:"title" db:"title"`
	Rating   string `json:"rating" db:"rating"`
	Image    string `json:"image" db:"image"`
	Abstract string `json:"abstract" db:"abstract"`
	Time     string `json:"time" db:"time"`
}

// Item returns the mutable fields of the record.
func (r Record) Item() Item {
	return Item{
		Title:    r.Title,
		Rating:   r.Rating,
		Image:    r.Image,
		Abstract: r.Abstract,
		Time:     r.Time,
	}
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// ContentType returns the response content type, or fallback when the upstream omitted it.
func (r FetchResponse) ContentType(fallback string) string {
	if r.Headers != nil {
		if ct := r.Headers.Get("Content-Type"); ct != "" {
			return ct
		}
	}
	return fallback
}
