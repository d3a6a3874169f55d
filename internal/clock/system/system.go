// Package system provides the wall clock used to stamp scrape runs.
package system

import (
	"time"

	"github.com/JakeFAU/doulist-movies/internal/movie"
)

// Clock implements movie.Clock using time.Now.
type Clock struct{}

var _ movie.Clock = Clock{}

// New creates a new Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time in UTC, truncated to the second so it lines up
// with the store's created_at resolution.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
