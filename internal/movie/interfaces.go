package movie

import (
	"context"
	"time"
)

// Store is a short-lived handle onto the movie table. Callers must Close it.
type Store interface {
	InitializeSchema(ctx context.Context) error
	ResetSchema(ctx context.Context) error
	Insert(ctx context.Context, item Item, listingID string) (int64, error)
	Update(ctx context.Context, id int64, item Item) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Get(ctx context.Context, id int64) (Record, error)
	ListByListing(ctx context.Context, listingID string) ([]Record, error)
	ListAll(ctx context.Context, limit, offset int) ([]Record, error)
	Search(ctx context.Context, keyword string) ([]Record, error)
	Count(ctx context.Context) (int, error)
	ListSorted(ctx context.Context, field SortField, order SortOrder, limit, offset int) ([]Record, error)
	ListIDs(ctx context.Context) ([]int64, error)
	Close() error
}

// Opener hands out Store handles, one per logical operation.
type Opener interface {
	Open(ctx context.Context) (Store, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Store, error)

// Open calls f(ctx).
func (f OpenerFunc) Open(ctx context.Context) (Store, error) {
	return f(ctx)
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces request IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher derives an entity tag from a response body.
type Hasher interface {
	ETag(data []byte) string
}
