package sqlite

import (
	"context"

	"github.com/JakeFAU/doulist-movies/internal/movie"
)

// Opener hands out a fresh connected Store for every logical operation.
type Opener struct {
	Config Config
}

var _ movie.Opener = Opener{}

// Open connects a new Store. The caller owns it and must Close it.
func (o Opener) Open(ctx context.Context) (movie.Store, error) {
	s := Open(o.Config)
	if _, err := s.conn(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
