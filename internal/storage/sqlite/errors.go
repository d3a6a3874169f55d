package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/JakeFAU/doulist-movies/internal/movie"
)

// classify wraps err with the movie error kind it represents, keeping the
// driver error in the chain.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, kindOf(err), err)
}

func kindOf(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return movie.ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return movie.ErrConstraintViolation
	}
	return movie.ErrStorageUnavailable
}
