package movie

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds reported by Store implementations. Callers match them with errors.Is.
var (
	ErrNotFound            = errors.New("movie not found")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrConstraintViolation = errors.New("constraint violation")
)

// StatusError reports an upstream response outside the 2xx range.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d (%s) from %s", e.Code, http.StatusText(e.Code), e.URL)
}

// IsStatusError reports whether err carries an upstream non-2xx status.
func IsStatusError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr)
}
