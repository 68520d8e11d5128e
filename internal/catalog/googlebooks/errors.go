package googlebooks

import (
	"errors"
	"fmt"
)

// Sentinel errors for Google Books operations. Missing volumes are reported
// as catalog.ErrNotFound.
var (
	ErrRateLimited = errors.New("googlebooks: rate limited by server")
	ErrBadRequest  = errors.New("googlebooks: bad request")
	ErrServer      = errors.New("googlebooks: server error")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op   string
	ISBN string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("googlebooks %s [%s]: %v", e.Op, e.ISBN, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, isbn string, err error) error {
	return &Error{Op: op, ISBN: isbn, Err: err}
}
