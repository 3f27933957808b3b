package index

import (
	"errors"
	"fmt"
)

// ErrIndexUnavailable matches every UnavailableError with errors.Is.
var ErrIndexUnavailable = errors.New("account index unavailable")

// UnavailableError is returned when a ledger call needed to build or serve
// the index fails. The cache is left as it was; retrying is up to the caller.
type UnavailableError struct {
	Op   string
	Term string
	Err  error
}

func (e *UnavailableError) Error() string {
	if e.Term != "" {
		return fmt.Sprintf("%s: %s (search %q): %v", ErrIndexUnavailable, e.Op, e.Term, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrIndexUnavailable, e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrIndexUnavailable
}
