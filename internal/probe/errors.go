package probe

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedMedium means no profile could be determined, or the
	// profile names a format the engine does not handle.
	ErrUnsupportedMedium = errors.New("unsupported medium")
	// ErrContentsUnreadable means the medium has sessions that could not be
	// read back.
	ErrContentsUnreadable = errors.New("medium contents unreadable")
)

// Error reports the step at which a probe failed.
type Error struct {
	Step string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
