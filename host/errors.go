package host

import (
	"errors"
	"fmt"
)

// ErrNoFont is returned by calls that need a context font when none is set.
var ErrNoFont = errors.New("no context font")

// ErrUnknownHandle is returned for font or image handles the host never
// issued or has already freed.
var ErrUnknownHandle = errors.New("unknown handle")

// DrawError reports a failed host call.
type DrawError struct {
	Op  string // host operation, e.g. "load_font"
	Err error
}

func (e *DrawError) Error() string {
	return fmt.Sprintf("host %s: %v", e.Op, e.Err)
}

func (e *DrawError) Unwrap() error { return e.Err }

// Wrap returns err as a *DrawError for op. Nil stays nil and errors that are
// already DrawErrors are returned unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DrawError
	if errors.As(err, &de) {
		return err
	}
	return &DrawError{Op: op, Err: err}
}
