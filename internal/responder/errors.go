package responder

import (
	"errors"
	"fmt"
)

// ErrTransport marks a socket failure after the responder started serving.
var ErrTransport = errors.New("responder transport error")

// BindError is returned by Run when the listening socket cannot be bound.
// No request has been served when it is returned.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
