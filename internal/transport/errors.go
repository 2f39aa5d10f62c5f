package transport

import "fmt"

// InitError reports a failure to start listening or to connect. It is
// returned synchronously; later link loss only shows up as a disconnect event.
type InitError struct {
	Op   string // "listen" or "connect"
	Addr string
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }
