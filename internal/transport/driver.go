// Package transport is the session's facade over a reliable, ordered,
// connection-oriented datagram transport.
//
// A Driver supplies message-oriented links (one Send arrives as one Recv).
// Host multiplexes those links into small integer peer handles and delivers
// connect, receive and disconnect events, one at a time, from a single pump
// goroutine.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
)

// Link is one established connection.
type Link interface {
	Send(data []byte) error
	// Recv blocks until a message arrives or the link is gone.
	Recv() ([]byte, error)
	RemoteAddr() net.Addr
	Close() error
}

// Acceptor yields inbound links until closed.
type Acceptor interface {
	Accept(ctx context.Context) (Link, error)
	Addr() net.Addr
	Close() error
}

// Driver creates links over a concrete transport.
type Driver interface {
	Name() string
	Listen(ctx context.Context, addr string) (Acceptor, error)
	Dial(ctx context.Context, addr string) (Link, error)
}

// Lifecycle is implemented by drivers that hold process-wide state. Setup
// runs on the first Init and Teardown on the last Shutdown.
type Lifecycle interface {
	Setup() error
	Teardown()
}

var (
	ErrUnknownDriver  = errors.New("transport: unknown driver")
	ErrNotInitialized = errors.New("transport: not initialized")
)

// ---------------------------------------------------------------------------
// Driver registry
// ---------------------------------------------------------------------------

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available by name. It panics on a nil driver or a
// duplicate name.
func Register(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if d == nil {
		panic("transport: Register driver is nil")
	}
	if _, dup := drivers[d.Name()]; dup {
		panic("transport: Register called twice for driver " + d.Name())
	}
	drivers[d.Name()] = d
}

// Lookup returns the driver registered under name.
func Lookup(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()

	d, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %v)", ErrUnknownDriver, name, driverNames())
	}
	return d, nil
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	return driverNames()
}

func driverNames() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Process-wide lifecycle
// ---------------------------------------------------------------------------

var (
	lifeMu sync.Mutex
	refs   int
)

// Init must be called before the first Host is created. Calls nest; every
// Init needs a matching Shutdown.
func Init() error {
	lifeMu.Lock()
	defer lifeMu.Unlock()

	if refs == 0 {
		driversMu.RLock()
		defer driversMu.RUnlock()

		var ready []Lifecycle
		for _, name := range driverNames() {
			lc, ok := drivers[name].(Lifecycle)
			if !ok {
				continue
			}
			if err := lc.Setup(); err != nil {
				for i := len(ready) - 1; i >= 0; i-- {
					ready[i].Teardown()
				}
				return fmt.Errorf("transport: setting up %s: %w", name, err)
			}
			ready = append(ready, lc)
		}
	}
	refs++
	return nil
}

// Shutdown releases what Init acquired once the last user is done.
func Shutdown() {
	lifeMu.Lock()
	defer lifeMu.Unlock()

	if refs == 0 {
		return
	}
	refs--
	if refs > 0 {
		return
	}

	driversMu.RLock()
	defer driversMu.RUnlock()
	for _, name := range driverNames() {
		if lc, ok := drivers[name].(Lifecycle); ok {
			lc.Teardown()
		}
	}
}

func initialized() bool {
	lifeMu.Lock()
	defer lifeMu.Unlock()
	return refs > 0
}
