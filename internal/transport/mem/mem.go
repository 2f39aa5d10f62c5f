// Package mem is an in-process transport driver. Listeners are keyed by port
// so ":7777" and "127.0.0.1:7777" reach the same acceptor. It backs the tests
// of everything above the transport.
package mem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/1ureka/peerchat/internal/transport"
)

// queueSize is the number of undelivered messages a link buffers per direction.
const queueSize = 1024

var errRefused = errors.New("mem: connection refused")

func init() {
	transport.Register(Driver)
}

// Driver is the registered "mem" driver.
var Driver = &driver{listeners: make(map[string]*acceptor)}

type driver struct {
	mu        sync.Mutex
	listeners map[string]*acceptor
	dials     atomic.Uint64
}

// Addr is a mem endpoint address.
type Addr string

func (a Addr) Network() string { return "mem" }
func (a Addr) String() string  { return string(a) }

func (d *driver) Name() string { return "mem" }

func (d *driver) Listen(_ context.Context, addr string) (transport.Acceptor, error) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, busy := d.listeners[port]; busy {
		return nil, fmt.Errorf("mem: port %s already in use", port)
	}

	a := &acceptor{
		driver:   d,
		port:     port,
		incoming: make(chan *link),
		done:     make(chan struct{}),
	}
	d.listeners[port] = a
	return a, nil
}

func (d *driver) Dial(ctx context.Context, addr string) (transport.Link, error) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	a, ok := d.listeners[port]
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: nothing listening on port %s", errRefused, port)
	}

	local := Addr(fmt.Sprintf("mem-client-%d", d.dials.Add(1)))
	client, server := newPair(local, Addr("mem:"+port))

	select {
	case a.incoming <- server:
		return client, nil
	case <-a.done:
		return nil, fmt.Errorf("%w: listener on port %s closed", errRefused, port)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ---------------------------------------------------------------------------
// Acceptor
// ---------------------------------------------------------------------------

type acceptor struct {
	driver   *driver
	port     string
	incoming chan *link
	done     chan struct{}
	once     sync.Once
}

func (a *acceptor) Accept(ctx context.Context) (transport.Link, error) {
	select {
	case l := <-a.incoming:
		return l, nil
	case <-a.done:
		return nil, net.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *acceptor) Addr() net.Addr { return Addr("mem:" + a.port) }

func (a *acceptor) Close() error {
	a.once.Do(func() {
		a.driver.mu.Lock()
		if a.driver.listeners[a.port] == a {
			delete(a.driver.listeners, a.port)
		}
		a.driver.mu.Unlock()
		close(a.done)
	})
	return nil
}

// ---------------------------------------------------------------------------
// Link
// ---------------------------------------------------------------------------

// pipe is the state shared by both ends of a link pair.
type pipe struct {
	done chan struct{}
	once sync.Once
}

func (p *pipe) close() {
	p.once.Do(func() { close(p.done) })
}

type link struct {
	pipe   *pipe
	in     chan []byte
	peer   *link
	remote net.Addr
}

func newPair(clientAddr, serverAddr net.Addr) (client, server *link) {
	p := &pipe{done: make(chan struct{})}
	client = &link{pipe: p, in: make(chan []byte, queueSize), remote: serverAddr}
	server = &link{pipe: p, in: make(chan []byte, queueSize), remote: clientAddr}
	client.peer = server
	server.peer = client
	return client, server
}

func (l *link) Send(data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	select {
	case <-l.pipe.done:
		return io.ErrClosedPipe
	default:
	}

	select {
	case l.peer.in <- buf:
		return nil
	case <-l.pipe.done:
		return io.ErrClosedPipe
	}
}

// Recv returns messages queued before a close ahead of io.EOF.
func (l *link) Recv() ([]byte, error) {
	select {
	case b := <-l.in:
		return b, nil
	case <-l.pipe.done:
		select {
		case b := <-l.in:
			return b, nil
		default:
			return nil, io.EOF
		}
	}
}

func (l *link) RemoteAddr() net.Addr { return l.remote }

func (l *link) Close() error {
	l.pipe.close()
	return nil
}
