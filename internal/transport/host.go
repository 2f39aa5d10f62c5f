package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/1ureka/peerchat/internal/util"
)

// eventBufferSize is the capacity of the queue between link readers and the
// pump.
const eventBufferSize = 256

// EventType distinguishes the three kinds of transport events.
type EventType int

const (
	EventConnect EventType = iota
	EventDisconnect
	EventReceive
)

func (t EventType) String() string {
	switch t {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventReceive:
		return "receive"
	default:
		return "unknown"
	}
}

// Event is delivered to a Handler by the pump. Data is only set for
// EventReceive and holds exactly one message.
type Event struct {
	Type EventType
	Peer PeerID
	Addr net.Addr
	Data []byte
}

// Handler receives transport events. Calls never overlap.
type Handler interface {
	HandleConnect(ev Event)
	HandleDisconnect(ev Event)
	HandleReceive(ev Event)
}

// Host owns the links of one session endpoint, either listening for peers or
// connected upstream to a listening Host.
//
// Every method except Close may be called from any goroutine, including from
// inside a Handler callback.
type Host struct {
	driver  Driver
	handler Handler

	mu          sync.Mutex
	acceptor    Acceptor
	links       []Link // indexed by PeerID; nil means free
	upstream    PeerID
	hasUpstream bool

	events chan Event
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	wg     sync.WaitGroup
}

// NewHost creates a Host and starts its event pump. Init must have been
// called.
func NewHost(driver Driver, handler Handler) (*Host, error) {
	if !initialized() {
		return nil, ErrNotInitialized
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Host{
		driver:  driver,
		handler: handler,
		events:  make(chan Event, eventBufferSize),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	h.wg.Add(1)
	go h.pump()

	return h, nil
}

// ---------------------------------------------------------------------------
// Setup
// ---------------------------------------------------------------------------

// Listen starts accepting up to maxPeers simultaneous inbound links on port.
func (h *Host) Listen(ctx context.Context, port, maxPeers int) error {
	addr := ":" + strconv.Itoa(port)

	if maxPeers < 1 {
		return &InitError{Op: "listen", Addr: addr, Err: fmt.Errorf("max peers must be positive, got %d", maxPeers)}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.links != nil {
		return &InitError{Op: "listen", Addr: addr, Err: errors.New("host already started")}
	}

	acc, err := h.driver.Listen(ctx, addr)
	if err != nil {
		return &InitError{Op: "listen", Addr: addr, Err: err}
	}

	h.acceptor = acc
	h.links = make([]Link, maxPeers)

	h.wg.Add(1)
	go h.acceptLoop(acc)

	util.LogDebug("%s host listening on %s (max %d peers)", h.driver.Name(), acc.Addr(), maxPeers)
	return nil
}

// Connect opens the single upstream link to a listening Host. The connect
// event is delivered through the pump like any other.
func (h *Host) Connect(ctx context.Context, address string, port int) error {
	addr := net.JoinHostPort(address, strconv.Itoa(port))

	h.mu.Lock()
	if h.links != nil {
		h.mu.Unlock()
		return &InitError{Op: "connect", Addr: addr, Err: errors.New("host already started")}
	}
	h.links = make([]Link, 1)
	h.mu.Unlock()

	link, err := h.driver.Dial(ctx, addr)
	if err != nil {
		h.mu.Lock()
		h.links = nil
		h.mu.Unlock()
		return &InitError{Op: "connect", Addr: addr, Err: err}
	}

	if _, ok := h.attach(link, true); !ok {
		return &InitError{Op: "connect", Addr: addr, Err: errors.New("host closed")}
	}

	util.LogDebug("%s link established to %s", h.driver.Name(), link.RemoteAddr())
	return nil
}

// ---------------------------------------------------------------------------
// Data
// ---------------------------------------------------------------------------

// SendTo delivers data to one peer. Sending to a handle that is free or
// whose link is already gone does nothing.
func (h *Host) SendTo(peer PeerID, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.send(peer, data)
}

// SendUpstream delivers data over the link opened by Connect.
func (h *Host) SendUpstream(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.hasUpstream {
		h.send(h.upstream, data)
	}
}

// Broadcast delivers data to every connected peer except the listed ones.
func (h *Host) Broadcast(data []byte, except ...PeerID) {
	h.mu.Lock()
	defer h.mu.Unlock()

outer:
	for i := range h.links {
		for _, skip := range except {
			if PeerID(i) == skip {
				continue outer
			}
		}
		h.send(PeerID(i), data)
	}
}

// send requires h.mu.
func (h *Host) send(peer PeerID, data []byte) {
	if int(peer) >= len(h.links) || h.links[peer] == nil {
		return
	}

	if err := h.links[peer].Send(data); err != nil {
		util.LogDebug("send to peer %d dropped: %v", peer, err)
		return
	}
	util.Stats.AddSent(len(data))
}

// ---------------------------------------------------------------------------
// Teardown
// ---------------------------------------------------------------------------

// DisconnectAll closes every link. Each one still produces its disconnect
// event.
func (h *Host) DisconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, link := range h.links {
		if link != nil {
			link.Close()
		}
	}
}

// Close stops accepting, closes every link, stops the pump and waits for all
// of the Host's goroutines. It must not be called from a Handler callback.
func (h *Host) Close() error {
	var err error

	h.once.Do(func() {
		h.cancel()
		close(h.done)

		h.mu.Lock()
		if h.acceptor != nil {
			err = h.acceptor.Close()
		}
		for _, link := range h.links {
			if link != nil {
				link.Close()
			}
		}
		h.mu.Unlock()

		h.wg.Wait()
	})

	return err
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

func (h *Host) acceptLoop(acc Acceptor) {
	defer h.wg.Done()

	for {
		link, err := acc.Accept(h.ctx)
		if err != nil {
			return
		}
		h.attach(link, false)
	}
}

// attach puts link into the lowest free slot and starts its reader. A link
// that finds no free slot is closed.
func (h *Host) attach(link Link, upstream bool) (PeerID, bool) {
	h.mu.Lock()

	select {
	case <-h.done:
		h.mu.Unlock()
		link.Close()
		return 0, false
	default:
	}

	slot := -1
	for i, l := range h.links {
		if l == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		h.mu.Unlock()
		util.LogWarning("refusing %s: all %d peer slots in use", link.RemoteAddr(), len(h.links))
		link.Close()
		return 0, false
	}

	peer := PeerID(slot)
	h.links[peer] = link
	if upstream {
		h.upstream = peer
		h.hasUpstream = true
	}
	h.wg.Add(1)
	h.mu.Unlock()

	util.Stats.AddConn()
	go h.readLoop(peer, link)

	return peer, true
}

// readLoop turns one link into connect, receive... and disconnect events, in
// that order.
func (h *Host) readLoop(peer PeerID, link Link) {
	defer h.wg.Done()

	addr := link.RemoteAddr()
	if !h.post(Event{Type: EventConnect, Peer: peer, Addr: addr}) {
		link.Close()
		return
	}

	for {
		data, err := link.Recv()
		if err != nil {
			util.LogDebug("peer %d link ended: %v", peer, err)
			break
		}
		util.Stats.AddRecv(len(data))

		if !h.post(Event{Type: EventReceive, Peer: peer, Addr: addr, Data: data}) {
			link.Close()
			return
		}
	}

	link.Close()
	util.Stats.RemoveConn()
	h.post(Event{Type: EventDisconnect, Peer: peer, Addr: addr})
}

// post queues an event for the pump. It reports false once the Host is closed.
func (h *Host) post(ev Event) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	}
}

// pump is the only goroutine that invokes the Handler.
func (h *Host) pump() {
	defer h.wg.Done()

	for {
		select {
		case <-h.done:
			return
		case ev := <-h.events:
			h.dispatch(ev)
		}
	}
}

func (h *Host) dispatch(ev Event) {
	switch ev.Type {
	case EventConnect:
		h.handler.HandleConnect(ev)
	case EventReceive:
		h.handler.HandleReceive(ev)
	case EventDisconnect:
		h.handler.HandleDisconnect(ev)
		h.release(ev.Peer)
	}
}

// release frees a slot after its disconnect has been handled.
func (h *Host) release(peer PeerID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if int(peer) < len(h.links) {
		h.links[peer] = nil
	}
	if h.hasUpstream && h.upstream == peer {
		h.hasUpstream = false
	}
}
