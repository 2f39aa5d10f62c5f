// Package app is the session controller: it owns the directory, the
// transport and the current state, and routes user input and transport
// events into that state.
//
// Three goroutines meet here: the input loop, the transport's event pump and
// the caller of Run. Every state callback and every transition runs under
// one lock, so the current state is never observed half-replaced.
package app

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/1ureka/peerchat/internal/config"
	"github.com/1ureka/peerchat/internal/directory"
	"github.com/1ureka/peerchat/internal/protocol"
	"github.com/1ureka/peerchat/internal/transport"
	"github.com/1ureka/peerchat/internal/util"
)

// Network is the part of transport.Host the controller uses.
type Network interface {
	Listen(ctx context.Context, port, maxPeers int) error
	Connect(ctx context.Context, address string, port int) error
	SendTo(peer transport.PeerID, data []byte)
	SendUpstream(data []byte)
	Broadcast(data []byte, except ...transport.PeerID)
	DisconnectAll()
	Close() error
}

// Options configures an App.
type Options struct {
	Config  config.Config
	Display Display

	// NewNetwork builds the transport for a session. The default is a
	// transport.Host over the configured driver.
	NewNetwork func(h transport.Handler) (Network, error)
}

// App is one chat participant.
type App struct {
	cfg     config.Config
	display Display
	dir     *directory.Directory
	newNet  func(transport.Handler) (Network, error)

	mu       sync.Mutex
	state    State
	net      Network
	nickname string
	ctx      context.Context

	quitting atomic.Bool
}

// New creates an App. Nothing runs until Run.
func New(opts Options) (*App, error) {
	if opts.Display == nil {
		return nil, errors.New("app: nil Display")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg:      opts.Config,
		display:  opts.Display,
		dir:      directory.New(opts.Display),
		newNet:   opts.NewNetwork,
		nickname: opts.Config.Nickname,
		ctx:      context.Background(),
	}
	if a.newNet == nil {
		a.newNet = a.defaultNetwork
	}
	return a, nil
}

func (a *App) defaultNetwork(h transport.Handler) (Network, error) {
	d, err := transport.Lookup(a.cfg.Driver)
	if err != nil {
		return nil, err
	}
	return transport.NewHost(d, h)
}

// Run drives the session until the user quits, input closes or ctx is
// cancelled. The transport is initialized for exactly this long.
//  1. Initialize the transport library
//  2. Enter the initial state
//  3. Read input until quitting
//  4. Tear down the session's transport
func (a *App) Run(ctx context.Context) error {
	// ── 1. Transport lifecycle ─────────────────────────────────────────
	if err := transport.Init(); err != nil {
		return err
	}
	defer transport.Shutdown()

	// ── 2. Initial state ───────────────────────────────────────────────
	a.dispatch(func(State) {
		a.ctx = ctx
		a.goTo(a.initialState())
	})

	// ── 3. Input loop ──────────────────────────────────────────────────
	inputDone := make(chan struct{})
	go func() {
		defer close(inputDone)
		a.inputLoop()
	}()

	select {
	case <-inputDone:
	case <-ctx.Done():
		// The input goroutine may be stuck in a read; it is not waited for.
		a.dispatch(func(State) { a.quitOnce() })
	}

	// ── 4. Teardown ────────────────────────────────────────────────────
	a.mu.Lock()
	n := a.net
	a.net = nil
	a.mu.Unlock()

	if n != nil {
		return n.Close()
	}
	return nil
}

func (a *App) initialState() State {
	switch {
	case a.cfg.Role != "" && a.nickname != "":
		return a.activeState(a.cfg.Role)
	case a.cfg.Role != "":
		return newNamePromptState(a, a.cfg.Role)
	default:
		return newMenuState(a)
	}
}

func (a *App) activeState(role config.Role) State {
	if role == config.RoleHost {
		return newHostState(a)
	}
	return newClientState(a)
}

// inputLoop hands each non-empty line to the current state until the quit
// flag is set.
func (a *App) inputLoop() {
	for !a.quitting.Load() {
		line, err := a.display.ReadLine()
		if err != nil {
			util.LogDebug("input closed: %v", err)
			a.dispatch(func(State) { a.quitOnce() })
			return
		}
		if line == "" {
			continue
		}
		a.dispatch(func(s State) { s.HandleInput(line) })
	}
}

// ---------------------------------------------------------------------------
// State plumbing
// ---------------------------------------------------------------------------

// dispatch runs fn against the current state with the lock held.
func (a *App) dispatch(fn func(s State)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.state)
}

// goTo replaces the current state. Requires a.mu.
func (a *App) goTo(next State) {
	if a.state != nil {
		util.LogDebug("state %s -> %s", a.state, next)
		a.state.Exit()
	}
	a.state = next
	next.Enter()
}

// quitOnce moves to the quitting state unless already there. Requires a.mu.
func (a *App) quitOnce() {
	if !a.quitting.Load() {
		a.goTo(newQuitState(a))
	}
}

// quit drops every link and raises the quit flag. Requires a.mu.
func (a *App) quit() {
	if a.net != nil {
		a.net.DisconnectAll()
	}
	a.quitting.Store(true)
}

// StateName returns the name of the current state.
func (a *App) StateName() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == nil {
		return ""
	}
	return a.state.String()
}

// Directory returns the session directory.
func (a *App) Directory() *directory.Directory { return a.dir }

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

func (a *App) hostAddr() string {
	return net.JoinHostPort(a.cfg.Address, strconv.Itoa(a.cfg.Port))
}

// listen starts hosting. Requires a.mu.
func (a *App) listen() error {
	return a.startNetwork(func(n Network) error {
		return n.Listen(a.ctx, a.cfg.Port, a.cfg.MaxPeers)
	})
}

// connect joins the configured host. Requires a.mu.
func (a *App) connect() error {
	return a.startNetwork(func(n Network) error {
		return n.Connect(a.ctx, a.cfg.Address, a.cfg.Port)
	})
}

func (a *App) startNetwork(start func(Network) error) error {
	if a.net != nil {
		return errors.New("app: session transport already running")
	}

	n, err := a.newNet(a)
	if err != nil {
		return err
	}
	if err := start(n); err != nil {
		// A failed start produced no events, so the pump is idle.
		n.Close()
		return err
	}

	a.net = n
	return nil
}

// send encodes m for one user. User 0 is the host, reached over the upstream
// link. Requires a.mu.
func (a *App) send(userID uint16, m protocol.Message) {
	if a.net == nil {
		return
	}

	data := protocol.Encode(m)
	if userID == protocol.HostUserID {
		a.net.SendUpstream(data)
		return
	}
	peer, _ := transport.PeerFromUser(userID)
	a.net.SendTo(peer, data)
}

// broadcast encodes m for every connected peer except the given users.
// Requires a.mu.
func (a *App) broadcast(m protocol.Message, exceptUsers ...uint16) {
	if a.net == nil {
		return
	}

	var except []transport.PeerID
	for _, id := range exceptUsers {
		if peer, ok := transport.PeerFromUser(id); ok {
			except = append(except, peer)
		}
	}
	a.net.Broadcast(protocol.Encode(m), except...)
}

// report surfaces a diagnostic; the session carries on.
func (a *App) report(err error) {
	util.LogWarning("%v", err)
	a.display.ShowLine(errorLine(err))
}

// ---------------------------------------------------------------------------
// transport.Handler
// ---------------------------------------------------------------------------

func (a *App) HandleConnect(ev transport.Event) {
	a.dispatch(func(s State) { s.OnConnect(ev.Peer, ev.Addr) })
}

func (a *App) HandleDisconnect(ev transport.Event) {
	a.dispatch(func(s State) { s.OnDisconnect(ev.Peer, ev.Addr) })
}

// HandleReceive decodes one packet and routes it by tag. Malformed packets
// and unknown tags are dropped without touching the state.
func (a *App) HandleReceive(ev transport.Event) {
	tag, err := protocol.PeekTag(ev.Data)
	if err != nil {
		util.LogWarning("dropping empty packet from peer %d", ev.Peer)
		return
	}

	msg, err := protocol.Decode(ev.Data)
	switch {
	case errors.Is(err, protocol.ErrUnknownTag):
		util.LogDebug("ignoring %s from peer %d", tag, ev.Peer)
		return
	case err != nil:
		util.LogWarning("dropping malformed %s from peer %d: %v", tag, ev.Peer, err)
		return
	}

	a.dispatch(func(s State) {
		switch m := msg.(type) {
		case *protocol.Registration:
			user := protocol.UserRecord{ID: transport.UserFromPeer(ev.Peer), Name: m.Name, Addr: ev.Addr}
			s.OnRegistration(ev.Peer, user)
		case *protocol.RegistrationAck:
			s.OnRegistrationAck(m)
		case *protocol.UserAdded:
			s.OnUserAdded(m)
		case *protocol.UserRemoved:
			s.OnUserRemoved(a.lookup(m.UserID), m)
		case *protocol.ChatMessage:
			s.OnChatMessage(ev.Peer, a.lookup(m.UserID), m)
		default:
			util.LogDebug("no handler for %T", m)
		}
	})
}

func (a *App) lookup(id uint16) *protocol.UserRecord {
	rec, ok := a.dir.Lookup(id)
	if !ok {
		return nil
	}
	return &rec
}
