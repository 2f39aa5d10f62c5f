// Package rtc is a transport driver built on WebRTC DataChannels (SCTP over
// DTLS over UDP). The listening side serves WebSocket signaling on the
// session port; each dialer exchanges SDP and ICE candidates there and then
// talks over its own ordered, reliable DataChannel.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/1ureka/peerchat/internal/transport"
	"github.com/1ureka/peerchat/internal/util"
)

// signalPath is the WebSocket endpoint served by a listener.
const signalPath = "/ws"

func init() {
	transport.Register(Driver)
}

// Driver is the registered "rtc" driver.
var Driver = &driver{}

type driver struct{}

func (d *driver) Name() string { return "rtc" }

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Listen starts the signaling server on addr.
func (d *driver) Listen(_ context.Context, addr string) (transport.Acceptor, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("starting signaling server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &acceptor{
		ln:     ln,
		newCh:  make(chan *link),
		ctx:    ctx,
		cancel: cancel,
	}

	r := chi.NewRouter()
	r.Get(signalPath, a.handleWS)
	a.srv = &http.Server{Handler: r}

	go func() {
		if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.LogDebug("rtc: signaling server stopped: %v", err)
		}
	}()

	return a, nil
}

// Dial connects to a listener's signaling endpoint and answers its offer.
func (d *driver) Dial(ctx context.Context, addr string) (transport.Link, error) {
	remote, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, "ws://"+addr+signalPath, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to signaling server: %w", err)
	}

	l, err := newLink(remote)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := newSignaler(l, conn).exchange(ctx, false); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// ---------------------------------------------------------------------------
// Acceptor
// ---------------------------------------------------------------------------

type acceptor struct {
	ln     net.Listener
	srv    *http.Server
	newCh  chan *link
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// handleWS runs the offering side of the exchange for one dialer and hands
// the open link to Accept.
func (a *acceptor) handleWS(w http.ResponseWriter, r *http.Request) {
	remote, err := net.ResolveTCPAddr("tcp", r.RemoteAddr)
	if err != nil {
		http.Error(w, "bad remote address", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	l, err := newLink(remote)
	if err != nil {
		util.LogWarning("rtc: creating peer connection for %s: %v", remote, err)
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-a.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := newSignaler(l, conn).exchange(ctx, true); err != nil {
		util.LogDebug("rtc: signaling with %s failed: %v", remote, err)
		l.Close()
		return
	}

	select {
	case a.newCh <- l:
	case <-a.ctx.Done():
		l.Close()
	}
}

func (a *acceptor) Accept(ctx context.Context) (transport.Link, error) {
	select {
	case l := <-a.newCh:
		return l, nil
	case <-a.ctx.Done():
		return nil, net.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *acceptor) Addr() net.Addr { return a.ln.Addr() }

func (a *acceptor) Close() error {
	var err error
	a.once.Do(func() {
		a.cancel()
		err = a.srv.Close()
	})
	return err
}
