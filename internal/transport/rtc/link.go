package rtc

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/peerchat/internal/util"
)

// inboxSize is the number of received messages buffered ahead of Recv.
const inboxSize = 256

// link wraps one PeerConnection + DataChannel pair. One DataChannel message
// is one session message.
type link struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	inbox  chan []byte
	open   chan struct{}
	done   chan struct{}
	remote net.Addr

	openOnce sync.Once
	doneOnce sync.Once
}

// newLink creates the PeerConnection and DataChannel and wires their
// callbacks. The link is usable once Ready fires.
func newLink(remote net.Addr) (*link, error) {
	pc, err := newPeerConnection()
	if err != nil {
		return nil, err
	}

	dc, err := newDataChannel(pc)
	if err != nil {
		pc.Close()
		return nil, err
	}

	l := &link{
		pc:     pc,
		dc:     dc,
		inbox:  make(chan []byte, inboxSize),
		open:   make(chan struct{}),
		done:   make(chan struct{}),
		remote: remote,
	}

	dc.OnOpen(func() {
		l.openOnce.Do(func() { close(l.open) })
	})

	dc.OnClose(func() {
		util.LogDebug("rtc: DataChannel to %s closed", remote)
		l.shutdown()
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		buf := make([]byte, len(msg.Data))
		copy(buf, msg.Data)
		select {
		case l.inbox <- buf:
		case <-l.done:
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("rtc: PeerConnection to %s is %s", remote, state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			l.shutdown()
		}
	})

	return l, nil
}

// Ready is closed once the DataChannel is open.
func (l *link) Ready() <-chan struct{} { return l.open }

// Done is closed once the link is gone.
func (l *link) Done() <-chan struct{} { return l.done }

func (l *link) shutdown() {
	l.doneOnce.Do(func() { close(l.done) })
}

func (l *link) Send(data []byte) error {
	select {
	case <-l.done:
		return io.ErrClosedPipe
	default:
	}
	return l.dc.Send(data)
}

// Recv returns messages that arrived before the close ahead of io.EOF.
func (l *link) Recv() ([]byte, error) {
	select {
	case b := <-l.inbox:
		return b, nil
	case <-l.done:
		select {
		case b := <-l.inbox:
			return b, nil
		default:
			return nil, io.EOF
		}
	}
}

func (l *link) RemoteAddr() net.Addr { return l.remote }

// Close shuts down the DataChannel and PeerConnection.
func (l *link) Close() error {
	l.shutdown()
	return errors.Join(l.dc.Close(), l.pc.Close())
}
