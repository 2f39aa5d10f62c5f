package rtc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/peerchat/internal/util"
)

// messageType identifies the kind of signaling message.
type messageType string

const (
	msgTypeOffer     messageType = "offer"
	msgTypeAnswer    messageType = "answer"
	msgTypeCandidate messageType = "candidate"
)

// message is the JSON structure exchanged over the WebSocket during signaling.
type message struct {
	Type      messageType `json:"type"`
	SDP       string      `json:"sdp,omitempty"`
	Candidate string      `json:"candidate,omitempty"` // JSON-encoded ICECandidateInit
}

// signaler drives the SDP/ICE exchange for one link over one WebSocket.
type signaler struct {
	l    *link
	conn *websocket.Conn
	mu   sync.Mutex

	// Remote candidates that arrived before the remote description. Only the
	// watch goroutine touches it.
	pending []webrtc.ICECandidateInit
}

func newSignaler(l *link, conn *websocket.Conn) *signaler {
	s := &signaler{l: l, conn: conn}

	// Trickle local candidates as they are gathered.
	l.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, _ := json.Marshal(c.ToJSON())
		// Best effort: the socket is closed once the channel is open.
		s.send(message{Type: msgTypeCandidate, Candidate: string(data)})
	})

	return s
}

// send writes a signaling message, serialized with the candidate callback.
func (s *signaler) send(msg message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

func (s *signaler) sendOffer() error {
	offer, err := s.l.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("CreateOffer: %w", err)
	}
	if err := s.l.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("SetLocalDescription: %w", err)
	}
	return s.send(message{Type: msgTypeOffer, SDP: offer.SDP})
}

func (s *signaler) sendAnswer() error {
	answer, err := s.l.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("CreateAnswer: %w", err)
	}
	if err := s.l.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("SetLocalDescription: %w", err)
	}
	return s.send(message{Type: msgTypeAnswer, SDP: answer.SDP})
}

// setRemote applies a remote description and flushes queued candidates.
func (s *signaler) setRemote(typ webrtc.SDPType, sdp string) error {
	if err := s.l.pc.SetRemoteDescription(webrtc.SessionDescription{Type: typ, SDP: sdp}); err != nil {
		return fmt.Errorf("SetRemoteDescription: %w", err)
	}
	for _, c := range s.pending {
		if err := s.l.pc.AddICECandidate(c); err != nil {
			util.LogDebug("rtc: AddICECandidate failed: %v", err)
		}
	}
	s.pending = nil
	return nil
}

// watch reads signaling messages until the socket closes.
func (s *signaler) watch() error {
	for {
		var msg message
		if err := s.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("reading signaling message: %w", err)
		}

		switch msg.Type {
		case msgTypeOffer:
			if err := s.setRemote(webrtc.SDPTypeOffer, msg.SDP); err != nil {
				return err
			}
			if err := s.sendAnswer(); err != nil {
				return err
			}

		case msgTypeAnswer:
			if err := s.setRemote(webrtc.SDPTypeAnswer, msg.SDP); err != nil {
				return err
			}

		case msgTypeCandidate:
			var init webrtc.ICECandidateInit
			if err := json.Unmarshal([]byte(msg.Candidate), &init); err != nil {
				return fmt.Errorf("parsing ICE candidate: %w", err)
			}
			if s.l.pc.RemoteDescription() == nil {
				s.pending = append(s.pending, init)
				continue
			}
			if err := s.l.pc.AddICECandidate(init); err != nil {
				util.LogDebug("rtc: AddICECandidate failed: %v", err)
			}
		}
	}
}

// exchange runs the signaling phase for one side and blocks until the
// DataChannel opens. The offering side (the listener) sends the offer first.
//  1. Start the watch loop
//  2. Send the offer if offering
//  3. Wait for the DataChannel, a signaling failure or ctx
//  4. Close the WebSocket either way
func (s *signaler) exchange(ctx context.Context, offering bool) error {
	defer s.conn.Close()

	// ── 1. Watch loop ──────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.watch()
	}()

	// ── 2. Offer ───────────────────────────────────────────────────────
	if offering {
		if err := s.sendOffer(); err != nil {
			return fmt.Errorf("sending offer: %w", err)
		}
	}

	// ── 3. Wait ────────────────────────────────────────────────────────
	select {
	case <-s.l.Ready():
		return nil

	case err := <-errCh:
		// The socket may close right as the channel opens.
		select {
		case <-s.l.Ready():
			return nil
		default:
			return fmt.Errorf("signaling failed: %w", err)
		}

	case <-s.l.Done():
		return fmt.Errorf("signaling failed: peer connection closed")

	case <-ctx.Done():
		return ctx.Err()
	}
}
