package app

import (
	"fmt"
	"net"
	"strings"

	"github.com/1ureka/peerchat/internal/directory"
	"github.com/1ureka/peerchat/internal/protocol"
	"github.com/1ureka/peerchat/internal/transport"
	"github.com/1ureka/peerchat/internal/util"
)

// hostState is the authoritative side of a session: it owns the directory,
// assigns user ids and relays chat to every client.
type hostState struct {
	base
}

func newHostState(a *App) *hostState { return &hostState{base{a}} }

func (s *hostState) String() string { return "hosting" }

// Enter registers the host as user 0, then starts listening.
func (s *hostState) Enter() {
	a := s.app
	a.dir.Upsert(protocol.UserRecord{ID: protocol.HostUserID, Name: a.nickname}, true)

	if err := a.listen(); err != nil {
		a.report(err)
		a.goTo(newMenuState(a))
		return
	}

	a.display.ShowLine(noticef("hosting on port %d as %s (%s to quit)", a.cfg.Port, a.nickname, ExitKeyword))
}

func (s *hostState) HandleInput(line string) {
	a := s.app
	if strings.TrimSpace(line) == ExitKeyword {
		a.goTo(newQuitState(a))
		return
	}

	a.display.ShowLine(chatLine(a.nickname, line))
	a.broadcast(&protocol.ChatMessage{UserID: protocol.HostUserID, Text: line})
}

// OnConnect does nothing: a peer has no identity until it registers.
func (s *hostState) OnConnect(peer transport.PeerID, addr net.Addr) {
	util.LogDebug("peer %d connected from %s, awaiting registration", peer, addr)
}

// OnRegistration admits a peer:
//  1. Insert it into the directory
//  2. Send it the assigned id and the full directory
//  3. Announce it to everyone else
func (s *hostState) OnRegistration(peer transport.PeerID, user protocol.UserRecord) {
	a := s.app
	if a.dir.Contains(user.ID) {
		a.report(fmt.Errorf("peer %d registered twice, ignoring %q", peer, user.Name))
		return
	}

	a.dir.Upsert(user, false)
	a.send(user.ID, &protocol.RegistrationAck{AssignedID: user.ID, Users: a.dir.Snapshot()})
	a.broadcast(&protocol.UserAdded{User: user}, user.ID)

	a.display.ShowLine(noticef("%s connected [%s]", user.Name, user.Addr))
}

func (s *hostState) OnDisconnect(peer transport.PeerID, addr net.Addr) {
	a := s.app
	id := transport.UserFromPeer(peer)

	user, ok := a.dir.Lookup(id)
	if !ok {
		a.report(&directory.InconsistencyError{Op: "disconnect", UserID: id})
		return
	}

	a.broadcast(&protocol.UserRemoved{UserID: id}, id)
	if _, err := a.dir.Remove(id); err != nil {
		a.report(err)
	}

	a.display.ShowLine(noticef("%s disconnected [%s]", user.Name, addr))
}

// OnChatMessage shows a client's message and relays it to every client,
// the author included.
func (s *hostState) OnChatMessage(peer transport.PeerID, user *protocol.UserRecord, m *protocol.ChatMessage) {
	a := s.app
	if user == nil {
		a.report(&directory.InconsistencyError{Op: fmt.Sprintf("chat from peer %d", peer), UserID: m.UserID})
		return
	}

	a.display.ShowLine(chatLine(user.Name, m.Text))
	a.broadcast(m)
}
