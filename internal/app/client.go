package app

import (
	"net"
	"strings"
	"time"

	"github.com/1ureka/peerchat/internal/directory"
	"github.com/1ureka/peerchat/internal/protocol"
	"github.com/1ureka/peerchat/internal/transport"
	"github.com/1ureka/peerchat/internal/util"
)

// clientState is a participant connected to a host. Its directory is a
// replica fed by RegistrationAck, UserAdded and UserRemoved.
type clientState struct {
	base
}

func newClientState(a *App) *clientState { return &clientState{base{a}} }

func (s *clientState) String() string { return "joined" }

func (s *clientState) Enter() {
	a := s.app
	a.display.ShowLine(noticef("connecting to %s...", a.hostAddr()))

	if err := a.connect(); err != nil {
		a.report(err)
		a.goTo(newMenuState(a))
	}
}

func (s *clientState) HandleInput(line string) {
	a := s.app
	if strings.TrimSpace(line) == ExitKeyword {
		a.goTo(newQuitState(a))
		return
	}

	local, ok := a.dir.Local()
	if !ok {
		a.display.ShowLine(noticef("still joining, message not sent"))
		return
	}

	a.display.ShowLine(chatLine(local.Name, line))
	a.send(protocol.HostUserID, &protocol.ChatMessage{UserID: local.ID, Text: line})
}

// OnConnect registers right away; the host knows nothing about us until then.
func (s *clientState) OnConnect(transport.PeerID, net.Addr) {
	a := s.app
	a.send(protocol.HostUserID, &protocol.Registration{Name: a.nickname})
}

func (s *clientState) OnDisconnect(transport.PeerID, net.Addr) {
	a := s.app
	a.display.ShowLine(noticef("Disconnected from host, exiting..."))
	time.Sleep(a.cfg.QuitDelay)
	a.goTo(newQuitState(a))
}

func (s *clientState) OnRegistrationAck(m *protocol.RegistrationAck) {
	a := s.app
	for _, u := range m.Users {
		a.dir.Upsert(u, u.ID == m.AssignedID)
	}

	local, ok := a.dir.Local()
	if !ok || local.ID != m.AssignedID {
		a.report(&directory.InconsistencyError{Op: "registration ack", UserID: m.AssignedID})
		return
	}
	a.display.ShowLine(noticef("joined as %s (%d online, %s to quit)", local.Name, a.dir.Len(), ExitKeyword))
}

func (s *clientState) OnUserAdded(m *protocol.UserAdded) {
	a := s.app
	if a.dir.Contains(m.User.ID) {
		return
	}

	a.dir.Upsert(m.User, false)
	a.display.ShowLine(noticef("%s joined", m.User.Name))
}

func (s *clientState) OnUserRemoved(user *protocol.UserRecord, m *protocol.UserRemoved) {
	a := s.app
	if user == nil {
		a.report(&directory.InconsistencyError{Op: "user removed", UserID: m.UserID})
		return
	}

	if _, err := a.dir.Remove(m.UserID); err != nil {
		a.report(err)
		return
	}
	a.display.ShowLine(noticef("%s left", user.Name))
}

// OnChatMessage skips our own messages coming back from the host; they were
// shown when sent. Relays that arrive before the RegistrationAck are dropped:
// the directory cannot resolve their authors yet.
func (s *clientState) OnChatMessage(_ transport.PeerID, user *protocol.UserRecord, m *protocol.ChatMessage) {
	a := s.app
	local, ok := a.dir.Local()
	if !ok {
		util.LogDebug("dropping chat from user %d received before registration", m.UserID)
		return
	}
	if local.ID == m.UserID {
		return
	}
	if user == nil {
		a.report(&directory.InconsistencyError{Op: "chat", UserID: m.UserID})
		return
	}

	a.display.ShowLine(chatLine(user.Name, m.Text))
}
