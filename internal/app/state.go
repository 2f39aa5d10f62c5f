package app

import (
	"net"

	"github.com/1ureka/peerchat/internal/protocol"
	"github.com/1ureka/peerchat/internal/transport"
)

// ExitKeyword leaves the session from any interactive state.
const ExitKeyword = "/exit"

// State is one phase of the session. The App owns exactly one at a time and
// replaces it on every transition: Exit runs on the old state before Enter
// runs on the new one. All methods run with the App's lock held.
type State interface {
	String() string
	Enter()
	Exit()
	HandleInput(line string)

	OnConnect(peer transport.PeerID, addr net.Addr)
	OnDisconnect(peer transport.PeerID, addr net.Addr)
	OnRegistration(peer transport.PeerID, user protocol.UserRecord)
	OnRegistrationAck(m *protocol.RegistrationAck)
	OnUserAdded(m *protocol.UserAdded)
	// user is nil when the id is not in the directory.
	OnUserRemoved(user *protocol.UserRecord, m *protocol.UserRemoved)
	OnChatMessage(peer transport.PeerID, user *protocol.UserRecord, m *protocol.ChatMessage)
}

// base ignores every event and clears the display on exit. Concrete states
// embed it and override what they handle.
type base struct {
	app *App
}

func (b base) Enter()             {}
func (b base) HandleInput(string) {}

func (b base) Exit() {
	b.app.display.ClearMessages()
	b.app.display.ClearUserList()
}

func (b base) OnConnect(transport.PeerID, net.Addr)                                        {}
func (b base) OnDisconnect(transport.PeerID, net.Addr)                                     {}
func (b base) OnRegistration(transport.PeerID, protocol.UserRecord)                        {}
func (b base) OnRegistrationAck(*protocol.RegistrationAck)                                 {}
func (b base) OnUserAdded(*protocol.UserAdded)                                             {}
func (b base) OnUserRemoved(*protocol.UserRecord, *protocol.UserRemoved)                   {}
func (b base) OnChatMessage(transport.PeerID, *protocol.UserRecord, *protocol.ChatMessage) {}
