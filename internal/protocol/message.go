// Package protocol defines the session messages exchanged between the host
// and its clients, and their binary layouts.
//
// Every message is one packet: a one-byte tag followed by the message fields
// in a fixed order. RegistrationAck ends with an open-ended record list, so a
// packet must never carry more than one message.
package protocol

import (
	"fmt"
	"net"
)

// Tag identifies a message variant. Tags are never reused.
type Tag uint8

const (
	TagRegistration    Tag = 0 // client → host: chosen display name
	TagRegistrationAck Tag = 1 // host → client: assigned id + full directory
	TagUserAdded       Tag = 2 // host → clients: one new user
	TagUserRemoved     Tag = 3 // host → clients: a user left
	TagChatMessage     Tag = 4 // either way: chat text from a user
)

func (t Tag) String() string {
	switch t {
	case TagRegistration:
		return "Registration"
	case TagRegistrationAck:
		return "RegistrationAck"
	case TagUserAdded:
		return "UserAdded"
	case TagUserRemoved:
		return "UserRemoved"
	case TagChatMessage:
		return "ChatMessage"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// Session-level defaults.
const (
	DefaultPort     = 7777
	DefaultMaxPeers = 16
)

// HostUserID is the id the host always registers itself under.
const HostUserID uint16 = 0

// UserRecord is one entry of the session directory. Addr is only known on
// the host and is never put on the wire.
type UserRecord struct {
	ID   uint16
	Name string
	Addr net.Addr
}

// Message is implemented by every session message.
type Message interface {
	Tag() Tag
}

type Registration struct {
	Name string
}

type RegistrationAck struct {
	AssignedID uint16
	Users      []UserRecord
}

type UserAdded struct {
	User UserRecord
}

type UserRemoved struct {
	UserID uint16
}

type ChatMessage struct {
	UserID uint16
	Text   string
}

func (*Registration) Tag() Tag    { return TagRegistration }
func (*RegistrationAck) Tag() Tag { return TagRegistrationAck }
func (*UserAdded) Tag() Tag       { return TagUserAdded }
func (*UserRemoved) Tag() Tag     { return TagUserRemoved }
func (*ChatMessage) Tag() Tag     { return TagChatMessage }
