package protocol

import (
	"errors"
	"fmt"

	"github.com/1ureka/peerchat/internal/wire"
)

// ErrUnknownTag is returned by Decode for a tag this build does not know.
// Receivers drop such packets silently.
var ErrUnknownTag = errors.New("protocol: unknown message tag")

// Encode serializes a message into a single packet.
func Encode(m Message) []byte {
	w := wire.NewWriter()
	w.WriteUint8(uint8(m.Tag()))

	switch m := m.(type) {
	case *Registration:
		w.WriteString(m.Name)
	case *RegistrationAck:
		w.WriteUint16(m.AssignedID)
		// Records must stay the last field: decoding reads them until the end.
		for _, u := range m.Users {
			writeUser(w, u)
		}
	case *UserAdded:
		writeUser(w, m.User)
	case *UserRemoved:
		w.WriteUint16(m.UserID)
	case *ChatMessage:
		w.WriteUint16(m.UserID)
		w.WriteString(m.Text)
	default:
		panic(fmt.Sprintf("protocol: cannot encode %T", m))
	}

	return w.Bytes()
}

// PeekTag returns the tag of a packet without decoding it.
func PeekTag(data []byte) (Tag, error) {
	v, err := wire.NewReader(data).PeekUint8()
	return Tag(v), err
}

// Decode deserializes one packet. Truncated packets fail with
// wire.ErrOutOfRange; unknown tags fail with ErrUnknownTag.
func Decode(data []byte) (Message, error) {
	r := wire.NewReader(data)

	v, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}

	switch Tag(v) {
	case TagRegistration:
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return &Registration{Name: name}, nil

	case TagRegistrationAck:
		id, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		users := make([]UserRecord, 0)
		for !r.End() {
			u, err := readUser(r)
			if err != nil {
				return nil, err
			}
			users = append(users, u)
		}
		return &RegistrationAck{AssignedID: id, Users: users}, nil

	case TagUserAdded:
		u, err := readUser(r)
		if err != nil {
			return nil, err
		}
		return &UserAdded{User: u}, nil

	case TagUserRemoved:
		id, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return &UserRemoved{UserID: id}, nil

	case TagChatMessage:
		id, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		text, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return &ChatMessage{UserID: id, Text: text}, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, v)
	}
}

func writeUser(w *wire.Writer, u UserRecord) {
	w.WriteUint16(u.ID)
	w.WriteString(u.Name)
}

func readUser(r *wire.Reader) (UserRecord, error) {
	id, err := r.ReadUint16()
	if err != nil {
		return UserRecord{}, err
	}
	name, err := r.ReadString()
	if err != nil {
		return UserRecord{}, err
	}
	return UserRecord{ID: id, Name: name}, nil
}
