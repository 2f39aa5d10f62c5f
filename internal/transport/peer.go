package transport

// PeerID is the handle a Host assigns to a live link. Handles are small,
// start at 0 and are reused once a disconnect has been fully handled.
type PeerID uint16

// User ids are peer handles shifted by one; user 0 is the host itself and
// has no handle.

// UserFromPeer returns the session user id for a peer handle.
func UserFromPeer(p PeerID) uint16 {
	return uint16(p) + 1
}

// PeerFromUser returns the peer handle for a user id. It reports false for
// user 0.
func PeerFromUser(id uint16) (PeerID, bool) {
	if id == 0 {
		return 0, false
	}
	return PeerID(id - 1), true
}
