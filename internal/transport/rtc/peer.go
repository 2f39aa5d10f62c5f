package rtc

import (
	"github.com/pion/webrtc/v4"
)

// newPeerConnection creates a PeerConnection with no ICE servers: peers are
// expected to reach each other directly, so only host candidates are used.
func newPeerConnection() (*webrtc.PeerConnection, error) {
	return webrtc.NewPeerConnection(webrtc.Configuration{})
}

// newDataChannel creates the pre-negotiated, ordered, reliable DataChannel
// every session message travels on. Negotiated mode (ID 0) lets both sides
// create it without waiting for OnDataChannel.
func newDataChannel(pc *webrtc.PeerConnection) (*webrtc.DataChannel, error) {
	ordered := true
	negotiated := true
	id := uint16(0)

	return pc.CreateDataChannel("session", &webrtc.DataChannelInit{
		Ordered:    &ordered,
		Negotiated: &negotiated,
		ID:         &id,
	})
}
