package node

import "github.com/mosaicnetworks/ledgersim/src/proto"

// Peer is the sending side of a connected peer. Send is called concurrently
// by broadcasts and must not interleave messages.
type Peer interface {
	Send(msg proto.Message) error
}

type peerEntry struct {
	id   uint32
	peer Peer
}
