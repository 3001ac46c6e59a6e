// Package net carries the sequencer protocol over TCP.
//
// A Server accepts connections on a StreamLayer. For every connection it
// allocates an id, wraps the connection in a PeerConnection, registers it with
// the Sequencer, which sends it the ledger backlog, and runs its read loop.
//
// A PeerConnection is the actor that owns one connection. Its read loop
// decodes TransactionRequest messages, passes them through the application
// proxy and hands accepted transactions to the Sequencer. Any other message is
// a protocol violation that terminates the connection. Outgoing messages are
// written under a per-connection lock so that concurrent broadcasts never
// interleave frames. When the read loop ends, for whatever reason, the peer is
// unregistered and the connection closed.
//
// The listen address may omit the port, in which case DefaultPort is used.
package net
