// Package proto defines the messages exchanged between the sequencer and its
// peers, and how they are framed on a stream.
//
// The sequencer sends SyncEpoch (one per existing epoch when a peer joins),
// NewEpochStarted (on rotation) and LedgerUpdate (for every accepted
// transaction). Peers send TransactionRequest.
//
// A message is encoded as one discriminant byte followed by the msgpack
// encoding of its body. On the stream, every encoded message is preceded by
// its length as a 4-byte big-endian integer.
package proto
