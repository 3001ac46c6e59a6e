// Package ledger implements the epoch-indexed transaction store of the
// simulated network.
//
// A Ledger is a map of epochs, keyed by a contiguous EpochID assigned by the
// sequencer. Each Epoch carries a creation timestamp and the ordered list of
// transactions that were accepted while it was the most recent epoch. New
// transactions are always appended to the epoch with the highest identifier.
//
// Transactions are immutable once built. They carry the AccountID of their
// source, a payload which is either an account creation or an opaque
// application operation, and a signature over the payload hash. The
// operation bytes are encoded by the application; EncodeOperation and
// DecodeOperation provide a msgpack encoding for applications that have no
// preference.
package ledger
