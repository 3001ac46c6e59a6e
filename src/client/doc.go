// Package client connects to a sequencer and mirrors its ledger.
//
// After Dial, the client receives the epoch backlog and then every rotation
// and every accepted transaction, and applies them to a local Ledger.
// Transactions are submitted with Submit. The sequencer only ever sends
// SyncEpoch, NewEpochStarted and LedgerUpdate; anything else terminates the
// client.
//
// LedgerUpdate does not carry an epoch id, so a transaction is mirrored into
// the latest epoch known locally. A rotation that overtakes a delayed update
// can therefore shift transactions by one epoch in the mirror. Totals are
// always exact.
package client
