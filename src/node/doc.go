// Package node implements the sequencer of the simulated network.
//
// The Orchestrator owns the ledger and the registry of connected peers. It
// throttles incoming transactions to the configured throughput, appends them
// to the current epoch, and broadcasts them to every peer after the
// configured latency. The EpochTimer rotates epochs at a fixed period, and
// every rotation is broadcast to all peers.
//
// Lock order: the peer registry lock is always acquired before a ledger
// mutation that will be broadcast, and the set of recipients is captured
// inside the same critical section. A peer that registers concurrently with a
// rotation therefore either receives the new epoch in its backlog, or
// receives the NewEpochStarted message, never both and never neither.
//
// The throttle lock is handed over to the registry lock, so transactions
// enter the ledger in acceptance order. Broadcasts are queued inside the
// registry critical section and sent by a single dispatcher per message
// kind, so every peer receives LedgerUpdates in ledger order and
// NewEpochStarted messages in epoch order.
package node
