// Package proxy defines and implements AppProxy: the interface between the
// sequencer and the application whose transactions it orders.
//
// Every transaction submitted by a peer goes through the AppProxy before it
// reaches the ledger. ValidateTransaction decides whether the transaction is
// accepted; NotifyNewTransaction is then called for every accepted
// transaction. Rejected transactions are dropped silently.
//
// There are two implementations:
//
// - NullProxy: accepts everything and ignores notifications.
//
// - InmemProxy: uses native callback handlers to integrate an application as a
// regular Go dependency.
package proxy
