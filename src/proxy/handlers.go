package proxy

import "github.com/mosaicnetworks/ledgersim/src/ledger"

// ProxyHandler encapsulates callbacks to be called by the InmemProxy. This is
// the true contact surface between the sequencer and the application.
type ProxyHandler interface {
	// ValidateHandler is called for every submitted transaction. Returning
	// false drops the transaction.
	ValidateHandler(tx ledger.Transaction) bool

	// NotifyHandler is called for every transaction that passed validation,
	// before it is appended to the ledger.
	NotifyHandler(tx ledger.Transaction)
}
