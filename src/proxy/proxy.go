package proxy

import "github.com/mosaicnetworks/ledgersim/src/ledger"

// AppProxy is the application hook called on every submitted transaction.
// Implementations are called concurrently from every peer connection.
type AppProxy interface {
	ValidateTransaction(tx ledger.Transaction) bool
	NotifyNewTransaction(tx ledger.Transaction)
}

// NullProxy accepts every transaction.
type NullProxy struct{}

// ValidateTransaction implements AppProxy.
func (NullProxy) ValidateTransaction(tx ledger.Transaction) bool {
	return true
}

// NotifyNewTransaction implements AppProxy.
func (NullProxy) NotifyNewTransaction(tx ledger.Transaction) {}
