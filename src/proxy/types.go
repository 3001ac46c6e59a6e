package proxy

import "github.com/mosaicnetworks/ledgersim/src/ledger"

// ValidateCallback decides whether a transaction is accepted.
type ValidateCallback func(tx ledger.Transaction) bool

// NotifyCallback is told about accepted transactions.
type NotifyCallback func(tx ledger.Transaction)

// CallbackHandler implements ProxyHandler with plain functions. A nil Validate
// accepts everything and a nil Notify does nothing.
type CallbackHandler struct {
	Validate ValidateCallback
	Notify   NotifyCallback
}

// ValidateHandler implements ProxyHandler.
func (h CallbackHandler) ValidateHandler(tx ledger.Transaction) bool {
	if h.Validate == nil {
		return true
	}
	return h.Validate(tx)
}

// NotifyHandler implements ProxyHandler.
func (h CallbackHandler) NotifyHandler(tx ledger.Transaction) {
	if h.Notify != nil {
		h.Notify(tx)
	}
}

// CreateAccountOnly is a ValidateCallback that only accepts CreateAccount
// payloads.
func CreateAccountOnly(tx ledger.Transaction) bool {
	return tx.Payload().Kind() == ledger.CreateAccountPayload
}
