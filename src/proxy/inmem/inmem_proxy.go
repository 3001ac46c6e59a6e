package inmem

import (
	"github.com/mosaicnetworks/ledgersim/src/ledger"
	"github.com/mosaicnetworks/ledgersim/src/proxy"
	"github.com/sirupsen/logrus"
)

// InmemProxy implements the AppProxy interface natively
type InmemProxy struct {
	handler proxy.ProxyHandler
	logger  *logrus.Entry
}

// NewInmemProxy instantiates an InmemProxy from a set of handlers.
// If no logger, a new one is created
func NewInmemProxy(handler proxy.ProxyHandler, logger *logrus.Entry) *InmemProxy {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &InmemProxy{
		handler: handler,
		logger:  logger.WithField("prefix", "inmem-proxy"),
	}
}

// NewCallbackProxy instantiates an InmemProxy from plain functions.
func NewCallbackProxy(validate proxy.ValidateCallback, notify proxy.NotifyCallback, logger *logrus.Entry) *InmemProxy {
	return NewInmemProxy(proxy.CallbackHandler{Validate: validate, Notify: notify}, logger)
}

/*******************************************************************************
* Implement AppProxy Interface                                                 *
*******************************************************************************/

// ValidateTransaction calls the validate handler
func (p *InmemProxy) ValidateTransaction(tx ledger.Transaction) bool {
	valid := p.handler.ValidateHandler(tx)

	p.logger.WithFields(logrus.Fields{
		"source": tx.Source(),
		"kind":   tx.Payload().Kind(),
		"valid":  valid,
	}).Debug("InmemProxy.ValidateTransaction")

	return valid
}

// NotifyNewTransaction calls the notify handler
func (p *InmemProxy) NotifyNewTransaction(tx ledger.Transaction) {
	p.handler.NotifyHandler(tx)

	p.logger.WithFields(logrus.Fields{
		"source": tx.Source(),
		"kind":   tx.Payload().Kind(),
	}).Debug("InmemProxy.NotifyNewTransaction")
}
