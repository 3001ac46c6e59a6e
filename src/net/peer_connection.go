package net

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/mosaicnetworks/ledgersim/src/ledger"
	"github.com/mosaicnetworks/ledgersim/src/node"
	"github.com/mosaicnetworks/ledgersim/src/proto"
	"github.com/mosaicnetworks/ledgersim/src/proxy"
	"github.com/sirupsen/logrus"
)

const bufSize = 64 * 1024

// ErrUnexpectedMessage is returned by Run when a peer sends something other
// than a TransactionRequest.
var ErrUnexpectedMessage = errors.New("unexpected message from peer")

// Sequencer is what a PeerConnection needs from the orchestrator.
type Sequencer interface {
	NewPeerID() uint32
	RegisterPeer(id uint32, peer node.Peer) error
	UnregisterPeer(id uint32)
	Insert(tx ledger.Transaction) error
}

// PeerConnection owns the connection to one peer.
type PeerConnection struct {
	id   uint32
	conn net.Conn

	reader *bufio.Reader

	writeLock sync.Mutex
	writer    *bufio.Writer

	sequencer Sequencer
	proxy     proxy.AppProxy

	closeOnce sync.Once
	doneCh    chan struct{}

	logger *logrus.Entry
}

// NewPeerConnection wraps conn. The connection is not registered and its read
// loop is not started.
func NewPeerConnection(id uint32, conn net.Conn, sequencer Sequencer, app proxy.AppProxy, logger *logrus.Entry) *PeerConnection {
	return &PeerConnection{
		id:        id,
		conn:      conn,
		reader:    bufio.NewReaderSize(conn, bufSize),
		writer:    bufio.NewWriterSize(conn, bufSize),
		sequencer: sequencer,
		proxy:     app,
		doneCh:    make(chan struct{}),
		logger: logger.WithFields(logrus.Fields{
			"peer":   id,
			"remote": conn.RemoteAddr().String(),
		}),
	}
}

// ID returns the connection id.
func (p *PeerConnection) ID() uint32 {
	return p.id
}

// Send implements node.Peer. Messages are written whole, in the order in which
// Send is called.
func (p *PeerConnection) Send(msg proto.Message) error {
	p.writeLock.Lock()
	defer p.writeLock.Unlock()

	if err := proto.WriteMessage(p.writer, msg); err != nil {
		p.logger.WithError(err).WithField("message", msg.Type().String()).Debug("Write failed")
		return err
	}

	if err := p.writer.Flush(); err != nil {
		p.logger.WithError(err).WithField("message", msg.Type().String()).Debug("Flush failed")
		return err
	}

	return nil
}

// Run reads messages until the connection fails, the peer closes it, or the
// peer violates the protocol. It then unregisters the peer and closes the
// connection. A clean close by the peer returns nil.
func (p *PeerConnection) Run() error {
	defer func() {
		p.sequencer.UnregisterPeer(p.id)
		p.Close()
	}()

	for {
		msg, err := proto.ReadMessage(p.reader)
		if err != nil {
			if err == io.EOF || p.isClosed() {
				return nil
			}
			p.logger.WithError(err).Warn("Read failed")
			return err
		}

		switch m := msg.(type) {
		case *proto.TransactionRequest:
			p.handleTransaction(m.Transaction)
		default:
			p.logger.WithField("message", msg.Type().String()).Warn("Unexpected message")
			return fmt.Errorf("%w: %s", ErrUnexpectedMessage, msg.Type())
		}
	}
}

func (p *PeerConnection) handleTransaction(tx ledger.Transaction) {
	if !p.proxy.ValidateTransaction(tx) {
		p.logger.WithField("source", tx.Source()).Debug("Transaction rejected by application")
		return
	}

	p.proxy.NotifyNewTransaction(tx)

	if err := p.sequencer.Insert(tx); err != nil {
		p.logger.WithError(err).Error("Inserting transaction")
	}
}

// Close closes the connection. It is safe to call more than once.
func (p *PeerConnection) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.doneCh)
		err = p.conn.Close()
	})
	return err
}

// Done is closed when the connection is closed.
func (p *PeerConnection) Done() <-chan struct{} {
	return p.doneCh
}

func (p *PeerConnection) isClosed() bool {
	select {
	case <-p.doneCh:
		return true
	default:
		return false
	}
}
