package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/mosaicnetworks/ledgersim/src/ledger"
	lnet "github.com/mosaicnetworks/ledgersim/src/net"
	"github.com/mosaicnetworks/ledgersim/src/proto"
	"github.com/sirupsen/logrus"
)

// ErrUnexpectedMessage is reported when the sequencer sends a message that
// only peers may send.
var ErrUnexpectedMessage = errors.New("unexpected message from sequencer")

// Client is a connection to a sequencer.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader

	writeLock sync.Mutex
	writer    *bufio.Writer

	ledger *ledger.Ledger

	doneCh    chan struct{}
	err       error
	closeOnce sync.Once

	logger *logrus.Entry
}

// Dial connects to the sequencer at addr, which defaults to port 8080, and
// starts mirroring its ledger.
func Dial(ctx context.Context, addr string, logger *logrus.Entry) (*Client, error) {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", lnet.ParseAddress(addr))
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		ledger: ledger.NewLedger(),
		doneCh: make(chan struct{}),
		logger: logger.WithFields(logrus.Fields{
			"prefix": "client",
			"remote": conn.RemoteAddr().String(),
		}),
	}

	go c.readLoop()

	return c, nil
}

// Ledger returns the local mirror of the network ledger.
func (c *Client) Ledger() *ledger.Ledger {
	return c.ledger
}

// Submit sends a transaction to the sequencer. There is no acknowledgement;
// an accepted transaction comes back as a LedgerUpdate.
func (c *Client) Submit(tx ledger.Transaction) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	if err := proto.WriteMessage(c.writer, &proto.TransactionRequest{Transaction: tx}); err != nil {
		return err
	}

	return c.writer.Flush()
}

func (c *Client) readLoop() {
	var err error

	defer func() {
		c.closeWith(err)
	}()

	for {
		var msg proto.Message

		msg, err = proto.ReadMessage(c.reader)
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			return
		}

		if err = c.apply(msg); err != nil {
			c.logger.WithError(err).Error("Applying message")
			return
		}
	}
}

func (c *Client) apply(msg proto.Message) error {
	switch m := msg.(type) {
	case *proto.SyncEpoch:
		return c.ledger.SynchronizeEpoch(m.Identifier, m.Epoch)
	case *proto.NewEpochStarted:
		return c.ledger.CreateNewEpoch(m.Identifier, m.Timestamp)
	case *proto.LedgerUpdate:
		_, err := c.ledger.Insert(m.Transaction)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedMessage, msg.Type())
	}
}

func (c *Client) closeWith(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		c.conn.Close()
		close(c.doneCh)
	})
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.doneCh
}

// Err returns the reason the connection ended, nil for a clean close. It is
// only meaningful after Done is closed.
func (c *Client) Err() error {
	select {
	case <-c.doneCh:
		return c.err
	default:
		return nil
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	c.closeWith(nil)
	return nil
}

// WaitForTransactions blocks until the mirror holds at least n transactions,
// the connection ends, or ctx is done.
func (c *Client) WaitForTransactions(ctx context.Context, n int) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for c.ledger.NumTransactions() < n {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.doneCh:
			if c.err != nil {
				return c.err
			}
			return io.EOF
		case <-ticker.C:
		}
	}

	return nil
}
