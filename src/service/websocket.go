package service

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mosaicnetworks/ledgersim/src/ledger"
	"github.com/mosaicnetworks/ledgersim/src/proto"
	"github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is the JSON form of a protocol message sent to WebSocket peers.
type Event struct {
	Type         string               `json:"type"`
	Epoch        *ledger.EpochID      `json:"epoch,omitempty"`
	Timestamp    int64                `json:"timestamp,omitempty"`
	Transactions []ledger.Transaction `json:"transactions,omitempty"`
	Transaction  *ledger.Transaction  `json:"transaction,omitempty"`
}

// NewEvent converts a protocol message.
func NewEvent(msg proto.Message) Event {
	ev := Event{Type: msg.Type().String()}

	switch m := msg.(type) {
	case *proto.SyncEpoch:
		id := m.Identifier
		ev.Epoch = &id
		ev.Timestamp = m.Epoch.Timestamp
		ev.Transactions = m.Epoch.Transactions
	case *proto.NewEpochStarted:
		id := m.Identifier
		ev.Epoch = &id
		ev.Timestamp = m.Timestamp
	case *proto.LedgerUpdate:
		tx := m.Transaction
		ev.Transaction = &tx
	case *proto.TransactionRequest:
		tx := m.Transaction
		ev.Transaction = &tx
	}

	return ev
}

// WebSocketPeer forwards broadcasts to a WebSocket client.
type WebSocketPeer struct {
	id   uint32
	lock sync.Mutex
	conn *websocket.Conn
}

// Send implements node.Peer.
func (p *WebSocketPeer) Send(msg proto.Message) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(NewEvent(msg))
}

// ServeWS upgrades the request and registers the client as a peer until it
// disconnects or sends anything.
func (s *Service) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	peer := &WebSocketPeer{
		id:   s.orchestrator.NewPeerID(),
		conn: conn,
	}

	logger := s.logger.WithFields(logrus.Fields{
		"peer":   peer.id,
		"remote": r.RemoteAddr,
	})

	if err := s.orchestrator.RegisterPeer(peer.id, peer); err != nil {
		logger.WithError(err).Warn("Failed to register WebSocket peer")
		return
	}
	defer s.orchestrator.UnregisterPeer(peer.id)

	logger.Debug("WebSocket peer connected")

	if _, _, err := conn.ReadMessage(); err != nil {
		logger.WithError(err).Debug("WebSocket peer disconnected")
		return
	}

	logger.Warn("WebSocket peers can not submit transactions")

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "read-only feed"),
		time.Now().Add(writeWait))
}
