package node

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/ledgersim/src/config"
	"github.com/mosaicnetworks/ledgersim/src/ledger"
	"github.com/mosaicnetworks/ledgersim/src/proto"
	"github.com/mosaicnetworks/ledgersim/src/store"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidThroughput is returned when the throughput is not strictly
	// positive.
	ErrInvalidThroughput = errors.New("throughput must be strictly positive")

	// ErrPeerExists is returned when registering a connection id twice.
	ErrPeerExists = errors.New("peer already registered")
)

// Orchestrator wraps the ledger with the policy of the sequencer: throttling,
// simulated latency, epoch rotation and fan-out to peers.
type Orchestrator struct {
	ledger *ledger.Ledger
	store  store.Store

	// peerLock is taken before any ledger mutation that is broadcast
	peerLock sync.Mutex
	peers    map[uint32]Peer

	lastTxLock sync.Mutex
	lastTx     time.Time

	minInterval time.Duration
	latency     time.Duration

	nextEpochID atomic.Uint32
	nextPeerID  atomic.Uint32

	// broadcasts leave in the order they are enqueued, under peerLock
	updates *dispatcher
	epochs  *dispatcher

	networkID uuid.UUID
	start     time.Time

	logger *logrus.Entry
}

// NewOrchestrator creates an Orchestrator with an empty ledger. Accepted
// transactions and new epochs are written through to s.
func NewOrchestrator(conf *config.Config, s store.Store) (*Orchestrator, error) {
	if !(conf.Throughput > 0) {
		return nil, ErrInvalidThroughput
	}

	if s == nil {
		s = store.NewInmemStore()
	}

	networkID := uuid.New()

	o := &Orchestrator{
		ledger:      ledger.NewLedger(),
		store:       s,
		peers:       make(map[uint32]Peer),
		minInterval: conf.MinInterval(),
		latency:     conf.Latency(),
		networkID:   networkID,
		start:       time.Now(),
		logger: conf.Logger().WithFields(logrus.Fields{
			"prefix":  "orchestrator",
			"network": networkID.String(),
		}),
	}

	o.updates = newDispatcher(o.broadcast)
	o.epochs = newDispatcher(o.broadcast)

	return o, nil
}

// Close stops the broadcast queues. Messages not yet sent are dropped.
func (o *Orchestrator) Close() {
	o.updates.stop()
	o.epochs.stop()
}

// Bootstrap loads the epochs of the store into the ledger and resumes epoch
// numbering after the last one. It must be called before any peer connects.
func (o *Orchestrator) Bootstrap() error {
	ids, err := o.store.EpochIDs()
	if err != nil {
		return err
	}

	for _, id := range ids {
		epoch, err := o.store.GetEpoch(id)
		if err != nil {
			return err
		}
		if err := o.ledger.SynchronizeEpoch(id, epoch); err != nil {
			return err
		}
	}

	if len(ids) > 0 {
		o.nextEpochID.Store(uint32(ids[len(ids)-1]) + 1)
	}

	o.logger.WithFields(logrus.Fields{
		"epochs":       o.ledger.NumEpochs(),
		"transactions": o.ledger.NumTransactions(),
	}).Info("Bootstrapped ledger from store")

	return nil
}

// NewPeerID allocates a connection id. Ids start at 1.
func (o *Orchestrator) NewPeerID() uint32 {
	return o.nextPeerID.Add(1)
}

// RegisterPeer sends the whole ledger to a new peer, one SyncEpoch per epoch
// in id order, and then adds it to the set of broadcast recipients. The
// registry lock is held for the whole call so that no epoch can be created,
// and no transaction accepted, between the backlog and the registration. If
// the backlog can not be delivered the peer is not registered.
func (o *Orchestrator) RegisterPeer(id uint32, peer Peer) error {
	o.peerLock.Lock()
	defer o.peerLock.Unlock()

	if _, ok := o.peers[id]; ok {
		return ErrPeerExists
	}

	for _, eid := range o.ledger.EpochIDs() {
		epoch, err := o.ledger.GetEpoch(eid)
		if err != nil {
			return err
		}

		if err := peer.Send(&proto.SyncEpoch{Identifier: eid, Epoch: epoch}); err != nil {
			return fmt.Errorf("syncing epoch %d: %w", eid, err)
		}
	}

	o.peers[id] = peer

	o.logger.WithFields(logrus.Fields{
		"peer":   id,
		"epochs": o.ledger.NumEpochs(),
		"peers":  len(o.peers),
	}).Debug("Registered peer")

	return nil
}

// UnregisterPeer removes a peer from the set of broadcast recipients.
// Broadcasts already in flight may still reach it.
func (o *Orchestrator) UnregisterPeer(id uint32) {
	o.peerLock.Lock()
	defer o.peerLock.Unlock()

	if _, ok := o.peers[id]; !ok {
		return
	}

	delete(o.peers, id)

	o.logger.WithFields(logrus.Fields{
		"peer":  id,
		"peers": len(o.peers),
	}).Debug("Unregistered peer")
}

// Insert accepts a transaction. It blocks until the throughput limit allows
// it, appends it to the current epoch, and schedules its broadcast after the
// configured latency. Broadcasts follow acceptance order. It fails if there
// is no epoch yet.
func (o *Orchestrator) Insert(tx ledger.Transaction) error {
	accepted := o.throttle()

	// hand over from lastTxLock so that ledger order is acceptance order
	o.peerLock.Lock()
	o.lastTxLock.Unlock()

	id, err := o.ledger.Insert(tx)
	if err != nil {
		o.peerLock.Unlock()
		return err
	}

	if err := o.store.AppendTransaction(id, tx); err != nil {
		o.logger.WithError(err).WithField("epoch", id).Error("Persisting transaction")
	}

	o.updates.enqueue(dispatchItem{
		msg:        &proto.LedgerUpdate{Transaction: tx},
		recipients: o.snapshot(),
		deadline:   accepted.Add(o.latency),
	})

	o.peerLock.Unlock()

	return nil
}

// throttle sleeps, holding lastTxLock, until minInterval has passed since the
// previous acceptance, and then records and returns the new acceptance time.
// It returns with lastTxLock held.
func (o *Orchestrator) throttle() time.Time {
	o.lastTxLock.Lock()

	if !o.lastTx.IsZero() {
		if elapsed := time.Since(o.lastTx); elapsed < o.minInterval {
			time.Sleep(o.minInterval - elapsed)
		}
	}

	o.lastTx = time.Now()

	return o.lastTx
}

// LastAcceptance returns the time at which the last transaction passed the
// throttle.
func (o *Orchestrator) LastAcceptance() time.Time {
	o.lastTxLock.Lock()
	defer o.lastTxLock.Unlock()

	return o.lastTx
}

// StartNewEpoch creates the next epoch, stamped with the current Unix time,
// and broadcasts it. A failure means the epoch counter and the ledger
// disagree, which the caller should treat as fatal.
func (o *Orchestrator) StartNewEpoch() (ledger.EpochID, error) {
	o.peerLock.Lock()

	id := ledger.EpochID(o.nextEpochID.Add(1) - 1)
	timestamp := time.Now().Unix()

	if err := o.ledger.CreateNewEpoch(id, timestamp); err != nil {
		o.peerLock.Unlock()
		return id, err
	}

	if err := o.store.SetEpoch(id, ledger.NewEpoch(timestamp)); err != nil {
		o.logger.WithError(err).WithField("epoch", id).Error("Persisting epoch")
	}

	recipients := o.snapshot()

	o.epochs.enqueue(dispatchItem{
		msg:        &proto.NewEpochStarted{Identifier: id, Timestamp: timestamp},
		recipients: recipients,
	})

	o.peerLock.Unlock()

	o.logger.WithFields(logrus.Fields{
		"epoch":     id,
		"timestamp": timestamp,
		"peers":     len(recipients),
	}).Info("New epoch")

	return id, nil
}

// snapshot must be called with peerLock held.
func (o *Orchestrator) snapshot() []peerEntry {
	res := make([]peerEntry, 0, len(o.peers))
	for id, p := range o.peers {
		res = append(res, peerEntry{id: id, peer: p})
	}
	return res
}

func (o *Orchestrator) broadcast(msg proto.Message, recipients []peerEntry) {
	for _, r := range recipients {
		if err := r.peer.Send(msg); err != nil {
			o.logger.WithError(err).WithFields(logrus.Fields{
				"peer":    r.id,
				"message": msg.Type().String(),
			}).Warn("Broadcast failed")
		}
	}
}

// Ledger returns the underlying ledger.
func (o *Orchestrator) Ledger() *ledger.Ledger {
	return o.ledger
}

// NetworkID returns the random identifier of this network instance.
func (o *Orchestrator) NetworkID() uuid.UUID {
	return o.networkID
}

// NumPeers returns the number of registered peers.
func (o *Orchestrator) NumPeers() int {
	o.peerLock.Lock()
	defer o.peerLock.Unlock()

	return len(o.peers)
}

// PeerIDs returns the connection ids of the registered peers, sorted.
func (o *Orchestrator) PeerIDs() []uint32 {
	o.peerLock.Lock()
	defer o.peerLock.Unlock()

	ids := make([]uint32, 0, len(o.peers))
	for id := range o.peers {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// GetStats returns stats
func (o *Orchestrator) GetStats() map[string]string {
	timeElapsed := time.Since(o.start)

	numTransactions := o.ledger.NumTransactions()

	currentEpoch := "none"
	if id, err := o.ledger.GetCurrentEpoch(); err == nil {
		currentEpoch = strconv.FormatUint(uint64(id), 10)
	}

	s := map[string]string{
		"network_id":              o.networkID.String(),
		"num_epochs":              strconv.Itoa(o.ledger.NumEpochs()),
		"current_epoch":           currentEpoch,
		"num_transactions":        strconv.Itoa(numTransactions),
		"num_peers":               strconv.Itoa(o.NumPeers()),
		"transactions_per_second": strconv.FormatFloat(float64(numTransactions)/timeElapsed.Seconds(), 'f', 2, 64),
		"min_interval":            o.minInterval.String(),
		"latency":                 o.latency.String(),
		"uptime":                  timeElapsed.Round(time.Second).String(),
	}

	return s
}

// LogStats logs the output of GetStats.
func (o *Orchestrator) LogStats() {
	stats := o.GetStats()

	o.logger.WithFields(logrus.Fields{
		"num_epochs":       stats["num_epochs"],
		"current_epoch":    stats["current_epoch"],
		"num_transactions": stats["num_transactions"],
		"num_peers":        stats["num_peers"],
		"tx/s":             stats["transactions_per_second"],
		"uptime":           stats["uptime"],
	}).Info("Stats")
}
