package node

import (
	"crypto/ecdsa"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/ledgersim/src/common"
	"github.com/mosaicnetworks/ledgersim/src/config"
	"github.com/mosaicnetworks/ledgersim/src/crypto/keys"
	"github.com/mosaicnetworks/ledgersim/src/ledger"
	"github.com/mosaicnetworks/ledgersim/src/proto"
	"github.com/mosaicnetworks/ledgersim/src/store"
	"github.com/sirupsen/logrus"
)

type recordingPeer struct {
	sync.Mutex
	msgs []proto.Message
	fail bool
}

func (p *recordingPeer) Send(msg proto.Message) error {
	p.Lock()
	defer p.Unlock()

	if p.fail {
		return errors.New("connection closed")
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPeer) setFail(fail bool) {
	p.Lock()
	defer p.Unlock()
	p.fail = fail
}

func (p *recordingPeer) messages() []proto.Message {
	p.Lock()
	defer p.Unlock()

	res := make([]proto.Message, len(p.msgs))
	copy(res, p.msgs)
	return res
}

// waitFor polls cond until it is true or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout")
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestOrchestrator(t *testing.T, throughput float64, latencyMs int) *Orchestrator {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.Throughput = throughput
	conf.LatencyMs = latencyMs

	o, err := NewOrchestrator(conf, store.NewInmemStore())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	t.Cleanup(o.Close)
	return o
}

func newTestTransaction(t *testing.T, key *ecdsa.PrivateKey, n int) ledger.Transaction {
	op, _ := ledger.EncodeOperation(n)
	tx, err := ledger.NewTransaction(ledger.NewAccountID(&key.PublicKey), op, key)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	return tx
}

func testKey(t *testing.T) *ecdsa.PrivateKey {
	key, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	return key
}

func TestInvalidThroughput(t *testing.T) {
	for _, throughput := range []float64{0, -1} {
		conf := config.NewTestConfig(t, logrus.DebugLevel)
		conf.Throughput = throughput

		if _, err := NewOrchestrator(conf, nil); err != ErrInvalidThroughput {
			t.Fatalf("throughput %v should fail with ErrInvalidThroughput, got %v", throughput, err)
		}
	}
}

func TestInsertWithoutEpoch(t *testing.T) {
	o := newTestOrchestrator(t, 1000, 0)

	err := o.Insert(newTestTransaction(t, testKey(t), 0))
	if !common.IsStore(err, common.Empty) {
		t.Fatalf("Insert before the first epoch should fail with Empty, got %v", err)
	}
}

func TestPeerIDs(t *testing.T) {
	o := newTestOrchestrator(t, 1000, 0)

	if id := o.NewPeerID(); id != 1 {
		t.Fatalf("first peer id should be 1, not %d", id)
	}
	if id := o.NewPeerID(); id != 2 {
		t.Fatalf("second peer id should be 2, not %d", id)
	}
}

// Two back-to-back inserts at 1000 tx/s are accepted at least 1ms apart.
func TestThrottleMinInterval(t *testing.T) {
	o := newTestOrchestrator(t, 1000, 0)
	key := testKey(t)

	if _, err := o.StartNewEpoch(); err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := o.Insert(newTestTransaction(t, key, 1)); err != nil {
		t.Fatalf("err: %v", err)
	}
	first := o.LastAcceptance()

	if err := o.Insert(newTestTransaction(t, key, 2)); err != nil {
		t.Fatalf("err: %v", err)
	}
	second := o.LastAcceptance()

	if gap := second.Sub(first); gap < time.Millisecond {
		t.Fatalf("acceptances should be at least 1ms apart, got %v", gap)
	}
}

func TestThrottleConcurrent(t *testing.T) {
	o := newTestOrchestrator(t, 200, 0)
	key := testKey(t)
	tx := newTestTransaction(t, key, 0)

	if _, err := o.StartNewEpoch(); err != nil {
		t.Fatalf("err: %v", err)
	}

	const n = 11

	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := o.Insert(tx); err != nil {
				t.Errorf("err: %v", err)
			}
		}()
	}
	wg.Wait()

	// the first insert is free, the other ten wait 5ms each
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("%d inserts at 200 tx/s should take at least 50ms, took %v", n, elapsed)
	}

	if o.Ledger().NumTransactions() != n {
		t.Fatalf("ledger should have %d transactions, not %d", n, o.Ledger().NumTransactions())
	}
}

func TestRegisterPeerBacklog(t *testing.T) {
	o := newTestOrchestrator(t, 10000, 0)
	key := testKey(t)

	for e := 0; e < 3; e++ {
		if _, err := o.StartNewEpoch(); err != nil {
			t.Fatalf("err: %v", err)
		}
		for i := 0; i < e; i++ {
			if err := o.Insert(newTestTransaction(t, key, i)); err != nil {
				t.Fatalf("err: %v", err)
			}
		}
	}

	peer := &recordingPeer{}
	if err := o.RegisterPeer(o.NewPeerID(), peer); err != nil {
		t.Fatalf("err: %v", err)
	}

	msgs := peer.messages()
	if len(msgs) != 3 {
		t.Fatalf("peer should receive 3 SyncEpoch, not %d messages", len(msgs))
	}

	for i, msg := range msgs {
		se, ok := msg.(*proto.SyncEpoch)
		if !ok {
			t.Fatalf("message %d should be SyncEpoch, not %s", i, msg.Type())
		}
		if se.Identifier != ledger.EpochID(i) {
			t.Fatalf("SyncEpoch %d has identifier %d", i, se.Identifier)
		}
		if len(se.Epoch.Transactions) != i {
			t.Fatalf("epoch %d should carry %d transactions, not %d", i, i, len(se.Epoch.Transactions))
		}
	}

	if o.NumPeers() != 1 {
		t.Fatalf("there should be 1 peer, not %d", o.NumPeers())
	}
}

func TestRegisterPeerFailure(t *testing.T) {
	o := newTestOrchestrator(t, 1000, 0)

	if _, err := o.StartNewEpoch(); err != nil {
		t.Fatalf("err: %v", err)
	}

	peer := &recordingPeer{fail: true}
	if err := o.RegisterPeer(1, peer); err == nil {
		t.Fatalf("RegisterPeer should fail when the backlog can not be sent")
	}
	if o.NumPeers() != 0 {
		t.Fatalf("failed peer should not be registered")
	}

	good := &recordingPeer{}
	if err := o.RegisterPeer(2, good); err != nil {
		t.Fatalf("err: %v", err)
	}
	if err := o.RegisterPeer(2, good); err != ErrPeerExists {
		t.Fatalf("registering the same id twice should fail with ErrPeerExists, got %v", err)
	}
}

func TestBroadcast(t *testing.T) {
	o := newTestOrchestrator(t, 1000, 20)
	key := testKey(t)

	a := &recordingPeer{}
	b := &recordingPeer{}

	if err := o.RegisterPeer(1, a); err != nil {
		t.Fatalf("err: %v", err)
	}
	if err := o.RegisterPeer(2, b); err != nil {
		t.Fatalf("err: %v", err)
	}

	if _, err := o.StartNewEpoch(); err != nil {
		t.Fatalf("err: %v", err)
	}

	waitFor(t, time.Second, func() bool { return len(a.messages()) == 1 && len(b.messages()) == 1 })

	started, ok := a.messages()[0].(*proto.NewEpochStarted)
	if !ok || started.Identifier != 0 {
		t.Fatalf("first message should be NewEpochStarted for epoch 0")
	}

	// b goes away, a should still be served
	b.setFail(true)

	tx := newTestTransaction(t, key, 7)
	inserted := time.Now()
	if err := o.Insert(tx); err != nil {
		t.Fatalf("err: %v", err)
	}

	waitFor(t, time.Second, func() bool { return len(a.messages()) == 2 })

	if time.Since(inserted) < 20*time.Millisecond {
		t.Fatalf("LedgerUpdate should be delayed by the latency")
	}

	update, ok := a.messages()[1].(*proto.LedgerUpdate)
	if !ok || !update.Transaction.Equal(tx) {
		t.Fatalf("second message should be the LedgerUpdate")
	}

	// the ledger keeps the transaction regardless of delivery failures
	if o.Ledger().NumTransactions() != 1 {
		t.Fatalf("ledger should have 1 transaction")
	}
}

func TestUnregisterPeer(t *testing.T) {
	o := newTestOrchestrator(t, 1000, 0)

	peer := &recordingPeer{}
	if err := o.RegisterPeer(1, peer); err != nil {
		t.Fatalf("err: %v", err)
	}

	o.UnregisterPeer(1)
	o.UnregisterPeer(1)

	if _, err := o.StartNewEpoch(); err != nil {
		t.Fatalf("err: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if len(peer.messages()) != 0 {
		t.Fatalf("unregistered peer should not receive broadcasts")
	}
}

// A peer registering concurrently with a rotation sees the new epoch exactly
// once, either in its backlog or as NewEpochStarted.
func TestRegisterDuringRotation(t *testing.T) {
	for round := 0; round < 50; round++ {
		o := newTestOrchestrator(t, 1000, 0)

		if _, err := o.StartNewEpoch(); err != nil {
			t.Fatalf("err: %v", err)
		}

		peer := &recordingPeer{}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := o.StartNewEpoch(); err != nil {
				t.Errorf("err: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := o.RegisterPeer(1, peer); err != nil {
				t.Errorf("err: %v", err)
			}
		}()
		wg.Wait()

		occurrences := func() int {
			n := 0
			for _, msg := range peer.messages() {
				switch m := msg.(type) {
				case *proto.SyncEpoch:
					if m.Identifier == 1 {
						n++
					}
				case *proto.NewEpochStarted:
					if m.Identifier == 1 {
						n++
					}
				}
			}
			return n
		}

		waitFor(t, time.Second, func() bool { return occurrences() >= 1 })
		time.Sleep(5 * time.Millisecond)

		if n := occurrences(); n != 1 {
			t.Fatalf("round %d: epoch 1 should be seen exactly once, not %d times", round, n)
		}

		// the backlog always starts with epoch 0
		first, ok := peer.messages()[0].(*proto.SyncEpoch)
		if !ok || first.Identifier != 0 {
			t.Fatalf("round %d: first message should be SyncEpoch 0", round)
		}
	}
}

func TestBootstrap(t *testing.T) {
	key := testKey(t)

	s := store.NewInmemStore()
	for id := ledger.EpochID(0); id < 3; id++ {
		epoch := ledger.NewEpoch(int64(id))
		epoch.Transactions = append(epoch.Transactions, newTestTransaction(t, key, int(id)))
		if err := s.SetEpoch(id, epoch); err != nil {
			t.Fatalf("err: %v", err)
		}
	}

	conf := config.NewTestConfig(t, logrus.DebugLevel)
	o, err := NewOrchestrator(conf, s)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer o.Close()

	if err := o.Bootstrap(); err != nil {
		t.Fatalf("err: %v", err)
	}

	if o.Ledger().NumEpochs() != 3 || o.Ledger().NumTransactions() != 3 {
		t.Fatalf("bootstrapped ledger should have 3 epochs and 3 transactions")
	}

	id, err := o.StartNewEpoch()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if id != 3 {
		t.Fatalf("next epoch should be 3, not %d", id)
	}

	// write-through
	if err := o.Insert(newTestTransaction(t, key, 9)); err != nil {
		t.Fatalf("err: %v", err)
	}
	stored, err := s.GetEpoch(3)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(stored.Transactions) != 1 {
		t.Fatalf("stored epoch 3 should have 1 transaction, not %d", len(stored.Transactions))
	}
}

func TestGetStats(t *testing.T) {
	o := newTestOrchestrator(t, 1000, 0)

	stats := o.GetStats()
	if stats["current_epoch"] != "none" || stats["num_epochs"] != "0" {
		t.Fatalf("unexpected stats for an empty ledger: %v", stats)
	}

	o.StartNewEpoch()
	o.RegisterPeer(o.NewPeerID(), &recordingPeer{})

	stats = o.GetStats()
	if stats["current_epoch"] != "0" || stats["num_peers"] != "1" {
		t.Fatalf("unexpected stats: %v", stats)
	}
	if stats["network_id"] != o.NetworkID().String() {
		t.Fatalf("stats should carry the network id")
	}

	o.LogStats()
}

// Updates reach a peer in ledger order even when they are accepted faster
// than the scheduler can interleave them.
func TestBroadcastOrder(t *testing.T) {
	o := newTestOrchestrator(t, 100000, 5)
	key := testKey(t)

	if _, err := o.StartNewEpoch(); err != nil {
		t.Fatalf("err: %v", err)
	}

	peer := &recordingPeer{}
	if err := o.RegisterPeer(1, peer); err != nil {
		t.Fatalf("err: %v", err)
	}

	const n = 100

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < n/4; i++ {
				if err := o.Insert(newTestTransaction(t, key, g*n+i)); err != nil {
					t.Errorf("err: %v", err)
				}
			}
		}(g)
	}
	wg.Wait()

	updates := func() []ledger.Transaction {
		var res []ledger.Transaction
		for _, msg := range peer.messages() {
			if u, ok := msg.(*proto.LedgerUpdate); ok {
				res = append(res, u.Transaction)
			}
		}
		return res
	}

	waitFor(t, 2*time.Second, func() bool { return len(updates()) == n })

	epoch, err := o.Ledger().GetEpoch(0)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	received := updates()
	for i, tx := range epoch.Transactions {
		if !received[i].Equal(tx) {
			t.Fatalf("update %d is not the %dth transaction of the ledger", i, i)
		}
	}
}

func TestEpochBroadcastOrder(t *testing.T) {
	o := newTestOrchestrator(t, 1000, 0)

	peer := &recordingPeer{}
	if err := o.RegisterPeer(1, peer); err != nil {
		t.Fatalf("err: %v", err)
	}

	const n = 40

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.StartNewEpoch(); err != nil {
				t.Errorf("err: %v", err)
			}
		}()
	}
	wg.Wait()

	waitFor(t, time.Second, func() bool { return len(peer.messages()) == n })

	for i, msg := range peer.messages() {
		started, ok := msg.(*proto.NewEpochStarted)
		if !ok {
			t.Fatalf("message %d should be NewEpochStarted", i)
		}
		if started.Identifier != ledger.EpochID(i) {
			t.Fatalf("message %d should announce epoch %d, not %d", i, i, started.Identifier)
		}
	}
}

func TestClose(t *testing.T) {
	o := newTestOrchestrator(t, 1000, 50)
	key := testKey(t)

	if _, err := o.StartNewEpoch(); err != nil {
		t.Fatalf("err: %v", err)
	}

	peer := &recordingPeer{}
	if err := o.RegisterPeer(1, peer); err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := o.Insert(newTestTransaction(t, key, 1)); err != nil {
		t.Fatalf("err: %v", err)
	}

	o.Close()
	o.Close()

	// accepted after Close, never broadcast
	if err := o.Insert(newTestTransaction(t, key, 2)); err != nil {
		t.Fatalf("err: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	for _, msg := range peer.messages() {
		if _, ok := msg.(*proto.LedgerUpdate); ok {
			t.Fatalf("pending updates should be dropped by Close")
		}
	}

	if n := o.Ledger().NumTransactions(); n != 2 {
		t.Fatalf("ledger should have 2 transactions, not %d", n)
	}
}
