package ledgersim

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mosaicnetworks/ledgersim/src/client"
	"github.com/mosaicnetworks/ledgersim/src/common"
	"github.com/mosaicnetworks/ledgersim/src/config"
	"github.com/mosaicnetworks/ledgersim/src/crypto/keys"
	"github.com/mosaicnetworks/ledgersim/src/ledger"
	"github.com/mosaicnetworks/ledgersim/src/store"
	"github.com/sirupsen/logrus"
)

func testConfig(t *testing.T) *config.Config {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.ListenAddress = "127.0.0.1:0"
	conf.Throughput = 100000
	conf.LatencyMs = 0
	conf.EpochLength = 3600
	return conf
}

type running struct {
	engine *Ledgersim
	cancel context.CancelFunc
	errCh  chan error
}

func start(t *testing.T, conf *config.Config) *running {
	engine := NewLedgersim(conf)
	if err := engine.Init(); err != nil {
		t.Fatalf("err: %v", err)
	}

	initial := engine.Orchestrator.Ledger().NumEpochs()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Run(ctx)
	}()

	r := &running{engine: engine, cancel: cancel, errCh: errCh}
	t.Cleanup(func() { r.stop(t) })

	deadline := time.Now().Add(2 * time.Second)
	for engine.Orchestrator.Ledger().NumEpochs() == initial {
		if time.Now().After(deadline) {
			t.Fatalf("engine should open a first epoch")
		}
		time.Sleep(5 * time.Millisecond)
	}

	return r
}

func (r *running) stop(t *testing.T) {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.cancel = nil

	select {
	case err := <-r.errCh:
		if err != nil {
			t.Fatalf("err: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run should return after cancel")
	}
}

func TestInitValidation(t *testing.T) {
	cases := map[string]func(*config.Config){
		"throughput": func(c *config.Config) { c.Throughput = 0 },
		"store":      func(c *config.Config) { c.Store = "nope" },
		"bootstrap":  func(c *config.Config) { c.Bootstrap = true },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			conf := testConfig(t)
			mutate(conf)

			if err := NewLedgersim(conf).Init(); err == nil {
				t.Fatalf("Init should fail")
			}
		})
	}
}

func TestRun(t *testing.T) {
	r := start(t, testConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, r.engine.Server.LocalAddr(), common.NewTestEntry(t, logrus.DebugLevel))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer c.Close()

	key, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	tx, err := ledger.NewCreateAccount(key)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if err := c.Submit(tx); err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := c.WaitForTransactions(ctx, 1); err != nil {
		t.Fatalf("err: %v", err)
	}

	r.stop(t)

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("client should be disconnected on shutdown")
	}
}

func TestBootstrap(t *testing.T) {
	for _, kind := range []string{store.BadgerType, store.BoltType} {
		t.Run(kind, func(t *testing.T) {
			dir := t.TempDir()

			conf := testConfig(t)
			conf.Store = kind
			conf.DatabaseDir = filepath.Join(dir, "db")

			r := start(t, conf)

			key, err := keys.GenerateECDSAKey()
			if err != nil {
				t.Fatalf("err: %v", err)
			}
			tx, err := ledger.NewCreateAccount(key)
			if err != nil {
				t.Fatalf("err: %v", err)
			}
			if err := r.engine.Orchestrator.Insert(tx); err != nil {
				t.Fatalf("err: %v", err)
			}
			if _, err := r.engine.Orchestrator.StartNewEpoch(); err != nil {
				t.Fatalf("err: %v", err)
			}

			r.stop(t)

			conf2 := testConfig(t)
			conf2.Store = kind
			conf2.DatabaseDir = conf.DatabaseDir
			conf2.Bootstrap = true

			r2 := start(t, conf2)

			l := r2.engine.Orchestrator.Ledger()

			if n := l.NumEpochs(); n != 3 {
				t.Fatalf("bootstrapped ledger should have 3 epochs, not %d", n)
			}
			if n := l.NumTransactions(); n != 1 {
				t.Fatalf("bootstrapped ledger should have 1 transaction, not %d", n)
			}
			if l.HasGaps() {
				t.Fatalf("bootstrapped ledger should have no gaps")
			}

			current, err := l.GetCurrentEpoch()
			if err != nil {
				t.Fatalf("err: %v", err)
			}
			if current != 2 {
				t.Fatalf("current epoch should be 2, not %d", current)
			}
		})
	}
}
