package node

import (
	"context"
	"testing"
	"time"

	"github.com/mosaicnetworks/ledgersim/src/common"
	"github.com/mosaicnetworks/ledgersim/src/ledger"
	"github.com/sirupsen/logrus"
)

func TestEpochTimer(t *testing.T) {
	o := newTestOrchestrator(t, 1000, 0)

	if _, err := o.StartNewEpoch(); err != nil {
		t.Fatalf("err: %v", err)
	}

	ticks := make(chan time.Time)
	factory := func(d time.Duration) <-chan time.Time {
		if d != time.Minute {
			t.Errorf("timer should be set to the epoch length, not %v", d)
		}
		return ticks
	}

	timer := newEpochTimer(o, time.Minute, factory, common.NewTestEntry(t, logrus.DebugLevel))
	timer.tickCh = make(chan ledger.EpochID)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- timer.Run(ctx)
	}()

	for expected := ledger.EpochID(1); expected <= 3; expected++ {
		ticks <- time.Now()

		select {
		case id := <-timer.tickCh:
			if id != expected {
				t.Fatalf("rotation should create epoch %d, not %d", expected, id)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout")
		}
	}

	if o.Ledger().NumEpochs() != 4 {
		t.Fatalf("ledger should have 4 epochs, not %d", o.Ledger().NumEpochs())
	}

	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run should return context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout")
	}
}

type brokenRotator struct{}

func (brokenRotator) StartNewEpoch() (ledger.EpochID, error) {
	return 0, common.NewStoreErr("Epoch", common.KeyAlreadyExists, "0")
}

func TestEpochTimerPanicsOnDuplicate(t *testing.T) {
	ticks := make(chan time.Time, 1)
	ticks <- time.Now()

	timer := newEpochTimer(brokenRotator{}, time.Second, func(time.Duration) <-chan time.Time { return ticks }, common.NewTestEntry(t, logrus.DebugLevel))

	defer func() {
		if recover() == nil {
			t.Fatalf("duplicate epoch should panic")
		}
	}()

	timer.Run(context.Background())
}
