package node

import (
	"context"
	"time"

	"github.com/mosaicnetworks/ledgersim/src/ledger"
	"github.com/sirupsen/logrus"
)

type timerFactory func(time.Duration) <-chan time.Time

type epochRotator interface {
	StartNewEpoch() (ledger.EpochID, error)
}

// EpochTimer rotates epochs at a fixed period.
type EpochTimer struct {
	timerFactory timerFactory
	rotator      epochRotator
	period       time.Duration
	tickCh       chan ledger.EpochID // optional, receives every new epoch id
	logger       *logrus.Entry
}

// NewEpochTimer creates an EpochTimer that calls o.StartNewEpoch every period.
func NewEpochTimer(o *Orchestrator, period time.Duration, logger *logrus.Entry) *EpochTimer {
	return newEpochTimer(o, period, time.After, logger)
}

func newEpochTimer(r epochRotator, period time.Duration, factory timerFactory, logger *logrus.Entry) *EpochTimer {
	return &EpochTimer{
		timerFactory: factory,
		rotator:      r,
		period:       period,
		logger:       logger.WithField("prefix", "epoch-timer"),
	}
}

// Run waits one period, rotates, and starts again, until ctx is done. The
// first epoch is expected to exist already. A rotation failure means the
// epoch counter is corrupted and panics.
func (t *EpochTimer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.timerFactory(t.period):
		}

		id, err := t.rotator.StartNewEpoch()
		if err != nil {
			t.logger.WithError(err).WithField("epoch", id).Panic("Starting new epoch")
		}

		if t.tickCh != nil {
			t.tickCh <- id
		}
	}
}
