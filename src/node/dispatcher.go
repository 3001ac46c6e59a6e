package node

import (
	"sync"
	"time"

	"github.com/mosaicnetworks/ledgersim/src/proto"
)

const dispatchQueueSize = 1024

type dispatchItem struct {
	msg        proto.Message
	recipients []peerEntry
	deadline   time.Time
}

// dispatcher broadcasts queued messages one at a time, in queue order, each
// no earlier than its deadline. Deadlines are expected to be non-decreasing.
type dispatcher struct {
	queue chan dispatchItem
	send  func(proto.Message, []peerEntry)

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newDispatcher(send func(proto.Message, []peerEntry)) *dispatcher {
	d := &dispatcher{
		queue:  make(chan dispatchItem, dispatchQueueSize),
		send:   send,
		stopCh: make(chan struct{}),
	}

	go d.run()

	return d
}

// enqueue blocks while the queue is full. Items enqueued after stop are
// dropped.
func (d *dispatcher) enqueue(item dispatchItem) {
	select {
	case d.queue <- item:
	case <-d.stopCh:
	}
}

func (d *dispatcher) run() {
	for {
		select {
		case <-d.stopCh:
			return
		case item := <-d.queue:
			if wait := time.Until(item.deadline); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-timer.C:
				case <-d.stopCh:
					timer.Stop()
					return
				}
			}
			d.send(item.msg, item.recipients)
		}
	}
}

// stop discards pending items. It is safe to call more than once.
func (d *dispatcher) stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
	})
}
