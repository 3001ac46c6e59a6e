// Package ledgersim assembles a sequencer from a config: store, orchestrator,
// TCP server, epoch timer and optional HTTP service.
package ledgersim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mosaicnetworks/ledgersim/src/config"
	"github.com/mosaicnetworks/ledgersim/src/net"
	"github.com/mosaicnetworks/ledgersim/src/node"
	"github.com/mosaicnetworks/ledgersim/src/service"
	"github.com/mosaicnetworks/ledgersim/src/store"
	"github.com/sirupsen/logrus"
)

// Ledgersim is a runnable sequencer.
type Ledgersim struct {
	Config       *config.Config
	Store        store.Store
	Orchestrator *node.Orchestrator
	Server       *net.Server
	Service      *service.Service

	timer *node.EpochTimer

	shutdownOnce sync.Once

	logger *logrus.Entry
}

// NewLedgersim creates an engine. Init must be called before Run.
func NewLedgersim(conf *config.Config) *Ledgersim {
	return &Ledgersim{
		Config: conf,
		logger: conf.Logger(),
	}
}

func (l *Ledgersim) initStore() error {
	path := l.Config.DatabasePath()

	l.logger.WithFields(logrus.Fields{
		"store": l.Config.Store,
		"path":  path,
	}).Debug("Opening store")

	s, err := store.New(l.Config.Store, path, l.logger)
	if err != nil {
		return err
	}

	l.Store = s

	return nil
}

func (l *Ledgersim) initOrchestrator() error {
	o, err := node.NewOrchestrator(l.Config, l.Store)
	if err != nil {
		return err
	}

	if l.Config.Bootstrap {
		if err := o.Bootstrap(); err != nil {
			o.Close()
			return fmt.Errorf("bootstrapping from %s: %w", l.Store.StorePath(), err)
		}
	}

	l.Orchestrator = o
	l.timer = node.NewEpochTimer(o, l.Config.EpochDuration(), l.logger)

	return nil
}

func (l *Ledgersim) initServer() error {
	stream, err := net.NewTCPStreamLayer(net.ParseAddress(l.Config.ListenAddress))
	if err != nil {
		return err
	}

	l.Server = net.NewServer(stream, l.Orchestrator, l.Config.AppProxy(), l.logger)

	return nil
}

func (l *Ledgersim) initService() {
	if l.Config.ServiceAddr != "" {
		l.Service = service.NewService(l.Config.ServiceAddr, l.Orchestrator, l.logger)
	}
}

// Init validates the config and builds every component. The TCP listener is
// bound here, so a bad address fails before Run.
func (l *Ledgersim) Init() error {
	if err := l.Config.Validate(); err != nil {
		return err
	}

	if err := l.initStore(); err != nil {
		return err
	}

	if err := l.initOrchestrator(); err != nil {
		l.Store.Close()
		return err
	}

	if err := l.initServer(); err != nil {
		l.Orchestrator.Close()
		l.Store.Close()
		return err
	}

	l.initService()

	return nil
}

// Run opens the first epoch, then rotates epochs and serves peers until ctx
// is done. It shuts the engine down before returning.
func (l *Ledgersim) Run(ctx context.Context) error {
	if _, err := l.Orchestrator.StartNewEpoch(); err != nil {
		return err
	}

	timerDone := make(chan struct{})
	go func() {
		defer close(timerDone)
		l.timer.Run(ctx)
	}()

	var wg sync.WaitGroup

	if l.Service != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Service.Serve(); err != nil {
				l.logger.WithError(err).Error("HTTP service stopped")
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		l.Server.Listen()
	}()

	l.logger.WithFields(logrus.Fields{
		"addr":         l.Server.LocalAddr(),
		"network":      l.Orchestrator.NetworkID().String(),
		"throughput":   l.Config.Throughput,
		"latency":      l.Config.Latency(),
		"epoch_length": l.Config.EpochDuration(),
	}).Info("Sequencer running")

	<-ctx.Done()

	// no rotation may race with closing the store
	<-timerDone

	err := l.Shutdown()

	wg.Wait()

	return err
}

// Shutdown stops the listener, the HTTP service, the broadcast queues and the
// store. It is safe to
// call more than once.
func (l *Ledgersim) Shutdown() error {
	var err error

	l.shutdownOnce.Do(func() {
		l.logger.Info("Shutting down")

		if e := l.Server.Close(); e != nil {
			err = e
		}

		if l.Service != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if e := l.Service.Shutdown(ctx); e != nil && err == nil {
				err = e
			}
			cancel()
		}

		l.Orchestrator.Close()
		l.Orchestrator.LogStats()

		if e := l.Store.Close(); e != nil && err == nil {
			err = e
		}
	})

	return err
}
