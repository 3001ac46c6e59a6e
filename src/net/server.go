package net

import (
	"sync"

	"github.com/mosaicnetworks/ledgersim/src/proxy"
	"github.com/sirupsen/logrus"
)

// Server accepts peer connections and hands them to the Sequencer.
type Server struct {
	stream    StreamLayer
	sequencer Sequencer
	proxy     proxy.AppProxy

	connLock sync.Mutex
	conns    map[uint32]*PeerConnection

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	wg sync.WaitGroup

	logger *logrus.Entry
}

// NewServer creates a Server. Call Listen to start accepting connections.
func NewServer(stream StreamLayer, sequencer Sequencer, app proxy.AppProxy, logger *logrus.Entry) *Server {
	if app == nil {
		app = proxy.NullProxy{}
	}

	return &Server{
		stream:     stream,
		sequencer:  sequencer,
		proxy:      app,
		conns:      make(map[uint32]*PeerConnection),
		shutdownCh: make(chan struct{}),
		logger:     logger.WithField("prefix", "server"),
	}
}

// LocalAddr returns an address that peers can dial.
func (s *Server) LocalAddr() string {
	return s.stream.AdvertiseAddr()
}

// IsShutdown is used to check if the server is shutdown.
func (s *Server) IsShutdown() bool {
	select {
	case <-s.shutdownCh:
		return true
	default:
		return false
	}
}

// Listen accepts connections until Close is called.
func (s *Server) Listen() {
	s.logger.WithField("addr", s.stream.Addr().String()).Info("Listening")

	for {
		conn, err := s.stream.Accept()
		if err != nil {
			if s.IsShutdown() {
				return
			}
			s.logger.WithError(err).Error("Failed to accept connection")
			continue
		}

		id := s.sequencer.NewPeerID()
		pc := NewPeerConnection(id, conn, s.sequencer, s.proxy, s.logger)

		s.logger.WithFields(logrus.Fields{
			"peer":   id,
			"remote": conn.RemoteAddr().String(),
		}).Debug("Accepted connection")

		if !s.track(pc) {
			pc.Close()
			return
		}

		go s.handleConn(pc)
	}
}

func (s *Server) handleConn(pc *PeerConnection) {
	defer s.wg.Done()
	defer s.untrack(pc)

	if err := s.sequencer.RegisterPeer(pc.ID(), pc); err != nil {
		s.logger.WithError(err).WithField("peer", pc.ID()).Warn("Failed to register peer")
		pc.Close()
		return
	}

	if err := pc.Run(); err != nil {
		s.logger.WithError(err).WithField("peer", pc.ID()).Debug("Connection terminated")
	}
}

func (s *Server) track(pc *PeerConnection) bool {
	s.connLock.Lock()
	defer s.connLock.Unlock()

	if s.IsShutdown() {
		return false
	}
	s.conns[pc.ID()] = pc
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(pc *PeerConnection) {
	s.connLock.Lock()
	defer s.connLock.Unlock()

	delete(s.conns, pc.ID())
}

// NumConnections returns the number of open connections.
func (s *Server) NumConnections() int {
	s.connLock.Lock()
	defer s.connLock.Unlock()

	return len(s.conns)
}

// Close stops the listener, closes every connection and waits for their read
// loops to return.
func (s *Server) Close() error {
	s.shutdownLock.Lock()
	if s.shutdown {
		s.shutdownLock.Unlock()
		return nil
	}
	s.shutdown = true
	s.shutdownLock.Unlock()

	s.connLock.Lock()
	close(s.shutdownCh)
	conns := make([]*PeerConnection, 0, len(s.conns))
	for _, pc := range s.conns {
		conns = append(conns, pc)
	}
	s.connLock.Unlock()

	err := s.stream.Close()

	for _, pc := range conns {
		pc.Close()
	}

	s.wg.Wait()

	return err
}
