package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mosaicnetworks/ledgersim/src/common"
	"github.com/mosaicnetworks/ledgersim/src/ledger"
	"github.com/mosaicnetworks/ledgersim/src/node"
	"github.com/sirupsen/logrus"
)

// Service serves the HTTP API of a sequencer.
type Service struct {
	bindAddress  string
	orchestrator *node.Orchestrator
	router       *mux.Router
	server       *http.Server
	logger       *logrus.Entry
}

// NewService creates a Service and registers its routes.
func NewService(bindAddress string, o *node.Orchestrator, logger *logrus.Entry) *Service {
	service := &Service{
		bindAddress:  bindAddress,
		orchestrator: o,
		router:       mux.NewRouter(),
		logger:       logger.WithField("prefix", "service"),
	}

	service.registerHandlers()

	service.server = &http.Server{
		Addr:    bindAddress,
		Handler: service.router,
	}

	return service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")
	s.router.HandleFunc("/stats", s.makeHandler(s.GetStats)).Methods("GET")
	s.router.HandleFunc("/epochs", s.makeHandler(s.GetEpochs)).Methods("GET")
	s.router.HandleFunc("/epoch/{id}", s.makeHandler(s.GetEpoch)).Methods("GET")
	s.router.HandleFunc("/peers", s.makeHandler(s.GetPeers)).Methods("GET")
	s.router.HandleFunc("/ws", s.ServeWS).Methods("GET")
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the router, for embedding in another server.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Serve calls ListenAndServe. This is a blocking call. It returns nil after
// Shutdown.
func (s *Service) Serve() error {
	s.logger.WithField("bind_address", s.bindAddress).Info("Serving API")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server. Open WebSocket feeds are not affected by
// http.Server.Shutdown; they end when their peer goes away.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// GetStats returns the stats of the orchestrator.
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.orchestrator.GetStats())
}

// EpochList is the response of GET /epochs.
type EpochList struct {
	Epochs          []ledger.EpochID `json:"epochs"`
	NumTransactions int              `json:"num_transactions"`
	HasGaps         bool             `json:"has_gaps"`
}

// GetEpochs returns the ids of all the epochs.
func (s *Service) GetEpochs(w http.ResponseWriter, r *http.Request) {
	l := s.orchestrator.Ledger()

	writeJSON(w, EpochList{
		Epochs:          l.EpochIDs(),
		NumTransactions: l.NumTransactions(),
		HasGaps:         l.HasGaps(),
	})
}

// GetEpoch returns one epoch.
func (s *Service) GetEpoch(w http.ResponseWriter, r *http.Request) {
	param := mux.Vars(r)["id"]

	id, err := strconv.ParseUint(param, 10, 32)
	if err != nil {
		s.logger.WithError(err).Debugf("Parsing epoch id parameter %s", param)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	epoch, err := s.orchestrator.Ledger().GetEpoch(ledger.EpochID(id))
	if err != nil {
		status := http.StatusInternalServerError
		if common.IsStore(err, common.KeyNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, epoch)
}

// GetPeers returns the connection ids of the registered peers.
func (s *Service) GetPeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.orchestrator.PeerIDs())
}
