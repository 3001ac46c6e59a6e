package store

import (
	"sort"
	"sync"

	"github.com/mosaicnetworks/ledgersim/src/ledger"
)

// InmemStore implements the Store interface with in-memory maps. Its content
// does not survive the process.
type InmemStore struct {
	sync.RWMutex
	epochs map[ledger.EpochID]ledger.Epoch
}

// NewInmemStore creates an empty InmemStore.
func NewInmemStore() *InmemStore {
	return &InmemStore{
		epochs: make(map[ledger.EpochID]ledger.Epoch),
	}
}

// SetEpoch implements the Store interface.
func (s *InmemStore) SetEpoch(id ledger.EpochID, epoch ledger.Epoch) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.epochs[id]; ok {
		return epochExists(id)
	}

	s.epochs[id] = epoch.Copy()

	return nil
}

// AppendTransaction implements the Store interface.
func (s *InmemStore) AppendTransaction(id ledger.EpochID, tx ledger.Transaction) error {
	s.Lock()
	defer s.Unlock()

	epoch, ok := s.epochs[id]
	if !ok {
		return epochNotFound(id)
	}

	epoch.Transactions = append(epoch.Transactions, tx)
	s.epochs[id] = epoch

	return nil
}

// GetEpoch implements the Store interface.
func (s *InmemStore) GetEpoch(id ledger.EpochID) (ledger.Epoch, error) {
	s.RLock()
	defer s.RUnlock()

	epoch, ok := s.epochs[id]
	if !ok {
		return ledger.Epoch{}, epochNotFound(id)
	}

	return epoch.Copy(), nil
}

// EpochIDs implements the Store interface.
func (s *InmemStore) EpochIDs() ([]ledger.EpochID, error) {
	s.RLock()
	defer s.RUnlock()

	ids := make([]ledger.EpochID, 0, len(s.epochs))
	for id := range s.epochs {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}

// StorePath implements the Store interface. InmemStore has no path.
func (s *InmemStore) StorePath() string {
	return ""
}
