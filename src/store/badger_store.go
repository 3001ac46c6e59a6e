package store

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger"
	"github.com/mosaicnetworks/ledgersim/src/common"
	"github.com/mosaicnetworks/ledgersim/src/ledger"
	"github.com/sirupsen/logrus"
)

const (
	epochPrefix = "epoch"
	txPrefix    = "tx"
)

// BadgerStore implements the Store interface with a Badger database. Epoch
// headers are stored under epoch_<id> and transactions under
// tx_<id>_<index>, both zero-padded so that keys sort numerically.
type BadgerStore struct {
	db   *badger.DB
	path string

	// next transaction index per epoch, loaded lazily from the database
	countLock sync.Mutex
	counts    map[ledger.EpochID]int
}

// NewBadgerStore opens an existing database or creates a new one if nothing is
// found in path.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true)

	if logger != nil {
		opts = opts.WithLogger(logger.WithField("ns", "badger"))
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{
		db:     handle,
		path:   path,
		counts: make(map[ledger.EpochID]int),
	}, nil
}

func epochKey(id ledger.EpochID) []byte {
	return []byte(fmt.Sprintf("%s_%010d", epochPrefix, id))
}

func epochTxPrefix(id ledger.EpochID) []byte {
	return []byte(fmt.Sprintf("%s_%010d_", txPrefix, id))
}

func txKey(id ledger.EpochID, index int) []byte {
	return []byte(fmt.Sprintf("%s_%010d_%010d", txPrefix, id, index))
}

func isDBKeyNotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}

// SetEpoch implements the Store interface.
func (s *BadgerStore) SetEpoch(id ledger.EpochID, epoch ledger.Epoch) error {
	s.countLock.Lock()
	defer s.countLock.Unlock()

	header, err := common.MsgpackEncode(epochHeader{Timestamp: epoch.Timestamp})
	if err != nil {
		return err
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if _, err := tx.Get(epochKey(id)); err == nil {
		return epochExists(id)
	} else if !isDBKeyNotFound(err) {
		return err
	}

	if err := tx.Set(epochKey(id), header); err != nil {
		return err
	}

	for i, t := range epoch.Transactions {
		val, err := t.Marshal()
		if err != nil {
			return err
		}
		if err := tx.Set(txKey(id, i), val); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.counts[id] = len(epoch.Transactions)

	return nil
}

// AppendTransaction implements the Store interface.
func (s *BadgerStore) AppendTransaction(id ledger.EpochID, t ledger.Transaction) error {
	s.countLock.Lock()
	defer s.countLock.Unlock()

	index, ok := s.counts[id]
	if !ok {
		n, err := s.dbCountTransactions(id)
		if err != nil {
			return err
		}
		index = n
	}

	val, err := t.Marshal()
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(txKey(id, index), val)
	})
	if err != nil {
		return err
	}

	s.counts[id] = index + 1

	return nil
}

// GetEpoch implements the Store interface.
func (s *BadgerStore) GetEpoch(id ledger.EpochID) (ledger.Epoch, error) {
	var epoch ledger.Epoch

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(epochKey(id))
		if err != nil {
			if isDBKeyNotFound(err) {
				return epochNotFound(id)
			}
			return err
		}

		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		var header epochHeader
		if err := common.MsgpackDecode(raw, &header); err != nil {
			return err
		}

		epoch = ledger.NewEpoch(header.Timestamp)

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := epochTxPrefix(id)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			t, err := ledger.UnmarshalTransaction(val)
			if err != nil {
				return err
			}

			epoch.Transactions = append(epoch.Transactions, t)
		}

		return nil
	})

	if err != nil {
		return ledger.Epoch{}, err
	}

	return epoch, nil
}

// EpochIDs implements the Store interface.
func (s *BadgerStore) EpochIDs() ([]ledger.EpochID, error) {
	ids := []ledger.EpochID{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(epochPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id uint32
			if _, err := fmt.Sscanf(string(it.Item().Key()), epochPrefix+"_%d", &id); err != nil {
				return err
			}
			ids = append(ids, ledger.EpochID(id))
		}

		return nil
	})

	return ids, err
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// StorePath implements the Store interface.
func (s *BadgerStore) StorePath() string {
	return s.path
}

func (s *BadgerStore) dbCountTransactions(id ledger.EpochID) (int, error) {
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(epochKey(id)); err != nil {
			if isDBKeyNotFound(err) {
				return epochNotFound(id)
			}
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := epochTxPrefix(id)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}

		return nil
	})

	return count, err
}
