package store

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mosaicnetworks/ledgersim/src/common"
	"github.com/mosaicnetworks/ledgersim/src/ledger"
	bolt "go.etcd.io/bbolt"
)

var (
	epochsBucket       = []byte("epochs")
	transactionsBucket = []byte("transactions")
)

// BoltStore implements the Store interface with a bbolt database. Epoch
// headers live in the epochs bucket, and the transactions of every epoch in a
// nested bucket of the transactions bucket, keyed by sequence number.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// NewBoltStore opens an existing database file or creates a new one.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{epochsBucket, transactionsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, path: path}, nil
}

func boltEpochKey(id ledger.EpochID) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, uint32(id))
	return key
}

func boltSeqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// SetEpoch implements the Store interface.
func (s *BoltStore) SetEpoch(id ledger.EpochID, epoch ledger.Epoch) error {
	header, err := common.MsgpackEncode(epochHeader{Timestamp: epoch.Timestamp})
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		key := boltEpochKey(id)

		epochs := tx.Bucket(epochsBucket)
		if epochs.Get(key) != nil {
			return epochExists(id)
		}
		if err := epochs.Put(key, header); err != nil {
			return err
		}

		txs, err := tx.Bucket(transactionsBucket).CreateBucketIfNotExists(key)
		if err != nil {
			return err
		}

		for _, t := range epoch.Transactions {
			if err := putTransaction(txs, t); err != nil {
				return err
			}
		}

		return nil
	})
}

func putTransaction(b *bolt.Bucket, t ledger.Transaction) error {
	val, err := t.Marshal()
	if err != nil {
		return err
	}

	seq, err := b.NextSequence()
	if err != nil {
		return err
	}

	return b.Put(boltSeqKey(seq), val)
}

// AppendTransaction implements the Store interface.
func (s *BoltStore) AppendTransaction(id ledger.EpochID, t ledger.Transaction) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		txs := tx.Bucket(transactionsBucket).Bucket(boltEpochKey(id))
		if txs == nil {
			return epochNotFound(id)
		}
		return putTransaction(txs, t)
	})
}

// GetEpoch implements the Store interface.
func (s *BoltStore) GetEpoch(id ledger.EpochID) (ledger.Epoch, error) {
	var epoch ledger.Epoch

	err := s.db.View(func(tx *bolt.Tx) error {
		key := boltEpochKey(id)

		raw := tx.Bucket(epochsBucket).Get(key)
		if raw == nil {
			return epochNotFound(id)
		}

		var header epochHeader
		if err := common.MsgpackDecode(raw, &header); err != nil {
			return err
		}

		epoch = ledger.NewEpoch(header.Timestamp)

		txs := tx.Bucket(transactionsBucket).Bucket(key)
		if txs == nil {
			return nil
		}

		return txs.ForEach(func(_, v []byte) error {
			t, err := ledger.UnmarshalTransaction(v)
			if err != nil {
				return err
			}
			epoch.Transactions = append(epoch.Transactions, t)
			return nil
		})
	})

	if err != nil {
		return ledger.Epoch{}, err
	}

	return epoch, nil
}

// EpochIDs implements the Store interface.
func (s *BoltStore) EpochIDs() ([]ledger.EpochID, error) {
	ids := []ledger.EpochID{}

	err := s.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(epochsBucket).Cursor()
		for k, _ := cursor.First(); k != nil; k, _ = cursor.Next() {
			ids = append(ids, ledger.EpochID(binary.BigEndian.Uint32(k)))
		}
		return nil
	})

	return ids, err
}

// Close implements the Store interface.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// StorePath implements the Store interface.
func (s *BoltStore) StorePath() string {
	return s.path
}
