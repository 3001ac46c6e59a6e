package store

import (
	"fmt"
	"strconv"

	"github.com/mosaicnetworks/ledgersim/src/common"
	"github.com/mosaicnetworks/ledgersim/src/ledger"
	"github.com/sirupsen/logrus"
)

// Store is an interface for backend stores.
type Store interface {
	// SetEpoch records a new epoch with the transactions it already contains.
	SetEpoch(id ledger.EpochID, epoch ledger.Epoch) error
	// AppendTransaction appends a transaction to an existing epoch.
	AppendTransaction(id ledger.EpochID, tx ledger.Transaction) error
	// GetEpoch retrieves an epoch with all its transactions.
	GetEpoch(id ledger.EpochID) (ledger.Epoch, error)
	// EpochIDs returns the ids of all stored epochs in increasing order.
	EpochIDs() ([]ledger.EpochID, error)
	// Close releases the underlying resources.
	Close() error
	// StorePath returns the location of the database, if any.
	StorePath() string
}

// Kinds of Store understood by New.
const (
	InmemType  = "inmem"
	BadgerType = "badger"
	BoltType   = "bolt"
)

// New opens a Store of the given kind. path is ignored for InmemType.
func New(kind string, path string, logger *logrus.Entry) (Store, error) {
	switch kind {
	case InmemType, "":
		return NewInmemStore(), nil
	case BadgerType:
		return NewBadgerStore(path, logger)
	case BoltType:
		return NewBoltStore(path)
	default:
		return nil, fmt.Errorf("unknown store type %q", kind)
	}
}

func epochKeyString(id ledger.EpochID) string {
	return strconv.FormatUint(uint64(id), 10)
}

func epochNotFound(id ledger.EpochID) error {
	return common.NewStoreErr("Epoch", common.KeyNotFound, epochKeyString(id))
}

func epochExists(id ledger.EpochID) error {
	return common.NewStoreErr("Epoch", common.KeyAlreadyExists, epochKeyString(id))
}

// epochHeader is what is stored under an epoch key. Transactions are stored
// under their own keys.
type epochHeader struct {
	Timestamp int64
}
