package ledger

import (
	"sort"
	"strconv"
	"sync"

	"github.com/mosaicnetworks/ledgersim/src/common"
)

type epochEntry struct {
	sync.Mutex
	epoch Epoch
}

// Ledger holds the epochs of the network and the identity table.
//
// The epoch map is guarded by a RWMutex, and every epoch by its own Mutex.
// Insert only takes the read lock on the map, so appends to the current epoch
// do not block readers of other epochs, while epoch creation, which needs the
// write lock, can not interleave with an insert in progress.
type Ledger struct {
	identityLock sync.RWMutex
	identities   map[AccountID]Identity

	epochLock sync.RWMutex
	epochs    map[EpochID]*epochEntry
	current   EpochID
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		identities: make(map[AccountID]Identity),
		epochs:     make(map[EpochID]*epochEntry),
	}
}

// CreateNewEpoch adds an empty epoch. It fails with a KeyAlreadyExists
// StoreErr if the id is already used.
func (l *Ledger) CreateNewEpoch(id EpochID, timestamp int64) error {
	return l.addEpoch(id, NewEpoch(timestamp))
}

// SynchronizeEpoch installs a complete epoch received from elsewhere, with the
// same duplicate contract as CreateNewEpoch.
func (l *Ledger) SynchronizeEpoch(id EpochID, epoch Epoch) error {
	return l.addEpoch(id, epoch.Copy())
}

func (l *Ledger) addEpoch(id EpochID, epoch Epoch) error {
	l.epochLock.Lock()
	defer l.epochLock.Unlock()

	if _, ok := l.epochs[id]; ok {
		return common.NewStoreErr("Epoch", common.KeyAlreadyExists, strconv.FormatUint(uint64(id), 10))
	}

	l.epochs[id] = &epochEntry{epoch: epoch}

	if len(l.epochs) == 1 || id > l.current {
		l.current = id
	}

	return nil
}

// Insert appends a transaction to the epoch with the highest id and returns
// that id. It fails with an Empty StoreErr if there is no epoch yet.
func (l *Ledger) Insert(tx Transaction) (EpochID, error) {
	l.epochLock.RLock()
	defer l.epochLock.RUnlock()

	if len(l.epochs) == 0 {
		return 0, common.NewStoreErr("Epoch", common.Empty, "")
	}

	entry := l.epochs[l.current]

	entry.Lock()
	entry.epoch.Transactions = append(entry.epoch.Transactions, tx)
	entry.Unlock()

	return l.current, nil
}

// GetEpoch returns a copy of an epoch.
func (l *Ledger) GetEpoch(id EpochID) (Epoch, error) {
	entry, err := l.entry(id)
	if err != nil {
		return Epoch{}, err
	}

	entry.Lock()
	defer entry.Unlock()

	return entry.epoch.Copy(), nil
}

// GetEpochTimestamp returns the creation time of an epoch.
func (l *Ledger) GetEpochTimestamp(id EpochID) (int64, error) {
	entry, err := l.entry(id)
	if err != nil {
		return 0, err
	}

	entry.Lock()
	defer entry.Unlock()

	return entry.epoch.Timestamp, nil
}

func (l *Ledger) entry(id EpochID) (*epochEntry, error) {
	l.epochLock.RLock()
	defer l.epochLock.RUnlock()

	entry, ok := l.epochs[id]
	if !ok {
		return nil, common.NewStoreErr("Epoch", common.KeyNotFound, strconv.FormatUint(uint64(id), 10))
	}

	return entry, nil
}

// NumEpochs returns the number of epochs.
func (l *Ledger) NumEpochs() int {
	l.epochLock.RLock()
	defer l.epochLock.RUnlock()

	return len(l.epochs)
}

// NumTransactions returns the total number of transactions across epochs.
func (l *Ledger) NumTransactions() int {
	l.epochLock.RLock()
	defer l.epochLock.RUnlock()

	total := 0
	for _, entry := range l.epochs {
		entry.Lock()
		total += len(entry.epoch.Transactions)
		entry.Unlock()
	}

	return total
}

// GetCurrentEpoch returns the highest epoch id, or an Empty StoreErr.
func (l *Ledger) GetCurrentEpoch() (EpochID, error) {
	l.epochLock.RLock()
	defer l.epochLock.RUnlock()

	if len(l.epochs) == 0 {
		return 0, common.NewStoreErr("Epoch", common.Empty, "")
	}

	return l.current, nil
}

// EpochIDs returns the ids of all epochs in increasing order.
func (l *Ledger) EpochIDs() []EpochID {
	l.epochLock.RLock()
	defer l.epochLock.RUnlock()

	ids := make([]EpochID, 0, len(l.epochs))
	for id := range l.epochs {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// HasGaps reports whether the epoch ids are not exactly 0, 1, 2, ...
func (l *Ledger) HasGaps() bool {
	for i, id := range l.EpochIDs() {
		if id != EpochID(i) {
			return true
		}
	}
	return false
}

// CreateAccount records the identity of an account. The sequencer does not
// call it when it accepts a CreateAccount transaction.
func (l *Ledger) CreateAccount(id AccountID, identity Identity) error {
	l.identityLock.Lock()
	defer l.identityLock.Unlock()

	if _, ok := l.identities[id]; ok {
		return common.NewStoreErr("Identity", common.KeyAlreadyExists, id.String())
	}

	l.identities[id] = identity

	return nil
}

// GetIdentity returns the identity of an account.
func (l *Ledger) GetIdentity(id AccountID) (Identity, error) {
	l.identityLock.RLock()
	defer l.identityLock.RUnlock()

	identity, ok := l.identities[id]
	if !ok {
		return Identity{}, common.NewStoreErr("Identity", common.KeyNotFound, id.String())
	}

	return identity, nil
}
