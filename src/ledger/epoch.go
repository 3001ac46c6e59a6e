package ledger

import "github.com/mosaicnetworks/ledgersim/src/common"

// EpochID identifies an epoch. Identifiers are contiguous, starting at 0, and
// are only assigned by the sequencer.
type EpochID uint32

// Epoch is a time-stamped batch of transactions.
type Epoch struct {
	// Timestamp is the creation time in Unix seconds.
	Timestamp    int64         `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
}

// NewEpoch creates an empty epoch.
func NewEpoch(timestamp int64) Epoch {
	return Epoch{
		Timestamp:    timestamp,
		Transactions: []Transaction{},
	}
}

// Copy returns an epoch that does not share its transaction list with e.
func (e Epoch) Copy() Epoch {
	txs := make([]Transaction, len(e.Transactions))
	copy(txs, e.Transactions)
	return Epoch{
		Timestamp:    e.Timestamp,
		Transactions: txs,
	}
}

// Equal compares two epochs by value.
func (e Epoch) Equal(o Epoch) bool {
	if e.Timestamp != o.Timestamp || len(e.Transactions) != len(o.Transactions) {
		return false
	}
	for i := range e.Transactions {
		if !e.Transactions[i].Equal(o.Transactions[i]) {
			return false
		}
	}
	return true
}

// WireEpoch is the serializable form of Epoch.
type WireEpoch struct {
	Timestamp    int64             `json:"timestamp"`
	Transactions []WireTransaction `json:"transactions"`
}

// ToWire converts the epoch to its serializable form.
func (e Epoch) ToWire() WireEpoch {
	txs := make([]WireTransaction, len(e.Transactions))
	for i, tx := range e.Transactions {
		txs[i] = tx.ToWire()
	}
	return WireEpoch{
		Timestamp:    e.Timestamp,
		Transactions: txs,
	}
}

// FromWire rebuilds an epoch.
func (w WireEpoch) FromWire() (Epoch, error) {
	e := NewEpoch(w.Timestamp)
	for _, wtx := range w.Transactions {
		tx, err := wtx.FromWire()
		if err != nil {
			return Epoch{}, err
		}
		e.Transactions = append(e.Transactions, tx)
	}
	return e, nil
}

// Marshal returns the msgpack encoding of the epoch.
func (e Epoch) Marshal() ([]byte, error) {
	return common.MsgpackEncode(e.ToWire())
}

// UnmarshalEpoch decodes the output of Epoch.Marshal.
func UnmarshalEpoch(data []byte) (Epoch, error) {
	var w WireEpoch
	if err := common.MsgpackDecode(data, &w); err != nil {
		return Epoch{}, err
	}
	return w.FromWire()
}
