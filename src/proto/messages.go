package proto

import (
	"fmt"

	"github.com/mosaicnetworks/ledgersim/src/ledger"
)

// MessageType is the discriminant of a Message on the wire.
type MessageType uint8

// Message types, in wire order.
const (
	SyncEpochType MessageType = iota
	NewEpochStartedType
	LedgerUpdateType
	TransactionRequestType
)

func (t MessageType) String() string {
	switch t {
	case SyncEpochType:
		return "SyncEpoch"
	case NewEpochStartedType:
		return "NewEpochStarted"
	case LedgerUpdateType:
		return "LedgerUpdate"
	case TransactionRequestType:
		return "TransactionRequest"
	default:
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}
}

// Message is implemented by the four protocol variants.
type Message interface {
	Type() MessageType
}

// SyncEpoch transfers a complete epoch to a peer that just joined.
type SyncEpoch struct {
	Identifier ledger.EpochID
	Epoch      ledger.Epoch
}

// Type implements Message.
func (m *SyncEpoch) Type() MessageType { return SyncEpochType }

// NewEpochStarted announces an epoch rotation.
type NewEpochStarted struct {
	Identifier ledger.EpochID
	Timestamp  int64
}

// Type implements Message.
func (m *NewEpochStarted) Type() MessageType { return NewEpochStartedType }

// LedgerUpdate announces a transaction accepted into the current epoch.
type LedgerUpdate struct {
	Transaction ledger.Transaction
}

// Type implements Message.
func (m *LedgerUpdate) Type() MessageType { return LedgerUpdateType }

// TransactionRequest submits a transaction to the sequencer.
type TransactionRequest struct {
	Transaction ledger.Transaction
}

// Type implements Message.
func (m *TransactionRequest) Type() MessageType { return TransactionRequestType }

// Wire bodies

type syncEpochBody struct {
	Identifier uint32
	Epoch      ledger.WireEpoch
}

type newEpochStartedBody struct {
	Identifier uint32
	Timestamp  int64
}

type transactionBody struct {
	Transaction ledger.WireTransaction
}
