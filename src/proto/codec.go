package proto

import (
	"errors"
	"fmt"

	"github.com/mosaicnetworks/ledgersim/src/common"
	"github.com/mosaicnetworks/ledgersim/src/ledger"
)

// ErrEmptyMessage is returned when decoding a zero-length payload.
var ErrEmptyMessage = errors.New("empty message")

// Encode serializes a message: one discriminant byte followed by the msgpack
// encoding of the body.
func Encode(msg Message) ([]byte, error) {
	var body interface{}

	switch m := msg.(type) {
	case *SyncEpoch:
		body = syncEpochBody{
			Identifier: uint32(m.Identifier),
			Epoch:      m.Epoch.ToWire(),
		}
	case *NewEpochStarted:
		body = newEpochStartedBody{
			Identifier: uint32(m.Identifier),
			Timestamp:  m.Timestamp,
		}
	case *LedgerUpdate:
		body = transactionBody{Transaction: m.Transaction.ToWire()}
	case *TransactionRequest:
		body = transactionBody{Transaction: m.Transaction.ToWire()}
	default:
		return nil, fmt.Errorf("unknown message %T", msg)
	}

	b, err := common.MsgpackEncode(body)
	if err != nil {
		return nil, err
	}

	return append([]byte{byte(msg.Type())}, b...), nil
}

// Decode parses the output of Encode.
func Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, ErrEmptyMessage
	}

	t, body := MessageType(data[0]), data[1:]

	switch t {
	case SyncEpochType:
		var b syncEpochBody
		if err := common.MsgpackDecode(body, &b); err != nil {
			return nil, err
		}
		epoch, err := b.Epoch.FromWire()
		if err != nil {
			return nil, err
		}
		return &SyncEpoch{
			Identifier: ledger.EpochID(b.Identifier),
			Epoch:      epoch,
		}, nil
	case NewEpochStartedType:
		var b newEpochStartedBody
		if err := common.MsgpackDecode(body, &b); err != nil {
			return nil, err
		}
		return &NewEpochStarted{
			Identifier: ledger.EpochID(b.Identifier),
			Timestamp:  b.Timestamp,
		}, nil
	case LedgerUpdateType, TransactionRequestType:
		var b transactionBody
		if err := common.MsgpackDecode(body, &b); err != nil {
			return nil, err
		}
		tx, err := b.Transaction.FromWire()
		if err != nil {
			return nil, err
		}
		if t == LedgerUpdateType {
			return &LedgerUpdate{Transaction: tx}, nil
		}
		return &TransactionRequest{Transaction: tx}, nil
	default:
		return nil, fmt.Errorf("unknown message type %d", t)
	}
}
