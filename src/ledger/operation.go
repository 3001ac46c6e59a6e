package ledger

import "github.com/mosaicnetworks/ledgersim/src/common"

// EncodeOperation msgpack-encodes an application operation so that it can be
// wrapped in a transaction.
func EncodeOperation(op interface{}) ([]byte, error) {
	return common.MsgpackEncode(op)
}

// DecodeOperation decodes the operation bytes of a transaction into op, which
// must be a pointer.
func DecodeOperation(data []byte, op interface{}) error {
	return common.MsgpackDecode(data, op)
}
