package common

import (
	"bytes"

	"github.com/ugorji/go/codec"
)

// MsgpackHandle is the msgpack configuration shared by the wire protocol and
// the persistent stores. Byte slices are written as msgpack bin values.
var MsgpackHandle = newMsgpackHandle()

func newMsgpackHandle() *codec.MsgpackHandle {
	mh := new(codec.MsgpackHandle)
	mh.WriteExt = true
	mh.Canonical = true
	return mh
}

// MsgpackEncode returns the msgpack encoding of v.
func MsgpackEncode(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	enc := codec.NewEncoder(b, MsgpackHandle)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// MsgpackDecode decodes data into v, which must be a pointer.
func MsgpackDecode(data []byte, v interface{}) error {
	dec := codec.NewDecoderBytes(data, MsgpackHandle)
	return dec.Decode(v)
}
