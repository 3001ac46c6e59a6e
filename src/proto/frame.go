package proto

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize is the largest payload accepted on a stream.
const MaxFrameSize = 8 * 1024 * 1024

// ErrFrameTooLarge is returned for frames over MaxFrameSize.
type ErrFrameTooLarge struct {
	Size uint32
}

func (e ErrFrameTooLarge) Error() string {
	return fmt.Sprintf("frame of %d bytes exceeds maximum of %d", e.Size, MaxFrameSize)
}

// WriteFrame writes the length prefix and the payload.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge{Size: uint32(len(payload))}
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed payload. It returns io.EOF if the
// stream ends cleanly between frames.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge{Size: size}
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	return payload, nil
}

// WriteMessage encodes and frames a message.
func WriteMessage(w io.Writer, msg Message) error {
	b, err := Encode(msg)
	if err != nil {
		return err
	}
	return WriteFrame(w, b)
}

// ReadMessage reads and decodes one framed message.
func ReadMessage(r io.Reader) (Message, error) {
	b, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}
