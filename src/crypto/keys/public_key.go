package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/binary"

	"github.com/mosaicnetworks/ledgersim/src/common"
	"github.com/mosaicnetworks/ledgersim/src/crypto"
)

// ToPublicKey parses the uncompressed form of a point on the curve, as
// returned by FromPublicKey. It returns nil if the bytes are not a valid
// point.
func ToPublicKey(pub []byte) *ecdsa.PublicKey {
	if len(pub) == 0 {
		return nil
	}
	x, y := elliptic.Unmarshal(Curve(), pub)
	if x == nil {
		return nil
	}
	return &ecdsa.PublicKey{Curve: Curve(), X: x, Y: y}
}

// FromPublicKey returns the uncompressed form of the public key.
func FromPublicKey(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return elliptic.Marshal(Curve(), pub.X, pub.Y)
}

// PublicKeyHex returns the hexadecimal representation of the uncompressed
// form of the public key.
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return common.EncodeToString(FromPublicKey(pub))
}

// AccountID derives the 64-bit account identifier of a public key: the first
// eight bytes of the SHA-512 hash of its uncompressed form, read big-endian.
// Collisions are possible and are not detected.
func AccountID(pub *ecdsa.PublicKey) uint64 {
	return AccountIDFromBytes(FromPublicKey(pub))
}

// AccountIDFromBytes is AccountID for a public key that is already in its
// uncompressed form.
func AccountIDFromBytes(pub []byte) uint64 {
	hash := crypto.SHA512(pub)
	return binary.BigEndian.Uint64(hash[:8])
}
