package keys

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"
)

// Sign signs a hash with the private key. The signature is the concatenation
// of the fixed-size big-endian R and S values.
func Sign(priv *ecdsa.PrivateKey, hash []byte) ([]byte, error) {
	r, s, err := ecdsa.Sign(rand.Reader, priv, hash)
	if err != nil {
		return nil, err
	}
	return EncodeSignature(r, s), nil
}

// Verify reports whether sig is a valid signature of hash by the owner of pub.
func Verify(pub *ecdsa.PublicKey, hash []byte, sig []byte) bool {
	if pub == nil {
		return false
	}
	r, s, err := DecodeSignature(sig)
	if err != nil {
		return false
	}
	return ecdsa.Verify(pub, hash, r, s)
}

// EncodeSignature packs R and S into a single byte slice.
func EncodeSignature(r, s *big.Int) []byte {
	size := scalarSize()
	sig := make([]byte, 2*size)
	r.FillBytes(sig[:size])
	s.FillBytes(sig[size:])
	return sig
}

// DecodeSignature splits a signature produced by EncodeSignature.
func DecodeSignature(sig []byte) (r, s *big.Int, err error) {
	size := scalarSize()
	if len(sig) != 2*size {
		return nil, nil, fmt.Errorf("wrong signature length: got %d, want %d", len(sig), 2*size)
	}
	r = new(big.Int).SetBytes(sig[:size])
	s = new(big.Int).SetBytes(sig[size:])
	return r, s, nil
}
