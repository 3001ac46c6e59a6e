package keys

import (
	"crypto/elliptic"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
)

// order of the secp256k1 base point, used to validate parsed private keys
var secp256k1N, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)

// Curve returns the secp256k1 curve from btcsuite.
func Curve() elliptic.Curve {
	return btcec.S256()
}

// scalarSize is the byte length of private keys and signature components.
func scalarSize() int {
	return (Curve().Params().BitSize + 7) / 8
}
