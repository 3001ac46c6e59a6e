package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
)

// SHA256 returns the SHA256 hash of the data.
func SHA256(data []byte) []byte {
	hasher := sha256.New()
	hasher.Write(data)
	hash := hasher.Sum(nil)
	return hash
}

// SHA512 returns the SHA512 hash of the data. Transaction payloads and
// account identifiers are derived from it.
func SHA512(data []byte) []byte {
	hasher := sha512.New()
	hasher.Write(data)
	return hasher.Sum(nil)
}
