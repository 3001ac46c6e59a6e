package ledger

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/mosaicnetworks/ledgersim/src/crypto/keys"
)

// AccountID is the 64-bit identifier of an account, derived from its public
// key.
type AccountID uint64

// NewAccountID derives the AccountID of a public key.
func NewAccountID(pub *ecdsa.PublicKey) AccountID {
	return AccountID(keys.AccountID(pub))
}

// AccountIDFromPublicKey derives the AccountID of a public key in its
// uncompressed form.
func AccountIDFromPublicKey(pub []byte) AccountID {
	return AccountID(keys.AccountIDFromBytes(pub))
}

func (a AccountID) String() string {
	return fmt.Sprintf("%016x", uint64(a))
}

// Identity is what the ledger knows about an account.
type Identity struct {
	PublicKey []byte `json:"public_key"`
}

// PubKey parses the public key of the identity.
func (i Identity) PubKey() *ecdsa.PublicKey {
	return keys.ToPublicKey(i.PublicKey)
}
