package ledger

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/mosaicnetworks/ledgersim/src/common"
	"github.com/mosaicnetworks/ledgersim/src/crypto"
	"github.com/mosaicnetworks/ledgersim/src/crypto/keys"
)

// PayloadKind distinguishes the variants of TxPayload.
type PayloadKind uint8

const (
	// CreateAccountPayload registers a new account with its public key.
	CreateAccountPayload PayloadKind = iota
	// OperationPayload carries an application operation.
	OperationPayload
)

func (k PayloadKind) String() string {
	switch k {
	case CreateAccountPayload:
		return "CreateAccount"
	case OperationPayload:
		return "Operation"
	default:
		return fmt.Sprintf("PayloadKind(%d)", uint8(k))
	}
}

// TxPayload is the signed part of a transaction. Exactly one of publicKey and
// operation is meaningful, depending on kind.
type TxPayload struct {
	kind      PayloadKind
	publicKey []byte
	operation []byte
}

// NewCreateAccountPayload builds a CreateAccount payload.
func NewCreateAccountPayload(pub []byte) TxPayload {
	return TxPayload{
		kind:      CreateAccountPayload,
		publicKey: pub,
	}
}

// NewOperationPayload builds an Operation payload.
func NewOperationPayload(op []byte) TxPayload {
	return TxPayload{
		kind:      OperationPayload,
		operation: op,
	}
}

// Kind returns the variant of the payload.
func (p TxPayload) Kind() PayloadKind {
	return p.kind
}

// CreateAccount returns the public key of a CreateAccount payload.
func (p TxPayload) CreateAccount() ([]byte, bool) {
	if p.kind != CreateAccountPayload {
		return nil, false
	}
	return p.publicKey, true
}

// Operation returns the application bytes of an Operation payload.
func (p TxPayload) Operation() ([]byte, bool) {
	if p.kind != OperationPayload {
		return nil, false
	}
	return p.operation, true
}

// Hash returns the SHA-512 hash of the msgpack encoding of the payload. This
// is what gets signed.
func (p TxPayload) Hash() ([]byte, error) {
	b, err := common.MsgpackEncode(p.ToWire())
	if err != nil {
		return nil, err
	}
	return crypto.SHA512(b), nil
}

// Equal compares two payloads by value.
func (p TxPayload) Equal(o TxPayload) bool {
	return p.kind == o.kind &&
		bytes.Equal(p.publicKey, o.publicKey) &&
		bytes.Equal(p.operation, o.operation)
}

// Transaction is a signed payload attributed to a source account. It can not
// be modified after construction.
type Transaction struct {
	source    AccountID
	payload   TxPayload
	signature []byte
}

// NewCreateAccount builds the transaction that registers the account of priv.
// The source is the AccountID derived from the public key.
func NewCreateAccount(priv *ecdsa.PrivateKey) (Transaction, error) {
	pub := keys.FromPublicKey(&priv.PublicKey)
	return sign(AccountIDFromPublicKey(pub), NewCreateAccountPayload(pub), priv)
}

// NewTransaction builds a transaction carrying an application operation on
// behalf of source.
func NewTransaction(source AccountID, op []byte, priv *ecdsa.PrivateKey) (Transaction, error) {
	return sign(source, NewOperationPayload(op), priv)
}

// NewSignedTransaction assembles a transaction from already signed parts.
func NewSignedTransaction(source AccountID, payload TxPayload, signature []byte) Transaction {
	return Transaction{
		source:    source,
		payload:   payload,
		signature: signature,
	}
}

func sign(source AccountID, payload TxPayload, priv *ecdsa.PrivateKey) (Transaction, error) {
	hash, err := payload.Hash()
	if err != nil {
		return Transaction{}, err
	}

	sig, err := keys.Sign(priv, hash)
	if err != nil {
		return Transaction{}, err
	}

	return NewSignedTransaction(source, payload, sig), nil
}

// Source returns the AccountID the transaction is attributed to.
func (t Transaction) Source() AccountID {
	return t.source
}

// Payload returns the signed payload.
func (t Transaction) Payload() TxPayload {
	return t.payload
}

// Signature returns the signature over the payload hash.
func (t Transaction) Signature() []byte {
	return t.signature
}

// Verify checks the signature against pub. The sequencer does not call it;
// it is provided for applications and clients.
func (t Transaction) Verify(pub *ecdsa.PublicKey) (bool, error) {
	hash, err := t.payload.Hash()
	if err != nil {
		return false, err
	}
	return keys.Verify(pub, hash, t.signature), nil
}

// Equal compares two transactions by value.
func (t Transaction) Equal(o Transaction) bool {
	return t.source == o.source &&
		t.payload.Equal(o.payload) &&
		bytes.Equal(t.signature, o.signature)
}

func (t Transaction) String() string {
	return fmt.Sprintf("Transaction{source: %s, kind: %s}", t.source, t.payload.kind)
}

/*******************************************************************************
Wire
*******************************************************************************/

// WirePayload is the serializable form of TxPayload.
type WirePayload struct {
	Kind      PayloadKind `json:"kind"`
	PublicKey []byte      `json:"public_key,omitempty"`
	Operation []byte      `json:"operation,omitempty"`
}

// WireTransaction is the serializable form of Transaction.
type WireTransaction struct {
	Source    uint64      `json:"source"`
	Payload   WirePayload `json:"payload"`
	Signature []byte      `json:"signature"`
}

// ToWire converts the payload to its serializable form.
func (p TxPayload) ToWire() WirePayload {
	return WirePayload{
		Kind:      p.kind,
		PublicKey: p.publicKey,
		Operation: p.operation,
	}
}

// FromWire rebuilds a payload.
func (w WirePayload) FromWire() (TxPayload, error) {
	switch w.Kind {
	case CreateAccountPayload:
		return NewCreateAccountPayload(w.PublicKey), nil
	case OperationPayload:
		return NewOperationPayload(w.Operation), nil
	default:
		return TxPayload{}, fmt.Errorf("unknown payload kind %d", w.Kind)
	}
}

// ToWire converts the transaction to its serializable form.
func (t Transaction) ToWire() WireTransaction {
	return WireTransaction{
		Source:    uint64(t.source),
		Payload:   t.payload.ToWire(),
		Signature: t.signature,
	}
}

// FromWire rebuilds a transaction.
func (w WireTransaction) FromWire() (Transaction, error) {
	payload, err := w.Payload.FromWire()
	if err != nil {
		return Transaction{}, err
	}
	return NewSignedTransaction(AccountID(w.Source), payload, w.Signature), nil
}

// Marshal returns the msgpack encoding of the transaction.
func (t Transaction) Marshal() ([]byte, error) {
	return common.MsgpackEncode(t.ToWire())
}

// UnmarshalTransaction decodes the output of Transaction.Marshal.
func UnmarshalTransaction(data []byte) (Transaction, error) {
	var w WireTransaction
	if err := common.MsgpackDecode(data, &w); err != nil {
		return Transaction{}, err
	}
	return w.FromWire()
}

// MarshalJSON implements json.Marshaler.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ToWire())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var w WireTransaction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	tx, err := w.FromWire()
	if err != nil {
		return err
	}
	*t = tx
	return nil
}
