// Package keys implements the public key cryptography used to sign
// transactions.
//
// Every account owns an ECDSA key-pair on the secp256k1 curve. The account
// identifier is derived from the public key (see AccountID), and transaction
// payloads are signed with the private key. The sequencer itself never
// re-verifies signatures; Verify is provided for clients and applications.
package keys
