package common

import (
	"errors"
	"fmt"
)

// StoreErrType enumerates the failure kinds reported by the ledger and the
// persistent stores.
type StoreErrType uint32

const (
	// KeyNotFound is returned when looking up an epoch that does not exist.
	KeyNotFound StoreErrType = iota
	// KeyAlreadyExists is returned when an epoch identifier is reused.
	KeyAlreadyExists
	// Empty is returned when an operation needs at least one epoch.
	Empty
)

// StoreErr is a typed error carrying the kind of data involved, the key, and
// the failure kind.
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
}

// NewStoreErr creates a StoreErr.
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// Error implements the error interface.
func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case KeyAlreadyExists:
		m = "Key Already Exists"
	case Empty:
		m = "Empty"
	}

	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, m)
}

// IsStore checks that an error is, or wraps, a StoreErr and that its code
// matches the provided StoreErr code.
func IsStore(err error, t StoreErrType) bool {
	var storeErr StoreErr
	return errors.As(err, &storeErr) && storeErr.errType == t
}
