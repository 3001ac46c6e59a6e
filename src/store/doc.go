// Package store persists the epochs of the ledger so that a sequencer can be
// restarted with its history.
//
// The sequencer writes through to a Store every time it creates an epoch or
// accepts a transaction, and replays the Store into a fresh ledger when it
// starts in bootstrap mode. InmemStore keeps everything in memory and is the
// default. BadgerStore and BoltStore are backed by an on-disk database.
package store
