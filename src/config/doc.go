// Package config defines the configuration of a ledgersim sequencer.
//
// Regardless of how the sequencer is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// options, the sequencer relies on a data directory, defined by
// Config.DataDir, where it looks for a few additional files:
//
//  ledgersim.toml // (optional) configuration file read by the CLI.
//  priv_key // a plain text file containing a raw private key (cf. ledgersim keygen).
//  badger_db/ or ledger.db // the persistent store, when enabled.
package config
