// Package config defines the configuration for a raze node.
//
// Regardless of how raze is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object
// defined in this package to store and forward configuration options. On top
// of these configuration options, raze relies on a data directory, defined
// by Config.DataDir, where it expects to find a few additional files:
//
//  vote_key  // a plain text file containing the hex seed of the voting key (cf. raze keygen).
//  badger_db // the Badger database holding the ledger.
package config
