// Package service exposes the state of the sequencer over HTTP.
//
// Routes:
//
//  GET /stats        // counters of the orchestrator
//  GET /epochs       // ids of all epochs
//  GET /epoch/{id}   // one epoch with its transactions
//  GET /peers        // connection ids of the registered peers
//  GET /ws           // WebSocket feed of ledger events
//
// A WebSocket client is registered with the orchestrator like any other peer.
// It receives the epoch backlog and then every rotation and every accepted
// transaction, encoded as JSON Events. It can not submit transactions; any
// message it sends closes the feed.
package service
