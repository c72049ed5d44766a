// Package node implements the reactive component of a raze peer.
//
// This is the part of raze that receives blocks and votes from the UDP
// socket, pushes them through the ledger, and runs the maintenance loops
// that keep the node connected and synchronized.
//
// Block processing
//
// Every block, whether published by a wallet, flooded by a peer or carried
// inside a vote, goes through the BlockProcessor. The processor is the only
// ledger writer: blocks queue behind a single goroutine that batches them
// into one store transaction at a time. Blocks whose dependencies are
// missing are parked in the unchecked store and the gap cache, and replayed
// as soon as the dependency lands, so chains received out of order settle
// in topological order by themselves.
//
// Fork resolution
//
// When two blocks claim the same root, the conflict is handed to Elections.
// Representatives vote on the fork with confirm_ack messages; within an
// election only the highest sequence per representative counts. When a
// different block takes the lead with more than a sixteenth of the supply,
// it becomes the winner and is forced through the processor, which rolls
// the losing chain back. Once a block holds more than half the voting
// supply the election is confirmed.
// Unsettled elections are re-announced on a fixed interval with confirm_req
// broadcasts to the known representatives.
//
// Maintenance
//
// The node runs periodic loops off a single Alarm: keepalives and peer
// purging, representative crawling to map voting weight onto endpoints,
// bootstrap retries, store flushes and gap cache purges. All loops stop
// when the node does.
package node
