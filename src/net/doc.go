// Package net implements the UDP wire protocol between raze nodes.
//
// Every message is a single datagram: a 9 byte header carrying the
// network magic, protocol version range, message type, extension bits and
// block type, followed by the message body. There are four message types:
//
// - Keepalive: advertises up to eight peer endpoints
//
// - Publish: floods a newly created block
//
// - ConfirmReq: asks representatives to vote on a block
//
// - ConfirmAck: carries a signed vote
//
// The Socket owns the UDP connection. A single receive goroutine parses
// incoming datagrams, drops traffic from reserved addresses or foreign
// networks, and hands valid messages to the node. Senders write to the
// connection directly; UDP keeps individual sends independent, so no
// further synchronization is required.
//
// Datagrams never fragment in practice: the largest message, a confirm_ack
// carrying an open block, stays well under a common 1500 byte MTU.
package net
