// Package peers tracks the UDP endpoints a raze node exchanges traffic
// with.
//
// A peer is just an endpoint that sent us a valid datagram recently. There
// is no handshake and no session: the table records the last contact time
// and the advertised protocol version, and peers that stay silent past the
// cutoff are purged. Keepalive messages walk the network by advertising
// random subsets of the table.
//
// The table also remembers which peers answered a representative crawl,
// along with the voting weight observed behind them. Vote requests are
// directed at these representatives first, falling back to random peers
// when none are known yet.
package peers
