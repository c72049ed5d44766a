package net

import (
	gonet "net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/razeblock/raze/src/peers"
	"github.com/razeblock/raze/src/raze"
)

// bufferSize fits the largest message, a confirm_ack carrying an open block.
const bufferSize = 512

// Handler receives every valid parsed datagram.
type Handler func(msg Message, from peers.Endpoint)

// Socket owns the UDP conn: one receive goroutine parses and dispatches,
// senders write directly.
type Socket struct {
	network *raze.Network
	table   *peers.Table
	parser  *Parser
	handler Handler
	logger  *logrus.Entry

	conn *gonet.UDPConn

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex
	wg           sync.WaitGroup
}

// NewSocket creates a socket for network, feeding valid messages to
// handler.
func NewSocket(network *raze.Network, table *peers.Table, handler Handler, logger *logrus.Entry) *Socket {
	return &Socket{
		network:    network,
		table:      table,
		parser:     NewParser(network),
		handler:    handler,
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}
}

// Start binds addr and launches the receive loop.
func (s *Socket) Start(addr string) error {
	udpAddr, err := gonet.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	conn, err := gonet.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.conn = conn

	s.wg.Add(1)
	go s.receiveLoop()

	s.logger.WithField("addr", conn.LocalAddr()).Debug("socket listening")
	return nil
}

// LocalAddr returns the bound address, nil before Start.
func (s *Socket) LocalAddr() *gonet.UDPAddr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr().(*gonet.UDPAddr)
}

// Stop closes the conn and joins the receive loop.
func (s *Socket) Stop() {
	s.shutdownLock.Lock()
	if s.shutdown {
		s.shutdownLock.Unlock()
		return
	}
	s.shutdown = true
	close(s.shutdownCh)
	s.shutdownLock.Unlock()

	if s.conn != nil {
		s.conn.Close()
	}
	s.wg.Wait()
}

func (s *Socket) receiveLoop() {
	defer s.wg.Done()

	buf := make([]byte, bufferSize)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.shutdownCh:
				return
			default:
				s.logger.WithError(err).Debug("socket read")
				continue
			}
		}

		from := peers.EndpointFromUDPAddr(addr)
		if ReservedEndpoint(from, s.network.AllowLoopback) {
			s.logger.WithField("from", from).Debug("dropping reserved source")
			continue
		}

		msg, err := s.parser.Parse(buf[:n])
		if err != nil {
			s.logger.WithError(err).WithField("from", from).Debug("dropping datagram")
			continue
		}

		s.handler(msg, from)
	}
}

// Send marshals msg to endpoint.
func (s *Socket) Send(endpoint peers.Endpoint, msg Message) {
	if ReservedEndpoint(endpoint, s.network.AllowLoopback) {
		return
	}
	if _, err := s.conn.WriteToUDP(msg.Marshal(), endpoint.UDPAddr()); err != nil {
		s.logger.WithError(err).WithField("to", endpoint).Debug("socket send")
	}
}

// SendKeepalive advertises a random peer set to endpoint.
func (s *Socket) SendKeepalive(endpoint peers.Endpoint) {
	s.Send(endpoint, NewKeepalive(s.network, s.table.RandomSet(KeepaliveEndpoints)))
}

// Republish floods a block to a square root sized random subset of the
// table.
func (s *Socket) Republish(block raze.Block) {
	targets := s.table.FanoutSet()
	for _, endpoint := range targets {
		s.Send(endpoint, NewPublish(s.network, block))
	}
	s.logger.WithFields(logrus.Fields{
		"hash":  block.Hash(),
		"count": len(targets),
	}).Debug("republish block")
}

// RepublishVote floods a vote to a square root sized random subset.
func (s *Socket) RepublishVote(vote *raze.Vote) {
	for _, endpoint := range s.table.FanoutSet() {
		s.Send(endpoint, NewConfirmAck(s.network, vote))
	}
}

// BroadcastConfirmReq asks every known representative, and a random
// fallback set when none are known, to vote on block.
func (s *Socket) BroadcastConfirmReq(block raze.Block, limit int) {
	reps := s.table.Representatives(limit)
	if len(reps) == 0 {
		for _, endpoint := range s.table.RandomSet(limit) {
			s.Send(endpoint, NewConfirmReq(s.network, block))
		}
		return
	}
	for _, rep := range reps {
		s.Send(rep.Endpoint, NewConfirmReq(s.network, block))
	}
}
