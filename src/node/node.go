package node

import (
	"math/big"
	"math/rand"
	gonet "net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/razeblock/raze/src/bootstrap"
	"github.com/razeblock/raze/src/config"
	"github.com/razeblock/raze/src/crypto"
	"github.com/razeblock/raze/src/ledger"
	"github.com/razeblock/raze/src/net"
	"github.com/razeblock/raze/src/peers"
	"github.com/razeblock/raze/src/raze"
)

// Maintenance cadences.
const (
	KeepalivePeriod         = 60 * time.Second
	PeerCutoff              = 5 * time.Minute
	BootstrapInterval       = 300 * time.Second
	WarmupBootstrapInterval = 5 * time.Second
	WarmupBootstrapRounds   = 3
	StoreFlushInterval      = 5 * time.Second
	GapPurgeInterval        = 10 * time.Second
	BootstrapDelay          = 5 * time.Second
)

// Node wires the socket, ledger and maintenance loops into a running peer.
// Every component is owned here and joined in Stop.
type Node struct {
	conf    *config.Config
	network *raze.Network
	logger  *logrus.Entry
	rng     *rand.Rand

	store  *ledger.BadgerStore
	ledger *ledger.Ledger
	table  *peers.Table
	socket *net.Socket
	alarm  *Alarm

	processor  *BlockProcessor
	elections  *Elections
	votes      *VoteProcessor
	repCrawler *RepCrawler
	gap        *GapCache
	arrival    *BlockArrival
	work       *WorkCoordinator
	callback   *Callback
	bootstrap  bootstrap.Initiator

	voteKey *crypto.KeyPair

	observerLock        sync.Mutex
	blockObservers      []func(BlockEvent)
	confirmObservers    []func(raze.Block)
	disconnectObservers []func()

	warmupsLock sync.Mutex
	warmups     int

	shutdown     bool
	shutdownLock sync.Mutex
	done         chan struct{}
}

// NewNode assembles a node from conf. voteKey may be nil, the node then
// observes without voting. boot may be nil, bootstrap triggers are then
// recorded by a no-op.
func NewNode(conf *config.Config, network *raze.Network, voteKey *crypto.KeyPair, boot bootstrap.Initiator, rng *rand.Rand) (*Node, error) {
	logger := conf.Logger()

	store, err := ledger.NewBadgerStore(conf.DatabaseDir, network)
	if err != nil {
		return nil, err
	}

	addr, err := gonet.ResolveUDPAddr("udp", conf.BindAddr)
	if err != nil {
		store.Close()
		return nil, err
	}
	self := peers.EndpointFromUDPAddr(addr)

	if boot == nil {
		boot = bootstrap.NewRecorder()
	}

	n := &Node{
		conf:      conf,
		network:   network,
		logger:    logger,
		rng:       rng,
		store:     store,
		ledger:    ledger.NewLedger(store, network, logger.Logger.WithField("prefix", "ledger")),
		table:     peers.NewTable(self, rng),
		alarm:     nil,
		arrival:   NewBlockArrival(),
		gap:       NewGapCache(bootstrapWeight(network, conf.BootstrapFraction)),
		bootstrap: boot,
		voteKey:   voteKey,
		done:      make(chan struct{}),
	}
	n.socket = net.NewSocket(network, n.table, n.handleMessage, logger.Logger.WithField("prefix", "socket"))
	n.processor = NewBlockProcessor(n)
	n.elections = NewElections(n)
	n.votes = NewVoteProcessor(n)
	n.repCrawler = NewRepCrawler(n)
	n.work = NewWorkCoordinator(crypto.NewWorkPool(), conf.WorkPeers, logger.Logger.WithField("prefix", "work"))
	n.callback = NewCallback(conf.CallbackURL, logger.Logger.WithField("prefix", "callback"))
	return n, nil
}

// bootstrapWeight is the confirmed-gap vote weight that schedules an
// automatic bootstrap, numerator 256ths of the supply.
func bootstrapWeight(network *raze.Network, numerator int) *big.Int {
	if numerator < 1 {
		numerator = 1
	}
	supply := raze.MaxAmount().Big()
	slice := new(big.Int).Quo(supply, big.NewInt(256))
	return slice.Mul(slice, big.NewInt(int64(numerator)))
}

// Ledger exposes the node's ledger.
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// Table exposes the peer table.
func (n *Node) Table() *peers.Table {
	return n.table
}

// Work exposes the work coordinator.
func (n *Node) Work() *WorkCoordinator {
	return n.work
}

// Start binds the socket and launches every maintenance loop.
func (n *Node) Start() error {
	if err := n.socket.Start(n.conf.BindAddr); err != nil {
		return err
	}
	n.alarm = NewAlarm()
	n.processor.Start()
	n.elections.Start()

	n.contactPreconfigured()
	n.ongoingKeepalive()
	n.ongoingRepCrawl()
	n.ongoingBootstrap()
	n.ongoingStoreFlush()
	n.ongoingGapPurge()

	n.logger.WithFields(logrus.Fields{
		"network": n.network.ID,
		"listen":  n.conf.BindAddr,
	}).Info("node started")
	return nil
}

// Stop joins every component. Safe to call more than once.
func (n *Node) Stop() {
	n.shutdownLock.Lock()
	if n.shutdown {
		n.shutdownLock.Unlock()
		return
	}
	n.shutdown = true
	close(n.done)
	n.shutdownLock.Unlock()

	n.bootstrap.Stop()
	if n.alarm != nil {
		n.alarm.Stop()
	}
	n.elections.Stop()
	n.processor.Stop()
	n.socket.Stop()
	if err := n.store.Close(); err != nil {
		n.logger.WithError(err).Error("closing store")
	}
	n.logger.Info("node stopped")
}

func (n *Node) stopped() bool {
	select {
	case <-n.done:
		return true
	default:
		return false
	}
}

// Process queues a locally generated block, e.g. from a wallet.
func (n *Node) Process(block raze.Block) {
	n.arrival.Add(block.Hash())
	n.processor.Add(block)
}

// ObserveBlocks registers f to run for every accepted block.
func (n *Node) ObserveBlocks(f func(BlockEvent)) {
	n.observerLock.Lock()
	defer n.observerLock.Unlock()
	n.blockObservers = append(n.blockObservers, f)
}

// ObserveConfirmations registers f to run for every election winner.
func (n *Node) ObserveConfirmations(f func(raze.Block)) {
	n.observerLock.Lock()
	defer n.observerLock.Unlock()
	n.confirmObservers = append(n.confirmObservers, f)
}

// ObserveDisconnect registers f to run when the last peer is purged.
func (n *Node) ObserveDisconnect(f func()) {
	n.observerLock.Lock()
	defer n.observerLock.Unlock()
	n.disconnectObservers = append(n.disconnectObservers, f)
}

//==============================================================================
//Message dispatch

type messageVisitor struct {
	node *Node
	from peers.Endpoint
}

func (n *Node) handleMessage(msg net.Message, from peers.Endpoint) {
	if n.stopped() {
		return
	}
	if n.table.Insert(from, msg.Header().VersionUsing) {
		n.socket.SendKeepalive(from)
	}
	msg.Visit(&messageVisitor{node: n, from: from})
}

func (v *messageVisitor) Keepalive(m *net.Keepalive) {
	n := v.node
	for _, endpoint := range m.Endpoints {
		if endpoint.IsZero() || net.ReservedEndpoint(endpoint, n.network.AllowLoopback) {
			continue
		}
		if n.table.Reachout(endpoint) {
			n.socket.SendKeepalive(endpoint)
		}
	}
}

func (v *messageVisitor) Publish(m *net.Publish) {
	n := v.node
	n.arrival.Add(m.Block.Hash())
	n.processor.Add(m.Block)
}

func (v *messageVisitor) ConfirmReq(m *net.ConfirmReq) {
	n := v.node
	n.arrival.Add(m.Block.Hash())
	n.processor.Add(m.Block)

	if n.voteKey == nil {
		return
	}
	txn := n.store.Begin(true)
	defer txn.Discard()
	if !n.store.BlockExists(txn, m.Block.Hash()) {
		return
	}
	vote, err := n.ledger.VoteGenerate(txn, n.voteKey, m.Block)
	if err != nil {
		n.logger.WithError(err).Error("generate vote")
		return
	}
	if err := txn.Commit(); err != nil {
		n.logger.WithError(err).Error("commit vote sequence")
		return
	}
	n.socket.Send(v.from, net.NewConfirmAck(n.network, vote))
	n.socket.RepublishVote(vote)
}

func (v *messageVisitor) ConfirmAck(m *net.ConfirmAck) {
	n := v.node
	n.arrival.Add(m.Vote.Block.Hash())
	n.processor.Add(m.Vote.Block)
	n.repCrawler.Response(m.Vote, v.from)
	n.votes.Process(m.Vote)
}

//==============================================================================
//Component callbacks

// blockProcessed fans an accepted block out to the network and observers.
func (n *Node) blockProcessed(event BlockEvent) {
	n.socket.Republish(event.Block)
	n.callback.Notify(event)

	n.observerLock.Lock()
	observers := append([]func(BlockEvent){}, n.blockObservers...)
	n.observerLock.Unlock()
	for _, f := range observers {
		f(event)
	}

	if n.voteKey != nil {
		n.voteOn(event.Block)
	}
}

// blockConfirmed notifies observers of a settled election.
func (n *Node) blockConfirmed(block raze.Block) {
	n.observerLock.Lock()
	observers := append([]func(raze.Block){}, n.confirmObservers...)
	n.observerLock.Unlock()
	for _, f := range observers {
		f(block)
	}
}

// forkObserved runs inside the processor's transaction when a block loses
// the frontier race. Recent forks settle by election, older ones indicate a
// diverged ledger and go to bootstrap.
func (n *Node) forkObserved(txn *ledger.Transaction, block raze.Block) {
	winner, err := n.ledger.Successor(txn, block.Root())
	if err != nil || winner == nil {
		return
	}
	if n.elections.Begin(winner) {
		n.logger.WithFields(logrus.Fields{
			"root":   block.Root(),
			"ours":   winner.Hash(),
			"theirs": block.Hash(),
		}).Info("fork observed")
		if n.voteKey != nil {
			n.voteOn(winner)
		}
	}
	if !n.arrival.Recent(block.Hash()) {
		n.bootstrap.ProcessFork(txn, block)
	}
}

// voteOn signs and floods a vote for block, feeding it to our own
// elections as well.
func (n *Node) voteOn(block raze.Block) {
	txn := n.store.Begin(true)
	vote, err := n.ledger.VoteGenerate(txn, n.voteKey, block)
	if err != nil {
		txn.Discard()
		n.logger.WithError(err).Error("generate vote")
		return
	}
	if err := txn.Commit(); err != nil {
		n.logger.WithError(err).Error("commit vote sequence")
		return
	}
	n.elections.Vote(vote)
	n.socket.RepublishVote(vote)
}

// refreshVote floods our current vote for block after a stale replay was
// seen amplifying old state.
func (n *Node) refreshVote(block raze.Block) {
	if n.voteKey == nil {
		return
	}
	n.voteOn(block)
}

// scheduleBootstrap starts a bootstrap shortly, letting in-flight traffic
// settle first.
func (n *Node) scheduleBootstrap() {
	n.alarm.AddAfter(BootstrapDelay, func() {
		n.bootstrap.Bootstrap()
	})
}

func (n *Node) bootstrapAny() {
	n.bootstrap.Bootstrap()
}

//==============================================================================
//Maintenance loops

func (n *Node) contactPreconfigured() {
	for _, peer := range n.conf.PreconfiguredPeers {
		addr, err := gonet.ResolveUDPAddr("udp", peer)
		if err != nil {
			n.logger.WithError(err).WithField("peer", peer).Warn("unresolvable peer")
			continue
		}
		endpoint := peers.EndpointFromUDPAddr(addr)
		if n.table.Reachout(endpoint) {
			n.socket.SendKeepalive(endpoint)
		}
	}
}

func (n *Node) ongoingKeepalive() {
	if n.stopped() {
		return
	}

	dropped := n.table.Purge(time.Now().Add(-PeerCutoff))
	if len(dropped) > 0 {
		n.logger.WithField("count", len(dropped)).Debug("peers purged")
		if n.table.Empty() {
			n.observerLock.Lock()
			observers := append([]func(){}, n.disconnectObservers...)
			n.observerLock.Unlock()
			for _, f := range observers {
				f()
			}
		}
	}

	if n.table.Empty() {
		n.contactPreconfigured()
	}
	for _, peer := range n.table.List() {
		if time.Since(peer.LastContact) >= KeepalivePeriod {
			n.socket.SendKeepalive(peer.Endpoint)
		}
	}

	n.alarm.AddAfter(KeepalivePeriod, n.ongoingKeepalive)
}

func (n *Node) ongoingRepCrawl() {
	if n.stopped() {
		return
	}
	n.repCrawler.Crawl()
	n.alarm.AddAfter(RepCrawlInterval, n.ongoingRepCrawl)
}

func (n *Node) ongoingBootstrap() {
	if n.stopped() {
		return
	}

	n.warmupsLock.Lock()
	interval := BootstrapInterval
	if n.warmups < WarmupBootstrapRounds {
		n.warmups++
		interval = WarmupBootstrapInterval
	}
	n.warmupsLock.Unlock()

	n.bootstrap.Bootstrap()
	n.alarm.AddAfter(interval, n.ongoingBootstrap)
}

func (n *Node) ongoingStoreFlush() {
	if n.stopped() {
		return
	}
	if err := n.store.Flush(); err != nil {
		n.logger.WithError(err).Error("store flush")
	}
	n.alarm.AddAfter(StoreFlushInterval, n.ongoingStoreFlush)
}

func (n *Node) ongoingGapPurge() {
	if n.stopped() {
		return
	}
	n.gap.Purge(GapPurgeAge)
	n.alarm.AddAfter(GapPurgeInterval, n.ongoingGapPurge)
}
