package node

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/razeblock/raze/src/ledger"
	"github.com/razeblock/raze/src/net"
	"github.com/razeblock/raze/src/peers"
	"github.com/razeblock/raze/src/raze"
)

const (
	// RepCrawlInterval paces the ongoing crawl.
	RepCrawlInterval = 40 * time.Second

	// RepCrawlPeers is how many peers each crawl pass queries.
	RepCrawlPeers = 8

	// repCrawlWindow is how long a queried hash stays eligible for weight
	// attribution.
	repCrawlWindow = 5 * time.Second
)

// RepCrawler discovers which peers vote and with how much weight. It asks a
// rotating set of peers to confirm a recent block and attributes the
// responding votes to their senders.
type RepCrawler struct {
	node   *Node
	logger *logrus.Entry

	lock   sync.Mutex
	active map[raze.Hash]struct{}
}

// NewRepCrawler creates a crawler bound to node.
func NewRepCrawler(node *Node) *RepCrawler {
	return &RepCrawler{
		node:   node,
		logger: node.logger.WithField("prefix", "repcrawler"),
		active: make(map[raze.Hash]struct{}),
	}
}

// Crawl queries the peers least recently asked about representatives.
func (r *RepCrawler) Crawl() {
	block := r.sampleBlock()
	if block == nil {
		return
	}
	targets := r.node.table.RepCrawlSet(RepCrawlPeers)
	if len(targets) == 0 {
		return
	}

	hash := block.Hash()
	r.lock.Lock()
	r.active[hash] = struct{}{}
	r.lock.Unlock()
	r.node.alarm.AddAfter(repCrawlWindow, func() {
		r.lock.Lock()
		delete(r.active, hash)
		r.lock.Unlock()
	})

	for _, endpoint := range targets {
		r.node.socket.Send(endpoint, net.NewConfirmReq(r.node.network, block))
	}
	r.logger.WithFields(logrus.Fields{
		"hash":  hash,
		"peers": len(targets),
	}).Debug("crawling representatives")
}

// Response attributes a vote on a crawled hash to its sender.
func (r *RepCrawler) Response(vote *raze.Vote, from peers.Endpoint) {
	r.lock.Lock()
	_, ok := r.active[vote.Block.Hash()]
	r.lock.Unlock()
	if !ok {
		return
	}

	txn := r.node.store.Begin(false)
	weight := r.node.ledger.Weight(txn, vote.Account)
	txn.Discard()
	if weight.IsZero() {
		return
	}

	r.node.table.RepResponse(from, vote.Account, weight)
	r.logger.WithFields(logrus.Fields{
		"endpoint": from,
		"account":  vote.Account,
	}).Debug("representative response")
}

// sampleBlock picks a frontier block to crawl with, any settled head works.
func (r *RepCrawler) sampleBlock() raze.Block {
	txn := r.node.store.Begin(false)
	defer txn.Discard()

	var head raze.Hash
	r.node.store.AccountEach(txn, func(account raze.Account, info *ledger.AccountInfo) bool {
		head = info.Head
		return false
	})
	if head.IsZero() {
		return nil
	}
	block, err := r.node.store.BlockGet(txn, head)
	if err != nil {
		return nil
	}
	return block
}
