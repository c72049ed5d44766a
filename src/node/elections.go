package node

import (
	"math/big"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/razeblock/raze/src/ledger"
	"github.com/razeblock/raze/src/raze"
)

const (
	// AnnounceInterval paces confirm_req rebroadcasts for unsettled
	// elections.
	AnnounceInterval = 16 * time.Second

	// AnnouncementsPerInterval caps how many elections are announced each
	// pass, the rest have their counters reset and wait.
	AnnouncementsPerInterval = 20

	// ContiguousAnnouncements bounds election lifetime: an unconfirmed
	// election is cut off on its current winner after
	// ContiguousAnnouncements-1 announcements, a confirmed one lingers
	// ContiguousAnnouncements announcements for stragglers.
	ContiguousAnnouncements = 4

	// ConfirmReqRepresentatives bounds the representative set asked per
	// announcement.
	ConfirmReqRepresentatives = 30
)

// Election tracks one fork resolution: every vote seen for the root, the
// current winner and whether quorum already settled it.
type Election struct {
	root          raze.Hash
	votes         map[raze.Account]*raze.Vote
	lastWinner    raze.Block
	confirmed     bool
	announcements int
}

// Elections runs the vote-driven fork resolution for every contested root.
type Elections struct {
	node   *Node
	logger *logrus.Entry

	lock  sync.Mutex
	roots map[raze.Hash]*Election

	done chan struct{}
	wg   sync.WaitGroup
}

// NewElections creates the election table.
func NewElections(node *Node) *Elections {
	return &Elections{
		node:   node,
		logger: node.logger.WithField("prefix", "elections"),
		roots:  make(map[raze.Hash]*Election),
		done:   make(chan struct{}),
	}
}

// Start launches the announce loop.
func (e *Elections) Start() {
	e.wg.Add(1)
	go e.announceLoop()
}

// Stop terminates the announce loop.
func (e *Elections) Stop() {
	close(e.done)
	e.wg.Wait()
}

// Begin opens an election for block's root. It returns true when the root
// was not already contested.
func (e *Elections) Begin(block raze.Block) bool {
	e.lock.Lock()
	defer e.lock.Unlock()

	root := block.Root()
	if _, ok := e.roots[root]; ok {
		return false
	}
	e.roots[root] = &Election{
		root:       root,
		votes:      make(map[raze.Account]*raze.Vote),
		lastWinner: block,
	}
	e.logger.WithFields(logrus.Fields{
		"root": root,
		"hash": block.Hash(),
	}).Debug("election started")
	return true
}

// Active reports whether root has an open election.
func (e *Elections) Active(root raze.Hash) bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	_, ok := e.roots[root]
	return ok
}

// Size returns the number of open elections.
func (e *Elections) Size() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return len(e.roots)
}

// Vote feeds a validated vote into the election for its block's root.
// Within an election only the highest sequence per account counts.
func (e *Elections) Vote(vote *raze.Vote) {
	e.lock.Lock()

	election, ok := e.roots[vote.Block.Root()]
	if !ok {
		e.lock.Unlock()
		return
	}
	if prior, ok := election.votes[vote.Account]; ok && prior.Sequence >= vote.Sequence {
		e.lock.Unlock()
		return
	}
	election.votes[vote.Account] = vote
	e.lock.Unlock()

	txn := e.node.store.Begin(false)
	defer txn.Discard()
	e.settle(txn, election)
}

// settle recomputes the winner and applies the thresholds: a sixteenth of
// the supply lets the tally leader displace last_winner, half the supply
// confirms the election. The election confirms at most once; a winner flip
// forces the new winner through the processor which rolls the loser back.
func (e *Elections) settle(txn *ledger.Transaction, election *Election) {
	e.lock.Lock()
	votes := make(map[raze.Account]*raze.Vote, len(election.votes))
	for a, v := range election.votes {
		votes[a] = v
	}
	e.lock.Unlock()

	if len(votes) == 0 {
		return
	}
	winner, weight := e.node.ledger.Winner(txn, votes)
	if winner == nil {
		return
	}

	supply := e.node.ledger.Supply().Big()
	minimum := new(big.Int).Quo(supply, big.NewInt(16))
	quorum := new(big.Int).Quo(supply, big.NewInt(2))

	e.lock.Lock()
	changed := false
	if weight.Cmp(minimum) > 0 && election.lastWinner.Hash() != winner.Hash() {
		changed = true
		election.lastWinner = winner
	}
	first := false
	if weight.Cmp(quorum) > 0 && !election.confirmed {
		first = true
		election.confirmed = true
	}
	e.lock.Unlock()

	if changed {
		e.logger.WithFields(logrus.Fields{
			"root":   election.root,
			"winner": winner.Hash(),
		}).Info("election winner changed")
		e.node.processor.Force(winner)
	}
	if first {
		e.logger.WithFields(logrus.Fields{
			"root":   election.root,
			"winner": winner.Hash(),
		}).Info("election confirmed")
		e.node.blockConfirmed(winner)
	}
}

func (e *Elections) announceLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(AnnounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			e.announceAll()
		}
	}
}

// announceAll rebroadcasts unsettled elections, cuts off elections that
// announced ContiguousAnnouncements-1 times without reaching quorum and
// drops settled ones that have announced long enough for stragglers to
// catch the outcome.
func (e *Elections) announceAll() {
	e.lock.Lock()
	var announce []*Election
	var reset []*Election
	var cutoff []*Election
	var drop []raze.Hash
	count := 0
	for root, election := range e.roots {
		if election.confirmed && election.announcements >= ContiguousAnnouncements {
			drop = append(drop, root)
			continue
		}
		if !election.confirmed && election.announcements >= ContiguousAnnouncements-1 {
			election.confirmed = true
			cutoff = append(cutoff, election)
			drop = append(drop, root)
			continue
		}
		if count < AnnouncementsPerInterval {
			election.announcements++
			announce = append(announce, election)
			count++
		} else {
			reset = append(reset, election)
		}
	}
	for _, root := range drop {
		delete(e.roots, root)
	}
	for _, election := range reset {
		election.announcements = 0
	}
	e.lock.Unlock()

	if len(drop) > 0 {
		e.logger.WithField("count", len(drop)).Debug("elections retired")
	}

	for _, election := range cutoff {
		e.lock.Lock()
		winner := election.lastWinner
		stalled := len(election.votes) <= 1
		e.lock.Unlock()

		if stalled && e.node.table.Size() > 1 {
			e.logger.WithField("root", election.root).Warn("election stalled, bootstrapping")
			e.node.bootstrapAny()
		}
		e.logger.WithFields(logrus.Fields{
			"root":   election.root,
			"winner": winner.Hash(),
		}).Info("election cut off")
		e.node.blockConfirmed(winner)
	}

	for _, election := range announce {
		e.lock.Lock()
		winner := election.lastWinner
		e.lock.Unlock()

		e.node.socket.Republish(winner)
		e.node.socket.BroadcastConfirmReq(winner, ConfirmReqRepresentatives)
	}
}
