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
	// voteRepublishCooldown throttles per-representative vote flooding.
	voteRepublishCooldown = time.Second

	// sequenceAmplificationGap is the stored-versus-incoming sequence
	// distance past which a replayed old vote looks like an amplification
	// attempt and the current vote is refreshed on the network.
	sequenceAmplificationGap = 10000
)

// voteRepublishMinimum is the representative weight below which votes are
// not worth flooding.
func voteRepublishMinimum() *big.Int {
	return new(big.Int).Mul(big.NewInt(256), raze.MrazeRatio)
}

// VoteProcessor validates incoming votes and routes them to elections, the
// gap cache and back onto the network.
type VoteProcessor struct {
	node   *Node
	logger *logrus.Entry

	lock          sync.Mutex
	lastRepublish map[raze.Account]time.Time
	minimum       *big.Int
}

// NewVoteProcessor creates a processor bound to node.
func NewVoteProcessor(node *Node) *VoteProcessor {
	return &VoteProcessor{
		node:          node,
		logger:        node.logger.WithField("prefix", "votes"),
		lastRepublish: make(map[raze.Account]time.Time),
		minimum:       voteRepublishMinimum(),
	}
}

// Process validates vote and applies its effects. The result reports how
// the vote was classified.
func (v *VoteProcessor) Process(vote *raze.Vote) ledger.VoteResult {
	txn := v.node.store.Begin(true)
	result := v.node.ledger.VoteValidate(txn, vote)
	var weight raze.Amount
	var stored uint64
	if result != ledger.VoteInvalid {
		weight = v.node.ledger.Weight(txn, vote.Account)
		if record, err := v.node.store.VoteGet(txn, vote.Account); err == nil {
			stored = record.Sequence
		}
	}
	if err := txn.Commit(); err != nil {
		v.logger.WithError(err).Error("commit vote")
		return ledger.VoteInvalid
	}

	switch result {
	case ledger.VoteValid:
		v.logger.WithFields(logrus.Fields{
			"account":  vote.Account,
			"sequence": vote.Sequence,
			"hash":     vote.Block.Hash(),
		}).Debug("vote")
		v.node.elections.Vote(vote)
		if v.node.gap.Vote(vote.Account, weight, vote.Block.Hash()) {
			v.logger.WithField("hash", vote.Block.Hash()).Info("confirmed gap, scheduling bootstrap")
			v.node.scheduleBootstrap()
		}
		v.republish(vote, weight)

	case ledger.VoteReplay:
		if stored > vote.Sequence && stored-vote.Sequence > sequenceAmplificationGap {
			v.logger.WithFields(logrus.Fields{
				"account": vote.Account,
				"stored":  stored,
				"seen":    vote.Sequence,
			}).Warn("stale vote replay")
			v.node.refreshVote(vote.Block)
		}

	case ledger.VoteInvalid:
		v.logger.WithField("account", vote.Account).Debug("invalid vote signature")
	}
	return result
}

// republish floods the vote when the representative carries enough weight,
// at most once a second per representative.
func (v *VoteProcessor) republish(vote *raze.Vote, weight raze.Amount) {
	if weight.Big().Cmp(v.minimum) <= 0 {
		return
	}

	v.lock.Lock()
	now := time.Now()
	if last, ok := v.lastRepublish[vote.Account]; ok && now.Sub(last) < voteRepublishCooldown {
		v.lock.Unlock()
		return
	}
	v.lastRepublish[vote.Account] = now
	v.lock.Unlock()

	v.node.socket.RepublishVote(vote)
}
