package node

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/razeblock/raze/src/crypto"
	"github.com/razeblock/raze/src/ledger"
	"github.com/razeblock/raze/src/raze"
)

// batchWindow bounds how long a single write transaction stays open while
// the processor drains its queue.
const batchWindow = 500 * time.Millisecond

// BlockEvent describes a block that entered the ledger, with the context
// observers need without reopening a transaction.
type BlockEvent struct {
	Block   raze.Block
	Account raze.Account
	Amount  raze.Amount
	Result  ledger.ProcessResult
}

// BlockProcessor is the only writer to the ledger. Blocks from the network
// queue behind a single goroutine; forced blocks preempt the queue and may
// roll back a conflicting successor first.
type BlockProcessor struct {
	node   *Node
	logger *logrus.Entry

	lock    sync.Mutex
	cond    *sync.Cond
	queue   []raze.Block
	forced  []raze.Block
	stopped bool
	idle    bool

	wg sync.WaitGroup
}

// NewBlockProcessor creates a processor bound to node.
func NewBlockProcessor(node *Node) *BlockProcessor {
	p := &BlockProcessor{
		node:   node,
		logger: node.logger.WithField("prefix", "processor"),
		idle:   true,
	}
	p.cond = sync.NewCond(&p.lock)
	return p
}

// Start launches the processing goroutine.
func (p *BlockProcessor) Start() {
	p.wg.Add(1)
	go p.run()
}

// Stop terminates the goroutine after the current batch.
func (p *BlockProcessor) Stop() {
	p.lock.Lock()
	p.stopped = true
	p.cond.Broadcast()
	p.lock.Unlock()
	p.wg.Wait()
}

// Add queues a block received from the network.
func (p *BlockProcessor) Add(block raze.Block) {
	p.lock.Lock()
	p.queue = append(p.queue, block)
	p.cond.Broadcast()
	p.lock.Unlock()
}

// Force queues a block that must enter the ledger even when a conflicting
// successor is already present.
func (p *BlockProcessor) Force(block raze.Block) {
	p.lock.Lock()
	p.forced = append(p.forced, block)
	p.cond.Broadcast()
	p.lock.Unlock()
}

// Flush blocks until both queues are empty and the processor is idle.
func (p *BlockProcessor) Flush() {
	p.lock.Lock()
	for !p.stopped && (len(p.queue) > 0 || len(p.forced) > 0 || !p.idle) {
		p.cond.Wait()
	}
	p.lock.Unlock()
}

func (p *BlockProcessor) run() {
	defer p.wg.Done()

	p.lock.Lock()
	for {
		if p.stopped {
			p.lock.Unlock()
			return
		}
		if len(p.queue) > 0 || len(p.forced) > 0 {
			p.idle = false
			p.lock.Unlock()
			p.processBatch()
			p.lock.Lock()
			p.idle = true
			p.cond.Broadcast()
			continue
		}
		p.cond.Wait()
	}
}

// processBatch drains the queues inside one write transaction, bounded by
// batchWindow so other readers are not starved.
func (p *BlockProcessor) processBatch() {
	txn := p.node.store.Begin(true)

	var events []BlockEvent
	deadline := time.Now().Add(batchWindow)
	for time.Now().Before(deadline) {
		block, forced, ok := p.pop()
		if !ok {
			break
		}
		if event, processed := p.processOne(txn, block, forced); processed {
			events = append(events, event)
		}
	}

	if err := txn.Commit(); err != nil {
		p.logger.WithError(err).Error("commit batch")
		return
	}

	for _, event := range events {
		p.node.blockProcessed(event)
	}
}

func (p *BlockProcessor) pop() (raze.Block, bool, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if len(p.forced) > 0 {
		block := p.forced[0]
		p.forced = p.forced[1:]
		return block, true, true
	}
	if len(p.queue) > 0 {
		block := p.queue[0]
		p.queue = p.queue[1:]
		return block, false, true
	}
	return nil, false, false
}

func (p *BlockProcessor) pushFront(blocks []raze.Block) {
	if len(blocks) == 0 {
		return
	}
	p.lock.Lock()
	p.queue = append(append([]raze.Block{}, blocks...), p.queue...)
	p.lock.Unlock()
}

func (p *BlockProcessor) processOne(txn *ledger.Transaction, block raze.Block, forced bool) (BlockEvent, bool) {
	hash := block.Hash()
	l := p.node.ledger

	root := block.Root()
	if !crypto.WorkValidate(root[:], block.BlockWork()) {
		p.logger.WithField("hash", hash).Debug("insufficient work")
		return BlockEvent{}, false
	}

	if forced {
		successor, err := l.Successor(txn, block.Root())
		if err == nil && successor != nil && successor.Hash() != hash {
			p.logger.WithFields(logrus.Fields{
				"winner": hash,
				"loser":  successor.Hash(),
			}).Info("rolling back fork loser")
			if err := l.Rollback(txn, successor.Hash()); err != nil {
				p.logger.WithError(err).Error("rollback")
				return BlockEvent{}, false
			}
		}
	}

	result, err := l.Process(txn, block)
	if err != nil {
		p.logger.WithError(err).WithField("hash", hash).Error("process block")
		return BlockEvent{}, false
	}

	switch result {
	case ledger.Progress:
		account, _ := l.Account(txn, hash)
		amount, _ := l.Amount(txn, hash)
		p.logger.WithFields(logrus.Fields{
			"hash":    hash,
			"account": account,
		}).Debug("block accepted")
		p.replayUnchecked(txn, hash)
		return BlockEvent{Block: block, Account: account, Amount: amount, Result: result}, true

	case ledger.Old:
		p.replayUnchecked(txn, hash)

	case ledger.GapPrevious:
		p.holdGapped(txn, block, block.Previous())

	case ledger.GapSource:
		p.holdGapped(txn, block, block.Source())

	case ledger.Fork:
		p.node.forkObserved(txn, block)

	default:
		p.logger.WithFields(logrus.Fields{
			"hash":   hash,
			"result": result,
		}).Debug("block rejected")
	}
	return BlockEvent{}, false
}

// replayUnchecked requeues blocks held on hash at the front of the queue so
// dependency chains settle within the same batch.
func (p *BlockProcessor) replayUnchecked(txn *ledger.Transaction, hash raze.Hash) {
	held, err := p.node.store.UncheckedGet(txn, hash)
	if err != nil || len(held) == 0 {
		return
	}
	for _, block := range held {
		if err := p.node.store.UncheckedDel(txn, hash, block.Hash()); err != nil {
			p.logger.WithError(err).Error("unchecked delete")
		}
	}
	held = append(held, p.node.gap.Take(hash)...)
	p.pushFront(held)
}

func (p *BlockProcessor) holdGapped(txn *ledger.Transaction, block raze.Block, required raze.Hash) {
	p.logger.WithFields(logrus.Fields{
		"hash":     block.Hash(),
		"required": required,
	}).Debug("holding gapped block")
	if err := p.node.store.UncheckedPut(txn, required, block); err != nil {
		p.logger.WithError(err).Error("unchecked put")
	}
	p.node.gap.Add(required, block)
}
