package node

import (
	"sync"
	"time"

	"github.com/razeblock/raze/src/raze"
)

// ArrivalWindow is how long a hash counts as recently arrived.
const ArrivalWindow = 60 * time.Second

type arrivalEntry struct {
	hash raze.Hash
	at   time.Time
}

// BlockArrival remembers blocks that arrived over the network recently.
// Forks between recent arrivals settle by voting; older forks mean the
// ledger diverged and bootstrap has to reconcile.
type BlockArrival struct {
	lock   sync.Mutex
	recent map[raze.Hash]time.Time
	order  []arrivalEntry
}

// NewBlockArrival creates an empty arrival set.
func NewBlockArrival() *BlockArrival {
	return &BlockArrival{recent: make(map[raze.Hash]time.Time)}
}

// Add records hash as arrived now.
func (b *BlockArrival) Add(hash raze.Hash) {
	b.lock.Lock()
	defer b.lock.Unlock()

	now := time.Now()
	b.prune(now)
	b.recent[hash] = now
	b.order = append(b.order, arrivalEntry{hash: hash, at: now})
}

// Recent reports whether hash arrived within the window.
func (b *BlockArrival) Recent(hash raze.Hash) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.prune(time.Now())
	_, ok := b.recent[hash]
	return ok
}

func (b *BlockArrival) prune(now time.Time) {
	cutoff := now.Add(-ArrivalWindow)
	for len(b.order) > 0 && b.order[0].at.Before(cutoff) {
		e := b.order[0]
		b.order = b.order[1:]
		if at, ok := b.recent[e.hash]; ok && !at.After(e.at) {
			delete(b.recent, e.hash)
		}
	}
}
