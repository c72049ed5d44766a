package node

import (
	"math/big"
	"sync"
	"time"

	"github.com/razeblock/raze/src/common"
	"github.com/razeblock/raze/src/raze"
)

// GapPurgeAge is how long an unresolved gap entry survives between purges.
const GapPurgeAge = 10 * time.Second

// gapCapacity bounds the cache, oldest entries fall off first.
const gapCapacity = 256

// GapEntry tracks one block whose dependency is missing, with the voting
// weight observed behind it.
type GapEntry struct {
	Required raze.Hash
	Block    raze.Block
	Arrival  time.Time
	voters   map[raze.Account]struct{}
	tally    *big.Int
	notified bool
}

// GapCache holds blocks that cannot be processed yet. When enough voting
// weight lands on a gapped block the rest of the network has clearly
// confirmed a chain this node is missing, and bootstrap is the way to catch
// up.
type GapCache struct {
	lock      sync.Mutex
	entries   *common.LRU
	threshold *big.Int
}

// NewGapCache creates a cache that reports entries whose observed vote
// weight crosses threshold.
func NewGapCache(threshold *big.Int) *GapCache {
	return &GapCache{
		entries:   common.NewLRU(gapCapacity, nil),
		threshold: threshold,
	}
}

// Add records block as waiting on required.
func (g *GapCache) Add(required raze.Hash, block raze.Block) {
	g.lock.Lock()
	defer g.lock.Unlock()

	key := block.Hash().String()
	if v, ok := g.entries.Peek(key); ok {
		v.(*GapEntry).Arrival = time.Now()
		return
	}
	g.entries.Add(key, &GapEntry{
		Required: required,
		Block:    block,
		Arrival:  time.Now(),
		voters:   make(map[raze.Account]struct{}),
		tally:    new(big.Int),
	})
}

// Take removes and returns the blocks waiting on required.
func (g *GapCache) Take(required raze.Hash) []raze.Block {
	g.lock.Lock()
	defer g.lock.Unlock()

	var blocks []raze.Block
	var keys []string
	g.entries.Each(func(key string, value interface{}) bool {
		e := value.(*GapEntry)
		if e.Required == required {
			blocks = append(blocks, e.Block)
			keys = append(keys, key)
		}
		return true
	})
	for _, key := range keys {
		g.entries.Remove(key)
	}
	return blocks
}

// Vote credits weight from account toward any entry voting on hash. It
// returns true the first time an entry's tally crosses the bootstrap
// threshold.
func (g *GapCache) Vote(account raze.Account, weight raze.Amount, hash raze.Hash) bool {
	g.lock.Lock()
	defer g.lock.Unlock()

	v, ok := g.entries.Peek(hash.String())
	if !ok {
		return false
	}
	e := v.(*GapEntry)
	if _, seen := e.voters[account]; seen {
		return false
	}
	e.voters[account] = struct{}{}
	e.tally.Add(e.tally, weight.Big())
	if !e.notified && e.tally.Cmp(g.threshold) >= 0 {
		e.notified = true
		return true
	}
	return false
}

// Purge drops entries older than age.
func (g *GapCache) Purge(age time.Duration) {
	g.lock.Lock()
	defer g.lock.Unlock()

	cutoff := time.Now().Add(-age)
	g.entries.RemoveIf(func(key string, value interface{}) bool {
		return value.(*GapEntry).Arrival.Before(cutoff)
	})
}

// Size returns the number of waiting entries.
func (g *GapCache) Size() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.entries.Len()
}
