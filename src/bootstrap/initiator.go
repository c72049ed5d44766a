// Package bootstrap defines the seam between the live node and ledger
// synchronization. The node only needs to trigger synchronization and ask
// whether one is running, everything behind that stays pluggable.
package bootstrap

import (
	"sync"

	"github.com/razeblock/raze/src/ledger"
	"github.com/razeblock/raze/src/raze"
)

// Initiator triggers ledger synchronization against the network.
type Initiator interface {
	// Bootstrap starts a synchronization round unless one is running.
	Bootstrap()

	// InProgress reports whether a round is running.
	InProgress() bool

	// ProcessFork hands a fork that cannot be settled by voting alone to
	// the synchronizer.
	ProcessFork(txn *ledger.Transaction, block raze.Block)

	// Stop aborts any running round and releases resources.
	Stop()
}

// Recorder is an Initiator that only counts what it was asked to do. It
// stands in wherever synchronization itself is out of scope.
type Recorder struct {
	lock       sync.Mutex
	bootstraps int
	forks      []raze.Hash
	stopped    bool
}

// NewRecorder creates an idle recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Bootstrap() {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.stopped {
		return
	}
	r.bootstraps++
}

func (r *Recorder) InProgress() bool {
	return false
}

func (r *Recorder) ProcessFork(txn *ledger.Transaction, block raze.Block) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.stopped {
		return
	}
	r.forks = append(r.forks, block.Hash())
}

func (r *Recorder) Stop() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.stopped = true
}

// Bootstraps returns how many rounds were requested.
func (r *Recorder) Bootstraps() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.bootstraps
}

// Forks returns the fork hashes handed over so far.
func (r *Recorder) Forks() []raze.Hash {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]raze.Hash{}, r.forks...)
}
