package peers

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/razeblock/raze/src/raze"
)

// ReachoutCooldown is the minimum wait between keepalive attempts to an
// endpoint that has never answered.
const ReachoutCooldown = 60 * time.Second

// Table tracks every peer the node has heard from. All ordered views are
// computed on demand from the single map; the zoo of orderings the
// maintenance loops need never gets out of sync that way.
type Table struct {
	sync.Mutex
	self     Endpoint
	peers    map[Endpoint]*Peer
	attempts map[Endpoint]time.Time
	rng      *rand.Rand
}

// NewTable creates a table that filters out self and draws random sets from
// rng.
func NewTable(self Endpoint, rng *rand.Rand) *Table {
	return &Table{
		self:     self,
		peers:    make(map[Endpoint]*Peer),
		attempts: make(map[Endpoint]time.Time),
		rng:      rng,
	}
}

// Self returns the local endpoint.
func (t *Table) Self() Endpoint {
	return t.self
}

// Insert records contact from endpoint and returns true when the peer is
// new.
func (t *Table) Insert(endpoint Endpoint, version byte) bool {
	if endpoint == t.self {
		return false
	}

	t.Lock()
	defer t.Unlock()

	now := time.Now()
	peer, ok := t.peers[endpoint]
	if ok {
		peer.LastContact = now
		peer.NetworkVersion = version
		return false
	}

	t.peers[endpoint] = &Peer{
		Endpoint:       endpoint,
		LastContact:    now,
		NetworkVersion: version,
	}
	delete(t.attempts, endpoint)
	return true
}

// Known reports whether endpoint is in the table.
func (t *Table) Known(endpoint Endpoint) bool {
	t.Lock()
	defer t.Unlock()
	_, ok := t.peers[endpoint]
	return ok
}

// Size returns the number of peers.
func (t *Table) Size() int {
	t.Lock()
	defer t.Unlock()
	return len(t.peers)
}

// Empty reports whether no peers are known.
func (t *Table) Empty() bool {
	return t.Size() == 0
}

// Reachout records an attempt toward an unknown endpoint. It returns false
// when the endpoint is self, already known, or was attempted within the
// cooldown.
func (t *Table) Reachout(endpoint Endpoint) bool {
	if endpoint == t.self {
		return false
	}

	t.Lock()
	defer t.Unlock()

	if _, ok := t.peers[endpoint]; ok {
		return false
	}
	now := time.Now()
	if last, ok := t.attempts[endpoint]; ok && now.Sub(last) < ReachoutCooldown {
		return false
	}
	t.attempts[endpoint] = now
	return true
}

// List returns a snapshot of every peer.
func (t *Table) List() []Peer {
	t.Lock()
	defer t.Unlock()
	return t.snapshot()
}

func (t *Table) snapshot() []Peer {
	list := make([]Peer, 0, len(t.peers))
	for _, p := range t.peers {
		list = append(list, *p)
	}
	return list
}

// RandomSet returns up to count distinct random endpoints.
func (t *Table) RandomSet(count int) []Endpoint {
	t.Lock()
	defer t.Unlock()

	endpoints := make([]Endpoint, 0, len(t.peers))
	for e := range t.peers {
		endpoints = append(endpoints, e)
	}
	t.rng.Shuffle(len(endpoints), func(i, j int) {
		endpoints[i], endpoints[j] = endpoints[j], endpoints[i]
	})
	if len(endpoints) > count {
		endpoints = endpoints[:count]
	}
	return endpoints
}

// FanoutSet returns a random set sized to twice the rounded-up square root
// of the table size, the republish fanout.
func (t *Table) FanoutSet() []Endpoint {
	size := t.Size()
	count := 2 * int(math.Ceil(math.Sqrt(float64(size))))
	return t.RandomSet(count)
}

// BootstrapPeer returns the peer least recently tried for bootstrap and
// stamps its attempt time. The zero endpoint means the table is empty.
func (t *Table) BootstrapPeer() Endpoint {
	t.Lock()
	defer t.Unlock()

	var chosen *Peer
	for _, p := range t.peers {
		if chosen == nil || p.LastBootstrapAttempt.Before(chosen.LastBootstrapAttempt) {
			chosen = p
		}
	}
	if chosen == nil {
		return Endpoint{}
	}
	chosen.LastBootstrapAttempt = time.Now()
	return chosen.Endpoint
}

// RepCrawlSet returns up to count peers ordered by oldest representative
// request and stamps their request time.
func (t *Table) RepCrawlSet(count int) []Endpoint {
	t.Lock()
	defer t.Unlock()

	list := make([]*Peer, 0, len(t.peers))
	for _, p := range t.peers {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].LastRepRequest.Before(list[j].LastRepRequest)
	})
	if len(list) > count {
		list = list[:count]
	}

	now := time.Now()
	endpoints := make([]Endpoint, 0, len(list))
	for _, p := range list {
		p.LastRepRequest = now
		endpoints = append(endpoints, p.Endpoint)
	}
	return endpoints
}

// RepResponse records a representative answering from endpoint. The weight
// only ever ratchets up; stale crawls cannot shrink a known rep.
func (t *Table) RepResponse(endpoint Endpoint, account raze.Account, weight raze.Amount) {
	t.Lock()
	defer t.Unlock()

	peer, ok := t.peers[endpoint]
	if !ok {
		return
	}
	peer.LastRepResponse = time.Now()
	if weight.Cmp(peer.RepWeight) > 0 {
		peer.RepAccount = account
		peer.RepWeight = weight
	}
}

// Representatives returns up to count peers with voting weight, heaviest
// first.
func (t *Table) Representatives(count int) []Peer {
	t.Lock()
	defer t.Unlock()

	list := make([]Peer, 0, len(t.peers))
	for _, p := range t.peers {
		if !p.RepWeight.IsZero() {
			list = append(list, *p)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].RepWeight.Cmp(list[j].RepWeight) > 0
	})
	if len(list) > count {
		list = list[:count]
	}
	return list
}

// Purge drops peers not contacted since cutoff and stale reachout attempts,
// returning the dropped peers.
func (t *Table) Purge(cutoff time.Time) []Peer {
	t.Lock()
	defer t.Unlock()

	var dropped []Peer
	for e, p := range t.peers {
		if p.LastContact.Before(cutoff) {
			dropped = append(dropped, *p)
			delete(t.peers, e)
		}
	}
	for e, at := range t.attempts {
		if at.Before(cutoff) {
			delete(t.attempts, e)
		}
	}
	return dropped
}
