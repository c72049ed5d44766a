package peers

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/razeblock/raze/src/raze"
)

func testEndpoint(n byte) Endpoint {
	return MakeEndpoint([]byte{10, 0, 0, n}, 7075)
}

func newTestTable() *Table {
	return NewTable(testEndpoint(1), rand.New(rand.NewSource(1)))
}

func TestInsertAndSelf(t *testing.T) {
	table := newTestTable()

	if table.Insert(table.Self(), 1) {
		t.Fatalf("self must never enter the table")
	}
	if !table.Insert(testEndpoint(2), 1) {
		t.Fatalf("first contact should report new")
	}
	if table.Insert(testEndpoint(2), 1) {
		t.Fatalf("second contact should not report new")
	}
	if table.Size() != 1 {
		t.Fatalf("expected one peer, got %d", table.Size())
	}
	if !table.Known(testEndpoint(2)) || table.Known(testEndpoint(3)) {
		t.Fatalf("known is wrong")
	}
}

func TestReachoutCooldown(t *testing.T) {
	table := newTestTable()

	if !table.Reachout(testEndpoint(2)) {
		t.Fatalf("first reachout should pass")
	}
	if table.Reachout(testEndpoint(2)) {
		t.Fatalf("reachout within the cooldown should be suppressed")
	}
	if table.Reachout(table.Self()) {
		t.Fatalf("reachout to self should be suppressed")
	}

	table.Insert(testEndpoint(3), 1)
	if table.Reachout(testEndpoint(3)) {
		t.Fatalf("reachout to a known peer should be suppressed")
	}
}

func TestRandomAndFanoutSets(t *testing.T) {
	table := newTestTable()
	for i := byte(2); i < 27; i++ {
		table.Insert(testEndpoint(i), 1)
	}

	set := table.RandomSet(8)
	if len(set) != 8 {
		t.Fatalf("expected 8 endpoints, got %d", len(set))
	}
	seen := make(map[Endpoint]struct{})
	for _, e := range set {
		if _, dup := seen[e]; dup {
			t.Fatalf("random set contains duplicates")
		}
		seen[e] = struct{}{}
	}

	fanout := table.FanoutSet()
	expected := 2 * int(math.Ceil(math.Sqrt(25)))
	if len(fanout) != expected {
		t.Fatalf("expected fanout %d for 25 peers, got %d", expected, len(fanout))
	}
}

func TestPurgeBoundary(t *testing.T) {
	table := newTestTable()
	table.Insert(testEndpoint(2), 1)

	dropped := table.Purge(time.Now().Add(-time.Second))
	if len(dropped) != 0 || table.Size() != 1 {
		t.Fatalf("fresh peer should survive the purge")
	}

	dropped = table.Purge(time.Now().Add(time.Second))
	if len(dropped) != 1 || table.Size() != 0 {
		t.Fatalf("stale peer should be dropped")
	}
}

func TestRepresentativeRatchet(t *testing.T) {
	table := newTestTable()
	endpoint := testEndpoint(2)
	table.Insert(endpoint, 1)

	account := raze.Account{0x01}
	heavy, _ := raze.AmountFromString("1000")
	light, _ := raze.AmountFromString("10")

	table.RepResponse(endpoint, account, heavy)
	table.RepResponse(endpoint, raze.Account{0x02}, light)

	reps := table.Representatives(10)
	if len(reps) != 1 {
		t.Fatalf("expected one representative, got %d", len(reps))
	}
	if reps[0].RepAccount != account || reps[0].RepWeight != heavy {
		t.Fatalf("lighter crawl result should not shrink a known representative")
	}
}

func TestRepCrawlOrdering(t *testing.T) {
	table := newTestTable()
	table.Insert(testEndpoint(2), 1)
	table.Insert(testEndpoint(3), 1)
	table.Insert(testEndpoint(4), 1)

	first := table.RepCrawlSet(2)
	if len(first) != 2 {
		t.Fatalf("expected 2 crawl targets, got %d", len(first))
	}

	second := table.RepCrawlSet(1)
	if len(second) != 1 {
		t.Fatalf("expected 1 crawl target")
	}
	for _, e := range first {
		if e == second[0] {
			t.Fatalf("freshly crawled peer should not be asked again before the others")
		}
	}
}

func TestBootstrapPeerRotation(t *testing.T) {
	table := newTestTable()
	if !table.BootstrapPeer().IsZero() {
		t.Fatalf("empty table should yield the zero endpoint")
	}

	table.Insert(testEndpoint(2), 1)
	table.Insert(testEndpoint(3), 1)

	first := table.BootstrapPeer()
	second := table.BootstrapPeer()
	if first == second {
		t.Fatalf("bootstrap peers should rotate")
	}
}
