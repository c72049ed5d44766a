package node

import (
	"math/big"
	"testing"
	"time"

	"github.com/razeblock/raze/src/crypto"
	"github.com/razeblock/raze/src/raze"
)

func gapBlock(t *testing.T, seed byte) raze.Block {
	t.Helper()
	raw := make([]byte, 32)
	raw[0] = seed
	key, err := crypto.KeyPairFromSeed(raw)
	if err != nil {
		t.Fatal(err)
	}
	balance, err := raze.AmountFromString("100")
	if err != nil {
		t.Fatal(err)
	}
	return raze.NewSendBlock(raze.Hash{seed}, raze.AccountFromKey(key), balance, key, 0)
}

func TestGapTake(t *testing.T) {
	gap := NewGapCache(big.NewInt(1000))

	required := raze.Hash{0xaa}
	first := gapBlock(t, 1)
	second := gapBlock(t, 2)
	gap.Add(required, first)
	gap.Add(required, second)
	gap.Add(raze.Hash{0xbb}, gapBlock(t, 3))

	if gap.Size() != 3 {
		t.Fatalf("expected 3 entries, got %d", gap.Size())
	}

	taken := gap.Take(required)
	if len(taken) != 2 {
		t.Fatalf("expected 2 blocks waiting on the dependency, got %d", len(taken))
	}
	if gap.Size() != 1 {
		t.Fatalf("taken entries should leave the cache")
	}
	if len(gap.Take(required)) != 0 {
		t.Fatalf("second take should find nothing")
	}
}

func TestGapVoteThresholdOnce(t *testing.T) {
	gap := NewGapCache(big.NewInt(1000))

	block := gapBlock(t, 1)
	gap.Add(raze.Hash{0xaa}, block)

	light, err := raze.AmountFromString("600")
	if err != nil {
		t.Fatal(err)
	}

	if gap.Vote(raze.Account{0x01}, light, raze.Hash{0xff}) {
		t.Fatalf("a vote on an unknown hash should not trigger")
	}
	if gap.Vote(raze.Account{0x01}, light, block.Hash()) {
		t.Fatalf("600 of 1000 should not cross the threshold")
	}
	if gap.Vote(raze.Account{0x01}, light, block.Hash()) {
		t.Fatalf("the same account must not be counted twice")
	}
	if !gap.Vote(raze.Account{0x02}, light, block.Hash()) {
		t.Fatalf("a second account should push the tally across")
	}
	if gap.Vote(raze.Account{0x03}, light, block.Hash()) {
		t.Fatalf("crossing the threshold should only report once")
	}
}

func TestGapPurge(t *testing.T) {
	gap := NewGapCache(big.NewInt(1000))

	gap.Add(raze.Hash{0xaa}, gapBlock(t, 1))
	gap.Purge(time.Hour)
	if gap.Size() != 1 {
		t.Fatalf("fresh entry should survive the purge")
	}

	gap.Purge(0)
	if gap.Size() != 0 {
		t.Fatalf("aged entry should be dropped")
	}
}

func TestGapCapacity(t *testing.T) {
	gap := NewGapCache(big.NewInt(1000))

	raw := make([]byte, 32)
	raw[0] = 0x7f
	key, err := crypto.KeyPairFromSeed(raw)
	if err != nil {
		t.Fatal(err)
	}
	balance, err := raze.AmountFromString("100")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < gapCapacity+10; i++ {
		previous := raze.Hash{byte(i), byte(i >> 8), 0xcc}
		block := raze.NewSendBlock(previous, raze.AccountFromKey(key), balance, key, 0)
		gap.Add(raze.Hash{byte(i), byte(i >> 8)}, block)
	}
	if gap.Size() != gapCapacity {
		t.Fatalf("cache should cap at %d entries, got %d", gapCapacity, gap.Size())
	}
}
