package raze

import "testing"

func TestVoteValidate(t *testing.T) {
	key := testKey(t, 5)
	account := AccountFromKey(key)
	balance, _ := AmountFromString("10")
	block := NewSendBlock(Hash{1}, account, balance, key, 0)

	vote := NewVote(key, 3, block)
	if vote.Account != account {
		t.Fatalf("vote account mismatch")
	}
	if !vote.Validate() {
		t.Fatalf("freshly signed vote should validate")
	}

	tampered := *vote
	tampered.Sequence = 4
	if tampered.Validate() {
		t.Fatalf("vote with altered sequence should not validate")
	}
}

func TestVoteDigestDependsOnSequence(t *testing.T) {
	key := testKey(t, 6)
	balance, _ := AmountFromString("10")
	block := NewSendBlock(Hash{1}, AccountFromKey(key), balance, key, 0)

	a := NewVote(key, 1, block)
	b := NewVote(key, 2, block)
	if a.Digest() == b.Digest() {
		t.Fatalf("digest must change with the sequence")
	}
}
