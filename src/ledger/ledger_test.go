package ledger

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/razeblock/raze/src/common"
	"github.com/razeblock/raze/src/crypto"
	"github.com/razeblock/raze/src/raze"
)

func initLedger(t *testing.T) (*BadgerStore, *Ledger, *raze.Network) {
	t.Helper()

	dir, err := ioutil.TempDir("", "ledger")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	network := raze.TestNetwork()
	store, err := NewBadgerStore(dir, network)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	l := NewLedger(store, network, common.NewTestEntry(t, "ledger"))
	return store, l, network
}

func ledgerKey(t *testing.T, seed byte) *crypto.KeyPair {
	t.Helper()
	raw := make([]byte, 32)
	raw[0] = seed
	raw[31] = 0x77
	key, err := crypto.KeyPairFromSeed(raw)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func mustProcess(t *testing.T, l *Ledger, txn *Transaction, block raze.Block, expected ProcessResult) {
	t.Helper()
	result, err := l.Process(txn, block)
	if err != nil {
		t.Fatal(err)
	}
	if result != expected {
		t.Fatalf("expected %s, got %s", expected, result)
	}
}

func TestGenesisInitialization(t *testing.T) {
	store, l, network := initLedger(t)

	txn := store.Begin(false)
	defer txn.Discard()

	genesisHash := network.Genesis.Hash()
	if !store.BlockExists(txn, genesisHash) {
		t.Fatalf("genesis block missing")
	}

	info, err := store.AccountGet(txn, network.GenesisAccount)
	if err != nil {
		t.Fatal(err)
	}
	if info.Head != genesisHash {
		t.Fatalf("genesis head mismatch")
	}
	if info.Balance != raze.MaxAmount() {
		t.Fatalf("genesis should hold the entire supply")
	}

	account, err := store.FrontierGet(txn, genesisHash)
	if err != nil {
		t.Fatal(err)
	}
	if account != network.GenesisAccount {
		t.Fatalf("frontier does not map to the genesis account")
	}

	weight := l.Weight(txn, network.GenesisAccount)
	if weight != raze.MaxAmount() {
		t.Fatalf("genesis representative should carry the entire supply")
	}
}

func TestProcessSendOpenReceive(t *testing.T) {
	store, l, network := initLedger(t)
	genesisKey := raze.TestGenesisKey()
	destKey := ledgerKey(t, 1)
	dest := raze.AccountFromKey(destKey)

	txn := store.Begin(true)
	defer txn.Discard()

	// Genesis sends 1000 raw, keeping the remainder.
	remainder, err := raze.MaxAmount().Sub(amount(t, "1000"))
	if err != nil {
		t.Fatal(err)
	}
	send := raze.NewSendBlock(network.Genesis.Hash(), dest, remainder, genesisKey, 0)
	mustProcess(t, l, txn, send, Progress)
	mustProcess(t, l, txn, send, Old)

	pending, err := store.PendingGet(txn, send.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if pending.Destination != dest || pending.Amount != amount(t, "1000") {
		t.Fatalf("pending entry is wrong: %+v", pending)
	}

	// Destination opens with itself as representative.
	open := raze.NewOpenBlock(send.Hash(), dest, dest, destKey, 0)
	mustProcess(t, l, txn, open, Progress)

	if _, err := store.PendingGet(txn, send.Hash()); err == nil {
		t.Fatalf("pending entry should be consumed")
	}
	if l.Weight(txn, dest) != amount(t, "1000") {
		t.Fatalf("weight did not move to the new representative")
	}

	// Second send and a receive on the opened chain.
	remainder2, err := remainder.Sub(amount(t, "500"))
	if err != nil {
		t.Fatal(err)
	}
	send2 := raze.NewSendBlock(send.Hash(), dest, remainder2, genesisKey, 0)
	mustProcess(t, l, txn, send2, Progress)

	receive := raze.NewReceiveBlock(open.Hash(), send2.Hash(), destKey, 0)
	mustProcess(t, l, txn, receive, Progress)

	balance, err := l.BalanceAt(txn, receive.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if balance != amount(t, "1500") {
		t.Fatalf("expected balance 1500, got %s", balance)
	}
	if l.Latest(txn, dest) != receive.Hash() {
		t.Fatalf("frontier did not advance to the receive")
	}
}

func TestProcessRejections(t *testing.T) {
	store, l, network := initLedger(t)
	genesisKey := raze.TestGenesisKey()
	destKey := ledgerKey(t, 2)
	otherKey := ledgerKey(t, 3)
	dest := raze.AccountFromKey(destKey)

	txn := store.Begin(true)
	defer txn.Discard()

	// Unknown previous.
	ghost := raze.NewSendBlock(raze.Hash{0xaa}, dest, amount(t, "1"), genesisKey, 0)
	mustProcess(t, l, txn, ghost, GapPrevious)

	// Signed by the wrong key.
	forged := raze.NewSendBlock(network.Genesis.Hash(), dest, amount(t, "1"), otherKey, 0)
	mustProcess(t, l, txn, forged, BadSignature)

	// Spending more than the balance. A send's balance field is the
	// remainder, so a remainder above the current balance is a negative
	// spend.
	remainder := raze.MaxAmount()
	send := raze.NewSendBlock(network.Genesis.Hash(), dest, amount(t, "1000"), genesisKey, 0)
	mustProcess(t, l, txn, send, Progress)

	overdraw := raze.NewSendBlock(send.Hash(), dest, remainder, genesisKey, 0)
	mustProcess(t, l, txn, overdraw, NegativeSpend)

	// Competing block on a spent frontier.
	fork := raze.NewSendBlock(network.Genesis.Hash(), raze.AccountFromKey(otherKey), amount(t, "42"), genesisKey, 0)
	mustProcess(t, l, txn, fork, Fork)

	// Receive before open.
	receive := raze.NewReceiveBlock(raze.Hash{0xbb}, send.Hash(), destKey, 0)
	mustProcess(t, l, txn, receive, GapPrevious)

	// Open whose account is not the send destination.
	mismatched := raze.NewOpenBlock(send.Hash(), raze.AccountFromKey(otherKey), raze.AccountFromKey(otherKey), otherKey, 0)
	mustProcess(t, l, txn, mismatched, AccountMismatch)

	open := raze.NewOpenBlock(send.Hash(), dest, dest, destKey, 0)
	mustProcess(t, l, txn, open, Progress)

	// A second open for an opened account is a fork on the account root.
	reopen := raze.NewOpenBlock(open.Hash(), dest, dest, destKey, 0)
	mustProcess(t, l, txn, reopen, Fork)

	// Open pointed at a non-send source.
	freshKey := ledgerKey(t, 8)
	fresh := raze.AccountFromKey(freshKey)
	notSend := raze.NewOpenBlock(open.Hash(), fresh, fresh, freshKey, 0)
	mustProcess(t, l, txn, notSend, NotReceiveFromSend)

	// Receiving an already received send.
	again := raze.NewReceiveBlock(open.Hash(), send.Hash(), destKey, 0)
	mustProcess(t, l, txn, again, Unreceivable)
}

func TestProcessChangeRepresentative(t *testing.T) {
	store, l, network := initLedger(t)
	genesisKey := raze.TestGenesisKey()
	repKey := ledgerKey(t, 4)
	rep := raze.AccountFromKey(repKey)

	txn := store.Begin(true)
	defer txn.Discard()

	change := raze.NewChangeBlock(network.Genesis.Hash(), rep, genesisKey, 0)
	mustProcess(t, l, txn, change, Progress)

	if l.Weight(txn, rep) != raze.MaxAmount() {
		t.Fatalf("entire supply should follow the new representative")
	}
	if !l.Weight(txn, network.GenesisAccount).IsZero() {
		t.Fatalf("old representative should be drained")
	}

	rep2, err := l.RepresentativeAt(txn, change.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if rep2 != rep {
		t.Fatalf("representative walk disagrees")
	}
}

func TestRollback(t *testing.T) {
	store, l, network := initLedger(t)
	genesisKey := raze.TestGenesisKey()
	destKey := ledgerKey(t, 5)
	dest := raze.AccountFromKey(destKey)

	txn := store.Begin(true)
	defer txn.Discard()

	remainder, _ := raze.MaxAmount().Sub(amount(t, "1000"))
	send := raze.NewSendBlock(network.Genesis.Hash(), dest, remainder, genesisKey, 0)
	mustProcess(t, l, txn, send, Progress)
	open := raze.NewOpenBlock(send.Hash(), dest, dest, destKey, 0)
	mustProcess(t, l, txn, open, Progress)

	// Rolling back the send also unwinds the open that received it.
	if err := l.Rollback(txn, send.Hash()); err != nil {
		t.Fatal(err)
	}

	if store.BlockExists(txn, send.Hash()) || store.BlockExists(txn, open.Hash()) {
		t.Fatalf("rolled back blocks should be gone")
	}
	if l.Latest(txn, network.GenesisAccount) != network.Genesis.Hash() {
		t.Fatalf("genesis frontier should be restored")
	}
	if _, err := store.AccountGet(txn, dest); err == nil {
		t.Fatalf("destination account should be gone")
	}
	if l.Weight(txn, network.GenesisAccount) != raze.MaxAmount() {
		t.Fatalf("weight should be restored to genesis")
	}
}

func TestTallyAndWinner(t *testing.T) {
	store, l, network := initLedger(t)
	genesisKey := raze.TestGenesisKey()
	aKey := ledgerKey(t, 6)
	bKey := ledgerKey(t, 7)

	txn := store.Begin(true)
	defer txn.Discard()

	remainder, _ := raze.MaxAmount().Sub(amount(t, "1000"))
	sendA := raze.NewSendBlock(network.Genesis.Hash(), raze.AccountFromKey(aKey), remainder, genesisKey, 0)
	sendB := raze.NewSendBlock(network.Genesis.Hash(), raze.AccountFromKey(bKey), remainder, genesisKey, 0)

	votes := map[raze.Account]*raze.Vote{
		network.GenesisAccount:    raze.NewVote(genesisKey, 1, sendA),
		raze.AccountFromKey(aKey): raze.NewVote(aKey, 1, sendB),
	}

	tally := l.Tally(txn, votes)
	if len(tally) != 2 {
		t.Fatalf("expected two tally entries, got %d", len(tally))
	}

	winner, weight := l.Winner(txn, votes)
	if winner.Hash() != sendA.Hash() {
		t.Fatalf("the full-weight vote should pick the winner")
	}
	if weight.Cmp(raze.MaxAmount().Big()) != 0 {
		t.Fatalf("winner weight should be the genesis weight")
	}
}

func TestVoteValidateSequences(t *testing.T) {
	store, l, network := initLedger(t)
	genesisKey := raze.TestGenesisKey()

	txn := store.Begin(true)
	defer txn.Discard()

	remainder, _ := raze.MaxAmount().Sub(amount(t, "1"))
	send := raze.NewSendBlock(network.Genesis.Hash(), network.GenesisAccount, remainder, genesisKey, 0)

	if result := l.VoteValidate(txn, raze.NewVote(genesisKey, 2, send)); result != VoteValid {
		t.Fatalf("expected valid, got %d", result)
	}
	if result := l.VoteValidate(txn, raze.NewVote(genesisKey, 2, send)); result != VoteReplay {
		t.Fatalf("same sequence should replay")
	}
	if result := l.VoteValidate(txn, raze.NewVote(genesisKey, 1, send)); result != VoteReplay {
		t.Fatalf("lower sequence should replay")
	}
	if result := l.VoteValidate(txn, raze.NewVote(genesisKey, 3, send)); result != VoteValid {
		t.Fatalf("higher sequence should be valid")
	}

	bad := raze.NewVote(genesisKey, 4, send)
	bad.Signature[0] ^= 0xff
	if result := l.VoteValidate(txn, bad); result != VoteInvalid {
		t.Fatalf("corrupted vote should be invalid")
	}

	vote, err := l.VoteGenerate(txn, genesisKey, send)
	if err != nil {
		t.Fatal(err)
	}
	if vote.Sequence != 4 {
		t.Fatalf("generated vote should extend the stored sequence, got %d", vote.Sequence)
	}
}

func TestOldBlockWorkReplacement(t *testing.T) {
	store, l, network := initLedger(t)
	genesisKey := raze.TestGenesisKey()
	destKey := ledgerKey(t, 1)
	dest := raze.AccountFromKey(destKey)

	txn := store.Begin(true)
	defer txn.Discard()

	root := network.Genesis.Hash()
	weak, strong := uint64(1), uint64(2)
	if crypto.WorkValue(root[:], weak) > crypto.WorkValue(root[:], strong) {
		weak, strong = strong, weak
	}
	stronger := strong + 1
	for crypto.WorkValue(root[:], stronger) <= crypto.WorkValue(root[:], strong) {
		stronger++
	}

	remainder, err := raze.MaxAmount().Sub(amount(t, "1000"))
	if err != nil {
		t.Fatal(err)
	}
	send := raze.NewSendBlock(root, dest, remainder, genesisKey, weak)
	mustProcess(t, l, txn, send, Progress)

	// a duplicate with more work replaces the stored copy
	replacement := raze.NewSendBlock(root, dest, remainder, genesisKey, strong)
	mustProcess(t, l, txn, replacement, Old)
	stored, err := store.BlockGet(txn, send.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if stored.BlockWork() != strong {
		t.Fatalf("stronger work should replace the stored block, got %d", stored.BlockWork())
	}

	// a duplicate with less work leaves it alone
	mustProcess(t, l, txn, send, Old)
	stored, err = store.BlockGet(txn, send.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if stored.BlockWork() != strong {
		t.Fatalf("weaker work must not replace the stored block")
	}

	// more work alone is not enough, the signature has to check out
	forged := raze.NewSendBlock(root, dest, remainder, genesisKey, stronger)
	forged.SetBlockSignature(raze.Signature{})
	mustProcess(t, l, txn, forged, Old)
	stored, err = store.BlockGet(txn, send.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if stored.BlockWork() != strong {
		t.Fatalf("an unsigned duplicate must not replace the stored block")
	}
}

func amount(t *testing.T, s string) raze.Amount {
	t.Helper()
	a, err := raze.AmountFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return a
}
