package ledger

import (
	"math/big"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	cm "github.com/razeblock/raze/src/common"
	"github.com/razeblock/raze/src/crypto"
	"github.com/razeblock/raze/src/raze"
)

// Ledger applies blocks to the store and answers weight, balance and
// tally queries. All methods expect the caller's transaction.
type Ledger struct {
	store   *BadgerStore
	network *raze.Network
	logger  *logrus.Entry
}

// NewLedger wraps a store with the consensus rules of network.
func NewLedger(store *BadgerStore, network *raze.Network, logger *logrus.Entry) *Ledger {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.InfoLevel
		logger = logrus.NewEntry(log)
	}
	return &Ledger{
		store:   store,
		network: network,
		logger:  logger,
	}
}

// Store exposes the underlying store.
func (l *Ledger) Store() *BadgerStore {
	return l.store
}

// Supply returns the total amount in circulation.
func (l *Ledger) Supply() raze.Amount {
	return raze.MaxAmount()
}

// Weight returns the voting weight delegated to account.
func (l *Ledger) Weight(txn *Transaction, account raze.Account) raze.Amount {
	weight, err := l.store.RepresentationGet(txn, account)
	if err != nil {
		l.logger.WithError(err).WithField("account", account).Error("weight lookup")
		return raze.Amount{}
	}
	return weight
}

// Latest returns the head block hash of account, zero when unopened.
func (l *Ledger) Latest(txn *Transaction, account raze.Account) raze.Hash {
	info, err := l.store.AccountGet(txn, account)
	if err != nil {
		return raze.Hash{}
	}
	return info.Head
}

// Account returns the account owning the block at hash, walking the chain
// back to its open block.
func (l *Ledger) Account(txn *Transaction, hash raze.Hash) (raze.Account, error) {
	current := hash
	for {
		block, err := l.store.BlockGet(txn, current)
		if err != nil {
			return raze.Account{}, err
		}
		if open, ok := block.(*raze.OpenBlock); ok {
			return open.Hashables.Account, nil
		}
		current = block.Previous()
	}
}

// Amount returns the amount transferred by the send at hash. The genesis
// source pseudo-hash maps to the full supply.
func (l *Ledger) Amount(txn *Transaction, hash raze.Hash) (raze.Amount, error) {
	if hash == raze.Hash(l.network.GenesisAccount) {
		return raze.MaxAmount(), nil
	}
	block, err := l.store.BlockGet(txn, hash)
	if err != nil {
		return raze.Amount{}, err
	}
	send, ok := block.(*raze.SendBlock)
	if !ok {
		return raze.Amount{}, cm.NewStoreErr("Block", cm.BadValue, hash.String())
	}
	previousBalance, err := l.BalanceAt(txn, send.Hashables.Previous)
	if err != nil {
		return raze.Amount{}, err
	}
	return previousBalance.Sub(send.Hashables.Balance)
}

// BlockAmount returns the amount moved by an already settled block: the
// debit of a send, the credit of a receive or open, zero for a change.
func (l *Ledger) BlockAmount(txn *Transaction, block raze.Block) (raze.Amount, error) {
	switch b := block.(type) {
	case *raze.SendBlock:
		return l.Amount(txn, b.Hash())
	case *raze.ReceiveBlock:
		return l.Amount(txn, b.Hashables.Source)
	case *raze.OpenBlock:
		return l.Amount(txn, b.Hashables.Source)
	default:
		return raze.Amount{}, nil
	}
}

// BalanceAt returns the account balance after the block at hash.
func (l *Ledger) BalanceAt(txn *Transaction, hash raze.Hash) (raze.Amount, error) {
	acc := new(big.Int)
	current := hash
	for {
		block, err := l.store.BlockGet(txn, current)
		if err != nil {
			return raze.Amount{}, err
		}
		switch b := block.(type) {
		case *raze.SendBlock:
			return raze.AmountFromBig(new(big.Int).Add(acc, b.Hashables.Balance.Big()))
		case *raze.OpenBlock:
			amount, err := l.Amount(txn, b.Hashables.Source)
			if err != nil {
				return raze.Amount{}, err
			}
			return raze.AmountFromBig(new(big.Int).Add(acc, amount.Big()))
		case *raze.ReceiveBlock:
			amount, err := l.Amount(txn, b.Hashables.Source)
			if err != nil {
				return raze.Amount{}, err
			}
			acc.Add(acc, amount.Big())
			current = b.Hashables.Previous
		case *raze.ChangeBlock:
			current = b.Hashables.Previous
		}
	}
}

// RepresentativeAt returns the representative in force after the block at
// hash, walking back to the nearest open or change block.
func (l *Ledger) RepresentativeAt(txn *Transaction, hash raze.Hash) (raze.Account, error) {
	current := hash
	for {
		block, err := l.store.BlockGet(txn, current)
		if err != nil {
			return raze.Account{}, err
		}
		switch b := block.(type) {
		case *raze.OpenBlock:
			return b.Hashables.Representative, nil
		case *raze.ChangeBlock:
			return b.Hashables.Representative, nil
		default:
			current = b.Previous()
		}
	}
}

// Successor returns the block following root: the next block in a chain, or
// the open block when root is an unopened-side account root.
func (l *Ledger) Successor(txn *Transaction, root raze.Hash) (raze.Block, error) {
	if l.store.BlockExists(txn, root) {
		successor, err := l.store.SuccessorGet(txn, root)
		if err != nil {
			return nil, err
		}
		if successor.IsZero() {
			return nil, cm.NewStoreErr("Block", cm.KeyNotFound, root.String())
		}
		return l.store.BlockGet(txn, successor)
	}

	// root names an account; its successor is the open block
	info, err := l.store.AccountGet(txn, raze.Account(root))
	if err != nil {
		return nil, err
	}
	current := info.Head
	for {
		block, err := l.store.BlockGet(txn, current)
		if err != nil {
			return nil, err
		}
		if _, ok := block.(*raze.OpenBlock); ok {
			return block, nil
		}
		current = block.Previous()
	}
}

//==============================================================================
//Process

// Process applies one block to the ledger and returns the consensus
// outcome. Progress mutates state, and so does Old when the duplicate
// carries more work and replaces the stored copy. A non-nil error means the store
// failed and the transaction should be discarded.
func (l *Ledger) Process(txn *Transaction, block raze.Block) (ProcessResult, error) {
	processor := &ledgerProcessor{ledger: l, txn: txn}
	block.Visit(processor)
	if processor.err != nil {
		l.logger.WithError(processor.err).WithField("hash", block.Hash()).Error("process store failure")
		return processor.result, processor.err
	}
	l.logger.WithFields(logrus.Fields{
		"hash":   block.Hash(),
		"type":   block.Type(),
		"result": processor.result,
	}).Debug("process")
	return processor.result, nil
}

type ledgerProcessor struct {
	ledger *Ledger
	txn    *Transaction
	result ProcessResult
	err    error
}

// replaceOld overwrites the stored copy of a duplicate block when the
// incoming copy carries more work and its signature checks out against the
// owning account. Successor linkage survives: the stored successor of the
// block is carried over to the rewritten record.
func (p *ledgerProcessor) replaceOld(block raze.Block) {
	l, txn := p.ledger, p.txn
	hash := block.Hash()

	existing, err := l.store.BlockGet(txn, hash)
	if err != nil {
		p.fail(err)
		return
	}
	root := block.Root()
	if crypto.WorkValue(root[:], block.BlockWork()) <= crypto.WorkValue(root[:], existing.BlockWork()) {
		return
	}
	account, err := l.Account(txn, hash)
	if err != nil {
		p.fail(err)
		return
	}
	if !raze.ValidateBlockSignature(block, account) {
		return
	}
	successor, err := l.store.SuccessorGet(txn, hash)
	if err != nil {
		p.fail(err)
		return
	}
	if err := l.store.BlockPut(txn, block); err != nil {
		p.fail(err)
		return
	}
	if !successor.IsZero() {
		if err := l.store.successorSet(txn, hash, successor); err != nil {
			p.fail(err)
			return
		}
	}
	l.logger.WithFields(logrus.Fields{
		"hash": hash,
		"work": block.BlockWork(),
	}).Debug("stored work replaced")
}

func (p *ledgerProcessor) SendBlock(block *raze.SendBlock) {
	l, txn := p.ledger, p.txn
	hash := block.Hash()

	if l.store.BlockExists(txn, hash) {
		p.result = Old
		p.replaceOld(block)
		return
	}
	account, err := l.store.FrontierGet(txn, block.Hashables.Previous)
	if err != nil {
		if l.store.BlockExists(txn, block.Hashables.Previous) {
			p.result = Fork
		} else {
			p.result = GapPrevious
		}
		return
	}
	if !raze.ValidateBlockSignature(block, account) {
		p.result = BadSignature
		return
	}
	info, err := l.store.AccountGet(txn, account)
	if err != nil {
		p.fail(err)
		return
	}
	amount, err := info.Balance.Sub(block.Hashables.Balance)
	if err != nil {
		p.result = NegativeSpend
		return
	}

	if err := l.store.BlockPut(txn, block); err != nil {
		p.fail(err)
		return
	}
	if err := l.store.RepresentationSub(txn, info.Representative, amount); err != nil {
		p.fail(err)
		return
	}
	if err := l.store.PendingPut(txn, hash, &PendingInfo{
		Source:      account,
		Amount:      amount,
		Destination: block.Hashables.Destination,
	}); err != nil {
		p.fail(err)
		return
	}
	if err := p.advanceFrontier(account, info, block.Hashables.Previous, hash, block.Hashables.Balance, info.Representative); err != nil {
		p.fail(err)
		return
	}
	p.result = Progress
}

func (p *ledgerProcessor) ReceiveBlock(block *raze.ReceiveBlock) {
	l, txn := p.ledger, p.txn
	hash := block.Hash()

	if l.store.BlockExists(txn, hash) {
		p.result = Old
		p.replaceOld(block)
		return
	}
	if !l.store.BlockExists(txn, block.Hashables.Source) {
		p.result = GapSource
		return
	}
	account, err := l.store.FrontierGet(txn, block.Hashables.Previous)
	if err != nil {
		if l.store.BlockExists(txn, block.Hashables.Previous) {
			p.result = Fork
		} else {
			p.result = GapPrevious
		}
		return
	}
	if !raze.ValidateBlockSignature(block, account) {
		p.result = BadSignature
		return
	}
	source, err := l.store.BlockGet(txn, block.Hashables.Source)
	if err != nil {
		p.fail(err)
		return
	}
	if _, ok := source.(*raze.SendBlock); !ok {
		p.result = NotReceiveFromSend
		return
	}
	pending, err := l.store.PendingGet(txn, block.Hashables.Source)
	if err != nil {
		p.result = Unreceivable
		return
	}
	if pending.Destination != account {
		p.result = AccountMismatch
		return
	}
	info, err := l.store.AccountGet(txn, account)
	if err != nil {
		p.fail(err)
		return
	}
	balance, err := info.Balance.Add(pending.Amount)
	if err != nil {
		p.fail(err)
		return
	}

	if err := l.store.BlockPut(txn, block); err != nil {
		p.fail(err)
		return
	}
	if err := l.store.PendingDel(txn, block.Hashables.Source); err != nil {
		p.fail(err)
		return
	}
	if err := l.store.RepresentationAdd(txn, info.Representative, pending.Amount); err != nil {
		p.fail(err)
		return
	}
	if err := p.advanceFrontier(account, info, block.Hashables.Previous, hash, balance, info.Representative); err != nil {
		p.fail(err)
		return
	}
	p.result = Progress
}

func (p *ledgerProcessor) OpenBlock(block *raze.OpenBlock) {
	l, txn := p.ledger, p.txn
	hash := block.Hash()
	account := block.Hashables.Account

	if l.store.BlockExists(txn, hash) {
		p.result = Old
		p.replaceOld(block)
		return
	}
	if !l.store.BlockExists(txn, block.Hashables.Source) {
		p.result = GapSource
		return
	}
	if !raze.ValidateBlockSignature(block, account) {
		p.result = BadSignature
		return
	}
	if _, err := l.store.AccountGet(txn, account); err == nil {
		p.result = Fork
		return
	}
	source, err := l.store.BlockGet(txn, block.Hashables.Source)
	if err != nil {
		p.fail(err)
		return
	}
	if _, ok := source.(*raze.SendBlock); !ok {
		p.result = NotReceiveFromSend
		return
	}
	pending, err := l.store.PendingGet(txn, block.Hashables.Source)
	if err != nil {
		p.result = Unreceivable
		return
	}
	if pending.Destination != account {
		p.result = AccountMismatch
		return
	}
	if account.IsZero() {
		p.result = OpenedBurnAccount
		return
	}

	if err := l.store.BlockPut(txn, block); err != nil {
		p.fail(err)
		return
	}
	if err := l.store.PendingDel(txn, block.Hashables.Source); err != nil {
		p.fail(err)
		return
	}
	if err := l.store.RepresentationAdd(txn, block.Hashables.Representative, pending.Amount); err != nil {
		p.fail(err)
		return
	}
	if err := l.store.AccountPut(txn, account, &AccountInfo{
		Head:           hash,
		Representative: block.Hashables.Representative,
		Balance:        pending.Amount,
		Modified:       uint64(time.Now().Unix()),
	}); err != nil {
		p.fail(err)
		return
	}
	if err := l.store.FrontierPut(txn, hash, account); err != nil {
		p.fail(err)
		return
	}
	if err := l.store.ChecksumUpdate(txn, hash); err != nil {
		p.fail(err)
		return
	}
	p.result = Progress
}

func (p *ledgerProcessor) ChangeBlock(block *raze.ChangeBlock) {
	l, txn := p.ledger, p.txn
	hash := block.Hash()

	if l.store.BlockExists(txn, hash) {
		p.result = Old
		p.replaceOld(block)
		return
	}
	account, err := l.store.FrontierGet(txn, block.Hashables.Previous)
	if err != nil {
		if l.store.BlockExists(txn, block.Hashables.Previous) {
			p.result = Fork
		} else {
			p.result = GapPrevious
		}
		return
	}
	if !raze.ValidateBlockSignature(block, account) {
		p.result = BadSignature
		return
	}
	info, err := l.store.AccountGet(txn, account)
	if err != nil {
		p.fail(err)
		return
	}

	if err := l.store.BlockPut(txn, block); err != nil {
		p.fail(err)
		return
	}
	if err := l.store.RepresentationSub(txn, info.Representative, info.Balance); err != nil {
		p.fail(err)
		return
	}
	if err := l.store.RepresentationAdd(txn, block.Hashables.Representative, info.Balance); err != nil {
		p.fail(err)
		return
	}
	if err := p.advanceFrontier(account, info, block.Hashables.Previous, hash, info.Balance, block.Hashables.Representative); err != nil {
		p.fail(err)
		return
	}
	p.result = Progress
}

func (p *ledgerProcessor) advanceFrontier(account raze.Account, info *AccountInfo, previous, hash raze.Hash, balance raze.Amount, representative raze.Account) error {
	l, txn := p.ledger, p.txn

	info.Head = hash
	info.Balance = balance
	info.Representative = representative
	info.Modified = uint64(time.Now().Unix())
	if err := l.store.AccountPut(txn, account, info); err != nil {
		return err
	}
	if err := l.store.FrontierDel(txn, previous); err != nil {
		return err
	}
	if err := l.store.FrontierPut(txn, hash, account); err != nil {
		return err
	}
	if err := l.store.ChecksumUpdate(txn, previous); err != nil {
		return err
	}
	return l.store.ChecksumUpdate(txn, hash)
}

func (p *ledgerProcessor) fail(err error) {
	p.err = err
}

//==============================================================================
//Rollback

// Rollback removes the block at target and everything settled after it on
// its chain, re-opening pending entries and returning delegated weight.
// Dependent receives on other chains are rolled back first.
func (l *Ledger) Rollback(txn *Transaction, target raze.Hash) error {
	account, err := l.Account(txn, target)
	if err != nil {
		return err
	}
	for l.store.BlockExists(txn, target) {
		info, err := l.store.AccountGet(txn, account)
		if err != nil {
			return err
		}
		head, err := l.store.BlockGet(txn, info.Head)
		if err != nil {
			return err
		}
		rollbacker := &ledgerRollbacker{ledger: l, txn: txn}
		head.Visit(rollbacker)
		if rollbacker.err != nil {
			return rollbacker.err
		}
	}
	return nil
}

type ledgerRollbacker struct {
	ledger *Ledger
	txn    *Transaction
	err    error
}

func (r *ledgerRollbacker) SendBlock(block *raze.SendBlock) {
	l, txn := r.ledger, r.txn
	hash := block.Hash()

	// the send may already be received; undo dependent receives first
	var pending *PendingInfo
	for {
		var err error
		pending, err = l.store.PendingGet(txn, hash)
		if err == nil {
			break
		}
		destInfo, err := l.store.AccountGet(txn, block.Hashables.Destination)
		if err != nil {
			r.err = err
			return
		}
		if err := l.Rollback(txn, destInfo.Head); err != nil {
			r.err = err
			return
		}
	}

	account := pending.Source
	info, err := l.store.AccountGet(txn, account)
	if err != nil {
		r.err = err
		return
	}
	balance, err := info.Balance.Add(pending.Amount)
	if err != nil {
		r.err = err
		return
	}
	if err := l.store.PendingDel(txn, hash); err != nil {
		r.err = err
		return
	}
	if err := l.store.RepresentationAdd(txn, info.Representative, pending.Amount); err != nil {
		r.err = err
		return
	}
	r.err = r.retreatFrontier(account, info, hash, block.Hashables.Previous, balance, info.Representative)
}

func (r *ledgerRollbacker) ReceiveBlock(block *raze.ReceiveBlock) {
	l, txn := r.ledger, r.txn
	hash := block.Hash()

	account, err := l.store.FrontierGet(txn, hash)
	if err != nil {
		r.err = err
		return
	}
	amount, err := l.Amount(txn, block.Hashables.Source)
	if err != nil {
		r.err = err
		return
	}
	sourceAccount, err := l.Account(txn, block.Hashables.Source)
	if err != nil {
		r.err = err
		return
	}
	info, err := l.store.AccountGet(txn, account)
	if err != nil {
		r.err = err
		return
	}
	balance, err := info.Balance.Sub(amount)
	if err != nil {
		r.err = err
		return
	}
	if err := l.store.RepresentationSub(txn, info.Representative, amount); err != nil {
		r.err = err
		return
	}
	if err := l.store.PendingPut(txn, block.Hashables.Source, &PendingInfo{
		Source:      sourceAccount,
		Amount:      amount,
		Destination: account,
	}); err != nil {
		r.err = err
		return
	}
	r.err = r.retreatFrontier(account, info, hash, block.Hashables.Previous, balance, info.Representative)
}

func (r *ledgerRollbacker) OpenBlock(block *raze.OpenBlock) {
	l, txn := r.ledger, r.txn
	hash := block.Hash()
	account := block.Hashables.Account

	amount, err := l.Amount(txn, block.Hashables.Source)
	if err != nil {
		r.err = err
		return
	}
	sourceAccount, err := l.Account(txn, block.Hashables.Source)
	if err != nil {
		r.err = err
		return
	}
	if err := l.store.RepresentationSub(txn, block.Hashables.Representative, amount); err != nil {
		r.err = err
		return
	}
	if err := l.store.PendingPut(txn, block.Hashables.Source, &PendingInfo{
		Source:      sourceAccount,
		Amount:      amount,
		Destination: account,
	}); err != nil {
		r.err = err
		return
	}
	if err := l.store.AccountDel(txn, account); err != nil {
		r.err = err
		return
	}
	if err := l.store.FrontierDel(txn, hash); err != nil {
		r.err = err
		return
	}
	if err := l.store.ChecksumUpdate(txn, hash); err != nil {
		r.err = err
		return
	}
	r.err = l.store.BlockDel(txn, hash)
}

func (r *ledgerRollbacker) ChangeBlock(block *raze.ChangeBlock) {
	l, txn := r.ledger, r.txn
	hash := block.Hash()

	account, err := l.store.FrontierGet(txn, hash)
	if err != nil {
		r.err = err
		return
	}
	info, err := l.store.AccountGet(txn, account)
	if err != nil {
		r.err = err
		return
	}
	previousRep, err := l.RepresentativeAt(txn, block.Hashables.Previous)
	if err != nil {
		r.err = err
		return
	}
	if err := l.store.RepresentationSub(txn, block.Hashables.Representative, info.Balance); err != nil {
		r.err = err
		return
	}
	if err := l.store.RepresentationAdd(txn, previousRep, info.Balance); err != nil {
		r.err = err
		return
	}
	r.err = r.retreatFrontier(account, info, hash, block.Hashables.Previous, info.Balance, previousRep)
}

func (r *ledgerRollbacker) retreatFrontier(account raze.Account, info *AccountInfo, hash, previous raze.Hash, balance raze.Amount, representative raze.Account) error {
	l, txn := r.ledger, r.txn

	info.Head = previous
	info.Balance = balance
	info.Representative = representative
	info.Modified = uint64(time.Now().Unix())
	if err := l.store.AccountPut(txn, account, info); err != nil {
		return err
	}
	if err := l.store.FrontierDel(txn, hash); err != nil {
		return err
	}
	if err := l.store.FrontierPut(txn, previous, account); err != nil {
		return err
	}
	if err := l.store.ChecksumUpdate(txn, hash); err != nil {
		return err
	}
	if err := l.store.ChecksumUpdate(txn, previous); err != nil {
		return err
	}
	return l.store.BlockDel(txn, hash)
}

//==============================================================================
//Votes

// TallyItem is one contender in a vote tally.
type TallyItem struct {
	Block  raze.Block
	Weight *big.Int
}

// Tally sums the representative weight behind each distinct block in votes.
func (l *Ledger) Tally(txn *Transaction, votes map[raze.Account]*raze.Vote) map[raze.Hash]*TallyItem {
	totals := make(map[raze.Hash]*TallyItem)
	for account, vote := range votes {
		hash := vote.Block.Hash()
		item, ok := totals[hash]
		if !ok {
			item = &TallyItem{Block: vote.Block, Weight: new(big.Int)}
			totals[hash] = item
		}
		weight := l.Weight(txn, account)
		item.Weight.Add(item.Weight, weight.Big())
	}
	return totals
}

// Winner returns the block with the most weight behind it, breaking ties by
// hash so every node resolves the same way.
func (l *Ledger) Winner(txn *Transaction, votes map[raze.Account]*raze.Vote) (raze.Block, *big.Int) {
	totals := l.Tally(txn, votes)
	if len(totals) == 0 {
		return nil, new(big.Int)
	}

	hashes := make([]raze.Hash, 0, len(totals))
	for hash := range totals {
		hashes = append(hashes, hash)
	}
	sort.Slice(hashes, func(i, j int) bool {
		cmp := totals[hashes[i]].Weight.Cmp(totals[hashes[j]].Weight)
		if cmp != 0 {
			return cmp > 0
		}
		return string(hashes[i][:]) < string(hashes[j][:])
	})

	winner := totals[hashes[0]]
	return winner.Block, winner.Weight
}

// VoteValidate checks an incoming vote's signature and sequence, recording
// it when it supersedes the stored one.
func (l *Ledger) VoteValidate(txn *Transaction, vote *raze.Vote) VoteResult {
	if !vote.Validate() {
		return VoteInvalid
	}
	record, err := l.store.VoteGet(txn, vote.Account)
	if err == nil && vote.Sequence <= record.Sequence {
		return VoteReplay
	}
	if err := l.store.VotePut(txn, vote.Account, &VoteRecord{
		Sequence:  vote.Sequence,
		BlockHash: vote.Block.Hash(),
	}); err != nil {
		l.logger.WithError(err).Error("vote record put")
	}
	return VoteValid
}

// VoteGenerate signs a fresh vote for block with the next sequence number.
func (l *Ledger) VoteGenerate(txn *Transaction, key *crypto.KeyPair, block raze.Block) (*raze.Vote, error) {
	account := raze.AccountFromKey(key)
	sequence := uint64(0)
	if record, err := l.store.VoteGet(txn, account); err == nil {
		sequence = record.Sequence
	}
	vote := raze.NewVote(key, sequence+1, block)
	if err := l.store.VotePut(txn, account, &VoteRecord{
		Sequence:  vote.Sequence,
		BlockHash: block.Hash(),
	}); err != nil {
		return nil, err
	}
	return vote, nil
}
