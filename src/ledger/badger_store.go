package ledger

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger"

	cm "github.com/razeblock/raze/src/common"
	"github.com/razeblock/raze/src/raze"
)

const (
	blockPrefix     = "block"
	frontierPrefix  = "frontier"
	accountPrefix   = "account"
	repPrefix       = "rep"
	pendingPrefix   = "pending"
	uncheckedPrefix = "unchecked"
	votePrefix      = "vote"
	checksumKey     = "meta_checksum"
	genesisKey      = "meta_genesis"
)

// BadgerStore persists the ledger tables in a badger database: blocks with
// successor linkage, account frontiers, representation weights, pending
// entries, unchecked dependents and vote records.
type BadgerStore struct {
	db   *badger.DB
	path string
}

// Transaction wraps a badger transaction. The block processor holds one
// update transaction across a whole queue drain.
type Transaction struct {
	txn *badger.Txn
}

// Commit flushes the transaction.
func (t *Transaction) Commit() error {
	return t.txn.Commit()
}

// Discard drops the transaction without writing.
func (t *Transaction) Discard() {
	t.txn.Discard()
}

// NewBadgerStore opens, or creates, the database at path and writes the
// network's genesis state on first open.
func NewBadgerStore(path string, network *raze.Network) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false
	opts.Logger = nil
	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	store := &BadgerStore{
		db:   handle,
		path: path,
	}
	if err := store.initGenesis(network); err != nil {
		handle.Close()
		return nil, err
	}
	return store, nil
}

// Begin opens a transaction. update selects read-write.
func (s *BadgerStore) Begin(update bool) *Transaction {
	return &Transaction{txn: s.db.NewTransaction(update)}
}

// Close releases the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Flush forces value log garbage collection and an LSM sync.
func (s *BadgerStore) Flush() error {
	if err := s.db.Sync(); err != nil {
		return err
	}
	err := s.db.RunValueLogGC(0.5)
	if err == badger.ErrNoRewrite {
		return nil
	}
	return err
}

// StorePath returns the database directory.
func (s *BadgerStore) StorePath() string {
	return s.path
}

func (s *BadgerStore) initGenesis(network *raze.Network) error {
	txn := s.Begin(true)
	defer txn.Discard()

	if _, err := txn.get([]byte(genesisKey)); err == nil {
		return nil
	} else if !isDBKeyNotFound(err) {
		return err
	}

	genesis := network.Genesis
	hash := genesis.Hash()

	if err := s.BlockPut(txn, genesis); err != nil {
		return err
	}
	info := &AccountInfo{
		Head:           hash,
		Representative: genesis.Hashables.Representative,
		Balance:        raze.MaxAmount(),
		Modified:       uint64(time.Now().Unix()),
	}
	if err := s.AccountPut(txn, network.GenesisAccount, info); err != nil {
		return err
	}
	if err := s.FrontierPut(txn, hash, network.GenesisAccount); err != nil {
		return err
	}
	if err := s.RepresentationAdd(txn, genesis.Hashables.Representative, raze.MaxAmount()); err != nil {
		return err
	}
	if err := s.ChecksumUpdate(txn, hash); err != nil {
		return err
	}
	if err := txn.txn.Set([]byte(genesisKey), hash[:]); err != nil {
		return err
	}
	return txn.Commit()
}

//==============================================================================
//Keys

func blockKey(hash raze.Hash) []byte {
	return []byte(fmt.Sprintf("%s_%s", blockPrefix, hash))
}

func frontierKey(hash raze.Hash) []byte {
	return []byte(fmt.Sprintf("%s_%s", frontierPrefix, hash))
}

func accountKey(account raze.Account) []byte {
	return []byte(fmt.Sprintf("%s_%s", accountPrefix, account))
}

func repKey(account raze.Account) []byte {
	return []byte(fmt.Sprintf("%s_%s", repPrefix, account))
}

func pendingKey(hash raze.Hash) []byte {
	return []byte(fmt.Sprintf("%s_%s", pendingPrefix, hash))
}

func uncheckedKey(dependency raze.Hash, hash raze.Hash) []byte {
	return []byte(fmt.Sprintf("%s_%s_%s", uncheckedPrefix, dependency, hash))
}

func uncheckedScanKey(dependency raze.Hash) []byte {
	return []byte(fmt.Sprintf("%s_%s_", uncheckedPrefix, dependency))
}

func voteKey(account raze.Account) []byte {
	return []byte(fmt.Sprintf("%s_%s", votePrefix, account))
}

func (t *Transaction) get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func isDBKeyNotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return cm.NewStoreErr(name, cm.KeyNotFound, key)
		}
	}
	return err
}

//==============================================================================
//Blocks

// BlockPut stores a block record and links it as its predecessor's
// successor.
func (s *BadgerStore) BlockPut(txn *Transaction, block raze.Block) error {
	hash := block.Hash()

	val := make([]byte, 0, 1+len(block.Marshal())+raze.HashLength)
	val = append(val, byte(block.Type()))
	val = append(val, block.Marshal()...)
	var successor raze.Hash
	val = append(val, successor[:]...)

	if err := txn.txn.Set(blockKey(hash), val); err != nil {
		return err
	}

	previous := block.Previous()
	if !previous.IsZero() {
		return s.successorSet(txn, previous, hash)
	}
	return nil
}

// BlockGet returns the block stored under hash.
func (s *BadgerStore) BlockGet(txn *Transaction, hash raze.Hash) (raze.Block, error) {
	val, err := txn.get(blockKey(hash))
	if err != nil {
		return nil, mapError(err, "Block", hash.String())
	}
	block, _, err := decodeBlockRecord(val)
	return block, err
}

// BlockExists reports whether hash is in the store.
func (s *BadgerStore) BlockExists(txn *Transaction, hash raze.Hash) bool {
	_, err := txn.txn.Get(blockKey(hash))
	return err == nil
}

// BlockDel removes a block record and clears its predecessor's successor
// link.
func (s *BadgerStore) BlockDel(txn *Transaction, hash raze.Hash) error {
	block, err := s.BlockGet(txn, hash)
	if err != nil {
		return err
	}
	if err := txn.txn.Delete(blockKey(hash)); err != nil {
		return err
	}
	previous := block.Previous()
	if !previous.IsZero() {
		if s.BlockExists(txn, previous) {
			return s.successorSet(txn, previous, raze.Hash{})
		}
	}
	return nil
}

// SuccessorGet returns the hash of the block following hash, zero at the
// frontier.
func (s *BadgerStore) SuccessorGet(txn *Transaction, hash raze.Hash) (raze.Hash, error) {
	val, err := txn.get(blockKey(hash))
	if err != nil {
		return raze.Hash{}, mapError(err, "Block", hash.String())
	}
	_, successor, err := decodeBlockRecord(val)
	return successor, err
}

func (s *BadgerStore) successorSet(txn *Transaction, hash raze.Hash, successor raze.Hash) error {
	val, err := txn.get(blockKey(hash))
	if err != nil {
		return mapError(err, "Block", hash.String())
	}
	copy(val[len(val)-raze.HashLength:], successor[:])
	return txn.txn.Set(blockKey(hash), val)
}

func decodeBlockRecord(val []byte) (raze.Block, raze.Hash, error) {
	var successor raze.Hash
	if len(val) < 1+raze.HashLength {
		return nil, successor, cm.NewStoreErr("Block", cm.BadValue, "")
	}
	blockType := raze.BlockType(val[0])
	body := val[1 : len(val)-raze.HashLength]
	block, err := raze.UnmarshalBlock(blockType, body)
	if err != nil {
		return nil, successor, err
	}
	copy(successor[:], val[len(val)-raze.HashLength:])
	return block, successor, nil
}

//==============================================================================
//Frontiers

// FrontierPut maps a head block hash to its owning account.
func (s *BadgerStore) FrontierPut(txn *Transaction, hash raze.Hash, account raze.Account) error {
	return txn.txn.Set(frontierKey(hash), account[:])
}

// FrontierGet returns the account whose chain ends at hash.
func (s *BadgerStore) FrontierGet(txn *Transaction, hash raze.Hash) (raze.Account, error) {
	val, err := txn.get(frontierKey(hash))
	if err != nil {
		return raze.Account{}, mapError(err, "Frontier", hash.String())
	}
	var account raze.Account
	copy(account[:], val)
	return account, nil
}

// FrontierDel removes the frontier record for hash.
func (s *BadgerStore) FrontierDel(txn *Transaction, hash raze.Hash) error {
	return txn.txn.Delete(frontierKey(hash))
}

//==============================================================================
//Accounts

// AccountPut stores the frontier record for account.
func (s *BadgerStore) AccountPut(txn *Transaction, account raze.Account, info *AccountInfo) error {
	val, err := info.Marshal()
	if err != nil {
		return err
	}
	return txn.txn.Set(accountKey(account), val)
}

// AccountGet returns the frontier record for account.
func (s *BadgerStore) AccountGet(txn *Transaction, account raze.Account) (*AccountInfo, error) {
	val, err := txn.get(accountKey(account))
	if err != nil {
		return nil, mapError(err, "Account", account.String())
	}
	info := new(AccountInfo)
	if err := info.Unmarshal(val); err != nil {
		return nil, err
	}
	return info, nil
}

// AccountDel removes the frontier record for account.
func (s *BadgerStore) AccountDel(txn *Transaction, account raze.Account) error {
	return txn.txn.Delete(accountKey(account))
}

// AccountEach walks every open account. Returning false stops the walk.
func (s *BadgerStore) AccountEach(txn *Transaction, f func(account raze.Account, info *AccountInfo) bool) error {
	opts := badger.DefaultIteratorOptions
	it := txn.txn.NewIterator(opts)
	defer it.Close()

	prefix := []byte(accountPrefix + "_")
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		account, err := raze.AccountFromString(string(item.Key()[len(prefix):]))
		if err != nil {
			return err
		}
		info := new(AccountInfo)
		if err := info.Unmarshal(val); err != nil {
			return err
		}
		if !f(account, info) {
			return nil
		}
	}
	return nil
}

//==============================================================================
//Representation

// RepresentationGet returns the voting weight delegated to account.
func (s *BadgerStore) RepresentationGet(txn *Transaction, account raze.Account) (raze.Amount, error) {
	val, err := txn.get(repKey(account))
	if err != nil {
		if isDBKeyNotFound(err) {
			return raze.Amount{}, nil
		}
		return raze.Amount{}, err
	}
	var amount raze.Amount
	copy(amount[:], val)
	return amount, nil
}

// RepresentationAdd increases account's weight by amount.
func (s *BadgerStore) RepresentationAdd(txn *Transaction, account raze.Account, amount raze.Amount) error {
	current, err := s.RepresentationGet(txn, account)
	if err != nil {
		return err
	}
	sum, err := current.Add(amount)
	if err != nil {
		return err
	}
	return txn.txn.Set(repKey(account), sum[:])
}

// RepresentationSub decreases account's weight by amount.
func (s *BadgerStore) RepresentationSub(txn *Transaction, account raze.Account, amount raze.Amount) error {
	current, err := s.RepresentationGet(txn, account)
	if err != nil {
		return err
	}
	diff, err := current.Sub(amount)
	if err != nil {
		return err
	}
	return txn.txn.Set(repKey(account), diff[:])
}

//==============================================================================
//Pending

// PendingPut records an unreceived send, keyed by its hash.
func (s *BadgerStore) PendingPut(txn *Transaction, hash raze.Hash, info *PendingInfo) error {
	val, err := info.Marshal()
	if err != nil {
		return err
	}
	return txn.txn.Set(pendingKey(hash), val)
}

// PendingGet returns the pending record for a send hash.
func (s *BadgerStore) PendingGet(txn *Transaction, hash raze.Hash) (*PendingInfo, error) {
	val, err := txn.get(pendingKey(hash))
	if err != nil {
		return nil, mapError(err, "Pending", hash.String())
	}
	info := new(PendingInfo)
	if err := info.Unmarshal(val); err != nil {
		return nil, err
	}
	return info, nil
}

// PendingDel removes the pending record for a send hash.
func (s *BadgerStore) PendingDel(txn *Transaction, hash raze.Hash) error {
	return txn.txn.Delete(pendingKey(hash))
}

//==============================================================================
//Unchecked

// UncheckedPut parks a block until its dependency arrives.
func (s *BadgerStore) UncheckedPut(txn *Transaction, dependency raze.Hash, block raze.Block) error {
	val := make([]byte, 0, 1+len(block.Marshal()))
	val = append(val, byte(block.Type()))
	val = append(val, block.Marshal()...)
	return txn.txn.Set(uncheckedKey(dependency, block.Hash()), val)
}

// UncheckedGet returns every block waiting on dependency.
func (s *BadgerStore) UncheckedGet(txn *Transaction, dependency raze.Hash) ([]raze.Block, error) {
	opts := badger.DefaultIteratorOptions
	it := txn.txn.NewIterator(opts)
	defer it.Close()

	var blocks []raze.Block
	prefix := uncheckedScanKey(dependency)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		if len(val) < 1 {
			return nil, cm.NewStoreErr("Unchecked", cm.BadValue, dependency.String())
		}
		block, err := raze.UnmarshalBlock(raze.BlockType(val[0]), val[1:])
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// UncheckedDel removes one parked block.
func (s *BadgerStore) UncheckedDel(txn *Transaction, dependency raze.Hash, hash raze.Hash) error {
	return txn.txn.Delete(uncheckedKey(dependency, hash))
}

// UncheckedCount returns the number of parked blocks.
func (s *BadgerStore) UncheckedCount(txn *Transaction) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.txn.NewIterator(opts)
	defer it.Close()

	count := 0
	prefix := []byte(uncheckedPrefix + "_")
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		count++
	}
	return count, nil
}

//==============================================================================
//Votes

// VotePut stores the newest vote record for a representative.
func (s *BadgerStore) VotePut(txn *Transaction, account raze.Account, record *VoteRecord) error {
	val, err := record.Marshal()
	if err != nil {
		return err
	}
	return txn.txn.Set(voteKey(account), val)
}

// VoteGet returns the stored vote record for a representative.
func (s *BadgerStore) VoteGet(txn *Transaction, account raze.Account) (*VoteRecord, error) {
	val, err := txn.get(voteKey(account))
	if err != nil {
		return nil, mapError(err, "Vote", account.String())
	}
	record := new(VoteRecord)
	if err := record.Unmarshal(val); err != nil {
		return nil, err
	}
	return record, nil
}

//==============================================================================
//Checksum

// ChecksumUpdate XORs hash into the ledger checksum.
func (s *BadgerStore) ChecksumUpdate(txn *Transaction, hash raze.Hash) error {
	current, err := s.ChecksumGet(txn)
	if err != nil {
		return err
	}
	for i := range current {
		current[i] ^= hash[i]
	}
	return txn.txn.Set([]byte(checksumKey), current[:])
}

// ChecksumGet returns the XOR of all frontier hashes ever toggled in.
func (s *BadgerStore) ChecksumGet(txn *Transaction) (raze.Hash, error) {
	val, err := txn.get([]byte(checksumKey))
	if err != nil {
		if isDBKeyNotFound(err) {
			return raze.Hash{}, nil
		}
		return raze.Hash{}, err
	}
	var checksum raze.Hash
	copy(checksum[:], val)
	return checksum, nil
}
