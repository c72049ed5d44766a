package raze

import (
	"fmt"

	"github.com/razeblock/raze/src/common"
	"github.com/razeblock/raze/src/crypto"
)

// HashLength is the byte length of block digests, accounts and roots.
const HashLength = 32

// Hash is a 32 byte blake2b block digest.
type Hash [32]byte

// Account is a 32 byte ed25519 public key doubling as an address.
type Account [32]byte

// Signature is a 64 byte ed25519 signature.
type Signature [64]byte

// BlockType tags the wire representation of a block.
type BlockType byte

const (
	BlockInvalid BlockType = iota
	BlockNotABlock
	BlockSend
	BlockReceive
	BlockOpen
	BlockChange
)

var blockTypeNames = map[BlockType]string{
	BlockInvalid:   "invalid",
	BlockNotABlock: "not_a_block",
	BlockSend:      "send",
	BlockReceive:   "receive",
	BlockOpen:      "open",
	BlockChange:    "change",
}

func (t BlockType) String() string {
	if n, ok := blockTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", byte(t))
}

// Block is the interface satisfied by the four block variants. The digest
// covers the hashable fields only; signature and work are excluded so they
// can be replaced without changing identity.
type Block interface {
	Type() BlockType
	Hash() Hash
	Root() Hash
	Previous() Hash
	Source() Hash
	BlockWork() uint64
	SetBlockWork(uint64)
	BlockSignature() Signature
	SetBlockSignature(Signature)
	Marshal() []byte
	Visit(BlockVisitor)
}

// BlockVisitor dispatches over the block variants.
type BlockVisitor interface {
	SendBlock(*SendBlock)
	ReceiveBlock(*ReceiveBlock)
	OpenBlock(*OpenBlock)
	ChangeBlock(*ChangeBlock)
}

// BlockSize returns the serialized size of the given block type, or 0 for
// types that carry no block.
func BlockSize(t BlockType) int {
	switch t {
	case BlockSend:
		return SendBlockSize
	case BlockReceive:
		return ReceiveBlockSize
	case BlockOpen:
		return OpenBlockSize
	case BlockChange:
		return ChangeBlockSize
	default:
		return 0
	}
}

// UnmarshalBlock decodes a block of the given type from data.
func UnmarshalBlock(t BlockType, data []byte) (Block, error) {
	switch t {
	case BlockSend:
		return UnmarshalSendBlock(data)
	case BlockReceive:
		return UnmarshalReceiveBlock(data)
	case BlockOpen:
		return UnmarshalOpenBlock(data)
	case BlockChange:
		return UnmarshalChangeBlock(data)
	default:
		return nil, fmt.Errorf("cannot unmarshal block type %s", t)
	}
}

// SignBlock signs the block digest with key and stores the signature.
func SignBlock(b Block, key *crypto.KeyPair) {
	hash := b.Hash()
	var sig Signature
	copy(sig[:], key.Sign(hash[:]))
	b.SetBlockSignature(sig)
}

// ValidateBlockSignature checks the block signature against account.
func ValidateBlockSignature(b Block, account Account) bool {
	hash := b.Hash()
	sig := b.BlockSignature()
	return crypto.Verify(account[:], hash[:], sig[:])
}

func (h Hash) String() string {
	return common.EncodeToString(h[:])
}

// IsZero reports whether the hash is all zero bytes.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// HashFromString parses an uppercase hex digest.
func HashFromString(s string) (Hash, error) {
	var h Hash
	b, err := common.DecodeFromString(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("hash must be %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

func (a Account) String() string {
	return common.EncodeToString(a[:])
}

// IsZero reports whether the account is the burn address.
func (a Account) IsZero() bool {
	return a == Account{}
}

// AccountFromString parses an uppercase hex public key.
func AccountFromString(s string) (Account, error) {
	var a Account
	b, err := common.DecodeFromString(s)
	if err != nil {
		return a, err
	}
	if len(b) != len(a) {
		return a, fmt.Errorf("account must be %d bytes, got %d", len(a), len(b))
	}
	copy(a[:], b)
	return a, nil
}

// AccountFromKey returns the account addressed by key's public half.
func AccountFromKey(key *crypto.KeyPair) Account {
	var a Account
	copy(a[:], key.Public)
	return a
}

func (s Signature) String() string {
	return common.EncodeToString(s[:])
}
