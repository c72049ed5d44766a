package raze

import (
	"encoding/binary"

	"github.com/razeblock/raze/src/crypto"
)

// Vote is a representative's signed statement for a block. Higher sequence
// numbers supersede lower ones for the same account and root.
type Vote struct {
	Account   Account
	Signature Signature
	Sequence  uint64
	Block     Block
}

// NewVote builds and signs a vote for block with the given sequence.
func NewVote(key *crypto.KeyPair, sequence uint64, block Block) *Vote {
	v := &Vote{
		Account:  AccountFromKey(key),
		Sequence: sequence,
		Block:    block,
	}
	digest := v.Digest()
	copy(v.Signature[:], key.Sign(digest[:]))
	return v
}

// Digest is the signed material, the blake2b of the block hash and the
// little-endian sequence.
func (v *Vote) Digest() Hash {
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], v.Sequence)
	blockHash := v.Block.Hash()

	var h Hash
	copy(h[:], crypto.Blake2b(blockHash[:], seq[:]))
	return h
}

// Validate checks the vote signature.
func (v *Vote) Validate() bool {
	digest := v.Digest()
	return crypto.Verify(v.Account[:], digest[:], v.Signature[:])
}
