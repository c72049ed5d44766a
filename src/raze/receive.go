package raze

import (
	"encoding/binary"
	"fmt"

	"github.com/razeblock/raze/src/crypto"
)

// ReceiveBlockSize is the serialized size of a receive block.
const ReceiveBlockSize = 32 + 32 + 64 + 8

// ReceiveHashables are the digest-covered fields of a receive block.
type ReceiveHashables struct {
	Previous Hash
	Source   Hash
}

// ReceiveBlock credits an account with the amount of a pending send block.
type ReceiveBlock struct {
	Hashables ReceiveHashables
	signature Signature
	work      uint64
}

// NewReceiveBlock builds and signs a receive block.
func NewReceiveBlock(previous Hash, source Hash, key *crypto.KeyPair, work uint64) *ReceiveBlock {
	b := &ReceiveBlock{
		Hashables: ReceiveHashables{
			Previous: previous,
			Source:   source,
		},
		work: work,
	}
	SignBlock(b, key)
	return b
}

func (b *ReceiveBlock) Type() BlockType {
	return BlockReceive
}

func (b *ReceiveBlock) Hash() Hash {
	var h Hash
	copy(h[:], crypto.Blake2b(
		b.Hashables.Previous[:],
		b.Hashables.Source[:]))
	return h
}

func (b *ReceiveBlock) Root() Hash {
	return b.Hashables.Previous
}

func (b *ReceiveBlock) Previous() Hash {
	return b.Hashables.Previous
}

func (b *ReceiveBlock) Source() Hash {
	return b.Hashables.Source
}

func (b *ReceiveBlock) BlockWork() uint64 {
	return b.work
}

func (b *ReceiveBlock) SetBlockWork(work uint64) {
	b.work = work
}

func (b *ReceiveBlock) BlockSignature() Signature {
	return b.signature
}

func (b *ReceiveBlock) SetBlockSignature(sig Signature) {
	b.signature = sig
}

func (b *ReceiveBlock) Marshal() []byte {
	buf := make([]byte, 0, ReceiveBlockSize)
	buf = append(buf, b.Hashables.Previous[:]...)
	buf = append(buf, b.Hashables.Source[:]...)
	buf = append(buf, b.signature[:]...)
	var work [8]byte
	binary.LittleEndian.PutUint64(work[:], b.work)
	return append(buf, work[:]...)
}

func (b *ReceiveBlock) Visit(v BlockVisitor) {
	v.ReceiveBlock(b)
}

// UnmarshalReceiveBlock decodes a receive block from the first
// ReceiveBlockSize bytes of data; shorter input is rejected and trailing
// bytes are ignored.
func UnmarshalReceiveBlock(data []byte) (*ReceiveBlock, error) {
	if len(data) < ReceiveBlockSize {
		return nil, fmt.Errorf("receive block needs %d bytes, got %d", ReceiveBlockSize, len(data))
	}
	b := &ReceiveBlock{}
	copy(b.Hashables.Previous[:], data[0:32])
	copy(b.Hashables.Source[:], data[32:64])
	copy(b.signature[:], data[64:128])
	b.work = binary.LittleEndian.Uint64(data[128:136])
	return b, nil
}
