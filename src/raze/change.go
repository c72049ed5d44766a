package raze

import (
	"encoding/binary"
	"fmt"

	"github.com/razeblock/raze/src/crypto"
)

// ChangeBlockSize is the serialized size of a change block.
const ChangeBlockSize = 32 + 32 + 64 + 8

// ChangeHashables are the digest-covered fields of a change block.
type ChangeHashables struct {
	Previous       Hash
	Representative Account
}

// ChangeBlock moves an account's weight to a new representative.
type ChangeBlock struct {
	Hashables ChangeHashables
	signature Signature
	work      uint64
}

// NewChangeBlock builds and signs a change block.
func NewChangeBlock(previous Hash, representative Account, key *crypto.KeyPair, work uint64) *ChangeBlock {
	b := &ChangeBlock{
		Hashables: ChangeHashables{
			Previous:       previous,
			Representative: representative,
		},
		work: work,
	}
	SignBlock(b, key)
	return b
}

func (b *ChangeBlock) Type() BlockType {
	return BlockChange
}

func (b *ChangeBlock) Hash() Hash {
	var h Hash
	copy(h[:], crypto.Blake2b(
		b.Hashables.Previous[:],
		b.Hashables.Representative[:]))
	return h
}

func (b *ChangeBlock) Root() Hash {
	return b.Hashables.Previous
}

func (b *ChangeBlock) Previous() Hash {
	return b.Hashables.Previous
}

func (b *ChangeBlock) Source() Hash {
	return Hash{}
}

func (b *ChangeBlock) BlockWork() uint64 {
	return b.work
}

func (b *ChangeBlock) SetBlockWork(work uint64) {
	b.work = work
}

func (b *ChangeBlock) BlockSignature() Signature {
	return b.signature
}

func (b *ChangeBlock) SetBlockSignature(sig Signature) {
	b.signature = sig
}

func (b *ChangeBlock) Marshal() []byte {
	buf := make([]byte, 0, ChangeBlockSize)
	buf = append(buf, b.Hashables.Previous[:]...)
	buf = append(buf, b.Hashables.Representative[:]...)
	buf = append(buf, b.signature[:]...)
	var work [8]byte
	binary.LittleEndian.PutUint64(work[:], b.work)
	return append(buf, work[:]...)
}

func (b *ChangeBlock) Visit(v BlockVisitor) {
	v.ChangeBlock(b)
}

// UnmarshalChangeBlock decodes a change block from the first ChangeBlockSize
// bytes of data; shorter input is rejected and trailing bytes are ignored.
func UnmarshalChangeBlock(data []byte) (*ChangeBlock, error) {
	if len(data) < ChangeBlockSize {
		return nil, fmt.Errorf("change block needs %d bytes, got %d", ChangeBlockSize, len(data))
	}
	b := &ChangeBlock{}
	copy(b.Hashables.Previous[:], data[0:32])
	copy(b.Hashables.Representative[:], data[32:64])
	copy(b.signature[:], data[64:128])
	b.work = binary.LittleEndian.Uint64(data[128:136])
	return b, nil
}
