package raze

import (
	"encoding/binary"
	"fmt"

	"github.com/razeblock/raze/src/crypto"
)

// OpenBlockSize is the serialized size of an open block.
const OpenBlockSize = 32 + 32 + 32 + 64 + 8

// OpenHashables are the digest-covered fields of an open block.
type OpenHashables struct {
	Source         Hash
	Representative Account
	Account        Account
}

// OpenBlock is the first block of an account chain. It receives the source
// send and names the account's initial representative.
type OpenBlock struct {
	Hashables OpenHashables
	signature Signature
	work      uint64
}

// NewOpenBlock builds and signs an open block.
func NewOpenBlock(source Hash, representative Account, account Account, key *crypto.KeyPair, work uint64) *OpenBlock {
	b := &OpenBlock{
		Hashables: OpenHashables{
			Source:         source,
			Representative: representative,
			Account:        account,
		},
		work: work,
	}
	SignBlock(b, key)
	return b
}

func (b *OpenBlock) Type() BlockType {
	return BlockOpen
}

func (b *OpenBlock) Hash() Hash {
	var h Hash
	copy(h[:], crypto.Blake2b(
		b.Hashables.Source[:],
		b.Hashables.Representative[:],
		b.Hashables.Account[:]))
	return h
}

// Root of an open block is the account itself; there is no previous.
func (b *OpenBlock) Root() Hash {
	return Hash(b.Hashables.Account)
}

func (b *OpenBlock) Previous() Hash {
	return Hash{}
}

func (b *OpenBlock) Source() Hash {
	return b.Hashables.Source
}

func (b *OpenBlock) BlockWork() uint64 {
	return b.work
}

func (b *OpenBlock) SetBlockWork(work uint64) {
	b.work = work
}

func (b *OpenBlock) BlockSignature() Signature {
	return b.signature
}

func (b *OpenBlock) SetBlockSignature(sig Signature) {
	b.signature = sig
}

func (b *OpenBlock) Marshal() []byte {
	buf := make([]byte, 0, OpenBlockSize)
	buf = append(buf, b.Hashables.Source[:]...)
	buf = append(buf, b.Hashables.Representative[:]...)
	buf = append(buf, b.Hashables.Account[:]...)
	buf = append(buf, b.signature[:]...)
	var work [8]byte
	binary.LittleEndian.PutUint64(work[:], b.work)
	return append(buf, work[:]...)
}

func (b *OpenBlock) Visit(v BlockVisitor) {
	v.OpenBlock(b)
}

// UnmarshalOpenBlock decodes an open block from the first OpenBlockSize bytes
// of data; shorter input is rejected and trailing bytes are ignored.
func UnmarshalOpenBlock(data []byte) (*OpenBlock, error) {
	if len(data) < OpenBlockSize {
		return nil, fmt.Errorf("open block needs %d bytes, got %d", OpenBlockSize, len(data))
	}
	b := &OpenBlock{}
	copy(b.Hashables.Source[:], data[0:32])
	copy(b.Hashables.Representative[:], data[32:64])
	copy(b.Hashables.Account[:], data[64:96])
	copy(b.signature[:], data[96:160])
	b.work = binary.LittleEndian.Uint64(data[160:168])
	return b, nil
}
