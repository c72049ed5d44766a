package raze

import (
	"encoding/binary"
	"fmt"

	"github.com/razeblock/raze/src/crypto"
)

// SendBlockSize is the serialized size of a send block.
const SendBlockSize = 32 + 32 + 16 + 64 + 8

// SendHashables are the digest-covered fields of a send block.
type SendHashables struct {
	Previous    Hash
	Destination Account
	Balance     Amount
}

// SendBlock debits an account. Balance is the sender's balance after the
// send; the amount transferred is the difference from the previous balance.
type SendBlock struct {
	Hashables SendHashables
	signature Signature
	work      uint64
}

// NewSendBlock builds and signs a send block.
func NewSendBlock(previous Hash, destination Account, balance Amount, key *crypto.KeyPair, work uint64) *SendBlock {
	b := &SendBlock{
		Hashables: SendHashables{
			Previous:    previous,
			Destination: destination,
			Balance:     balance,
		},
		work: work,
	}
	SignBlock(b, key)
	return b
}

func (b *SendBlock) Type() BlockType {
	return BlockSend
}

func (b *SendBlock) Hash() Hash {
	var h Hash
	copy(h[:], crypto.Blake2b(
		b.Hashables.Previous[:],
		b.Hashables.Destination[:],
		b.Hashables.Balance[:]))
	return h
}

func (b *SendBlock) Root() Hash {
	return b.Hashables.Previous
}

func (b *SendBlock) Previous() Hash {
	return b.Hashables.Previous
}

func (b *SendBlock) Source() Hash {
	return Hash{}
}

func (b *SendBlock) BlockWork() uint64 {
	return b.work
}

func (b *SendBlock) SetBlockWork(work uint64) {
	b.work = work
}

func (b *SendBlock) BlockSignature() Signature {
	return b.signature
}

func (b *SendBlock) SetBlockSignature(sig Signature) {
	b.signature = sig
}

func (b *SendBlock) Marshal() []byte {
	buf := make([]byte, 0, SendBlockSize)
	buf = append(buf, b.Hashables.Previous[:]...)
	buf = append(buf, b.Hashables.Destination[:]...)
	buf = append(buf, b.Hashables.Balance[:]...)
	buf = append(buf, b.signature[:]...)
	var work [8]byte
	binary.LittleEndian.PutUint64(work[:], b.work)
	return append(buf, work[:]...)
}

func (b *SendBlock) Visit(v BlockVisitor) {
	v.SendBlock(b)
}

// UnmarshalSendBlock decodes a send block from the first SendBlockSize bytes
// of data; shorter input is rejected and trailing bytes are ignored.
func UnmarshalSendBlock(data []byte) (*SendBlock, error) {
	if len(data) < SendBlockSize {
		return nil, fmt.Errorf("send block needs %d bytes, got %d", SendBlockSize, len(data))
	}
	b := &SendBlock{}
	copy(b.Hashables.Previous[:], data[0:32])
	copy(b.Hashables.Destination[:], data[32:64])
	copy(b.Hashables.Balance[:], data[64:80])
	copy(b.signature[:], data[80:144])
	b.work = binary.LittleEndian.Uint64(data[144:152])
	return b, nil
}
