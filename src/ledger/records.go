package ledger

import (
	"bytes"

	"github.com/ugorji/go/codec"

	"github.com/razeblock/raze/src/raze"
)

// AccountInfo is the frontier record kept per open account.
type AccountInfo struct {
	Head           raze.Hash
	Representative raze.Account
	Balance        raze.Amount
	Modified       uint64
}

// PendingInfo records a send that has not been received yet, keyed by the
// send block hash.
type PendingInfo struct {
	Source      raze.Account
	Amount      raze.Amount
	Destination raze.Account
}

// VoteRecord is the highest vote sequence seen per representative.
type VoteRecord struct {
	Sequence  uint64
	BlockHash raze.Hash
}

type accountInfoWrapper struct {
	Head           []byte
	Representative []byte
	Balance        []byte
	Modified       uint64
}

type pendingInfoWrapper struct {
	Source      []byte
	Amount      []byte
	Destination []byte
}

type voteRecordWrapper struct {
	Sequence  uint64
	BlockHash []byte
}

func (a *AccountInfo) Marshal() ([]byte, error) {
	wrapper := accountInfoWrapper{
		Head:           a.Head[:],
		Representative: a.Representative[:],
		Balance:        a.Balance[:],
		Modified:       a.Modified,
	}

	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(wrapper); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func (a *AccountInfo) Unmarshal(data []byte) error {
	wrapper := new(accountInfoWrapper)

	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	dec := codec.NewDecoder(b, jh)

	if err := dec.Decode(wrapper); err != nil {
		return err
	}

	copy(a.Head[:], wrapper.Head)
	copy(a.Representative[:], wrapper.Representative)
	copy(a.Balance[:], wrapper.Balance)
	a.Modified = wrapper.Modified

	return nil
}

func (p *PendingInfo) Marshal() ([]byte, error) {
	wrapper := pendingInfoWrapper{
		Source:      p.Source[:],
		Amount:      p.Amount[:],
		Destination: p.Destination[:],
	}

	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(wrapper); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func (p *PendingInfo) Unmarshal(data []byte) error {
	wrapper := new(pendingInfoWrapper)

	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	dec := codec.NewDecoder(b, jh)

	if err := dec.Decode(wrapper); err != nil {
		return err
	}

	copy(p.Source[:], wrapper.Source)
	copy(p.Amount[:], wrapper.Amount)
	copy(p.Destination[:], wrapper.Destination)

	return nil
}

func (v *VoteRecord) Marshal() ([]byte, error) {
	wrapper := voteRecordWrapper{
		Sequence:  v.Sequence,
		BlockHash: v.BlockHash[:],
	}

	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(wrapper); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func (v *VoteRecord) Unmarshal(data []byte) error {
	wrapper := new(voteRecordWrapper)

	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	dec := codec.NewDecoder(b, jh)

	if err := dec.Decode(wrapper); err != nil {
		return err
	}

	v.Sequence = wrapper.Sequence
	copy(v.BlockHash[:], wrapper.BlockHash)

	return nil
}
