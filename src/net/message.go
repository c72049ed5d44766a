package net

import (
	"encoding/binary"
	"fmt"

	"github.com/razeblock/raze/src/peers"
	"github.com/razeblock/raze/src/raze"
)

// Protocol versions carried in every header. A peer advertising a minimum
// above ProtocolVersion is speaking a future wire format and is ignored.
const (
	ProtocolVersion    byte = 1
	ProtocolVersionMin byte = 1
)

// HeaderSize is the fixed message preamble: two magic bytes, three version
// bytes, the message type, two extension bytes and the block type.
const HeaderSize = 9

// KeepaliveEndpoints is the number of peer slots in a keepalive message.
const KeepaliveEndpoints = 8

// MessageType tags the wire representation of a message.
type MessageType byte

const (
	MessageInvalid MessageType = iota
	MessageNotAType
	MessageKeepalive
	MessagePublish
	MessageConfirmReq
	MessageConfirmAck
)

var messageTypeNames = map[MessageType]string{
	MessageInvalid:    "invalid",
	MessageNotAType:   "not_a_type",
	MessageKeepalive:  "keepalive",
	MessagePublish:    "publish",
	MessageConfirmReq: "confirm_req",
	MessageConfirmAck: "confirm_ack",
}

func (t MessageType) String() string {
	if n, ok := messageTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", byte(t))
}

// Header is the preamble shared by every message. BlockType is only
// meaningful for publish, confirm_req and confirm_ack and stays
// BlockInvalid otherwise.
type Header struct {
	Magic        [2]byte
	VersionMax   byte
	VersionUsing byte
	VersionMin   byte
	Type         MessageType
	Extensions   uint16
	BlockType    raze.BlockType
}

// NewHeader builds a header for the given network and message type.
func NewHeader(network *raze.Network, t MessageType) Header {
	return Header{
		Magic:        network.Magic,
		VersionMax:   ProtocolVersion,
		VersionUsing: ProtocolVersion,
		VersionMin:   ProtocolVersionMin,
		Type:         t,
	}
}

// Marshal appends the 9 byte header to buf.
func (h *Header) Marshal(buf []byte) []byte {
	buf = append(buf, h.Magic[0], h.Magic[1])
	buf = append(buf, h.VersionMax, h.VersionUsing, h.VersionMin)
	buf = append(buf, byte(h.Type))
	var ext [2]byte
	binary.BigEndian.PutUint16(ext[:], h.Extensions)
	buf = append(buf, ext[:]...)
	return append(buf, byte(h.BlockType))
}

// UnmarshalHeader decodes the preamble.
func UnmarshalHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, fmt.Errorf("header needs %d bytes, got %d", HeaderSize, len(data))
	}
	h.Magic[0] = data[0]
	h.Magic[1] = data[1]
	h.VersionMax = data[2]
	h.VersionUsing = data[3]
	h.VersionMin = data[4]
	h.Type = MessageType(data[5])
	h.Extensions = binary.BigEndian.Uint16(data[6:8])
	h.BlockType = raze.BlockType(data[8])
	return h, nil
}

// Message is the interface satisfied by the wire message variants.
type Message interface {
	Header() *Header
	Marshal() []byte
	Visit(MessageVisitor)
}

// MessageVisitor dispatches over the message variants.
type MessageVisitor interface {
	Keepalive(*Keepalive)
	Publish(*Publish)
	ConfirmReq(*ConfirmReq)
	ConfirmAck(*ConfirmAck)
}

//==============================================================================
//Keepalive

// Keepalive advertises up to eight known peers. Unused slots stay zero.
type Keepalive struct {
	head      Header
	Endpoints [KeepaliveEndpoints]peers.Endpoint
}

// NewKeepalive builds a keepalive advertising the given peers.
func NewKeepalive(network *raze.Network, endpoints []peers.Endpoint) *Keepalive {
	m := &Keepalive{head: NewHeader(network, MessageKeepalive)}
	for i := 0; i < len(endpoints) && i < KeepaliveEndpoints; i++ {
		m.Endpoints[i] = endpoints[i]
	}
	return m
}

func (m *Keepalive) Header() *Header {
	return &m.head
}

func (m *Keepalive) Marshal() []byte {
	buf := m.head.Marshal(make([]byte, 0, HeaderSize+KeepaliveEndpoints*18))
	for _, e := range m.Endpoints {
		buf = append(buf, e.IP[:]...)
		var port [2]byte
		binary.BigEndian.PutUint16(port[:], e.Port)
		buf = append(buf, port[:]...)
	}
	return buf
}

func (m *Keepalive) Visit(v MessageVisitor) {
	v.Keepalive(m)
}

func unmarshalKeepalive(head Header, data []byte) (*Keepalive, error) {
	if len(data) < KeepaliveEndpoints*18 {
		return nil, fmt.Errorf("keepalive needs %d bytes, got %d", KeepaliveEndpoints*18, len(data))
	}
	m := &Keepalive{head: head}
	for i := 0; i < KeepaliveEndpoints; i++ {
		off := i * 18
		copy(m.Endpoints[i].IP[:], data[off:off+16])
		m.Endpoints[i].Port = binary.BigEndian.Uint16(data[off+16 : off+18])
	}
	return m, nil
}

//==============================================================================
//Publish

// Publish floods a new block.
type Publish struct {
	head  Header
	Block raze.Block
}

// NewPublish wraps a block for flooding.
func NewPublish(network *raze.Network, block raze.Block) *Publish {
	m := &Publish{head: NewHeader(network, MessagePublish), Block: block}
	m.head.BlockType = block.Type()
	return m
}

func (m *Publish) Header() *Header {
	return &m.head
}

func (m *Publish) Marshal() []byte {
	buf := m.head.Marshal(make([]byte, 0, HeaderSize+raze.BlockSize(m.Block.Type())))
	return append(buf, m.Block.Marshal()...)
}

func (m *Publish) Visit(v MessageVisitor) {
	v.Publish(m)
}

func unmarshalPublish(head Header, data []byte) (*Publish, error) {
	block, err := raze.UnmarshalBlock(head.BlockType, data)
	if err != nil {
		return nil, err
	}
	return &Publish{head: head, Block: block}, nil
}

//==============================================================================
//ConfirmReq

// ConfirmReq asks representatives to vote on a block.
type ConfirmReq struct {
	head  Header
	Block raze.Block
}

// NewConfirmReq wraps a block for vote solicitation.
func NewConfirmReq(network *raze.Network, block raze.Block) *ConfirmReq {
	m := &ConfirmReq{head: NewHeader(network, MessageConfirmReq), Block: block}
	m.head.BlockType = block.Type()
	return m
}

func (m *ConfirmReq) Header() *Header {
	return &m.head
}

func (m *ConfirmReq) Marshal() []byte {
	buf := m.head.Marshal(make([]byte, 0, HeaderSize+raze.BlockSize(m.Block.Type())))
	return append(buf, m.Block.Marshal()...)
}

func (m *ConfirmReq) Visit(v MessageVisitor) {
	v.ConfirmReq(m)
}

func unmarshalConfirmReq(head Header, data []byte) (*ConfirmReq, error) {
	block, err := raze.UnmarshalBlock(head.BlockType, data)
	if err != nil {
		return nil, err
	}
	return &ConfirmReq{head: head, Block: block}, nil
}

//==============================================================================
//ConfirmAck

// ConfirmAck carries a representative's vote.
type ConfirmAck struct {
	head Header
	Vote *raze.Vote
}

// NewConfirmAck wraps a vote.
func NewConfirmAck(network *raze.Network, vote *raze.Vote) *ConfirmAck {
	m := &ConfirmAck{head: NewHeader(network, MessageConfirmAck), Vote: vote}
	m.head.BlockType = vote.Block.Type()
	return m
}

func (m *ConfirmAck) Header() *Header {
	return &m.head
}

func (m *ConfirmAck) Marshal() []byte {
	vote := m.Vote
	buf := m.head.Marshal(make([]byte, 0, HeaderSize+32+64+8+raze.BlockSize(vote.Block.Type())))
	buf = append(buf, vote.Account[:]...)
	buf = append(buf, vote.Signature[:]...)
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], vote.Sequence)
	buf = append(buf, seq[:]...)
	return append(buf, vote.Block.Marshal()...)
}

func (m *ConfirmAck) Visit(v MessageVisitor) {
	v.ConfirmAck(m)
}

func unmarshalConfirmAck(head Header, data []byte) (*ConfirmAck, error) {
	if len(data) < 32+64+8 {
		return nil, fmt.Errorf("confirm_ack needs at least %d bytes, got %d", 32+64+8, len(data))
	}
	vote := &raze.Vote{}
	copy(vote.Account[:], data[0:32])
	copy(vote.Signature[:], data[32:96])
	vote.Sequence = binary.LittleEndian.Uint64(data[96:104])
	block, err := raze.UnmarshalBlock(head.BlockType, data[104:])
	if err != nil {
		return nil, err
	}
	vote.Block = block
	return &ConfirmAck{head: head, Vote: vote}, nil
}
