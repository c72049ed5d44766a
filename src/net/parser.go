package net

import (
	"fmt"

	"github.com/razeblock/raze/src/raze"
)

// ParseError explains why a datagram was dropped.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return e.Reason
}

func dropf(format string, args ...interface{}) error {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}

// Parser validates and decodes datagrams for one network.
type Parser struct {
	network *raze.Network
}

// NewParser builds a parser bound to network's magic.
func NewParser(network *raze.Network) *Parser {
	return &Parser{network: network}
}

// Parse decodes a raw datagram into a message. Datagrams from other
// networks, from incompatible protocol versions or with malformed bodies
// are rejected with a ParseError.
func (p *Parser) Parse(data []byte) (Message, error) {
	head, err := UnmarshalHeader(data)
	if err != nil {
		return nil, dropf("short datagram: %v", err)
	}
	if head.Magic != p.network.Magic {
		return nil, dropf("wrong magic %q", head.Magic)
	}
	if head.VersionMin > ProtocolVersion {
		return nil, dropf("peer requires version %d, speaking %d", head.VersionMin, ProtocolVersion)
	}
	body := data[HeaderSize:]

	switch head.Type {
	case MessageKeepalive:
		return unmarshalKeepalive(head, body)
	case MessagePublish:
		return unmarshalPublish(head, body)
	case MessageConfirmReq:
		return unmarshalConfirmReq(head, body)
	case MessageConfirmAck:
		return unmarshalConfirmAck(head, body)
	default:
		return nil, dropf("unknown message type %s", head.Type)
	}
}
