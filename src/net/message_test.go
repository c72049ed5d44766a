package net

import (
	"reflect"
	"testing"

	"github.com/razeblock/raze/src/crypto"
	"github.com/razeblock/raze/src/peers"
	"github.com/razeblock/raze/src/raze"
)

func testKey(t *testing.T, seed byte) *crypto.KeyPair {
	t.Helper()
	raw := make([]byte, 32)
	raw[0] = seed
	key, err := crypto.KeyPairFromSeed(raw)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func testBlock(t *testing.T) raze.Block {
	t.Helper()
	key := testKey(t, 1)
	balance, err := raze.AmountFromString("1000")
	if err != nil {
		t.Fatal(err)
	}
	return raze.NewSendBlock(raze.Hash{1}, raze.AccountFromKey(key), balance, key, 7)
}

func TestHeaderLayout(t *testing.T) {
	network := raze.TestNetwork()
	head := NewHeader(network, MessagePublish)
	head.BlockType = raze.BlockSend

	raw := head.Marshal(nil)
	if len(raw) != HeaderSize {
		t.Fatalf("header is %d bytes, want %d", len(raw), HeaderSize)
	}
	if raw[0] != network.Magic[0] || raw[1] != network.Magic[1] {
		t.Fatalf("magic bytes misplaced")
	}
	if raw[2] != ProtocolVersion || raw[3] != ProtocolVersion || raw[4] != ProtocolVersionMin {
		t.Fatalf("version bytes misplaced")
	}
	if raw[5] != byte(MessagePublish) {
		t.Fatalf("type byte misplaced")
	}
	if raw[6] != 0 || raw[7] != 0 {
		t.Fatalf("extensions should stay clear")
	}
	if raw[8] != byte(raze.BlockSend) {
		t.Fatalf("block type byte misplaced")
	}

	decoded, err := UnmarshalHeader(raw)
	if err != nil {
		t.Fatal(err)
	}
	if decoded != head {
		t.Fatalf("header did not roundtrip")
	}
}

func TestParseRejectsForeignTraffic(t *testing.T) {
	network := raze.TestNetwork()
	parser := NewParser(network)

	if _, err := parser.Parse([]byte{0x52}); err == nil {
		t.Fatalf("short datagram should be rejected")
	}

	msg := NewPublish(network, testBlock(t))
	data := msg.Marshal()

	foreign := append([]byte{}, data...)
	foreign[0] = 'X'
	if _, err := parser.Parse(foreign); err == nil {
		t.Fatalf("wrong magic should be rejected")
	}

	future := append([]byte{}, data...)
	future[4] = ProtocolVersion + 1
	if _, err := parser.Parse(future); err == nil {
		t.Fatalf("a peer demanding a future version should be rejected")
	}

	if _, err := parser.Parse(data); err != nil {
		t.Fatalf("valid publish rejected: %v", err)
	}
}

func TestKeepaliveRoundtrip(t *testing.T) {
	network := raze.TestNetwork()
	parser := NewParser(network)

	endpoints := []peers.Endpoint{
		peers.MakeEndpoint([]byte{127, 0, 0, 1}, 54000),
		peers.MakeEndpoint([]byte{10, 0, 0, 9}, 7075),
	}
	msg := NewKeepalive(network, endpoints)

	parsed, err := parser.Parse(msg.Marshal())
	if err != nil {
		t.Fatal(err)
	}
	keepalive, ok := parsed.(*Keepalive)
	if !ok {
		t.Fatalf("expected keepalive, got %T", parsed)
	}
	for i, e := range endpoints {
		if keepalive.Endpoints[i] != e {
			t.Fatalf("endpoint %d did not roundtrip", i)
		}
	}
	for i := len(endpoints); i < KeepaliveEndpoints; i++ {
		if !keepalive.Endpoints[i].IsZero() {
			t.Fatalf("unused slot %d should stay zero", i)
		}
	}
}

func TestConfirmAckRoundtrip(t *testing.T) {
	network := raze.TestNetwork()
	parser := NewParser(network)
	key := testKey(t, 2)

	vote := raze.NewVote(key, 5, testBlock(t))
	msg := NewConfirmAck(network, vote)

	parsed, err := parser.Parse(msg.Marshal())
	if err != nil {
		t.Fatal(err)
	}
	ack, ok := parsed.(*ConfirmAck)
	if !ok {
		t.Fatalf("expected confirm_ack, got %T", parsed)
	}
	if !reflect.DeepEqual(ack.Vote, vote) {
		t.Fatalf("vote did not roundtrip")
	}
	if !ack.Vote.Validate() {
		t.Fatalf("decoded vote should still validate")
	}
}

func TestConfirmReqRoundtrip(t *testing.T) {
	network := raze.TestNetwork()
	parser := NewParser(network)

	block := testBlock(t)
	parsed, err := parser.Parse(NewConfirmReq(network, block).Marshal())
	if err != nil {
		t.Fatal(err)
	}
	req, ok := parsed.(*ConfirmReq)
	if !ok {
		t.Fatalf("expected confirm_req, got %T", parsed)
	}
	if req.Block.Hash() != block.Hash() {
		t.Fatalf("block did not roundtrip")
	}
}
