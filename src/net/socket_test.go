package net

import (
	"math/rand"
	gonet "net"
	"testing"
	"time"

	"github.com/razeblock/raze/src/common"
	"github.com/razeblock/raze/src/peers"
	"github.com/razeblock/raze/src/raze"
)

type received struct {
	msg  Message
	from peers.Endpoint
}

func startSocket(t *testing.T, network *raze.Network, seed int64) (*Socket, chan received) {
	t.Helper()

	inbox := make(chan received, 16)
	table := peers.NewTable(peers.Endpoint{}, rand.New(rand.NewSource(seed)))
	socket := NewSocket(network, table, func(msg Message, from peers.Endpoint) {
		inbox <- received{msg: msg, from: from}
	}, common.NewTestEntry(t, "socket"))

	if err := socket.Start("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(socket.Stop)
	return socket, inbox
}

func TestSocketDelivery(t *testing.T) {
	network := raze.TestNetwork()

	a, _ := startSocket(t, network, 1)
	b, inbox := startSocket(t, network, 2)

	target := peers.EndpointFromUDPAddr(b.LocalAddr())
	a.Send(target, NewKeepalive(network, nil))

	select {
	case got := <-inbox:
		if _, ok := got.msg.(*Keepalive); !ok {
			t.Fatalf("expected keepalive, got %T", got.msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("message never arrived")
	}
}

func TestSocketDropsForeignMagic(t *testing.T) {
	live := raze.LiveNetwork()
	test := raze.TestNetwork()

	receiver, inbox := startSocket(t, test, 3)

	// Build the datagram on another network, deliver it on ours.
	conn, err := gonet.DialUDP("udp", nil, receiver.LocalAddr())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, err := conn.Write(NewKeepalive(live, nil).Marshal()); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-inbox:
		t.Fatalf("unexpected delivery: %T", got.msg)
	case <-time.After(200 * time.Millisecond):
	}
}
