package net

import (
	gonet "net"
	"testing"

	"github.com/razeblock/raze/src/peers"
)

func endpointFor(t *testing.T, ip string, port uint16) peers.Endpoint {
	t.Helper()
	parsed := gonet.ParseIP(ip)
	if parsed == nil {
		t.Fatalf("bad test address %q", ip)
	}
	return peers.MakeEndpoint(parsed, port)
}

func TestReservedEndpoints(t *testing.T) {
	reserved := []string{
		"0.0.0.1",
		"192.0.2.1",
		"198.51.100.17",
		"203.0.113.250",
		"224.0.0.1",
		"240.0.0.1",
		"255.255.255.255",
		"::",
		"ff02::1",
		"100::1",
		"2001:db8::5",
	}
	for _, ip := range reserved {
		if !ReservedEndpoint(endpointFor(t, ip, 7075), false) {
			t.Fatalf("%s should be reserved", ip)
		}
	}

	routable := []string{
		"8.8.8.8",
		"10.0.0.1",
		"172.16.5.5",
		"2001:4860::8888",
	}
	for _, ip := range routable {
		if ReservedEndpoint(endpointFor(t, ip, 7075), false) {
			t.Fatalf("%s should be contactable", ip)
		}
	}
}

func TestLoopbackGating(t *testing.T) {
	v4 := endpointFor(t, "127.0.0.1", 54000)
	v6 := endpointFor(t, "::1", 54000)

	if !ReservedEndpoint(v4, false) || !ReservedEndpoint(v6, false) {
		t.Fatalf("loopback should be reserved outside the test network")
	}
	if ReservedEndpoint(v4, true) || ReservedEndpoint(v6, true) {
		t.Fatalf("loopback should be allowed on the test network")
	}
}

func TestZeroPortReserved(t *testing.T) {
	if !ReservedEndpoint(endpointFor(t, "8.8.8.8", 0), true) {
		t.Fatalf("port zero should always be reserved")
	}
}
