package net

import (
	gonet "net"

	"github.com/razeblock/raze/src/peers"
)

var reservedV4 = []struct {
	base [4]byte
	bits int
}{
	{[4]byte{0, 0, 0, 0}, 8},        // "this" network
	{[4]byte{192, 0, 2, 0}, 24},     // documentation
	{[4]byte{198, 51, 100, 0}, 24},  // documentation
	{[4]byte{203, 0, 113, 0}, 24},   // documentation
	{[4]byte{224, 0, 0, 0}, 4},      // multicast
	{[4]byte{240, 0, 0, 0}, 4},      // future use
	{[4]byte{255, 255, 255, 255}, 32}, // broadcast
}

// ReservedEndpoint reports whether an endpoint must never be contacted:
// unroutable, documentation, multicast and broadcast ranges, plus loopback
// outside the test network.
func ReservedEndpoint(endpoint peers.Endpoint, allowLoopback bool) bool {
	if endpoint.Port == 0 {
		return true
	}

	ip := gonet.IP(endpoint.IP[:])

	if v4 := ip.To4(); v4 != nil {
		if v4.IsLoopback() {
			return !allowLoopback
		}
		for _, r := range reservedV4 {
			mask := gonet.CIDRMask(r.bits, 32)
			if v4.Mask(mask).Equal(gonet.IP(r.base[:]).Mask(mask)) {
				return true
			}
		}
		return false
	}

	switch {
	case ip.IsUnspecified():
		return true
	case ip.IsLoopback():
		return !allowLoopback
	case ip.IsMulticast():
		return true
	}

	// 100::/64 discard prefix
	if ip[0] == 0x01 && ip[1] == 0x00 {
		zero := true
		for _, b := range ip[2:8] {
			if b != 0 {
				zero = false
				break
			}
		}
		if zero {
			return true
		}
	}
	// 2001:db8::/32 documentation prefix
	if ip[0] == 0x20 && ip[1] == 0x01 && ip[2] == 0x0d && ip[3] == 0xb8 {
		return true
	}

	return false
}
