package peers

import (
	"fmt"
	"net"
	"time"

	"github.com/razeblock/raze/src/raze"
)

// Peer is one UDP endpoint in the overlay, with the timestamps the
// maintenance loops order on.
type Peer struct {
	Endpoint             Endpoint
	LastContact          time.Time
	LastAttempt          time.Time
	LastBootstrapAttempt time.Time
	LastRepRequest       time.Time
	LastRepResponse      time.Time
	RepAccount           raze.Account
	RepWeight            raze.Amount
	NetworkVersion       byte
}

// Endpoint is a normalized address. IPv4 addresses are kept in their
// v4-mapped IPv6 form so the same host never appears twice.
type Endpoint struct {
	IP   [16]byte
	Port uint16
}

// MakeEndpoint normalizes an address into an Endpoint.
func MakeEndpoint(ip net.IP, port uint16) Endpoint {
	var e Endpoint
	copy(e.IP[:], ip.To16())
	e.Port = port
	return e
}

// EndpointFromUDPAddr normalizes a UDP address.
func EndpointFromUDPAddr(addr *net.UDPAddr) Endpoint {
	return MakeEndpoint(addr.IP, uint16(addr.Port))
}

// UDPAddr converts the endpoint back for the socket layer.
func (e Endpoint) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{
		IP:   net.IP(e.IP[:]),
		Port: int(e.Port),
	}
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", net.IP(e.IP[:]), e.Port)
}

// IsZero reports whether the endpoint is unset.
func (e Endpoint) IsZero() bool {
	return e == Endpoint{}
}
