package common

import (
	"net"
	"strconv"

	"snmp-stack/network/ip"
	"snmp-stack/transport"
)

// PeerKey identifies a remote endpoint independently of how its address
// was spelled. IPv4-mapped IPv6 addresses key the same as their IPv4 form.
type PeerKey struct {
	Host string
	Port int // -1 if the transport has no port.
}

func PeerKeyOf(addr transport.Addr) PeerKey {
	host, port := HostPort(addr)
	return PeerKey{Host: host, Port: port}
}

func (k PeerKey) String() string {
	if k.Port < 0 {
		return k.Host
	}
	return net.JoinHostPort(k.Host, strconv.Itoa(k.Port))
}

// HostPort splits addr into a canonical host and a port.
// Addresses without a network address use their whole string form as
// host and -1 as port.
func HostPort(addr transport.Addr) (host string, port int) {
	na := addr.NetworkAddr()
	if na == nil {
		return addr.String(), -1
	}

	port = -1
	switch id := addr.Identifier().(type) {
	case uint16:
		port = int(id)
	case int:
		port = id
	}

	ipAddr, ok := ip.FromRaw(na.Raw())
	if !ok {
		return na.String(), port
	}

	return ip.Unmap(ipAddr).String(), port
}
