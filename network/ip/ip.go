package ip

import (
	"strings"

	"snmp-stack/network"
	ipv4 "snmp-stack/network/ip/v4"
	ipv6 "snmp-stack/network/ip/v6"

	"github.com/pkg/errors"
)

type Addr interface {
	network.Addr

	Version() uint
}

var (
	_ Addr = ipv4.Addr{}
	_ Addr = ipv6.Addr{}
)

// Parse parses either an IPv4 or an IPv6 address in text form.
// An IPv6 zone (fe80::1%eth0) is accepted and discarded.
func Parse(s string) (Addr, error) {
	host, _, _ := strings.Cut(s, "%")

	if addr, err := ipv4.ParseAddr(host); err == nil {
		return addr, nil
	}
	addr, err := ipv6.ParseAddr(host)
	if err != nil {
		return nil, errors.Wrapf(err, "%q is neither ipv4 nor ipv6 address", s)
	}
	return addr, nil
}

// FromRaw converts the binary form of an address back into [Addr].
// Only 4 and 16 byte inputs are addresses.
func FromRaw(raw []byte) (Addr, bool) {
	switch len(raw) {
	case 4:
		var addr ipv4.Addr
		copy(addr[:], raw)
		return addr, true
	case 16:
		var addr ipv6.Addr
		copy(addr[:], raw)
		return addr, true
	}
	return nil, false
}

// Unmap returns the embedded IPv4 address of an IPv4-mapped IPv6 address.
// Any other address is returned as is.
func Unmap(addr Addr) Addr {
	if v6, ok := addr.(ipv6.Addr); ok && v6.IsV4Mapped() {
		return v6.V4()
	}
	return addr
}
