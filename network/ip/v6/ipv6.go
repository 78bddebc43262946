package ipv6

import (
	"net/netip"
	"strconv"
	"strings"

	ipv4 "snmp-stack/network/ip/v4"

	"github.com/pkg/errors"
)

type Addr [16]byte

var v4MappedPrefix = [12]byte{10: 0xFF, 11: 0xFF}

func ParseAddr(s string) (Addr, error) {
	before, after, found := strings.Cut(s, "::")
	var addr Addr

	if !found {
		// Two colons not found. parse the whole string.
		addrBytes, err := parseAddrFrag(before, true)
		if err != nil {
			return Addr{}, err
		}
		if len(addrBytes) != 16 {
			return Addr{}, errors.New("length of address is not 128bit")
		}

		copy(addr[:], addrBytes)

		return addr, nil
	}

	// Two colons found. parse each of them and combine them.
	frag1, err1 := parseAddrFrag(before, false)
	frag2, err2 := parseAddrFrag(after, true)
	if err1 != nil || err2 != nil {
		if err1 != nil {
			return Addr{}, errors.Wrap(err1, "parsing fragment before ::")
		} else {
			return Addr{}, errors.Wrap(err2, "parsing fragment after ::")
		}
	}

	if len(frag1)+len(frag2) > 14 {
		// At least 2 bytes should be ommited.
		return Addr{}, errors.New("ipv6 address too long")
	}

	// copy first len(frag1) bytes.
	copy(addr[:len(frag1)], frag1)
	// copy last len(frag2) bytes.
	copy(addr[len(addr)-len(frag2):], frag2)

	return addr, nil
}

func parseAddrFrag(s string, isLast bool) ([]byte, error) {
	if s == "" {
		return []byte{}, nil
	}

	h16s := strings.Split(s, ":")

	addr := make([]byte, 0, len(h16s)*2+2)
	for idx, h16 := range h16s {
		if h16 == "" {
			// 0:::, 0::0::
			return nil, errors.New("invalid use of colon seperator")
		}

		if isLast && idx == len(h16s)-1 && strings.Contains(h16, ".") {
			// Only the very last piece may be an embedded ipv4 address.
			addrV4, err := ipv4.ParseAddr(h16)
			if err != nil {
				return nil, errors.Wrap(err,
					"non-hex item found on the last index, but wasn't ipv4 address",
				)
			}
			addr = append(addr, addrV4[:]...)
			continue
		}

		if len(h16) > 4 {
			return nil, errors.Errorf("group %q has more than 4 hex digits", h16)
		}

		n, err := strconv.ParseUint(h16, 16, 16)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse hex")
		}

		addr = append(addr, byte(n>>8), byte(n&0xFF))
	}

	return addr, nil
}

func (a Addr) Version() uint { return 6 }
func (a Addr) Raw() []byte   { return a[:] }

// String formats the address in its canonical form (RFC 5952).
func (a Addr) String() string {
	return netip.AddrFrom16(a).String()
}

// IsV4Mapped reports whether a is an IPv4-mapped address (::ffff:a.b.c.d).
func (a Addr) IsV4Mapped() bool {
	return [12]byte(a[:12]) == v4MappedPrefix
}

// V4 returns the last 4 bytes as an IPv4 address.
// It is only meaningful when [Addr.IsV4Mapped] holds.
func (a Addr) V4() ipv4.Addr {
	return ipv4.Addr(a[12:])
}
