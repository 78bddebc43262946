// Package udp implements [transport.PacketConn] over the operating system's UDP sockets.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc768
package udp

import (
	"net"
	"net/netip"
	"os"
	"strconv"
	"time"

	"snmp-stack/network"
	"snmp-stack/network/ip"
	"snmp-stack/transport"

	"github.com/pkg/errors"
)

type Addr struct {
	ipAddr ip.Addr // nil means any address.
	port   uint16
}

var _ transport.Addr = Addr{}

func NewAddr(ipAddr ip.Addr, port uint16) Addr {
	return Addr{ipAddr, port}
}

// ParseAddr parses "host:port" where host is an IP address or empty.
func ParseAddr(s string) (Addr, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Addr{}, errors.Wrapf(err, "splitting %q", s)
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Addr{}, errors.Wrapf(err, "parsing port of %q", s)
	}

	if host == "" {
		return NewAddr(nil, uint16(port)), nil
	}

	ipAddr, err := ip.Parse(host)
	if err != nil {
		return Addr{}, err
	}

	return NewAddr(ipAddr, uint16(port)), nil
}

// FromAddrPort converts ap. IPv4-mapped IPv6 addresses come out as IPv4.
func FromAddrPort(ap netip.AddrPort) Addr {
	ipAddr, ok := ip.FromRaw(ap.Addr().Unmap().AsSlice())
	if !ok {
		ipAddr = nil
	}
	return NewAddr(ipAddr, ap.Port())
}

func (a Addr) Port() uint16 { return a.port }
func (a Addr) IP() ip.Addr  { return a.ipAddr }
func (a Addr) Identifier() any {
	return a.port
}

func (a Addr) NetworkAddr() network.Addr {
	if a.ipAddr == nil {
		return nil
	}
	return a.ipAddr
}

func (a Addr) String() string {
	var net string
	if a.ipAddr != nil {
		net = a.ipAddr.String()
		if a.ipAddr.Version() == 6 {
			net = "[" + net + "]"
		}
	}

	return net + ":" + strconv.FormatUint(uint64(a.port), 10)
}

// UDPAddr converts a into the form the net package takes.
func (a Addr) UDPAddr() *net.UDPAddr {
	var netIP net.IP
	if a.ipAddr != nil {
		netIP = net.IP(a.ipAddr.Raw())
	}
	return &net.UDPAddr{IP: netIP, Port: int(a.port)}
}

type Conn struct {
	c *net.UDPConn
}

var _ transport.PacketConn = (*Conn)(nil)

// Listen binds a UDP socket on addr.
func Listen(addr Addr) (*Conn, error) {
	c, err := net.ListenUDP("udp", addr.UDPAddr())
	if err != nil {
		return nil, errors.Wrapf(convertErr(err), "listening on %s", addr)
	}
	return &Conn{c: c}, nil
}

type Binder struct{}

var _ transport.PacketBinder = Binder{}

func (Binder) Bind(addr transport.Addr) (transport.PacketConn, error) {
	a, ok := addr.(Addr)
	if !ok {
		return nil, errors.Wrapf(transport.ErrUnsupportedAddr, "binding %s", addr)
	}
	return Listen(a)
}

func (c *Conn) ReadFrom(p []byte) (n int, addr transport.Addr, err error) {
	n, ap, err := c.c.ReadFromUDPAddrPort(p)
	if err != nil {
		return 0, nil, convertErr(err)
	}
	return n, FromAddrPort(ap), nil
}

func (c *Conn) WriteTo(p []byte, addr transport.Addr) (n int, err error) {
	a, ok := addr.(Addr)
	if !ok {
		return 0, transport.ErrUnsupportedAddr
	}

	n, err = c.c.WriteToUDP(p, a.UDPAddr())
	return n, convertErr(err)
}

func (c *Conn) Close() error {
	return convertErr(c.c.Close())
}

func (c *Conn) LocalAddr() transport.Addr {
	return FromAddrPort(c.c.LocalAddr().(*net.UDPAddr).AddrPort())
}

func (c *Conn) SetReadDeadLine(t time.Time) {
	// Only fails on a closed socket, which the next read reports anyway.
	_ = c.c.SetReadDeadline(t)
}

func convertErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, net.ErrClosed):
		return transport.ErrConnClosed
	case errors.Is(err, os.ErrDeadlineExceeded):
		return transport.ErrDeadLineExceeded
	}
	return err
}
