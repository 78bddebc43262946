package pipe

import (
	"math/rand/v2"
	"net"
	"strconv"
	"sync"

	"snmp-stack/network"
	"snmp-stack/network/ip"
	"snmp-stack/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Addr addresses an endpoint on a [Network].
// Host may be an IP address or any other name.
type Addr struct {
	Host string
	Port uint16
}

var _ transport.Addr = Addr{}

func (a Addr) NetworkAddr() network.Addr {
	if addr, err := ip.Parse(a.Host); err == nil {
		return addr
	}
	return nil
}

func (a Addr) Identifier() any { return a.Port }

func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.FormatUint(uint64(a.Port), 10))
}

type Options struct {
	// QueueSize is the number of datagrams an endpoint buffers before
	// dropping. Defaults to 64.
	QueueSize uint
}

func (o Options) queueSize() uint {
	if o.QueueSize == 0 {
		return 64
	}
	return o.QueueSize
}

type Network struct {
	clock clock.Clock
	opts  Options

	hosts map[string]*transport.PortTable
	conns map[Addr]*conn
	mu    sync.Mutex
}

var _ transport.PacketBinder = (*Network)(nil)

func NewNetwork(clock clock.Clock, opts Options) *Network {
	return &Network{
		clock: clock,
		opts:  opts,
		hosts: make(map[string]*transport.PortTable),
		conns: make(map[Addr]*conn),
	}
}

func (n *Network) Bind(addr transport.Addr) (transport.PacketConn, error) {
	a, ok := addr.(Addr)
	if !ok {
		return nil, errors.Wrapf(transport.ErrUnsupportedAddr, "binding %s", addr)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	table, ok := n.hosts[a.Host]
	if !ok {
		table = transport.NewPortTable(transport.DefaultEphemeralPortOptions(randPort))
		n.hosts[a.Host] = table
	}

	port, release, err := table.Occupy(a.Port)
	if err != nil {
		return nil, errors.Wrapf(err, "binding %s", a)
	}

	local := Addr{Host: a.Host, Port: port}
	c := newConn(n, local, release)
	n.conns[local] = c

	return c, nil
}

func (n *Network) lookup(addr Addr) *conn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conns[addr]
}

func (n *Network) unbind(c *conn) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conns[c.addr] == c {
		delete(n.conns, c.addr)
	}
	c.release()
}

func randPort() uint16 { return uint16(rand.Uint32()) }
