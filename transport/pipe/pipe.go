// Package pipe implements an in-memory datagram network.
//
// Datagrams are delivered without loss while the receiver has room in its
// inbound queue, and dropped silently otherwise, like a full socket buffer.
// Writing to an address nobody is bound to also drops the datagram.
package pipe

import (
	"bytes"
	"sync"
	"time"

	"snmp-stack/lib/ds/queue"
	"snmp-stack/transport"

	"github.com/benbjohnson/clock"
)

type datagram struct {
	from    Addr
	payload []byte
}

type conn struct {
	network *Network
	addr    Addr
	release func()

	inbound *queue.Circular[datagram]
	mu      sync.Mutex // guards inbound

	notify chan struct{} // signalled when inbound gets a datagram

	closed    chan struct{}
	closeOnce sync.Once

	rdeadLine *chanDeadLine
}

var _ transport.PacketConn = (*conn)(nil)

func newConn(network *Network, addr Addr, release func()) *conn {
	return &conn{
		network:   network,
		addr:      addr,
		release:   release,
		inbound:   queue.NewCircular[datagram](network.opts.queueSize()),
		notify:    make(chan struct{}, 1),
		closed:    make(chan struct{}),
		rdeadLine: newChanDeadLine(network.clock),
	}
}

func (c *conn) LocalAddr() transport.Addr { return c.addr }

func (c *conn) ReadFrom(p []byte) (n int, addr transport.Addr, err error) {
	for {
		if err := c.checkReadOK(); err != nil {
			return 0, nil, err
		}

		if d, ok := c.dequeue(); ok {
			return copy(p, d.payload), d.from, nil
		}

		select {
		case <-c.notify:
		case <-c.closed:
			return 0, nil, transport.ErrConnClosed
		case <-c.rdeadLine.wait():
			return 0, nil, transport.ErrDeadLineExceeded
		}
	}
}

func (c *conn) WriteTo(p []byte, addr transport.Addr) (n int, err error) {
	if isClosed(c.closed) {
		return 0, transport.ErrConnClosed
	}

	dst, ok := addr.(Addr)
	if !ok {
		return 0, transport.ErrUnsupportedAddr
	}

	if peer := c.network.lookup(dst); peer != nil {
		peer.deliver(datagram{from: c.addr, payload: bytes.Clone(p)})
	}

	return len(p), nil
}

func (c *conn) Close() error {
	err := transport.ErrConnClosed
	c.closeOnce.Do(func() {
		close(c.closed)
		c.network.unbind(c)
		err = nil
	})
	return err
}

func (c *conn) SetReadDeadLine(t time.Time) { c.rdeadLine.set(t) }

func (c *conn) deliver(d datagram) {
	c.mu.Lock()
	ok := c.inbound.Enqueue(d)
	c.mu.Unlock()

	if ok {
		c.signal()
	}
}

func (c *conn) dequeue() (datagram, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.inbound.Dequeue()
	if err != nil {
		return datagram{}, false
	}
	if c.inbound.Len() > 0 {
		// Wake up another reader for the rest.
		c.signal()
	}
	return d, true
}

func (c *conn) signal() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *conn) checkReadOK() error {
	switch {
	case isClosed(c.closed):
		return transport.ErrConnClosed
	case isClosed(c.rdeadLine.wait()):
		return transport.ErrDeadLineExceeded
	}
	return nil
}

type chanDeadLine struct {
	clock clock.Clock

	t *clock.Timer
	m sync.Mutex

	closed chan struct{}
}

func newChanDeadLine(clock clock.Clock) *chanDeadLine {
	return &chanDeadLine{
		clock:  clock,
		closed: make(chan struct{}),
	}
}

func (d *chanDeadLine) set(t time.Time) {
	d.m.Lock()
	defer d.m.Unlock()

	if d.t != nil && !d.t.Stop() {
		// Timer already fired, or is about to close the old channel.
		d.closed = make(chan struct{})
	}
	d.t = nil

	if isClosed(d.closed) {
		d.closed = make(chan struct{})
	}

	if t.IsZero() {
		// zero value means no limit.
		return
	}

	ch := d.closed
	if !t.After(d.clock.Now()) {
		close(ch)
		return
	}

	d.t = d.clock.AfterFunc(d.clock.Until(t), func() {
		close(ch)
	})
}

func (d *chanDeadLine) wait() <-chan struct{} {
	d.m.Lock()
	defer d.m.Unlock()
	return d.closed
}

func isClosed(c <-chan struct{}) bool {
	select {
	case <-c: // c will only fire at closed state.
		return true
	default:
		return false
	}
}
