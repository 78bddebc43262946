package transport

import (
	"time"

	"github.com/pkg/errors"
)

var (
	ErrConnClosed       = errors.New("connection is closed")
	ErrDeadLineExceeded = errors.New("deadline exceeded")
	ErrAddrAlreadyInUse = errors.New("address already in use")
	ErrAddrNotAvailable = errors.New("no address available")
	ErrUnsupportedAddr  = errors.New("unsupported address type")
)

// PacketConn is a datagram endpoint bound to a local address.
//
// Every ReadFrom returns exactly one datagram. A datagram longer than p is
// truncated. WriteTo is safe for concurrent use.
type PacketConn interface {
	ReadFrom(p []byte) (n int, addr Addr, err error)
	WriteTo(p []byte, addr Addr) (n int, err error)
	Close() error

	LocalAddr() Addr

	SetReadDeadLine(t time.Time)
}

type PacketBinder interface {
	// Bind opens a [PacketConn] on addr.
	// A zero port asks for an ephemeral one.
	Bind(addr Addr) (PacketConn, error)
}
