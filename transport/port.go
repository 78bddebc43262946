package transport

import (
	"sync"

	"github.com/pkg/errors"
)

// PortTable tracks the ports in use on a single host.
type PortTable struct {
	table map[uint16]struct{}
	mu    sync.Mutex

	ephemeral  [2]uint16 // start, end
	rand       func() uint16
	maxRandTry uint
}

type EphemeralPortOptions struct {
	Range  [2]uint16 // [start, end)
	Rand   func() uint16
	MaxTry uint
}

// DefaultEphemeralPortOptions follows the IANA dynamic port range.
func DefaultEphemeralPortOptions(rand func() uint16) EphemeralPortOptions {
	return EphemeralPortOptions{
		Range:  [2]uint16{49152, 65535},
		Rand:   rand,
		MaxTry: 64,
	}
}

func (o EphemeralPortOptions) validate() error {
	if o.Range[0] > o.Range[1] {
		return errors.Errorf("end(%d) must be greater or equal than start(%d)", o.Range[1], o.Range[0])
	}
	if o.Rand == nil {
		return errors.New("rand function must be provided")
	}
	return nil
}

func NewPortTable(opts EphemeralPortOptions) *PortTable {
	if err := opts.validate(); err != nil {
		panic(err)
	}

	return &PortTable{
		table:      make(map[uint16]struct{}),
		ephemeral:  opts.Range,
		rand:       opts.Rand,
		maxRandTry: opts.MaxTry,
	}
}

// Occupy reserves port, or an ephemeral port when port is 0.
// The returned release function frees the port. It is safe to call it more than once.
func (p *PortTable) Occupy(port uint16) (result uint16, release func(), err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if port == 0 {
		return p.occupyEphemeralLocked()
	}

	release, ok := p.occupyLocked(port)
	if !ok {
		return 0, nil, errors.Wrapf(ErrAddrAlreadyInUse, "port %d", port)
	}

	return port, release, nil
}

// InUse reports whether port is currently occupied.
func (p *PortTable) InUse(port uint16) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, found := p.table[port]
	return found
}

func (p *PortTable) occupyEphemeralLocked() (uint16, func(), error) {
	if p.ephemeral[0] == p.ephemeral[1] {
		return 0, nil, errors.Wrap(ErrAddrNotAvailable, "ephemeral range is empty")
	}

	for try := uint(0); try < p.maxRandTry; try++ {
		port := p.selectEphemeral()

		if port == 0 {
			continue
		}

		if release, ok := p.occupyLocked(port); ok {
			return port, release, nil
		}
	}

	return 0, nil, errors.Wrapf(ErrAddrNotAvailable, "no free ephemeral port after %d tries", p.maxRandTry)
}

func (p *PortTable) occupyLocked(port uint16) (release func(), ok bool) {
	if _, found := p.table[port]; found {
		return nil, false
	}

	p.table[port] = struct{}{}

	var once sync.Once
	release = func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.table, port)
		})
	}

	return release, true
}

func (p *PortTable) selectEphemeral() uint16 {
	gap := p.ephemeral[1] - p.ephemeral[0]
	selected := p.ephemeral[0] + (p.rand() % gap)
	return selected
}
