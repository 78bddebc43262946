package transport

import "snmp-stack/network"

type Protocol string

const (
	UDP Protocol = "udp"
)

type Addr interface {
	// NetworkAddr returns the network-layer part of the address.
	// It is nil for addresses that don't carry one.
	NetworkAddr() network.Addr
	Identifier() any // Extra identifier (e.g. port)
	String() string
}
