package network

// Addr is a network-layer address.
type Addr interface {
	String() string
	// Raw returns the address in its binary form.
	Raw() []byte
}
