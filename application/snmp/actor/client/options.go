package client

import (
	"time"

	"snmp-stack/application/snmp"
)

type Options struct {
	Request RequestOptions
	Retry   RetryOptions
	Receive ReceiveOptions
}

// RequestOptions fills the envelope of requests made by
// Get, GetNext, GetBulk and Set.
type RequestOptions struct {
	Version snmp.Version
	// Defaults to "public".
	Community string
}

// RetryOptions is the policy of Get, GetNext, GetBulk and Set.
// Every attempt waits Timeout, and there is no backoff between attempts.
type RetryOptions struct {
	// Defaults to 5 seconds.
	Timeout time.Duration
	// Number of transmissions, including the first one. Defaults to 6.
	Retries int
}

type ReceiveOptions struct {
	// Largest datagram read from the conn. Defaults to 65535.
	MaxDatagramSize uint
}

func (o RequestOptions) community() string {
	if o.Community == "" {
		return "public"
	}
	return o.Community
}

func (o RetryOptions) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 5 * time.Second
	}
	return o.Timeout
}

func (o RetryOptions) retries() int {
	if o.Retries <= 0 {
		return 6
	}
	return o.Retries
}

func (o ReceiveOptions) maxDatagramSize() uint {
	if o.MaxDatagramSize == 0 {
		return 65535
	}
	return o.MaxDatagramSize
}
