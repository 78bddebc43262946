package receiver

import "golang.org/x/time/rate"

type Options struct {
	// Communities accepted. Nil or empty accepts every community.
	Communities []string

	RateLimit RateLimitOptions
	Dispatch  DispatchOptions

	// AcknowledgeInforms answers every accepted InformRequest with a
	// Response before it is handled.
	AcknowledgeInforms bool

	// Largest datagram read from the conn. Defaults to 65535.
	MaxDatagramSize uint
}

type RateLimitOptions struct {
	// Notifications per second. Notifications above the limit are dropped.
	// Zero means no limit.
	Limit rate.Limit
	// Defaults to 1.
	Burst int
}

type DispatchOptions struct {
	// Workers is the number of handlers running at once.
	// Zero starts one goroutine per notification.
	Workers uint
	// Backlog is the number of notifications waiting for a worker.
	// Zero means no bound. Only used with Workers.
	Backlog uint
}

func (o RateLimitOptions) burst() int {
	if o.Burst <= 0 {
		return 1
	}
	return o.Burst
}

func (o Options) maxDatagramSize() uint {
	if o.MaxDatagramSize == 0 {
		return 65535
	}
	return o.MaxDatagramSize
}
