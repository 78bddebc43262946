// Package receiver listens for SNMP notifications.
//
// Traps and informs are filtered by community, optionally rate limited, and
// handed to a [HandleFunc] without blocking the read loop.
package receiver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"snmp-stack/application/snmp"
	"snmp-stack/application/snmp/actor/common"
	sliceutil "snmp-stack/lib/slice"
	"snmp-stack/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// HandleFunc handles one notification. Panics are recovered and logged.
// ctx is cancelled when the receiver closes.
type HandleFunc func(ctx context.Context, host string, port int, msg *snmp.Message)

type Receiver struct {
	conn  transport.PacketConn
	codec snmp.Codec

	handle      HandleFunc
	communities map[string]struct{}
	limiter     *rate.Limiter // nil means no limit.
	dispatcher  dispatcher

	opts Options

	logger *slog.Logger
	clock  clock.Clock

	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New makes a receiver reading from conn. Nothing is read until Start.
// The receiver owns conn from now on.
func New(
	conn transport.PacketConn,
	codec snmp.Codec,
	logger *slog.Logger,
	clock clock.Clock,
	handle HandleFunc,
	opts Options,
) *Receiver {
	ctx, cancel := context.WithCancel(context.Background())

	r := &Receiver{
		conn:        conn,
		codec:       codec,
		handle:      handle,
		communities: sliceutil.Set(opts.Communities),
		opts:        opts,
		logger:      logger.With("local", conn.LocalAddr().String()),
		clock:       clock,
		ctx:         ctx,
		cancel:      cancel,
	}

	if opts.RateLimit.Limit > 0 && opts.RateLimit.Limit != rate.Inf {
		r.limiter = rate.NewLimiter(opts.RateLimit.Limit, opts.RateLimit.burst())
	}

	r.dispatcher = newDispatcher(opts.Dispatch, r.run)

	return r
}

func (r *Receiver) Start() {
	r.startOnce.Do(func() {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.readLoop()
		}()
	})
}

// Close stops reading and waits for running handlers to return.
func (r *Receiver) Close() error {
	r.closeOnce.Do(func() {
		r.cancel()
		if err := r.conn.Close(); err != nil && !errors.Is(err, transport.ErrConnClosed) {
			r.logger.Error("error when closing conn", "error", err.Error())
		}
		r.wg.Wait()
		r.dispatcher.close()
	})
	return nil
}

func (r *Receiver) readLoop() {
	buf := make([]byte, r.opts.maxDatagramSize())
	for {
		n, from, err := r.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, transport.ErrDeadLineExceeded) {
				continue
			}
			if !errors.Is(err, transport.ErrConnClosed) {
				r.logger.Error("unexpected error when reading datagram", "error", err.Error())
			}
			return
		}

		r.handleDatagram(buf[:n], from)
	}
}

func (r *Receiver) handleDatagram(b []byte, from transport.Addr) {
	logger := r.logger.With("from", from.String())

	if len(b) == 0 {
		logger.Debug("dropping empty datagram")
		return
	}

	msg, err := r.codec.Decode(b)
	if err != nil || msg == nil {
		logger.Debug("dropping undecodable datagram", "error", errString(err))
		return
	}

	if !msg.PDU.Type.IsNotification() {
		logger.Debug("dropping non-notification PDU", "type", msg.PDU.Type.String())
		return
	}

	if !r.accepts(msg.Community) {
		logger.Debug("dropping notification with unaccepted community")
		return
	}

	if r.limiter != nil && !r.limiter.AllowN(r.clock.Now(), 1) {
		logger.Warn("rate limit exceeded, dropping notification")
		return
	}

	if msg.PDU.Type == snmp.PDUInformRequest && r.opts.AcknowledgeInforms {
		r.acknowledge(logger, msg, from)
	}

	host, port := common.HostPort(from)
	if !r.dispatcher.dispatch(notification{host: host, port: port, msg: msg}) {
		logger.Warn("backlog is full, dropping notification")
	}
}

func (r *Receiver) accepts(community string) bool {
	if len(r.communities) == 0 {
		return true
	}
	_, ok := r.communities[community]
	return ok
}

func (r *Receiver) acknowledge(logger *slog.Logger, inform *snmp.Message, to transport.Addr) {
	ack := &snmp.Message{
		Version:   inform.Version,
		Community: inform.Community,
		PDU: snmp.PDU{
			Type:      snmp.PDUResponse,
			RequestID: inform.PDU.RequestID,
			Varbinds:  inform.PDU.Varbinds,
		},
	}

	b, err := r.codec.Encode(ack)
	if err != nil {
		logger.Warn("failed to encode inform acknowledgement", "error", err.Error())
		return
	}

	if _, err := r.conn.WriteTo(b, to); err != nil {
		logger.Warn("failed to acknowledge inform", "error", err.Error())
	}
}

func (r *Receiver) run(n notification) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("notification handler panicked",
				"from", common.PeerKey{Host: n.host, Port: n.port}.String(),
				"panic", fmt.Sprint(p),
			)
		}
	}()

	r.handle(r.ctx, n.host, n.port, n.msg)
}

func errString(err error) string {
	if err == nil {
		return "nil message"
	}
	return err.Error()
}
