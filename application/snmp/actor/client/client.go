// Package client implements the requesting side of SNMP.
//
// Many requests can be in flight on one conn at once. Replies are matched
// to their caller by sender and request id.
package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"snmp-stack/application/snmp"
	"snmp-stack/application/snmp/actor/common"
	sliceutil "snmp-stack/lib/slice"
	"snmp-stack/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var (
	ErrClientClosed       = errors.New("client closed")
	ErrRequestInFlight    = errors.New("request already in flight")
	ErrInvalidPolicy      = errors.New("invalid retry policy")
	ErrUnsupportedVersion = errors.New("operation not supported by version")

	errMalformedReply = errors.New("malformed reply")
)

type Client struct {
	conn  transport.PacketConn
	codec snmp.Codec

	pending *pendingTable
	ids     *requestIDs

	opts Options

	logger *slog.Logger
	clock  clock.Clock

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New starts reading replies from conn. The client owns conn from now on.
func New(
	conn transport.PacketConn,
	codec snmp.Codec,
	logger *slog.Logger,
	clock clock.Clock,
	opts Options,
) *Client {
	c := &Client{
		conn:    conn,
		codec:   codec,
		pending: newPendingTable(),
		ids:     newRequestIDs(),
		opts:    opts,
		logger:  logger.With("local", conn.LocalAddr().String()),
		clock:   clock,
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.readLoop()
	}()

	return c
}

// Send transmits msg to addr up to retries times, waiting timeout for a
// reply after each transmission.
//
// msg.PDU.RequestID must not be in flight to the same peer.
// A nonzero error status in the reply is returned as *snmp.ProtocolError.
// When no reply arrives, the error is snmp.ErrTimeout.
func (c *Client) Send(
	ctx context.Context,
	addr transport.Addr,
	msg *snmp.Message,
	timeout time.Duration,
	retries int,
) ([]snmp.Varbind, error) {
	if retries <= 0 || timeout <= 0 {
		return nil, errors.Wrapf(ErrInvalidPolicy, "timeout %s, retries %d", timeout, retries)
	}

	b, err := c.codec.Encode(msg)
	if err != nil {
		return nil, errors.Wrap(err, "encoding request")
	}

	key := pendingKey{peer: common.PeerKeyOf(addr), requestID: msg.PDU.RequestID}
	logger := c.logger.With("peer", key.peer.String(), "request_id", key.requestID)

	req, release, err := c.pending.register(key)
	if err != nil {
		if errors.Is(err, ErrRequestInFlight) {
			logger.Error("request id is already in flight")
		}
		return nil, err
	}
	defer release()

	for attempt := 1; attempt <= retries; attempt++ {
		// Armed before transmitting so that a reply can never beat the timer.
		timer := c.clock.Timer(timeout)

		if _, err := c.conn.WriteTo(b, addr); err != nil {
			logger.Warn("failed to transmit request", "attempt", attempt, "error", err.Error())
		}

		select {
		case <-req.done:
			timer.Stop()
			return req.res.varbinds, req.res.err
		case <-timer.C:
			logger.Debug("attempt timed out", "attempt", attempt)
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	select {
	case <-req.done:
		// Resolved while the last timer fired.
		return req.res.varbinds, req.res.err
	default:
	}

	return nil, errors.Wrapf(snmp.ErrTimeout, "%s after %d attempts", key.peer, retries)
}

func (c *Client) Get(ctx context.Context, addr transport.Addr, oids ...snmp.OID) ([]snmp.Varbind, error) {
	return c.request(ctx, addr, snmp.PDU{
		Type:     snmp.PDUGetRequest,
		Varbinds: nullVarbinds(oids),
	})
}

func (c *Client) GetNext(ctx context.Context, addr transport.Addr, oids ...snmp.OID) ([]snmp.Varbind, error) {
	return c.request(ctx, addr, snmp.PDU{
		Type:     snmp.PDUGetNextRequest,
		Varbinds: nullVarbinds(oids),
	})
}

// GetBulk needs SNMPv2c.
func (c *Client) GetBulk(
	ctx context.Context,
	addr transport.Addr,
	nonRepeaters, maxRepetitions int,
	oids ...snmp.OID,
) ([]snmp.Varbind, error) {
	if c.opts.Request.Version == snmp.Version1 {
		return nil, errors.Wrap(ErrUnsupportedVersion, "GetBulkRequest on SNMPv1")
	}

	return c.request(ctx, addr, snmp.PDU{
		Type:           snmp.PDUGetBulkRequest,
		NonRepeaters:   nonRepeaters,
		MaxRepetitions: maxRepetitions,
		Varbinds:       nullVarbinds(oids),
	})
}

func (c *Client) Set(ctx context.Context, addr transport.Addr, varbinds ...snmp.Varbind) ([]snmp.Varbind, error) {
	return c.request(ctx, addr, snmp.PDU{
		Type:     snmp.PDUSetRequest,
		Varbinds: varbinds,
	})
}

func (c *Client) request(ctx context.Context, addr transport.Addr, pdu snmp.PDU) ([]snmp.Varbind, error) {
	pdu.RequestID = c.ids.next()

	msg := &snmp.Message{
		Version:   c.opts.Request.Version,
		Community: c.opts.Request.community(),
		PDU:       pdu,
	}

	return c.Send(ctx, addr, msg, c.opts.Retry.timeout(), c.opts.Retry.retries())
}

// Close fails every request in flight with ErrClientClosed.
func (c *Client) Close() error {
	c.shutdown()
	c.wg.Wait()
	return nil
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		if err := c.conn.Close(); err != nil && !errors.Is(err, transport.ErrConnClosed) {
			c.logger.Error("error when closing conn", "error", err.Error())
		}
		c.pending.closeAll(ErrClientClosed)
	})
}

func (c *Client) readLoop() {
	buf := make([]byte, c.opts.Receive.maxDatagramSize())
	for {
		n, from, err := c.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, transport.ErrDeadLineExceeded) {
				continue
			}
			if !errors.Is(err, transport.ErrConnClosed) {
				c.logger.Error("unexpected error when reading datagram", "error", err.Error())
			}
			c.shutdown()
			return
		}

		c.handleDatagram(buf[:n], from)
	}
}

func (c *Client) handleDatagram(b []byte, from transport.Addr) {
	logger := c.logger.With("from", from.String())

	msg, err := c.codec.Decode(b)
	if err != nil || msg == nil {
		logger.Debug("dropping undecodable datagram", "error", errString(err))
		return
	}

	if !msg.PDU.Type.IsReply() {
		logger.Debug("dropping non-reply PDU", "type", msg.PDU.Type.String())
		return
	}

	res, err := toResult(&msg.PDU)
	if err != nil {
		logger.Debug("dropping reply", "error", err.Error())
		return
	}

	key := pendingKey{peer: common.PeerKeyOf(from), requestID: msg.PDU.RequestID}
	if !c.pending.resolve(key, res) {
		logger.Debug("dropping reply without pending request", "request_id", key.requestID)
	}
}

func toResult(pdu *snmp.PDU) (result, error) {
	if pdu.ErrorStatus == snmp.NoError {
		return result{varbinds: pdu.Varbinds}, nil
	}

	var oid snmp.OID
	switch idx := pdu.ErrorIndex; {
	case idx == 0:
		// Agent did not blame any varbind.
	case idx >= 1 && idx <= len(pdu.Varbinds):
		oid = pdu.Varbinds[idx-1].OID
	default:
		return result{}, errors.Wrapf(errMalformedReply,
			"error index %d out of range of %d varbinds", idx, len(pdu.Varbinds))
	}

	perr, ok := snmp.NewProtocolError(pdu.ErrorStatus, pdu.ErrorIndex, oid)
	if !ok {
		return result{}, errors.Wrapf(errMalformedReply, "unknown error status %d", pdu.ErrorStatus)
	}

	return result{err: perr}, nil
}

func nullVarbinds(oids []snmp.OID) []snmp.Varbind {
	return sliceutil.Map(oids, func(oid snmp.OID) snmp.Varbind {
		return snmp.Varbind{OID: oid}
	})
}

func errString(err error) string {
	if err == nil {
		return "nil message"
	}
	return err.Error()
}
