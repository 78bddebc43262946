package snmptest

import (
	"sync"

	"snmp-stack/application/snmp"
	"snmp-stack/transport"

	"github.com/pkg/errors"
)

// Responder returns the replies an [Agent] sends back for req.
// Returning nil leaves the request unanswered.
type Responder func(req *snmp.Message) []*snmp.Message

type Request struct {
	From    transport.Addr
	Message *snmp.Message
}

// Agent answers requests arriving on conn with a [Responder].
type Agent struct {
	conn    transport.PacketConn
	codec   snmp.Codec
	respond Responder

	mu       sync.Mutex
	received []Request

	wg sync.WaitGroup
}

func NewAgent(conn transport.PacketConn, codec snmp.Codec, respond Responder) *Agent {
	a := &Agent{conn: conn, codec: codec, respond: respond}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.serve()
	}()

	return a
}

func (a *Agent) serve() {
	buf := make([]byte, 65535)
	for {
		n, from, err := a.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, transport.ErrConnClosed) {
				return
			}
			continue
		}

		req, err := a.codec.Decode(buf[:n])
		if err != nil {
			continue
		}

		a.mu.Lock()
		a.received = append(a.received, Request{From: from, Message: req})
		a.mu.Unlock()

		for _, reply := range a.respond(req) {
			b, err := a.codec.Encode(reply)
			if err != nil {
				continue
			}
			_, _ = a.conn.WriteTo(b, from)
		}
	}
}

// Received returns the requests seen so far.
func (a *Agent) Received() []Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Request(nil), a.received...)
}

func (a *Agent) Addr() transport.Addr { return a.conn.LocalAddr() }

func (a *Agent) Close() {
	_ = a.conn.Close()
	a.wg.Wait()
}

// Reply makes a Response to req.
func Reply(req *snmp.Message, status snmp.ErrorStatus, index int, varbinds ...snmp.Varbind) *snmp.Message {
	if varbinds == nil {
		varbinds = req.PDU.Varbinds
	}
	return &snmp.Message{
		Version:   req.Version,
		Community: req.Community,
		PDU: snmp.PDU{
			Type:        snmp.PDUResponse,
			RequestID:   req.PDU.RequestID,
			ErrorStatus: status,
			ErrorIndex:  index,
			Varbinds:    varbinds,
		},
	}
}

// Echo answers every request with its own varbinds.
func Echo(req *snmp.Message) []*snmp.Message {
	return []*snmp.Message{Reply(req, snmp.NoError, 0)}
}

// Silent never answers.
func Silent(*snmp.Message) []*snmp.Message { return nil }
