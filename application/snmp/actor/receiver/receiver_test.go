package receiver

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"snmp-stack/application/snmp"
	"snmp-stack/application/snmp/snmptest"
	"snmp-stack/transport"
	"snmp-stack/transport/pipe"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type received struct {
	host string
	port int
	msg  *snmp.Message
}

type ReceiverTestSuite struct {
	suite.Suite

	clock   *clock.Mock
	network *pipe.Network
	codec   snmptest.JSONCodec
	logger  *slog.Logger

	addr   pipe.Addr
	sender transport.PacketConn

	got      chan received
	receiver *Receiver
}

func TestReceiverTestSuite(t *testing.T) {
	suite.Run(t, new(ReceiverTestSuite))
}

func (s *ReceiverTestSuite) SetupTest() {
	s.clock = clock.NewMock()
	s.network = pipe.NewNetwork(s.clock, pipe.Options{})
	s.logger = slog.New(slog.DiscardHandler)
	s.addr = pipe.Addr{Host: "10.0.0.9", Port: 162}
	s.got = make(chan received, 64)
	s.receiver = nil

	var err error
	s.sender, err = s.network.Bind(pipe.Addr{Host: "10.0.0.1", Port: 5000})
	s.Require().NoError(err)
}

func (s *ReceiverTestSuite) TearDownTest() {
	if s.receiver != nil {
		s.receiver.Close()
	}
	s.sender.Close()
	goleak.VerifyNone(s.T())
}

func (s *ReceiverTestSuite) record(_ context.Context, host string, port int, msg *snmp.Message) {
	s.got <- received{host: host, port: port, msg: msg}
}

func (s *ReceiverTestSuite) start(handle HandleFunc, opts Options) {
	conn, err := s.network.Bind(s.addr)
	s.Require().NoError(err)

	s.receiver = New(conn, s.codec, s.logger, s.clock, handle, opts)
	s.receiver.Start()
}

func (s *ReceiverTestSuite) send(msg *snmp.Message) {
	b, err := s.codec.Encode(msg)
	s.Require().NoError(err)
	s.sendRaw(b)
}

func (s *ReceiverTestSuite) sendRaw(b []byte) {
	_, err := s.sender.WriteTo(b, s.addr)
	s.Require().NoError(err)
}

func (s *ReceiverTestSuite) next() received {
	select {
	case r := <-s.got:
		return r
	case <-time.After(time.Second):
		s.FailNow("no notification handled")
	}
	return received{}
}

func (s *ReceiverTestSuite) assertNoMore() {
	select {
	case r := <-s.got:
		s.Failf("unexpected notification", "%+v", r.msg)
	default:
	}
}

func makeNotification(typ snmp.PDUType, community string, requestID int32) *snmp.Message {
	return &snmp.Message{
		Version:   snmp.Version2c,
		Community: community,
		PDU: snmp.PDU{
			Type:      typ,
			RequestID: requestID,
			Varbinds: []snmp.Varbind{
				{OID: "1.3.6.1.2.1.1.3.0", Value: int64(1200)},
				{OID: "1.3.6.1.6.3.1.1.4.1.0", Value: "1.3.6.1.6.3.1.1.5.3"},
			},
		},
	}
}

func (s *ReceiverTestSuite) TestDispatch() {
	s.start(s.record, Options{})

	msg := makeNotification(snmp.PDUTrapV2, "public", 1)
	s.send(msg)

	r := s.next()
	s.Equal("10.0.0.1", r.host)
	s.Equal(5000, r.port)
	s.Equal(msg, r.msg)
}

func (s *ReceiverTestSuite) TestNotificationTypes() {
	s.start(s.record, Options{})

	for _, typ := range []snmp.PDUType{snmp.PDUTrap, snmp.PDUTrapV2, snmp.PDUInformRequest} {
		s.send(makeNotification(typ, "public", 1))
		s.Equal(typ, s.next().msg.PDU.Type)
	}

	for _, typ := range []snmp.PDUType{
		snmp.PDUGetRequest, snmp.PDUGetNextRequest, snmp.PDUResponse,
		snmp.PDUSetRequest, snmp.PDUGetBulkRequest, snmp.PDUReport,
	} {
		s.send(makeNotification(typ, "public", 1))
	}
	s.sendRaw(nil)
	s.sendRaw([]byte("garbage"))

	// Datagrams are read in order. Once the marker is handled, everything
	// before it has been dropped.
	s.send(makeNotification(snmp.PDUTrapV2, "public", 99))
	s.Equal(int32(99), s.next().msg.PDU.RequestID)
	s.assertNoMore()
}

func (s *ReceiverTestSuite) TestCommunityFilter() {
	s.start(s.record, Options{Communities: []string{"public", "ops"}})

	s.send(makeNotification(snmp.PDUTrapV2, "secret", 1))
	s.send(makeNotification(snmp.PDUTrapV2, "", 2))
	s.send(makeNotification(snmp.PDUTrapV2, "ops", 3))

	r := s.next()
	s.Equal("ops", r.msg.Community)
	s.assertNoMore()
}

func (s *ReceiverTestSuite) TestNoFilterAcceptsAll() {
	s.start(s.record, Options{Communities: []string{}})

	for _, community := range []string{"public", "secret", ""} {
		s.send(makeNotification(snmp.PDUTrapV2, community, 1))
		s.Equal(community, s.next().msg.Community)
	}
}

func (s *ReceiverTestSuite) TestRateLimit() {
	s.start(s.record, Options{RateLimit: RateLimitOptions{Limit: 1, Burst: 2}})

	for id := int32(1); id <= 5; id++ {
		s.send(makeNotification(snmp.PDUTrapV2, "public", id))
	}

	s.next()
	s.next()
	s.Never(func() bool { return len(s.got) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	s.clock.Add(time.Second)
	s.send(makeNotification(snmp.PDUTrapV2, "public", 6))
	s.Equal(int32(6), s.next().msg.PDU.RequestID)
}

func (s *ReceiverTestSuite) TestAcknowledgeInforms() {
	s.start(s.record, Options{AcknowledgeInforms: true})

	inform := makeNotification(snmp.PDUInformRequest, "public", 77)
	s.send(inform)

	ack := make(chan *snmp.Message, 1)
	go func() {
		buf := make([]byte, 65535)
		n, _, err := s.sender.ReadFrom(buf)
		if err != nil {
			return
		}
		msg, err := s.codec.Decode(buf[:n])
		if err != nil {
			return
		}
		ack <- msg
	}()

	select {
	case msg := <-ack:
		s.Equal(snmp.PDUResponse, msg.PDU.Type)
		s.Equal(int32(77), msg.PDU.RequestID)
		s.Equal(snmp.NoError, msg.PDU.ErrorStatus)
		s.Equal(inform.PDU.Varbinds, msg.PDU.Varbinds)
		s.Equal("public", msg.Community)
	case <-time.After(time.Second):
		s.FailNow("inform was not acknowledged")
	}

	s.Equal(inform, s.next().msg)
}

func (s *ReceiverTestSuite) TestMappedSenderAddress() {
	mapped, err := s.network.Bind(pipe.Addr{Host: "::ffff:10.0.0.5", Port: 6000})
	s.Require().NoError(err)
	defer mapped.Close()

	s.start(s.record, Options{})

	b, err := s.codec.Encode(makeNotification(snmp.PDUTrapV2, "public", 1))
	s.Require().NoError(err)
	_, err = mapped.WriteTo(b, s.addr)
	s.Require().NoError(err)

	r := s.next()
	s.Equal("10.0.0.5", r.host)
	s.Equal(6000, r.port)
}

func (s *ReceiverTestSuite) TestHandlerPanic() {
	var calls atomic.Int32
	s.start(func(ctx context.Context, host string, port int, msg *snmp.Message) {
		if calls.Add(1) == 1 {
			panic("handler failed")
		}
		s.record(ctx, host, port, msg)
	}, Options{Dispatch: DispatchOptions{Workers: 1}})

	s.send(makeNotification(snmp.PDUTrapV2, "public", 1))
	s.send(makeNotification(snmp.PDUTrapV2, "public", 2))

	s.Equal(int32(2), s.next().msg.PDU.RequestID)
}

func (s *ReceiverTestSuite) TestSlowHandlerDoesNotBlock() {
	release := make(chan struct{})
	defer close(release)

	s.start(func(ctx context.Context, host string, port int, msg *snmp.Message) {
		if msg.PDU.RequestID == 1 {
			<-release
			return
		}
		s.record(ctx, host, port, msg)
	}, Options{})

	s.send(makeNotification(snmp.PDUTrapV2, "public", 1))
	s.send(makeNotification(snmp.PDUTrapV2, "public", 2))

	s.Equal(int32(2), s.next().msg.PDU.RequestID)
}

func (s *ReceiverTestSuite) TestWorkerPoolBoundsConcurrency() {
	var active, peak atomic.Int32
	release := make(chan struct{})

	s.start(func(ctx context.Context, host string, port int, msg *snmp.Message) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		active.Add(-1)
		s.record(ctx, host, port, msg)
	}, Options{Dispatch: DispatchOptions{Workers: 2}})

	for id := int32(1); id <= 5; id++ {
		s.send(makeNotification(snmp.PDUTrapV2, "public", id))
	}

	s.Eventually(func() bool { return active.Load() == 2 }, time.Second, time.Millisecond)
	s.Never(func() bool { return active.Load() > 2 }, 50*time.Millisecond, 5*time.Millisecond)

	close(release)
	for range 5 {
		s.next()
	}
	s.Equal(int32(2), peak.Load())
}

func (s *ReceiverTestSuite) TestCloseCancelsHandlers() {
	started := make(chan struct{})
	s.start(func(ctx context.Context, host string, port int, msg *snmp.Message) {
		close(started)
		<-ctx.Done()
	}, Options{})

	s.send(makeNotification(snmp.PDUTrapV2, "public", 1))
	<-started

	done := make(chan struct{})
	go func() {
		s.receiver.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.FailNow("close did not return")
	}

	s.NoError(s.receiver.Close())
}

func (s *ReceiverTestSuite) TestCloseWithoutStart() {
	conn, err := s.network.Bind(s.addr)
	s.Require().NoError(err)

	r := New(conn, s.codec, s.logger, s.clock, s.record, Options{})
	s.NoError(r.Close())

	// The address is free again.
	conn, err = s.network.Bind(s.addr)
	s.Require().NoError(err)
	s.NoError(conn.Close())
}
