package pipe

import (
	"testing"
	"time"

	"snmp-stack/network"
	"snmp-stack/transport"
	"snmp-stack/transport/test"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
)

type PipeConnTestSuite struct {
	test.PacketConnTestSuite
}

func TestPipeConnTestSuite(t *testing.T) {
	suite.Run(t, new(PipeConnTestSuite))
}

func (s *PipeConnTestSuite) SetupTest() {
	s.PacketConnTestSuite.SetupTest()

	n := NewNetwork(s.Clock, Options{})

	var err error
	s.C1, err = n.Bind(Addr{Host: "10.0.0.1"})
	s.Require().NoError(err)
	s.C2, err = n.Bind(Addr{Host: "10.0.0.2", Port: 161})
	s.Require().NoError(err)
}

type NetworkTestSuite struct {
	suite.Suite

	clock   *clock.Mock
	network *Network
}

func TestNetworkTestSuite(t *testing.T) {
	suite.Run(t, new(NetworkTestSuite))
}

func (s *NetworkTestSuite) SetupTest() {
	s.clock = clock.NewMock()
	s.network = NewNetwork(s.clock, Options{QueueSize: 2})
}

func (s *NetworkTestSuite) TestBindEphemeral() {
	c, err := s.network.Bind(Addr{Host: "agent"})
	s.Require().NoError(err)
	defer c.Close()

	local := c.LocalAddr().(Addr)
	s.Equal("agent", local.Host)
	s.GreaterOrEqual(local.Port, uint16(49152))
}

func (s *NetworkTestSuite) TestBindAddrInUse() {
	addr := Addr{Host: "agent", Port: 161}

	c, err := s.network.Bind(addr)
	s.Require().NoError(err)

	_, err = s.network.Bind(addr)
	s.ErrorIs(err, transport.ErrAddrAlreadyInUse)

	s.Require().NoError(c.Close())

	// Port is free again after close.
	c, err = s.network.Bind(addr)
	s.Require().NoError(err)
	s.NoError(c.Close())
}

func (s *NetworkTestSuite) TestBindUnsupportedAddr() {
	_, err := s.network.Bind(stubAddr{})
	s.ErrorIs(err, transport.ErrUnsupportedAddr)
}

func (s *NetworkTestSuite) TestWriteToNobody() {
	c, err := s.network.Bind(Addr{Host: "manager"})
	s.Require().NoError(err)
	defer c.Close()

	n, err := c.WriteTo([]byte("lost"), Addr{Host: "nobody", Port: 161})
	s.NoError(err)
	s.Equal(4, n)
}

func (s *NetworkTestSuite) TestDropWhenQueueFull() {
	sender, err := s.network.Bind(Addr{Host: "manager"})
	s.Require().NoError(err)
	defer sender.Close()
	receiver, err := s.network.Bind(Addr{Host: "agent", Port: 161})
	s.Require().NoError(err)
	defer receiver.Close()

	for _, p := range []string{"1", "2", "3"} {
		_, err := sender.WriteTo([]byte(p), receiver.LocalAddr())
		s.Require().NoError(err)
	}

	buf := make([]byte, 8)
	for _, expected := range []string{"1", "2"} {
		n, _, err := receiver.ReadFrom(buf)
		s.Require().NoError(err)
		s.Equal(expected, string(buf[:n]))
	}

	// Third one was dropped.
	receiver.SetReadDeadLine(s.clock.Now().Add(-time.Second))
	_, _, err = receiver.ReadFrom(buf)
	s.ErrorIs(err, transport.ErrDeadLineExceeded)
}

func (s *NetworkTestSuite) TestReadDeadLineWithMockClock() {
	c, err := s.network.Bind(Addr{Host: "agent", Port: 161})
	s.Require().NoError(err)
	defer c.Close()

	c.SetReadDeadLine(s.clock.Now().Add(time.Second))

	done := make(chan error)
	go func() {
		_, _, err := c.ReadFrom(make([]byte, 1))
		done <- err
	}()

	select {
	case <-done:
		s.FailNow("read returned before the deadline")
	case <-time.After(20 * time.Millisecond):
	}

	s.clock.Add(time.Second)
	s.ErrorIs(<-done, transport.ErrDeadLineExceeded)
}

func (s *NetworkTestSuite) TestAddr() {
	addr := Addr{Host: "::ffff:10.0.0.1", Port: 162}
	s.Equal("[::ffff:10.0.0.1]:162", addr.String())
	s.Equal(uint16(162), addr.Identifier())
	s.NotNil(addr.NetworkAddr())

	s.Nil(Addr{Host: "agent"}.NetworkAddr())
}

type stubAddr struct{}

func (stubAddr) NetworkAddr() network.Addr { return nil }
func (stubAddr) Identifier() any           { return nil }
func (stubAddr) String() string            { return "stub" }
