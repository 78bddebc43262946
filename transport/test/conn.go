package test

import (
	"bytes"
	"sync"
	"time"

	"snmp-stack/transport"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

// PacketConnTestSuite checks the behaviour every [transport.PacketConn] must share.
// Embedders bind C1 and C2 in SetupTest after calling PacketConnTestSuite.SetupTest.
type PacketConnTestSuite struct {
	suite.Suite
	C1, C2 transport.PacketConn
	Clock  clock.Clock

	done  chan struct{}
	timer *time.Timer
}

func (s *PacketConnTestSuite) SetupTest() {
	s.done = make(chan struct{})
	s.Clock = clock.New() // Use real-time timer for now.

	s.timer = time.AfterFunc(time.Second, func() {
		select {
		case <-s.done:
		default:
			s.FailNow("timeout exceeded")
		}
	})
}

func (s *PacketConnTestSuite) TearDownTest() {
	defer goleak.VerifyNone(s.T())
	// Some tests close the conns themselves.
	_ = s.C1.Close()
	_ = s.C2.Close()
	close(s.done)
	s.timer.Stop()
}

func (s *PacketConnTestSuite) TestWriteReadFrom() {
	data := []byte("Hello, World!")

	n, err := s.C1.WriteTo(data, s.C2.LocalAddr())
	s.Require().NoError(err)
	s.Equal(len(data), n)

	buf := make([]byte, 64)
	n, from, err := s.C2.ReadFrom(buf)
	s.Require().NoError(err)
	s.Equal(data, buf[:n])
	s.Equal(s.C1.LocalAddr(), from)
}

func (s *PacketConnTestSuite) TestDatagramBoundaries() {
	first, second := []byte("first"), []byte("second datagram")

	_, err := s.C1.WriteTo(first, s.C2.LocalAddr())
	s.Require().NoError(err)
	_, err = s.C1.WriteTo(second, s.C2.LocalAddr())
	s.Require().NoError(err)

	buf := make([]byte, 64)
	n, _, err := s.C2.ReadFrom(buf)
	s.Require().NoError(err)
	s.Equal(first, buf[:n])

	n, _, err = s.C2.ReadFrom(buf)
	s.Require().NoError(err)
	s.Equal(second, buf[:n])
}

func (s *PacketConnTestSuite) TestTruncate() {
	data := []byte("longer than the buffer")

	_, err := s.C1.WriteTo(data, s.C2.LocalAddr())
	s.Require().NoError(err)

	buf := make([]byte, 6)
	n, _, err := s.C2.ReadFrom(buf)
	s.Require().NoError(err)
	s.Equal(len(buf), n)
	s.Equal(data[:len(buf)], buf)
}

func (s *PacketConnTestSuite) TestWriteRace() {
	data := []byte("ABCD")
	N := 10

	var wg sync.WaitGroup
	defer wg.Wait()

	for range N {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.C1.WriteTo(data, s.C2.LocalAddr())
			s.NoError(err)
			s.Equal(len(data), n)
		}()
	}

	buf := make([]byte, 64)
	for range N {
		n, _, err := s.C2.ReadFrom(buf)
		s.Require().NoError(err)
		// Datagrams never interleave.
		s.Equal(data, buf[:n])
	}
}

func (s *PacketConnTestSuite) TestReadBeforeClose() {
	var wg sync.WaitGroup
	defer wg.Wait()

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _, err := s.C1.ReadFrom(make([]byte, 1))
		s.ErrorIs(err, transport.ErrConnClosed)
	}()

	time.Sleep(50 * time.Millisecond)
	s.Require().NoError(s.C1.Close())
}

func (s *PacketConnTestSuite) TestClose() {
	s.Require().NoError(s.C1.Close())

	_, _, err := s.C1.ReadFrom(make([]byte, 1))
	s.ErrorIs(err, transport.ErrConnClosed)

	_, err = s.C1.WriteTo([]byte("hey"), s.C2.LocalAddr())
	s.ErrorIs(err, transport.ErrConnClosed)

	s.ErrorIs(s.C1.Close(), transport.ErrConnClosed)
}

func (s *PacketConnTestSuite) TestReadDeadLine() {
	s.C1.SetReadDeadLine(s.Clock.Now().Add(-time.Second))

	b := make([]byte, 1)
	n, _, err := s.C1.ReadFrom(b)
	s.ErrorIs(err, transport.ErrDeadLineExceeded)
	s.Zero(n)
}

func (s *PacketConnTestSuite) TestReadDeadLineExpires() {
	s.C1.SetReadDeadLine(s.Clock.Now().Add(50 * time.Millisecond))

	start := s.Clock.Now()
	_, _, err := s.C1.ReadFrom(make([]byte, 1))
	s.ErrorIs(err, transport.ErrDeadLineExceeded)
	s.GreaterOrEqual(s.Clock.Since(start), 40*time.Millisecond)
}

func (s *PacketConnTestSuite) TestReadDeadLineReset() {
	s.C1.SetReadDeadLine(s.Clock.Now().Add(-time.Second))
	s.C1.SetReadDeadLine(time.Time{})

	data := []byte("still readable")
	_, err := s.C2.WriteTo(data, s.C1.LocalAddr())
	s.Require().NoError(err)

	buf := make([]byte, 64)
	n, _, err := s.C1.ReadFrom(buf)
	s.Require().NoError(err)
	s.True(bytes.Equal(data, buf[:n]))
}
