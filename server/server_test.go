package server

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"stream-server/transport"
	"stream-server/transport/pipe"

	"github.com/benbjohnson/clock"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type ServerTestSuite struct {
	suite.Suite

	transport     *pipe.PipeTransport
	transportAddr pipe.Addr

	server *Server

	clock *clock.Mock
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	s.clock = clock.NewMock()

	s.transport = pipe.NewPipeTransport()
	s.transportAddr = pipe.Addr{Name: "addr"}

	s.start(nil)
}

func (s *ServerTestSuite) start(handle HandleFunc) {
	lis, err := s.transport.Listen(s.transportAddr)
	s.Require().NoError(err)

	s.server, err = New(lis, slogt.New(s.T()), s.clock, handle, Options{})
	s.Require().NoError(err)
	s.server.Start()
}

func (s *ServerTestSuite) TearDownTest() {
	defer goleak.VerifyNone(s.T())
	s.NoError(s.server.Close())
}

func (s *ServerTestSuite) dial() transport.Conn {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	conn, err := s.transport.Dial(ctx, s.transportAddr)
	s.Require().NoError(err)
	return conn
}

// exchange sends msg and expects it back. Writing and reading overlap, since
// the echo may start before the whole message went out.
func (s *ServerTestSuite) exchange(conn transport.Conn, msg string) {
	written := make(chan error, 1)
	go func() {
		_, err := conn.Write([]byte(msg))
		written <- err
	}()

	got := make([]byte, len(msg))
	_, err := io.ReadFull(conn, got)
	s.Require().NoError(err)
	s.Equal(msg, string(got))
	s.Require().NoError(<-written)
}

func (s *ServerTestSuite) TestEcho() {
	conn := s.dial()
	defer conn.Close()

	s.exchange(conn, "hello")
	s.exchange(conn, string(bytes.Repeat([]byte("x"), 10_000)))
}

func (s *ServerTestSuite) TestEchoSurvivesIdleTimeouts() {
	conn := s.dial()
	defer conn.Close()

	s.exchange(conn, "before")

	// Let several receive deadlines pass on the idle connection.
	for range 3 {
		s.clock.Add(time.Second)
	}

	s.exchange(conn, "after")
}

func (s *ServerTestSuite) TestCloseCancelsIdleConnections() {
	c1, c2 := s.dial(), s.dial()
	defer c1.Close()
	defer c2.Close()

	s.exchange(c1, "one")
	s.exchange(c2, "two")

	start := time.Now()
	s.Require().NoError(s.server.Close())
	s.Less(time.Since(start), time.Second)

	for _, c := range []transport.Conn{c1, c2} {
		n, err := c.Read(make([]byte, 1))
		s.ErrorIs(err, io.EOF)
		s.Zero(n)
	}

	// Close is idempotent.
	s.NoError(s.server.Close())
}

func (s *ServerTestSuite) TestCustomHandler() {
	s.Require().NoError(s.server.Close())

	s.start(func(ctx context.Context, stream transport.Stream) error {
		header := make([]byte, 4)
		n, err := stream.ReceiveBytes(header)
		if err != nil {
			return err
		}

		_, err = stream.SendBytes(bytes.ToUpper(header[:n]))
		if err != nil {
			return err
		}
		return stream.Disconnect()
	})

	conn := s.dial()
	defer conn.Close()

	_, err := conn.Write([]byte("ping"))
	s.Require().NoError(err)

	got, err := io.ReadAll(conn)
	s.NoError(err)
	s.Equal("PING", string(got))
}

func TestWithDefaults(t *testing.T) {
	opts, err := withDefaults(Options{})
	require.NoError(t, err)
	require.Equal(t, defaultOptions(), opts)

	opts, err = withDefaults(Options{TimeoutSeconds: 30, BufferSize: 16})
	require.NoError(t, err)
	require.Equal(t, 30, opts.TimeoutSeconds)
	require.Equal(t, 16, opts.BufferSize)
	require.Equal(t, defaultOptions().MaxConns, opts.MaxConns)

	_, err = withDefaults(Options{MaxConns: -1})
	require.Error(t, err)
}

func TestCloseWithoutStart(t *testing.T) {
	transport := pipe.NewPipeTransport()
	lis, err := transport.Listen(pipe.Addr{Name: "idle"})
	require.NoError(t, err)

	server, err := New(lis, slogt.New(t), clock.New(), nil, Options{})
	require.NoError(t, err)
	require.NoError(t, server.Close())
}
