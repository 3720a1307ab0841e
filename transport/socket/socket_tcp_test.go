package socket

import (
	"context"
	"io"
	"testing"
	"time"

	"stream-server/transport"
	"stream-server/transport/tcp"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func tcpPair(t *testing.T) (local, peer transport.Conn) {
	t.Helper()

	l, err := tcp.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	accepted := make(chan transport.Conn, 1)
	go func() {
		conn, err := l.Accept(context.Background())
		if err == nil {
			accepted <- conn
		}
		close(accepted)
	}()

	var d tcp.Dialer
	peer, err = d.Dial(context.Background(), l.Addr())
	require.NoError(t, err)

	local, ok := <-accepted
	require.True(t, ok)
	return local, peer
}

func TestSocketOverTCP(t *testing.T) {
	defer goleak.VerifyNone(t)

	local, peer := tcpPair(t)
	defer peer.Close()

	stop := make(chan struct{})
	sock, err := New(local, stop, slogt.New(t), nil)
	require.NoError(t, err)
	defer sock.Close()

	sock.SetTimeout(100 * time.Millisecond)

	// Nothing to read: the armed deadline expires.
	buf := make([]byte, 16)
	start := time.Now()
	n, err := sock.RecvPartial(buf)
	require.ErrorIs(t, err, transport.ErrTimeout)
	require.Zero(t, n)
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	// The timed out receive is still outstanding and picks the data up.
	_, err = peer.Write([]byte("hello"))
	require.NoError(t, err)

	sock.ArmRecvTimer()
	n, err = sock.RecvPartial(buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))

	n, err = sock.SendBytes([]byte("world"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	got := make([]byte, 5)
	_, err = io.ReadFull(peer, got)
	require.NoError(t, err)
	require.Equal(t, "world", string(got))

	// Half close towards the peer.
	require.NoError(t, sock.Disconnect())
	n, err = peer.Read(got)
	require.ErrorIs(t, err, io.EOF)
	require.Zero(t, n)

	// Short receive followed by an orderly close.
	_, err = peer.Write([]byte("tail"))
	require.NoError(t, err)
	require.NoError(t, peer.Close())

	n, err = sock.ReceiveBytes(buf)
	require.NoError(t, err)
	require.Equal(t, "tail", string(buf[:n]))
}

func TestSocketOverTCPCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	local, peer := tcpPair(t)
	defer peer.Close()

	stop := make(chan struct{})
	sock, err := New(local, stop, slogt.New(t), nil)
	require.NoError(t, err)
	defer sock.Close()

	sock.SetTimeoutSeconds(30)

	time.AfterFunc(50*time.Millisecond, func() { close(stop) })

	start := time.Now()
	n, err := sock.ReceiveBytes(make([]byte, 1))
	require.ErrorIs(t, err, transport.ErrCancelled)
	require.Zero(t, n)
	require.Less(t, time.Since(start), 5*time.Second)
}
