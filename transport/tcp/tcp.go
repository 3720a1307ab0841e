// Package tcp provides transport connections backed by kernel TCP sockets.
package tcp

import (
	"context"
	"net"
	"syscall"
	"time"

	"stream-server/transport"

	"github.com/pkg/errors"
)

// Conn is a connected TCP socket.
type Conn struct {
	c   *net.TCPConn
	raw syscall.RawConn
}

var _ transport.Conn = (*Conn)(nil)
var _ transport.Shutdowner = (*Conn)(nil)
var _ transport.NoDelayer = (*Conn)(nil)

// Wrap takes ownership of c.
func Wrap(c *net.TCPConn) (*Conn, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return nil, errors.Wrap(err, "getting raw connection")
	}
	return &Conn{c: c, raw: raw}, nil
}

func (c *Conn) Read(p []byte) (int, error) {
	n, err := c.c.Read(p)
	return n, mapErr(err)
}

func (c *Conn) Write(p []byte) (int, error) {
	n, err := c.c.Write(p)
	return n, mapErr(err)
}

func (c *Conn) Close() error { return mapErr(c.c.Close()) }

func (c *Conn) LocalAddr() net.Addr  { return c.c.LocalAddr() }
func (c *Conn) RemoteAddr() net.Addr { return c.c.RemoteAddr() }

// control runs fn against the socket's descriptor.
func (c *Conn) control(fn func(fd int) error) error {
	var opErr error
	if err := c.raw.Control(func(fd uintptr) {
		opErr = fn(int(fd))
	}); err != nil {
		return mapErr(err)
	}
	return opErr
}

func mapErr(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return transport.ErrConnClosed
	}
	return err
}

// Listener accepts TCP connections.
type Listener struct {
	l *net.TCPListener
}

var _ transport.ConnListener = (*Listener)(nil)

func Listen(addr string) (*Listener, error) {
	laddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "resolving listen address")
	}

	l, err := net.ListenTCP("tcp", laddr)
	if err != nil {
		return nil, errors.Wrap(err, "listening")
	}

	return &Listener{l: l}, nil
}

func (l *Listener) Addr() net.Addr { return l.l.Addr() }

// Accept waits for the next connection. Cancelling ctx unblocks it.
func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	if err := l.l.SetDeadline(time.Time{}); err != nil {
		return nil, mapErr(err)
	}

	// An accept deadline in the past wakes a blocked Accept.
	stop := context.AfterFunc(ctx, func() {
		_ = l.l.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	c, err := l.l.AcceptTCP()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, transport.ErrConnListenerClosed
		}
		return nil, errors.Wrap(err, "accepting connection")
	}

	conn, err := Wrap(c)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return conn, nil
}

func (l *Listener) Close() error {
	if err := l.l.Close(); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return transport.ErrConnListenerClosed
		}
		return err
	}
	return nil
}

// Dialer opens outgoing TCP connections.
type Dialer struct {
	net.Dialer
}

var _ transport.ConnDialer = (*Dialer)(nil)

func (d *Dialer) Dial(ctx context.Context, addr net.Addr) (transport.Conn, error) {
	c, err := d.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return nil, errors.Wrap(err, "dialing")
	}
	return Wrap(c.(*net.TCPConn))
}
