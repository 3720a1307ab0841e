package transport

import (
	"context"
	"net"

	"github.com/pkg/errors"
)

var (
	ErrConnClosed         = errors.New("connection is closed")
	ErrConnListenerClosed = errors.New("conn listener is closed")
	ErrConnRefused        = errors.New("connection refused")
	ErrNetUnreachable     = errors.New("network is unreachable")
	ErrAddrAlreadyInUse   = errors.New("address already in use")
	ErrNotSupported       = errors.New("operation not supported by connection")
)

// Conn is a connected, bidirectional byte stream.
// Read returns io.EOF once the peer has finished sending.
type Conn interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error

	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

type ShutdownHow int

const (
	ShutdownRead ShutdownHow = iota
	ShutdownWrite
	ShutdownBoth
)

func (h ShutdownHow) String() string {
	switch h {
	case ShutdownRead:
		return "read"
	case ShutdownWrite:
		return "write"
	case ShutdownBoth:
		return "both"
	default:
		return "unknown"
	}
}

// Shutdowner is implemented by connections that support half-close.
type Shutdowner interface {
	Shutdown(how ShutdownHow) error
}

// NoDelayer is implemented by connections that can disable send coalescing
// (Nagle's algorithm).
type NoDelayer interface {
	SetNoDelay(noDelay bool) error
}

type ConnListener interface {
	Accept(ctx context.Context) (Conn, error)
	Addr() net.Addr
	Close() error
}

type ConnDialer interface {
	Dial(ctx context.Context, addr net.Addr) (Conn, error)
}
