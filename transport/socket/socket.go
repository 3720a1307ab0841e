// Package socket adapts a connected stream into a transport.Stream with
// per-operation deadlines and cooperative cancellation.
//
// Every transfer is submitted asynchronously and the calling goroutine then
// waits, bounded by the direction's deadline, on either its completion or the
// shared cancellation signal. A receive that times out stays outstanding and
// is picked up by the next receive instead of being submitted twice.
package socket

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"stream-server/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

const DefaultTimeout = time.Second

type Socket struct {
	conn transport.Conn
	stop <-chan struct{}

	recv, send direction

	timeout atomic.Int64 // time.Duration

	errMu   sync.Mutex
	lastErr error

	inflight sync.WaitGroup
	closed   atomic.Bool

	logger *slog.Logger
	clock  clock.Clock

	// onWait, when set, runs right before a partial operation blocks.
	onWait func(dir string)
}

var _ transport.Stream = (*Socket)(nil)

// New binds a socket to conn and to the cancellation signal stop.
// stop is observed, never closed: once its owner closes it, every current and
// future wait of this socket returns transport.ErrCancelled. A nil stop is
// never signalled.
//
// If conn supports it, send coalescing is disabled. Failing to do so fails
// the construction.
func New(
	conn transport.Conn,
	stop <-chan struct{},
	logger *slog.Logger,
	clk clock.Clock,
) (*Socket, error) {
	if conn == nil {
		return nil, errors.New("connection must be provided")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if clk == nil {
		clk = clock.New()
	}

	if nd, ok := conn.(transport.NoDelayer); ok {
		if err := nd.SetNoDelay(true); err != nil {
			return nil, &transport.OpError{Op: "setsockopt", Err: transport.ErrPlatform, Cause: err}
		}
	}

	s := &Socket{
		conn:   conn,
		stop:   stop,
		recv:   direction{name: "recv", deadLine: newDeadLine(clk)},
		send:   direction{name: "send", deadLine: newDeadLine(clk)},
		logger: logger,
		clock:  clk,
	}
	s.timeout.Store(int64(DefaultTimeout))

	return s, nil
}

// Close releases the deadline timers and closes the connection. Outstanding
// operations fail with the closed connection and are waited for.
func (s *Socket) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return transport.ErrConnClosed
	}

	s.recv.deadLine.stop()
	s.send.deadLine.stop()

	err := s.conn.Close()
	s.inflight.Wait()

	if err != nil {
		return errors.Wrap(err, "closing connection")
	}
	return nil
}

func (s *Socket) ArmRecvTimer() { s.recv.deadLine.reset() }
func (s *Socket) ArmSendTimer() { s.send.deadLine.reset() }

// SetTimeoutSeconds sets the timeout used when a deadline is next armed.
// Non-positive values are ignored. Deadlines already armed are untouched.
func (s *Socket) SetTimeoutSeconds(n int) {
	if n > 0 {
		s.SetTimeout(time.Duration(n) * time.Second)
	}
}

// SetTimeout is SetTimeoutSeconds with sub-second precision.
func (s *Socket) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout.Store(int64(d))
	}
}

func (s *Socket) Timeout() time.Duration { return time.Duration(s.timeout.Load()) }

// LastError returns the most recent failure seen by any operation.
func (s *Socket) LastError() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

func (s *Socket) fail(err error) error {
	s.errMu.Lock()
	s.lastErr = err
	s.errMu.Unlock()
	return err
}

// Shutdown half-closes the connection. It is best effort: the error is
// returned and recorded, nothing else changes.
func (s *Socket) Shutdown(how transport.ShutdownHow) error {
	sd, ok := s.conn.(transport.Shutdowner)
	if !ok {
		return s.fail(transport.ErrNotSupported)
	}
	if err := sd.Shutdown(how); err != nil {
		return s.fail(err)
	}
	return nil
}

// Disconnect shuts down the sending side.
func (s *Socket) Disconnect() error {
	if err := s.Shutdown(transport.ShutdownWrite); err != nil {
		return &transport.OpError{Op: "disconnect", Err: transport.ErrPlatform, Cause: err}
	}
	return nil
}

func (s *Socket) LocalAddr() string  { return s.conn.LocalAddr().String() }
func (s *Socket) RemoteAddr() string { return s.conn.RemoteAddr().String() }
