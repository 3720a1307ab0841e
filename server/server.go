// Package server serves stream connections, each through its own
// socket.Socket, and aborts all of them at once on Close.
package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"stream-server/transport"
	"stream-server/transport/socket"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"
)

// HandleFunc serves one connection. ctx is cancelled when the server closes;
// the stream's blocking operations observe the same signal on their own.
type HandleFunc func(ctx context.Context, stream transport.Stream) error

type Server struct {
	l transport.ConnListener

	// ctx.Done() is the cancellation signal shared by every connection.
	ctx    context.Context
	cancel context.CancelFunc

	conns      errgroup.Group
	acceptDone chan struct{}
	started    atomic.Bool
	closeOnce  sync.Once

	logger *slog.Logger
	opts   Options

	handle HandleFunc
	clock  clock.Clock
}

func New(
	l transport.ConnListener,
	logger *slog.Logger,
	clock clock.Clock,
	handle HandleFunc,
	opts Options,
) (*Server, error) {
	opts, err := withDefaults(opts)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		handle = Echo(opts.BufferSize)
	}

	s := &Server{
		l:          l,
		logger:     logger,
		opts:       opts,
		handle:     handle,
		clock:      clock,
		acceptDone: make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.conns.SetLimit(opts.MaxConns)

	return s, nil
}

// Start runs the accept loop in the background.
func (s *Server) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.logger.Info("serving", "addr", s.l.Addr().String())

	go func() {
		defer close(s.acceptDone)
		for {
			con, err := s.l.Accept(s.ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Error(
						"unexpected error when accepting connection",
						"error", err.Error(),
					)
				}
				return
			}

			// Blocks while MaxConns connections are being served.
			s.conns.Go(func() error {
				s.serve(con)
				return nil
			})
		}
	}()
}

func (s *Server) serve(con transport.Conn) {
	logger := s.logger.With(
		"conn", xid.New().String(),
		"remote", con.RemoteAddr().String(),
	)

	sock, err := socket.New(con, s.ctx.Done(), logger, s.clock)
	if err != nil {
		logger.Error("error when setting up connection", "error", err)
		if err := con.Close(); err != nil {
			logger.Error("error when closing connection", "error", err)
		}
		return
	}
	sock.SetTimeoutSeconds(s.opts.TimeoutSeconds)

	logger.Debug("serving connection")
	defer func() {
		logger.Debug("closing connection")
		if err := sock.Close(); err != nil {
			logger.Error("error when closing connection", "error", err)
		}
	}()

	err = s.handle(s.ctx, sock)
	switch {
	case err == nil:
		// no-op.
	case errors.Is(err, transport.ErrCancelled), errors.Is(err, context.Canceled):
		logger.Debug("connection cancelled")
	case errors.Is(err, transport.ErrTimeout):
		logger.Info("connection timed out")
	case errors.Is(err, transport.ErrConnAborted):
		logger.Info("connection aborted by peer", "error", err)
	default:
		logger.Error("unknown error occured", "error", err)
	}
}

// Close signals cancellation to every connection, stops accepting, and
// waits for all handlers to return.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		if s.started.Load() {
			<-s.acceptDone
		}
		_ = s.conns.Wait()

		if cerr := s.l.Close(); cerr != nil && !errors.Is(cerr, transport.ErrConnListenerClosed) {
			err = errors.Wrap(cerr, "closing listener")
		}
	})
	return err
}
